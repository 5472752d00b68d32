package reconciler

//go:generate mockgen -destination=mock_reconciler.go -package=reconciler github.com/carverauto/gpuscout/pkg/reconciler PeripheralAPI

import (
	"context"

	"github.com/carverauto/gpuscout/pkg/models"
)

// PeripheralAPI is the remote side of reconciliation. Implementations must
// treat update/delete of an already-absent record as success and mark
// transient failures with apiclient.ErrUnreachable.
type PeripheralAPI interface {
	List(ctx context.Context) ([]*models.PeripheralDescriptor, error)
	Create(ctx context.Context, desc *models.PeripheralDescriptor) error
	Update(ctx context.Context, desc *models.PeripheralDescriptor) error
	Delete(ctx context.Context, identifier string) error
}
