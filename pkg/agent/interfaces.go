package agent

//go:generate mockgen -destination=mock_agent.go -package=agent github.com/carverauto/gpuscout/pkg/agent Clock,Ticker,Prober,RecordBuilder,Reconciler

import (
	"context"
	"time"

	"github.com/carverauto/gpuscout/pkg/models"
	"github.com/carverauto/gpuscout/pkg/reconciler"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Prober is the detection side of a cycle.
type Prober interface {
	Detect(ctx context.Context) (*models.ProbeResult, error)
}

// RecordBuilder turns probe results into reportable descriptors.
type RecordBuilder interface {
	Build(ctx context.Context, res *models.ProbeResult, cycle uint64) (*models.PeripheralDescriptor, bool)
}

// Reconciler applies a cycle's observations to the remote API.
type Reconciler interface {
	Bootstrap(ctx context.Context) error
	Reconcile(ctx context.Context, report *reconciler.CycleReport) error
}

// HealthChecker reports whether the remote API is ready.
type HealthChecker interface {
	Health(ctx context.Context) error
}
