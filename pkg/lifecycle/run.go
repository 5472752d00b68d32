/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lifecycle

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/gpuscout/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Service is the contract run by RunService: a long-lived component with a
// blocking Start and an idempotent Stop.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RunService starts the service and blocks until SIGINT/SIGTERM or until
// Start returns on its own. A clean signal-driven shutdown returns nil.
func RunService(ctx context.Context, svc Service, log logger.Logger) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		errCh <- svc.Start(sigCtx)
	}()

	select {
	case <-sigCtx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := svc.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping service")
		return err
	}

	// Drain the Start result so the goroutine does not leak.
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
