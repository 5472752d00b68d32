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

// Package agent runs the discovery loop: probe the host for GPU hardware,
// build peripheral records, and reconcile them against the management API
// at a fixed interval.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/gpuscout/pkg/apiclient"
	"github.com/carverauto/gpuscout/pkg/descriptor"
	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/models"
	"github.com/carverauto/gpuscout/pkg/probe"
	"github.com/carverauto/gpuscout/pkg/reconciler"
)

// Service is the discovery agent. One cycle runs to completion before the
// next begins; there is no concurrency over the reconciliation state.
type Service struct {
	config  *Config
	prober  Prober
	builder RecordBuilder
	engine  Reconciler
	health  HealthChecker
	clock   Clock
	logger  logger.Logger

	cycle    uint64
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New wires a Service from configuration.
func New(cfg *Config, log logger.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := apiclient.New(&cfg.API, log)
	if err != nil {
		return nil, err
	}

	engine, err := reconciler.New(client, cfg.Reconcile, log, reconciler.NewInMemoryMetrics())
	if err != nil {
		return nil, err
	}

	prober, err := probe.New(&cfg.Probe, log)
	if err != nil {
		return nil, err
	}

	return NewWithDeps(cfg, Deps{
		Prober:  prober,
		Builder: descriptor.NewBuilder(cfg.AgentID, log),
		Engine:  engine,
		Health:  client,
		Clock:   realClock{},
	}, log), nil
}

// Deps are the collaborators a Service runs with. Exposed so tests can
// substitute fakes.
type Deps struct {
	Prober  Prober
	Builder RecordBuilder
	Engine  Reconciler
	Health  HealthChecker
	Clock   Clock
}

// NewWithDeps builds a Service from pre-constructed collaborators. The
// config must already be validated.
func NewWithDeps(cfg *Config, deps Deps, log logger.Logger) *Service {
	return &Service{
		config:  cfg,
		prober:  deps.Prober,
		builder: deps.Builder,
		engine:  deps.Engine,
		health:  deps.Health,
		clock:   deps.Clock,
		logger:  log,
		stopCh:  make(chan struct{}),
	}
}

// Start blocks running discovery cycles until the context is canceled or
// Stop is called. Startup fails hard when the API never becomes healthy or
// the baseline state cannot be fetched; everything after that is retried
// per cycle and never exits the process.
func (s *Service) Start(ctx context.Context) error {
	if err := s.awaitAPI(ctx); err != nil {
		return err
	}

	if err := s.engine.Bootstrap(ctx); err != nil {
		return fmt.Errorf("establishing baseline state: %w", err)
	}

	s.logger.Info().
		Str("agent_id", s.config.AgentID).
		Dur("poll_interval", time.Duration(s.config.PollInterval)).
		Msg("Starting GPU discovery loop")

	// First cycle runs immediately rather than one interval in.
	s.runCycle(ctx)

	ticker := s.clock.Ticker(time.Duration(s.config.PollInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.Chan():
			s.runCycle(ctx)
		}
	}
}

// Stop ends the discovery loop. Safe to call more than once.
func (s *Service) Stop(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

// awaitAPI waits for the management API to answer its health endpoint,
// bounded by the configured retry budget.
func (s *Service) awaitAPI(ctx context.Context) error {
	ticker := s.clock.Ticker(time.Duration(s.config.BootstrapDelay))
	defer ticker.Stop()

	var lastErr error

	for attempt := 1; attempt <= s.config.BootstrapRetries; attempt++ {
		lastErr = s.health.Health(ctx)
		if lastErr == nil {
			return nil
		}

		s.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", s.config.BootstrapRetries).
			Msg("Peripheral API not ready; waiting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}

	return fmt.Errorf("peripheral API not healthy after %d attempts: %w", s.config.BootstrapRetries, lastErr)
}

// runCycle executes one probe→build→reconcile pass. A panic in any stage is
// contained to the cycle; the loop keeps its schedule.
func (s *Service) runCycle(ctx context.Context) {
	s.cycle++
	cycle := s.cycle

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Uint64("cycle", cycle).
				Msg("Discovery cycle panicked; continuing with next cycle")
		}
	}()

	res, err := s.prober.Detect(ctx)
	if err != nil {
		// A broken probe says nothing about the hardware. Treat it like a
		// probe that could not see, so nothing gets deleted on its account.
		s.logger.Error().Err(err).Uint64("cycle", cycle).Msg("Probe failed")

		res = &models.ProbeResult{
			Outcome: models.ProbeInconclusive,
			Reason:  err.Error(),
		}
	}

	report := &reconciler.CycleReport{Cycle: cycle, Outcome: res.Outcome}

	if res.Outcome == models.ProbeFound {
		if desc, ok := s.builder.Build(ctx, res, cycle); ok {
			report.Descriptors = append(report.Descriptors, desc)
		} else {
			report.Outcome = models.ProbeInconclusive
		}
	}

	s.logger.Debug().
		Uint64("cycle", cycle).
		Str("outcome", report.Outcome.String()).
		Int("descriptors", len(report.Descriptors)).
		Msg("Cycle probe complete")

	if err := s.engine.Reconcile(ctx, report); err != nil {
		s.logger.Error().Err(err).Uint64("cycle", cycle).Msg("Reconciliation incomplete; retrying next cycle")
	}
}
