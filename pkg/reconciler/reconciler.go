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

// Package reconciler brings the remote peripheral API in line with what the
// probes observed on the host. It owns the per-identifier state table and is
// the only component that issues mutating API calls.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/carverauto/gpuscout/pkg/apiclient"
	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/models"
)

const (
	defaultGraceCycles  = 3
	defaultRetryCap     = 3
	defaultRetryBackoff = 500 * time.Millisecond
)

var errInvalidGraceCycles = errors.New("reconciler: grace_cycles must not be negative")

// Config holds the reconciliation policy knobs.
type Config struct {
	// GraceCycles is how many consecutive inconclusive cycles a reported
	// identifier survives before it is deleted.
	GraceCycles int `json:"grace_cycles,omitempty"`
	// RetryCap is how many times a failed API call is retried within one
	// cycle, after the initial attempt.
	RetryCap int `json:"retry_cap,omitempty"`
	// RetryBackoff is the initial delay between retries; it doubles per attempt.
	RetryBackoff models.Duration `json:"retry_backoff,omitempty"`
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.GraceCycles < 0 {
		return errInvalidGraceCycles
	}

	if c.GraceCycles == 0 {
		c.GraceCycles = defaultGraceCycles
	}

	if c.RetryCap == 0 {
		c.RetryCap = defaultRetryCap
	}

	if c.RetryBackoff == 0 {
		c.RetryBackoff = models.Duration(defaultRetryBackoff)
	}

	return nil
}

// CycleReport is what one probe cycle hands to the engine: the overall
// outcome plus the descriptors built from it. Descriptors are only present
// when the outcome is ProbeFound.
type CycleReport struct {
	Cycle       uint64
	Outcome     models.ProbeOutcome
	Descriptors []*models.PeripheralDescriptor
}

// Engine reconciles observed host state against the remote API. It is not
// safe for concurrent use; the scheduler runs one cycle at a time.
type Engine struct {
	api     PeripheralAPI
	config  Config
	logger  logger.Logger
	metrics Metrics
	entries map[string]*entry
}

// New creates an Engine. A nil metrics collector falls back to no-op.
func New(api PeripheralAPI, cfg Config, log logger.Logger, m Metrics) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if m == nil {
		m = &NoOpMetrics{}
	}

	return &Engine{
		api:     api,
		config:  cfg,
		logger:  log,
		metrics: m,
		entries: make(map[string]*entry),
	}, nil
}

// Bootstrap seeds the state table from the API so the first cycle can tell
// an already-registered device from a new one. The remote API is the system
// of record; whatever it holds for this classification starts out Reported.
func (e *Engine) Bootstrap(ctx context.Context) error {
	records, err := e.api.List(ctx)
	if err != nil {
		return fmt.Errorf("fetching remote peripheral state: %w", err)
	}

	for _, rec := range records {
		if rec == nil || rec.Identifier == "" {
			continue
		}

		e.entries[rec.Identifier] = &entry{state: StateReported, reported: rec}
	}

	e.logger.Info().
		Int("tracked", len(e.entries)).
		Msg("Bootstrapped reconciliation state from remote API")

	return nil
}

// Reconcile applies one cycle's observations. Failed API calls are retried
// with backoff up to the configured cap; an identifier whose retries are
// exhausted keeps its previous state and is re-attempted next cycle. The
// returned error aggregates the deferred identifiers and is reported, not
// fatal.
func (e *Engine) Reconcile(ctx context.Context, report *CycleReport) error {
	start := time.Now()
	defer func() { e.metrics.RecordCycle(time.Since(start)) }()

	var errs []error

	refreshed := make(map[string]bool, len(report.Descriptors))

	if report.Outcome == models.ProbeFound {
		for _, desc := range report.Descriptors {
			if desc == nil || desc.Identifier == "" {
				continue
			}

			refreshed[desc.Identifier] = true

			if err := e.syncPresent(ctx, desc); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, id := range e.trackedIdentifiers() {
		if refreshed[id] {
			continue
		}

		if err := e.syncMissing(ctx, id, report.Outcome); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// syncPresent handles an identifier the probe confirmed this cycle.
func (e *Engine) syncPresent(ctx context.Context, desc *models.PeripheralDescriptor) error {
	ent, tracked := e.entries[desc.Identifier]

	if !tracked || ent.state == StateUnknown || ent.state == StateRemoved {
		if err := e.withRetry(ctx, "create", func() error {
			return e.api.Create(ctx, desc)
		}); err != nil {
			e.deferIdentifier(desc.Identifier, "create", err)
			return err
		}

		e.entries[desc.Identifier] = &entry{state: StateReported, reported: desc}
		e.metrics.RecordCreate(desc.Identifier)
		e.logger.Info().
			Str("identifier", desc.Identifier).
			Str("model", desc.Model).
			Msg("Registered peripheral")

		return nil
	}

	if ent.reported != nil && ent.reported.Equal(desc) {
		// Synchronized already; refresh bookkeeping without an API call.
		ent.state = StateReported
		ent.misses = 0
		ent.reported = desc

		return nil
	}

	if err := e.withRetry(ctx, "update", func() error {
		return e.api.Update(ctx, desc)
	}); err != nil {
		e.deferIdentifier(desc.Identifier, "update", err)
		return err
	}

	ent.state = StateReported
	ent.misses = 0
	ent.reported = desc
	e.metrics.RecordUpdate(desc.Identifier)
	e.logger.Info().
		Str("identifier", desc.Identifier).
		Msg("Updated peripheral")

	return nil
}

// syncMissing handles a tracked identifier the probe did not confirm this
// cycle. An inconclusive probe only ages the entry toward the grace
// threshold; a definitive result removes it.
func (e *Engine) syncMissing(ctx context.Context, identifier string, outcome models.ProbeOutcome) error {
	ent := e.entries[identifier]
	if ent.state != StateReported && ent.state != StateStale {
		return nil
	}

	if outcome == models.ProbeInconclusive {
		ent.state = StateStale
		ent.misses++

		if ent.misses <= e.config.GraceCycles {
			e.logger.Debug().
				Str("identifier", identifier).
				Int("misses", ent.misses).
				Int("grace_cycles", e.config.GraceCycles).
				Msg("Probe inconclusive; holding peripheral through grace period")

			return nil
		}

		e.logger.Warn().
			Str("identifier", identifier).
			Int("misses", ent.misses).
			Msg("Grace period exhausted; removing peripheral")
	}

	if err := e.withRetry(ctx, "delete", func() error {
		return e.api.Delete(ctx, identifier)
	}); err != nil {
		e.deferIdentifier(identifier, "delete", err)
		return err
	}

	ent.state = StateRemoved
	ent.misses = 0
	ent.reported = nil
	e.metrics.RecordDelete(identifier)
	e.logger.Info().
		Str("identifier", identifier).
		Msg("Deregistered peripheral")

	return nil
}

// withRetry runs fn, retrying transient failures with doubling backoff up to
// the configured cap. Permanent rejections are returned immediately.
func (e *Engine) withRetry(ctx context.Context, operation string, fn func() error) error {
	backoff := time.Duration(e.config.RetryBackoff)

	var lastErr error

	for attempt := 0; attempt <= e.config.RetryCap; attempt++ {
		if attempt > 0 {
			e.metrics.RecordRetry(operation)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			backoff *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !apiclient.IsRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (e *Engine) deferIdentifier(identifier, operation string, err error) {
	e.metrics.RecordDeferred(identifier, err)
	e.logger.Error().
		Err(err).
		Str("identifier", identifier).
		Str("operation", operation).
		Msg("API call failed; deferring to next cycle")
}

// trackedIdentifiers returns the table's keys in stable order so a cycle's
// API calls are deterministic.
func (e *Engine) trackedIdentifiers() []string {
	ids := make([]string, 0, len(e.entries))
	for id := range e.entries {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// StateOf reports the tracked state of an identifier. Untracked identifiers
// are Unknown.
func (e *Engine) StateOf(identifier string) State {
	if ent, ok := e.entries[identifier]; ok {
		return ent.state
	}

	return StateUnknown
}
