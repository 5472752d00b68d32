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

package reconciler

import (
	"sync"
	"time"
)

// Metrics defines the interface for collecting reconciliation metrics
type Metrics interface {
	RecordCycle(duration time.Duration)
	RecordCreate(identifier string)
	RecordUpdate(identifier string)
	RecordDelete(identifier string)
	RecordRetry(operation string)
	RecordDeferred(identifier string, err error)

	// Export metrics for monitoring systems
	GetMetrics() map[string]interface{}
}

// NoOpMetrics provides a no-op implementation of the Metrics interface
type NoOpMetrics struct{}

func (n *NoOpMetrics) RecordCycle(duration time.Duration)         {}
func (n *NoOpMetrics) RecordCreate(identifier string)             {}
func (n *NoOpMetrics) RecordUpdate(identifier string)             {}
func (n *NoOpMetrics) RecordDelete(identifier string)             {}
func (n *NoOpMetrics) RecordRetry(operation string)               {}
func (n *NoOpMetrics) RecordDeferred(identifier string, err error) {}
func (n *NoOpMetrics) GetMetrics() map[string]interface{}         { return map[string]interface{}{} }

// InMemoryMetrics provides an in-memory implementation of the Metrics interface
type InMemoryMetrics struct {
	mu sync.RWMutex

	cycles        int
	cycleDuration time.Duration
	creates       map[string]int
	updates       map[string]int
	deletes       map[string]int
	retries       map[string]int
	deferred      map[string]int
	lastUpdated   time.Time
}

// NewInMemoryMetrics creates a new in-memory metrics collector
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		creates:     make(map[string]int),
		updates:     make(map[string]int),
		deletes:     make(map[string]int),
		retries:     make(map[string]int),
		deferred:    make(map[string]int),
		lastUpdated: time.Now(),
	}
}

func (m *InMemoryMetrics) RecordCycle(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
	m.cycleDuration = duration
	m.lastUpdated = time.Now()
}

func (m *InMemoryMetrics) RecordCreate(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates[identifier]++
	m.lastUpdated = time.Now()
}

func (m *InMemoryMetrics) RecordUpdate(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[identifier]++
	m.lastUpdated = time.Now()
}

func (m *InMemoryMetrics) RecordDelete(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes[identifier]++
	m.lastUpdated = time.Now()
}

func (m *InMemoryMetrics) RecordRetry(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries[operation]++
	m.lastUpdated = time.Now()
}

func (m *InMemoryMetrics) RecordDeferred(identifier string, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deferred[identifier]++
	m.lastUpdated = time.Now()
}

func (m *InMemoryMetrics) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"cycles":              m.cycles,
		"last_cycle_duration": m.cycleDuration,
		"creates":             m.creates,
		"updates":             m.updates,
		"deletes":             m.deletes,
		"retries":             m.retries,
		"deferred":            m.deferred,
		"last_updated":        m.lastUpdated,
	}
}
