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

import "github.com/carverauto/gpuscout/pkg/models"

// State is the lifecycle position of one tracked identifier.
type State int

const (
	// StateUnknown - no prior report exists for this identifier.
	StateUnknown State = iota
	// StateReported - the remote API holds a live descriptor confirmed by the last probe.
	StateReported
	// StateStale - a reported identifier missed refreshes due to inconclusive probes,
	// held for the grace period before removal.
	StateStale
	// StateRemoved - deleted from the API; rediscovery starts over with a create.
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateReported:
		return "reported"
	case StateStale:
		return "stale"
	case StateRemoved:
		return "removed"
	default:
		return "invalid"
	}
}

// entry tracks one identifier across cycles. The table holding entries is
// owned exclusively by the Engine and touched by one cycle at a time, so no
// locking is needed.
type entry struct {
	state    State
	misses   int
	reported *models.PeripheralDescriptor // last descriptor acknowledged by the API
}
