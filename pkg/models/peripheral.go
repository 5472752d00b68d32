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

package models

// ClassificationGPU is the only peripheral class this agent reports.
const ClassificationGPU = "GPU"

// ProbeOutcome classifies the result of a single host detection pass.
type ProbeOutcome int

const (
	// ProbeNotFound means the probe had full visibility and saw no GPU.
	ProbeNotFound ProbeOutcome = iota
	// ProbeFound means the probe positively identified GPU hardware.
	ProbeFound
	// ProbeInconclusive means the probe could not see enough of the host
	// to decide either way (restricted container, helper timeout, etc).
	ProbeInconclusive
)

func (o ProbeOutcome) String() string {
	switch o {
	case ProbeNotFound:
		return "not_found"
	case ProbeFound:
		return "found"
	case ProbeInconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

// RawAttributes carries whatever a probe strategy managed to learn about the
// hardware. All fields are optional; a presence-only hit leaves them empty.
type RawAttributes struct {
	Vendor        string            `json:"vendor,omitempty"`
	Model         string            `json:"model,omitempty"`
	DriverVersion string            `json:"driver_version,omitempty"`
	DevicePaths   []string          `json:"device_paths,omitempty"`
	Libraries     []string          `json:"libraries,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// ProbeResult is the outcome of one detection pass over the host.
type ProbeResult struct {
	Outcome    ProbeOutcome   `json:"outcome"`
	Source     string         `json:"source,omitempty"` // name of the strategy that decided
	Reason     string         `json:"reason,omitempty"` // populated for inconclusive results
	Attributes *RawAttributes `json:"attributes,omitempty"`
}

// PeripheralDescriptor is the canonical record reported to the peripheral
// management API for one detected GPU.
type PeripheralDescriptor struct {
	Identifier     string            `json:"identifier"`
	Classification string            `json:"classification"`
	Vendor         string            `json:"vendor,omitempty"`
	Model          string            `json:"model,omitempty"`
	DriverVersion  string            `json:"driver_version,omitempty"`
	ResourcePaths  []string          `json:"resource_paths,omitempty"`
	Available      bool              `json:"available"`
	LastSeenCycle  uint64            `json:"last_seen_cycle"`
	HostID         string            `json:"host_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Equal reports whether two descriptors would be indistinguishable to the
// remote API. LastSeenCycle is bookkeeping local to the agent and is ignored.
func (d *PeripheralDescriptor) Equal(other *PeripheralDescriptor) bool {
	if d == nil || other == nil {
		return d == other
	}

	if d.Identifier != other.Identifier ||
		d.Classification != other.Classification ||
		d.Vendor != other.Vendor ||
		d.Model != other.Model ||
		d.DriverVersion != other.DriverVersion ||
		d.Available != other.Available ||
		d.HostID != other.HostID {
		return false
	}

	if len(d.ResourcePaths) != len(other.ResourcePaths) {
		return false
	}

	for i := range d.ResourcePaths {
		if d.ResourcePaths[i] != other.ResourcePaths[i] {
			return false
		}
	}

	if len(d.Metadata) != len(other.Metadata) {
		return false
	}

	for k, v := range d.Metadata {
		if other.Metadata[k] != v {
			return false
		}
	}

	return true
}
