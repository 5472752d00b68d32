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

// Package descriptor turns raw probe results into the stable peripheral
// records reported to the management API.
package descriptor

import (
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/models"
)

const (
	defaultVendor     = "NVIDIA"
	fallbackIdentifier = "gpu-0"
)

var numberedNodeRe = regexp.MustCompile(`^nvidia(\d+)$`)

// Builder derives deterministic peripheral descriptors from probe results.
// The identifier for a given physical device never varies across cycles, so
// the reconciler can match records against what the API already holds.
type Builder struct {
	hostID string
	logger logger.Logger

	// hostInfo is swapped in tests.
	hostInfo func(ctx context.Context) (*host.InfoStat, error)
}

// NewBuilder returns a Builder that stamps records with the given host
// identifier. An empty hostID is filled in from the host at build time.
func NewBuilder(hostID string, log logger.Logger) *Builder {
	return &Builder{
		hostID:   hostID,
		logger:   log,
		hostInfo: host.InfoWithContext,
	}
}

// Build converts a probe result into a descriptor for the given cycle.
// It returns false when the result does not describe a present device;
// callers must not report anything in that case.
func (b *Builder) Build(ctx context.Context, res *models.ProbeResult, cycle uint64) (*models.PeripheralDescriptor, bool) {
	if res == nil || res.Outcome != models.ProbeFound {
		return nil, false
	}

	attrs := res.Attributes
	if attrs == nil {
		attrs = &models.RawAttributes{}
	}

	vendor := attrs.Vendor
	if vendor == "" {
		vendor = defaultVendor
	}

	desc := &models.PeripheralDescriptor{
		Identifier:     identifierFor(attrs),
		Classification: models.ClassificationGPU,
		Vendor:         vendor,
		Model:          attrs.Model,
		DriverVersion:  attrs.DriverVersion,
		ResourcePaths:  append([]string(nil), attrs.DevicePaths...),
		Available:      true,
		LastSeenCycle:  cycle,
		HostID:         b.hostID,
		Metadata:       map[string]string{},
	}

	if res.Source != "" {
		desc.Metadata["probe_source"] = res.Source
	}

	if len(attrs.Libraries) > 0 {
		desc.Metadata["libraries"] = strings.Join(attrs.Libraries, ",")
	}

	for k, v := range attrs.Extra {
		desc.Metadata[k] = v
	}

	b.enrichHost(ctx, desc)

	return desc, true
}

// enrichHost fills host-level metadata. Failures degrade the record rather
// than block reporting: a GPU on a host we cannot fully describe is still a
// GPU worth reporting.
func (b *Builder) enrichHost(ctx context.Context, desc *models.PeripheralDescriptor) {
	info, err := b.hostInfo(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Host enrichment failed; reporting without host metadata")
		return
	}

	if desc.HostID == "" {
		desc.HostID = info.Hostname
	}

	if info.KernelArch != "" {
		desc.Metadata["kernel_arch"] = info.KernelArch
	}

	if info.OS != "" {
		desc.Metadata["os"] = info.OS
	}

	if info.PlatformVersion != "" {
		desc.Metadata["platform_version"] = info.PlatformVersion
	}
}

// identifierFor derives a stable identifier for a device. Preference order:
// the lowest numbered device node, then a hardware UUID reported by the
// vendor tool, then a fixed fallback for hosts where presence was proven
// without either handle.
func identifierFor(attrs *models.RawAttributes) string {
	best := ""
	bestIndex := 0

	for _, p := range attrs.DevicePaths {
		name := filepath.Base(p)

		m := numberedNodeRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		if best == "" || idx < bestIndex {
			best = name
			bestIndex = idx
		}
	}

	if best != "" {
		return "gpu-" + best
	}

	if attrs.Extra != nil {
		if uuid := attrs.Extra["uuid"]; uuid != "" {
			return "gpu-" + strings.ToLower(uuid)
		}
	}

	return fallbackIdentifier
}
