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

package descriptor

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/models"
)

func newTestBuilder(hostID string) *Builder {
	b := NewBuilder(hostID, logger.NewTestLogger())
	b.hostInfo = func(_ context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{
			Hostname:        "edge-node-7",
			KernelArch:      "x86_64",
			OS:              "linux",
			PlatformVersion: "22.04",
		}, nil
	}

	return b
}

func foundResult(attrs *models.RawAttributes) *models.ProbeResult {
	return &models.ProbeResult{
		Outcome:    models.ProbeFound,
		Source:     "device-node",
		Attributes: attrs,
	}
}

func TestBuildFromDeviceNodes(t *testing.T) {
	b := newTestBuilder("host-a")

	desc, ok := b.Build(context.Background(), foundResult(&models.RawAttributes{
		Vendor:      "NVIDIA",
		DevicePaths: []string{"/dev/nvidia0", "/dev/nvidia1", "/dev/nvidiactl"},
	}), 4)
	require.True(t, ok)

	assert.Equal(t, "gpu-nvidia0", desc.Identifier)
	assert.Equal(t, models.ClassificationGPU, desc.Classification)
	assert.Equal(t, "NVIDIA", desc.Vendor)
	assert.Equal(t, []string{"/dev/nvidia0", "/dev/nvidia1", "/dev/nvidiactl"}, desc.ResourcePaths)
	assert.True(t, desc.Available)
	assert.Equal(t, uint64(4), desc.LastSeenCycle)
	assert.Equal(t, "host-a", desc.HostID)
	assert.Equal(t, "x86_64", desc.Metadata["kernel_arch"])
	assert.Equal(t, "linux", desc.Metadata["os"])
	assert.Equal(t, "device-node", desc.Metadata["probe_source"])
}

func TestBuildIdentifierIsDeterministic(t *testing.T) {
	b := newTestBuilder("host-a")

	attrs := &models.RawAttributes{DevicePaths: []string{"/dev/nvidia1", "/dev/nvidia0"}}

	first, ok := b.Build(context.Background(), foundResult(attrs), 1)
	require.True(t, ok)

	second, ok := b.Build(context.Background(), foundResult(attrs), 9)
	require.True(t, ok)

	assert.Equal(t, first.Identifier, second.Identifier)
	assert.Equal(t, "gpu-nvidia0", first.Identifier)
}

func TestBuildIdentifierFallsBackToUUID(t *testing.T) {
	b := newTestBuilder("host-a")

	desc, ok := b.Build(context.Background(), foundResult(&models.RawAttributes{
		Model: "Tesla T4",
		Extra: map[string]string{"uuid": "GPU-5C8E9F3A"},
	}), 1)
	require.True(t, ok)

	assert.Equal(t, "gpu-gpu-5c8e9f3a", desc.Identifier)
}

func TestBuildIdentifierFixedFallback(t *testing.T) {
	b := newTestBuilder("host-a")

	desc, ok := b.Build(context.Background(), foundResult(&models.RawAttributes{
		Extra: map[string]string{"runtime": "nvidia"},
	}), 1)
	require.True(t, ok)

	assert.Equal(t, "gpu-0", desc.Identifier)
}

func TestBuildRejectsNonFoundResults(t *testing.T) {
	b := newTestBuilder("host-a")

	for _, outcome := range []models.ProbeOutcome{models.ProbeNotFound, models.ProbeInconclusive} {
		_, ok := b.Build(context.Background(), &models.ProbeResult{Outcome: outcome}, 1)
		assert.False(t, ok, "outcome %s must not produce a record", outcome)
	}

	_, ok := b.Build(context.Background(), nil, 1)
	assert.False(t, ok)
}

func TestBuildDegradesWithoutHostInfo(t *testing.T) {
	b := NewBuilder("", logger.NewTestLogger())
	b.hostInfo = func(_ context.Context) (*host.InfoStat, error) {
		return nil, errors.New("proc not mounted")
	}

	desc, ok := b.Build(context.Background(), foundResult(&models.RawAttributes{
		DevicePaths: []string{"/dev/nvidia0"},
	}), 1)
	require.True(t, ok)

	assert.Empty(t, desc.HostID)
	assert.NotContains(t, desc.Metadata, "kernel_arch")
	assert.Equal(t, "gpu-nvidia0", desc.Identifier)
}

func TestBuildFillsHostIDFromHost(t *testing.T) {
	b := newTestBuilder("")

	desc, ok := b.Build(context.Background(), foundResult(&models.RawAttributes{
		DevicePaths: []string{"/dev/nvidia0"},
	}), 1)
	require.True(t, ok)

	assert.Equal(t, "edge-node-7", desc.HostID)
}

func TestBuildDefaultsVendorAndCopiesExtra(t *testing.T) {
	b := newTestBuilder("host-a")

	desc, ok := b.Build(context.Background(), foundResult(&models.RawAttributes{
		DevicePaths: []string{"/dev/nvidia0"},
		Libraries:   []string{"/usr/lib/libcuda.so", "/usr/lib/libnvidia-ml.so"},
		Extra:       map[string]string{"cuda": "true"},
	}), 1)
	require.True(t, ok)

	assert.Equal(t, "NVIDIA", desc.Vendor)
	assert.Equal(t, "true", desc.Metadata["cuda"])
	assert.Equal(t, "/usr/lib/libcuda.so,/usr/lib/libnvidia-ml.so", desc.Metadata["libraries"])
}
