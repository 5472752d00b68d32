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

package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gpuscout/pkg/models"
)

func TestSMIProberParsesOutput(t *testing.T) {
	p := NewSMIProber("/usr/bin/nvidia-smi", time.Second)
	p.runCommand = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("Tesla T4, 535.129.03, 15360 MiB, 00000000:00:1E.0, GPU-5c8e9f3a\n"), nil
	}

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.ProbeFound, res.Outcome)

	assert.Equal(t, "NVIDIA", res.Attributes.Vendor)
	assert.Equal(t, "Tesla T4", res.Attributes.Model)
	assert.Equal(t, "535.129.03", res.Attributes.DriverVersion)
	assert.Equal(t, "15360 MiB", res.Attributes.Extra["memory_total"])
	assert.Equal(t, "00000000:00:1E.0", res.Attributes.Extra["pci_bus_id"])
	assert.Equal(t, "GPU-5c8e9f3a", res.Attributes.Extra["uuid"])
	assert.NotContains(t, res.Attributes.Extra, "gpu_count")
}

func TestSMIProberCountsMultipleDevices(t *testing.T) {
	p := NewSMIProber("/usr/bin/nvidia-smi", time.Second)
	p.runCommand = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("Tesla T4, 535.129.03, 15360 MiB, 00000000:00:1E.0, GPU-a\n" +
			"Tesla T4, 535.129.03, 15360 MiB, 00000000:00:1F.0, GPU-b\n"), nil
	}

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.ProbeFound, res.Outcome)

	assert.Equal(t, "GPU-a", res.Attributes.Extra["uuid"])
	assert.Equal(t, "2", res.Attributes.Extra["gpu_count"])
}

func TestSMIProberEmptyOutputIsNotFound(t *testing.T) {
	p := NewSMIProber("/usr/bin/nvidia-smi", time.Second)
	p.runCommand = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("\n"), nil
	}

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ProbeNotFound, res.Outcome)
}

func TestSMIProberTimeoutIsInconclusive(t *testing.T) {
	p := NewSMIProber("/usr/bin/nvidia-smi", 10*time.Millisecond)
	p.runCommand = func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ProbeInconclusive, res.Outcome)
	assert.Contains(t, res.Reason, "timed out")
}

func TestSMIProberMissingBinaryIsNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	p := NewSMIProber("", time.Second)

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ProbeNotFound, res.Outcome)
}
