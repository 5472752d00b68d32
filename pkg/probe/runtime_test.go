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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gpuscout/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestRuntimeProberFindsNvidiaRuntime(t *testing.T) {
	runtimeDir := t.TempDir()
	hostFilesDir := t.TempDir()

	writeFile(t, runtimeDir, "daemon.json",
		`{"runtimes":{"nvidia":{"path":"nvidia-container-runtime","runtimeArgs":[]}}}`)
	writeFile(t, hostFilesDir, "driver.csv",
		"dev, /dev/nvidia0\ndev, /dev/nvidiactl\nlib, /usr/lib/x86_64-linux-gnu/libcuda.so\nsym, /usr/bin/nvidia-smi\n")

	p := NewRuntimeProber(runtimeDir, hostFilesDir)

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.ProbeFound, res.Outcome)

	assert.Equal(t, "NVIDIA", res.Attributes.Vendor)
	assert.Equal(t, []string{"/dev/nvidia0", "/dev/nvidiactl"}, res.Attributes.DevicePaths)
	assert.Equal(t, []string{"/usr/lib/x86_64-linux-gnu/libcuda.so"}, res.Attributes.Libraries)
	assert.Equal(t, "nvidia", res.Attributes.Extra["runtime"])
	assert.Equal(t, "true", res.Attributes.Extra["cuda"])
}

func TestRuntimeProberFoundWithoutHostFiles(t *testing.T) {
	runtimeDir := t.TempDir()

	writeFile(t, runtimeDir, "daemon.json", `{"runtimes":{"nvidia":{}}}`)

	p := NewRuntimeProber(runtimeDir, filepath.Join(t.TempDir(), "missing"))

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.ProbeFound, res.Outcome)

	assert.Empty(t, res.Attributes.DevicePaths)
	assert.Empty(t, res.Attributes.Libraries)
}

func TestRuntimeProberNoNvidiaRuntimeIsNotFound(t *testing.T) {
	runtimeDir := t.TempDir()

	writeFile(t, runtimeDir, "daemon.json", `{"runtimes":{"kata":{}}}`)

	p := NewRuntimeProber(runtimeDir, t.TempDir())

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ProbeNotFound, res.Outcome)
}

func TestRuntimeProberNoRuntimesKeyIsNotFound(t *testing.T) {
	runtimeDir := t.TempDir()

	writeFile(t, runtimeDir, "daemon.json", `{"log-driver":"json-file"}`)

	p := NewRuntimeProber(runtimeDir, t.TempDir())

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ProbeNotFound, res.Outcome)
}

func TestRuntimeProberMissingDaemonConfigIsInconclusive(t *testing.T) {
	p := NewRuntimeProber(filepath.Join(t.TempDir(), "missing"), t.TempDir())

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ProbeInconclusive, res.Outcome)
	assert.Contains(t, res.Reason, "not visible")
}

func TestRuntimeProberMalformedDaemonConfigIsInconclusive(t *testing.T) {
	runtimeDir := t.TempDir()

	writeFile(t, runtimeDir, "daemon.json", `{not json`)

	p := NewRuntimeProber(runtimeDir, t.TempDir())

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ProbeInconclusive, res.Outcome)
}

func TestRuntimeProberSkipsMalformedCSVRows(t *testing.T) {
	runtimeDir := t.TempDir()
	hostFilesDir := t.TempDir()

	writeFile(t, runtimeDir, "daemon.json", `{"runtimes":{"nvidia":{}}}`)
	writeFile(t, hostFilesDir, "broken.csv", "justonefield\ndev, /dev/nvidia0\n")

	p := NewRuntimeProber(runtimeDir, hostFilesDir)

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.ProbeFound, res.Outcome)
	assert.Equal(t, []string{"/dev/nvidia0"}, res.Attributes.DevicePaths)
}
