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
	"encoding/csv"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/carverauto/gpuscout/pkg/models"
)

const nvidiaRuntimeName = "nvidia"

// RuntimeProber checks whether the host container runtime is wired for GPU
// workloads: a configured nvidia runtime in the runtime daemon config, plus
// the host-files CSV manifests that list the device nodes and driver
// libraries the runtime injects into containers.
type RuntimeProber struct {
	runtimeConfigDir string
	hostFilesDir     string
}

func NewRuntimeProber(runtimeConfigDir, hostFilesDir string) *RuntimeProber {
	return &RuntimeProber{
		runtimeConfigDir: runtimeConfigDir,
		hostFilesDir:     hostFilesDir,
	}
}

func (*RuntimeProber) Name() string { return "runtime" }

func (p *RuntimeProber) Detect(_ context.Context) (*models.ProbeResult, error) {
	daemonPath := filepath.Join(p.runtimeConfigDir, "daemon.json")

	data, err := os.ReadFile(daemonPath)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No daemon config visible: either the host runs no container
		// runtime or the config directory is not mounted. Both cases
		// leave this surface blind, not empty.
		return &models.ProbeResult{
			Outcome: models.ProbeInconclusive,
			Source:  p.Name(),
			Reason:  "runtime daemon config not visible at " + daemonPath,
		}, nil
	case err != nil:
		return &models.ProbeResult{
			Outcome: models.ProbeInconclusive,
			Source:  p.Name(),
			Reason:  "cannot read runtime daemon config: " + err.Error(),
		}, nil
	}

	var daemonCfg struct {
		Runtimes map[string]json.RawMessage `json:"runtimes"`
	}

	if err := json.Unmarshal(data, &daemonCfg); err != nil {
		return &models.ProbeResult{
			Outcome: models.ProbeInconclusive,
			Source:  p.Name(),
			Reason:  "malformed runtime daemon config: " + err.Error(),
		}, nil
	}

	if _, ok := daemonCfg.Runtimes[nvidiaRuntimeName]; !ok {
		// The daemon config is fully visible and carries no nvidia
		// runtime entry; this surface definitively saw nothing.
		return &models.ProbeResult{Outcome: models.ProbeNotFound, Source: p.Name()}, nil
	}

	attrs := &models.RawAttributes{
		Vendor: "NVIDIA",
		Extra:  map[string]string{"runtime": nvidiaRuntimeName},
	}

	devices, libraries := p.readHostFiles()
	attrs.DevicePaths = devices
	attrs.Libraries = libraries

	for _, lib := range libraries {
		if strings.Contains(lib, "libcuda") {
			attrs.Extra["cuda"] = "true"
			break
		}
	}

	return &models.ProbeResult{
		Outcome:    models.ProbeFound,
		Source:     p.Name(),
		Attributes: attrs,
	}, nil
}

// readHostFiles parses the host-files-for-container CSV manifests. Rows look
// like "dev,/dev/nvidia0" or "lib,/usr/lib/x86_64-linux-gnu/libcuda.so".
// Unreadable or malformed rows are skipped; the runtime entry alone already
// confirmed presence.
func (p *RuntimeProber) readHostFiles() (devices, libraries []string) {
	entries, err := os.ReadDir(p.hostFilesDir)
	if err != nil {
		return nil, nil
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		f, err := os.Open(filepath.Join(p.hostFilesDir, entry.Name()))
		if err != nil {
			continue
		}

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()

		_ = f.Close()

		if err != nil {
			continue
		}

		for _, record := range records {
			if len(record) < 2 {
				continue
			}

			value := strings.TrimSpace(record[1])

			switch record[0] {
			case "dev":
				devices = append(devices, value)
			case "lib":
				libraries = append(libraries, value)
			}
		}
	}

	return devices, libraries
}
