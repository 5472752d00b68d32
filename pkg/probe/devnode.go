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
	"regexp"
	"sort"

	"github.com/carverauto/gpuscout/pkg/models"
)

// numberedDeviceRe matches the per-GPU device nodes the kernel module
// creates, e.g. nvidia0, nvidia1.
var numberedDeviceRe = regexp.MustCompile(`^nvidia\d+$`)

// controlNodes are supporting device nodes included in the resource list
// when present; they do not by themselves prove a GPU exists.
var controlNodes = []string{"nvidiactl", "nvidia-uvm", "nvidia-uvm-tools", "nvidia-modeset"}

// DeviceNodeProber scans the device directory for GPU device nodes.
type DeviceNodeProber struct {
	devDir string
}

func NewDeviceNodeProber(devDir string) *DeviceNodeProber {
	return &DeviceNodeProber{devDir: devDir}
}

func (*DeviceNodeProber) Name() string { return "devnode" }

func (p *DeviceNodeProber) Detect(_ context.Context) (*models.ProbeResult, error) {
	entries, err := os.ReadDir(p.devDir)
	if err != nil {
		// A device directory we cannot read does not mean no GPU; the
		// container may simply lack the mount or the privilege.
		return &models.ProbeResult{
			Outcome: models.ProbeInconclusive,
			Source:  p.Name(),
			Reason:  "cannot read device directory: " + err.Error(),
		}, nil
	}

	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = struct{}{}
	}

	var numbered []string

	for name := range present {
		if numberedDeviceRe.MatchString(name) {
			numbered = append(numbered, filepath.Join(p.devDir, name))
		}
	}

	if len(numbered) == 0 {
		return &models.ProbeResult{Outcome: models.ProbeNotFound, Source: p.Name()}, nil
	}

	sort.Strings(numbered)

	paths := numbered

	for _, name := range controlNodes {
		if _, ok := present[name]; ok {
			paths = append(paths, filepath.Join(p.devDir, name))
		}
	}

	return &models.ProbeResult{
		Outcome: models.ProbeFound,
		Source:  p.Name(),
		Attributes: &models.RawAttributes{
			Vendor:      "NVIDIA",
			DevicePaths: paths,
		},
	}, nil
}
