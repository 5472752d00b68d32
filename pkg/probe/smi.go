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
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/gpuscout/pkg/models"
)

const (
	smiBinary = "nvidia-smi"
	smiQuery  = "--query-gpu=name,driver_version,memory.total,pci.bus_id,uuid"
	smiFormat = "--format=csv,noheader"
)

// SMIProber shells out to the vendor management tool for the richest set of
// attributes: model name, driver version, memory, bus address, device UUID.
// The call is time-bounded; a hung helper degrades to inconclusive.
type SMIProber struct {
	binary  string // empty means resolve via PATH
	timeout time.Duration

	// runCommand is swapped in tests to avoid spawning processes.
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewSMIProber(binary string, timeout time.Duration) *SMIProber {
	if timeout <= 0 {
		timeout = defaultHelperTimeout
	}

	return &SMIProber{
		binary:  binary,
		timeout: timeout,
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (*SMIProber) Name() string { return "smi" }

func (p *SMIProber) Detect(ctx context.Context) (*models.ProbeResult, error) {
	binary := p.binary
	if binary == "" {
		resolved, err := exec.LookPath(smiBinary)
		if err != nil {
			// Tool absent: nothing to learn from this surface, and no
			// reason to hold a previously reported record for it.
			return &models.ProbeResult{Outcome: models.ProbeNotFound, Source: p.Name()}, nil
		}

		binary = resolved
	}

	helperCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := p.runCommand(helperCtx, binary, smiQuery, smiFormat)

	if errors.Is(helperCtx.Err(), context.DeadlineExceeded) {
		return &models.ProbeResult{
			Outcome: models.ProbeInconclusive,
			Source:  p.Name(),
			Reason:  smiBinary + " timed out after " + p.timeout.String(),
		}, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool ran and reported no usable device.
			return &models.ProbeResult{Outcome: models.ProbeNotFound, Source: p.Name()}, nil
		}

		return &models.ProbeResult{
			Outcome: models.ProbeInconclusive,
			Source:  p.Name(),
			Reason:  smiBinary + " failed: " + err.Error(),
		}, nil
	}

	attrs, count := parseSMIOutput(string(output))
	if count == 0 {
		return &models.ProbeResult{Outcome: models.ProbeNotFound, Source: p.Name()}, nil
	}

	return &models.ProbeResult{
		Outcome:    models.ProbeFound,
		Source:     p.Name(),
		Attributes: attrs,
	}, nil
}

// parseSMIOutput reads the CSV query output. The first device populates the
// attributes; additional devices only bump the count, since the agent
// reports one GPU capability record per host.
func parseSMIOutput(output string) (*models.RawAttributes, int) {
	var attrs *models.RawAttributes

	count := 0

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		count++

		if attrs != nil {
			continue
		}

		attrs = &models.RawAttributes{
			Vendor: "NVIDIA",
			Extra:  make(map[string]string),
		}

		if len(fields) > 0 {
			attrs.Model = fields[0]
		}

		if len(fields) > 1 {
			attrs.DriverVersion = fields[1]
		}

		if len(fields) > 2 && fields[2] != "" {
			attrs.Extra["memory_total"] = fields[2]
		}

		if len(fields) > 3 && fields[3] != "" {
			attrs.Extra["pci_bus_id"] = fields[3]
		}

		if len(fields) > 4 && fields[4] != "" {
			attrs.Extra["uuid"] = fields[4]
		}
	}

	if attrs != nil && count > 1 {
		attrs.Extra["gpu_count"] = strconv.Itoa(count)
	}

	return attrs, count
}
