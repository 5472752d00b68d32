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

// Package probe detects GPU hardware through the host surfaces visible to
// the agent container: container-runtime configuration, device nodes, and
// vendor tooling.
package probe

import (
	"context"
	"strings"
	"time"

	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/models"
)

const defaultHelperTimeout = 10 * time.Second

// Prober is a single detection strategy over one host surface.
type Prober interface {
	Name() string
	Detect(ctx context.Context) (*models.ProbeResult, error)
}

// Config controls where the probe strategies look on the host. All paths
// refer to locations inside the agent container, which is expected to have
// the relevant host directories mounted.
type Config struct {
	DevDir           string          `json:"dev_dir"`
	RuntimeConfigDir string          `json:"runtime_config_dir"`
	HostFilesDir     string          `json:"host_files_dir"`
	SMIPath          string          `json:"smi_path"`
	HelperTimeout    models.Duration `json:"helper_timeout"`
}

func (c *Config) Validate() error {
	if c.DevDir == "" {
		c.DevDir = "/dev"
	}

	if c.RuntimeConfigDir == "" {
		c.RuntimeConfigDir = "/etc/docker"
	}

	if c.HostFilesDir == "" {
		c.HostFilesDir = "/etc/nvidia-container-runtime/host-files-for-container.d"
	}

	if time.Duration(c.HelperTimeout) == 0 {
		c.HelperTimeout = models.Duration(defaultHelperTimeout)
	}

	return nil
}

// CompositeProber runs a fixed priority order of strategies. The first Found
// result decides presence; later Found results only fill descriptive fields
// the earlier one left empty. The composite is NotFound only when every
// strategy had full visibility and saw nothing.
type CompositeProber struct {
	probers []Prober
	log     logger.Logger
}

// New builds the default strategy order: vendor tooling first (richest
// attributes), then container-runtime wiring, then raw device nodes.
func New(cfg *Config, log logger.Logger) (*CompositeProber, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	probers := []Prober{
		NewSMIProber(cfg.SMIPath, time.Duration(cfg.HelperTimeout)),
		NewRuntimeProber(cfg.RuntimeConfigDir, cfg.HostFilesDir),
		NewDeviceNodeProber(cfg.DevDir),
	}

	return NewComposite(log, probers...), nil
}

// NewComposite wires an explicit strategy order, used directly by tests.
func NewComposite(log logger.Logger, probers ...Prober) *CompositeProber {
	return &CompositeProber{probers: probers, log: log}
}

func (*CompositeProber) Name() string { return "composite" }

func (c *CompositeProber) Detect(ctx context.Context) (*models.ProbeResult, error) {
	var found *models.ProbeResult

	var reasons []string

	for _, p := range c.probers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := p.Detect(ctx)
		if err != nil {
			c.log.Warn().Err(err).Str("prober", p.Name()).Msg("Probe strategy failed")

			reasons = append(reasons, p.Name()+": "+err.Error())

			continue
		}

		switch res.Outcome {
		case models.ProbeFound:
			c.log.Debug().Str("prober", p.Name()).Msg("GPU signal detected")

			if found == nil {
				found = res
			} else {
				mergeAttributes(found.Attributes, res.Attributes)
			}
		case models.ProbeInconclusive:
			c.log.Debug().Str("prober", p.Name()).Str("reason", res.Reason).Msg("Probe inconclusive")

			reasons = append(reasons, p.Name()+": "+res.Reason)
		case models.ProbeNotFound:
			c.log.Debug().Str("prober", p.Name()).Msg("No GPU signal")
		}
	}

	if found != nil {
		return found, nil
	}

	if len(reasons) > 0 {
		return &models.ProbeResult{
			Outcome: models.ProbeInconclusive,
			Source:  c.Name(),
			Reason:  strings.Join(reasons, "; "),
		}, nil
	}

	return &models.ProbeResult{Outcome: models.ProbeNotFound, Source: c.Name()}, nil
}

// mergeAttributes fills empty fields of dst from src and unions path lists.
// dst keeps whatever it already knows.
func mergeAttributes(dst, src *models.RawAttributes) {
	if dst == nil || src == nil {
		return
	}

	if dst.Vendor == "" {
		dst.Vendor = src.Vendor
	}

	if dst.Model == "" {
		dst.Model = src.Model
	}

	if dst.DriverVersion == "" {
		dst.DriverVersion = src.DriverVersion
	}

	dst.DevicePaths = unionOrdered(dst.DevicePaths, src.DevicePaths)
	dst.Libraries = unionOrdered(dst.Libraries, src.Libraries)

	for k, v := range src.Extra {
		if dst.Extra == nil {
			dst.Extra = make(map[string]string)
		}

		if _, exists := dst.Extra[k]; !exists {
			dst.Extra[k] = v
		}
	}
}

func unionOrdered(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}

	for _, s := range extra {
		if _, ok := seen[s]; !ok {
			base = append(base, s)
			seen[s] = struct{}{}
		}
	}

	return base
}
