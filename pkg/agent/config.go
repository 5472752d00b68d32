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

package agent

import (
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/gpuscout/pkg/apiclient"
	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/models"
	"github.com/carverauto/gpuscout/pkg/probe"
	"github.com/carverauto/gpuscout/pkg/reconciler"
)

const (
	defaultPollInterval     = 90 * time.Second
	defaultBootstrapRetries = 30
	defaultBootstrapDelay   = 5 * time.Second
)

// Config is the agent's full configuration.
type Config struct {
	// AgentID identifies this host in reported records. Defaults to the
	// hostname, or a generated UUID when the hostname is unavailable.
	AgentID string `json:"agent_id,omitempty"`
	// PollInterval is how often a discovery cycle runs.
	PollInterval models.Duration `json:"poll_interval,omitempty"`
	// BootstrapRetries bounds the startup wait for the API to become healthy.
	BootstrapRetries int `json:"bootstrap_retries,omitempty"`
	// BootstrapDelay is the pause between startup health attempts.
	BootstrapDelay models.Duration `json:"bootstrap_delay,omitempty"`

	API       apiclient.Config  `json:"api"`
	Probe     probe.Config      `json:"probe,omitempty"`
	Reconcile reconciler.Config `json:"reconcile,omitempty"`
	Logging   *logger.Config    `json:"logging,omitempty"`
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.AgentID == "" {
		if hostname, err := os.Hostname(); err == nil && hostname != "" {
			c.AgentID = hostname
		} else {
			c.AgentID = uuid.New().String()
		}
	}

	if c.PollInterval == 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.BootstrapRetries == 0 {
		c.BootstrapRetries = defaultBootstrapRetries
	}

	if c.BootstrapDelay == 0 {
		c.BootstrapDelay = models.Duration(defaultBootstrapDelay)
	}

	if err := c.API.Validate(); err != nil {
		return err
	}

	if err := c.Probe.Validate(); err != nil {
		return err
	}

	return c.Reconcile.Validate()
}
