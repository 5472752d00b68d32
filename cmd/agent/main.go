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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/carverauto/gpuscout/pkg/agent"
	"github.com/carverauto/gpuscout/pkg/config"
	"github.com/carverauto/gpuscout/pkg/lifecycle"
	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/version"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/gpuscout/agent.json", "Path to agent config file")
	flag.Parse()

	ctx := context.Background()

	var cfg agent.Config

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{
			Level:  "info",
			Output: "stdout",
		}
	}

	agentLogger, err := lifecycle.CreateComponentLogger("agent", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	agentLogger.Info().
		Str("version", version.GetFullVersion()).
		Msg("GPU discovery agent starting")

	svc, err := agent.New(&cfg, agentLogger)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	return lifecycle.RunService(ctx, svc, agentLogger)
}
