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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/models"
)

var errMissingName = errors.New("name is required")

type testConfig struct {
	Name     string          `json:"name"`
	Interval models.Duration `json:"interval"`
	Debug    bool            `json:"debug"`
	Paths    []string        `json:"paths"`
	Nested   nestedConfig    `json:"nested"`
}

type nestedConfig struct {
	Endpoint string `json:"endpoint"`
}

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errMissingName
	}

	if c.Interval == 0 {
		c.Interval = models.Duration(90 * time.Second)
	}

	return nil
}

func writeTestFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateFromFile(t *testing.T) {
	path := writeTestFile(t, `{"name":"agent","interval":"30s","debug":true}`)

	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "agent", cfg.Name)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.Interval))
	assert.True(t, cfg.Debug)
}

func TestLoadAndValidateAppliesDefaults(t *testing.T) {
	path := writeTestFile(t, `{"name":"agent"}`)

	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, 90*time.Second, time.Duration(cfg.Interval))
}

func TestLoadAndValidateRejectsInvalid(t *testing.T) {
	path := writeTestFile(t, `{"debug":false}`)

	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), path, &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errMissingName)
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), "/nonexistent/config.json", &cfg)
	require.Error(t, err)
}

func TestLoadInvalidConfigSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "carrier-pigeon")

	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), "ignored.json", &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvLoaderFields(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("GPUSCOUT_NAME", "from-env")
	t.Setenv("GPUSCOUT_INTERVAL", "45s")
	t.Setenv("GPUSCOUT_DEBUG", "true")
	t.Setenv("GPUSCOUT_PATHS", "/dev,/proc")
	t.Setenv("GPUSCOUT_NESTED_ENDPOINT", "http://agent/api")

	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 45*time.Second, time.Duration(cfg.Interval))
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"/dev", "/proc"}, cfg.Paths)
	assert.Equal(t, "http://agent/api", cfg.Nested.Endpoint)
}

func TestEnvLoaderConfigJSONOverride(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("GPUSCOUT_CONFIG_JSON", `{"name":"whole-doc","interval":"15s"}`)
	t.Setenv("GPUSCOUT_NAME", "ignored")

	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "whole-doc", cfg.Name)
	assert.Equal(t, 15*time.Second, time.Duration(cfg.Interval))
}

func TestEnvLoaderRejectsNonPointer(t *testing.T) {
	loader := NewEnvConfigLoader(logger.NewTestLogger(), "GPUSCOUT_")

	var cfg testConfig

	err := loader.Load(context.Background(), "", cfg)
	require.ErrorIs(t, err, ErrDstMustBeNonNilPointer)

	s := "not a struct"
	err = loader.Load(context.Background(), "", &s)
	require.ErrorIs(t, err, ErrDstMustBePointerToStruct)
}
