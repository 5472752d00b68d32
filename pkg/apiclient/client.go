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

// Package apiclient talks to the peripheral management API. All calls are
// classified for the reconciler: transient failures wrap ErrUnreachable,
// permanent refusals surface as RejectedError, and 404 on update or delete
// counts as success because the record is already in the desired state.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carverauto/gpuscout/pkg/logger"
	"github.com/carverauto/gpuscout/pkg/models"
)

const (
	defaultTimeout = 30 * time.Second

	peripheralsPath = "/peripherals"
	healthPath      = "/healthcheck"

	maxErrorBodyBytes = 4 << 10
)

// HTTPClient abstracts the HTTP transport so it can be wrapped or mocked.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the settings for the peripheral API client.
type Config struct {
	BaseURL   string          `json:"base_url"`
	AuthToken string          `json:"auth_token,omitempty"`
	Timeout   models.Duration `json:"timeout,omitempty"`
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errInvalidBaseURL
	}

	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("api: invalid base_url %q: %w", c.BaseURL, err)
	}

	if c.Timeout == 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	return nil
}

// Client is the HTTP implementation of the peripheral API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient HTTPClient
	logger     logger.Logger
}

// New creates a Client from config. The transport is wrapped in a circuit
// breaker so a dead API stops consuming the request timeout on every call.
func New(cfg *Config, log logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := &http.Client{Timeout: time.Duration(cfg.Timeout)}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authToken:  cfg.AuthToken,
		httpClient: NewCircuitBreakerHTTPClient(transport, "peripheral-api", DefaultCircuitBreakerConfig(), log),
		logger:     log,
	}, nil
}

// NewWithClient creates a Client with a caller-supplied transport. Used by
// tests and by callers that manage their own wrapping.
func NewWithClient(cfg *Config, httpClient HTTPClient, log logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authToken:  cfg.AuthToken,
		httpClient: httpClient,
		logger:     log,
	}, nil
}

// Health reports whether the API is ready to accept requests.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: healthcheck returned %d", ErrUnreachable, resp.StatusCode)
	}

	return nil
}

// List returns the GPU peripheral records the API currently holds for this
// agent's host. A 404 means the collection does not exist yet and is treated
// as an empty result.
func (c *Client) List(ctx context.Context) ([]*models.PeripheralDescriptor, error) {
	resp, err := c.do(ctx, http.MethodGet, peripheralsPath+"?classification="+models.ClassificationGPU, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if err := c.classify(resp); err != nil {
		return nil, err
	}

	var records []*models.PeripheralDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("api: decoding peripheral list: %w", err)
	}

	return records, nil
}

// Create registers a new peripheral record.
func (c *Client) Create(ctx context.Context, desc *models.PeripheralDescriptor) error {
	resp, err := c.do(ctx, http.MethodPost, peripheralsPath, desc)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	return c.classify(resp)
}

// Update replaces an existing peripheral record. A 404 means the record is
// already gone on the server side; the caller's intent to overwrite it has
// no target, so the call succeeds and the next cycle re-creates the record.
func (c *Client) Update(ctx context.Context, desc *models.PeripheralDescriptor) error {
	resp, err := c.do(ctx, http.MethodPut, peripheralsPath+"/"+url.PathEscape(desc.Identifier), desc)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug().
			Str("identifier", desc.Identifier).
			Msg("Update target already absent on server")

		return nil
	}

	return c.classify(resp)
}

// Delete removes a peripheral record. A 404 means the record is already in
// the desired state and counts as success.
func (c *Client) Delete(ctx context.Context, identifier string) error {
	resp, err := c.do(ctx, http.MethodDelete, peripheralsPath+"/"+url.PathEscape(identifier), nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug().
			Str("identifier", identifier).
			Msg("Delete target already absent on server")

		return nil
	}

	return c.classify(resp)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encoding request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("api: building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if IsRetryable(err) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %s %s: %s", ErrUnreachable, method, path, err)
	}

	return resp, nil
}

// classify maps a response status to the error contract: 2xx is success,
// 5xx wraps ErrUnreachable, the remaining 4xx become RejectedError.
func (c *Client) classify(resp *http.Response) error {
	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	default:
		return &RejectedError{
			StatusCode: resp.StatusCode,
			Reason:     readErrorBody(resp.Body),
		}
	}
}

func readErrorBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(raw))
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = resp.Body.Close()
}
