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

package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gpuscout/pkg/logger"
)

var errBoom = errors.New("boom")

type stubService struct {
	startErr error
	stopped  bool
}

func (s *stubService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}

	<-ctx.Done()

	return ctx.Err()
}

func (s *stubService) Stop(_ context.Context) error {
	s.stopped = true
	return nil
}

func TestRunServicePropagatesStartFailure(t *testing.T) {
	svc := &stubService{startErr: errBoom}

	err := RunService(context.Background(), svc, logger.NewTestLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, svc.stopped)
}

func TestRunServiceStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &stubService{}

	done := make(chan error, 1)

	go func() {
		done <- RunService(ctx, svc, logger.NewTestLogger())
	}()

	cancel()

	err := <-done
	require.NoError(t, err)
	assert.True(t, svc.stopped)
}

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger("agent", &logger.Config{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, log)

	_, err = CreateComponentLogger("agent", &logger.Config{Level: "nonsense"})
	require.Error(t, err)
}
