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

package apiclient

import (
	"errors"
	"fmt"
)

// ErrUnreachable marks failures worth retrying: transport errors, timeouts
// and server-side (5xx) responses. Everything else from the API is final
// for the current cycle.
var ErrUnreachable = errors.New("peripheral API unreachable")

var errInvalidBaseURL = errors.New("api: base_url is required")

// RejectedError is returned when the API refused a request with a 4xx
// status. Retrying the same payload will not help.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("peripheral API rejected request: status %d", e.StatusCode)
	}

	return fmt.Sprintf("peripheral API rejected request: status %d: %s", e.StatusCode, e.Reason)
}

// IsRetryable reports whether the error indicates a transient condition.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
