// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"errors"
	"fmt"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
)

// retryableError marks an error as transient. Stage implementations wrap
// collaborator failures (model timeouts, storage hiccups) with Retryable;
// everything unmarked is treated as terminal.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// Retryable marks err as safe to retry. Returns nil for a nil error.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable anywhere in
// its chain. A structural AssemblyError is never retryable, even when a
// careless caller wrapped it: retrying cannot fix a malformed payload.
func IsRetryable(err error) bool {
	var assemblyErr *assembler.AssemblyError
	if errors.As(err, &assemblyErr) {
		return false
	}
	var marked *retryableError
	return errors.As(err, &marked)
}

// StageError reports the stage a run failed at together with the
// underlying cause.
type StageError struct {
	RunId string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("run %s failed at stage %s: %v", e.RunId, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
