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

// Package cor (Chain of Responsibility) is the workflow substrate the
// analysis pipeline's stages are built from. A workflow is a Chain of
// Commands sharing one Context; the chain pipes each command's primary
// output into the next command's primary input and stops at the first
// recorded error unless told otherwise.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default context key a command reads its primary input
	// from. The chain populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default context key a command writes its primary output
	// to. The chain moves it to CtxIn before the next command runs.
	CtxOut = "__OUT__"
)

// Context is the shared state bag for one workflow execution. It carries
// arbitrary keyed data, the errors commands have recorded (keyed by
// command name), the temp files the workflow owes cleanup for, and the
// request-scoped Go context.
type Context interface {
	// SetContext installs the Go context used for cancellation and trace
	// propagation. The chain swaps it per command to nest spans correctly.
	SetContext(context context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get returns the value under key, or nil.
	Get(key string) interface{}

	// Remove deletes the value under key.
	Remove(key string)

	// AddError records a command failure. The key is the command's name.
	AddError(key string, err error)

	// GetErrors returns every recorded failure, keyed by command name.
	GetErrors() map[string]error

	// HasErrors reports whether any command has failed.
	HasErrors() bool

	// AddTempFile registers a file for removal when the workflow closes.
	AddTempFile(file string)

	// GetTempFiles returns the registered temp file paths.
	GetTempFiles() []string

	// Close removes registered temp files. Defer it where the workflow is
	// created.
	Close()
}

// Executable is anything with a single unit of execution logic driven by a
// shared Context.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, reusable, thread-safe unit of work. Commands read
// their input from the context, do one thing, and write their output back.
type Command interface {
	Executable

	// GetName identifies the command in logs, spans, and error maps.
	GetName() string

	// GetInputParam is the context key the command reads its input from.
	GetInputParam() string

	// GetOutputParam is the context key the command writes its output to.
	GetOutputParam() string

	// IsExecutable is the precondition check the chain runs before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command,
// so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure controls whether the chain keeps executing after a
	// command records an error. Default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
