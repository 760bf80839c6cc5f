// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orcherrors is the orchestrator's typed error vocabulary. Every
// component surfaces failures through an *Error so callers can classify and
// render them without string matching.
package orcherrors

import "fmt"

// Kind classifies an error for the purposes of retry and HTTP-class mapping
// by a caller (the HTTP layer itself lives in the embedding application).
type Kind int

const (
	// Validation covers a missing required field, unknown platform, or a
	// forbidden type. Never retried.
	Validation Kind = iota
	// NotFound covers an unknown project, simulation, report, or task.
	// Never retried.
	NotFound
	// Conflict covers starting a simulation that is already running
	// without force, or updating a task already in a terminal state.
	Conflict
	// Transient covers LLM failures, graph backend unavailability, and
	// truncated JSON. Retried with backoff by pkg/retry.
	Transient
	// Fatal covers missing configuration or credentials. The owning task
	// fails outright.
	Fatal
	// ChildProcess covers a non-zero subprocess exit.
	ChildProcess
	// IPCTimeout covers an IPC round trip that exceeded its deadline.
	IPCTimeout
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	case ChildProcess:
		return "child_process"
	case IPCTimeout:
		return "ipc_timeout"
	default:
		return "unknown"
	}
}

// Error is the orchestrator's structured error type.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is eligible for pkg/retry handling.
func (e *Error) Retryable() bool {
	return e.Kind == Transient
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validationf builds a Validation error.
func Validationf(op, format string, args ...any) *Error { return newf(Validation, op, format, args...) }

// NotFoundf builds a NotFound error.
func NotFoundf(op, format string, args ...any) *Error { return newf(NotFound, op, format, args...) }

// Conflictf builds a Conflict error.
func Conflictf(op, format string, args ...any) *Error { return newf(Conflict, op, format, args...) }

// Transientf builds a Transient error wrapping the upstream cause.
func Transientf(op string, err error, format string, args ...any) *Error {
	return wrapf(Transient, op, err, format, args...)
}

// Fatalf builds a Fatal error.
func Fatalf(op string, err error, format string, args ...any) *Error {
	return wrapf(Fatal, op, err, format, args...)
}

// ChildProcessf builds a ChildProcess error, typically carrying the tail of
// simulation.log as Message.
func ChildProcessf(op, format string, args ...any) *Error {
	return newf(ChildProcess, op, format, args...)
}

// IPCTimeoutf builds an IPCTimeout error.
func IPCTimeoutf(op, format string, args ...any) *Error {
	return newf(IPCTimeout, op, format, args...)
}

// KindOf walks the error chain looking for an *Error and returns its Kind.
// An error with no *Error in its chain is treated as Fatal, since it did not
// go through the orchestrator's own classification.
func KindOf(err error) Kind {
	var oe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			oe = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if oe == nil {
		return Fatal
	}
	return oe.Kind
}

// IsRetryable reports whether err should be retried by pkg/retry.
func IsRetryable(err error) bool {
	return KindOf(err) == Transient
}
