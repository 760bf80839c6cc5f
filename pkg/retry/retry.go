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

// Package retry provides CallWithRetry, the single helper every upstream
// call site (LLM, graph backend) is wrapped in: exponential backoff with
// jitter, stopping early on non-transient errors.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/kadirpekel/socialsim/pkg/orcherrors"
)

// Options configures CallWithRetry. The zero value is not usable; use
// DefaultOptions as a base.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	Backoff      float64
	MaxDelay     time.Duration
}

// DefaultOptions is the shared upstream-call policy (max_retries=3,
// initial_delay=2s, backoff=2x).
func DefaultOptions() Options {
	return Options{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		Backoff:      2.0,
		MaxDelay:     60 * time.Second,
	}
}

// retryable is implemented by errors that know their own retry eligibility.
type retryable interface {
	Retryable() bool
}

func shouldRetry(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return orcherrors.IsRetryable(err)
}

// CallWithRetry invokes fn, retrying on transient failures with exponential
// backoff and jitter. fn receives the 0-based attempt number so callers can
// vary behavior across attempts (e.g. lowering LLM
// temperature on retry). name is used only for logging.
//
// Retries stop as soon as fn returns an error that is not classified
// orcherrors.Transient (or does not implement Retryable() bool returning
// true); validation, not-found, and conflict errors propagate on the first
// attempt.
func CallWithRetry[T any](ctx context.Context, name string, opts Options, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	delay := opts.InitialDelay

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}
		if attempt == opts.MaxRetries {
			break
		}

		wait := delay
		jitter := time.Duration(rand.Float64() * float64(wait) * 0.1)
		wait = min(wait+jitter, opts.MaxDelay)

		slog.Warn("retrying after transient failure",
			"op", name, "attempt", attempt+1, "max", opts.MaxRetries, "delay", wait, "error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(math.Min(float64(delay)*opts.Backoff, float64(opts.MaxDelay)))
	}

	return zero, fmt.Errorf("%s: exhausted %d retries: %w", name, opts.MaxRetries, lastErr)
}
