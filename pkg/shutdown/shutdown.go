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

// Package shutdown implements the global termination coordinator: a
// single SIGINT/SIGTERM subscription (guarded against duplicate
// registration by the config's reloader flag) that deterministically tears
// down every tracked simulation runner and graph-memory updater.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Terminator is anything the coordinator must tear down on shutdown. Both
// *runner.Runner (via ShutdownAll) and *memory.Manager (via StopAll) satisfy
// this with a thin adapter, keeping this package free of a dependency on
// either.
type Terminator interface {
	Shutdown(ctx context.Context)
}

// funcTerminator adapts a plain func(context.Context) to Terminator.
type funcTerminator func(ctx context.Context)

func (f funcTerminator) Shutdown(ctx context.Context) { f(ctx) }

// Func wraps a shutdown callback as a Terminator.
func Func(f func(ctx context.Context)) Terminator { return funcTerminator(f) }

// Coordinator subscribes to SIGINT/SIGTERM exactly once and exposes a
// blocking Shutdown that tears down every registered Terminator
// deterministically, in registration order. Shutdown is idempotent.
type Coordinator struct {
	mu          sync.Mutex
	terminators []Terminator

	registerOnce sync.Once
	shutdownOnce sync.Once
	done         chan struct{}
}

// New creates a Coordinator.
func New() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Register adds a Terminator to the teardown list. Safe to call before or
// after Listen.
func (c *Coordinator) Register(t Terminator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminators = append(c.terminators, t)
}

// Listen subscribes to SIGINT/SIGTERM and runs Shutdown on receipt. It is a
// no-op if reloaderChild is false and this process is the development
// reloader's parent supervisor rather than the child that owns the spawned
// simulations.
func (c *Coordinator) Listen(reloaderChild bool) {
	if !reloaderChild {
		return
	}
	c.registerOnce.Do(func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("shutdown signal received", "signal", sig)
			c.Shutdown(context.Background())
		}()
	})
}

// Shutdown tears down every registered Terminator and returns once all have
// finished. Safe to call multiple times or concurrently; subsequent calls
// block until the first completes.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.shutdownOnce.Do(func() {
		defer close(c.done)
		c.mu.Lock()
		terminators := append([]Terminator(nil), c.terminators...)
		c.mu.Unlock()

		for _, t := range terminators {
			t.Shutdown(ctx)
		}
	})
	<-c.done
}
