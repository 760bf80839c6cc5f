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

package runner

import (
	"context"
	"syscall"
	"time"

	"github.com/kadirpekel/socialsim/pkg/simulation"
)

const (
	stopGraceWindow = 10 * time.Second
	stopKillWait    = 5 * time.Second
)

// Stop terminates the simulation's whole process group: SIGTERM first,
// SIGKILL after 10s if still alive, wait up to 5s more, then persist
// "stopped". Any error resolving the group falls back to per-process
// termination.
func (r *Runner) Stop(ctx context.Context, simID string) error {
	r.mu.Lock()
	rc := r.children[simID]
	r.mu.Unlock()
	if rc == nil {
		return nil // nothing tracked; idempotent no-op
	}

	rc.mu.Lock()
	rc.stopRequested = true
	rc.state.RunnerStatus = RunnerStopping
	_ = r.persist(simID, rc.state)
	rc.mu.Unlock()

	pgid := rc.pgid
	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		_ = rc.cmd.Process.Signal(syscall.SIGTERM)
	}

	if waitForExit(rc.done, stopGraceWindow) {
		return r.markStopped(simID, rc)
	}

	if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
		_ = rc.cmd.Process.Kill()
	}
	waitForExit(rc.done, stopKillWait)

	return r.markStopped(simID, rc)
}

func waitForExit(done <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (r *Runner) markStopped(simID string, rc *running) error {
	rc.mu.Lock()
	rc.state.RunnerStatus = RunnerStopped
	state := *rc.state
	rc.mu.Unlock()

	if err := r.persist(simID, &state); err != nil {
		return err
	}
	if sim, err := r.simulations.Get(simID); err == nil && sim.Status != simulation.StatusStopped {
		_ = r.simulations.Transition(sim, simulation.StatusStopped)
	}
	if rc.cancelTail != nil {
		rc.cancelTail()
	}
	if r.memories != nil {
		r.memories.Stop(simID)
	}
	return nil
}

// ShutdownAll is the global teardown path: it iterates
// every tracked child, does a bounded graceful-then-forceful termination,
// and updates each affected simulation's persisted status. It is idempotent
// and safe to call with no tracked children.
func (r *Runner) ShutdownAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.children))
	for id := range r.children {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Stop(ctx, id)
	}

	if r.memories != nil {
		r.memories.StopAll()
	}
}
