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

// Package runner implements the simulation runner: subprocess lifecycle
// for the external per-platform simulation process, action-log tailing,
// and per-platform completion tracking.
package runner

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/kadirpekel/socialsim/pkg/memory"
	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/simulation"
	"github.com/kadirpekel/socialsim/pkg/store"
)

// RecentActionsBufferSize caps run_state.json's recent_actions ring
// buffer.
const RecentActionsBufferSize = 50

// Selector chooses which per-platform binary the wrapper script launches.
type Selector string

const (
	SelectorTwitter  Selector = "twitter"
	SelectorReddit   Selector = "reddit"
	SelectorParallel Selector = "parallel"
)

// RunnerStatus is run_state.json's own status field, distinct from (but
// kept consistent with) Simulation.Status.
type RunnerStatus string

const (
	RunnerStarting RunnerStatus = "starting"
	RunnerRunning  RunnerStatus = "running"
	RunnerStopping RunnerStatus = "stopping"
	RunnerStopped  RunnerStatus = "stopped"
	RunnerComplete RunnerStatus = "completed"
	RunnerFailed   RunnerStatus = "failed"
)

// AgentAction is one actions.jsonl record with an agent_id.
type AgentAction struct {
	Round      int            `json:"round"`
	Timestamp  time.Time      `json:"timestamp"`
	Platform   string         `json:"platform"`
	AgentID    int            `json:"agent_id"`
	AgentName  string         `json:"agent_name"`
	ActionType string         `json:"action_type"`
	ActionArgs map[string]any `json:"action_args"`
	Result     any            `json:"result,omitempty"`
	Success    *bool          `json:"success,omitempty"`
}

// platformEvent is the event_type shape of actions.jsonl records without an
// agent_id (round_end / simulation_end).
type platformEvent struct {
	EventType      string  `json:"event_type"`
	CurrentRound   int     `json:"current_round"`
	SimulatedHours float64 `json:"simulated_hours"`
}

// rawLine is parsed first to decide whether a jsonl line is an AgentAction
// or a platformEvent: no event_type field plus a present agent_id means
// an AgentAction.
type rawLine struct {
	EventType string `json:"event_type"`
	AgentID   *int   `json:"agent_id"`
}

// PlatformRunState is one platform's slice of RunState.
type PlatformRunState struct {
	CurrentRound   int     `json:"current_round"`
	SimulatedHours float64 `json:"simulated_hours"`
	Running        bool    `json:"running"`
	Completed      bool    `json:"completed"`
	ActionCount    int     `json:"action_count"`
}

// RunState is the run_state.json snapshot.
type RunState struct {
	RunnerStatus   RunnerStatus                 `json:"runner_status"`
	PID            int                          `json:"pid"`
	CurrentRound   int                          `json:"current_round"`
	SimulatedHours float64                      `json:"simulated_hours"`
	Platforms      map[string]*PlatformRunState `json:"platforms"`
	RecentActions  []AgentAction                `json:"recent_actions"`
	LastError      string                       `json:"last_error,omitempty"`
	StartedAt      time.Time                    `json:"started_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
	CompletedAt    *time.Time                   `json:"completed_at,omitempty"`
	ForceRestarted bool                         `json:"force_restarted,omitempty"`
}

// StartParams are Runner.Start's inputs.
type StartParams struct {
	WrapperScript           string
	Selector                Selector
	Force                   bool
	EnableGraphMemoryUpdate bool
	GraphID                 string
}

// running tracks one live child process and its monitor goroutine.
type running struct {
	cmd             *exec.Cmd
	pgid            int
	state           *RunState
	mu              sync.Mutex
	done            chan struct{}
	cancelTail      context.CancelFunc
	completionReady bool
	stopRequested   bool
}

// Runner owns the lifecycle of external simulation processes.
type Runner struct {
	fs          *store.Store
	simulations *simulation.Store
	memories    *memory.Manager

	mu       sync.Mutex
	children map[string]*running
}

// New creates a Runner. memories may be nil if graph-memory update is never
// requested.
func New(fs *store.Store, simulations *simulation.Store, memories *memory.Manager) *Runner {
	return &Runner{fs: fs, simulations: simulations, memories: memories, children: map[string]*running{}}
}

// Start launches the external simulation process for sim.
func (r *Runner) Start(ctx context.Context, sim *simulation.Simulation, p StartParams) (forceRestarted bool, err error) {
	r.mu.Lock()
	existing := r.children[sim.ID]
	r.mu.Unlock()

	if existing != nil && r.isAlive(existing) {
		if !p.Force {
			return false, orcherrors.Conflictf("runner.start", "simulation %s is already running", sim.ID)
		}
		if err := r.Stop(ctx, sim.ID); err != nil {
			return false, err
		}
		if err := r.cleanLogsForRestart(sim.ID, sim.Platforms()); err != nil {
			return false, err
		}
		forceRestarted = true
	}

	if p.EnableGraphMemoryUpdate {
		if p.GraphID == "" {
			return forceRestarted, orcherrors.Validationf("runner.start", "enable_graph_memory_update requires a graph_id")
		}
		if r.memories != nil {
			r.memories.Create(sim.ID, p.GraphID)
		}
	}

	cmd := r.buildCommand(ctx, p.WrapperScript, p.Selector, sim)
	logFile, err := os.OpenFile(r.fs.SimulationLogPath(sim.ID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return forceRestarted, orcherrors.Fatalf("runner.start", err, "failed to open simulation.log for %s", sim.ID)
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return forceRestarted, orcherrors.ChildProcessf("runner.start", "failed to spawn simulation process for %s: %v", sim.ID, err)
	}

	now := time.Now()
	platforms := map[string]*PlatformRunState{}
	for _, pf := range sim.Platforms() {
		platforms[pf] = &PlatformRunState{Running: true}
	}

	state := &RunState{
		RunnerStatus:   RunnerStarting,
		PID:            cmd.Process.Pid,
		Platforms:      platforms,
		RecentActions:  nil,
		StartedAt:      now,
		UpdatedAt:      now,
		ForceRestarted: forceRestarted,
	}

	rc := &running{cmd: cmd, pgid: cmd.Process.Pid, state: state, done: make(chan struct{})}
	r.mu.Lock()
	r.children[sim.ID] = rc
	r.mu.Unlock()

	state.RunnerStatus = RunnerRunning
	if err := r.persist(sim.ID, state); err != nil {
		logFile.Close()
		return forceRestarted, err
	}

	if err := r.simulations.Transition(sim, simulation.StatusRunning); err != nil {
		logFile.Close()
		return forceRestarted, err
	}

	tailCtx, cancel := context.WithCancel(context.Background())
	rc.cancelTail = cancel
	go r.monitor(tailCtx, sim, rc, logFile)

	return forceRestarted, nil
}

func (r *Runner) buildCommand(ctx context.Context, wrapperScript string, sel Selector, sim *simulation.Simulation) *exec.Cmd {
	cmd := exec.CommandContext(ctx, wrapperScript, "--platform", string(sel), "--simulation-dir", r.fs.SimulationDir(sim.ID))
	cmd.Dir = r.fs.SimulationDir(sim.ID)
	return cmd
}

func (r *Runner) isAlive(rc *running) bool {
	select {
	case <-rc.done:
		return false
	default:
		return rc.cmd.Process != nil
	}
}

func (r *Runner) persist(simID string, state *RunState) error {
	state.UpdatedAt = time.Now()
	if err := r.fs.WriteJSONAtomic(r.fs.RunStatePath(simID), state); err != nil {
		return orcherrors.Fatalf("runner.persist", err, "failed to write run_state.json for %s", simID)
	}
	return nil
}

// cleanLogsForRestart removes the previous run's artifacts, preserving
// config and profile files.
func (r *Runner) cleanLogsForRestart(simID string, platforms []string) error {
	paths := []string{
		r.fs.RunStatePath(simID),
		r.fs.SimulationLogPath(simID),
		r.fs.EnvStatusPath(simID),
	}
	for _, pf := range platforms {
		paths = append(paths, r.fs.ActionsLogPath(simID, pf), r.fs.PlatformDBPath(simID, pf))
	}
	for _, p := range paths {
		if err := r.fs.Remove(p); err != nil {
			return orcherrors.Fatalf("runner.clean_logs", err, "failed to remove %s", p)
		}
	}
	return nil
}

// GetRunState returns the current in-memory run state, falling back to the
// persisted snapshot if the simulation is not actively tracked (e.g. after
// process restart).
func (r *Runner) GetRunState(simID string) (*RunState, error) {
	r.mu.Lock()
	rc := r.children[simID]
	r.mu.Unlock()

	if rc != nil {
		rc.mu.Lock()
		defer rc.mu.Unlock()
		cp := *rc.state
		return &cp, nil
	}

	var state RunState
	if err := r.fs.ReadJSON(r.fs.RunStatePath(simID), &state); err != nil {
		return nil, orcherrors.NotFoundf("runner.get_run_state", "no run state for simulation %s", simID)
	}
	return &state, nil
}
