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
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/kadirpekel/socialsim/pkg/memory"
	"github.com/kadirpekel/socialsim/pkg/simulation"
)

const tailPollInterval = 500 * time.Millisecond

// monitor is the monitoring loop: one goroutine per running
// simulation, tailing every enabled platform's actions.jsonl from the last
// read offset until the child process exits.
func (r *Runner) monitor(ctx context.Context, sim *simulation.Simulation, rc *running, logFile *os.File) {
	defer logFile.Close()
	defer close(rc.done)

	offsets := map[string]int64{}
	for pf := range rc.state.Platforms {
		offsets[pf] = 0
	}

	exitCh := make(chan error, 1)
	go func() { exitCh <- rc.cmd.Wait() }()

	ticker := time.NewTicker(tailPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tailOnce(sim, rc, offsets)
			if rc.consumeCompletionReady() {
				r.completeFromMonitor(sim, rc)
			}
		case err := <-exitCh:
			r.tailOnce(sim, rc, offsets) // final drain before declaring terminal state
			rc.consumeCompletionReady()
			r.finish(sim, rc, err)
			return
		case <-ctx.Done():
			return
		}
	}
}

// tailOnce reads any new lines appended to each platform's actions.jsonl
// since offsets[platform], updating rc.state accordingly.
func (r *Runner) tailOnce(sim *simulation.Simulation, rc *running, offsets map[string]int64) {
	for _, pf := range sim.Platforms() {
		path := r.fs.ActionsLogPath(sim.ID, pf)
		f, err := os.Open(path)
		if err != nil {
			continue // file not created yet
		}

		if _, err := f.Seek(offsets[pf], io.SeekStart); err != nil {
			f.Close()
			continue
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		var consumed int64
		for scanner.Scan() {
			line := scanner.Bytes()
			consumed += int64(len(line)) + 1 // + newline
			r.applyLine(sim.ID, rc, pf, line)
		}
		offsets[pf] += consumed
		f.Close()
	}
}

func (r *Runner) applyLine(simID string, rc *running, platform string, line []byte) {
	var disc rawLine
	if err := json.Unmarshal(line, &disc); err != nil {
		return
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	ps := rc.state.Platforms[platform]
	if ps == nil {
		ps = &PlatformRunState{}
		rc.state.Platforms[platform] = ps
	}

	switch {
	case disc.EventType == "" && disc.AgentID != nil:
		var action AgentAction
		if err := json.Unmarshal(line, &action); err != nil {
			return
		}
		action.Platform = platform
		ps.ActionCount++
		rc.state.RecentActions = append(rc.state.RecentActions, action)
		if len(rc.state.RecentActions) > RecentActionsBufferSize {
			rc.state.RecentActions = rc.state.RecentActions[len(rc.state.RecentActions)-RecentActionsBufferSize:]
		}
		if r.memories != nil {
			if updater, ok := r.memories.Get(simID); ok {
				updater.Enqueue(memory.AgentActivity{
					Platform:   platform,
					AgentID:    action.AgentID,
					AgentName:  action.AgentName,
					ActionType: action.ActionType,
					ActionArgs: action.ActionArgs,
					Round:      action.Round,
					Timestamp:  action.Timestamp,
				})
			}
		}

	case disc.EventType == "round_end":
		var ev platformEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return
		}
		ps.CurrentRound = ev.CurrentRound
		ps.SimulatedHours = ev.SimulatedHours
		rc.state.CurrentRound = maxRound(rc.state.Platforms)
		rc.state.SimulatedHours = maxHours(rc.state.Platforms)

	case disc.EventType == "simulation_end":
		ps.Completed = true
		ps.Running = false
		if allCompleted(rc.state.Platforms) {
			rc.completionReady = true
		}
	}

	_ = r.persist(simID, rc.state)
}

// consumeCompletionReady reports and clears whether every tracked platform
// has signalled simulation_end since the last check, so the monitor loop
// can transition to completed within one tick without waiting for the child process to exit.
func (rc *running) consumeCompletionReady() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	ready := rc.completionReady
	rc.completionReady = false
	return ready
}

// completeFromMonitor transitions a simulation to completed as soon as every
// platform's actions.jsonl has signalled simulation_end, independent of
// whether the child process has exited yet.
func (r *Runner) completeFromMonitor(sim *simulation.Simulation, rc *running) {
	rc.mu.Lock()
	if rc.state.RunnerStatus == RunnerComplete {
		rc.mu.Unlock()
		return
	}
	rc.state.RunnerStatus = RunnerComplete
	now := time.Now()
	rc.state.CompletedAt = &now
	_ = r.persist(sim.ID, rc.state)
	rc.mu.Unlock()

	_ = r.simulations.Transition(sim, simulation.StatusCompleted)
	if r.memories != nil {
		r.memories.Stop(sim.ID)
	}
}

func maxRound(platforms map[string]*PlatformRunState) int {
	max := 0
	for _, p := range platforms {
		if p.CurrentRound > max {
			max = p.CurrentRound
		}
	}
	return max
}

func maxHours(platforms map[string]*PlatformRunState) float64 {
	max := 0.0
	for _, p := range platforms {
		if p.SimulatedHours > max {
			max = p.SimulatedHours
		}
	}
	return max
}

func allCompleted(platforms map[string]*PlatformRunState) bool {
	if len(platforms) == 0 {
		return false
	}
	for _, p := range platforms {
		if !p.Completed {
			return false
		}
	}
	return true
}

// finish transitions the simulation to its terminal state once the child
// process's exit status is observable.
func (r *Runner) finish(sim *simulation.Simulation, rc *running, waitErr error) {
	rc.mu.Lock()
	completed := allCompleted(rc.state.Platforms)
	stopRequested := rc.stopRequested
	now := time.Now()
	rc.state.CompletedAt = &now

	var target simulation.Status
	if stopRequested {
		rc.state.RunnerStatus = RunnerStopped
		target = simulation.StatusStopped
	} else if waitErr == nil {
		rc.state.RunnerStatus = RunnerComplete
		target = simulation.StatusCompleted
	} else if exitErr, ok := waitErr.(*exec.ExitError); ok && exitErr.ExitCode() != 0 {
		rc.state.RunnerStatus = RunnerFailed
		rc.state.LastError = tailLogFile(r, sim.ID)
		target = simulation.StatusFailed
	} else if completed {
		rc.state.RunnerStatus = RunnerComplete
		target = simulation.StatusCompleted
	} else {
		rc.state.RunnerStatus = RunnerFailed
		rc.state.LastError = waitErr.Error()
		target = simulation.StatusFailed
	}
	_ = r.persist(sim.ID, rc.state)
	rc.mu.Unlock()

	sim.LastError = rc.state.LastError
	_ = r.simulations.Transition(sim, target)

	if r.memories != nil {
		r.memories.Stop(sim.ID)
	}
}

// tailLogFile returns the last portion of simulation.log for the failed
// run's error message.
func tailLogFile(r *Runner, simID string) string {
	data, err := os.ReadFile(r.fs.SimulationLogPath(simID))
	if err != nil {
		return err.Error()
	}
	const maxTail = 4096
	if len(data) > maxTail {
		data = data[len(data)-maxTail:]
	}
	return string(data)
}
