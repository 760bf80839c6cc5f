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

package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/store"
)

// DefaultPollInterval is the default response poll cadence.
const DefaultPollInterval = 500 * time.Millisecond

// Client is the orchestrator-side half of the IPC channel.
type Client struct {
	fs           *store.Store
	simulationID string
	pollInterval time.Duration
}

// NewClient creates a Client for one simulation's IPC directories.
func NewClient(fs *store.Store, simulationID string, pollInterval time.Duration) *Client {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Client{fs: fs, simulationID: simulationID, pollInterval: pollInterval}
}

// Send writes a command and waits for its response:
//  1. generate a command uuid and write it atomically to ipc_commands/
//  2. wait for ipc_responses/{uuid}.json to appear, via an fsnotify watch
//     on the directory with a polling fallback at pollInterval
//  3. on response, read it, delete both files, and return it
//  4. on timeout, delete the command file and return an IPCTimeout error
//
// Send always cleans up its own command file, whether it returns success,
// timeout, or a parse error.
func (c *Client) Send(ctx context.Context, cmdType CommandType, args map[string]any, timeout time.Duration) (*Response, error) {
	cmd := NewCommand(cmdType, args, time.Now())
	cmdPath := filepath.Join(c.fs.IPCCommandsDir(c.simulationID), cmd.ID+".json")
	respPath := filepath.Join(c.fs.IPCResponsesDir(c.simulationID), cmd.ID+".json")

	if err := c.fs.WriteJSONAtomic(cmdPath, cmd); err != nil {
		return nil, orcherrors.Fatalf("ipc.send", err, "failed to write command %s", cmd.ID)
	}

	cleanup := func() {
		_ = c.fs.Remove(cmdPath)
	}

	resp, err := c.waitForResponse(ctx, respPath, timeout)
	cleanup()
	if err != nil {
		return nil, err
	}

	_ = c.fs.Remove(respPath)
	return resp, nil
}

func (c *Client) waitForResponse(ctx context.Context, respPath string, timeout time.Duration) (*Response, error) {
	deadline := time.Now().Add(timeout)
	dir := filepath.Dir(respPath)

	watcher, watchErr := fsnotify.NewWatcher()
	if watchErr == nil {
		defer watcher.Close()
		_ = watcher.Add(dir) // best-effort; polling still covers misses
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if resp, ok := c.tryRead(respPath); ok {
			return resp, nil
		}
		if time.Now().After(deadline) {
			return nil, orcherrors.IPCTimeoutf("ipc.send", "no response for command within %s", timeout)
		}

		remaining := time.Until(deadline)
		wait := c.pollInterval
		if remaining < wait {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		case <-watchEvents(watcher):
		case <-time.After(wait):
		}
	}
}

// watchEvents adapts an optionally-nil watcher's Events channel so select
// can range over it uniformly; a nil watcher yields a channel that never
// fires.
func watchEvents(w *fsnotify.Watcher) <-chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.Events
}

func (c *Client) tryRead(path string) (*Response, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Interview sends an interview command for one agent, prepending the fixed
// plain-text instruction prefix to the prompt.
func (c *Client) Interview(ctx context.Context, agentID int, prompt string, platform string, timeout time.Duration) (*Response, error) {
	args := map[string]any{
		"agent_id": agentID,
		"prompt":   InterviewPromptPrefix + prompt,
	}
	if platform != "" {
		args["platform"] = platform
	}
	return c.Send(ctx, CommandInterview, args, timeout)
}

// BatchInterviewEntry is one agent/prompt pair for BatchInterview.
type BatchInterviewEntry struct {
	AgentID int    `json:"agent_id"`
	Prompt  string `json:"prompt"`
}

// BatchInterview sends a batch_interview command, prepending the plain-text
// instruction prefix to every prompt.
func (c *Client) BatchInterview(ctx context.Context, interviews []BatchInterviewEntry, platform string, timeout time.Duration) (*Response, error) {
	prefixed := make([]map[string]any, len(interviews))
	for i, entry := range interviews {
		prefixed[i] = map[string]any{
			"agent_id": entry.AgentID,
			"prompt":   InterviewPromptPrefix + entry.Prompt,
		}
	}
	args := map[string]any{"interviews": prefixed}
	if platform != "" {
		args["platform"] = platform
	}
	return c.Send(ctx, CommandBatchInterview, args, timeout)
}

// CloseEnv sends a close_env command.
func (c *Client) CloseEnv(ctx context.Context, timeout time.Duration) (*Response, error) {
	return c.Send(ctx, CommandCloseEnv, map[string]any{}, timeout)
}

// IsAlive reports whether the simulation's environment reports itself
// alive. Callers should check this before Interview so a stopped
// environment fails fast instead of waiting out the full poll timeout.
func IsAlive(fs *store.Store, simulationID string) bool {
	st, _ := ReadEnvStatus(fs, simulationID)
	return st.IsAlive()
}

var errEnvironmentNotRunning = fmt.Errorf("environment not running")

// RequireAlive returns a Validation error if the simulation's environment
// does not report itself alive.
func RequireAlive(fs *store.Store, simulationID string) error {
	if !IsAlive(fs, simulationID) {
		return orcherrors.Validationf("ipc.require_alive", "%v for simulation %s", errEnvironmentNotRunning, simulationID)
	}
	return nil
}
