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

// Package ipc implements the file-based request/response channel
// between the orchestrator and a running simulation, plus the
// environment-liveness flag the external process owns.
package ipc

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/socialsim/pkg/store"
)

// CommandType is the IPC command vocabulary.
type CommandType string

const (
	CommandInterview      CommandType = "interview"
	CommandBatchInterview CommandType = "batch_interview"
	CommandCloseEnv       CommandType = "close_env"
)

// Command is one request written to ipc_commands/{uuid}.json.
type Command struct {
	ID        string         `json:"id"`
	Type      CommandType    `json:"type"`
	Args      map[string]any `json:"args"`
	Timestamp time.Time      `json:"timestamp"`
}

// ResponseStatus is a Response's processing state.
type ResponseStatus string

const (
	ResponsePending    ResponseStatus = "pending"
	ResponseProcessing ResponseStatus = "processing"
	ResponseCompleted  ResponseStatus = "completed"
	ResponseFailed     ResponseStatus = "failed"
)

// Response is one reply read from ipc_responses/{uuid}.json.
type Response struct {
	CommandID string         `json:"command_id"`
	Status    ResponseStatus `json:"status"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EnvStatus is the liveness flag the external simulation owns
// (env_status.json).
type EnvStatus struct {
	Status           string    `json:"status"` // "alive" | "stopped"
	Timestamp        time.Time `json:"timestamp"`
	TwitterAvailable bool      `json:"twitter_available"`
	RedditAvailable  bool      `json:"reddit_available"`
}

// IsAlive reports whether env is a live environment. A nil receiver is not
// alive, so the (nil, nil) that ReadEnvStatus returns for an absent or
// unparseable file reads as "not alive".
func (e *EnvStatus) IsAlive() bool {
	return e != nil && e.Status == "alive"
}

// ReadEnvStatus reads env_status.json for a simulation. A missing or
// unparseable file is reported as "not alive" (nil, nil) rather than an
// error.
func ReadEnvStatus(fs *store.Store, simulationID string) (*EnvStatus, error) {
	data, err := os.ReadFile(fs.EnvStatusPath(simulationID))
	if err != nil {
		return nil, nil
	}
	var st EnvStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, nil
	}
	return &st, nil
}

// InterviewPromptPrefix is prepended to every interview prompt so the
// interviewed agent replies in plain text instead of invoking tools.
const InterviewPromptPrefix = "Answer the following as yourself, in plain conversational text. Do not invoke any tools or produce structured output.\n\n"

// NewCommand builds a Command with a fresh id and the current timestamp.
// now is passed in rather than taken from time.Now() internally so callers
// (and tests) control it explicitly.
func NewCommand(cmdType CommandType, args map[string]any, now time.Time) Command {
	return Command{ID: uuid.NewString(), Type: cmdType, Args: args, Timestamp: now}
}
