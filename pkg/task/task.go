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

// Package task implements TaskRegistry, the in-process registry of
// asynchronous jobs (ontology, graph build, profile generation, config
// generation, report generation) with status, progress, and result/error.
// The registry is purely in-memory and process-lifetime: exactly one
// instance is created at startup and passed explicitly to the components
// that dispatch work through it.
package task

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is a snapshot of one asynchronous job. Snapshots returned by the
// registry are copies; mutating one has no effect on the registry.
type Task struct {
	ID             string
	Type           string
	Status         Status
	Progress       int
	Message        string
	ProgressDetail map[string]any
	Result         any
	Error          string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Update describes a partial, atomic mutation applied by Registry.Update.
// Nil fields are left untouched.
type Update struct {
	Status         *Status
	Progress       *int
	Message        *string
	Result         any
	Error          *string
	ProgressDetail map[string]any
}

// Registry is the process-wide TaskRegistry. All operations are guarded by
// a single mutex; there is exactly one Registry per process.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Create registers a new pending task with progress 0 and returns its id.
func (r *Registry) Create(taskType string, metadata map[string]any) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	id := uuid.NewString()
	r.tasks[id] = &Task{
		ID:        id,
		Type:      taskType,
		Status:    StatusPending,
		Progress:  0,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// Update applies a partial update atomically. When the resulting status is
// "processing", Progress is clamped so it never regresses: a later update
// with a lower Progress than the task currently holds is ignored for the
// progress field specifically, while the rest of the update still applies.
// Update is a no-op (returns false) if the task id is unknown.
func (r *Registry) Update(id string, u Update) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return false
	}

	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Progress != nil {
		if t.Status == StatusProcessing && *u.Progress < t.Progress {
			// monotonic: ignore a regression while processing
		} else {
			t.Progress = *u.Progress
		}
	}
	if u.Message != nil {
		t.Message = *u.Message
	}
	if u.ProgressDetail != nil {
		t.ProgressDetail = u.ProgressDetail
	}
	if u.Result != nil {
		t.Result = u.Result
	}
	if u.Error != nil {
		t.Error = *u.Error
	}
	t.UpdatedAt = time.Now()
	return true
}

// Complete marks a task completed with progress 100 and the given result.
func (r *Registry) Complete(id string, result any) bool {
	status := StatusCompleted
	progress := 100
	return r.Update(id, Update{Status: &status, Progress: &progress, Result: result})
}

// Fail marks a task failed with the given error message.
func (r *Registry) Fail(id string, errMsg string) bool {
	status := StatusFailed
	return r.Update(id, Update{Status: &status, Error: &errMsg})
}

// Get returns a snapshot of the task, or false if unknown.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Filter narrows List results. A nil/zero field matches anything.
type Filter struct {
	Type   string
	Status Status
}

func (f Filter) matches(t *Task) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

// List returns snapshots matching filter, sorted by created-at descending.
func (r *Registry) List(filter Filter) []Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if filter.matches(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CleanupOlderThan removes terminal (completed/failed) tasks whose
// UpdatedAt is older than d. Returns the number of tasks removed.
func (r *Registry) CleanupOlderThan(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-d)
	removed := 0
	for id, t := range r.tasks {
		if t.Status.Terminal() && t.UpdatedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}
