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

// Package simulation implements the simulation manager: the simulation
// state machine and the staged Prepare pipeline (EntityReader ->
// ProfileSynthesizer -> ConfigSynthesizer) that produces a prepared
// simulation bundle on disk.
package simulation

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/store"
)

// Status is the simulation lifecycle state.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
)

// Simulation is the persisted state.json entity.
type Simulation struct {
	ID              string    `json:"simulation_id"`
	ProjectID       string    `json:"project_id"`
	GraphID         string    `json:"graph_id"`
	TwitterEnabled  bool      `json:"twitter_enabled"`
	RedditEnabled   bool      `json:"reddit_enabled"`
	Status          Status    `json:"status"`
	EntityCount     int       `json:"entity_count"`
	ProfileCount    int       `json:"profile_count"`
	EntityTypes     []string  `json:"entity_types"`
	ConfigGenerated bool      `json:"config_generated"`
	LastError       string    `json:"last_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Platforms returns the enabled platform names, in the fixed
// twitter-then-reddit order the monitor loop and the on-disk layout both
// assume.
func (s *Simulation) Platforms() []string {
	var out []string
	if s.TwitterEnabled {
		out = append(out, "twitter")
	}
	if s.RedditEnabled {
		out = append(out, "reddit")
	}
	return out
}

// Store persists Simulation entities under pkg/store's filesystem layout.
// It owns state.json only; run_state.json belongs to SimulationRunner.
type Store struct {
	fs *store.Store
	mu sync.Mutex
}

// New creates a simulation Store backed by fs.
func New(fs *store.Store) *Store {
	return &Store{fs: fs}
}

// Create registers a new simulation in status "created".
func (s *Store) Create(projectID, graphID string, twitterEnabled, redditEnabled bool) (*Simulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sim := &Simulation{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		GraphID:        graphID,
		TwitterEnabled: twitterEnabled,
		RedditEnabled:  redditEnabled,
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.save(sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// Save rewrites state.json after bumping UpdatedAt.
func (s *Store) Save(sim *Simulation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sim.UpdatedAt = time.Now()
	return s.save(sim)
}

func (s *Store) save(sim *Simulation) error {
	if err := s.fs.WriteJSONAtomic(s.fs.SimulationStatePath(sim.ID), sim); err != nil {
		return orcherrors.Fatalf("simulation.save", err, "failed to persist simulation %s", sim.ID)
	}
	return nil
}

// Get loads a simulation by id.
func (s *Store) Get(id string) (*Simulation, error) {
	var sim Simulation
	if err := s.fs.ReadJSON(s.fs.SimulationStatePath(id), &sim); err != nil {
		if os.IsNotExist(err) {
			return nil, orcherrors.NotFoundf("simulation.get", "simulation %s not found", id)
		}
		return nil, orcherrors.Fatalf("simulation.get", err, "failed to read simulation %s", id)
	}
	return &sim, nil
}

// Delete removes a simulation's entire directory tree.
func (s *Store) Delete(id string) error {
	if err := os.RemoveAll(s.fs.SimulationDir(id)); err != nil {
		return orcherrors.Fatalf("simulation.delete", err, "failed to delete simulation %s", id)
	}
	return nil
}

// List returns all simulations sorted by created-at descending.
func (s *Store) List() ([]*Simulation, error) {
	ids, err := s.fs.ListSimulationIDs()
	if err != nil {
		return nil, orcherrors.Fatalf("simulation.list", err, "failed to list simulations")
	}
	out := make([]*Simulation, 0, len(ids))
	for _, id := range ids {
		sim, err := s.Get(id)
		if err != nil {
			continue
		}
		out = append(out, sim)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// transitionTable encodes the lifecycle state-machine edges this package
// enforces directly (the process-exit-driven edges are enforced by
// pkg/runner, which owns the running simulation).
var transitionTable = map[Status]map[Status]bool{
	StatusCreated:   {StatusPreparing: true},
	StatusPreparing: {StatusReady: true, StatusFailed: true},
	StatusReady:     {StatusRunning: true},
	StatusRunning:   {StatusCompleted: true, StatusStopped: true, StatusFailed: true, StatusPaused: true},
	StatusFailed:    {StatusRunning: true, StatusPreparing: true},
	StatusStopped:   {StatusRunning: true},
	StatusCompleted: {StatusRunning: true},
	StatusPaused:    {StatusRunning: true, StatusStopped: true},
}

// Transition validates and applies a status change, persisting the result.
func (s *Store) Transition(sim *Simulation, to Status) error {
	allowed := transitionTable[sim.Status]
	if !allowed[to] {
		return orcherrors.Conflictf("simulation.transition", "cannot move simulation %s from %s to %s", sim.ID, sim.Status, to)
	}
	sim.Status = to
	return s.Save(sim)
}
