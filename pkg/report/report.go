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

// Package report implements the report agent: outline planning, a ReACT
// section-writing loop over four search tools, and the on-disk persistence
// cadence for generated reports.
package report

import (
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/store"
)

// MaxToolCallsPerSection bounds tool invocations within one section's ReACT
// loop.
const MaxToolCallsPerSection = 5

// MaxToolCallsPerChat bounds tool invocations in chat mode.
const MaxToolCallsPerChat = 2

// MinToolCalls is the minimum number of distinct tool calls a section must
// make before a Final Answer is accepted.
const MinToolCalls = 2

// MaxIterations bounds the ReACT loop per section.
const MaxIterations = 5

// PlanningTemperature and SectionTemperature are the fixed LLM
// temperatures for the two call sites.
const (
	PlanningTemperature = 0.3
	SectionTemperature  = 0.5
)

// Report is one generated report's meta.json entity.
type Report struct {
	ID           string    `json:"report_id"`
	SimulationID string    `json:"simulation_id"`
	GraphID      string    `json:"graph_id,omitempty"`
	Requirement  string    `json:"requirement"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Status is the report's generation lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPlanning   Status = "planning"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Store persists Report entities.
type Store struct {
	fs *store.Store
}

// NewStore creates a report Store.
func NewStore(fs *store.Store) *Store { return &Store{fs: fs} }

// Create registers a new report in status "pending".
func (s *Store) Create(simulationID, graphID, requirement string) (*Report, error) {
	now := time.Now()
	r := &Report{
		ID:           uuid.NewString(),
		SimulationID: simulationID,
		GraphID:      graphID,
		Requirement:  requirement,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Save(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Save rewrites meta.json after bumping UpdatedAt.
func (s *Store) Save(r *Report) error {
	r.UpdatedAt = time.Now()
	if err := s.fs.WriteJSONAtomic(s.fs.ReportMetaPath(r.ID), r); err != nil {
		return orcherrors.Fatalf("report.save", err, "failed to persist report %s", r.ID)
	}
	return nil
}

// Get loads a report by id.
func (s *Store) Get(id string) (*Report, error) {
	var r Report
	if err := s.fs.ReadJSON(s.fs.ReportMetaPath(id), &r); err != nil {
		if os.IsNotExist(err) {
			return nil, orcherrors.NotFoundf("report.get", "report %s not found", id)
		}
		return nil, orcherrors.Fatalf("report.get", err, "failed to read report %s", id)
	}
	return &r, nil
}

// List returns all report ids.
func (s *Store) List() ([]string, error) {
	ids, err := s.fs.ListReportIDs()
	if err != nil {
		return nil, orcherrors.Fatalf("report.list", err, "failed to list reports")
	}
	return ids, nil
}
