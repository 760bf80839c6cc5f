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

package simulation

import (
	"context"

	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/profile"
	"github.com/kadirpekel/socialsim/pkg/simconfig"
	"github.com/kadirpekel/socialsim/pkg/store"
)

// PrepareParams are the inputs to Manager.Prepare.
type PrepareParams struct {
	Requirement      string
	DefinedTypes     []string
	UseLLMProfiles   bool
	ParallelProfileN int
}

// ProgressFunc reports Prepare progress as a (percent, message) pair, the
// shape the owning TaskRegistry entry is updated with.
type ProgressFunc func(percent int, message string)

func noopProgress(int, string) {}

// Manager orchestrates EntityReader -> ProfileSynthesizer ->
// ConfigSynthesizer into the prepared on-disk bundle, persisting
// Simulation.Status transitions as it goes.
type Manager struct {
	fs          *store.Store
	simulations *Store
	reader      *graph.Reader
	profiles    *profile.Synthesizer
	configs     *simconfig.Synthesizer
}

// NewManager creates a Manager wiring together the store and the three
// staged collaborators.
func NewManager(fs *store.Store, simulations *Store, reader *graph.Reader, profiles *profile.Synthesizer, configs *simconfig.Synthesizer) *Manager {
	return &Manager{fs: fs, simulations: simulations, reader: reader, profiles: profiles, configs: configs}
}

// Prepare runs the staged pipeline: FilterDefined -> GenerateAll (with
// streaming save) -> persist profile files -> ConfigSynthesizer.Generate ->
// persist simulation_config.json -> transition to ready.
func (m *Manager) Prepare(ctx context.Context, sim *Simulation, p PrepareParams, progress ProgressFunc) error {
	if progress == nil {
		progress = noopProgress
	}

	if err := m.simulations.Transition(sim, StatusPreparing); err != nil {
		return err
	}

	fail := func(err error) error {
		sim.LastError = err.Error()
		sim.Status = StatusFailed
		_ = m.simulations.Save(sim)
		return err
	}

	progress(5, "reading graph entities")
	filtered, err := m.reader.FilterDefined(ctx, sim.GraphID, p.DefinedTypes, true)
	if err != nil {
		return fail(orcherrors.Transientf("simulation.prepare", err, "failed to read entities for graph %s", sim.GraphID))
	}
	if filtered.FilteredCount == 0 {
		return fail(orcherrors.Validationf("simulation.prepare", "no entities matched the defined types for graph %s", sim.GraphID))
	}

	sim.EntityCount = filtered.FilteredCount
	sim.EntityTypes = filtered.EntityTypesSeen

	progress(20, "synthesizing agent profiles")
	save := profile.SaveRealtime(m.fs, m.fs.TwitterProfilesPath(sim.ID), m.fs.RedditProfilesPath(sim.ID))
	profileProgress := func(completed, total int) {
		pct := 20 + int(50*float64(completed)/float64(total))
		progress(pct, "synthesizing agent profiles")
	}
	profiles, err := m.profiles.GenerateAll(ctx, filtered.Entities, p.UseLLMProfiles, p.ParallelProfileN, profileProgress, save)
	if err != nil {
		return fail(orcherrors.Transientf("simulation.prepare", err, "profile synthesis failed for simulation %s", sim.ID))
	}
	sim.ProfileCount = len(profiles)

	// Final, authoritative write (GenerateAll already wrote every
	// intermediate snapshot; this guarantees the very last one is in
	// place even if a prior write raced with a later completion).
	if err := save(profiles); err != nil {
		return fail(orcherrors.Fatalf("simulation.prepare", err, "failed to persist final profile set for simulation %s", sim.ID))
	}

	progress(75, "generating simulation configuration")
	configEntities := simconfig.EntitiesFromGraph(filtered.Entities)
	params, err := m.configs.Generate(ctx, configEntities, p.Requirement, true)
	if err != nil {
		return fail(orcherrors.Transientf("simulation.prepare", err, "config synthesis failed for simulation %s", sim.ID))
	}
	if err := m.fs.WriteJSONAtomic(m.fs.SimulationConfigPath(sim.ID), params); err != nil {
		return fail(orcherrors.Fatalf("simulation.prepare", err, "failed to persist simulation_config.json for %s", sim.ID))
	}
	sim.ConfigGenerated = true

	progress(95, "finalizing")
	if err := m.simulations.Transition(sim, StatusReady); err != nil {
		return err
	}

	progress(100, "ready")
	return nil
}

// requiredFiles are the four artifacts the idempotent-resumption check
// requires to all be present.
func (m *Manager) requiredFiles(simID string) []string {
	return []string{
		m.fs.SimulationStatePath(simID),
		m.fs.SimulationConfigPath(simID),
		m.fs.RedditProfilesPath(simID),
		m.fs.TwitterProfilesPath(simID),
	}
}

var preparedStatuses = map[Status]bool{
	StatusReady:     true,
	StatusPreparing: true,
	StatusRunning:   true,
	StatusCompleted: true,
	StatusStopped:   true,
	StatusFailed:    true,
}

// IsPrepared reports whether preparation already completed: the
// directory exists, all four files are present, and state.json is in one
// of the listed statuses with ConfigGenerated true. A "preparing" state
// with every file already present is auto-upgraded to "ready" as a side
// effect.
func (m *Manager) IsPrepared(simID string) (bool, error) {
	for _, path := range m.requiredFiles(simID) {
		if !m.fs.Exists(path) {
			return false, nil
		}
	}

	sim, err := m.simulations.Get(simID)
	if err != nil {
		return false, nil
	}
	if !preparedStatuses[sim.Status] || !sim.ConfigGenerated {
		return false, nil
	}

	if sim.Status == StatusPreparing {
		if err := m.simulations.Transition(sim, StatusReady); err != nil {
			return false, err
		}
	}

	return true, nil
}
