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

package memory

import (
	"sync"

	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/llm"
)

// Manager is the process-wide registry of per-simulation Updaters.
type Manager struct {
	graphClient graph.Client
	llmClient   llm.Client

	mu       sync.Mutex
	updaters map[string]*Updater
}

// NewManager creates a Manager. graphClient/llmClient are shared across every
// Updater it creates.
func NewManager(graphClient graph.Client, llmClient llm.Client) *Manager {
	return &Manager{graphClient: graphClient, llmClient: llmClient, updaters: map[string]*Updater{}}
}

// Create starts (or replaces) the Updater for simulationID.
func (m *Manager) Create(simulationID, graphID string) *Updater {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.updaters[simulationID]; ok {
		existing.Stop()
	}
	u := NewUpdater(simulationID, graphID, m.graphClient, m.llmClient)
	m.updaters[simulationID] = u
	return u
}

// Get returns the Updater for simulationID, if any.
func (m *Manager) Get(simulationID string) (*Updater, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.updaters[simulationID]
	return u, ok
}

// Stop stops and forgets the Updater for simulationID, if any.
func (m *Manager) Stop(simulationID string) {
	m.mu.Lock()
	u, ok := m.updaters[simulationID]
	delete(m.updaters, simulationID)
	m.mu.Unlock()
	if ok {
		u.Stop()
	}
}

// StopAll stops every tracked Updater. Idempotent: calling it twice (or on
// an empty Manager) is a no-op the second time.
func (m *Manager) StopAll() {
	m.mu.Lock()
	updaters := m.updaters
	m.updaters = map[string]*Updater{}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, u := range updaters {
		wg.Add(1)
		go func(u *Updater) {
			defer wg.Done()
			u.Stop()
		}(u)
	}
	wg.Wait()
}
