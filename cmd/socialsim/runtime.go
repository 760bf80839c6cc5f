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

package main

import (
	"context"
	"net/http"

	"github.com/kadirpekel/socialsim/pkg/config"
	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/llm"
	"github.com/kadirpekel/socialsim/pkg/memory"
	"github.com/kadirpekel/socialsim/pkg/metrics"
	"github.com/kadirpekel/socialsim/pkg/ontology"
	"github.com/kadirpekel/socialsim/pkg/profile"
	"github.com/kadirpekel/socialsim/pkg/project"
	"github.com/kadirpekel/socialsim/pkg/report"
	"github.com/kadirpekel/socialsim/pkg/runner"
	"github.com/kadirpekel/socialsim/pkg/shutdown"
	"github.com/kadirpekel/socialsim/pkg/simconfig"
	"github.com/kadirpekel/socialsim/pkg/simulation"
	"github.com/kadirpekel/socialsim/pkg/store"
	"github.com/kadirpekel/socialsim/pkg/task"
)

// Collaborators holds the external, out-of-scope collaborators:
// the LLM vendor client, the graph backend driver, and the ontology
// generator. With a nil LLM, the profile, config and report components
// fall back to rule-based output. The graph builder, entity reader and
// memory updater have no such fallback: they call Graph (and the memory
// updater also LLM) directly, so those need non-nil collaborators before
// they are used. A caller embedding this CLI (e.g. an
// HTTP server binary) wires concrete implementations in before calling
// NewRuntime.
type Collaborators struct {
	LLM      llm.Client
	Graph    graph.Client
	Ontology ontology.Generator
}

// Runtime assembles every orchestrator component over one Store root. It
// is the thing cmd/socialsim's serve command constructs and tears down.
type Runtime struct {
	Store        *store.Store
	Tasks        *task.Registry
	Projects     *project.Store
	GraphBuilder *graph.Builder
	GraphReader  *graph.Reader
	Profiles     *profile.Synthesizer
	Configs      *simconfig.Synthesizer
	Simulations  *simulation.Store
	SimManager   *simulation.Manager
	Runner       *runner.Runner
	Memory       *memory.Manager
	Reports      *report.Store
	ReportAgent  *report.Agent
	Metrics      *metrics.Metrics
	Shutdown     *shutdown.Coordinator
}

// NewRuntime wires every component over a single Store root. It never
// blocks and never touches the network beyond what Collaborators already
// opened.
func NewRuntime(cfg *config.Config, collab Collaborators, mcfg *metrics.Config) (*Runtime, error) {
	fs, err := store.New(cfg.Store.RootDir)
	if err != nil {
		return nil, err
	}

	tasks := task.NewRegistry()
	projects := project.New(fs)
	simulations := simulation.New(fs)

	graphBuilder := graph.NewBuilder(collab.Graph)
	graphReader := graph.NewReader(collab.Graph)
	profiles := profile.NewSynthesizer(collab.LLM)
	configs := simconfig.NewSynthesizer(collab.LLM)

	simManager := simulation.NewManager(fs, simulations, graphReader, profiles, configs)

	memoryManager := memory.NewManager(collab.Graph, collab.LLM)
	simRunner := runner.New(fs, simulations, memoryManager)

	reports := report.NewStore(fs)
	reportTools := report.Tools{} // wired by the caller once search/interview endpoints exist
	reportAgent := report.NewAgent(fs, collab.LLM, reportTools)

	m := metrics.New(mcfg)
	coordinator := shutdown.New()
	coordinator.Register(shutdown.Func(func(ctx context.Context) { simRunner.ShutdownAll(ctx) }))
	coordinator.Register(shutdown.Func(func(ctx context.Context) { memoryManager.StopAll() }))

	rt := &Runtime{
		Store:        fs,
		Tasks:        tasks,
		Projects:     projects,
		GraphBuilder: graphBuilder,
		GraphReader:  graphReader,
		Profiles:     profiles,
		Configs:      configs,
		Simulations:  simulations,
		SimManager:   simManager,
		Runner:       simRunner,
		Memory:       memoryManager,
		Reports:      reports,
		ReportAgent:  reportAgent,
		Metrics:      m,
		Shutdown:     coordinator,
	}
	return rt, nil
}

// RegisterRoutes is the HTTP extension point: HTTP handlers themselves
// are left to the embedding application, so this only mounts the
// metrics endpoint and leaves the rest to the caller's own mux.
func (rt *Runtime) RegisterRoutes(mux *http.ServeMux, metricsPath string) {
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	mux.Handle(metricsPath, rt.Metrics.Handler())
}
