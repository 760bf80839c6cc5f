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

// Package config loads and validates the orchestrator's environment inputs:
// LLM credentials, the graph backend URI, the upload root path, and the
// process reloader flag.
package config

import (
	"fmt"
	"time"
)

// LLMConfig carries the credentials the OntologyService/ProfileSynthesizer/
// ConfigSynthesizer/ReportAgent external collaborators are constructed with.
// The core never calls the vendor API directly; it only threads these
// through to whatever client the caller wires in.
type LLMConfig struct {
	Provider    string  `yaml:"provider,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// GraphConfig carries the backend URI/credentials for the external graph
// store. The core never opens this connection itself; it is passed to
// whatever GraphClient implementation the caller constructs.
type GraphConfig struct {
	URI      string `yaml:"uri,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// StoreConfig controls the on-disk layout root.
type StoreConfig struct {
	// RootDir is the directory containing uploads/ and logs/.
	RootDir string `yaml:"root_dir,omitempty"`
}

// Config is the orchestrator's full environment configuration.
type Config struct {
	Logger LoggerConfig `yaml:"logger,omitempty"`
	LLM    LLMConfig    `yaml:"llm,omitempty"`
	Graph  GraphConfig  `yaml:"graph,omitempty"`
	Store  StoreConfig  `yaml:"store,omitempty"`

	// Reloader suppresses duplicate shutdown-hook registration when the
	// process is running under a development auto-reload supervisor; only
	// the child process that actually owns the spawned simulations should
	// register signal handlers.
	Reloader bool `yaml:"reloader,omitempty"`

	// TaskCleanupInterval controls how often TaskRegistry.CleanupOlderThan
	// runs in the background.
	TaskCleanupInterval time.Duration `yaml:"task_cleanup_interval,omitempty"`

	// TaskRetention is the age past which terminal tasks are cleaned up.
	TaskRetention time.Duration `yaml:"task_retention,omitempty"`
}

// SetDefaults fills in zero-valued fields with the orchestrator's defaults.
func (c *Config) SetDefaults() {
	if c.Store.RootDir == "" {
		c.Store.RootDir = "."
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = GetProviderAPIKey(c.LLM.Provider)
	}
	if c.TaskCleanupInterval == 0 {
		c.TaskCleanupInterval = 10 * time.Minute
	}
	if c.TaskRetention == 0 {
		c.TaskRetention = 24 * time.Hour
	}
	c.Logger.SetDefaults()
}

// Validate checks structural invariants of the loaded configuration.
func (c *Config) Validate() error {
	if c.Store.RootDir == "" {
		return fmt.Errorf("store.root_dir is required")
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config: %w", err)
	}
	return nil
}
