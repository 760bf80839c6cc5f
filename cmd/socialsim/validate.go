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
	"fmt"

	"github.com/kadirpekel/socialsim/pkg/config"
)

// ValidateCmd loads a config file and reports whether it is well-formed,
// without starting anything.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}

	_ = config.LoadEnvFiles()
	cfg, loader, err := config.LoadConfigFile(context.Background(), cli.Config)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	defer loader.Close()

	fmt.Printf("config %s is valid\n", cli.Config)
	fmt.Printf("  store.root_dir:       %s\n", cfg.Store.RootDir)
	fmt.Printf("  llm.provider:         %s\n", cfg.LLM.Provider)
	fmt.Printf("  graph.uri:            %s\n", cfg.Graph.URI)
	fmt.Printf("  task_cleanup_interval: %s\n", cfg.TaskCleanupInterval)
	fmt.Printf("  task_retention:       %s\n", cfg.TaskRetention)
	return nil
}
