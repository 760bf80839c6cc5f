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
	"log/slog"
	"time"

	"github.com/kadirpekel/socialsim/pkg/config"
	"github.com/kadirpekel/socialsim/pkg/logger"
	"github.com/kadirpekel/socialsim/pkg/metrics"
	"github.com/kadirpekel/socialsim/pkg/shutdown"
)

// ServeCmd wires every component and blocks until a shutdown signal is
// received. HTTP routing is left to the embedding application: this command
// starts no listener of its own, but a caller embedding socialsim as a
// library can mount Runtime.RegisterRoutes on its own mux.
type ServeCmd struct {
	MetricsEnabled bool   `name:"metrics" help:"Enable the Prometheus metrics registry."`
	TaskCleanup    bool   `name:"task-cleanup" default:"true" negatable:"" help:"Run the periodic terminal-task cleanup loop."`
	Reloader       bool   `help:"Suppress duplicate shutdown-hook registration (set by a dev auto-reload supervisor)."`
	Metrics        string `help:"Metrics namespace." default:"socialsim"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := c.loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	cfg.Reloader = cfg.Reloader || c.Reloader

	// A logger.dir in the config routes logs into date-rotating files; CLI
	// flags already installed a logger, so only re-init when the config
	// actually asks for the file sink and the CLI didn't.
	if cfg.Logger.Dir != "" && cli.LogDir == "" {
		daily, err := logger.NewDailyWriter(cfg.Logger.Dir)
		if err != nil {
			return fmt.Errorf("failed to open log dir: %w", err)
		}
		level, _ := logger.ParseLevel(cfg.Logger.Level)
		logger.Init(level, daily, cfg.Logger.Format)
	}

	mcfg := &metrics.Config{Enabled: c.MetricsEnabled, Namespace: c.Metrics}
	rt, err := NewRuntime(cfg, Collaborators{}, mcfg)
	if err != nil {
		return fmt.Errorf("failed to build runtime: %w", err)
	}

	// Unblock the <-ctx.Done() wait below once the coordinator actually
	// tears everything down (signal-driven or explicit), rather than
	// waiting on a context nothing else ever cancels.
	rt.Shutdown.Register(shutdown.Func(func(context.Context) { cancel() }))
	rt.Shutdown.Listen(!cfg.Reloader)

	if c.TaskCleanup {
		go c.runTaskCleanup(ctx, rt, cfg.TaskCleanupInterval, cfg.TaskRetention)
	}

	slog.Info("socialsim runtime ready", "store", cfg.Store.RootDir, "metrics", c.MetricsEnabled)
	fmt.Printf("socialsim ready (store=%s)\n", cfg.Store.RootDir)
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()
	rt.Shutdown.Shutdown(context.Background())
	return nil
}

func (c *ServeCmd) loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		cfg.SetDefaults()
		return cfg, nil
	}

	_ = config.LoadEnvFiles()
	cfg, loader, err := config.LoadConfigFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	loader.Close()
	return cfg, nil
}

// runTaskCleanup periodically purges terminal tasks older than the
// configured retention window.
func (c *ServeCmd) runTaskCleanup(ctx context.Context, rt *Runtime, interval, retention time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := rt.Tasks.CleanupOlderThan(retention)
			if n > 0 {
				slog.Info("cleaned up terminal tasks", "count", n)
			}
		}
	}
}
