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

// Command socialsim is the process entrypoint for the social-opinion
// simulation orchestrator.
//
// Usage:
//
//	socialsim serve --config config.yaml
//	socialsim validate --config config.yaml
//	socialsim version
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/socialsim/pkg/config"
	"github.com/kadirpekel/socialsim/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the orchestrator and block until shutdown."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogDir    string `help:"Directory for date-rotating log files (empty = stderr)." type:"path"`
	LogFormat string `help:"Log format (simple, verbose, or custom)." default:"simple"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("socialsim version %s\n", version)
	return nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("socialsim"),
		kong.Description("Social-opinion simulation orchestrator"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}

	var output io.Writer = os.Stderr
	if cli.LogDir != "" {
		daily, err := logger.NewDailyWriter(cli.LogDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log dir: %v\n", err)
			os.Exit(1)
		}
		defer daily.Close()
		output = daily
	}
	logger.Init(level, output, cli.LogFormat)

	err = ctx.Run(&cli)
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	ctx.FatalIfErrorf(err)
}
