// Copyright 2025 Blink Labs Software
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
	"log/slog"
	"os"

	"github.com/blinklabs-io/journal/internal/config"
	"github.com/blinklabs-io/journal/internal/node"
	"github.com/spf13/cobra"
)

var serveFlags = struct {
	listen      string
	dataDir     string
	operatorKey string
	faucet      bool
}{}

func serveRun(cmd *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun()

	// Override config with command line flags
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.ListenAddress = serveFlags.listen
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = serveFlags.dataDir
	}
	if flags.Changed("operator-key") {
		cfg.OperatorKey = serveFlags.operatorKey
	}
	if flags.Changed("faucet") {
		cfg.Faucet = serveFlags.faucet
	}

	// Run node
	if err := node.Run(cfg, logger); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the journal API server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			serveRun(cmd, args, cfg)
		},
	}
	cmd.Flags().
		StringVar(&serveFlags.listen, "listen", config.DefaultListenAddress, "API listen address")
	cmd.Flags().
		StringVar(&serveFlags.dataDir, "data-dir", config.DefaultDataDir, "data directory, empty for in-memory storage")
	cmd.Flags().
		StringVar(&serveFlags.operatorKey, "operator-key", "", "keystore key used to create the journal counter at startup")
	cmd.Flags().
		BoolVar(&serveFlags.faucet, "faucet", false, "enable the airdrop endpoint")
	return cmd
}
