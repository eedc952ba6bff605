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

package node

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/journal"
	"github.com/blinklabs-io/journal/internal/config"
	"github.com/blinklabs-io/journal/internal/version"
	"github.com/blinklabs-io/journal/keystore"
	"github.com/prometheus/client_golang/prometheus"
)

// NodeConfig converts the loaded configuration into node options
func NodeConfig(cfg *config.Config, logger *slog.Logger) (journal.Config, error) {
	var operatorKey ed25519.PrivateKey
	if cfg.OperatorKey != "" {
		ks := keystore.New(cfg.KeystoreDir, logger)
		key, err := ks.Load(cfg.OperatorKey)
		if err != nil {
			return journal.Config{}, fmt.Errorf("failed to load operator key: %w", err)
		}
		operatorKey = key
	}
	return journal.NewConfig(
		journal.WithLogger(logger),
		journal.WithDatabasePath(cfg.DataDir),
		journal.WithBlobPlugin(cfg.BlobPlugin),
		journal.WithMetadataPlugin(cfg.MetadataPlugin),
		journal.WithListenAddress(cfg.ListenAddress),
		journal.WithFaucet(cfg.Faucet),
		journal.WithOperatorKey(operatorKey),
		journal.WithOperatorFunding(cfg.AirdropLamports),
		journal.WithVersion(version.GetVersionString()),
		journal.WithShutdownTimeout(cfg.ShutdownTimeoutDuration()),
		// Enable metrics with default prometheus registry
		journal.WithPrometheusRegistry(prometheus.DefaultRegisterer),
		journal.WithPrometheusGatherer(prometheus.DefaultGatherer),
		journal.WithTracing(cfg.Tracing),
		journal.WithTracingStdout(cfg.TracingStdout),
	), nil
}

// Run starts a node from cfg and blocks until SIGINT/SIGTERM or a fatal error
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	nodeCfg, err := NodeConfig(cfg, logger)
	if err != nil {
		return err
	}
	n, err := journal.New(nodeCfg)
	if err != nil {
		return err
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	runErr := n.Run(signalCtx)
	if runErr != nil {
		logger.Error("node error", "error", runErr, "component", "node")
	} else if signalCtx.Err() != nil {
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	}
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err, "component", "node")
		if runErr == nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	logger.Info("shutdown complete", "component", "node")
	return nil
}
