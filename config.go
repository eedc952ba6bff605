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

package journal

import (
	"crypto/ed25519"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultShutdownTimeout = 30 * time.Second

type Config struct {
	promRegistry   prometheus.Registerer
	promGatherer   prometheus.Gatherer
	logger         *slog.Logger
	dataDir        string
	blobPlugin     string
	metadataPlugin string
	listenAddress  string
	version        string
	operatorKey    ed25519.PrivateKey
	// Lamports airdropped to the operator before it initializes the
	// counter (faucet only)
	operatorFunding uint64
	faucet          bool
	tracing         bool
	tracingStdout   bool
	shutdownTimeout time.Duration
}

func (n *Node) configValidate() error {
	if n.config.listenAddress == "" {
		return errors.New("no API listen address defined")
	}
	if n.config.operatorKey != nil &&
		len(n.config.operatorKey) != ed25519.PrivateKeySize {
		return errors.New("operator key has an invalid length")
	}
	if n.config.shutdownTimeout < 0 {
		return errors.New("shutdown timeout must not be negative")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Connection config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new journal config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		shutdownTimeout: defaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithListenAddress specifies the host:port the HTTP API listens on. Use port 0 to pick a free port
func WithListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.listenAddress = address
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithPrometheusGatherer exposes the gathered metrics on the API's /metrics route
func WithPrometheusGatherer(gatherer prometheus.Gatherer) ConfigOptionFunc {
	return func(c *Config) {
		c.promGatherer = gatherer
	}
}

// WithFaucet enables the airdrop endpoint
func WithFaucet(faucet bool) ConfigOptionFunc {
	return func(c *Config) {
		c.faucet = faucet
	}
}

// WithOperatorKey specifies a signing key used to initialize the journal counter at startup when it is missing
func WithOperatorKey(key ed25519.PrivateKey) ConfigOptionFunc {
	return func(c *Config) {
		c.operatorKey = key
	}
}

// WithOperatorFunding specifies how many lamports the faucet credits the operator before initializing the counter
func WithOperatorFunding(lamports uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.operatorFunding = lamports
	}
}

// WithVersion specifies the version string reported by the health endpoint
func WithVersion(version string) ConfigOptionFunc {
	return func(c *Config) {
		c.version = version
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
