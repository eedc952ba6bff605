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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, defaultShutdownTimeout, cfg.shutdownTimeout)
	assert.Empty(t, cfg.dataDir)
	assert.False(t, cfg.faucet)
	assert.Nil(t, cfg.operatorKey)
}

func TestConfigOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	key := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	cfg := NewConfig(
		WithDatabasePath("/tmp/journal"),
		WithBlobPlugin("badger"),
		WithMetadataPlugin("sqlite"),
		WithListenAddress("127.0.0.1:0"),
		WithPrometheusRegistry(reg),
		WithPrometheusGatherer(reg),
		WithFaucet(true),
		WithOperatorKey(key),
		WithOperatorFunding(5_000_000),
		WithVersion("v1.2.3"),
		WithTracing(true),
		WithTracingStdout(true),
		WithShutdownTimeout(5*time.Second),
	)
	assert.Equal(t, "/tmp/journal", cfg.dataDir)
	assert.Equal(t, "badger", cfg.blobPlugin)
	assert.Equal(t, "sqlite", cfg.metadataPlugin)
	assert.Equal(t, "127.0.0.1:0", cfg.listenAddress)
	assert.Equal(t, reg, cfg.promRegistry)
	assert.Equal(t, reg, cfg.promGatherer)
	assert.True(t, cfg.faucet)
	assert.Equal(t, key, cfg.operatorKey)
	assert.Equal(t, uint64(5_000_000), cfg.operatorFunding)
	assert.Equal(t, "v1.2.3", cfg.version)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOptionFunc
		wantErr bool
	}{
		{
			name: "valid",
			opts: []ConfigOptionFunc{WithListenAddress("127.0.0.1:0")},
		},
		{
			name:    "no listen address",
			wantErr: true,
		},
		{
			name: "short operator key",
			opts: []ConfigOptionFunc{
				WithListenAddress("127.0.0.1:0"),
				WithOperatorKey(make([]byte, 10)),
			},
			wantErr: true,
		},
		{
			name: "negative shutdown timeout",
			opts: []ConfigOptionFunc{
				WithListenAddress("127.0.0.1:0"),
				WithShutdownTimeout(-time.Second),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(NewConfig(tt.opts...))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid configuration")
				return
			}
			require.NoError(t, err)
			require.NoError(t, n.Stop())
		})
	}
}

func TestShutdownDeadline(t *testing.T) {
	n := &Node{config: NewConfig(WithShutdownTimeout(0))}
	assert.Equal(t, defaultShutdownTimeout, n.shutdownDeadline())
	n.config.shutdownTimeout = 2 * time.Second
	assert.Equal(t, 2*time.Second, n.shutdownDeadline())
}
