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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobalConfig(t *testing.T) {
	t.Helper()
	globalConfig = defaultConfig()
	// Keep the host's config files out of the test
	t.Setenv("HOME", t.TempDir())
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	resetGlobalConfig(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultBlobPlugin, cfg.BlobPlugin)
	assert.Equal(t, DefaultMetadataPlugin, cfg.MetadataPlugin)
	assert.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	assert.Equal(t, DefaultKeyName, cfg.KeyName)
	assert.False(t, cfg.Faucet)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeoutDuration())
}

func TestLoadConfigFile(t *testing.T) {
	resetGlobalConfig(t)
	path := writeConfigFile(t, `
dataDir: /var/lib/journal
listenAddress: "0.0.0.0:9000"
faucet: true
operatorKey: operator
shutdownTimeout: 5s
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/journal", cfg.DataDir)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddress)
	assert.True(t, cfg.Faucet)
	assert.Equal(t, "operator", cfg.OperatorKey)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeoutDuration())
	// Unset values keep their defaults
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
}

func TestLoadConfigSection(t *testing.T) {
	resetGlobalConfig(t)
	path := writeConfigFile(t, `
config:
  keyName: alice
database:
  blob:
    plugin: badger
    badger:
      block-cache-size: 1024
  metadata:
    plugin: sqlite
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.KeyName)
	assert.Equal(t, "badger", cfg.BlobPlugin)
	assert.Equal(t, "sqlite", cfg.MetadataPlugin)
}

func TestLoadConfigSectionKeepsDefaults(t *testing.T) {
	resetGlobalConfig(t)
	path := writeConfigFile(t, "config:\n  keyName: alice\n  shutdownTimeout: 5s\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.KeyName)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeoutDuration())
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	assert.Equal(t, DefaultBlobPlugin, cfg.BlobPlugin)
	assert.Equal(t, DefaultMetadataPlugin, cfg.MetadataPlugin)
	assert.NotEmpty(t, cfg.KeystoreDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	resetGlobalConfig(t)
	path := writeConfigFile(t, "listenAddress: \"0.0.0.0:9000\"\n")
	t.Setenv("JOURNAL_LISTEN_ADDRESS", "127.0.0.1:7000")
	t.Setenv("JOURNAL_FAUCET", "true")
	t.Setenv("JOURNAL_SERVER_URL", "http://example.invalid")
	t.Setenv("JOURNAL_DATABASE_METADATA_PLUGIN", "list")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddress)
	assert.True(t, cfg.Faucet)
	assert.Equal(t, "http://example.invalid", cfg.ServerURL)
	require.ErrorIs(t, cfg.CheckPluginList(), ErrPluginListRequested)
}

func TestLoadInvalid(t *testing.T) {
	resetGlobalConfig(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	resetGlobalConfig(t)
	_, err = LoadConfig(writeConfigFile(t, "faucet: [not a bool\n"))
	require.Error(t, err)

	resetGlobalConfig(t)
	_, err = LoadConfig(writeConfigFile(t, "shutdownTimeout: soon\n"))
	require.Error(t, err)
}

func TestConfigContext(t *testing.T) {
	cfg := defaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
