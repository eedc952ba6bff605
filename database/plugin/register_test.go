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

package plugin_test

import (
	"testing"

	"github.com/blinklabs-io/journal/database/plugin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock plugin implementation for testing
type mockPlugin struct{}

func (m *mockPlugin) Start() error { return nil }
func (m *mockPlugin) Stop() error  { return nil }

func newMockPlugin(plugin.Environment) plugin.Plugin { return &mockPlugin{} }

func TestRegister(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               pluginName,
		NewFromOptionsFunc: newMockPlugin,
	})

	p := plugin.GetPlugin(plugin.PluginTypeBlob, pluginName)
	require.NotNil(t, p, "plugin not found")
	assert.IsType(t, &mockPlugin{}, p)

	found := false
	for _, pl := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		if pl.Name == pluginName {
			found = true
			break
		}
	}
	assert.True(t, found, "plugin not in GetPlugins list")
	// A metadata lookup must not return a blob plugin
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, pluginName))
}

func TestGetPluginNotFound(t *testing.T) {
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "non-existent-"+t.Name()))
	_, err := plugin.StartPlugin(
		plugin.PluginTypeBlob,
		"non-existent-"+t.Name(),
		plugin.Environment{},
	)
	assert.Error(t, err)
}

func TestPluginOptionsFlagsEnvConfig(t *testing.T) {
	pluginName := "opts-" + t.Name()
	var (
		strVal  string
		boolVal bool
		uintVal uint64
	)
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               pluginName,
		NewFromOptionsFunc: newMockPlugin,
		Options: []plugin.PluginOption{
			{
				Name:         "path",
				Type:         plugin.PluginOptionTypeString,
				DefaultValue: "default",
				Dest:         &strVal,
			},
			{
				Name:         "enabled",
				Type:         plugin.PluginOptionTypeBool,
				DefaultValue: false,
				Dest:         &boolVal,
			},
			{
				Name:         "size",
				Type:         plugin.PluginOptionTypeUint,
				DefaultValue: uint64(10),
				Dest:         &uintVal,
				CustomEnvVar: "JOURNAL_TEST_OPTS_SIZE",
			},
		},
	})

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	require.NoError(t, fs.Parse([]string{
		"--metadata-" + pluginName + "-path=/tmp/x",
		"--metadata-" + pluginName + "-enabled",
	}))
	assert.Equal(t, "/tmp/x", strVal)
	assert.True(t, boolVal)
	assert.Equal(t, uint64(10), uintVal)

	t.Setenv("JOURNAL_TEST_OPTS_SIZE", "42")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, uint64(42), uintVal)

	require.NoError(t, plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			pluginName: {"size": 7, "path": "/from/config"},
		},
	}))
	assert.Equal(t, uint64(7), uintVal)
	assert.Equal(t, "/from/config", strVal)

	// Wrong types are rejected, unknown options are ignored
	assert.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "path", 123))
	assert.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "size", -1))
	assert.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "does-not-exist", "x"))
	assert.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "nonexistent", "path", "x"))
}
