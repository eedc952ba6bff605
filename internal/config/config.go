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
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/journal/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "journal.config"

const (
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
	DefaultDataDir         = ".journal"
	DefaultListenAddress   = "127.0.0.1:8899"
	DefaultServerURL       = "http://127.0.0.1:8899"
	DefaultKeyName         = "default"
	DefaultShutdownTimeout = "30s"
	DefaultAirdropLamports = 1_000_000_000

	envPrefix = "JOURNAL"
)

// ErrPluginListRequested is returned when the user asked for the plugin
// list instead of a plugin name
var ErrPluginListRequested = errors.New("plugin list requested")

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config   *yaml.Node                `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	DataDir         string `yaml:"dataDir"         split_words:"true"`
	BlobPlugin      string `yaml:"blobPlugin"      envconfig:"JOURNAL_DATABASE_BLOB_PLUGIN"`
	MetadataPlugin  string `yaml:"metadataPlugin"  envconfig:"JOURNAL_DATABASE_METADATA_PLUGIN"`
	ListenAddress   string `yaml:"listenAddress"   split_words:"true"`
	ServerURL       string `yaml:"serverUrl"       envconfig:"SERVER_URL"`
	KeystoreDir     string `yaml:"keystoreDir"     split_words:"true"`
	KeyName         string `yaml:"keyName"         split_words:"true"`
	OperatorKey     string `yaml:"operatorKey"     split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
	AirdropLamports uint64 `yaml:"airdropLamports" split_words:"true"`
	Faucet          bool   `yaml:"faucet"`
	Tracing         bool   `yaml:"tracing"`
	TracingStdout   bool   `yaml:"tracingStdout"   split_words:"true"`
}

// ShutdownTimeoutDuration parses ShutdownTimeout, falling back to the default
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultShutdownTimeout)
	}
	return d
}

// CheckPluginList prints the available plugins and returns
// ErrPluginListRequested when either plugin name is "list"
func (c *Config) CheckPluginList() error {
	if c.BlobPlugin == "list" {
		fmt.Println("Available blob plugins:")
		for _, p := range plugin.GetPlugins(plugin.PluginTypeBlob) {
			fmt.Printf("  %s: %s\n", p.Name, p.Description)
		}
		return ErrPluginListRequested
	}
	if c.MetadataPlugin == "list" {
		fmt.Println("Available metadata plugins:")
		for _, p := range plugin.GetPlugins(plugin.PluginTypeMetadata) {
			fmt.Printf("  %s: %s\n", p.Name, p.Description)
		}
		return ErrPluginListRequested
	}
	return nil
}

func defaultConfig() *Config {
	keystoreDir := filepath.Join(DefaultDataDir, "keys")
	if homeDir, err := os.UserHomeDir(); err == nil {
		keystoreDir = filepath.Join(homeDir, ".journal", "keys")
	}
	return &Config{
		DataDir:         DefaultDataDir,
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		ListenAddress:   DefaultListenAddress,
		ServerURL:       DefaultServerURL,
		KeystoreDir:     keystoreDir,
		KeyName:         DefaultKeyName,
		ShutdownTimeout: DefaultShutdownTimeout,
		AirdropLamports: DefaultAirdropLamports,
	}
}

var globalConfig = defaultConfig()

// findConfigFile looks in ~/.journal/journal.yaml then /etc/journal/journal.yaml
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".journal", "journal.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/journal/journal.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig reads the YAML config file, then applies environment variables.
// Plugin sections are passed to the plugin registry
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(envPrefix, globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if _, err := time.ParseDuration(globalConfig.ShutdownTimeout); err != nil {
		return nil, fmt.Errorf(
			"invalid shutdownTimeout %q: %w",
			globalConfig.ShutdownTimeout,
			err,
		)
	}
	return globalConfig, nil
}

func loadConfigFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config != nil {
		// Decoding the node onto globalConfig only touches keys present in the section
		if err := tempCfg.Config.Decode(globalConfig); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, globalConfig); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			if name := pluginSection(tempCfg.Database.Blob, pluginConfig, "blob"); name != "" {
				globalConfig.BlobPlugin = name
			}
		}
		if tempCfg.Database.Metadata != nil {
			if name := pluginSection(tempCfg.Database.Metadata, pluginConfig, "metadata"); name != "" {
				globalConfig.MetadataPlugin = name
			}
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// pluginSection merges one database plugin section into pluginConfig and
// returns the plugin name it selects, if any. A section looks like:
//
//	blob:
//	  plugin: badger
//	  badger:
//	    data-dir: /var/lib/journal
func pluginSection(
	section map[string]any,
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
) string {
	var name string
	if pluginVal, ok := section["plugin"].(string); ok {
		name = pluginVal
	}
	typeConfig := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			typeConfig[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			typeConfig[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				pluginType,
				k,
				v,
			)
		}
	}
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = typeConfig
	} else {
		maps.Copy(pluginConfig[pluginType], typeConfig)
	}
	return name
}

func GetConfig() *Config {
	return globalConfig
}
