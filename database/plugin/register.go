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

package plugin

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

// envVarPrefix is prepended to generated plugin environment variable names
const envVarPrefix = "JOURNAL_DATABASE_"

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return ""
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	CustomEnvVar string
	Type         PluginOptionType
}

// flagName returns the command line flag name for the option
func (p *PluginOption) flagName(pluginType PluginType, pluginName string) string {
	return fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(pluginType),
		pluginName,
		p.Name,
	)
}

// envVarName returns the environment variable name for the option
func (p *PluginOption) envVarName(pluginType PluginType, pluginName string) string {
	if p.CustomEnvVar != "" {
		return p.CustomEnvVar
	}
	name := fmt.Sprintf(
		"%s%s_%s_%s",
		envVarPrefix,
		PluginTypeName(pluginType),
		pluginName,
		p.Name,
	)
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func (p *PluginOption) addToFlagSet(
	fs *pflag.FlagSet,
	pluginType PluginType,
	pluginName string,
) error {
	flagName := p.flagName(pluginType, pluginName)
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		if !ok {
			return fmt.Errorf("invalid destination type for option %s", p.Name)
		}
		def, _ := p.DefaultValue.(string)
		fs.StringVar(dest, flagName, def, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		if !ok {
			return fmt.Errorf("invalid destination type for option %s", p.Name)
		}
		def, _ := p.DefaultValue.(bool)
		fs.BoolVar(dest, flagName, def, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		if !ok {
			return fmt.Errorf("invalid destination type for option %s", p.Name)
		}
		def, _ := p.DefaultValue.(int)
		fs.IntVar(dest, flagName, def, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok {
			return fmt.Errorf("invalid destination type for option %s", p.Name)
		}
		def, _ := p.DefaultValue.(uint64)
		fs.Uint64Var(dest, flagName, def, p.Description)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
	return nil
}

type PluginEntry struct {
	NewFromOptionsFunc func(Environment) Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var pluginEntries []PluginEntry

// Register adds a plugin to the registry. It is meant to be called from a
// plugin package init() function
func Register(pluginEntry PluginEntry) {
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registry entries for the specified plugin type
func GetPlugins(pluginType PluginType) []PluginEntry {
	ret := []PluginEntry{}
	for _, plugin := range pluginEntries {
		if plugin.Type == pluginType {
			ret = append(ret, plugin)
		}
	}
	return ret
}

// GetPlugin creates a new instance of the named plugin using an empty environment
func GetPlugin(pluginType PluginType, pluginName string) Plugin {
	return newPlugin(pluginType, pluginName, Environment{})
}

func newPlugin(pluginType PluginType, pluginName string, env Environment) Plugin {
	for _, plugin := range pluginEntries {
		if plugin.Type != pluginType || plugin.Name != pluginName {
			continue
		}
		if plugin.NewFromOptionsFunc == nil {
			return nil
		}
		return plugin.NewFromOptionsFunc(env)
	}
	return nil
}

// PopulateCmdlineOptions adds flags for all registered plugin options to the provided flag set
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for _, plugin := range pluginEntries {
		for i := range plugin.Options {
			if err := plugin.Options[i].addToFlagSet(fs, plugin.Type, plugin.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessEnvVars sets plugin options from any matching environment variables
func ProcessEnvVars() error {
	for _, plugin := range pluginEntries {
		for _, opt := range plugin.Options {
			val, ok := os.LookupEnv(opt.envVarName(plugin.Type, plugin.Name))
			if !ok {
				continue
			}
			if err := setOptionFromString(plugin.Type, plugin.Name, opt, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin options from a config file. The map is keyed by
// plugin type name, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for _, plugin := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(plugin.Type)]
		if !ok {
			continue
		}
		optsConfig, ok := typeConfig[plugin.Name]
		if !ok {
			continue
		}
		for _, opt := range plugin.Options {
			val, ok := optsConfig[opt.Name]
			if !ok {
				continue
			}
			// YAML decodes integers as int, which SetPluginOption handles for uint options
			if err := SetPluginOption(plugin.Type, plugin.Name, opt.Name, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func setOptionFromString(
	pluginType PluginType,
	pluginName string,
	opt PluginOption,
	val string,
) error {
	var value any
	switch opt.Type {
	case PluginOptionTypeString:
		value = val
	case PluginOptionTypeBool:
		var b bool
		if _, err := fmt.Sscan(val, &b); err != nil {
			return fmt.Errorf("invalid bool value for option %s: %w", opt.Name, err)
		}
		value = b
	case PluginOptionTypeInt:
		var i int
		if _, err := fmt.Sscan(val, &i); err != nil {
			return fmt.Errorf("invalid int value for option %s: %w", opt.Name, err)
		}
		value = i
	case PluginOptionTypeUint:
		var u uint64
		if _, err := fmt.Sscan(val, &u); err != nil {
			return fmt.Errorf("invalid uint value for option %s: %w", opt.Name, err)
		}
		value = u
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", opt.Type, opt.Name)
	}
	return SetPluginOption(pluginType, pluginName, opt.Name, value)
}
