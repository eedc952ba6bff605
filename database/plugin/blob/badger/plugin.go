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

package badger

import (
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/journal/database/plugin"
)

// badgerFlags receives values for the registered plugin options from flags,
// env vars and the config file
var (
	badgerFlags struct {
		dataDir        string
		gcInterval     string
		blockCacheSize uint64
		indexCacheSize uint64
		gcEnabled      bool
	}
	badgerFlagsMutex sync.RWMutex
)

func init() {
	badgerFlags.dataDir = ".journal"
	badgerFlags.gcInterval = DefaultGcInterval.String()
	badgerFlags.blockCacheSize = DefaultBlockCacheSize
	badgerFlags.indexCacheSize = DefaultIndexCacheSize
	badgerFlags.gcEnabled = true
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB store for account state",
			NewFromOptionsFunc: NewFromPluginOptions,
			Options:            pluginOptions(),
		},
	)
}

func pluginOptions() []plugin.PluginOption {
	return []plugin.PluginOption{
		{
			Name:         "data-dir",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Directory holding the blob subdirectory, empty for in-memory",
			DefaultValue: ".journal",
			Dest:         &(badgerFlags.dataDir),
		},
		{
			Name:         "block-cache-size",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "Block cache size in bytes",
			DefaultValue: uint64(DefaultBlockCacheSize),
			Dest:         &(badgerFlags.blockCacheSize),
		},
		{
			Name:         "index-cache-size",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "Index cache size in bytes",
			DefaultValue: uint64(DefaultIndexCacheSize),
			Dest:         &(badgerFlags.indexCacheSize),
		},
		{
			Name:         "gc",
			Type:         plugin.PluginOptionTypeBool,
			Description:  "Run value log GC in the background",
			DefaultValue: true,
			Dest:         &(badgerFlags.gcEnabled),
		},
		{
			Name:         "gc-interval",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Time between value log GC runs",
			DefaultValue: DefaultGcInterval.String(),
			Dest:         &(badgerFlags.gcInterval),
		},
	}
}

// optionsFromFlags turns the current plugin option values into OptionFuncs
func optionsFromFlags(env plugin.Environment) ([]OptionFunc, error) {
	badgerFlagsMutex.RLock()
	defer badgerFlagsMutex.RUnlock()
	gcInterval, err := time.ParseDuration(badgerFlags.gcInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid badger gc-interval: %w", err)
	}
	if gcInterval <= 0 {
		return nil, fmt.Errorf(
			"invalid badger gc-interval %q: must be positive",
			badgerFlags.gcInterval,
		)
	}
	return []OptionFunc{
		WithDataDir(badgerFlags.dataDir),
		WithBlockCacheSize(badgerFlags.blockCacheSize),
		WithIndexCacheSize(badgerFlags.indexCacheSize),
		WithGc(badgerFlags.gcEnabled),
		WithGcInterval(gcInterval),
		WithLogger(env.Logger),
		WithPromRegistry(env.PromRegistry),
	}, nil
}

// NewFromPluginOptions opens a store from the registered plugin options. Any
// failure is reported by Start on the returned plugin
func NewFromPluginOptions(env plugin.Environment) plugin.Plugin {
	opts, err := optionsFromFlags(env)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	store, err := New(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return store
}
