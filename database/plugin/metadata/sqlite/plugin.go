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

package sqlite

import (
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/journal/database/plugin"
)

// sqliteFlags receives values for the registered plugin options
var (
	sqliteFlags struct {
		dataDir        string
		vacuumInterval string
	}
	sqliteFlagsMutex sync.RWMutex
)

func init() {
	sqliteFlags.dataDir = ".journal"
	sqliteFlags.vacuumInterval = DefaultVacuumInterval.String()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite store for the transaction log and account history",
			NewFromOptionsFunc: NewFromPluginOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Directory holding metadata.sqlite, empty for in-memory",
					DefaultValue: ".journal",
					Dest:         &(sqliteFlags.dataDir),
				},
				{
					Name:         "vacuum-interval",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Time between VACUUM runs, 0 to disable",
					DefaultValue: DefaultVacuumInterval.String(),
					Dest:         &(sqliteFlags.vacuumInterval),
				},
			},
		},
	)
}

func optionsFromFlags(env plugin.Environment) ([]OptionFunc, error) {
	sqliteFlagsMutex.RLock()
	defer sqliteFlagsMutex.RUnlock()
	vacuumInterval, err := time.ParseDuration(sqliteFlags.vacuumInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid sqlite vacuum-interval: %w", err)
	}
	if vacuumInterval < 0 {
		return nil, fmt.Errorf(
			"invalid sqlite vacuum-interval %q: must not be negative",
			sqliteFlags.vacuumInterval,
		)
	}
	return []OptionFunc{
		WithDataDir(sqliteFlags.dataDir),
		WithVacuumInterval(vacuumInterval),
		WithLogger(env.Logger),
		WithPromRegistry(env.PromRegistry),
	}, nil
}

// NewFromPluginOptions builds a store from the registered plugin options.
// The database itself is opened by Start
func NewFromPluginOptions(env plugin.Environment) plugin.Plugin {
	opts, err := optionsFromFlags(env)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	store, err := NewWithOptions(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return store
}
