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
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultVacuumInterval is how often an on-disk store is vacuumed
const DefaultVacuumInterval = 24 * time.Hour

// OptionFunc configures a MetadataStoreSqlite before Start opens it
type OptionFunc func(*MetadataStoreSqlite)

// WithDataDir places metadata.sqlite in dataDir. Leaving it empty selects a
// private in-memory database
func WithDataDir(dataDir string) OptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.dataDir = dataDir
	}
}

func WithLogger(logger *slog.Logger) OptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) OptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.promRegistry = registry
	}
}

// WithVacuumInterval sets the time between VACUUM runs. Zero disables them
func WithVacuumInterval(interval time.Duration) OptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.vacuumInterval = interval
	}
}
