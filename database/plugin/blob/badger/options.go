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
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Defaults used by New for anything not set through an OptionFunc
const (
	DefaultBlockCacheSize = 256 << 20
	DefaultIndexCacheSize = 64 << 20
	DefaultGcInterval     = 5 * time.Minute
	DefaultGcDiscardRatio = 0.5
)

// OptionFunc configures a BlobStoreBadger before it is opened
type OptionFunc func(*BlobStoreBadger)

// WithDataDir puts the account blobs under dataDir/blob. Leaving it empty
// opens an in-memory store
func WithDataDir(dataDir string) OptionFunc {
	return func(b *BlobStoreBadger) {
		b.dataDir = dataDir
	}
}

func WithLogger(logger *slog.Logger) OptionFunc {
	return func(b *BlobStoreBadger) {
		b.logger = logger
	}
}

// WithPromRegistry enables the database_blob_* metrics
func WithPromRegistry(registry prometheus.Registerer) OptionFunc {
	return func(b *BlobStoreBadger) {
		b.promRegistry = registry
	}
}

// WithBlockCacheSize sets the badger block cache size in bytes
func WithBlockCacheSize(size uint64) OptionFunc {
	return func(b *BlobStoreBadger) {
		b.blockCacheSize = size
	}
}

// WithIndexCacheSize sets the badger index cache size in bytes
func WithIndexCacheSize(size uint64) OptionFunc {
	return func(b *BlobStoreBadger) {
		b.indexCacheSize = size
	}
}

// WithGc toggles the background value log GC. It is always off for
// in-memory stores
func WithGc(enabled bool) OptionFunc {
	return func(b *BlobStoreBadger) {
		b.gcEnabled = enabled
	}
}

func WithGcInterval(interval time.Duration) OptionFunc {
	return func(b *BlobStoreBadger) {
		b.gcInterval = interval
	}
}

// WithGcDiscardRatio sets the fraction of stale data a value log file
// needs before GC rewrites it
func WithGcDiscardRatio(ratio float64) OptionFunc {
	return func(b *BlobStoreBadger) {
		b.gcDiscardRatio = ratio
	}
}
