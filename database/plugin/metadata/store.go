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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/database/plugin"
	"github.com/blinklabs-io/journal/database/types"
	"gorm.io/gorm"

	// Register built-in plugins
	_ "github.com/blinklabs-io/journal/database/plugin/metadata/sqlite"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Transaction log
	GetTransactionByHash(
		[]byte, // hash
		types.Txn,
	) (*models.Transaction, error)
	SetTransaction(
		*models.Transaction,
		types.Txn,
	) error
	GetTransactionsBySigner(
		[]byte, // signer
		int, // limit
		types.Txn,
	) ([]models.Transaction, error)
	GetAccountChanges(
		[]byte, // address
		types.Txn,
	) ([]models.AccountChange, error)
}

// New returns the started metadata plugin selected by name
func New(pluginName string, env plugin.Environment) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName, env)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
