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

package database

import (
	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/database/types"
)

func metadataTxn(txn *Txn) types.Txn {
	if txn == nil {
		return nil
	}
	return txn.Metadata()
}

// GetTransactionByHash returns a committed transaction, or nil if the hash is unknown
func (d *Database) GetTransactionByHash(
	hash []byte,
	txn *Txn,
) (*models.Transaction, error) {
	return d.metadata.GetTransactionByHash(hash, metadataTxn(txn))
}

// SetTransaction records a committed transaction in the transaction log
func (d *Database) SetTransaction(
	tx *models.Transaction,
	txn *Txn,
) error {
	return d.metadata.SetTransaction(tx, metadataTxn(txn))
}

// GetTransactionsBySigner returns up to limit transactions from a signer, newest first
func (d *Database) GetTransactionsBySigner(
	signer []byte,
	limit int,
	txn *Txn,
) ([]models.Transaction, error) {
	return d.metadata.GetTransactionsBySigner(signer, limit, metadataTxn(txn))
}

// GetAccountChanges returns the recorded lifecycle of an account
func (d *Database) GetAccountChanges(
	address []byte,
	txn *Txn,
) ([]models.AccountChange, error) {
	return d.metadata.GetAccountChanges(address, metadataTxn(txn))
}
