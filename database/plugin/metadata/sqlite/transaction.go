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
	"errors"
	"fmt"

	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTransactionExists is returned when a transaction hash has already been recorded
var ErrTransactionExists = errors.New("transaction already recorded")

// GetTransactionByHash returns a transaction by its hash, or nil if it has not been recorded
func (d *MetadataStoreSqlite) GetTransactionByHash(
	hash []byte,
	txn types.Txn,
) (*models.Transaction, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Transaction{}
	result := db.
		Preload(clause.Associations).
		First(ret, "hash = ?", hash)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetTransaction records a committed transaction along with its account changes
func (d *MetadataStoreSqlite) SetTransaction(
	tx *models.Transaction,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	var count int64
	if result := db.Model(&models.Transaction{}).Where("hash = ?", tx.Hash).Count(&count); result.Error != nil {
		return result.Error
	}
	if count > 0 {
		return ErrTransactionExists
	}
	if result := db.Create(tx); result.Error != nil {
		return fmt.Errorf("create transaction: %w", result.Error)
	}
	return nil
}

// GetTransactionsBySigner returns the most recent transactions from a signer, newest first
func (d *MetadataStoreSqlite) GetTransactionsBySigner(
	signer []byte,
	limit int,
	txn types.Txn,
) ([]models.Transaction, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Transaction
	query := db.
		Preload(clause.Associations).
		Where("signer = ?", signer).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetAccountChanges returns the recorded lifecycle of an account, oldest first
func (d *MetadataStoreSqlite) GetAccountChanges(
	address []byte,
	txn types.Txn,
) ([]models.AccountChange, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.AccountChange
	result := db.
		Where("address = ?", address).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
