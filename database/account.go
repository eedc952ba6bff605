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
	"errors"
	"fmt"
	"slices"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/database/types"
)

const (
	accountBlobKeyPrefix = "account_"
)

// ErrAccountNotFound is returned when no account is stored at an address
var ErrAccountNotFound = errors.New("account not found")

func AccountBlobKey(address []byte) []byte {
	return slices.Concat([]byte(accountBlobKeyPrefix), address)
}

// GetAccount returns the account stored at the given address
func (d *Database) GetAccount(
	address []byte,
	txn *Txn,
) (*models.Account, error) {
	if txn == nil {
		txn = NewBlobOnlyTxn(d, false)
		defer txn.Release()
	}
	val, err := d.Blob().Get(txn.Blob(), AccountBlobKey(address))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	ret := &models.Account{}
	if _, err := cbor.Decode(val, ret); err != nil {
		return nil, fmt.Errorf("decode account %x: %w", address, err)
	}
	return ret, nil
}

// SetAccount stores an account at the given address, replacing any existing one
func (d *Database) SetAccount(
	address []byte,
	account *models.Account,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	accountCbor, err := cbor.Encode(account)
	if err != nil {
		return fmt.Errorf("encode account %x: %w", address, err)
	}
	return d.Blob().Set(txn.Blob(), AccountBlobKey(address), accountCbor)
}

// DeleteAccount removes the account stored at the given address
func (d *Database) DeleteAccount(address []byte, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	return d.Blob().Delete(txn.Blob(), AccountBlobKey(address))
}

// CountAccounts returns the number of stored accounts, grouped by owner
func (d *Database) CountAccounts(txn *Txn) (map[string]int, error) {
	if txn == nil {
		txn = NewBlobOnlyTxn(d, false)
		defer txn.Release()
	}
	ret := make(map[string]int)
	prefix := []byte(accountBlobKeyPrefix)
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var tmpAccount models.Account
		if _, err := cbor.Decode(val, &tmpAccount); err != nil {
			return nil, fmt.Errorf("decode account %x: %w", iter.Item().Key(), err)
		}
		ret[tmpAccount.Owner]++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
