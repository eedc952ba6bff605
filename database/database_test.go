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

package database_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/blinklabs-io/journal/database"
	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func testAddress(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestAccountRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	addr := testAddress(1)
	_, err := db.GetAccount(addr, nil)
	require.ErrorIs(t, err, database.ErrAccountNotFound)

	txn := db.Transaction(true)
	require.NoError(t, db.SetAccount(addr, &models.Account{
		Lamports: 100,
		Owner:    "journal",
		Data:     []byte{1, 2, 3},
	}, txn))
	require.NoError(t, txn.Commit())

	account, err := db.GetAccount(addr, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), account.Lamports)
	assert.Equal(t, "journal", account.Owner)
	assert.Equal(t, []byte{1, 2, 3}, account.Data)

	txn = db.Transaction(true)
	require.NoError(t, db.DeleteAccount(addr, txn))
	require.NoError(t, txn.Commit())
	_, err = db.GetAccount(addr, nil)
	require.ErrorIs(t, err, database.ErrAccountNotFound)
}

func TestSetAccountRequiresTxn(t *testing.T) {
	db := newTestDatabase(t)
	err := db.SetAccount(testAddress(1), &models.Account{}, nil)
	require.ErrorIs(t, err, types.ErrNilTxn)
}

func TestTxnDoRollsBackBothStores(t *testing.T) {
	db := newTestDatabase(t)
	errBoom := errors.New("boom")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetAccount(testAddress(1), &models.Account{Lamports: 5}, txn); err != nil {
			return err
		}
		if err := db.SetTransaction(&models.Transaction{Hash: testAddress(9)}, txn); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	_, err = db.GetAccount(testAddress(1), nil)
	require.ErrorIs(t, err, database.ErrAccountNotFound)
	tx, err := db.GetTransactionByHash(testAddress(9), nil)
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestTxnDoCommitsBothStores(t *testing.T) {
	db := newTestDatabase(t)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetAccount(testAddress(1), &models.Account{Lamports: 5}, txn); err != nil {
			return err
		}
		return db.SetTransaction(&models.Transaction{Hash: testAddress(9)}, txn)
	})
	require.NoError(t, err)
	account, err := db.GetAccount(testAddress(1), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), account.Lamports)
	tx, err := db.GetTransactionByHash(testAddress(9), nil)
	require.NoError(t, err)
	require.NotNil(t, tx)
	// Both stores carry the same commit timestamp
	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, metadataTs, blobTs)
	assert.Positive(t, blobTs)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	db := newTestDatabase(t)
	txn := database.NewBlobOnlyTxn(db, false)
	defer txn.Release()
	err := db.SetAccount(testAddress(1), &models.Account{}, txn)
	require.ErrorIs(t, err, types.ErrReadOnlyTxn)
}

func TestCountAccounts(t *testing.T) {
	db := newTestDatabase(t)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		for i, owner := range []string{models.SystemOwner, "journal", "journal"} {
			if err := db.SetAccount(testAddress(byte(i+1)), &models.Account{Owner: owner}, txn); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	counts, err := db.CountAccounts(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.SystemOwner])
	assert.Equal(t, 2, counts["journal"])
}

func TestCommitTimestampMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	// Write only the metadata side to simulate a partial commit
	require.NoError(t, db.Metadata().SetCommitTimestamp(42, nil))
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.NotNil(t, db)
	defer db.Close() //nolint:errcheck
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(42), tsErr.MetadataTimestamp)
	assert.Equal(t, int64(0), tsErr.BlobTimestamp)
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetAccount(testAddress(3), &models.Account{Lamports: 7}, txn)
	}))
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	account, err := db.GetAccount(testAddress(3), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), account.Lamports)
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{BlobPlugin: "nope"})
	require.Error(t, err)
}
