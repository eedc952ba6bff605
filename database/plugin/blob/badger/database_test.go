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

package badger_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/journal/database/plugin/blob/badger"
	"github.com/blinklabs-io/journal/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInMemoryStore(t *testing.T, opts ...badger.OptionFunc) *badger.BlobStoreBadger {
	t.Helper()
	store, err := badger.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSetGetDelete(t *testing.T) {
	store := newInMemoryStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v1")))
	// Reads inside the same transaction see pending writes
	val, err := store.Get(txn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	require.NoError(t, txn.Commit())

	readTxn := store.NewTransaction(false)
	val, err = store.Get(readTxn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	require.NoError(t, readTxn.Rollback())

	delTxn := store.NewTransaction(true)
	require.NoError(t, store.Delete(delTxn, []byte("k1")))
	require.NoError(t, delTxn.Commit())

	readTxn = store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	_, err = store.Get(readTxn, []byte("k1"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := newInMemoryStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	_, err := store.Get(readTxn, []byte("k"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestTxnValidation(t *testing.T) {
	store := newInMemoryStore(t)
	other := newInMemoryStore(t)

	_, err := store.Get(nil, []byte("k"))
	assert.ErrorIs(t, err, types.ErrNilTxn)

	readTxn := store.NewTransaction(false)
	assert.ErrorIs(t, store.Set(readTxn, []byte("k"), []byte("v")), types.ErrReadOnlyTxn)
	require.NoError(t, readTxn.Rollback())
	_, err = store.Get(readTxn, []byte("k"))
	assert.ErrorIs(t, err, types.ErrTxnFinished)

	foreignTxn := other.NewTransaction(false)
	defer foreignTxn.Rollback() //nolint:errcheck
	_, err = store.Get(foreignTxn, []byte("k"))
	assert.Error(t, err)
}

func TestIteratorPrefix(t *testing.T) {
	store := newInMemoryStore(t)
	txn := store.NewTransaction(true)
	for _, k := range []string{"a_1", "a_2", "b_1"} {
		require.NoError(t, store.Set(txn, []byte(k), []byte(k)))
	}
	require.NoError(t, txn.Commit())

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	iter := store.NewIterator(readTxn, types.BlobIteratorOptions{Prefix: []byte("a_")})
	defer iter.Close()
	var keys []string
	for iter.Rewind(); iter.ValidForPrefix([]byte("a_")); iter.Next() {
		keys = append(keys, string(iter.Item().Key()))
	}
	require.NoError(t, iter.Err())
	assert.Equal(t, []string{"a_1", "a_2"}, keys)
}

func TestCommitTimestamp(t *testing.T) {
	store := newInMemoryStore(t)
	_, err := store.GetCommitTimestamp()
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	ts := time.Now().UnixMilli()
	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(ts, txn))
	require.NoError(t, txn.Commit())

	got, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, ts, got)
	assert.ErrorIs(t, store.SetCommitTimestamp(ts, nil), types.ErrNilTxn)
}

func TestCommitTimestampCorruptMarker(t *testing.T) {
	store := newInMemoryStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("journal_commit_ts"), []byte{1, 2, 3}))
	require.NoError(t, txn.Commit())
	_, err := store.GetCommitTimestamp()
	require.ErrorContains(t, err, "corrupt commit marker")
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	store := newInMemoryStore(t, badger.WithPromRegistry(registry))
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("value")))
	require.NoError(t, txn.Commit())

	count, err := testutil.GatherAndCount(registry, "database_blob_ops_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
