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
	"encoding/binary"
	"fmt"

	"github.com/blinklabs-io/journal/database/types"
)

// commitMarkerKey sits outside the account_ key space
var commitMarkerKey = []byte("journal_commit_ts")

// GetCommitTimestamp returns the unix milliseconds of the last journal
// commit, or types.ErrBlobKeyNotFound on a fresh store
func (b *BlobStoreBadger) GetCommitTimestamp() (int64, error) {
	txn := b.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	val, err := b.Get(txn, commitMarkerKey)
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf(
			"corrupt commit marker: expected 8 bytes, got %d",
			len(val),
		)
	}
	return int64(binary.BigEndian.Uint64(val)), nil //nolint:gosec
}

// SetCommitTimestamp records the commit time inside txn, so it lands
// together with the account writes it belongs to
func (b *BlobStoreBadger) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	return b.Set(
		txn,
		commitMarkerKey,
		binary.BigEndian.AppendUint64(nil, uint64(timestamp)), //nolint:gosec
	)
}
