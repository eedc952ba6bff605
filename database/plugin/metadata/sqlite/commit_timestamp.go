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
	"github.com/blinklabs-io/journal/database/types"
)

// commitMarkerID is the primary key of the only row in journal_commit
const commitMarkerID = 1

// CommitMarker holds the unix milliseconds of the last journal commit. The
// blob store keeps the same value so a partial commit can be detected on open
type CommitMarker struct {
	ID        uint  `gorm:"primarykey"`
	UnixMilli int64 `gorm:"not null"`
}

func (CommitMarker) TableName() string {
	return "journal_commit"
}

// GetCommitTimestamp returns 0 until the first commit is recorded
func (d *MetadataStoreSqlite) GetCommitTimestamp() (int64, error) {
	var marker CommitMarker
	result := d.DB().Where("id = ?", commitMarkerID).Limit(1).Find(&marker)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, nil
	}
	return marker.UnixMilli, nil
}

// SetCommitTimestamp upserts the marker row inside txn, or directly when txn
// is nil
func (d *MetadataStoreSqlite) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	marker := CommitMarker{
		ID:        commitMarkerID,
		UnixMilli: timestamp,
	}
	return db.Save(&marker).Error
}
