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

package models

// Account change kinds recorded alongside a transaction
const (
	AccountChangeCreated = "created"
	AccountChangeUpdated = "updated"
	AccountChangeClosed  = "closed"
)

// AccountChange records one account touched by a committed transaction
type AccountChange struct {
	Address       []byte `gorm:"index;size:32"`
	Kind          string
	Owner         string
	ID            uint `gorm:"primaryKey"`
	TransactionID uint `gorm:"index"`
	Lamports      uint64
	DataSize      int
}

func (AccountChange) TableName() string {
	return "account_change"
}
