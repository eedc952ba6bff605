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

import "github.com/blinklabs-io/gouroboros/cbor"

// SystemOwner is the owner of plain wallet accounts that only carry lamports
const SystemOwner = "system"

// Account is the blob-stored state of a single ledger address
type Account struct {
	cbor.StructAsArray
	Lamports uint64
	Owner    string
	Data     []byte
}

// Clone returns a deep copy of the account
func (a *Account) Clone() *Account {
	ret := &Account{
		Lamports: a.Lamports,
		Owner:    a.Owner,
	}
	if a.Data != nil {
		ret.Data = make([]byte, len(a.Data))
		copy(ret.Data, a.Data)
	}
	return ret
}
