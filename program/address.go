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

package program

import (
	"encoding/binary"

	"github.com/blinklabs-io/journal/ledger"
	"golang.org/x/crypto/blake2b"
)

const (
	CounterTag = "journal-counter"
	EntryTag   = "journal-entry"
)

// DeriveAddress hashes the tag followed by the raw components. Nothing else
// goes into the digest, so addresses are predictable from their inputs alone
func DeriveAddress(tag string, components ...[]byte) ledger.Address {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(tag))
	for _, c := range components {
		h.Write(c)
	}
	var ret ledger.Address
	copy(ret[:], h.Sum(nil))
	return ret
}

// CounterAddress returns the address of the single counter record
func CounterAddress() ledger.Address {
	return DeriveAddress(CounterTag)
}

// EntryAddress returns the address of the entry created by owner at seq
func EntryAddress(seq uint32, owner ledger.Address) ledger.Address {
	return DeriveAddress(EntryTag, sequenceBytes(seq), owner.Bytes())
}

func sequenceBytes(seq uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, seq)
}
