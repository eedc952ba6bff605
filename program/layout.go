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
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/blinklabs-io/journal/ledger"
)

const (
	DiscriminatorSize = 8
	MaxTitleLength    = 50
	MaxMessageLength  = 100

	CounterTypeName = "JournalEntryCounterState"
	EntryTypeName   = "JournalEntryState"

	// CounterSize is the discriminator plus a u32 count
	CounterSize = DiscriminatorSize + 4
	// EntrySize is the discriminator, the owner and both length-prefixed
	// fields at their maximum capacity
	EntrySize = DiscriminatorSize + ledger.AddressLength + 4 + MaxTitleLength + 4 + MaxMessageLength

	entryOwnerOffset   = DiscriminatorSize
	entryTitleOffset   = entryOwnerOffset + ledger.AddressLength
	entryMessageOffset = entryTitleOffset + 4 + MaxTitleLength
)

var (
	counterDiscriminator = Discriminator(CounterTypeName)
	entryDiscriminator   = Discriminator(EntryTypeName)
)

// Discriminator returns the 8-byte record header for a type name
func Discriminator(typeName string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + typeName))
	var ret [DiscriminatorSize]byte
	copy(ret[:], sum[:DiscriminatorSize])
	return ret
}

// Counter is the next sequence number to assign
type Counter struct {
	Count uint32 `json:"count"`
}

func (c *Counter) MarshalBinary() ([]byte, error) {
	ret := make([]byte, CounterSize)
	copy(ret, counterDiscriminator[:])
	binary.LittleEndian.PutUint32(ret[DiscriminatorSize:], c.Count)
	return ret, nil
}

func (c *Counter) UnmarshalBinary(data []byte) error {
	if len(data) != CounterSize {
		return ErrInvalidAccountData.withDetail(
			"counter record is %d bytes, expected %d",
			len(data),
			CounterSize,
		)
	}
	if !bytes.Equal(data[:DiscriminatorSize], counterDiscriminator[:]) {
		return ErrInvalidAccountData.withDetail("not a counter record")
	}
	c.Count = binary.LittleEndian.Uint32(data[DiscriminatorSize:])
	return nil
}

// Entry is a journal entry record. Sequence and Address are not stored in
// the record, they are filled in from the lookup that found it
type Entry struct {
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Owner    ledger.Address `json:"owner"`
	Address  ledger.Address `json:"address"`
	Sequence uint32         `json:"sequence"`
}

func validateLengths(title, message string) error {
	if len(title) > MaxTitleLength {
		return ErrLengthExceeded.withDetail(
			"title is %d bytes, limit is %d",
			len(title),
			MaxTitleLength,
		)
	}
	if len(message) > MaxMessageLength {
		return ErrLengthExceeded.withDetail(
			"message is %d bytes, limit is %d",
			len(message),
			MaxMessageLength,
		)
	}
	return nil
}

// MarshalBinary always produces EntrySize bytes, zero padding unused capacity
func (e *Entry) MarshalBinary() ([]byte, error) {
	if err := validateLengths(e.Title, e.Message); err != nil {
		return nil, err
	}
	ret := make([]byte, EntrySize)
	copy(ret, entryDiscriminator[:])
	copy(ret[entryOwnerOffset:], e.Owner[:])
	putField(ret[entryTitleOffset:], e.Title)
	putField(ret[entryMessageOffset:], e.Message)
	return ret, nil
}

func (e *Entry) UnmarshalBinary(data []byte) error {
	if len(data) != EntrySize {
		return ErrInvalidAccountData.withDetail(
			"entry record is %d bytes, expected %d",
			len(data),
			EntrySize,
		)
	}
	if !bytes.Equal(data[:DiscriminatorSize], entryDiscriminator[:]) {
		return ErrInvalidAccountData.withDetail("not an entry record")
	}
	copy(e.Owner[:], data[entryOwnerOffset:entryTitleOffset])
	title, err := getField(data[entryTitleOffset:entryMessageOffset], MaxTitleLength)
	if err != nil {
		return err
	}
	message, err := getField(data[entryMessageOffset:], MaxMessageLength)
	if err != nil {
		return err
	}
	e.Title = title
	e.Message = message
	return nil
}

func putField(dst []byte, value string) {
	binary.LittleEndian.PutUint32(dst, uint32(len(value))) //nolint:gosec // length checked against field capacity
	copy(dst[4:], value)
}

func getField(src []byte, capacity int) (string, error) {
	length := int(binary.LittleEndian.Uint32(src))
	if length > capacity {
		return "", ErrInvalidAccountData.withDetail(
			"field length %d exceeds capacity %d",
			length,
			capacity,
		)
	}
	return string(src[4 : 4+length]), nil
}
