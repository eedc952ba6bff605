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
	"fmt"
	"strings"
	"testing"

	"github.com/blinklabs-io/journal/ledger"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOwner() ledger.Address {
	var ret ledger.Address
	for i := range ret {
		ret[i] = byte(i)
	}
	return ret
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRecordSizes(t *testing.T) {
	assert.Equal(t, 12, CounterSize)
	assert.Equal(t, 198, EntrySize)
}

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, "71566e7c8c0e3a42", fmt.Sprintf("%x", Discriminator(EntryTypeName)))
	assert.Equal(t, "3af6e4c5e878cb81", fmt.Sprintf("%x", Discriminator(CounterTypeName)))
}

func TestEntryLayoutGolden(t *testing.T) {
	entry := &Entry{Owner: testOwner(), Title: "Day 1", Message: "Hello"}
	data, err := entry.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, EntrySize)
	newGoldie(t).Assert(t, "entry_layout", fmt.Appendf(nil, "%x\n", data))
}

func TestCounterLayoutGolden(t *testing.T) {
	counter := &Counter{Count: 7}
	data, err := counter.MarshalBinary()
	require.NoError(t, err)
	newGoldie(t).Assert(t, "counter_layout", fmt.Appendf(nil, "%x\n", data))
}

func TestEntrySizeIndependentOfContent(t *testing.T) {
	testDefs := []Entry{
		{},
		{Title: "a"},
		{Title: strings.Repeat("t", MaxTitleLength), Message: strings.Repeat("m", MaxMessageLength)},
	}
	for _, entry := range testDefs {
		data, err := entry.MarshalBinary()
		require.NoError(t, err)
		assert.Len(t, data, EntrySize)
		var decoded Entry
		require.NoError(t, decoded.UnmarshalBinary(data))
		assert.Equal(t, entry.Title, decoded.Title)
		assert.Equal(t, entry.Message, decoded.Message)
	}
}

func TestEntryLengthLimits(t *testing.T) {
	testDefs := []struct {
		title   string
		message string
		wantErr bool
	}{
		{title: strings.Repeat("t", 50), message: strings.Repeat("m", 100)},
		{title: strings.Repeat("t", 51), message: "", wantErr: true},
		{title: "", message: strings.Repeat("m", 101), wantErr: true},
		// limits are in bytes, each é is two
		{title: strings.Repeat("é", 25), message: ""},
		{title: strings.Repeat("é", 26), message: "", wantErr: true},
	}
	for _, testDef := range testDefs {
		entry := &Entry{Title: testDef.title, Message: testDef.message}
		_, err := entry.MarshalBinary()
		if testDef.wantErr {
			assert.ErrorIs(t, err, ErrLengthExceeded)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestUnmarshalRejectsBadRecords(t *testing.T) {
	var entry Entry
	require.ErrorIs(t, entry.UnmarshalBinary(make([]byte, 10)), ErrInvalidAccountData)
	// Right size, wrong header
	require.ErrorIs(t, entry.UnmarshalBinary(make([]byte, EntrySize)), ErrInvalidAccountData)

	counterData, err := (&Counter{Count: 1}).MarshalBinary()
	require.NoError(t, err)
	var counter Counter
	require.NoError(t, counter.UnmarshalBinary(counterData))
	assert.Equal(t, uint32(1), counter.Count)
	counterData[0] ^= 0xff
	require.ErrorIs(t, counter.UnmarshalBinary(counterData), ErrInvalidAccountData)

	// A length prefix beyond the field capacity
	data, err := (&Entry{}).MarshalBinary()
	require.NoError(t, err)
	data[entryTitleOffset] = 51
	require.ErrorIs(t, entry.UnmarshalBinary(data), ErrInvalidAccountData)
}
