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

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/journal/api"
	"github.com/blinklabs-io/journal/internal/test/testutil"
	"github.com/blinklabs-io/journal/ledger"
	"github.com/blinklabs-io/journal/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliHarness struct {
	serverURL   string
	keystoreDir string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	// Keep the user's config file out of the test
	t.Setenv("HOME", t.TempDir())
	ls := testutil.NewLedger(t)
	server := api.NewServer(api.ServerConfig{Backend: ls})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &cliHarness{
		serverURL:   ts.URL,
		keystoreDir: t.TempDir(),
	}
}

func (h *cliHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(
		[]string{"--server", h.serverURL, "--keystore", h.keystoreDir},
		args...,
	))
	err := cmd.Execute()
	return out.String(), err
}

func (h *cliHarness) runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), v))
}

func TestCLIJournalLifecycle(t *testing.T) {
	h := newCLIHarness(t)

	var keygen map[string]string
	h.runJSON(t, &keygen, "keygen")
	assert.Equal(t, "default", keygen["name"])
	addr, err := ledger.ParseAddress(keygen["address"])
	require.NoError(t, err)

	var funded api.AccountResponse
	h.runJSON(t, &funded, "airdrop", "1000000000")
	assert.Equal(t, addr, funded.Address)
	assert.Equal(t, uint64(1_000_000_000), funded.Lamports)

	var initOut receiptOutput
	h.runJSON(t, &initOut, "init")
	assert.Equal(t, ledger.ReceiptStatusSuccess, initOut.Receipt.Status)

	_, err = h.run(t, "init")
	require.ErrorIs(t, err, program.ErrAlreadyInitialized)

	var created receiptOutput
	h.runJSON(t, &created, "create", "Day 1", "Hello")
	require.NotNil(t, created.Sequence)
	assert.Equal(t, uint32(0), *created.Sequence)

	var entry program.Entry
	h.runJSON(t, &entry, "show", "0")
	assert.Equal(t, "Day 1", entry.Title)
	assert.Equal(t, "Hello", entry.Message)
	assert.Equal(t, addr, entry.Owner)

	h.runJSON(t, &created, "update", "0", "Day 1 edit", "Hello!")

	var entries []program.Entry
	h.runJSON(t, &entries, "entries", "--owner", addr.String())
	require.Len(t, entries, 1)
	assert.Equal(t, "Day 1 edit", entries[0].Title)
	assert.Equal(t, "Hello!", entries[0].Message)

	h.runJSON(t, &created, "delete", "0")

	_, err = h.run(t, "show", "0")
	require.ErrorIs(t, err, program.ErrNotFound)

	var counter map[string]any
	h.runJSON(t, &counter, "show")
	assert.InDelta(t, 1, counter["count"], 0)

	h.runJSON(t, &entries, "entries")
	assert.Empty(t, entries)

	var balance map[string]any
	h.runJSON(t, &balance, "balance")
	assert.Equal(t, addr.String(), balance["address"])
}

func TestCLIRejectsLongTitle(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run(t, "keygen")
	require.NoError(t, err)
	long := string(bytes.Repeat([]byte("a"), program.MaxTitleLength+1))
	_, err = h.run(t, "create", long, "message")
	require.ErrorIs(t, err, program.ErrLengthExceeded)
}

func TestCLIInvalidSequence(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run(t, "show", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sequence number")
}

func TestCLIMissingKey(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run(t, "--key", "nobody", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to load key "nobody"`)
}

func TestCLIBalanceUnknownAccount(t *testing.T) {
	h := newCLIHarness(t)
	var keygen map[string]string
	h.runJSON(t, &keygen, "keygen", "other")
	var balance map[string]any
	h.runJSON(t, &balance, "balance", keygen["address"])
	assert.InDelta(t, 0, balance["lamports"], 0)
}

func TestCLIVersionAndPlugins(t *testing.T) {
	out, err := runOutput(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "journal")
	assert.Contains(t, listAllPlugins(), "badger")
	assert.Contains(t, listAllPlugins(), "sqlite")
}

func runOutput(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
