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

// Package testutil provides shared helpers for journal tests: an in-memory
// ledger with the journal program registered, funded signing keys and
// channel synchronization helpers.
package testutil

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/blinklabs-io/journal/event"
	"github.com/blinklabs-io/journal/ledger"
	"github.com/blinklabs-io/journal/program"
	"github.com/stretchr/testify/require"
)

// DefaultFunding is enough lamports for a handful of entry deposits
const DefaultFunding uint64 = 1_000_000_000

// LedgerOptionFunc adjusts the ledger config used by NewLedger
type LedgerOptionFunc func(*ledger.LedgerStateConfig)

// WithEventBus publishes ledger events on bus
func WithEventBus(bus *event.EventBus) LedgerOptionFunc {
	return func(c *ledger.LedgerStateConfig) {
		c.EventBus = bus
	}
}

// WithoutFaucet disables Airdrop on the ledger
func WithoutFaucet() LedgerOptionFunc {
	return func(c *ledger.LedgerStateConfig) {
		c.Faucet = false
	}
}

// NewLedger returns an in-memory ledger with the faucet enabled and the
// journal program registered. It is closed when the test ends
func NewLedger(t *testing.T, opts ...LedgerOptionFunc) *ledger.LedgerState {
	t.Helper()
	cfg := ledger.LedgerStateConfig{Faucet: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	ls, err := ledger.NewLedgerState(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ls.Close() //nolint:errcheck
	})
	require.NoError(t, ls.RegisterProgram(program.New()))
	return ls
}

// NewFundedKey generates a signing key and airdrops lamports to its wallet
func NewFundedKey(
	t *testing.T,
	ls *ledger.LedgerState,
	lamports uint64,
) ed25519.PrivateKey {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	addr, err := ledger.NewAddress(key.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	_, err = ls.Airdrop(context.Background(), addr, lamports)
	require.NoError(t, err)
	return key
}

// WaitForCondition polls the given condition function until it returns true
// or the timeout expires.
func WaitForCondition(
	t *testing.T,
	condition func() bool,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	require.Eventually(
		t,
		condition,
		timeout,
		10*time.Millisecond,
		msg,
	)
}

// RequireReceive waits for a value on the given channel or fails the test
// if the timeout expires.
func RequireReceive[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for channel receive: %s", msg)
		var zero T
		return zero // unreachable
	}
}

// RequireNoReceive verifies that no value is received on the given channel
// within the specified duration.
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	duration time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf(
			"unexpected value received on channel: %v: %s",
			v,
			msg,
		)
	case <-time.After(duration):
		// Expected: nothing received
	}
}
