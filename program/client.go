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
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/ledger"
)

// Backend is the ledger surface the client needs. It is implemented by
// *ledger.LedgerState and by the HTTP API client
type Backend interface {
	Submit(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error)
	GetAccount(ctx context.Context, addr ledger.Address) (*models.Account, error)
}

// Client builds, signs and submits journal transactions for one key
type Client struct {
	backend   Backend
	key       ed25519.PrivateKey
	owner     ledger.Address
	nonceMu   sync.Mutex
	lastNonce uint64
}

func NewClient(backend Backend, key ed25519.PrivateKey) (*Client, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid ed25519 private key")
	}
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("unexpected public key type")
	}
	owner, err := ledger.NewAddress(pub)
	if err != nil {
		return nil, err
	}
	return &Client{
		backend: backend,
		key:     key,
		owner:   owner,
	}, nil
}

// Owner returns the address of the client's key
func (c *Client) Owner() ledger.Address {
	return c.owner
}

// nextNonce is time based but strictly increasing within the client
func (c *Client) nextNonce() uint64 {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	nonce := uint64(time.Now().UnixNano()) //nolint:gosec // wall clock is positive
	if nonce <= c.lastNonce {
		nonce = c.lastNonce + 1
	}
	c.lastNonce = nonce
	return nonce
}

func (c *Client) submit(ctx context.Context, ix *Instruction) (*ledger.Receipt, error) {
	data, err := ix.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode instruction: %w", err)
	}
	tx := ledger.NewTransaction(c.owner, c.nextNonce(), ProgramID, data)
	if err := tx.Sign(c.key); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return c.backend.Submit(ctx, tx)
}

// Initialize creates the counter record
func (c *Client) Initialize(ctx context.Context) (*ledger.Receipt, error) {
	return c.submit(ctx, NewInitializeInstruction())
}

// EnsureInitialized creates the counter record unless it already exists.
// It reports whether a new counter was created
func (c *Client) EnsureInitialized(ctx context.Context) (bool, error) {
	if _, err := c.Counter(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotInitialized) {
		return false, err
	}
	if _, err := c.Initialize(ctx); err != nil {
		// Lost a race with another initializer
		if errors.Is(err, ErrAlreadyInitialized) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create adds an entry and returns the sequence number it was assigned
func (c *Client) Create(
	ctx context.Context,
	title, message string,
) (uint32, *ledger.Receipt, error) {
	if err := validateLengths(title, message); err != nil {
		return 0, nil, err
	}
	receipt, err := c.submit(ctx, NewCreateInstruction(title, message))
	if err != nil {
		return 0, receipt, err
	}
	if len(receipt.ReturnData) != 4 {
		return 0, receipt, fmt.Errorf(
			"unexpected create return data: %x",
			receipt.ReturnData,
		)
	}
	return binary.LittleEndian.Uint32(receipt.ReturnData), receipt, nil
}

// Update rewrites the title and message of one of the client's entries
func (c *Client) Update(
	ctx context.Context,
	seq uint32,
	title, message string,
) (*ledger.Receipt, error) {
	if err := validateLengths(title, message); err != nil {
		return nil, err
	}
	ix := NewUpdateInstruction(seq, title, message).
		WithTarget(EntryAddress(seq, c.owner))
	return c.submit(ctx, ix)
}

// Delete removes one of the client's entries and refunds its deposit
func (c *Client) Delete(ctx context.Context, seq uint32) (*ledger.Receipt, error) {
	ix := NewDeleteInstruction(seq).WithTarget(EntryAddress(seq, c.owner))
	return c.submit(ctx, ix)
}

// Counter reads the counter record
func (c *Client) Counter(ctx context.Context) (*Counter, error) {
	return FetchCounter(ctx, c.backend)
}

// Entry reads the entry created by owner at seq
func (c *Client) Entry(
	ctx context.Context,
	seq uint32,
	owner ledger.Address,
) (*Entry, error) {
	return FetchEntry(ctx, c.backend, seq, owner)
}

// Entries returns the owner's live entries
func (c *Client) Entries(ctx context.Context, owner ledger.Address) ([]*Entry, error) {
	return FetchEntries(ctx, c.backend, owner)
}

// FetchCounter reads the counter record from a backend
func FetchCounter(ctx context.Context, backend Backend) (*Counter, error) {
	account, err := backend.GetAccount(ctx, CounterAddress())
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	counter := &Counter{}
	if err := counter.UnmarshalBinary(account.Data); err != nil {
		return nil, err
	}
	return counter, nil
}

// FetchEntry reads an entry record from a backend
func FetchEntry(
	ctx context.Context,
	backend Backend,
	seq uint32,
	owner ledger.Address,
) (*Entry, error) {
	addr := EntryAddress(seq, owner)
	account, err := backend.GetAccount(ctx, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, ErrNotFound.withDetail("sequence %d", seq)
		}
		return nil, err
	}
	entry := &Entry{}
	if err := entry.UnmarshalBinary(account.Data); err != nil {
		return nil, err
	}
	entry.Address = addr
	entry.Sequence = seq
	return entry, nil
}

// FetchEntries returns the owner's live entries by walking every sequence
// number issued so far. Deleted entries are skipped
func FetchEntries(
	ctx context.Context,
	backend Backend,
	owner ledger.Address,
) ([]*Entry, error) {
	counter, err := FetchCounter(ctx, backend)
	if err != nil {
		return nil, err
	}
	var ret []*Entry
	for seq := range counter.Count {
		entry, err := FetchEntry(ctx, backend, seq, owner)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		ret = append(ret, entry)
	}
	return ret, nil
}
