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
	"encoding/binary"
	"errors"
	"math"

	"github.com/blinklabs-io/journal/ledger"
)

// ProgramID is the ID journal transactions are addressed to
const ProgramID = "journal"

// Program manages the counter record and the entry records
type Program struct{}

func New() *Program {
	return &Program{}
}

func (p *Program) ID() string {
	return ProgramID
}

func (p *Program) InstructionName(data []byte) string {
	ix, err := DecodeInstruction(data)
	if err != nil {
		return "invalid"
	}
	return ix.Kind.String()
}

func (p *Program) Execute(ctx *ledger.ExecContext, data []byte) error {
	ix, err := DecodeInstruction(data)
	if err != nil {
		return err
	}
	switch ix.Kind {
	case InstructionInitialize:
		return p.initialize(ctx)
	case InstructionCreate:
		return p.create(ctx, ix)
	case InstructionUpdate:
		return p.update(ctx, ix)
	case InstructionDelete:
		return p.delete(ctx, ix)
	}
	return ErrInvalidInstruction
}

func (p *Program) initialize(ctx *ledger.ExecContext) error {
	addr := CounterAddress()
	if err := ctx.Allocate(addr, CounterSize, ctx.Signer()); err != nil {
		if errors.Is(err, ledger.ErrAccountInUse) {
			return ErrAlreadyInitialized
		}
		return err
	}
	return storeCounter(ctx, &Counter{Count: 0})
}

func (p *Program) create(ctx *ledger.ExecContext, ix *Instruction) error {
	if err := validateLengths(ix.Title, ix.Message); err != nil {
		return err
	}
	counter, err := loadCounter(ctx)
	if err != nil {
		return err
	}
	if counter.Count == math.MaxUint32 {
		return ErrCounterOverflow
	}
	seq := counter.Count
	signer := ctx.Signer()
	addr := EntryAddress(seq, signer)
	if err := ctx.Allocate(addr, EntrySize, signer); err != nil {
		if errors.Is(err, ledger.ErrAccountInUse) {
			return ErrAddressCollision.withDetail("sequence %d", seq)
		}
		return err
	}
	entry := &Entry{
		Owner:   signer,
		Title:   ix.Title,
		Message: ix.Message,
	}
	if err := storeEntry(ctx, addr, entry); err != nil {
		return err
	}
	counter.Count++
	if err := storeCounter(ctx, counter); err != nil {
		return err
	}
	ctx.SetReturnData(binary.LittleEndian.AppendUint32(nil, seq))
	ctx.Logger().Debug(
		"created journal entry",
		"component", "program",
		"sequence", seq,
		"address", addr.String(),
	)
	return nil
}

func (p *Program) update(ctx *ledger.ExecContext, ix *Instruction) error {
	if err := validateLengths(ix.Title, ix.Message); err != nil {
		return err
	}
	addr, entry, err := resolveEntry(ctx, ix)
	if err != nil {
		return err
	}
	// Keep the record at its maximum size regardless of the new field lengths
	if err := ctx.Realloc(addr, EntrySize, ctx.Signer()); err != nil {
		return err
	}
	entry.Title = ix.Title
	entry.Message = ix.Message
	return storeEntry(ctx, addr, entry)
}

func (p *Program) delete(ctx *ledger.ExecContext, ix *Instruction) error {
	addr, _, err := resolveEntry(ctx, ix)
	if err != nil {
		return err
	}
	return ctx.Close(addr, ctx.Signer())
}

// resolveEntry finds the signer's entry for the instruction's sequence
func resolveEntry(
	ctx *ledger.ExecContext,
	ix *Instruction,
) (ledger.Address, *Entry, error) {
	signer := ctx.Signer()
	addr := EntryAddress(ix.Sequence, signer)
	if len(ix.Target) > 0 && !bytes.Equal(ix.Target, addr.Bytes()) {
		return addr, nil, ErrUnauthorized.withDetail(
			"sequence %d does not resolve to the target address for this signer",
			ix.Sequence,
		)
	}
	account, err := ctx.Load(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return addr, nil, ErrNotFound.withDetail("sequence %d", ix.Sequence)
		}
		return addr, nil, err
	}
	if account.Owner != ProgramID {
		return addr, nil, ErrInvalidAccountData.withDetail("account owned by %q", account.Owner)
	}
	entry := &Entry{}
	if err := entry.UnmarshalBinary(account.Data); err != nil {
		return addr, nil, err
	}
	if entry.Owner != signer {
		return addr, nil, ErrUnauthorized.withDetail("entry belongs to %s", entry.Owner)
	}
	entry.Address = addr
	entry.Sequence = ix.Sequence
	return addr, entry, nil
}

func loadCounter(ctx *ledger.ExecContext) (*Counter, error) {
	account, err := ctx.Load(CounterAddress())
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	if account.Owner != ProgramID {
		return nil, ErrInvalidAccountData.withDetail("counter owned by %q", account.Owner)
	}
	counter := &Counter{}
	if err := counter.UnmarshalBinary(account.Data); err != nil {
		return nil, err
	}
	return counter, nil
}

func storeCounter(ctx *ledger.ExecContext, counter *Counter) error {
	data, err := counter.MarshalBinary()
	if err != nil {
		return err
	}
	return ctx.Write(CounterAddress(), 0, data)
}

func storeEntry(ctx *ledger.ExecContext, addr ledger.Address, entry *Entry) error {
	data, err := entry.MarshalBinary()
	if err != nil {
		return err
	}
	return ctx.Write(addr, 0, data)
}
