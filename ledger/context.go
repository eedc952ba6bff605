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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/journal/database"
	"github.com/blinklabs-io/journal/database/models"
)

// ExecContext is the account API handed to a program while it executes a
// single transaction. Every change goes through the enclosing database
// transaction and is discarded if the program returns an error
type ExecContext struct {
	ctx        context.Context
	db         *database.Database
	txn        *database.Txn
	logger     *slog.Logger
	changeIdx  map[Address]int
	programID  string
	changes    []AccountChange
	returnData []byte
	signer     Address
}

func newExecContext(
	ctx context.Context,
	db *database.Database,
	txn *database.Txn,
	logger *slog.Logger,
	signer Address,
	programID string,
) *ExecContext {
	return &ExecContext{
		ctx:       ctx,
		db:        db,
		txn:       txn,
		logger:    logger,
		signer:    signer,
		programID: programID,
		changeIdx: make(map[Address]int),
	}
}

func (c *ExecContext) Context() context.Context {
	return c.ctx
}

func (c *ExecContext) Logger() *slog.Logger {
	return c.logger
}

// Signer returns the verified signer of the transaction
func (c *ExecContext) Signer() Address {
	return c.signer
}

func (c *ExecContext) ProgramID() string {
	return c.programID
}

// SetReturnData attaches opaque result bytes to the receipt
func (c *ExecContext) SetReturnData(data []byte) {
	c.returnData = append([]byte(nil), data...)
}

// Load returns a copy of the account at addr
func (c *ExecContext) Load(addr Address) (*models.Account, error) {
	account, err := c.db.GetAccount(addr.Bytes(), c.txn)
	if err != nil {
		if errors.Is(err, database.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}
		return nil, err
	}
	return account, nil
}

// Exists reports whether an account is stored at addr
func (c *ExecContext) Exists(addr Address) (bool, error) {
	_, err := c.db.GetAccount(addr.Bytes(), c.txn)
	if err != nil {
		if errors.Is(err, database.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Allocate creates a zeroed account of the given data size owned by the
// executing program. The payer funds the deposit and must be the signer
func (c *ExecContext) Allocate(addr Address, size int, payer Address) error {
	if size < 0 {
		return fmt.Errorf("invalid account size %d", size)
	}
	if payer != c.signer {
		return ErrPayerNotSigner
	}
	exists, err := c.Exists(addr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAccountInUse, addr)
	}
	deposit := MinimumBalance(size)
	if err := c.debit(payer, deposit); err != nil {
		return err
	}
	account := &models.Account{
		Lamports: deposit,
		Owner:    c.programID,
		Data:     make([]byte, size),
	}
	if err := c.store(addr, account, models.AccountChangeCreated); err != nil {
		return err
	}
	c.logger.Debug(
		"allocated account",
		"component", "ledger",
		"address", addr.String(),
		"size", size,
		"deposit", deposit,
	)
	return nil
}

// Realloc resizes a program-owned account. Growth is charged to the payer
// and shrinking refunds the excess deposit to it
func (c *ExecContext) Realloc(addr Address, size int, payer Address) error {
	if size < 0 {
		return fmt.Errorf("invalid account size %d", size)
	}
	if payer != c.signer {
		return ErrPayerNotSigner
	}
	account, err := c.loadOwned(addr)
	if err != nil {
		return err
	}
	if len(account.Data) == size {
		return nil
	}
	deposit := MinimumBalance(size)
	switch {
	case deposit > account.Lamports:
		diff := deposit - account.Lamports
		if err := c.debit(payer, diff); err != nil {
			return err
		}
		account.Lamports += diff
	case deposit < account.Lamports:
		diff := account.Lamports - deposit
		if err := c.credit(payer, diff); err != nil {
			return err
		}
		account.Lamports -= diff
	}
	newData := make([]byte, size)
	copy(newData, account.Data)
	account.Data = newData
	return c.store(addr, account, models.AccountChangeUpdated)
}

// Write copies data into a program-owned account at the given offset
func (c *ExecContext) Write(addr Address, offset int, data []byte) error {
	account, err := c.loadOwned(addr)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > len(account.Data) {
		return fmt.Errorf(
			"%w: %d bytes at offset %d, account holds %d",
			ErrAccountDataTooSmall,
			len(data),
			offset,
			len(account.Data),
		)
	}
	copy(account.Data[offset:], data)
	return c.store(addr, account, models.AccountChangeUpdated)
}

// Close removes a program-owned account and credits its lamports to refundTo
func (c *ExecContext) Close(addr Address, refundTo Address) error {
	account, err := c.loadOwned(addr)
	if err != nil {
		return err
	}
	if err := c.db.DeleteAccount(addr.Bytes(), c.txn); err != nil {
		return err
	}
	c.recordChange(addr, &models.Account{Owner: account.Owner}, models.AccountChangeClosed)
	if err := c.credit(refundTo, account.Lamports); err != nil {
		return err
	}
	c.logger.Debug(
		"closed account",
		"component", "ledger",
		"address", addr.String(),
		"refund", account.Lamports,
		"refund_to", refundTo.String(),
	)
	return nil
}

func (c *ExecContext) loadOwned(addr Address) (*models.Account, error) {
	account, err := c.Load(addr)
	if err != nil {
		return nil, err
	}
	if account.Owner != c.programID {
		return nil, fmt.Errorf(
			"%w: %s is owned by %q",
			ErrAccountOwnerMismatch,
			addr,
			account.Owner,
		)
	}
	return account, nil
}

func (c *ExecContext) debit(addr Address, lamports uint64) error {
	account, err := c.Load(addr)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return fmt.Errorf(
				"%w: %s has no balance, needs %d",
				ErrInsufficientFunds,
				addr,
				lamports,
			)
		}
		return err
	}
	if account.Owner != models.SystemOwner {
		return fmt.Errorf("%w: payer %s is not a wallet", ErrAccountOwnerMismatch, addr)
	}
	if account.Lamports < lamports {
		return fmt.Errorf(
			"%w: %s has %d, needs %d",
			ErrInsufficientFunds,
			addr,
			account.Lamports,
			lamports,
		)
	}
	account.Lamports -= lamports
	return c.store(addr, account, models.AccountChangeUpdated)
}

func (c *ExecContext) credit(addr Address, lamports uint64) error {
	account, err := c.Load(addr)
	kind := models.AccountChangeUpdated
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		account = &models.Account{Owner: models.SystemOwner}
		kind = models.AccountChangeCreated
	}
	account.Lamports += lamports
	return c.store(addr, account, kind)
}

func (c *ExecContext) store(addr Address, account *models.Account, kind string) error {
	if err := c.db.SetAccount(addr.Bytes(), account, c.txn); err != nil {
		return err
	}
	c.recordChange(addr, account, kind)
	return nil
}

// recordChange keeps one entry per address. An account created and then
// updated in the same transaction stays "created"
func (c *ExecContext) recordChange(addr Address, account *models.Account, kind string) {
	change := AccountChange{
		Address:  addr,
		Kind:     kind,
		Owner:    account.Owner,
		Lamports: account.Lamports,
		DataSize: len(account.Data),
	}
	idx, ok := c.changeIdx[addr]
	if !ok {
		c.changeIdx[addr] = len(c.changes)
		c.changes = append(c.changes, change)
		return
	}
	prev := c.changes[idx]
	if prev.Kind == models.AccountChangeCreated && kind == models.AccountChangeUpdated {
		change.Kind = models.AccountChangeCreated
	}
	c.changes[idx] = change
}
