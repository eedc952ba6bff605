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
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/journal/database"
	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/event"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/journal/ledger"

type LedgerStateConfig struct {
	Logger         *slog.Logger
	EventBus       *event.EventBus
	PromRegistry   prometheus.Registerer
	DataDir        string
	BlobPlugin     string
	MetadataPlugin string
	// Faucet enables Airdrop
	Faucet bool
}

type LedgerState struct {
	// applyMutex serializes transaction application
	applyMutex sync.Mutex
	config     LedgerStateConfig
	db         *database.Database
	programs   map[string]Program
	programsMu sync.RWMutex
	metrics    stateMetrics
	tracer     trace.Tracer
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	ls := &LedgerState{
		config:   cfg,
		programs: make(map[string]Program),
		tracer:   otel.Tracer(tracerName),
	}
	// Init metrics
	ls.metrics.init(ls.config.PromRegistry)
	// Load database
	db, err := database.New(&database.Config{
		Logger:         cfg.Logger,
		PromRegistry:   cfg.PromRegistry,
		DataDir:        cfg.DataDir,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		ls.config.Logger.Error(
			"failed to create database",
			"error", err,
			"component", "ledger",
		)
		return nil, err
	}
	ls.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			_ = db.Close()
			return nil, err
		}
		ls.config.Logger.Warn(
			"database initialization error, needs recovery",
			"error", err,
			"component", "ledger",
		)
		if err := ls.recoverCommitTimestampConflict(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to recover database: %w", err)
		}
	}
	// Seed the live account gauge
	counts, err := ls.db.CountAccounts(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	for owner, count := range counts {
		ls.metrics.accounts.WithLabelValues(owner).Set(float64(count))
	}
	return ls, nil
}

// recoverCommitTimestampConflict re-stamps both stores after a partial commit.
// The blob store commits first, so its account state is authoritative
func (ls *LedgerState) recoverCommitTimestampConflict() error {
	txn := ls.db.Transaction(true)
	if err := txn.Commit(); err != nil {
		return err
	}
	ls.config.Logger.Warn(
		"commit timestamps realigned, the transaction log may be missing the last entry",
		"component", "ledger",
	)
	return nil
}

// Database returns the underlying database
func (ls *LedgerState) Database() *database.Database {
	return ls.db
}

func (ls *LedgerState) Close() error {
	return ls.db.Close()
}

// RegisterProgram makes a program callable by transactions addressed to its ID
func (ls *LedgerState) RegisterProgram(p Program) error {
	ls.programsMu.Lock()
	defer ls.programsMu.Unlock()
	if p.ID() == "" || p.ID() == models.SystemOwner {
		return fmt.Errorf("invalid program ID %q", p.ID())
	}
	if _, ok := ls.programs[p.ID()]; ok {
		return fmt.Errorf("program %q already registered", p.ID())
	}
	ls.programs[p.ID()] = p
	return nil
}

func (ls *LedgerState) program(id string) (Program, bool) {
	ls.programsMu.RLock()
	defer ls.programsMu.RUnlock()
	p, ok := ls.programs[id]
	return p, ok
}

// Submit verifies and applies a transaction. All of its account changes and
// its transaction log entry commit together, or nothing does. A receipt is
// returned for any transaction that could be hashed, including failures
func (ls *LedgerState) Submit(ctx context.Context, tx *Transaction) (*Receipt, error) {
	startTime := time.Now()
	hash, err := tx.Hash()
	if err != nil {
		ls.metrics.transactions.WithLabelValues(string(ReceiptStatusFailed)).Inc()
		return nil, fmt.Errorf("hash transaction: %w", err)
	}
	ctx, span := ls.tracer.Start(
		ctx,
		"ledger.Submit",
		trace.WithAttributes(
			attribute.String("tx.hash", hash.String()),
			attribute.String("tx.program", tx.Body.ProgramID),
		),
	)
	defer span.End()
	receipt := &Receipt{
		Hash:   hash,
		Status: ReceiptStatusFailed,
	}
	execCtx, err := ls.apply(ctx, tx, hash, receipt)
	if err != nil {
		receipt.Error = err.Error()
		var coded CodedError
		if errors.As(err, &coded) {
			receipt.ErrorCode = coded.ErrorCode()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ls.metrics.transactions.WithLabelValues(string(ReceiptStatusFailed)).Inc()
		ls.config.Logger.Debug(
			"transaction failed",
			"component", "ledger",
			"hash", hash.String(),
			"error", err,
		)
		return receipt, err
	}
	receipt.Status = ReceiptStatusSuccess
	receipt.Accounts = execCtx.changes
	receipt.ReturnData = execCtx.returnData
	ls.metrics.transactions.WithLabelValues(string(ReceiptStatusSuccess)).Inc()
	ls.metrics.applyLatency.Observe(time.Since(startTime).Seconds())
	ls.updateAccountGauge(execCtx.changes)
	ls.publish(execCtx.signer, receipt)
	ls.config.Logger.Info(
		"transaction applied",
		"component", "ledger",
		"hash", hash.String(),
		"program", tx.Body.ProgramID,
		"instruction", receipt.Instruction,
	)
	return receipt, nil
}

func (ls *LedgerState) apply(
	ctx context.Context,
	tx *Transaction,
	hash Hash,
	receipt *Receipt,
) (*ExecContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tx.Verify(); err != nil {
		return nil, err
	}
	signer, err := tx.Signer()
	if err != nil {
		return nil, err
	}
	program, ok := ls.program(tx.Body.ProgramID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, tx.Body.ProgramID)
	}
	if namer, ok := program.(InstructionNamer); ok {
		receipt.Instruction = namer.InstructionName(tx.Body.Data)
	}
	ls.applyMutex.Lock()
	defer ls.applyMutex.Unlock()
	var execCtx *ExecContext
	err = ls.db.Transaction(true).Do(func(txn *database.Txn) error {
		existing, err := ls.db.GetTransactionByHash(hash.Bytes(), txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, hash)
		}
		execCtx = newExecContext(
			ctx,
			ls.db,
			txn,
			ls.config.Logger,
			signer,
			program.ID(),
		)
		if err := program.Execute(execCtx, tx.Body.Data); err != nil {
			return err
		}
		tmpTx := &models.Transaction{
			Hash:        hash.Bytes(),
			Signer:      signer.Bytes(),
			ProgramID:   program.ID(),
			Instruction: receipt.Instruction,
			ReturnData:  execCtx.returnData,
		}
		for _, change := range execCtx.changes {
			tmpTx.Changes = append(tmpTx.Changes, accountChangeToModel(change))
		}
		return ls.db.SetTransaction(tmpTx, txn)
	})
	if err != nil {
		return nil, err
	}
	return execCtx, nil
}

// Airdrop credits lamports to a wallet, creating it if needed
func (ls *LedgerState) Airdrop(
	ctx context.Context,
	addr Address,
	lamports uint64,
) (*models.Account, error) {
	if !ls.config.Faucet {
		return nil, ErrFaucetDisabled
	}
	_, span := ls.tracer.Start(
		ctx,
		"ledger.Airdrop",
		trace.WithAttributes(attribute.String("address", addr.String())),
	)
	defer span.End()
	ls.applyMutex.Lock()
	defer ls.applyMutex.Unlock()
	var ret *models.Account
	created := false
	err := ls.db.Transaction(true).Do(func(txn *database.Txn) error {
		account, err := ls.db.GetAccount(addr.Bytes(), txn)
		if err != nil {
			if !errors.Is(err, database.ErrAccountNotFound) {
				return err
			}
			account = &models.Account{Owner: models.SystemOwner}
			created = true
		}
		if account.Owner != models.SystemOwner {
			return fmt.Errorf("%w: %s is not a wallet", ErrAccountOwnerMismatch, addr)
		}
		account.Lamports += lamports
		ret = account
		return ls.db.SetAccount(addr.Bytes(), account, txn)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	ls.metrics.airdrops.Add(float64(lamports))
	kind := models.AccountChangeUpdated
	if created {
		kind = models.AccountChangeCreated
		ls.metrics.accounts.WithLabelValues(models.SystemOwner).Inc()
	}
	if ls.config.EventBus != nil {
		ls.config.EventBus.PublishAsync(
			AccountEventType,
			event.NewEvent(
				AccountEventType,
				AccountEvent{Address: addr, Kind: kind, Account: ret.Clone()},
			),
		)
	}
	ls.config.Logger.Info(
		"airdrop",
		"component", "ledger",
		"address", addr.String(),
		"lamports", lamports,
	)
	return ret, nil
}

// GetAccount returns the committed state of an account
func (ls *LedgerState) GetAccount(
	ctx context.Context,
	addr Address,
) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	account, err := ls.db.GetAccount(addr.Bytes(), nil)
	if err != nil {
		if errors.Is(err, database.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}
		return nil, err
	}
	return account, nil
}

// GetTransaction returns a committed transaction from the log, or nil if unknown
func (ls *LedgerState) GetTransaction(
	ctx context.Context,
	hash Hash,
) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ls.db.GetTransactionByHash(hash.Bytes(), nil)
}

// GetAccountHistory returns the recorded lifecycle of an account
func (ls *LedgerState) GetAccountHistory(
	ctx context.Context,
	addr Address,
) ([]models.AccountChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ls.db.GetAccountChanges(addr.Bytes(), nil)
}

func (ls *LedgerState) updateAccountGauge(changes []AccountChange) {
	for _, change := range changes {
		switch change.Kind {
		case models.AccountChangeCreated:
			ls.metrics.accounts.WithLabelValues(change.Owner).Inc()
		case models.AccountChangeClosed:
			ls.metrics.accounts.WithLabelValues(change.Owner).Dec()
		}
	}
}

func (ls *LedgerState) publish(signer Address, receipt *Receipt) {
	if ls.config.EventBus == nil {
		return
	}
	ls.config.EventBus.PublishAsync(
		TransactionEventType,
		event.NewEvent(
			TransactionEventType,
			TransactionEvent{Receipt: *receipt, Signer: signer},
		),
	)
	for _, change := range receipt.Accounts {
		evt := AccountEvent{Address: change.Address, Kind: change.Kind}
		if change.Kind != models.AccountChangeClosed {
			account, err := ls.db.GetAccount(change.Address.Bytes(), nil)
			if err == nil {
				evt.Account = account
			}
		}
		ls.config.EventBus.PublishAsync(
			AccountEventType,
			event.NewEvent(AccountEventType, evt),
		)
	}
}
