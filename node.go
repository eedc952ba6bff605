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

package journal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/blinklabs-io/journal/api"
	"github.com/blinklabs-io/journal/event"
	"github.com/blinklabs-io/journal/ledger"
	"github.com/blinklabs-io/journal/program"
)

type Node struct {
	eventBus      *event.EventBus
	ledgerState   *ledger.LedgerState
	apiServer     *api.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
	mu            sync.Mutex
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		eventBus.Stop()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run starts the node and blocks until ctx is cancelled or Stop is called.
// The caller is expected to call Stop afterward
func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load state
	state, err := ledger.NewLedgerState(
		ledger.LedgerStateConfig{
			Logger:         n.config.logger,
			EventBus:       n.eventBus,
			PromRegistry:   n.config.promRegistry,
			DataDir:        n.config.dataDir,
			BlobPlugin:     n.config.blobPlugin,
			MetadataPlugin: n.config.metadataPlugin,
			Faucet:         n.config.faucet,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load state database: %w", err)
	}
	if !n.setLedgerState(state) {
		// Stopped while loading
		return state.Close()
	}
	if err := n.ledgerState.RegisterProgram(program.New()); err != nil {
		return fmt.Errorf("failed to register journal program: %w", err)
	}
	// Create the counter before accepting requests
	if n.config.operatorKey != nil {
		if err := n.initJournal(ctx); err != nil {
			return fmt.Errorf("failed to initialize journal: %w", err)
		}
	}
	// Configure API server
	server := api.NewServer(
		api.ServerConfig{
			Logger:        n.config.logger,
			Backend:       n.ledgerState,
			EventBus:      n.eventBus,
			PromRegistry:  n.config.promRegistry,
			PromGatherer:  n.config.promGatherer,
			ListenAddress: n.config.listenAddress,
			Version:       n.config.version,
		},
	)
	if err := server.Start(ctx); err != nil {
		return err
	}
	if !n.setAPIServer(server) {
		//nolint:contextcheck
		return server.Stop(context.Background())
	}

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

// initJournal funds the operator from the faucet when needed and creates the
// counter record if it does not exist yet
func (n *Node) initJournal(ctx context.Context) error {
	client, err := program.NewClient(n.ledgerState, n.config.operatorKey)
	if err != nil {
		return err
	}
	operator := client.Owner()
	if _, err := client.Counter(ctx); err == nil {
		return nil
	} else if !errors.Is(err, program.ErrNotInitialized) {
		return err
	}
	if n.config.faucet {
		var balance uint64
		account, err := n.ledgerState.GetAccount(ctx, operator)
		switch {
		case err == nil:
			balance = account.Lamports
		case !errors.Is(err, ledger.ErrAccountNotFound):
			return err
		}
		required := ledger.MinimumBalance(program.CounterSize)
		if balance < required {
			amount := n.config.operatorFunding
			if amount < required-balance {
				amount = required - balance
			}
			if _, err := n.ledgerState.Airdrop(ctx, operator, amount); err != nil {
				return fmt.Errorf("failed to fund operator: %w", err)
			}
		}
	}
	created, err := client.EnsureInitialized(ctx)
	if err != nil {
		return err
	}
	if created {
		n.config.logger.Info(
			"created journal counter",
			"component", "node",
			"operator", operator.String(),
			"address", program.CounterAddress().String(),
		)
	}
	return nil
}

func (n *Node) stopped() bool {
	select {
	case <-n.done:
		return true
	default:
		return false
	}
}

func (n *Node) setLedgerState(state *ledger.LedgerState) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped() {
		return false
	}
	n.ledgerState = state
	return true
}

func (n *Node) setAPIServer(server *api.Server) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped() {
		return false
	}
	n.apiServer = server
	return true
}

// LedgerState returns the node's ledger, or nil before Run has loaded it
func (n *Node) LedgerState() *ledger.LedgerState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledgerState
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// APIAddr returns the bound API listen address, or nil before the server has started
func (n *Node) APIAddr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.apiServer == nil {
		return nil
	}
	return n.apiServer.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		n.shutdownDeadline(),
	)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	// Closing done under the lock keeps Run from attaching new components
	n.mu.Lock()
	close(n.done)
	apiServer := n.apiServer
	ledgerState := n.ledgerState
	shutdownFuncs := n.shutdownFuncs
	n.shutdownFuncs = nil
	n.mu.Unlock()

	if apiServer != nil {
		if stopErr := apiServer.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("API server shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush state and close database
	n.config.logger.Debug("shutdown phase 2: flushing state")

	if ledgerState != nil {
		if closeErr := ledgerState.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("ledger state close: %w", closeErr),
			)
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")

	return err
}

// shutdownDeadline reports how long Stop waits for components to drain
func (n *Node) shutdownDeadline() time.Duration {
	if n.config.shutdownTimeout > 0 {
		return n.config.shutdownTimeout
	}
	return defaultShutdownTimeout
}
