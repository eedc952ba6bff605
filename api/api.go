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

// Package api serves the ledger over HTTP and provides a client for it
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/journal/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultListenAddress = "127.0.0.1:8899"

	// Signed transactions are small, anything near this is garbage
	maxTransactionSize = 64 * 1024

	shutdownTimeout = 30 * time.Second
)

type ServerConfig struct {
	Logger        *slog.Logger
	Backend       Backend
	EventBus      *event.EventBus
	PromRegistry  prometheus.Registerer
	PromGatherer  prometheus.Gatherer
	ListenAddress string
	Version       string
}

// Server is the journal HTTP API
type Server struct {
	config     ServerConfig
	logger     *slog.Logger
	metrics    *serverMetrics
	httpServer *http.Server
	listenAddr net.Addr
	// done is closed on Stop so long-lived event streams end
	done     chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Server{
		config:  cfg,
		logger:  cfg.Logger.With("component", "api"),
		metrics: initMetrics(cfg.PromRegistry),
		done:    make(chan struct{}),
	}
}

// Handler returns the routed handler, wrapped with request ID and metrics
// middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/transactions", s.handleSubmitTransaction)
	mux.HandleFunc("GET /api/v1/transactions/{hash}", s.handleGetTransaction)
	mux.HandleFunc("GET /api/v1/accounts/{address}", s.handleGetAccount)
	mux.HandleFunc(
		"GET /api/v1/accounts/{address}/history",
		s.handleGetAccountHistory,
	)
	mux.HandleFunc("POST /api/v1/airdrop", s.handleAirdrop)
	if s.config.EventBus != nil {
		mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	}
	if s.config.PromGatherer != nil {
		mux.Handle(
			"GET /metrics",
			promhttp.HandlerFor(s.config.PromGatherer, promhttp.HandlerOpts{}),
		)
	}
	return s.withRequestID(mux)
}

// Start binds the listener and serves in the background until Stop is
// called or ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	// Binding first reports port conflicts to the caller
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.listenAddr = ln.Addr()
	s.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	s.logger.Info("API listener started on " + ln.Addr().String())
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// Stop gracefully shuts down the HTTP server and ends open event streams.
// A stopped server cannot be restarted
func (s *Server) Stop(ctx context.Context) error {
	s.doneOnce.Do(func() {
		close(s.done)
	})
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
