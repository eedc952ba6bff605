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

package api_test

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/journal/api"
	"github.com/blinklabs-io/journal/event"
	"github.com/blinklabs-io/journal/internal/test/testutil"
	"github.com/blinklabs-io/journal/ledger"
	"github.com/blinklabs-io/journal/program"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	ls       *ledger.LedgerState
	bus      *event.EventBus
	server   *httptest.Server
	client   *api.Client
	journal  *program.Client
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, faucet bool) *testEnv {
	t.Helper()
	registry := prometheus.NewRegistry()
	bus := event.NewEventBus(nil, nil)
	opts := []testutil.LedgerOptionFunc{testutil.WithEventBus(bus)}
	if !faucet {
		opts = append(opts, testutil.WithoutFaucet())
	}
	ls := testutil.NewLedger(t, opts...)
	srv := api.NewServer(api.ServerConfig{
		Backend:      ls,
		EventBus:     bus,
		PromRegistry: registry,
		PromGatherer: registry,
		Version:      "test",
	})
	server := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		server.Close()
		bus.Stop()
	})
	client, err := api.NewClient(
		server.URL,
		api.WithErrorDecoder(program.ErrorFromCode),
	)
	require.NoError(t, err)
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	journal, err := program.NewClient(client, key)
	require.NoError(t, err)
	return &testEnv{
		ls:       ls,
		bus:      bus,
		server:   server,
		client:   client,
		journal:  journal,
		registry: registry,
	}
}

func TestJournalOverHTTP(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	_, err := env.client.Airdrop(ctx, env.journal.Owner(), 1_000_000_000)
	require.NoError(t, err)

	// The counter does not exist yet, so a 404 maps to NotInitialized
	_, err = env.journal.Counter(ctx)
	require.ErrorIs(t, err, program.ErrNotInitialized)

	created, err := env.journal.EnsureInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	seq, receipt, err := env.journal.Create(ctx, "Day 1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), seq)
	entry, err := env.journal.Entry(ctx, seq, env.journal.Owner())
	require.NoError(t, err)
	assert.Equal(t, "Day 1", entry.Title)

	tx, err := env.client.GetTransaction(ctx, receipt.Hash)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "create", tx.Instruction)
	assert.Equal(t, env.journal.Owner(), tx.Signer)
	assert.Equal(t, program.ProgramID, tx.ProgramID)

	history, err := env.client.GetAccountHistory(ctx, program.EntryAddress(seq, env.journal.Owner()))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "created", history[0].Kind)

	// Program errors survive the trip as their sentinels
	receipt, err = env.journal.Initialize(ctx)
	require.ErrorIs(t, err, program.ErrAlreadyInitialized)
	var rErr *api.ReceiptError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, ledger.ReceiptStatusFailed, receipt.Status)
	assert.Equal(t, program.ErrAlreadyInitialized.Code, receipt.ErrorCode)

	_, err = env.journal.Delete(ctx, 7)
	require.ErrorIs(t, err, program.ErrNotFound)
}

func TestAirdropDisabled(t *testing.T) {
	env := newTestEnv(t, false)
	_, err := env.client.Airdrop(context.Background(), env.journal.Owner(), 1)
	require.ErrorIs(t, err, ledger.ErrFaucetDisabled)
}

func TestBadRequests(t *testing.T) {
	env := newTestEnv(t, true)
	testDefs := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{method: http.MethodPost, path: "/api/v1/transactions", body: "garbage", status: http.StatusBadRequest},
		{method: http.MethodGet, path: "/api/v1/accounts/nope", status: http.StatusBadRequest},
		{method: http.MethodGet, path: "/api/v1/accounts/" + ledger.Address{1}.String(), status: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/v1/transactions/zz", status: http.StatusBadRequest},
		{method: http.MethodGet, path: "/api/v1/transactions/" + strings.Repeat("00", 32), status: http.StatusNotFound},
		{method: http.MethodPost, path: "/api/v1/airdrop", body: `{"lamports": 0}`, status: http.StatusBadRequest},
		{method: http.MethodPost, path: "/api/v1/airdrop", body: `{"bogus": 1}`, status: http.StatusBadRequest},
		{method: http.MethodDelete, path: "/api/v1/airdrop", status: http.StatusMethodNotAllowed},
	}
	for _, testDef := range testDefs {
		req, err := http.NewRequest(testDef.method, env.server.URL+testDef.path, strings.NewReader(testDef.body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, testDef.status, resp.StatusCode, testDef.path)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestSubmitTransactionBodyErrors(t *testing.T) {
	env := newTestEnv(t, true)
	handler := env.server.Config.Handler
	testDefs := []struct {
		name   string
		body   io.Reader
		status int
	}{
		{name: "oversize", body: strings.NewReader(strings.Repeat("a", 64*1024+1)), status: http.StatusRequestEntityTooLarge},
		{name: "read error", body: failingReader{}, status: http.StatusBadRequest},
	}
	for _, testDef := range testDefs {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", testDef.body)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, testDef.status, rec.Code, testDef.name)
	}
}

func TestAirdropToProgramAccountConflicts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	_, err := env.client.Airdrop(ctx, env.journal.Owner(), 1_000_000_000)
	require.NoError(t, err)
	_, err = env.journal.Initialize(ctx)
	require.NoError(t, err)
	_, err = env.client.Airdrop(ctx, program.CounterAddress(), 1)
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, true)
	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Len(t, resp.Header.Get(api.RequestIDHeader), 36)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.True(t, health.IsHealthy)
	assert.Equal(t, "test", health.Version)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(api.RequestIDHeader, "0b6f3a4e-9a43-4a4a-8d0e-6c1f2b3a4d5e")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "0b6f3a4e-9a43-4a4a-8d0e-6c1f2b3a4d5e", resp2.Header.Get(api.RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, true)
	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	resp, err = http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `journal_api_requests_total{code="200",route="GET /health"} 1`)
}

func TestEventStream(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env := newTestEnv(t, true)
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		env.server.URL+"/api/v1/events?type=ledger.transaction",
		nil,
	)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	_, err = env.client.Airdrop(ctx, env.journal.Owner(), 1_000_000_000)
	require.NoError(t, err)
	_, err = env.journal.Initialize(ctx)
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ledger.transaction\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
	require.True(t, ok)
	var evt ledger.TransactionEvent
	require.NoError(t, json.Unmarshal([]byte(data), &evt))
	assert.Equal(t, "initialize", evt.Receipt.Instruction)
	assert.Equal(t, env.journal.Owner(), evt.Signer)
}

func TestEventStreamUnknownType(t *testing.T) {
	env := newTestEnv(t, true)
	resp, err := http.Get(env.server.URL + "/api/v1/events?type=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerStartStop(t *testing.T) {
	srv := api.NewServer(api.ServerConfig{ListenAddress: "127.0.0.1:0"})
	require.NoError(t, srv.Start(context.Background()))
	require.Error(t, srv.Start(context.Background()))
	addr := srv.Addr()
	require.NotNil(t, addr)
	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, srv.Stop(context.Background()))
}

func TestNewClientInvalidURL(t *testing.T) {
	_, err := api.NewClient("ftp://example.com")
	require.Error(t, err)
	_, err = api.NewClient("://")
	require.Error(t, err)
}
