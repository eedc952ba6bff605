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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/ledger"
)

// ErrorDecoder maps a receipt error code to a local error value
type ErrorDecoder func(code uint32) error

// ReceiptError is returned by Client.Submit for a transaction the ledger
// rejected. It unwraps to the decoded error for the receipt's code
type ReceiptError struct {
	Receipt *ledger.Receipt
	decoded error
}

func (e *ReceiptError) Error() string {
	return e.Receipt.Error
}

func (e *ReceiptError) Unwrap() error {
	return e.decoded
}

// StatusError is returned for unexpected HTTP responses
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type ClientOptionFunc func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithErrorDecoder sets how receipt error codes map back to error values
func WithErrorDecoder(decoder ErrorDecoder) ClientOptionFunc {
	return func(c *Client) {
		c.errorDecoder = decoder
	}
}

// Client talks to a journal API server. It satisfies the Backend used by
// program.Client
type Client struct {
	httpClient   *http.Client
	errorDecoder ErrorDecoder
	baseURL      string
}

func NewClient(baseURL string, opts ...ClientOptionFunc) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(u.String(), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	contentType string,
	body []byte,
) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, nil, err
	}
	return resp, respBody, nil
}

func statusError(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		errResp.Message = strings.TrimSpace(string(body))
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: errResp.Message}
}

// getJSON decodes a 200 response into v. A 404 is returned as notFound
func (c *Client) getJSON(ctx context.Context, path string, v any, notFound error) error {
	resp, body, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return json.Unmarshal(body, v)
	case http.StatusNotFound:
		if notFound != nil {
			return notFound
		}
	}
	return statusError(resp, body)
}

// Submit sends a signed transaction. A rejected transaction returns its
// receipt along with a *ReceiptError
func (c *Client) Submit(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error) {
	data, err := tx.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	resp, body, err := c.do(ctx, http.MethodPost, "/api/v1/transactions", "application/cbor", data)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return nil, statusError(resp, body)
	}
	receipt := &ledger.Receipt{}
	if err := json.Unmarshal(body, receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	if receipt.Success() {
		return receipt, nil
	}
	rErr := &ReceiptError{Receipt: receipt}
	if receipt.ErrorCode != 0 && c.errorDecoder != nil {
		rErr.decoded = c.errorDecoder(receipt.ErrorCode)
	}
	return receipt, rErr
}

func (c *Client) GetAccount(ctx context.Context, addr ledger.Address) (*models.Account, error) {
	var resp AccountResponse
	err := c.getJSON(
		ctx,
		"/api/v1/accounts/"+addr.String(),
		&resp,
		fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr),
	)
	if err != nil {
		return nil, err
	}
	return resp.Account(), nil
}

func (c *Client) GetAccountHistory(
	ctx context.Context,
	addr ledger.Address,
) ([]AccountChangeResponse, error) {
	var ret []AccountChangeResponse
	if err := c.getJSON(ctx, "/api/v1/accounts/"+addr.String()+"/history", &ret, nil); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetTransaction returns nil if the server has no such transaction
func (c *Client) GetTransaction(
	ctx context.Context,
	hash ledger.Hash,
) (*TransactionResponse, error) {
	var ret TransactionResponse
	errNotFound := errors.New("not found")
	err := c.getJSON(ctx, "/api/v1/transactions/"+hash.String(), &ret, errNotFound)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// Airdrop asks the server's faucet to fund addr
func (c *Client) Airdrop(
	ctx context.Context,
	addr ledger.Address,
	lamports uint64,
) (*models.Account, error) {
	body, err := json.Marshal(AirdropRequest{Address: addr, Lamports: lamports})
	if err != nil {
		return nil, err
	}
	resp, respBody, err := c.do(ctx, http.MethodPost, "/api/v1/airdrop", "application/json", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, ledger.ErrFaucetDisabled
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, respBody)
	}
	var account AccountResponse
	if err := json.Unmarshal(respBody, &account); err != nil {
		return nil, err
	}
	return account.Account(), nil
}
