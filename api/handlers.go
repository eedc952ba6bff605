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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/blinklabs-io/journal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
		RequestID:  requestIDFromContext(r.Context()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
		Version:   s.config.Version,
	})
}

// handleSubmitTransaction takes a CBOR-encoded signed transaction. A
// transaction that was applied returns 200 with its receipt, one that failed
// returns 422 with its receipt
func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTransactionSize))
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, r, status, err.Error())
		return
	}
	tx, err := ledger.DecodeTransaction(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	receipt, err := s.config.Backend.Submit(r.Context(), tx)
	if receipt == nil {
		if err == nil {
			err = errors.New("no receipt returned")
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Debug(
			"transaction rejected",
			"request_id", requestIDFromContext(r.Context()),
			"hash", receipt.Hash.String(),
			"error", err,
		)
		writeJSON(w, http.StatusUnprocessableEntity, receipt)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	var hash ledger.Hash
	if err := hash.UnmarshalText([]byte(r.PathValue("hash"))); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.config.Backend.GetTransaction(r.Context(), hash)
	if err != nil {
		s.internalError(w, r, "failed to get transaction", err)
		return
	}
	if tx == nil {
		writeError(w, r, http.StatusNotFound, "transaction not found: "+hash.String())
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account, err := s.config.Backend.GetAccount(r.Context(), addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		s.internalError(w, r, "failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, NewAccountResponse(addr, account))
}

func (s *Server) handleGetAccountHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	changes, err := s.config.Backend.GetAccountHistory(r.Context(), addr)
	if err != nil {
		s.internalError(w, r, "failed to get account history", err)
		return
	}
	ret := make([]AccountChangeResponse, 0, len(changes))
	for _, change := range changes {
		ret = append(ret, newAccountChangeResponse(change))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request) {
	var req AirdropRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err))
		return
	}
	if req.Lamports == 0 {
		writeError(w, r, http.StatusBadRequest, "lamports must be positive")
		return
	}
	account, err := s.config.Backend.Airdrop(r.Context(), req.Address, req.Lamports)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrFaucetDisabled):
			writeError(w, r, http.StatusForbidden, err.Error())
		case errors.Is(err, ledger.ErrAccountOwnerMismatch):
			writeError(w, r, http.StatusConflict, err.Error())
		default:
			s.internalError(w, r, "airdrop failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, NewAccountResponse(req.Address, account))
}

func (s *Server) internalError(
	w http.ResponseWriter,
	r *http.Request,
	msg string,
	err error,
) {
	s.logger.Error(
		msg,
		"request_id", requestIDFromContext(r.Context()),
		"error", err,
	)
	writeError(w, r, http.StatusInternalServerError, msg)
}
