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
	"encoding/hex"
	"time"

	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/ledger"
)

// ErrorResponse is the body of every non-2xx response except a failed
// transaction submission, which returns the receipt instead
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
	StatusCode int    `json:"status_code"`
}

type HealthResponse struct {
	Version   string `json:"version"`
	IsHealthy bool   `json:"is_healthy"`
}

type AccountResponse struct {
	Address  ledger.Address `json:"address"`
	Owner    string         `json:"owner"`
	Data     []byte         `json:"data"`
	Lamports uint64         `json:"lamports"`
}

func NewAccountResponse(addr ledger.Address, account *models.Account) AccountResponse {
	return AccountResponse{
		Address:  addr,
		Owner:    account.Owner,
		Lamports: account.Lamports,
		Data:     account.Data,
	}
}

// Account converts the response back into the stored account form
func (a *AccountResponse) Account() *models.Account {
	return &models.Account{
		Lamports: a.Lamports,
		Owner:    a.Owner,
		Data:     a.Data,
	}
}

type AccountChangeResponse struct {
	Address  ledger.Address `json:"address"`
	Kind     string         `json:"kind"`
	Owner    string         `json:"owner"`
	Lamports uint64         `json:"lamports"`
	DataSize int            `json:"data_size"`
}

func newAccountChangeResponse(change models.AccountChange) AccountChangeResponse {
	var addr ledger.Address
	copy(addr[:], change.Address)
	return AccountChangeResponse{
		Address:  addr,
		Kind:     change.Kind,
		Owner:    change.Owner,
		Lamports: change.Lamports,
		DataSize: change.DataSize,
	}
}

type TransactionResponse struct {
	CreatedAt   time.Time               `json:"created_at"`
	Hash        string                  `json:"hash"`
	Signer      ledger.Address          `json:"signer"`
	ProgramID   string                  `json:"program_id"`
	Instruction string                  `json:"instruction"`
	ReturnData  []byte                  `json:"return_data,omitempty"`
	Changes     []AccountChangeResponse `json:"changes"`
}

func newTransactionResponse(tx *models.Transaction) TransactionResponse {
	var signer ledger.Address
	copy(signer[:], tx.Signer)
	ret := TransactionResponse{
		CreatedAt:   tx.CreatedAt,
		Hash:        hex.EncodeToString(tx.Hash),
		Signer:      signer,
		ProgramID:   tx.ProgramID,
		Instruction: tx.Instruction,
		ReturnData:  tx.ReturnData,
		Changes:     make([]AccountChangeResponse, 0, len(tx.Changes)),
	}
	for _, change := range tx.Changes {
		ret.Changes = append(ret.Changes, newAccountChangeResponse(change))
	}
	return ret
}

type AirdropRequest struct {
	Address  ledger.Address `json:"address"`
	Lamports uint64         `json:"lamports"`
}
