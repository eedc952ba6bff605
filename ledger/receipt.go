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

import "github.com/blinklabs-io/journal/database/models"

type ReceiptStatus string

const (
	ReceiptStatusSuccess ReceiptStatus = "success"
	ReceiptStatusFailed  ReceiptStatus = "failed"
)

// AccountChange describes the final state of an account touched by a transaction
type AccountChange struct {
	Address  Address `json:"address"`
	Kind     string  `json:"kind"`
	Owner    string  `json:"owner"`
	Lamports uint64  `json:"lamports"`
	DataSize int     `json:"dataSize"`
}

// Receipt reports the outcome of a submitted transaction. ErrorCode is set
// when the failure carries a program-defined code
type Receipt struct {
	Hash        Hash            `json:"hash"`
	Status      ReceiptStatus   `json:"status"`
	Error       string          `json:"error,omitempty"`
	Instruction string          `json:"instruction,omitempty"`
	Accounts    []AccountChange `json:"accounts,omitempty"`
	ReturnData  []byte          `json:"returnData,omitempty"`
	ErrorCode   uint32          `json:"errorCode,omitempty"`
}

// CodedError is implemented by errors that carry a stable numeric code
type CodedError interface {
	error
	ErrorCode() uint32
}

func (r *Receipt) Success() bool {
	return r.Status == ReceiptStatusSuccess
}

func accountChangeToModel(c AccountChange) models.AccountChange {
	return models.AccountChange{
		Address:  c.Address.Bytes(),
		Kind:     c.Kind,
		Owner:    c.Owner,
		Lamports: c.Lamports,
		DataSize: c.DataSize,
	}
}
