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

import "errors"

var (
	ErrInvalidSignature     = errors.New("invalid transaction signature")
	ErrAccountInUse         = errors.New("account already in use")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUnknownProgram       = errors.New("unknown program")
	ErrDuplicateTransaction = errors.New("transaction already processed")
	ErrAccountOwnerMismatch = errors.New("account not owned by program")
	ErrPayerNotSigner       = errors.New("payer must sign the transaction")
	ErrAccountDataTooSmall  = errors.New("write exceeds account data")
	ErrFaucetDisabled       = errors.New("faucet disabled")
)
