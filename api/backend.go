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
	"context"

	"github.com/blinklabs-io/journal/database/models"
	"github.com/blinklabs-io/journal/ledger"
)

// Backend is the ledger surface the API server exposes. It is implemented by
// *ledger.LedgerState, and by test doubles
type Backend interface {
	Submit(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error)
	GetAccount(ctx context.Context, addr ledger.Address) (*models.Account, error)
	GetTransaction(ctx context.Context, hash ledger.Hash) (*models.Transaction, error)
	GetAccountHistory(ctx context.Context, addr ledger.Address) ([]models.AccountChange, error)
	Airdrop(ctx context.Context, addr ledger.Address, lamports uint64) (*models.Account, error)
}
