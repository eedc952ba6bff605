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

const (
	// AccountStorageOverhead is the per-account bookkeeping charged on top of the data size
	AccountStorageOverhead  = 128
	LamportsPerByteYear     = 3480
	ExemptionThresholdYears = 2
)

// MinimumBalance returns the deposit an account of the given data size must hold
func MinimumBalance(size int) uint64 {
	if size < 0 {
		size = 0
	}
	return uint64(
		AccountStorageOverhead+size,
	) * LamportsPerByteYear * ExemptionThresholdYears
}
