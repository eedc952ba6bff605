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

// Program applies instructions addressed to its ID. Execute runs inside the
// transaction's database transaction and any error aborts all of its changes
type Program interface {
	ID() string
	Execute(ctx *ExecContext, data []byte) error
}

// InstructionNamer is implemented by programs that can label an instruction
// for the transaction log
type InstructionNamer interface {
	InstructionName(data []byte) string
}
