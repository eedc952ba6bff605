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

package program

import (
	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/journal/ledger"
)

type InstructionKind uint8

const (
	InstructionInitialize InstructionKind = iota
	InstructionCreate
	InstructionUpdate
	InstructionDelete
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionInitialize:
		return "initialize"
	case InstructionCreate:
		return "create"
	case InstructionUpdate:
		return "update"
	case InstructionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Instruction is the CBOR payload of a journal transaction. Target optionally
// names the entry address the caller expects update or delete to resolve to
type Instruction struct {
	cbor.StructAsArray
	Kind     InstructionKind
	Sequence uint32
	Title    string
	Message  string
	Target   []byte
}

func NewInitializeInstruction() *Instruction {
	return &Instruction{Kind: InstructionInitialize}
}

func NewCreateInstruction(title, message string) *Instruction {
	return &Instruction{
		Kind:    InstructionCreate,
		Title:   title,
		Message: message,
	}
}

func NewUpdateInstruction(seq uint32, title, message string) *Instruction {
	return &Instruction{
		Kind:     InstructionUpdate,
		Sequence: seq,
		Title:    title,
		Message:  message,
	}
}

func NewDeleteInstruction(seq uint32) *Instruction {
	return &Instruction{
		Kind:     InstructionDelete,
		Sequence: seq,
	}
}

// WithTarget pins the entry address the instruction must act on
func (i *Instruction) WithTarget(addr ledger.Address) *Instruction {
	i.Target = addr.Bytes()
	return i
}

func (i *Instruction) Encode() ([]byte, error) {
	return cbor.Encode(i)
}

func DecodeInstruction(data []byte) (*Instruction, error) {
	ret := &Instruction{}
	if _, err := cbor.Decode(data, ret); err != nil {
		return nil, ErrInvalidInstruction.withDetail("%s", err)
	}
	if ret.Kind > InstructionDelete {
		return nil, ErrInvalidInstruction.withDetail("unknown kind %d", ret.Kind)
	}
	if len(ret.Target) != 0 && len(ret.Target) != ledger.AddressLength {
		return nil, ErrInvalidInstruction.withDetail(
			"target is %d bytes",
			len(ret.Target),
		)
	}
	return ret, nil
}
