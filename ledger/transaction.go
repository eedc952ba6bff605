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

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"golang.org/x/crypto/blake2b"
)

const HashLength = blake2b.Size256

// Hash identifies a transaction by the blake2b-256 digest of its encoded body
type Hash [HashLength]byte

func NewHash(b []byte) (Hash, error) {
	var ret Hash
	if len(b) != HashLength {
		return ret, fmt.Errorf("invalid hash length %d", len(b))
	}
	copy(ret[:], b)
	return ret, nil
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	tmp, err := NewHash(b)
	if err != nil {
		return err
	}
	*h = tmp
	return nil
}

// TransactionBody is the signed portion of a transaction
type TransactionBody struct {
	cbor.StructAsArray
	Signer    []byte
	Nonce     uint64
	ProgramID string
	Data      []byte
}

type Transaction struct {
	cbor.StructAsArray
	Body      TransactionBody
	Signature []byte
}

// NewTransaction builds an unsigned transaction for a program instruction
func NewTransaction(
	signer Address,
	nonce uint64,
	programID string,
	data []byte,
) *Transaction {
	return &Transaction{
		Body: TransactionBody{
			Signer:    signer.Bytes(),
			Nonce:     nonce,
			ProgramID: programID,
			Data:      data,
		},
	}
}

// DecodeTransaction parses a CBOR-encoded transaction
func DecodeTransaction(data []byte) (*Transaction, error) {
	tx := &Transaction{}
	if _, err := cbor.Decode(data, tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

func (t *Transaction) Encode() ([]byte, error) {
	return cbor.Encode(t)
}

func (t *Transaction) bodyBytes() ([]byte, error) {
	return cbor.Encode(&t.Body)
}

func (t *Transaction) Hash() (Hash, error) {
	body, err := t.bodyBytes()
	if err != nil {
		return Hash{}, err
	}
	return blake2b.Sum256(body), nil
}

func (t *Transaction) Signer() (Address, error) {
	return NewAddress(t.Body.Signer)
}

// Sign sets the signer to the key's public half and signs the encoded body
func (t *Transaction) Sign(key ed25519.PrivateKey) error {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return errors.New("unexpected public key type")
	}
	t.Body.Signer = []byte(pub)
	body, err := t.bodyBytes()
	if err != nil {
		return err
	}
	t.Signature = ed25519.Sign(key, body)
	return nil
}

// Verify checks the signature against the signer in the body
func (t *Transaction) Verify() error {
	if len(t.Body.Signer) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: bad signer length", ErrInvalidSignature)
	}
	if len(t.Signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: bad signature length", ErrInvalidSignature)
	}
	body, err := t.bodyBytes()
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(t.Body.Signer), body, t.Signature) {
		return ErrInvalidSignature
	}
	return nil
}
