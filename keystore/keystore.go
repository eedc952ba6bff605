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

// Package keystore reads and writes ed25519 signing keys for journal
// accounts. Keys are stored as JSON text envelopes holding the CBOR-encoded
// key bytes as hex
package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blinklabs-io/journal/ledger"
)

const (
	SigningKeySuffix      = ".skey"
	VerificationKeySuffix = ".vkey"
)

var (
	ErrInsecureFileMode = errors.New("insecure file permissions")
	ErrKeyExists        = errors.New("key already exists")
	ErrInvalidKeyName   = errors.New("invalid key name")
)

// Keystore manages named key pairs in a directory
type Keystore struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) *Keystore {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Keystore{
		dir:    dir,
		logger: logger,
	}
}

func (k *Keystore) Dir() string {
	return k.dir
}

func (k *Keystore) path(name, suffix string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyName, name)
	}
	return filepath.Join(k.dir, name+suffix), nil
}

// Generate creates a new key pair under name and returns the signing key.
// An existing key with the same name is never overwritten
func (k *Keystore) Generate(name string) (ed25519.PrivateKey, error) {
	skeyPath, err := k.path(name, SigningKeySuffix)
	if err != nil {
		return nil, err
	}
	vkeyPath, err := k.path(name, VerificationKeySuffix)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := WriteSigningKey(skeyPath, key); err != nil {
		return nil, err
	}
	pub, _ := key.Public().(ed25519.PublicKey)
	if err := WriteVerificationKey(vkeyPath, pub); err != nil {
		return nil, err
	}
	addr, err := ledger.NewAddress(pub)
	if err != nil {
		return nil, err
	}
	k.logger.Info(
		"generated key",
		"component", "keystore",
		"name", name,
		"address", addr.String(),
	)
	return key, nil
}

// Load reads the signing key stored under name
func (k *Keystore) Load(name string) (ed25519.PrivateKey, error) {
	skeyPath, err := k.path(name, SigningKeySuffix)
	if err != nil {
		return nil, err
	}
	return LoadSigningKey(skeyPath)
}

// Address returns the account address of the key stored under name. Only
// the verification key file is read
func (k *Keystore) Address(name string) (ledger.Address, error) {
	vkeyPath, err := k.path(name, VerificationKeySuffix)
	if err != nil {
		return ledger.Address{}, err
	}
	pub, err := LoadVerificationKey(vkeyPath)
	if err != nil {
		return ledger.Address{}, err
	}
	return ledger.NewAddress(pub)
}

// List returns the names of all signing keys in the keystore
func (k *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(k.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ret []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), SigningKeySuffix); ok {
			ret = append(ret, name)
		}
	}
	sort.Strings(ret)
	return ret, nil
}
