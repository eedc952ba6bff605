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

package keystore

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	SigningKeyType      = "JournalSigningKey_ed25519"
	VerificationKeyType = "JournalVerificationKey_ed25519"
)

// Valid key files are well under this size
const maxKeyFileSize = 1 << 20

type keyFileEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// LoadSigningKey reads a signing key file. The file must not be accessible
// to group or other users.
//
// Permissions are checked on the open handle so the file checked is the
// file read
func LoadSigningKey(path string) (ed25519.PrivateKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()
	if err := checkOpenFilePermissions(f); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	keyBytes, err := parseKeyEnvelope(data, SigningKeyType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %q: %w", path, err)
	}
	switch len(keyBytes) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(keyBytes), nil
	case ed25519.PrivateKeySize:
		// Rebuild from the seed rather than trusting the stored public half
		return ed25519.NewKeyFromSeed(keyBytes[:ed25519.SeedSize]), nil
	default:
		return nil, fmt.Errorf(
			"invalid signing key in %q: expected %d or %d bytes, got %d",
			path,
			ed25519.SeedSize,
			ed25519.PrivateKeySize,
			len(keyBytes),
		)
	}
}

// LoadVerificationKey reads a verification key file
func LoadVerificationKey(path string) (ed25519.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	keyBytes, err := parseKeyEnvelope(data, VerificationKeyType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %q: %w", path, err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf(
			"invalid verification key in %q: expected %d bytes, got %d",
			path,
			ed25519.PublicKeySize,
			len(keyBytes),
		)
	}
	return ed25519.PublicKey(keyBytes), nil
}

// WriteSigningKey writes the key seed to a new file readable only by the
// current user
func WriteSigningKey(path string, key ed25519.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return errors.New("invalid ed25519 private key")
	}
	return writeKeyFile(path, SigningKeyType, "Signing Key", key.Seed(), 0o600)
}

// WriteVerificationKey writes a public key to a new file
func WriteVerificationKey(path string, key ed25519.PublicKey) error {
	if len(key) != ed25519.PublicKeySize {
		return errors.New("invalid ed25519 public key")
	}
	return writeKeyFile(path, VerificationKeyType, "Verification Key", key, 0o644)
}

func writeKeyFile(
	path string,
	keyType string,
	description string,
	keyBytes []byte,
	perm os.FileMode,
) error {
	cborData, err := cbor.Encode(keyBytes)
	if err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}
	data, err := json.MarshalIndent(
		keyFileEnvelope{
			Type:        keyType,
			Description: description,
			CborHex:     hex.EncodeToString(cborData),
		},
		"",
		"    ",
	)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrKeyExists, path)
		}
		return fmt.Errorf("failed to create key file %q: %w", path, err)
	}
	if perm&0o077 == 0 {
		if err := restrictFilePermissions(f); err != nil {
			f.Close()
			return err
		}
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to write key file %q: %w", path, err)
	}
	return f.Close()
}

func parseKeyEnvelope(fileBytes []byte, expectedType string) ([]byte, error) {
	var env keyFileEnvelope
	if err := json.Unmarshal(fileBytes, &env); err != nil {
		return nil, fmt.Errorf("could not parse key file envelope: %w", err)
	}
	if env.Type != expectedType {
		return nil, fmt.Errorf(
			"unexpected key type %q, expected %q",
			env.Type,
			expectedType,
		)
	}
	cborData, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("could not decode key from hex: %w", err)
	}
	var keyBytes []byte
	if _, err := cbor.Decode(cborData, &keyBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key CBOR: %w", err)
	}
	return keyBytes, nil
}
