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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/blinklabs-io/journal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Seed is bytes 0..31
const testSigningKeyJSON = `{
    "type": "JournalSigningKey_ed25519",
    "description": "Signing Key",
    "cborHex": "5820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
}`

func writeTestFile(t *testing.T, name, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	// WriteFile is subject to the umask
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadSigningKey(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are checked through ACLs on windows")
	}
	path := writeTestFile(t, "test.skey", testSigningKeyJSON, 0o600)
	key, err := LoadSigningKey(path)
	require.NoError(t, err)
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	assert.Equal(t, ed25519.NewKeyFromSeed(seed), key)
}

func TestLoadSigningKeyInsecureMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are checked through ACLs on windows")
	}
	for _, perm := range []os.FileMode{0o640, 0o604, 0o644} {
		path := writeTestFile(t, "test.skey", testSigningKeyJSON, perm)
		_, err := LoadSigningKey(path)
		require.ErrorIs(t, err, ErrInsecureFileMode)
	}
}

func TestLoadSigningKeyInvalid(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are checked through ACLs on windows")
	}
	testDefs := []string{
		`not json`,
		`{"type": "JournalVerificationKey_ed25519", "cborHex": "5820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"}`,
		`{"type": "JournalSigningKey_ed25519", "cborHex": "zz"}`,
		`{"type": "JournalSigningKey_ed25519", "cborHex": "43010203"}`,
	}
	for _, content := range testDefs {
		path := writeTestFile(t, "test.skey", content, 0o600)
		_, err := LoadSigningKey(path)
		assert.Error(t, err, content)
	}
	_, err := LoadSigningKey(filepath.Join(t.TempDir(), "missing.skey"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestKeystoreGenerateAndLoad(t *testing.T) {
	ks := New(filepath.Join(t.TempDir(), "keys"), nil)
	key, err := ks.Generate("alice")
	require.NoError(t, err)

	loaded, err := ks.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, key, loaded)

	addr, err := ks.Address("alice")
	require.NoError(t, err)
	pub, ok := key.Public().(ed25519.PublicKey)
	require.True(t, ok)
	expected, err := ledger.NewAddress(pub)
	require.NoError(t, err)
	assert.Equal(t, expected, addr)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(filepath.Join(ks.Dir(), "alice.skey"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}

func TestKeystoreGenerateNeverOverwrites(t *testing.T) {
	ks := New(t.TempDir(), nil)
	key, err := ks.Generate("alice")
	require.NoError(t, err)
	_, err = ks.Generate("alice")
	require.ErrorIs(t, err, ErrKeyExists)
	loaded, err := ks.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, key, loaded)
}

func TestKeystoreInvalidNames(t *testing.T) {
	ks := New(t.TempDir(), nil)
	for _, name := range []string{"", "../alice", "a/b", `a\b`, "."} {
		_, err := ks.Generate(name)
		require.ErrorIs(t, err, ErrInvalidKeyName, name)
	}
}

func TestKeystoreList(t *testing.T) {
	ks := New(filepath.Join(t.TempDir(), "missing"), nil)
	names, err := ks.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := ks.Generate(name)
		require.NoError(t, err)
	}
	names, err = ks.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, names)
}
