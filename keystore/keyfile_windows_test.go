//go:build windows

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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func setDACL(t *testing.T, path, sddl string) {
	t.Helper()
	sd, err := windows.SecurityDescriptorFromString(sddl)
	require.NoError(t, err)
	dacl, _, err := sd.DACL()
	require.NoError(t, err)
	require.NoError(t, windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION,
		nil, nil, dacl, nil,
	))
}

func TestInsecureDACLRejected(t *testing.T) {
	testDefs := []struct {
		sddl string
		name string
	}{
		{sddl: "D:(A;;GR;;;WD)", name: "Everyone"},
		{sddl: "D:(A;;GR;;;BU)", name: "BUILTIN\\Users"},
		{sddl: "D:(A;;GR;;;AU)", name: "Authenticated Users"},
	}
	for _, testDef := range testDefs {
		testFile := filepath.Join(t.TempDir(), "test.skey")
		require.NoError(t, os.WriteFile(testFile, []byte("test"), 0o600))
		setDACL(t, testFile, testDef.sddl)
		err := checkFilePermissions(testFile)
		require.ErrorIs(t, err, ErrInsecureFileMode)
		assert.Contains(t, err.Error(), testDef.name)
	}
}

func TestWrittenKeyPassesDACLCheck(t *testing.T) {
	ks := New(t.TempDir(), nil)
	_, err := ks.Generate("test")
	require.NoError(t, err)
	require.NoError(t, checkFilePermissions(filepath.Join(ks.Dir(), "test.skey")))
}

func TestCheckSDDLDenyEntriesIgnored(t *testing.T) {
	assert.NoError(t, checkSDDL("x", "D:P(D;;GA;;;WD)(A;;GA;;;S-1-5-18)"))
	assert.ErrorIs(t, checkSDDL("x", "O:BA"), ErrInsecureFileMode)
}
