// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openAll returns one store per driver, each in its own temp location.
func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fs, err := NewFileStore(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sq, err := NewSQLiteStore(filepath.Join(dir, "parley.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		DriverFile:   fs,
		DriverSQLite: sq,
		DriverMemory: NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

// =============================================================================
// CONTRACT TESTS
// =============================================================================

func TestStore_GetMissing(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("identity")
			assert.True(t, IsNotFound(err), "Get missing = %v, want ErrNotFound", err)
		})
	}
}

func TestStore_SetGetOverwrite(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("model", `"llama3-8b-8192"`))
			v, err := s.Get("model")
			require.NoError(t, err)
			assert.Equal(t, `"llama3-8b-8192"`, v)

			require.NoError(t, s.Set("model", `"gemma-7b-it"`))
			v, err = s.Get("model")
			require.NoError(t, err)
			assert.Equal(t, `"gemma-7b-it"`, v)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("history_abc", `[]`))
			require.NoError(t, s.Delete("history_abc"))

			_, err := s.Get("history_abc")
			assert.True(t, IsNotFound(err))

			// Deleting again is fine.
			assert.NoError(t, s.Delete("history_abc"))
		})
	}
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "..", "a/b", `a\b`, "x y"} {
				err := s.Set(key, "v")
				assert.ErrorIs(t, err, ErrInvalidKey, "Set(%q)", key)
			}
		})
	}
}

func TestStore_UnicodeValue(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			value := `[{"author":"user","text":"Très bien, merci ! 日本語"}]`
			require.NoError(t, s.Set("history_u", value))
			got, err := s.Get("history_u")
			require.NoError(t, err)
			assert.Equal(t, value, got)
		})
	}
}

// =============================================================================
// DRIVER-SPECIFIC TESTS
// =============================================================================

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("file", filepath.Join(dir, "f"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open("SQLite", filepath.Join(dir, "db.sqlite"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	s, err = Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("redis", "")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	a, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, a.Set("identity", `"abc"`))

	b, err := NewFileStore(dir)
	require.NoError(t, err)
	v, err := b.Get("identity")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, v)
}

func TestFileStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Set("identity", `"abc"`))

	info, err := os.Stat(s.path("identity"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.db")

	a, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, a.Set("role", `"teacher"`))
	require.NoError(t, a.Close())

	b, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer b.Close()

	v, err := b.Get("role")
	require.NoError(t, err)
	assert.Equal(t, `"teacher"`, v)
	assert.Equal(t, path, b.Path())
}

func TestMemoryStore_InjectedFailures(t *testing.T) {
	boom := errors.New("disk full")
	m := NewMemoryStore()
	m.FailWrites = boom

	err := m.Set("k", "v")
	assert.ErrorIs(t, err, boom)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "set", se.Op)
	assert.Equal(t, "k", se.Key)
	assert.Equal(t, 0, m.Len())

	m.FailWrites = nil
	m.FailReads = boom
	_, err = m.Get("k")
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsNotFound(err))
}
