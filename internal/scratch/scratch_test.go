package scratch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace(t *testing.T) {
	t.Run("Success_WriteReadClose", func(t *testing.T) {
		root := t.TempDir()

		ws, err := New(root, "genrsa")
		require.NoError(t, err)

		path, err := ws.WriteFile("key.pem", []byte("private key material"))
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		dirInfo, err := os.Stat(ws.Dir())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

		data, err := ws.ReadFile("key.pem")
		require.NoError(t, err)
		assert.Equal(t, []byte("private key material"), data)

		require.NoError(t, ws.Close())
		require.NoError(t, ws.Close())

		_, err = os.Stat(ws.Dir())
		assert.True(t, os.IsNotExist(err))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Success_UniquePerCall", func(t *testing.T) {
		root := t.TempDir()

		a, err := New(root, "sign")
		require.NoError(t, err)
		defer a.Close() //nolint:errcheck

		b, err := New(root, "sign")
		require.NoError(t, err)
		defer b.Close() //nolint:errcheck

		assert.NotEqual(t, a.Dir(), b.Dir())
	})

	t.Run("Error_NameEscapesWorkspace", func(t *testing.T) {
		ws, err := New(t.TempDir(), "x")
		require.NoError(t, err)
		defer ws.Close() //nolint:errcheck

		for _, name := range []string{"../key.pem", "a/b", "", ".."} {
			_, err := ws.WriteFile(name, []byte("x"))
			assert.ErrorIs(t, err, ErrInvalidName, name)
		}
	})
}

func TestSweep(t *testing.T) {
	root := t.TempDir()

	old, err := New(root, "old")
	require.NoError(t, err)
	_, err = old.WriteFile("ca.key", []byte("stale"))
	require.NoError(t, err)

	fresh, err := New(root, "fresh")
	require.NoError(t, err)
	defer fresh.Close() //nolint:errcheck

	unrelated := filepath.Join(root, "keep-me")
	require.NoError(t, os.Mkdir(unrelated, 0o700))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old.Dir(), past, past))

	removed, err := Sweep(root, time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(old.Dir())
	assert.True(t, os.IsNotExist(err))
	assert.DirExists(t, fresh.Dir())
	assert.DirExists(t, unrelated)
}

func TestSweep_MissingRoot(t *testing.T) {
	removed, err := Sweep(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
