package admin

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestParse(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, parse("1,2, 3\n"))
	assert.Equal(t, []string{"1", "2"}, parse("1\n\n2\n1\n"))
	assert.Nil(t, parse(""))
	assert.Nil(t, parse("  \n \n"))
}

func TestRegistryAddRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.txt")
	require.NoError(t, os.WriteFile(path, []byte("100\n200\n"), 0o644))

	reg, err := NewRegistry(path)
	require.NoError(t, err)

	assert.True(t, reg.IsAdmin("100"))
	assert.False(t, reg.IsAdmin("300"))
	assert.False(t, reg.IsAdmin(""))

	added, err := reg.Add("300")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = reg.Add("300")
	require.NoError(t, err)
	assert.False(t, added)

	removed, err := reg.Remove("100")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = reg.Remove("100")
	require.NoError(t, err)
	assert.False(t, removed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "200,300", string(data))

	reloaded, err := NewRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"200", "300"}, reloaded.List())
}

func TestRegistryMissingFile(t *testing.T) {
	reg, err := NewRegistry(filepath.Join(t.TempDir(), "nested", "admins.txt"))
	require.NoError(t, err)
	assert.Empty(t, reg.List())

	added, err := reg.Add("42")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, reg.IsAdmin("42"))
}

func TestRegistryWatchReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "admins.txt")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	reg, err := NewRegistry(path)
	require.NoError(t, err)
	require.NoError(t, reg.Watch())

	require.NoError(t, os.WriteFile(path, []byte("1,2"), 0o644))

	assert.Eventually(t, func() bool {
		return reg.IsAdmin("2")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, reg.Shutdown())
}
