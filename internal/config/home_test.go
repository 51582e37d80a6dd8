package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHomeFromEnv(t *testing.T) {
	home := filepath.Join(t.TempDir(), "state")
	t.Setenv(HomeEnv, home)

	got, err := GetHome(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, home, got)
	assert.DirExists(t, home)
}

func TestGetHomeFindsAncestor(t *testing.T) {
	t.Setenv(HomeEnv, "")
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".qtbuild"), 0755))
	sub := filepath.Join(root, "src", "app")
	require.NoError(t, os.MkdirAll(sub, 0755))

	got, err := GetHome(sub)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".qtbuild"), got)
}

func TestGetHomeCreatesDirectory(t *testing.T) {
	t.Setenv(HomeEnv, "")
	dir := t.TempDir()

	got, err := GetHome(dir)
	require.NoError(t, err)
	// A .qtbuild higher up (for example in the temp root) would win, so only
	// check the created directory when it is ours.
	if filepath.Dir(got) == dir {
		assert.DirExists(t, got)
	}
}
