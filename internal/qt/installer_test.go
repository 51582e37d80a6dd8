package qt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/qtbuild/internal/models"
)

func TestRepoGenCommand(t *testing.T) {
	got := RepoGen{Binary: "repogen", Update: true, Packages: "pkgs", Repository: "out"}.Command()
	assert.Equal(t, []string{"repogen", "--update", "-p", "pkgs", "out"}, got)

	got = RepoGen{Binary: "repogen", Packages: "pkgs", Modules: []string{"a", "b"}, Repository: "out"}.Command()
	assert.Equal(t, []string{"repogen", "-i", "a,b", "-p", "pkgs", "out"}, got)
}

func TestInstallerCommand(t *testing.T) {
	base := Installer{Binary: "bc", Config: "c.xml", Packages: "pkgs", Name: "setup"}

	tests := []struct {
		mode models.InstallerMode
		want []string
	}{
		{models.InstallerBoth, []string{"bc", "-c", "c.xml", "-p", "pkgs", "setup"}},
		{models.InstallerOnline, []string{"bc", "-n", "-c", "c.xml", "-p", "pkgs", "setup"}},
		{models.InstallerOffline, []string{"bc", "-f", "-c", "c.xml", "-p", "pkgs", "setup"}},
	}
	for _, tt := range tests {
		inst := base
		inst.Mode = tt.mode
		assert.Equal(t, tt.want, inst.Command(), tt.mode.String())
	}
}

func TestInstallerFrameworkBin(t *testing.T) {
	root := t.TempDir()
	qtHome := filepath.Join(root, "5.12.0")
	ifw := filepath.Join(root, "Tools", "QtInstallerFramework")

	// No framework directory yet: fall back to the default version.
	assert.Equal(t, filepath.Join(ifw, "3.0", "bin"), InstallerFrameworkBin(qtHome))

	for _, v := range []string{"2.0", "3.1", "3.0.6", "notes"} {
		require.NoError(t, os.MkdirAll(filepath.Join(ifw, v), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(ifw, "9.9"), []byte("file"), 0o644))

	assert.Equal(t, filepath.Join(ifw, "3.1", "bin"), InstallerFrameworkBin(qtHome))
}

func TestExpandModules(t *testing.T) {
	pkgs := t.TempDir()
	for _, name := range []string{"org", "org.app", "org.app.docs", "com.other"} {
		require.NoError(t, os.MkdirAll(filepath.Join(pkgs, name), 0o755))
	}

	got := ExpandModules("org.app.docs", pkgs)
	assert.ElementsMatch(t, []string{"org.app.docs", "org", "org.app"}, got)
	assert.Equal(t, "org.app.docs", got[0])

	assert.Equal(t, []string{"a", "b", "c"}, ExpandModules("a, b\tc", ""))
	assert.Nil(t, ExpandModules("  ", pkgs))
	assert.Equal(t, []string{"x"}, ExpandModules("x", filepath.Join(pkgs, "missing")))
}
