package qt

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/harrison/qtbuild/internal/models"
)

// RepositoryPath is where repogen writes the online repository, relative to
// the working directory.
var RepositoryPath = filepath.Join(BuildDir, "repository")

// defaultFrameworkVersion is used when no installer framework version
// directory can be found.
const defaultFrameworkVersion = "3.0"

// RepoGen describes a repogen invocation.
type RepoGen struct {
	Binary     string
	Update     bool
	Packages   string
	Modules    []string
	Repository string
}

// Command returns the repogen argument vector.
func (r RepoGen) Command() []string {
	args := []string{r.Binary}
	if r.Update {
		args = append(args, "--update")
	}
	args = append(args, packageArgs(r.Packages, r.Modules)...)
	return append(args, r.Repository)
}

// Installer describes a binarycreator invocation.
type Installer struct {
	Binary   string
	Mode     models.InstallerMode
	Config   string
	Packages string
	Modules  []string
	Name     string
}

// Command returns the binarycreator argument vector.
func (i Installer) Command() []string {
	args := []string{i.Binary}
	switch i.Mode {
	case models.InstallerOnline:
		args = append(args, "-n")
	case models.InstallerOffline:
		args = append(args, "-f")
	}
	args = append(args, "-c", i.Config)
	args = append(args, packageArgs(i.Packages, i.Modules)...)
	return append(args, i.Name)
}

func packageArgs(packages string, modules []string) []string {
	var args []string
	if len(modules) > 0 {
		args = append(args, "-i", strings.Join(modules, ","))
	}
	return append(args, "-p", packages)
}

// InstallerFrameworkBin locates the Qt Installer Framework bin directory that
// ships next to the Qt installation at qtHome:
// <parent(qtHome)>/Tools/QtInstallerFramework/<version>/bin.
// The highest version directory wins.
func InstallerFrameworkBin(qtHome string) string {
	root := filepath.Join(filepath.Dir(filepath.Clean(qtHome)), "Tools", "QtInstallerFramework")
	version := defaultFrameworkVersion

	entries, err := os.ReadDir(root)
	if err == nil {
		best := ""
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			v := "v" + entry.Name()
			if !semver.IsValid(v) {
				continue
			}
			if best == "" || semver.Compare(v, "v"+best) > 0 {
				best = entry.Name()
			}
		}
		if best != "" {
			version = best
		}
	}
	return filepath.Join(root, version, "bin")
}

// ExpandModules parses a comma or whitespace separated module list and adds
// every package directory under packagesDir whose name prefixes a listed
// module, so parent packages are installed with their children.
func ExpandModules(text, packagesDir string) []string {
	var modules []string
	for _, name := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}) {
		modules = append(modules, name)
	}
	if len(modules) == 0 || packagesDir == "" {
		return modules
	}

	entries, err := os.ReadDir(packagesDir)
	if err != nil {
		return modules
	}
	listed := append([]string(nil), modules...)
	for _, entry := range entries {
		name := entry.Name()
		if contains(modules, name) {
			continue
		}
		for _, module := range listed {
			if strings.HasPrefix(module, name) {
				modules = append(modules, name)
				break
			}
		}
	}
	return modules
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
