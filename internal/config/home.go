package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the directory used for qtbuild state.
const HomeEnv = "QTBUILD_HOME"

// GetHome returns the qtbuild state directory for a project.
// Priority order:
//  1. QTBUILD_HOME environment variable (if set)
//  2. the nearest ancestor of projectDir containing a .qtbuild directory
//  3. projectDir/.qtbuild
//
// The directory is created if it doesn't exist.
func GetHome(projectDir string) (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create qtbuild home directory: %w", err)
		}
		return home, nil
	}

	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolve project directory: %w", err)
	}

	for current := abs; ; {
		candidate := filepath.Join(current, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	home := filepath.Join(abs, DirName)
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create qtbuild home directory: %w", err)
	}
	return home, nil
}
