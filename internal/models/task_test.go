package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTaskConfigDefaultsBuild(t *testing.T) {
	cfg := NewTaskConfig(map[string]string{KeyTarget: "all"})
	assert.Equal(t, DefaultBuild, cfg.Build)
	assert.Equal(t, "all", cfg.Target)

	cfg = NewTaskConfig(map[string]string{KeyBuild: "TEST", KeyCommand: "t", KeyPackages: "p", KeyModules: "m"})
	assert.Equal(t, TaskConfig{Build: "TEST", Command: "t", Packages: "p", Modules: "m"}, cfg)
}

func TestTaskConfigLabel(t *testing.T) {
	tests := []struct {
		cfg  TaskConfig
		want string
	}{
		{TaskConfig{Name: "compile", Build: "BUILD"}, "compile"},
		{TaskConfig{Build: "BUILD", Target: "all"}, "BUILD all"},
		{TaskConfig{Build: "REPOSITORY"}, "REPOSITORY"},
	}
	for _, tt := range tests {
		if got := tt.cfg.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestExecutionContextCopiesEnvironment(t *testing.T) {
	env := map[string]string{"B": "2", "A": "1"}
	ectx := NewExecutionContext("/w", env)
	env["C"] = "3"

	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, ectx.Environment)
	assert.Equal(t, "/w", ectx.WorkingDirectory)
}

func TestParseBuildMode(t *testing.T) {
	assert.Equal(t, ModeBuild, ParseBuildMode("build"))
	assert.Equal(t, ModeOffline, ParseBuildMode(" Offline "))
	assert.Equal(t, ModeUnknown, ParseBuildMode("deploy"))
	assert.Equal(t, ModeUnknown, ParseBuildMode(""))
}

func TestInstallerModeOf(t *testing.T) {
	assert.Equal(t, InstallerOnline, InstallerModeOf(ModeOnline))
	assert.Equal(t, InstallerOffline, InstallerModeOf(ModeOffline))
	assert.Equal(t, InstallerBoth, InstallerModeOf(ModeInstaller))
	assert.Equal(t, "BOTH", InstallerBoth.String())
}
