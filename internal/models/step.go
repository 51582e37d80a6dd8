package models

import "strings"

// BuildStep is one canonical execution step.
type BuildStep string

const (
	StepQMake      BuildStep = "QMAKE"
	StepMake       BuildStep = "MAKE"
	StepTest       BuildStep = "TEST"
	StepRepository BuildStep = "REPOSITORY"
	StepInstaller  BuildStep = "INSTALLER"
	StepNoop       BuildStep = "NOOP"
)

// String returns the step name.
func (s BuildStep) String() string {
	return string(s)
}

// BuildMode is a configured build mode identifier.
type BuildMode string

const (
	ModeBuild      BuildMode = "BUILD"
	ModeTest       BuildMode = "TEST"
	ModeRepository BuildMode = "REPOSITORY"
	ModeOnline     BuildMode = "ONLINE"
	ModeOffline    BuildMode = "OFFLINE"
	ModeInstaller  BuildMode = "INSTALLER"
	ModeUnknown    BuildMode = ""
)

// ParseBuildMode matches a mode string case-insensitively.
// Unrecognized values return ModeUnknown.
func ParseBuildMode(value string) BuildMode {
	switch mode := BuildMode(strings.ToUpper(strings.TrimSpace(value))); mode {
	case ModeBuild, ModeTest, ModeRepository, ModeOnline, ModeOffline, ModeInstaller:
		return mode
	default:
		return ModeUnknown
	}
}

// InstallerMode selects which installer flavour binarycreator produces.
type InstallerMode int

const (
	// InstallerBoth produces an installer with online and offline content.
	InstallerBoth InstallerMode = iota
	// InstallerOnline produces an online-only installer (-n).
	InstallerOnline
	// InstallerOffline produces an offline-only installer (-f).
	InstallerOffline
)

// String returns the installer mode name.
func (m InstallerMode) String() string {
	switch m {
	case InstallerOnline:
		return "ONLINE"
	case InstallerOffline:
		return "OFFLINE"
	default:
		return "BOTH"
	}
}

// InstallerModeOf maps a build mode to the installer flavour.
// Anything other than ONLINE or OFFLINE yields InstallerBoth.
func InstallerModeOf(mode BuildMode) InstallerMode {
	switch mode {
	case ModeOnline:
		return InstallerOnline
	case ModeOffline:
		return InstallerOffline
	default:
		return InstallerBoth
	}
}
