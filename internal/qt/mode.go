package qt

import (
	"errors"
	"strings"

	"github.com/harrison/qtbuild/internal/models"
)

// Validation errors. Their messages are reported verbatim to the host.
var (
	ErrNoTarget          = errors.New("No target defined")
	ErrNoTestBinary      = errors.New("No test binary defined")
	ErrNoPackages        = errors.New("No packages defined")
	ErrNoInstallerName   = errors.New("No installer name defined")
	ErrNoInstallerConfig = errors.New("No installer configuration defined")
)

// Resolution is the outcome of mapping a task configuration to steps.
type Resolution struct {
	Mode      models.BuildMode
	Primary   models.BuildStep
	Installer models.InstallerMode
}

// ResolveMode maps cfg.Build to its primary step and validates the fields the
// mode needs. Unknown modes resolve to StepNoop without error.
func ResolveMode(cfg models.TaskConfig) (Resolution, error) {
	mode := models.ParseBuildMode(cfg.WithDefaults().Build)
	res := Resolution{Mode: mode, Primary: models.StepNoop}

	switch mode {
	case models.ModeBuild:
		res.Primary = models.StepQMake
		if blank(cfg.Target) {
			return res, ErrNoTarget
		}
	case models.ModeTest:
		res.Primary = models.StepTest
		if TestBinary(cfg) == "" {
			return res, ErrNoTestBinary
		}
	case models.ModeRepository:
		res.Primary = models.StepRepository
		if blank(cfg.Packages) {
			return res, ErrNoPackages
		}
	case models.ModeOnline, models.ModeOffline, models.ModeInstaller:
		res.Primary = models.StepInstaller
		res.Installer = models.InstallerModeOf(mode)
		switch {
		case blank(cfg.Packages):
			return res, ErrNoPackages
		case blank(cfg.Target):
			return res, ErrNoInstallerName
		case blank(cfg.Command):
			return res, ErrNoInstallerConfig
		}
	}
	return res, nil
}

// TestBinary returns the test executable name: Command when set, else Target.
func TestBinary(cfg models.TaskConfig) string {
	if !blank(cfg.Command) {
		return strings.TrimSpace(cfg.Command)
	}
	return strings.TrimSpace(cfg.Target)
}

// MakeTargets splits a comma-separated target list into make invocations.
// Entries are trimmed; an empty entry means the default target. A trailing
// comma adds exactly one default-target invocation.
func MakeTargets(target string) []string {
	parts := strings.Split(target, ",")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	targets := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		targets = append(targets, strings.TrimSpace(p))
	}
	if strings.HasSuffix(target, ",") {
		targets = append(targets, "")
	}
	return targets
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
