package qt

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harrison/qtbuild/internal/models"
)

// ErrMissingVariable is returned when a step needs an environment variable
// that the execution context does not provide.
var ErrMissingVariable = errors.New("required environment variable not set")

// Builder turns a step plus task configuration into a CommandSpec.
// It never launches anything.
type Builder struct {
	Platform Platform

	// FrameworkBin resolves the installer framework bin directory for a
	// QT_HOME value. Defaults to InstallerFrameworkBin.
	FrameworkBin func(qtHome string) string
}

// NewBuilder creates a Builder for platform.
func NewBuilder(platform Platform) *Builder {
	return &Builder{
		Platform:     platform,
		FrameworkBin: InstallerFrameworkBin,
	}
}

// Build produces the command for step. target is only used by StepMake.
func (b *Builder) Build(step models.BuildStep, target string, cfg models.TaskConfig, ectx models.ExecutionContext) (models.CommandSpec, error) {
	env := NewEnvironment(ectx.Environment)
	spec := models.CommandSpec{Step: step, Target: target}

	switch step {
	case models.StepQMake:
		if err := requireVars(env, VarQtHome, VarQtArch, VarQtSpec); err != nil {
			return spec, err
		}
		qmake := filepath.Join(env.Get(VarQtHome), env.Get(VarQtArch), "bin", "qmake")
		spec.Args = []string{qmake, "-spec", env.Get(VarQtSpec)}
		for _, flag := range env.ConfigFlags() {
			spec.Args = append(spec.Args, "CONFIG+="+flag)
		}
		spec.Args = append(spec.Args, splitWords(cfg.Command)...)
		spec.Prelude = b.Platform.ToolchainPrelude(env)

	case models.StepMake:
		spec.Args = []string{b.Platform.MakeTool}
		if target != "" {
			spec.Args = append(spec.Args, target)
		}
		spec.Prelude = b.Platform.ToolchainPrelude(env)

	case models.StepTest:
		binary := b.Platform.Executable(TestBinary(cfg))
		path := filepath.Join(BuildPath(ectx.WorkingDirectory), env.Get(VarQtSpec), "bin", binary)
		spec.Target = TestBinary(cfg)
		spec.Args = []string{path, "-xunitxml"}
		spec.Prelude = b.Platform.ToolchainPrelude(env)
		if env.IsSet(VarQtHome) {
			spec.LibraryPath = []string{filepath.Join(env.Get(VarQtHome), env.Get(VarQtArch), "bin")}
		}

	case models.StepRepository:
		if err := requireVars(env, VarQtHome); err != nil {
			return spec, err
		}
		bin := b.frameworkBin(env.Get(VarQtHome))
		spec.Args = RepoGen{
			Binary:     filepath.Join(bin, b.Platform.Executable("repogen")),
			Update:     true,
			Packages:   cfg.Packages,
			Modules:    ExpandModules(cfg.Modules, packagesDir(ectx, cfg)),
			Repository: RepositoryPath,
		}.Command()

	case models.StepInstaller:
		if err := requireVars(env, VarQtHome); err != nil {
			return spec, err
		}
		bin := b.frameworkBin(env.Get(VarQtHome))
		spec.Target = cfg.Target
		spec.Args = Installer{
			Binary:   filepath.Join(bin, b.Platform.Executable("binarycreator")),
			Mode:     models.InstallerModeOf(models.ParseBuildMode(cfg.Build)),
			Config:   cfg.Command,
			Packages: cfg.Packages,
			Modules:  ExpandModules(cfg.Modules, packagesDir(ectx, cfg)),
			Name:     cfg.Target,
		}.Command()

	default:
		return spec, fmt.Errorf("no command for step %s", step)
	}
	return spec, nil
}

// ExtendSearchPath adds dirs to the platform library search variable in env.
// Unix appends to LD_LIBRARY_PATH; Windows prepends to PATH, matching the
// variable case already present.
func (p Platform) ExtendSearchPath(env map[string]string, dirs []string) {
	if len(dirs) == 0 {
		return
	}
	key := p.LibraryPathVar
	if p.IsWindows {
		for k := range env {
			if strings.EqualFold(k, key) {
				key = k
				break
			}
		}
	}
	current := env[key]
	joined := strings.Join(dirs, p.ListSeparator)
	switch {
	case current == "":
		env[key] = joined
	case p.IsWindows:
		env[key] = joined + p.ListSeparator + current
	default:
		env[key] = current + p.ListSeparator + joined
	}
}

func (b *Builder) frameworkBin(qtHome string) string {
	if b.FrameworkBin != nil {
		return b.FrameworkBin(qtHome)
	}
	return InstallerFrameworkBin(qtHome)
}

func packagesDir(ectx models.ExecutionContext, cfg models.TaskConfig) string {
	if filepath.IsAbs(cfg.Packages) {
		return cfg.Packages
	}
	return filepath.Join(ectx.WorkingDirectory, cfg.Packages)
}

func requireVars(env Environment, keys ...string) error {
	for _, key := range keys {
		if !env.IsSet(key) {
			return fmt.Errorf("%w: %s", ErrMissingVariable, key)
		}
	}
	return nil
}

// splitWords splits a free-form argument string on whitespace, keeping
// single- or double-quoted sections together.
func splitWords(s string) []string {
	var (
		words   []string
		current strings.Builder
		quote   rune
		inWord  bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		words = append(words, current.String())
	}
	return words
}
