package qt

import (
	"path/filepath"

	"github.com/harrison/qtbuild/internal/models"
)

// BuildDir is the directory, relative to the working directory, that holds
// the shadow build.
const BuildDir = "build"

// DeriveEnvironment computes the environment overlay shared by every step of
// a run. The result depends only on ectx, so repeated calls are identical.
//
// QT_ARCH and QT_SPEC pass through from the base environment. QT_REPO is set
// only when both QT_REPOSITORY and RELEASE are present.
func DeriveEnvironment(ectx models.ExecutionContext) map[string]string {
	env := NewEnvironment(ectx.Environment)
	overlay := make(map[string]string, 6)

	arch, hasArch := env.Lookup(VarQtArch)
	if hasArch {
		overlay[VarQtArch] = arch
	}
	spec, hasSpec := env.Lookup(VarQtSpec)
	if hasSpec {
		overlay[VarQtSpec] = spec
	}

	if release, ok := env.Lookup(VarRelease); ok && env.IsSet(VarQtRepository) {
		overlay[VarQtRepo] = filepath.Join(env.Get(VarQtRepository), release)
	}

	buildPath := BuildPath(ectx.WorkingDirectory)
	base := filepath.Join(buildPath, spec)
	overlay[VarQtBuild] = buildPath
	overlay[VarQml2ImportPath] = filepath.Join(base, "qml")
	overlay[VarQtPluginPath] = filepath.Join(base, "plugins")
	return overlay
}

// BuildPath returns the absolute shadow build directory for workingDir.
func BuildPath(workingDir string) string {
	abs, err := filepath.Abs(workingDir)
	if err != nil {
		abs = filepath.Clean(workingDir)
	}
	return filepath.Join(abs, BuildDir)
}
