package qt

import (
	"sort"
	"strings"
)

// Environment variable names read or produced by the build.
const (
	VarQtHome         = "QT_HOME"
	VarQtArch         = "QT_ARCH"
	VarQtSpec         = "QT_SPEC"
	VarQtConfig       = "QT_CONFIG"
	VarQtRepo         = "QT_REPO"
	VarQtBuild        = "QT_BUILD"
	VarQtPluginPath   = "QT_PLUGIN_PATH"
	VarQml2ImportPath = "QML2_IMPORT_PATH"
	VarQtRepository   = "QT_REPOSITORY"
	VarRelease        = "RELEASE"
	VarVcVarsAll      = "VC_VARSALL"
)

// Environment is a read-only view over named environment variables.
type Environment struct {
	vars map[string]string
}

// NewEnvironment wraps vars. The map is copied.
func NewEnvironment(vars map[string]string) Environment {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return Environment{vars: copied}
}

// Get returns the value of key, or "" when it is absent.
func (e Environment) Get(key string) string {
	return e.vars[key]
}

// Lookup returns the value of key and whether it is present.
func (e Environment) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// IsSet reports whether key is present with a non-blank value.
func (e Environment) IsSet(key string) bool {
	return strings.TrimSpace(e.vars[key]) != ""
}

// Keys returns all variable names, sorted.
func (e Environment) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConfigFlags splits QT_CONFIG on commas, trimming entries and dropping empty ones.
func (e Environment) ConfigFlags() []string {
	raw := e.Get(VarQtConfig)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var flags []string
	for _, part := range strings.Split(raw, ",") {
		if flag := strings.TrimSpace(part); flag != "" {
			flags = append(flags, flag)
		}
	}
	return flags
}
