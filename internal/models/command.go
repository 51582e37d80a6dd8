package models

// CommandSpec is an ephemeral description of one process launch.
// Args holds one word per element; Prelude holds shell statements that must
// run in the same shell before Args (Windows toolchain bootstrap).
type CommandSpec struct {
	Step    BuildStep
	Target  string
	Args    []string
	Prelude []string
	Env     map[string]string

	// LibraryPath lists directories added to the platform library search
	// variable after all environment overlays are merged.
	LibraryPath []string
}

// MergeEnv returns base overlaid with every overlay in order. Later maps win.
func MergeEnv(base map[string]string, overlays ...map[string]string) map[string]string {
	size := len(base)
	for _, o := range overlays {
		size += len(o)
	}
	merged := make(map[string]string, size)
	for k, v := range base {
		merged[k] = v
	}
	for _, o := range overlays {
		for k, v := range o {
			merged[k] = v
		}
	}
	return merged
}
