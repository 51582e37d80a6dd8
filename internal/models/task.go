package models

import "strings"

// Configuration keys accepted from the host and from task files.
const (
	KeyBuild    = "Build"
	KeyTarget   = "Target"
	KeyCommand  = "Command"
	KeyPackages = "Packages"
	KeyModules  = "Modules"
)

// DefaultBuild is the build mode used when a task leaves Build empty.
const DefaultBuild = "BUILD"

// TaskConfig is the declarative configuration of a single Qt task.
// It is built once per execution request and never mutated afterwards.
type TaskConfig struct {
	Name     string // Display name (task files only)
	Build    string // Mode identifier: BUILD, TEST, REPOSITORY, ONLINE, OFFLINE, INSTALLER
	Target   string // Comma-separated make targets, or test/installer name
	Command  string // qmake project argument, test binary override, or installer config path
	Packages string // Package source tree for REPOSITORY and installer modes
	Modules  string // Optional module ids forwarded to repogen/binarycreator
}

// NewTaskConfig builds a TaskConfig from a key/value mapping as sent by the host.
// Missing keys are left empty; an empty Build falls back to DefaultBuild.
func NewTaskConfig(values map[string]string) TaskConfig {
	cfg := TaskConfig{
		Build:    values[KeyBuild],
		Target:   values[KeyTarget],
		Command:  values[KeyCommand],
		Packages: values[KeyPackages],
		Modules:  values[KeyModules],
	}
	return cfg.WithDefaults()
}

// WithDefaults returns a copy with the default build mode applied.
func (c TaskConfig) WithDefaults() TaskConfig {
	if strings.TrimSpace(c.Build) == "" {
		c.Build = DefaultBuild
	}
	return c
}

// Label returns the display name of the task, falling back to its mode and target.
func (c TaskConfig) Label() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Target == "" {
		return c.Build
	}
	return c.Build + " " + c.Target
}

// ExecutionContext is the working directory and base environment supplied by the host.
type ExecutionContext struct {
	WorkingDirectory string
	Environment      map[string]string
}

// NewExecutionContext copies env so later changes by the caller are not observed.
func NewExecutionContext(workingDirectory string, env map[string]string) ExecutionContext {
	copied := make(map[string]string, len(env))
	for k, v := range env {
		copied[k] = v
	}
	return ExecutionContext{
		WorkingDirectory: workingDirectory,
		Environment:      copied,
	}
}

// TaskFile is an ordered list of tasks loaded from a YAML or Markdown file,
// plus the defaults they share.
type TaskFile struct {
	Name             string
	FilePath         string
	WorkingDirectory string            // Relative paths resolve against the file's directory
	Environment      map[string]string // Layered over the invoking environment
	Tasks            []TaskConfig
}
