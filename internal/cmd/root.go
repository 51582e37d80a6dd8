package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for qtbuild
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qtbuild",
		Short: "Qt build task runner for CI pipelines",
		Long: `qtbuild runs the steps of a Qt pipeline stage: qmake and make for each
target, unit tests, repogen repositories and binarycreator installers.

Tasks come from command-line flags, from task files (Markdown or YAML), or
from a GoCD task-plugin request on stdin.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewPluginCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
