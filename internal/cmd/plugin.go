package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/harrison/qtbuild/internal/executor"
	"github.com/harrison/qtbuild/internal/logger"
	"github.com/harrison/qtbuild/internal/plugin"
)

// NewPluginCommand creates the plugin command, the GoCD task-plugin bridge.
func NewPluginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin --request <configuration|view|validate|execute>",
		Short: "Answer a GoCD task-plugin request",
		Long: `Read a GoCD task-plugin request body from stdin and write the JSON
response to stdout. Process output of an execute request goes to stderr,
which the host shows as the job console.`,
		Args: cobra.NoArgs,
		RunE: pluginCommand,
	}

	cmd.Flags().String("request", "", "Request name: configuration, view, validate, execute")
	cmd.Flags().String("log-level", "info", "Console log level")
	cmd.Flags().String("platform", "", "Platform override (e.g. linux, windows)")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

func pluginCommand(cmd *cobra.Command, args []string) error {
	request, _ := cmd.Flags().GetString("request")
	level, _ := cmd.Flags().GetString("log-level")
	platformName, _ := cmd.Flags().GetString("platform")

	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), level)
	orch := executor.NewOrchestrator(platformFor(platformName), console, nil)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return plugin.NewHandler(orch).Serve(ctx, request, cmd.InOrStdin(), cmd.OutOrStdout())
}
