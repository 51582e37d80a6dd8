package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/qtbuild/internal/history"
)

// NewHistoryCommand creates the 'qtbuild history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Long: `List recent runs recorded in the history database, most recent first.

Use 'qtbuild history show <run-id>' for the steps of one run. A unique
prefix of the run id is enough.`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}

	cmd.PersistentFlags().String("workdir", "", "Project directory (default: current directory)")
	cmd.PersistentFlags().String("config", "", "Path to config file (default: .qtbuild/config.yaml)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().Bool("failed", false, "Only list failed runs")

	cmd.AddCommand(newHistoryShowCommand())
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the steps of one run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
}

// openHistory opens the configured history database. A nil store with a nil
// error means no run has been recorded yet.
func openHistory(cmd *cobra.Command) (*history.Store, error) {
	dir, _ := cmd.Flags().GetString("workdir")
	if dir == "" {
		dir = "."
	}
	s, err := loadSettings(cmd, dir)
	if err != nil {
		return nil, err
	}
	dbPath := s.dbPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(output, "No runs recorded yet")
		return nil
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	failedOnly, _ := cmd.Flags().GetBool("failed")
	runs, err := store.ListRuns(context.Background(), limit, failedOnly)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(output, "No runs recorded yet")
		return nil
	}

	printRuns(output, runs)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("run %s: %w", args[0], history.ErrRunNotFound)
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		if errors.Is(err, history.ErrRunNotFound) || errors.Is(err, history.ErrAmbiguousRun) {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		return fmt.Errorf("get run: %w", err)
	}
	steps, err := store.GetSteps(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("get steps: %w", err)
	}

	printRun(output, run, steps)
	return nil
}

// printRuns prints one line per run.
func printRuns(w io.Writer, runs []history.Run) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "\n=== Recent Runs (%d) ===\n\n", len(runs))
	for _, run := range runs {
		status := green.Sprint("OK    ")
		if !run.Success {
			status = red.Sprint("FAILED")
		}
		fmt.Fprintf(w, "%s  %s  %-24s %s ", shortID(run.ID), status, run.Label, run.Message)
		gray.Fprintf(w, "(%s, %s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(w)
}

// printRun prints a run and its steps.
func printRun(w io.Writer, run *history.Run, steps []history.Step) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "\n=== Run %s: %s ===\n\n", run.ID, run.Label)
	fmt.Fprintf(w, "  Build:       %s\n", run.Build)
	if run.Target != "" {
		fmt.Fprintf(w, "  Target:      %s\n", run.Target)
	}
	if run.Command != "" {
		fmt.Fprintf(w, "  Command:     %s\n", run.Command)
	}
	if run.Packages != "" {
		fmt.Fprintf(w, "  Packages:    %s\n", run.Packages)
	}
	fmt.Fprintf(w, "  Working dir: %s\n", run.WorkingDir)
	fmt.Fprintf(w, "  Started:     %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "  Duration:    %s\n", run.Duration.Round(time.Millisecond))
	if run.Success {
		green.Fprintf(w, "  Result:      %s\n", run.Message)
	} else {
		red.Fprintf(w, "  Result:      %s\n", run.Message)
	}

	if len(steps) == 0 {
		fmt.Fprintf(w, "\nNo steps were launched\n")
		return
	}

	cyan.Fprintf(w, "\nSteps:\n")
	for _, step := range steps {
		label := step.Step
		if step.Target != "" {
			label += " " + step.Target
		}
		fmt.Fprintf(w, "  %d. %-20s exit=%-4d ", step.Sequence, label, step.ExitCode)
		if step.Success {
			green.Fprint(w, "ok")
		} else {
			red.Fprint(w, step.Message)
		}
		gray.Fprintf(w, " (%s)\n", step.Duration.Round(time.Millisecond))
		if step.CommandLine != "" {
			gray.Fprintf(w, "     %s\n", step.CommandLine)
		}
	}
	fmt.Fprintln(w)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
