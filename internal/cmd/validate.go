package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/qtbuild/internal/models"
	"github.com/harrison/qtbuild/internal/parser"
	"github.com/harrison/qtbuild/internal/qt"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <task-file-or-directory>...",
		Short: "Validate one or more task files or directories",
		Long: `Parse task files and check every task for:
  - A known build mode
  - The fields its mode needs (targets, test binary, packages, installer config)
  - An existing working directory, when one is set

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateTaskFiles(args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	return cmd
}

// validateTaskFiles validates each path and reports every problem found.
func validateTaskFiles(paths []string, output io.Writer) error {
	failed := 0
	for _, path := range paths {
		if err := validateTaskFile(path, output); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d task file(s) invalid", failed, len(paths))
	}
	return nil
}

// validateTaskFile validates a single file or directory.
func validateTaskFile(path string, output io.Writer) error {
	tf, err := parser.ParseFile(path)
	if err != nil {
		fmt.Fprintf(output, "✗ Failed to parse tasks from %s\n", path)
		fmt.Fprintf(output, "  Error: %v\n", err)
		return err
	}

	fmt.Fprintf(output, "✓ Validating tasks from %s\n", path)
	fmt.Fprintf(output, "✓ Parsed %d tasks successfully\n", len(tf.Tasks))

	var errors []string
	if len(tf.Tasks) == 0 {
		errors = append(errors, "no tasks defined")
	}
	if tf.WorkingDirectory != "" {
		if info, err := os.Stat(tf.WorkingDirectory); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("working directory %s does not exist", tf.WorkingDirectory))
		}
	}
	for i, task := range tf.Tasks {
		errors = append(errors, validateTask(i+1, task, output)...)
	}

	if len(errors) == 0 {
		fmt.Fprintf(output, "\n✓ Task file is valid!\n")
		return nil
	}

	fmt.Fprintf(output, "\n✗ Validation failed for tasks from %s\n", path)
	for _, errMsg := range errors {
		fmt.Fprintf(output, "  ✗ %s\n", errMsg)
	}
	fmt.Fprintf(output, "\nFound %d validation error(s)!\n", len(errors))
	return fmt.Errorf("validation failed with %d error(s)", len(errors))
}

// validateTask checks one task's mode and fields.
func validateTask(index int, task models.TaskConfig, output io.Writer) []string {
	res, err := qt.ResolveMode(task)
	if err != nil {
		return []string{fmt.Sprintf("Task %d (%s): %v", index, task.Label(), err)}
	}
	if res.Primary == models.StepNoop {
		fmt.Fprintf(output, "! Task %d (%s): unknown build mode %q, nothing will run\n", index, task.Label(), task.Build)
		return nil
	}
	if res.Primary == models.StepQMake {
		fmt.Fprintf(output, "✓ Task %d (%s): qmake + %d make invocation(s)\n", index, task.Label(), len(qt.MakeTargets(task.Target)))
		return nil
	}
	fmt.Fprintf(output, "✓ Task %d (%s): %s\n", index, task.Label(), res.Primary)
	return nil
}
