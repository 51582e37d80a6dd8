package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/qtbuild/internal/executor"
	"github.com/harrison/qtbuild/internal/filelock"
	"github.com/harrison/qtbuild/internal/history"
	"github.com/harrison/qtbuild/internal/logger"
	"github.com/harrison/qtbuild/internal/models"
	"github.com/harrison/qtbuild/internal/parser"
	"github.com/harrison/qtbuild/internal/qt"
)

// taskFlags are the flags describing a single task given on the command line.
var taskFlags = []string{"build", "target", "command", "packages", "modules"}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [task-file-or-directory]...",
		Short: "Run Qt build tasks",
		Long: `Run a single Qt task described by flags, or every task of one or more
task files (Markdown or YAML) in order, stopping at the first failure.

The working directory defaults to the task file's working_directory, then to
the current directory. The process environment is passed to every step;
task file environment and --env entries are layered on top.

Configuration is loaded from .qtbuild/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  # qmake + make for two targets
  qtbuild run --build BUILD --target all,install --command app.pro

  # run the unit tests built into build/<spec>/bin
  qtbuild run --build TEST --target tst_core

  # offline installer
  qtbuild run --build OFFLINE --target setup --command config/config.xml --packages packages

  # task files
  qtbuild run pipeline.yaml
  qtbuild run ci/tasks/          # loads numbered files: 1-build.md, 2-test.yaml, ...

  # other options
  qtbuild run --timeout 45m pipeline.md
  qtbuild run --report build/report.json pipeline.md
  qtbuild run --env QT_HOME=/opt/Qt/5.12.0/gcc_64 --env QT_SPEC=linux-g++ pipeline.md`,
		RunE: runCommand,
	}

	cmd.Flags().String("build", "", "Build mode: BUILD, TEST, REPOSITORY, ONLINE, OFFLINE, INSTALLER")
	cmd.Flags().String("target", "", "Make targets (comma separated), test binary or installer name")
	cmd.Flags().String("command", "", "qmake project argument, test binary or installer config")
	cmd.Flags().String("packages", "", "Package directory for repogen and binarycreator")
	cmd.Flags().String("modules", "", "Module ids to include from the package directory")
	cmd.Flags().String("workdir", "", "Working directory (default: task file working_directory or current directory)")
	cmd.Flags().StringArray("env", nil, "Environment entry KEY=VALUE (repeatable)")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 30m, 2h, 1h30m)")
	cmd.Flags().Bool("no-lock", false, "Do not take the build directory lock")
	cmd.Flags().String("report", "", "Write a JSON run report to this path")
	addConfigFlags(cmd)

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	tasks, file, err := loadTasks(cmd, args)
	if err != nil {
		return err
	}

	ectx, err := executionContext(cmd, file)
	if err != nil {
		return err
	}

	s, err := loadSettings(cmd, ectx.WorkingDirectory)
	if err != nil {
		return err
	}

	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), s.LogLevel)
	fileLog, err := logger.NewFileLoggerWithDirAndLevel(s.logDir(), s.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		consoleLog.SetColor(false)
	}
	sink := logger.NewMulti(consoleLog, fileLog)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if s.LockBuilds {
		lock, err := acquireBuildLock(ctx, ectx.WorkingDirectory, sink)
		if err != nil {
			return err
		}
		defer lock.Unlock()
	}

	orch := executor.NewOrchestrator(s.platform(), sink, sink)
	// The host environment is already part of ectx.
	orch.HostEnv = nil

	consoleLog.LogDebug(fmt.Sprintf("Platform: %s, %d task(s)", orch.Builder.Platform.Name(), len(tasks)))
	reports, summary := orch.ExecuteAll(ctx, tasks, ectx)

	if s.History.Enabled {
		if err := recordHistory(ctx, s.dbPath(), s.History.KeepRuns, reports); err != nil {
			sink.LogWarn(fmt.Sprintf("failed to record history: %v", err))
		}
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := writeReport(reportPath, reports, summary); err != nil {
			return err
		}
	}

	consoleLog.LogInfo("Log written to: " + fileLog.Path())

	if summary.Failed > 0 {
		failed := summary.FailedTasks[0]
		if executor.IsCancelled(failed.Result) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("task %q cancelled after timeout %s", failed.Task.Label(), s.Timeout)
		}
		return fmt.Errorf("task %q failed: %s", failed.Task.Label(), failed.Result.Message)
	}
	return nil
}

// loadTasks reads tasks from the task files in args, or builds one task from
// the task flags. The two sources cannot be combined.
func loadTasks(cmd *cobra.Command, args []string) ([]models.TaskConfig, *models.TaskFile, error) {
	var flagged []string
	values := map[string]string{}
	for _, name := range taskFlags {
		if cmd.Flags().Changed(name) {
			flagged = append(flagged, "--"+name)
			v, _ := cmd.Flags().GetString(name)
			values[flagKey(name)] = v
		}
	}

	if len(args) == 0 {
		if len(flagged) == 0 {
			return nil, nil, errors.New("no task given: pass task flags (--build, --target, ...) or a task file")
		}
		return []models.TaskConfig{models.NewTaskConfig(values)}, nil, nil
	}
	if len(flagged) > 0 {
		return nil, nil, fmt.Errorf("%s cannot be combined with task files", strings.Join(flagged, ", "))
	}

	merged := &models.TaskFile{Environment: map[string]string{}}
	for _, arg := range args {
		tf, err := parser.ParseFile(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load task file: %w", err)
		}
		if merged.WorkingDirectory == "" {
			merged.WorkingDirectory = tf.WorkingDirectory
		}
		for k, v := range tf.Environment {
			merged.Environment[k] = v
		}
		merged.Tasks = append(merged.Tasks, tf.Tasks...)
	}
	if len(merged.Tasks) == 0 {
		return nil, nil, errors.New("task files contain no tasks")
	}
	return merged.Tasks, merged, nil
}

// flagKey maps a task flag name to its configuration key.
func flagKey(name string) string {
	switch name {
	case "build":
		return models.KeyBuild
	case "target":
		return models.KeyTarget
	case "command":
		return models.KeyCommand
	case "packages":
		return models.KeyPackages
	default:
		return models.KeyModules
	}
}

// executionContext resolves the working directory and layers the process
// environment, the task file environment and --env entries.
func executionContext(cmd *cobra.Command, file *models.TaskFile) (models.ExecutionContext, error) {
	wd, _ := cmd.Flags().GetString("workdir")
	if wd == "" && file != nil {
		wd = file.WorkingDirectory
	}
	if wd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return models.ExecutionContext{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		wd = cwd
	}
	abs, err := filepath.Abs(wd)
	if err != nil {
		return models.ExecutionContext{}, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.ExecutionContext{}, fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return models.ExecutionContext{}, fmt.Errorf("working directory %s is not a directory", abs)
	}

	overrides, err := parseEnvFlags(cmd)
	if err != nil {
		return models.ExecutionContext{}, err
	}
	var fileEnv map[string]string
	if file != nil {
		fileEnv = file.Environment
	}
	env := models.MergeEnv(executor.HostEnvironment(), fileEnv, overrides)
	return models.NewExecutionContext(abs, env), nil
}

func parseEnvFlags(cmd *cobra.Command) (map[string]string, error) {
	entries, _ := cmd.Flags().GetStringArray("env")
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --env entry %q, expected KEY=VALUE", entry)
		}
		env[strings.TrimSpace(key)] = value
	}
	return env, nil
}

// acquireBuildLock takes the lock on the shadow build directory, waiting for
// other runs when it is held.
func acquireBuildLock(ctx context.Context, workingDir string, log *logger.Multi) (*filelock.BuildLock, error) {
	lock := filelock.NewBuildLock(qt.BuildPath(workingDir))
	err := lock.TryLock()
	if err == nil {
		return lock, nil
	}
	if !errors.Is(err, filelock.ErrBuildLocked) {
		return nil, err
	}
	log.LogWarn("Waiting for another build to release " + lock.Path())
	if err := lock.Lock(ctx, filelock.DefaultRetryDelay); err != nil {
		return nil, err
	}
	return lock, nil
}

func recordHistory(ctx context.Context, dbPath string, keep int, reports []*models.RunReport) error {
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// A cancelled run is still recorded.
	ctx = context.WithoutCancel(ctx)
	for _, report := range reports {
		if err := store.RecordRun(ctx, report); err != nil {
			return err
		}
	}
	if keep > 0 {
		if _, err := store.Prune(ctx, keep); err != nil {
			return err
		}
	}
	return nil
}
