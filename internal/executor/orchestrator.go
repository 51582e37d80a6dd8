package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/qtbuild/internal/models"
	"github.com/harrison/qtbuild/internal/qt"
)

// Console is the line-oriented sink for launch banners and process output.
type Console interface {
	PrintLine(line string)
	PrintEnvironment(env map[string]string)
	Stdout() io.Writer
	Stderr() io.Writer
}

// flusher is implemented by consoles that buffer partial output lines.
type flusher interface {
	Flush()
}

// Logger defines the interface for logging task progress across a task list.
type Logger interface {
	LogTaskStart(task models.TaskConfig)
	LogTaskComplete(report *models.RunReport)
	LogTaskFail(report *models.RunReport)
	LogSummary(summary models.Summary)
}

// Orchestrator sequences the steps of a task and launches them one at a time.
type Orchestrator struct {
	Builder  *qt.Builder
	Launcher Launcher
	Console  Console
	Logger   Logger

	// HostEnv supplies the lowest environment layer under the task context.
	// Nil means the process sees only the context environment and overlays.
	HostEnv func() map[string]string
}

// NewOrchestrator creates an Orchestrator that launches real processes for platform.
// The logger parameter is optional and can be nil.
func NewOrchestrator(platform qt.Platform, console Console, logger Logger) *Orchestrator {
	if console == nil {
		panic("console cannot be nil")
	}
	return &Orchestrator{
		Builder:  qt.NewBuilder(platform),
		Launcher: ProcessLauncher{},
		Console:  console,
		Logger:   logger,
		HostEnv:  HostEnvironment,
	}
}

// Execute runs one task to completion and never panics or returns an error:
// every outcome is resolved to report.Result.
//
// BUILD runs qmake once, then make once per target, stopping at the first
// failure. TEST, REPOSITORY and installer modes run a single step.
func (o *Orchestrator) Execute(ctx context.Context, cfg models.TaskConfig, ectx models.ExecutionContext) (report *models.RunReport) {
	report = &models.RunReport{
		ID:        uuid.NewString(),
		Task:      cfg,
		Context:   ectx,
		StartedAt: time.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()
	defer func() {
		if r := recover(); r != nil {
			report.Result = ReportPanic(r, o.Console)
		}
	}()

	o.Console.PrintLine("Launching command on: " + ectx.WorkingDirectory)
	o.Console.PrintEnvironment(ectx.Environment)

	res, err := qt.ResolveMode(cfg)
	if err != nil {
		report.Result = ReportValidation(err)
		return report
	}

	switch res.Primary {
	case models.StepNoop:
		report.Result = models.Success(models.MessageNothingToDo)
	case models.StepQMake:
		report.Result = o.build(ctx, report, cfg, ectx)
	default:
		report.Result = o.runStep(ctx, report, res.Primary, "", cfg, ectx).Result
	}
	return report
}

// ExecuteAll runs tasks in order against the same context, stopping at the
// first failed task. SIGINT/SIGTERM cancel the in-flight step.
func (o *Orchestrator) ExecuteAll(ctx context.Context, tasks []models.TaskConfig, ectx models.ExecutionContext) ([]*models.RunReport, models.Summary) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			o.Console.PrintLine("Received interrupt signal, cancelling build...")
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	summary := models.Summary{TotalTasks: len(tasks)}
	reports := make([]*models.RunReport, 0, len(tasks))

	for _, task := range tasks {
		if o.Logger != nil {
			o.Logger.LogTaskStart(task)
		}
		report := o.Execute(ctx, task, ectx)
		reports = append(reports, report)

		if report.Result.Success {
			summary.Completed++
			if o.Logger != nil {
				o.Logger.LogTaskComplete(report)
			}
			continue
		}

		summary.Failed++
		summary.FailedTasks = append(summary.FailedTasks, report)
		if o.Logger != nil {
			o.Logger.LogTaskFail(report)
		}
		break
	}

	summary.Skipped = summary.TotalTasks - summary.Completed - summary.Failed
	summary.Duration = time.Since(start)
	if o.Logger != nil {
		o.Logger.LogSummary(summary)
	}
	return reports, summary
}

// build runs QMAKE then one MAKE per target, short-circuiting on failure.
func (o *Orchestrator) build(ctx context.Context, report *models.RunReport, cfg models.TaskConfig, ectx models.ExecutionContext) models.ExecutionResult {
	step := o.runStep(ctx, report, models.StepQMake, "", cfg, ectx)
	if !step.Result.Success {
		return step.Result
	}
	for _, target := range qt.MakeTargets(cfg.Target) {
		step = o.runStep(ctx, report, models.StepMake, target, cfg, ectx)
		if !step.Result.Success {
			return step.Result
		}
	}
	return step.Result
}

// runStep derives, launches and records a single step.
func (o *Orchestrator) runStep(ctx context.Context, report *models.RunReport, step models.BuildStep, target string, cfg models.TaskConfig, ectx models.ExecutionContext) models.StepResult {
	start := time.Now()
	record := func(sr models.StepResult) models.StepResult {
		sr.Sequence = len(report.Steps) + 1
		sr.Step = step
		sr.Duration = time.Since(start)
		report.Steps = append(report.Steps, sr)
		return sr
	}

	if err := ctx.Err(); err != nil {
		return record(models.StepResult{
			Target:   target,
			ExitCode: -1,
			Result:   ReportStep(step, target, -1, fmt.Errorf("%w: %w", ErrCancelled, err)),
		})
	}

	spec, err := o.Builder.Build(step, target, cfg, ectx)
	if err != nil {
		return record(models.StepResult{Target: target, ExitCode: -1, Result: ReportValidation(err)})
	}

	platform := o.Builder.Platform
	env := models.MergeEnv(o.hostEnv(), ectx.Environment, qt.DeriveEnvironment(ectx), spec.Env)
	platform.ExtendSearchPath(env, spec.LibraryPath)

	line := platform.CommandLine(spec)
	o.Console.PrintLine("Launching command: " + line)
	o.Console.PrintEnvironment(env)

	code, err := o.Launcher.Launch(ctx, LaunchRequest{
		Argv:   platform.Argv(spec),
		Dir:    ectx.WorkingDirectory,
		Env:    env,
		Stdout: o.Console.Stdout(),
		Stderr: o.Console.Stderr(),
	})
	if f, ok := o.Console.(flusher); ok {
		f.Flush()
	}
	return record(models.StepResult{
		Target:      spec.Target,
		CommandLine: line,
		ExitCode:    code,
		Result:      ReportStep(step, spec.Target, code, err),
	})
}

func (o *Orchestrator) hostEnv() map[string]string {
	if o.HostEnv == nil {
		return nil
	}
	return o.HostEnv()
}
