package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/harrison/qtbuild/internal/models"
)

// FileLogger writes a run log to .qtbuild/logs/ and keeps a latest.log
// symlink pointing at the most recent run. It records everything the console
// sees, including subprocess output and environment dumps, without color.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex

	stdout *lineWriter
	stderr *lineWriter
}

// NewFileLoggerWithDirAndLevel creates a new FileLogger with a custom log directory and log level.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}
	fl.stdout = newLineWriter(func(line string) { fl.writeRunLog(line + "\n") })
	fl.stderr = newLineWriter(func(line string) { fl.writeRunLog("[stderr] " + line + "\n") })

	fl.writeRunLog("=== qtbuild Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))
	return fl, nil
}

// Path returns the path of the current run log.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

// PrintLine appends line to the run log.
func (fl *FileLogger) PrintLine(line string) {
	fl.writeRunLog(line + "\n")
}

// PrintEnvironment appends env to the run log as sorted KEY=VALUE lines.
func (fl *FileLogger) PrintEnvironment(env map[string]string) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fl.writeRunLog("  " + k + "=" + env[k] + "\n")
	}
}

// Stdout returns a writer for subprocess standard output.
func (fl *FileLogger) Stdout() io.Writer {
	return fl.stdout
}

// Stderr returns a writer for subprocess standard error. Lines are tagged [stderr].
func (fl *FileLogger) Stderr() io.Writer {
	return fl.stderr
}

// Flush writes out any partial subprocess output line.
func (fl *FileLogger) Flush() {
	fl.stdout.Flush()
	fl.stderr.Flush()
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !allows(fl.logLevel, level) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogTaskStart logs the start of a task.
func (fl *FileLogger) LogTaskStart(task models.TaskConfig) {
	if !allows(fl.logLevel, "info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Starting %s (build=%s target=%q)\n", timestamp(), task.Label(), task.Build, task.Target))
}

// LogTaskComplete logs a successful task.
func (fl *FileLogger) LogTaskComplete(report *models.RunReport) {
	fl.logTaskResult("OK", report)
}

// LogTaskFail logs a failed task with every step that ran.
func (fl *FileLogger) LogTaskFail(report *models.RunReport) {
	fl.logTaskResult("FAILED", report)
}

func (fl *FileLogger) logTaskResult(status string, report *models.RunReport) {
	if report == nil || !allows(fl.logLevel, "info") {
		return
	}
	ts := timestamp()
	out := fmt.Sprintf("[%s] %s %s: %s (%s, run %s)\n",
		ts, status, report.Task.Label(), report.Result.Message, formatDuration(report.Duration), report.ID)
	for _, step := range report.Steps {
		out += fmt.Sprintf("[%s]   %d. %s exit=%d %s\n", ts, step.Sequence, stepLabel(step), step.ExitCode, step.CommandLine)
	}
	fl.writeRunLog(out)
}

// LogSummary logs the run summary.
func (fl *FileLogger) LogSummary(summary models.Summary) {
	if !allows(fl.logLevel, "info") {
		return
	}
	ts := timestamp()
	out := fmt.Sprintf("\n[%s] === Build Summary ===\n", ts)
	out += fmt.Sprintf("[%s] Total tasks: %d\n", ts, summary.TotalTasks)
	out += fmt.Sprintf("[%s] Completed: %d\n", ts, summary.Completed)
	out += fmt.Sprintf("[%s] Failed: %d\n", ts, summary.Failed)
	out += fmt.Sprintf("[%s] Skipped: %d\n", ts, summary.Skipped)
	out += fmt.Sprintf("[%s] Duration: %s\n", ts, formatDuration(summary.Duration))
	for _, report := range summary.FailedTasks {
		out += fmt.Sprintf("[%s]   - %s: %s\n", ts, report.Task.Label(), report.Result.Message)
	}
	fl.writeRunLog(out)
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.Flush()

	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}
