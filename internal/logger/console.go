package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/qtbuild/internal/models"
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// Log messages are prefixed with [HH:MM:SS] timestamps; subprocess output is
// written verbatim, one line at a time, with stderr lines highlighted in red
// when color output is enabled.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool

	stdout *lineWriter
	stderr *lineWriter
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// logLevel determines the minimum log level for messages to be output.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
// Color output is enabled when writing to a terminal.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	cl := &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
	cl.stdout = newLineWriter(func(line string) { cl.writeLine(line, nil) })
	cl.stderr = newLineWriter(func(line string) { cl.writeLine(line, color.New(color.FgRed)) })
	return cl
}

// isTerminal checks if the writer is a terminal that supports colors.
// Returns false when NO_COLOR is set.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor && (f == os.Stdout || f == os.Stderr) {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetColor forces color output on or off.
func (cl *ConsoleLogger) SetColor(enabled bool) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.colorOutput = enabled
}

// PrintLine writes line followed by a newline.
func (cl *ConsoleLogger) PrintLine(line string) {
	cl.writeLine(line, nil)
}

// PrintEnvironment writes env as sorted KEY=VALUE lines at DEBUG level.
func (cl *ConsoleLogger) PrintEnvironment(env map[string]string) {
	if !allows(cl.logLevel, "debug") {
		return
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cl.writeLine("  "+k+"="+env[k], color.New(color.FgHiBlack))
	}
}

// Stdout returns a writer for subprocess standard output.
func (cl *ConsoleLogger) Stdout() io.Writer {
	return cl.stdout
}

// Stderr returns a writer for subprocess standard error.
func (cl *ConsoleLogger) Stderr() io.Writer {
	return cl.stderr
}

// Flush writes out any partial subprocess output line.
func (cl *ConsoleLogger) Flush() {
	cl.stdout.Flush()
	cl.stderr.Flush()
}

func (cl *ConsoleLogger) writeLine(line string, c *color.Color) {
	if cl.writer == nil {
		return
	}
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput && c != nil {
		c.EnableColor()
		line = c.Sprint(line)
	}
	io.WriteString(cl.writer, line+"\n")
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !allows(cl.logLevel, level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, levelColor(level).Sprint(level), message)
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

func levelColor(level string) *color.Color {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// LogTaskStart logs the start of a task at INFO level.
// Format: "[HH:MM:SS] Starting <label>"
func (cl *ConsoleLogger) LogTaskStart(task models.TaskConfig) {
	if cl.writer == nil || !allows(cl.logLevel, "info") {
		return
	}
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := task.Label()
	if cl.colorOutput {
		label = color.New(color.Bold).Sprint(label)
	}
	fmt.Fprintf(cl.writer, "[%s] Starting %s\n", timestamp(), label)
}

// LogTaskComplete logs a successful task at INFO level.
// Format: "[HH:MM:SS] <label>: <message> (<duration>)"
func (cl *ConsoleLogger) LogTaskComplete(report *models.RunReport) {
	cl.logTaskResult(report, color.FgGreen)
}

// LogTaskFail logs a failed task at INFO level, naming the failed step when known.
func (cl *ConsoleLogger) LogTaskFail(report *models.RunReport) {
	cl.logTaskResult(report, color.FgRed)
}

func (cl *ConsoleLogger) logTaskResult(report *models.RunReport, attr color.Attribute) {
	if cl.writer == nil || report == nil || !allows(cl.logLevel, "info") {
		return
	}
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	message := report.Result.Message
	if step := report.FailedStep(); step != nil && !report.Result.Success {
		message = fmt.Sprintf("%s [%s]", message, stepLabel(*step))
	}
	if cl.colorOutput {
		message = color.New(attr).Sprint(message)
	}
	fmt.Fprintf(cl.writer, "[%s] %s: %s (%s)\n", timestamp(), report.Task.Label(), message, formatDuration(report.Duration))
}

// LogSummary logs the run summary with completion statistics at INFO level.
func (cl *ConsoleLogger) LogSummary(summary models.Summary) {
	if cl.writer == nil || !allows(cl.logLevel, "info") {
		return
	}
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var b strings.Builder

	header := "=== Build Summary ==="
	completed := fmt.Sprintf("Completed: %d", summary.Completed)
	failed := fmt.Sprintf("Failed: %d", summary.Failed)
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		completed = color.New(color.FgGreen).Sprint(completed)
		if summary.Failed > 0 {
			failed = color.New(color.FgRed).Sprint(failed)
		}
	}

	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Tasks: %s\n", ts, NewProgressBar(summary.TotalTasks, 10, cl.colorOutput).Render(summary.Completed))
	fmt.Fprintf(&b, "[%s] %s\n", ts, completed)
	fmt.Fprintf(&b, "[%s] %s\n", ts, failed)
	if summary.Skipped > 0 {
		fmt.Fprintf(&b, "[%s] Skipped: %d\n", ts, summary.Skipped)
	}
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(summary.Duration))

	for _, report := range summary.FailedTasks {
		fmt.Fprintf(&b, "[%s]   - %s: %s\n", ts, report.Task.Label(), report.Result.Message)
	}

	io.WriteString(cl.writer, b.String())
}

func stepLabel(step models.StepResult) string {
	if step.Target == "" {
		return step.Step.String()
	}
	return step.Step.String() + " " + step.Target
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			if minutes == 0 {
				return fmt.Sprintf("%dh", hours)
			}
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}
