package logger

import (
	"io"

	"github.com/harrison/qtbuild/internal/models"
)

// Sink is a console sink that also reports task progress.
type Sink interface {
	PrintLine(line string)
	PrintEnvironment(env map[string]string)
	Stdout() io.Writer
	Stderr() io.Writer
	LogTaskStart(task models.TaskConfig)
	LogTaskComplete(report *models.RunReport)
	LogTaskFail(report *models.RunReport)
	LogSummary(summary models.Summary)
}

// Multi fans every call out to each of its sinks in order.
type Multi struct {
	sinks  []Sink
	stdout io.Writer
	stderr io.Writer
}

// NewMulti combines sinks. Nil entries are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	var outs, errs []io.Writer
	for _, s := range sinks {
		if s == nil {
			continue
		}
		m.sinks = append(m.sinks, s)
		outs = append(outs, s.Stdout())
		errs = append(errs, s.Stderr())
	}
	m.stdout = io.MultiWriter(outs...)
	m.stderr = io.MultiWriter(errs...)
	return m
}

func (m *Multi) PrintLine(line string) {
	for _, s := range m.sinks {
		s.PrintLine(line)
	}
}

func (m *Multi) PrintEnvironment(env map[string]string) {
	for _, s := range m.sinks {
		s.PrintEnvironment(env)
	}
}

func (m *Multi) Stdout() io.Writer { return m.stdout }

func (m *Multi) Stderr() io.Writer { return m.stderr }

// Flush flushes every sink that buffers output.
func (m *Multi) Flush() {
	for _, s := range m.sinks {
		if f, ok := s.(interface{ Flush() }); ok {
			f.Flush()
		}
	}
}

func (m *Multi) LogTaskStart(task models.TaskConfig) {
	for _, s := range m.sinks {
		s.LogTaskStart(task)
	}
}

func (m *Multi) LogTaskComplete(report *models.RunReport) {
	for _, s := range m.sinks {
		s.LogTaskComplete(report)
	}
}

func (m *Multi) LogTaskFail(report *models.RunReport) {
	for _, s := range m.sinks {
		s.LogTaskFail(report)
	}
}

func (m *Multi) LogSummary(summary models.Summary) {
	for _, s := range m.sinks {
		s.LogSummary(summary)
	}
}

// LogInfo, LogWarn and LogError reach the sinks that accept leveled messages.

func (m *Multi) LogInfo(message string) {
	m.eachLeveled(func(l leveled) { l.LogInfo(message) })
}

func (m *Multi) LogWarn(message string) {
	m.eachLeveled(func(l leveled) { l.LogWarn(message) })
}

func (m *Multi) LogError(message string) {
	m.eachLeveled(func(l leveled) { l.LogError(message) })
}

type leveled interface {
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

func (m *Multi) eachLeveled(log func(leveled)) {
	for _, s := range m.sinks {
		if l, ok := s.(leveled); ok {
			log(l)
		}
	}
}
