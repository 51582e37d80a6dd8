package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harrison/qtbuild/internal/filelock"
	"github.com/harrison/qtbuild/internal/models"
)

type runReportJSON struct {
	TotalTasks int              `json:"total_tasks"`
	Completed  int              `json:"completed"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	DurationMS int64            `json:"duration_ms"`
	Tasks      []taskReportJSON `json:"tasks"`
}

type taskReportJSON struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Build      string           `json:"build"`
	Target     string           `json:"target,omitempty"`
	WorkingDir string           `json:"working_dir"`
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMS int64            `json:"duration_ms"`
	Steps      []stepReportJSON `json:"steps"`
}

type stepReportJSON struct {
	Sequence    int    `json:"sequence"`
	Step        string `json:"step"`
	Target      string `json:"target,omitempty"`
	CommandLine string `json:"command_line,omitempty"`
	ExitCode    int    `json:"exit_code"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DurationMS  int64  `json:"duration_ms"`
}

func newRunReportJSON(reports []*models.RunReport, summary models.Summary) runReportJSON {
	out := runReportJSON{
		TotalTasks: summary.TotalTasks,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		DurationMS: summary.Duration.Milliseconds(),
		Tasks:      make([]taskReportJSON, 0, len(reports)),
	}
	for _, r := range reports {
		task := taskReportJSON{
			ID:         r.ID,
			Name:       r.Task.Label(),
			Build:      r.Task.Build,
			Target:     r.Task.Target,
			WorkingDir: r.Context.WorkingDirectory,
			Success:    r.Result.Success,
			Message:    r.Result.Message,
			StartedAt:  r.StartedAt,
			DurationMS: r.Duration.Milliseconds(),
			Steps:      make([]stepReportJSON, 0, len(r.Steps)),
		}
		for _, s := range r.Steps {
			task.Steps = append(task.Steps, stepReportJSON{
				Sequence:    s.Sequence,
				Step:        s.Step.String(),
				Target:      s.Target,
				CommandLine: s.CommandLine,
				ExitCode:    s.ExitCode,
				Success:     s.Result.Success,
				Message:     s.Result.Message,
				DurationMS:  s.Duration.Milliseconds(),
			})
		}
		out.Tasks = append(out.Tasks, task)
	}
	return out
}

// writeReport writes the JSON run report atomically.
func writeReport(path string, reports []*models.RunReport, summary models.Summary) error {
	data, err := json.MarshalIndent(newRunReportJSON(reports, summary), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := filelock.AtomicWrite(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
