// Package plugin answers GoCD task-plugin requests: the configuration schema,
// the task view, validation of a task configuration and task execution.
package plugin

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/harrison/qtbuild/internal/models"
	"github.com/harrison/qtbuild/internal/qt"
)

// Request names understood by Handle.
const (
	RequestConfiguration = "configuration"
	RequestView          = "view"
	RequestValidate      = "validate"
	RequestExecute       = "execute"
)

// DisplayName is shown by the host in the task type picker.
const DisplayName = "Qt Task"

// ErrUnhandledRequest is returned for request names the plugin does not know.
var ErrUnhandledRequest = errors.New("unhandled request type")

//go:embed view.md
var viewSource []byte

// Executor runs one task. *executor.Orchestrator satisfies it.
type Executor interface {
	Execute(ctx context.Context, cfg models.TaskConfig, ectx models.ExecutionContext) *models.RunReport
}

// Field describes one entry of the configuration schema.
type Field struct {
	DefaultValue string `json:"default-value,omitempty"`
	DisplayOrder string `json:"display-order"`
	DisplayName  string `json:"display-name"`
	Required     bool   `json:"required"`
	Secure       bool   `json:"secure"`
}

// Property is a configured value as sent by the host.
type Property struct {
	Value    string `json:"value"`
	Secure   bool   `json:"secure,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// TaskContext is the execution context block of an execute request.
type TaskContext struct {
	WorkingDirectory     string            `json:"workingDirectory"`
	EnvironmentVariables map[string]string `json:"environmentVariables"`
}

// ExecuteRequest is the body of an execute request.
type ExecuteRequest struct {
	Config  map[string]Property `json:"config"`
	Context TaskContext         `json:"context"`
}

// ViewResponse is the body of a view response.
type ViewResponse struct {
	DisplayValue string `json:"displayValue"`
	Template     string `json:"template"`
}

// ValidateResponse maps configuration keys to error messages.
type ValidateResponse struct {
	Errors map[string]string `json:"errors"`
}

// ExecuteResponse is the body of an execute response.
type ExecuteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handler dispatches plugin requests.
type Handler struct {
	Executor Executor
}

// NewHandler creates a Handler that runs execute requests on exec.
func NewHandler(exec Executor) *Handler {
	return &Handler{Executor: exec}
}

// Configuration returns the task configuration schema.
func Configuration() map[string]Field {
	return map[string]Field{
		models.KeyBuild:    {DefaultValue: models.DefaultBuild, DisplayOrder: "0", DisplayName: "Build", Required: true},
		models.KeyTarget:   {DisplayOrder: "1", DisplayName: "Target"},
		models.KeyCommand:  {DisplayOrder: "2", DisplayName: "Command"},
		models.KeyPackages: {DisplayOrder: "3", DisplayName: "Packages"},
		models.KeyModules:  {DisplayOrder: "4", DisplayName: "Modules"},
	}
}

// View renders the embedded task template to HTML.
func View() (ViewResponse, error) {
	md := goldmark.New(goldmark.WithRendererOptions(html.WithUnsafe()))
	var buf bytes.Buffer
	if err := md.Convert(viewSource, &buf); err != nil {
		return ViewResponse{}, fmt.Errorf("failed to render template: %w", err)
	}
	return ViewResponse{DisplayValue: DisplayName, Template: buf.String()}, nil
}

// Validate checks a configuration and reports errors keyed by the field at fault.
func Validate(props map[string]Property) ValidateResponse {
	resp := ValidateResponse{Errors: map[string]string{}}
	_, err := qt.ResolveMode(taskConfig(props))
	if err != nil {
		resp.Errors[fieldFor(err)] = err.Error()
	}
	return resp
}

// Handle answers request with the response value to encode as JSON.
func (h *Handler) Handle(ctx context.Context, request string, body io.Reader) (any, error) {
	switch request {
	case RequestConfiguration:
		return Configuration(), nil
	case RequestView:
		return View()
	case RequestValidate:
		props := map[string]Property{}
		if err := decode(body, &props); err != nil {
			return nil, err
		}
		return Validate(props), nil
	case RequestExecute:
		var req ExecuteRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		return h.execute(ctx, req), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnhandledRequest, request)
	}
}

// Serve reads the request body from r and writes the JSON response to w.
func (h *Handler) Serve(ctx context.Context, request string, r io.Reader, w io.Writer) error {
	resp, err := h.Handle(ctx, request, r)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func (h *Handler) execute(ctx context.Context, req ExecuteRequest) ExecuteResponse {
	if h.Executor == nil {
		return ExecuteResponse{Success: false, Message: "no executor configured"}
	}
	ectx := models.NewExecutionContext(req.Context.WorkingDirectory, req.Context.EnvironmentVariables)
	report := h.Executor.Execute(ctx, taskConfig(req.Config), ectx)
	return ExecuteResponse{Success: report.Result.Success, Message: report.Result.Message}
}

func taskConfig(props map[string]Property) models.TaskConfig {
	values := make(map[string]string, len(props))
	for k, p := range props {
		values[k] = p.Value
	}
	return models.NewTaskConfig(values)
}

// fieldFor names the configuration key a validation error belongs to.
func fieldFor(err error) string {
	switch {
	case errors.Is(err, qt.ErrNoPackages):
		return models.KeyPackages
	case errors.Is(err, qt.ErrNoInstallerConfig):
		return models.KeyCommand
	case errors.Is(err, qt.ErrNoTarget), errors.Is(err, qt.ErrNoTestBinary), errors.Is(err, qt.ErrNoInstallerName):
		return models.KeyTarget
	default:
		return models.KeyBuild
	}
}

func decode(r io.Reader, v any) error {
	if r == nil {
		return errors.New("empty request body")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
