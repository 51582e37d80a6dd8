package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/qtbuild/internal/models"
	"github.com/harrison/qtbuild/internal/qt"
)

type recordingExecutor struct {
	cfg    models.TaskConfig
	ectx   models.ExecutionContext
	result models.ExecutionResult
}

func (r *recordingExecutor) Execute(ctx context.Context, cfg models.TaskConfig, ectx models.ExecutionContext) *models.RunReport {
	r.cfg = cfg
	r.ectx = ectx
	return &models.RunReport{Task: cfg, Context: ectx, Result: r.result}
}

func TestConfigurationSchema(t *testing.T) {
	h := NewHandler(nil)
	resp, err := h.Handle(context.Background(), RequestConfiguration, nil)
	require.NoError(t, err)

	schema := resp.(map[string]Field)
	require.Len(t, schema, 5)
	assert.Equal(t, "BUILD", schema["Build"].DefaultValue)
	assert.True(t, schema["Build"].Required)
	assert.Equal(t, "0", schema["Build"].DisplayOrder)
	assert.Equal(t, "1", schema["Target"].DisplayOrder)
	assert.Equal(t, "2", schema["Command"].DisplayOrder)
	assert.Equal(t, "3", schema["Packages"].DisplayOrder)
	assert.False(t, schema["Packages"].Required)
}

func TestViewRendersTemplate(t *testing.T) {
	view, err := View()
	require.NoError(t, err)

	assert.Equal(t, "Qt Task", view.DisplayValue)
	assert.Contains(t, view.Template, "<h2>Qt Task</h2>")
	assert.Contains(t, view.Template, `ng-model="Build"`)
	assert.Contains(t, view.Template, `ng-model="Packages"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]Property
		field string
		msg   string
	}{
		{"build with target", map[string]Property{"Build": {Value: "BUILD"}, "Target": {Value: "all"}}, "", ""},
		{"default build needs target", map[string]Property{}, "Target", qt.ErrNoTarget.Error()},
		{"repository needs packages", map[string]Property{"Build": {Value: "REPOSITORY"}}, "Packages", qt.ErrNoPackages.Error()},
		{"installer needs config", map[string]Property{
			"Build": {Value: "OFFLINE"}, "Packages": {Value: "packages"}, "Target": {Value: "setup"},
		}, "Command", qt.ErrNoInstallerConfig.Error()},
		{"unknown mode is fine", map[string]Property{"Build": {Value: "DEPLOY"}}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Validate(tt.props)
			if tt.field == "" {
				assert.Empty(t, resp.Errors)
				return
			}
			assert.Equal(t, map[string]string{tt.field: tt.msg}, resp.Errors)
		})
	}
}

func TestValidateEncodesEmptyErrors(t *testing.T) {
	h := NewHandler(nil)
	var out bytes.Buffer
	body := strings.NewReader(`{"Build":{"value":"BUILD"},"Target":{"value":"all"}}`)

	require.NoError(t, h.Serve(context.Background(), RequestValidate, body, &out))
	assert.JSONEq(t, `{"errors":{}}`, out.String())
}

func TestExecuteRequest(t *testing.T) {
	exec := &recordingExecutor{result: models.Success(models.MessageExecuted)}
	h := NewHandler(exec)

	body := `{
	  "config": {
	    "Build": {"secure": false, "value": "BUILD", "required": true},
	    "Target": {"value": "all,install"},
	    "Command": {"value": "app.pro"}
	  },
	  "context": {
	    "workingDirectory": "/pipelines/app",
	    "environmentVariables": {"QT_HOME": "/opt/qt/5.9/gcc_64", "GO_PIPELINE_COUNTER": "12"}
	  }
	}`
	var out bytes.Buffer
	require.NoError(t, h.Serve(context.Background(), RequestExecute, strings.NewReader(body), &out))

	assert.Equal(t, "BUILD", exec.cfg.Build)
	assert.Equal(t, "all,install", exec.cfg.Target)
	assert.Equal(t, "app.pro", exec.cfg.Command)
	assert.Equal(t, "/pipelines/app", exec.ectx.WorkingDirectory)
	assert.Equal(t, "12", exec.ectx.Environment["GO_PIPELINE_COUNTER"])

	var resp ExecuteResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, ExecuteResponse{Success: true, Message: "Executed the build"}, resp)
}

func TestExecuteFailureMessage(t *testing.T) {
	exec := &recordingExecutor{result: models.Failure("Could not execute build! Process returned with status code 2", nil)}
	h := NewHandler(exec)

	resp, err := h.Handle(context.Background(), RequestExecute,
		strings.NewReader(`{"config":{"Build":{"value":"BUILD"},"Target":{"value":"all"}},"context":{"workingDirectory":"/w"}}`))
	require.NoError(t, err)

	got := resp.(ExecuteResponse)
	assert.False(t, got.Success)
	assert.Equal(t, "Could not execute build! Process returned with status code 2", got.Message)
}

func TestHandleErrors(t *testing.T) {
	h := NewHandler(&recordingExecutor{})

	_, err := h.Handle(context.Background(), "icon", nil)
	assert.True(t, errors.Is(err, ErrUnhandledRequest))

	_, err = h.Handle(context.Background(), RequestExecute, strings.NewReader("   "))
	assert.ErrorContains(t, err, "empty request body")

	_, err = h.Handle(context.Background(), RequestValidate, strings.NewReader("{not json"))
	assert.ErrorContains(t, err, "invalid request body")
}

func TestExecuteWithoutExecutor(t *testing.T) {
	h := NewHandler(nil)
	resp, err := h.Handle(context.Background(), RequestExecute, strings.NewReader(`{"config":{}}`))
	require.NoError(t, err)
	assert.False(t, resp.(ExecuteResponse).Success)
}
