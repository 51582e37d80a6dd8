package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/qtbuild/internal/models"
	"github.com/harrison/qtbuild/internal/qt"
)

// fakeLauncher records every request and answers with scripted exit codes.
type fakeLauncher struct {
	mu       sync.Mutex
	requests []LaunchRequest
	codes    []int
	err      error
	onLaunch func(ctx context.Context, req LaunchRequest)
}

func (f *fakeLauncher) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	f.mu.Lock()
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.onLaunch != nil {
		f.onLaunch(ctx, req)
	}
	if f.err != nil {
		return -1, f.err
	}
	if idx < len(f.codes) {
		return f.codes[idx], nil
	}
	return 0, nil
}

func (f *fakeLauncher) argv() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Argv
	}
	return out
}

// fakeConsole captures console output in memory.
type fakeConsole struct {
	mu     sync.Mutex
	lines  []string
	envs   []map[string]string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (c *fakeConsole) PrintLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *fakeConsole) PrintEnvironment(env map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
}

func (c *fakeConsole) Stdout() io.Writer { return &c.stdout }
func (c *fakeConsole) Stderr() io.Writer { return &c.stderr }

// mockLogger captures logging calls for testing.
type mockLogger struct {
	started   []models.TaskConfig
	completed []*models.RunReport
	failed    []*models.RunReport
	summaries []models.Summary
}

func (m *mockLogger) LogTaskStart(task models.TaskConfig) {
	m.started = append(m.started, task)
}

func (m *mockLogger) LogTaskComplete(report *models.RunReport) {
	m.completed = append(m.completed, report)
}

func (m *mockLogger) LogTaskFail(report *models.RunReport) {
	m.failed = append(m.failed, report)
}

func (m *mockLogger) LogSummary(summary models.Summary) {
	m.summaries = append(m.summaries, summary)
}

func newTestOrchestrator(osName string, launcher *fakeLauncher) (*Orchestrator, *fakeConsole) {
	console := &fakeConsole{}
	o := NewOrchestrator(qt.ResolvePlatform(osName), console, nil)
	o.Launcher = launcher
	o.HostEnv = nil
	o.Builder.FrameworkBin = func(qtHome string) string {
		return filepath.Join(filepath.Dir(qtHome), "Tools", "QtInstallerFramework", "3.0", "bin")
	}
	return o, console
}

func qtContext() models.ExecutionContext {
	return models.NewExecutionContext("/proj", map[string]string{
		"QT_HOME": "/opt/qt",
		"QT_ARCH": "gcc_64",
		"QT_SPEC": "linux-g++",
	})
}

func TestExecuteBuildRunsQmakeThenEachTarget(t *testing.T) {
	launcher := &fakeLauncher{}
	o, _ := newTestOrchestrator("linux", launcher)

	report := o.Execute(context.Background(), models.TaskConfig{Build: "BUILD", Target: "a,b,c"}, qtContext())

	require.True(t, report.Result.Success, report.Result.Message)
	assert.Equal(t, models.MessageExecuted, report.Result.Message)

	argv := launcher.argv()
	require.Len(t, argv, 4)
	assert.Equal(t, filepath.Join("/opt/qt", "gcc_64", "bin", "qmake"), argv[0][0])
	assert.Equal(t, []string{"make", "a"}, argv[1])
	assert.Equal(t, []string{"make", "b"}, argv[2])
	assert.Equal(t, []string{"make", "c"}, argv[3])

	require.Len(t, report.Steps, 4)
	assert.Equal(t, models.StepQMake, report.Steps[0].Step)
	assert.Equal(t, 1, report.Steps[0].Sequence)
	assert.Equal(t, models.StepMake, report.Steps[3].Step)
	assert.Equal(t, "c", report.Steps[3].Target)
	assert.NotEmpty(t, report.ID)
}

func TestExecuteBuildTrailingCommaAddsDefaultTarget(t *testing.T) {
	launcher := &fakeLauncher{}
	o, _ := newTestOrchestrator("linux", launcher)

	report := o.Execute(context.Background(), models.TaskConfig{Target: "a,b,"}, qtContext())
	require.True(t, report.Result.Success)

	argv := launcher.argv()
	require.Len(t, argv, 4)
	assert.Equal(t, []string{"make", "a"}, argv[1])
	assert.Equal(t, []string{"make", "b"}, argv[2])
	assert.Equal(t, []string{"make"}, argv[3])
}

func TestExecuteBuildShortCircuits(t *testing.T) {
	tests := []struct {
		name         string
		codes        []int
		wantLaunches int
		wantCode     string
	}{
		{name: "qmake fails", codes: []int{2}, wantLaunches: 1, wantCode: "2"},
		{name: "first make fails", codes: []int{0, 137}, wantLaunches: 2, wantCode: "137"},
		{name: "last make fails", codes: []int{0, 0, 0, 1}, wantLaunches: 4, wantCode: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher := &fakeLauncher{codes: tt.codes}
			o, _ := newTestOrchestrator("linux", launcher)

			report := o.Execute(context.Background(), models.TaskConfig{Target: "a,b,c"}, qtContext())

			assert.False(t, report.Result.Success)
			assert.Equal(t, "Could not execute build! Process returned with status code "+tt.wantCode, report.Result.Message)
			assert.Len(t, launcher.argv(), tt.wantLaunches)

			var stepErr *StepError
			require.ErrorAs(t, report.Result.Cause, &stepErr)
			assert.ErrorIs(t, report.Result.Cause, ErrNonZeroExit)

			failed := report.FailedStep()
			require.NotNil(t, failed)
			assert.Equal(t, len(report.Steps), failed.Sequence)
		})
	}
}

func TestExecuteEmptyTargetLaunchesNothing(t *testing.T) {
	launcher := &fakeLauncher{}
	o, _ := newTestOrchestrator("linux", launcher)

	report := o.Execute(context.Background(), models.TaskConfig{Build: "BUILD", Target: "  "}, qtContext())

	assert.False(t, report.Result.Success)
	assert.Equal(t, "No target defined", report.Result.Message)
	assert.ErrorIs(t, report.Result.Cause, qt.ErrNoTarget)
	assert.Empty(t, launcher.argv())
	assert.Empty(t, report.Steps)
}

func TestExecuteWindowsUsesJomAndToolchainPrelude(t *testing.T) {
	launcher := &fakeLauncher{}
	o, _ := newTestOrchestrator("Windows 10", launcher)

	ectx := qtContext()
	ectx.Environment["VC_VARSALL"] = `C:\VS\VC`
	report := o.Execute(context.Background(), models.TaskConfig{Target: "release"}, ectx)
	require.True(t, report.Result.Success)

	argv := launcher.argv()
	require.Len(t, argv, 2)
	jom := argv[1]
	require.Len(t, jom, 4)
	assert.Equal(t, []string{"cmd", "/s", "/c"}, jom[:3])
	assert.Equal(t, `call C:\VS\VC\vcvarsall.bat x86_amd64 & jom release`, jom[3])
	assert.Equal(t, jom[3], report.Steps[1].CommandLine)
}

func TestExecuteTestStep(t *testing.T) {
	launcher := &fakeLauncher{}
	o, _ := newTestOrchestrator("linux", launcher)

	ectx := qtContext()
	report := o.Execute(context.Background(), models.TaskConfig{Build: "TEST", Target: "mytests"}, ectx)
	require.True(t, report.Result.Success)

	argv := launcher.argv()
	require.Len(t, argv, 1)
	assert.Equal(t, []string{"/proj/build/linux-g++/bin/mytests", "-xunitxml"}, argv[0])

	env := launcher.requests[0].Env
	assert.Equal(t, filepath.Join("/opt/qt", "gcc_64", "bin"), env["LD_LIBRARY_PATH"])
	assert.Equal(t, "/proj/build", env["QT_BUILD"])
	assert.Equal(t, "/proj/build/linux-g++/qml", env["QML2_IMPORT_PATH"])
	assert.Equal(t, "/proj/build/linux-g++/plugins", env["QT_PLUGIN_PATH"])
	assert.Equal(t, "/proj", launcher.requests[0].Dir)
}

func TestExecuteTestStepAppendsToHostLibraryPath(t *testing.T) {
	launcher := &fakeLauncher{}
	o, _ := newTestOrchestrator("linux", launcher)
	o.HostEnv = func() map[string]string {
		return map[string]string{"LD_LIBRARY_PATH": "/usr/local/lib", "HOME": "/home/ci"}
	}

	report := o.Execute(context.Background(), models.TaskConfig{Build: "TEST", Command: "unit"}, qtContext())
	require.True(t, report.Result.Success)

	env := launcher.requests[0].Env
	assert.Equal(t, "/usr/local/lib:"+filepath.Join("/opt/qt", "gcc_64", "bin"), env["LD_LIBRARY_PATH"])
	assert.Equal(t, "/home/ci", env["HOME"])
	assert.Equal(t, "unit", report.Steps[0].Target)
}

func TestExecuteRepositoryAndInstaller(t *testing.T) {
	ifw := filepath.Join("/opt", "Tools", "QtInstallerFramework", "3.0", "bin")
	tests := []struct {
		name string
		cfg  models.TaskConfig
		want []string
	}{
		{
			name: "repository",
			cfg:  models.TaskConfig{Build: "REPOSITORY", Packages: "/pkgs"},
			want: []string{filepath.Join(ifw, "repogen"), "--update", "-p", "/pkgs", qt.RepositoryPath},
		},
		{
			name: "online installer",
			cfg:  models.TaskConfig{Build: "ONLINE", Packages: "/pkgs", Target: "setup", Command: "config.xml"},
			want: []string{filepath.Join(ifw, "binarycreator"), "-n", "-c", "config.xml", "-p", "/pkgs", "setup"},
		},
		{
			name: "offline installer",
			cfg:  models.TaskConfig{Build: "offline", Packages: "/pkgs", Target: "setup", Command: "config.xml"},
			want: []string{filepath.Join(ifw, "binarycreator"), "-f", "-c", "config.xml", "-p", "/pkgs", "setup"},
		},
		{
			name: "combined installer",
			cfg:  models.TaskConfig{Build: "INSTALLER", Packages: "/pkgs", Target: "setup", Command: "config.xml"},
			want: []string{filepath.Join(ifw, "binarycreator"), "-c", "config.xml", "-p", "/pkgs", "setup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher := &fakeLauncher{}
			o, _ := newTestOrchestrator("linux", launcher)

			report := o.Execute(context.Background(), tt.cfg, qtContext())
			require.True(t, report.Result.Success, report.Result.Message)

			argv := launcher.argv()
			require.Len(t, argv, 1)
			assert.Equal(t, tt.want, argv[0])
		})
	}
}

func TestExecuteUnknownModeIsNothingToDo(t *testing.T) {
	launcher := &fakeLauncher{}
	o, _ := newTestOrchestrator("linux", launcher)

	report := o.Execute(context.Background(), models.TaskConfig{Build: "DEPLOY", Target: "x"}, qtContext())

	assert.True(t, report.Result.Success)
	assert.Equal(t, "Nothing to do", report.Result.Message)
	assert.Empty(t, launcher.argv())
}

func TestExecuteMissingVariableFailsStep(t *testing.T) {
	launcher := &fakeLauncher{}
	o, _ := newTestOrchestrator("linux", launcher)

	ectx := models.NewExecutionContext("/proj", map[string]string{"QT_HOME": "/opt/qt"})
	report := o.Execute(context.Background(), models.TaskConfig{Target: "all"}, ectx)

	assert.False(t, report.Result.Success)
	assert.ErrorIs(t, report.Result.Cause, qt.ErrMissingVariable)
	assert.Contains(t, report.Result.Message, "QT_ARCH")
	assert.Empty(t, launcher.argv())
	require.Len(t, report.Steps, 1)
}

func TestExecuteLaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{err: errors.Join(ErrLaunch, errors.New("no such file"))}
	o, _ := newTestOrchestrator("linux", launcher)

	report := o.Execute(context.Background(), models.TaskConfig{Target: "all"}, qtContext())

	assert.False(t, report.Result.Success)
	assert.True(t, strings.HasPrefix(report.Result.Message, "Failed to invoke the build!"))
	assert.ErrorIs(t, report.Result.Cause, ErrLaunch)
	assert.Len(t, launcher.argv(), 1)
}

func TestExecuteCancelledDuringQmakeSkipsMake(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	launcher := &fakeLauncher{onLaunch: func(context.Context, LaunchRequest) { cancel() }}
	o, _ := newTestOrchestrator("linux", launcher)

	report := o.Execute(ctx, models.TaskConfig{Target: "a,b"}, qtContext())

	assert.False(t, report.Result.Success)
	assert.True(t, IsCancelled(report.Result))
	assert.Equal(t, "Build cancelled", report.Result.Message)
	assert.Len(t, launcher.argv(), 1)
}

func TestExecuteRecoversFromPanic(t *testing.T) {
	launcher := &fakeLauncher{onLaunch: func(context.Context, LaunchRequest) { panic("boom") }}
	o, _ := newTestOrchestrator("linux", launcher)

	report := o.Execute(context.Background(), models.TaskConfig{Target: "all"}, qtContext())

	assert.False(t, report.Result.Success)
	assert.Equal(t, "boom", report.Result.Message)
}

func TestExecutePrintsLaunchBanner(t *testing.T) {
	launcher := &fakeLauncher{}
	o, console := newTestOrchestrator("linux", launcher)

	o.Execute(context.Background(), models.TaskConfig{Build: "TEST", Target: "t"}, qtContext())

	require.GreaterOrEqual(t, len(console.lines), 2)
	assert.Equal(t, "Launching command on: /proj", console.lines[0])
	assert.Equal(t, "Launching command: /proj/build/linux-g++/bin/t -xunitxml", console.lines[1])
	require.Len(t, console.envs, 2)
	assert.Equal(t, "/opt/qt", console.envs[0]["QT_HOME"])
}

func TestExecuteAllStopsAtFirstFailure(t *testing.T) {
	launcher := &fakeLauncher{codes: []int{0, 0, 3}}
	o, _ := newTestOrchestrator("linux", launcher)
	logger := &mockLogger{}
	o.Logger = logger

	tasks := []models.TaskConfig{
		{Name: "build", Target: "all"},
		{Name: "test", Build: "TEST", Target: "unit"},
		{Name: "repo", Build: "REPOSITORY", Packages: "/pkgs"},
	}
	reports, summary := o.ExecuteAll(context.Background(), tasks, qtContext())

	require.Len(t, reports, 2)
	assert.True(t, reports[0].Result.Success)
	assert.False(t, reports[1].Result.Success)

	assert.Equal(t, 3, summary.TotalTasks)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.FailedTasks, 1)
	assert.Equal(t, "test", summary.FailedTasks[0].Task.Name)

	assert.Len(t, logger.started, 2)
	assert.Len(t, logger.completed, 1)
	assert.Len(t, logger.failed, 1)
	assert.Len(t, logger.summaries, 1)
}

func TestNewOrchestratorPanicsWithoutConsole(t *testing.T) {
	assert.Panics(t, func() {
		NewOrchestrator(qt.HostPlatform(), nil, nil)
	})
}
