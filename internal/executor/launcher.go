package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"
)

// waitDelay bounds how long a cancelled launch waits for output pipes held
// open by processes that outlived the kill.
const waitDelay = 2 * time.Second

// LaunchRequest describes one subprocess.
type LaunchRequest struct {
	Argv   []string
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher starts a subprocess and blocks until it exits.
// A non-zero exit is reported through the exit code, not the error.
type Launcher interface {
	Launch(ctx context.Context, req LaunchRequest) (exitCode int, err error)
}

// ProcessLauncher runs real operating system processes.
type ProcessLauncher struct{}

// Launch starts req.Argv in req.Dir with exactly req.Env and drains stdout
// and stderr concurrently until both reach EOF. Cancelling ctx kills the
// process together with everything it started.
func (ProcessLauncher) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	if len(req.Argv) == 0 {
		return -1, fmt.Errorf("%w: empty command", ErrLaunch)
	}
	if err := ctx.Err(); err != nil {
		return -1, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	cmd := exec.CommandContext(ctx, resolveExecutable(req.Argv[0], req.Env), req.Argv[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = EnvList(req.Env)
	cmd.WaitDelay = waitDelay
	configureCommand(cmd, req.Argv)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("%w: stdout pipe: %w", ErrLaunch, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("%w: stderr pipe: %w", ErrLaunch, err)
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	stop := context.AfterFunc(ctx, func() {
		time.Sleep(waitDelay)
		_ = stdout.Close()
		_ = stderr.Close()
	})
	defer stop()

	// Both pipes must be drained in parallel; a full pipe buffer on either
	// stream stalls the child.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		drain(req.Stdout, stdout)
	}()
	go func() {
		defer wg.Done()
		drain(req.Stderr, stderr)
	}()
	wg.Wait()

	err = cmd.Wait()
	if ctx.Err() != nil {
		return -1, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitCode(exitErr), nil
		}
		return -1, err
	}
	return 0, nil
}

func drain(dst io.Writer, src io.Reader) {
	if dst == nil {
		dst = io.Discard
	}
	// Keep reading after a sink failure so the child never blocks on a full pipe.
	if _, err := io.Copy(dst, src); err != nil {
		_, _ = io.Copy(io.Discard, src)
	}
}

// EnvList renders env as sorted KEY=VALUE pairs.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// HostEnvironment returns the environment of the current process as a map.
func HostEnvironment() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
