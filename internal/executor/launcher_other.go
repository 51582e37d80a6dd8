//go:build !windows

package executor

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// configureCommand starts the child in its own process group so cancellation
// reaches the compilers and helpers it spawns.
func configureCommand(cmd *exec.Cmd, argv []string) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}

// exitCode reports a signal death as 128+signal, the way shells do.
func exitCode(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return err.ExitCode()
}

// resolveExecutable looks a bare command name up in the PATH the child will
// see. Names containing a slash, and names not found there, are returned
// unchanged for exec to resolve against the host PATH.
func resolveExecutable(name string, env map[string]string) string {
	if strings.Contains(name, "/") {
		return name
	}
	for _, dir := range filepath.SplitList(env["PATH"]) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() && info.Mode()&0111 != 0 {
			return candidate
		}
	}
	return name
}
