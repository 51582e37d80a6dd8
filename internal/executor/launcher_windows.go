//go:build windows

package executor

import (
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// configureCommand kills the whole process tree on cancellation and hands
// cmd.exe its command line verbatim. The default argument escaping uses
// backslashes, which cmd does not understand.
func configureCommand(cmd *exec.Cmd, argv []string) {
	cmd.Cancel = func() error {
		kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
		if err := kill.Run(); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}

	if len(argv) != 4 || !strings.EqualFold(argv[0], "cmd") || argv[1] != "/s" {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: argv[0] + " " + argv[1] + " " + argv[2] + ` "` + argv[3] + `"`,
	}
}

// exitCode returns the process exit status.
func exitCode(err *exec.ExitError) int {
	return err.ExitCode()
}

// resolveExecutable leaves lookup to exec, which applies PATHEXT.
func resolveExecutable(name string, env map[string]string) string {
	return name
}
