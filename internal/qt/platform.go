package qt

import (
	"runtime"
	"strings"
)

// vcVarsArch is the vcvarsall target architecture used for every Windows build.
const vcVarsArch = "x86_amd64"

// Platform holds the OS-specific conventions of one host.
// Build one with ResolvePlatform so the fields stay consistent.
type Platform struct {
	IsWindows        bool
	Shell            string // "sh" or "cmd"
	ShellFlag        string // "-c" or "/c"
	MakeTool         string // "make" or "jom"
	LibraryPathVar   string // "LD_LIBRARY_PATH" or "PATH"
	ListSeparator    string // ":" or ";"
	ExecutableSuffix string // "" or ".exe"
}

// ResolvePlatform derives the conventions for the named operating system.
// Any name containing "windows" (case-insensitive) selects the Windows profile.
func ResolvePlatform(osName string) Platform {
	if strings.Contains(strings.ToLower(osName), "windows") {
		return Platform{
			IsWindows:        true,
			Shell:            "cmd",
			ShellFlag:        "/c",
			MakeTool:         "jom",
			LibraryPathVar:   "PATH",
			ListSeparator:    ";",
			ExecutableSuffix: ".exe",
		}
	}
	return Platform{
		Shell:          "sh",
		ShellFlag:      "-c",
		MakeTool:       "make",
		LibraryPathVar: "LD_LIBRARY_PATH",
		ListSeparator:  ":",
	}
}

// HostPlatform resolves the platform of the running process.
func HostPlatform() Platform {
	return ResolvePlatform(runtime.GOOS)
}

// Name returns a short identifier for logs.
func (p Platform) Name() string {
	if p.IsWindows {
		return "windows"
	}
	return "unix"
}

// Executable appends the platform executable suffix to name.
func (p Platform) Executable(name string) string {
	if p.ExecutableSuffix == "" || strings.HasSuffix(strings.ToLower(name), p.ExecutableSuffix) {
		return name
	}
	return name + p.ExecutableSuffix
}

// ToolchainPrelude returns the shell statements that must precede qmake, make
// and test invocations. On Windows this loads the MSVC environment.
func (p Platform) ToolchainPrelude(env Environment) []string {
	if !p.IsWindows {
		return nil
	}
	script := "vcvarsall.bat"
	if dir := env.Get(VarVcVarsAll); strings.TrimSpace(dir) != "" {
		script = strings.TrimRight(dir, `\/`) + `\vcvarsall.bat`
	}
	return []string{"call " + p.Quote(script) + " " + vcVarsArch}
}
