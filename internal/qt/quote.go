package qt

import (
	"strings"

	"github.com/harrison/qtbuild/internal/models"
)

// Quote renders word so the platform shell passes it through as a single argument.
func (p Platform) Quote(word string) string {
	if p.IsWindows {
		return quoteCmd(word)
	}
	return quotePosix(word)
}

// CommandLine renders spec as one shell line: prelude statements first, then
// the quoted argument words. It is also used for console and history output.
func (p Platform) CommandLine(spec models.CommandSpec) string {
	words := make([]string, len(spec.Args))
	for i, arg := range spec.Args {
		words[i] = p.Quote(arg)
	}
	line := strings.Join(words, " ")
	if len(spec.Prelude) == 0 {
		return line
	}
	sep := " && "
	if p.IsWindows {
		sep = " & "
	}
	return strings.Join(spec.Prelude, sep) + sep + line
}

// Argv returns the process argument vector for spec. Specs without a prelude
// are launched directly; otherwise the platform shell runs the rendered line.
func (p Platform) Argv(spec models.CommandSpec) []string {
	if len(spec.Prelude) == 0 {
		argv := make([]string, len(spec.Args))
		copy(argv, spec.Args)
		return argv
	}
	if p.IsWindows {
		return []string{p.Shell, "/s", p.ShellFlag, p.CommandLine(spec)}
	}
	return []string{p.Shell, p.ShellFlag, p.CommandLine(spec)}
}

func quotePosix(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !isPosixSafe(c) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	// 'foo'\''bar' -> foo'bar
	var b strings.Builder
	b.WriteByte('\'')
	for _, c := range s {
		if c == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteRune(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func isPosixSafe(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '/', ':', ',', '+', '=', '@', '%':
		return true
	}
	return false
}

func quoteCmd(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"&|<>^()") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
