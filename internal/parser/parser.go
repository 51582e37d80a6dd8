// Package parser loads task files. A task file lists qtbuild tasks in order
// together with a shared working directory and environment; YAML and Markdown
// layouts are supported.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/harrison/qtbuild/internal/models"
)

// Format represents the format of a task file
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatMarkdown represents a Markdown (.md, .markdown) task file
	FormatMarkdown
	// FormatYAML represents a YAML (.yaml, .yml) task file
	FormatYAML
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Parser is the interface that all task file parsers must implement
type Parser interface {
	Parse(r io.Reader) (*models.TaskFile, error)
}

// DetectFormat detects the task file format from its extension.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// NewParser creates a new parser instance for the specified format
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownParser(), nil
	case FormatYAML:
		return NewYAMLParser(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// ParseFile parses a task file, or every numbered task file in a directory.
// A relative working directory is resolved against the file's directory.
func ParseFile(path string) (*models.TaskFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if info.IsDir() {
		return ParseDirectory(path)
	}
	return parseFile(path)
}

func parseFile(path string) (*models.TaskFile, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown file format: %s (supported: .md, .markdown, .yaml, .yml)", path)
	}
	p, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	tf, err := p.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	tf.FilePath = absPath
	if tf.Name == "" {
		tf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if tf.WorkingDirectory != "" && !filepath.IsAbs(tf.WorkingDirectory) {
		tf.WorkingDirectory = filepath.Join(filepath.Dir(absPath), tf.WorkingDirectory)
	}
	return tf, nil
}

var numberedFile = regexp.MustCompile(`^(\d+)-`)

// ParseDirectory loads all numbered task files (1-build.yaml, 2-package.md,
// ...) from a directory in numeric order and concatenates their tasks.
// Working directory and environment come from the first file that sets
// them; later environments layer over earlier ones.
func ParseDirectory(dirname string) (*models.TaskFile, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	type numbered struct {
		index int
		path  string
	}
	var files []numbered
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		match := numberedFile.FindStringSubmatch(entry.Name())
		if match == nil || DetectFormat(entry.Name()) == FormatUnknown {
			continue
		}
		index, _ := strconv.Atoi(match[1])
		files = append(files, numbered{index, filepath.Join(dirname, entry.Name())})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].index < files[j].index })

	merged := &models.TaskFile{Name: filepath.Base(dirname), Environment: map[string]string{}}
	if abs, err := filepath.Abs(dirname); err == nil {
		merged.FilePath = abs
	}
	for _, f := range files {
		tf, err := parseFile(f.path)
		if err != nil {
			return nil, err
		}
		if merged.WorkingDirectory == "" {
			merged.WorkingDirectory = tf.WorkingDirectory
		}
		for k, v := range tf.Environment {
			merged.Environment[k] = v
		}
		merged.Tasks = append(merged.Tasks, tf.Tasks...)
	}
	return merged, nil
}

// setField assigns value to the TaskConfig field named by key
// (case-insensitive). Returns false for unknown keys.
func setField(cfg *models.TaskConfig, key, value string) bool {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "name":
		cfg.Name = value
	case strings.ToLower(models.KeyBuild):
		cfg.Build = value
	case strings.ToLower(models.KeyTarget):
		cfg.Target = value
	case strings.ToLower(models.KeyCommand):
		cfg.Command = value
	case strings.ToLower(models.KeyPackages):
		cfg.Packages = value
	case strings.ToLower(models.KeyModules):
		cfg.Modules = value
	default:
		return false
	}
	return true
}
