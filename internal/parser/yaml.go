package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/harrison/qtbuild/internal/models"
)

// YAMLParser parses task files in YAML format:
//
//	name: release
//	working_directory: ..
//	environment:
//	  QT_SPEC: linux-g++
//	tasks:
//	  - name: compile
//	    build: BUILD
//	    target: all,install
type YAMLParser struct{}

// NewYAMLParser creates a new YAML parser instance
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

type yamlTaskFile struct {
	Name             string            `yaml:"name"`
	WorkingDirectory string            `yaml:"working_directory"`
	Environment      map[string]string `yaml:"environment"`
	Tasks            []yamlTask        `yaml:"tasks"`
}

type yamlTask struct {
	Name     string `yaml:"name"`
	Build    string `yaml:"build"`
	Target   string `yaml:"target"`
	Command  string `yaml:"command"`
	Packages string `yaml:"packages"`
	Modules  string `yaml:"modules"`
}

// Parse decodes a YAML task file. Unknown keys are rejected.
func (p *YAMLParser) Parse(r io.Reader) (*models.TaskFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var raw yamlTaskFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	tf := &models.TaskFile{
		Name:             raw.Name,
		WorkingDirectory: raw.WorkingDirectory,
		Environment:      raw.Environment,
	}
	for _, t := range raw.Tasks {
		tf.Tasks = append(tf.Tasks, models.TaskConfig{
			Name:     t.Name,
			Build:    t.Build,
			Target:   t.Target,
			Command:  t.Command,
			Packages: t.Packages,
			Modules:  t.Modules,
		}.WithDefaults())
	}
	if len(tf.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks defined")
	}
	return tf, nil
}
