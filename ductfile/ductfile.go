// Package ductfile loads a declarative pipeline description from YAML
// and builds a duct.Expression from it. It covers the common case of a
// linear sequence of Cmd stages piped together, each with its own
// optional dir, env, env_remove, unchecked, path/null redirections and
// stdout/stderr cross-redirections. Stdin bytes, output capture, the
// stdout/stderr swap, already-open files, full_env and BeforeSpawn hooks
// have no ductfile form.
package ductfile

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/procduct/duct"
)

// Pipeline is the top-level shape of a ductfile document.
type Pipeline struct {
	Stages []Stage `yaml:"stages"`
}

// Stage describes one Cmd leaf and the overlays attached to it. Stages
// are piped together in document order: stage i's stdout feeds stage
// i+1's stdin.
type Stage struct {
	Program   string            `yaml:"program"`
	Args      []string          `yaml:"args,omitempty"`
	Dir       string            `yaml:"dir,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	EnvRemove []string          `yaml:"env_remove,omitempty"`
	Unchecked bool              `yaml:"unchecked,omitempty"`

	StdinPath   string `yaml:"stdin_path,omitempty"`
	StdinNull   bool   `yaml:"stdin_null,omitempty"`
	StdoutPath  string `yaml:"stdout_path,omitempty"`
	StdoutNull  bool   `yaml:"stdout_null,omitempty"`
	StderrPath  string `yaml:"stderr_path,omitempty"`
	StderrNull  bool   `yaml:"stderr_null,omitempty"`
	StdoutToErr bool   `yaml:"stdout_to_stderr,omitempty"`
	StderrToOut bool   `yaml:"stderr_to_stdout,omitempty"`
}

// Load parses a YAML document from r and builds the Expression it
// describes. An empty or missing stages list is an error: a ductfile
// with nothing to run is almost certainly a mistake, not an intentional
// no-op.
func Load(r io.Reader) (duct.Expression, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc Pipeline
	if err := decoder.Decode(&doc); err != nil {
		return duct.Expression{}, fmt.Errorf("ductfile: decode: %w", err)
	}
	if len(doc.Stages) == 0 {
		return duct.Expression{}, fmt.Errorf("ductfile: no stages")
	}

	var pipeline duct.Expression
	for i, stage := range doc.Stages {
		e, err := stage.build()
		if err != nil {
			return duct.Expression{}, fmt.Errorf("ductfile: stage %d: %w", i, err)
		}
		if i == 0 {
			pipeline = e
			continue
		}
		pipeline = pipeline.Pipe(e)
	}
	return pipeline, nil
}

func (s Stage) build() (duct.Expression, error) {
	if s.Program == "" {
		return duct.Expression{}, fmt.Errorf("program is required")
	}
	e := duct.Cmd(s.Program, s.Args...)

	if s.Dir != "" {
		e = e.Dir(s.Dir)
	}
	for name, value := range s.Env {
		e = e.Env(name, value)
	}
	for _, name := range s.EnvRemove {
		e = e.EnvRemove(name)
	}
	if s.Unchecked {
		e = e.Unchecked()
	}

	switch {
	case s.StdinPath != "" && s.StdinNull:
		return duct.Expression{}, fmt.Errorf("stdin_path and stdin_null are mutually exclusive")
	case s.StdinPath != "":
		e = e.StdinPath(s.StdinPath)
	case s.StdinNull:
		e = e.StdinNull()
	}

	switch {
	case s.StdoutPath != "" && s.StdoutNull:
		return duct.Expression{}, fmt.Errorf("stdout_path and stdout_null are mutually exclusive")
	case s.StdoutPath != "":
		e = e.StdoutPath(s.StdoutPath)
	case s.StdoutNull:
		e = e.StdoutNull()
	}

	switch {
	case s.StderrPath != "" && s.StderrNull:
		return duct.Expression{}, fmt.Errorf("stderr_path and stderr_null are mutually exclusive")
	case s.StderrPath != "":
		e = e.StderrPath(s.StderrPath)
	case s.StderrNull:
		e = e.StderrNull()
	}

	if s.StdoutToErr {
		e = e.StdoutToStderr()
	}
	if s.StderrToOut {
		e = e.StderrToStdout()
	}

	return e, nil
}
