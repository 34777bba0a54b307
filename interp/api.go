package interp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/procduct/duct/internal/expr"
	"github.com/procduct/duct/internal/platform"
)

// A Runner executes expression trees. The zero value is not usable; build
// one with [New]. Runner's configuration mirrors the handful of things a
// caller might need to override about the execution environment without
// editing the expression tree itself: the process's own stdio and
// environment.
type Runner struct {
	stdin, stdout, stderr *os.File
	dir                   string
	baseEnv               []string
}

// New builds a Runner, applying opts in order. With no options, a Runner
// runs expressions against the current process's own stdio, working
// directory, and environment — the same defaults [Start] uses.
func New(opts ...Option) (*Runner, error) {
	r := &Runner{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		baseEnv: os.Environ(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Option can be passed to [New] to alter a Runner's behavior.
type Option func(*Runner) error

// WithStdio overrides the Runner's baseline stdin/stdout/stderr, the
// endpoints a leaf gets when nothing in its expression tree redirects
// that stream. A nil argument leaves the corresponding stream at its
// previous value.
func WithStdio(stdin, stdout, stderr *os.File) Option {
	return func(r *Runner) error {
		if stdin != nil {
			r.stdin = stdin
		}
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
		return nil
	}
}

// WithDir overrides the Runner's baseline working directory. An empty
// path leaves the current process's own working directory in effect.
func WithDir(path string) Option {
	return func(r *Runner) error {
		if path == "" {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("duct: interp: resolve dir: %w", err)
		}
		r.dir = abs
		return nil
	}
}

// WithEnv overrides the environment a Runner's leaves inherit before any
// expression-tree env/env_remove/full_env overlay is applied. A nil
// environ leaves the process's own environment in effect.
func WithEnv(environ []string) Option {
	return func(r *Runner) error {
		if environ == nil {
			return nil
		}
		r.baseEnv = environ
		return nil
	}
}

// Run starts root against the Runner's configured defaults and returns
// its Handle Tree, implementing the same partial-start cleanup guarantee
// as [Start].
func (r *Runner) Run(ctx context.Context, root expr.Node) (*Handle, error) {
	platform.SuppressSIGPIPEOnce()
	ioctx := ioContext{
		stdin:   ioEndpoint{kind: epFile, file: r.stdin},
		stdout:  ioEndpoint{kind: epFile, file: r.stdout},
		stderr:  ioEndpoint{kind: epFile, file: r.stderr},
		dir:     r.dir,
		baseEnv: r.baseEnv,
	}
	ledger := &spawnLedger{}
	hn, err := startNode(ctx, root, ioctx, ledger)
	if err != nil {
		ledger.cleanup()
		return nil, err
	}
	return newHandle(hn), nil
}
