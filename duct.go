// Package duct builds and runs trees of OS child processes with
// shell-like expressiveness — pipelines, I/O redirection, environment
// overlays, working-directory scoping — without the raw process-API
// correctness hazards that come with hand-rolling them: races between
// killing and reaping a child, deadlocks from unbuffered pipes,
// zombies left behind by a half-started pipeline.
//
// An Expression is immutable; every method here returns a new one
// rather than mutating its receiver, so a built Expression can be
// reused and composed freely. Nothing runs until Run, Read, Start, or
// Reader is called.
package duct

import (
	"context"
	"os"
	"strings"

	"github.com/procduct/duct/internal/expr"
	"github.com/procduct/duct/internal/platform"
	"github.com/procduct/duct/interp"
)

// Expression is an immutable description of a process or process tree.
type Expression struct {
	node expr.Node
}

// Cmd builds a leaf Expression that looks program up on PATH.
func Cmd(program string, args ...string) Expression {
	return Expression{node: &expr.Cmd{Program: program, Args: args}}
}

// CmdPath builds a leaf Expression from a filesystem path rather than a
// PATH lookup. A relative path is resolved the way a shell resolves
// "./foo": against the working directory in effect when the leaf
// spawns, not against any PATH directory.
func CmdPath(path string, args ...string) Expression {
	return Expression{node: &expr.Cmd{Program: path, IsPath: true, Args: args}}
}

func (e Expression) wrap(node expr.Node) Expression { return Expression{node: node} }

// String renders the build chain that produced e, e.g.
// `cmd("echo", "hi").pipe(cmd("sed", "s/i/o/"))`. It's meant for error
// messages and debugging, not for parsing back.
func (e Expression) String() string { return expr.String(e.node) }

// GoString makes an Expression print the same way under %#v as it does
// under %v or Println, since its String form already reads as Go code.
func (e Expression) GoString() string { return e.String() }

// Pipe composes e and other as a unidirectional byte pipe, e's stdout
// feeding other's stdin.
func (e Expression) Pipe(other Expression) Expression {
	return Expression{node: &expr.Pipe{Left: e.node, Right: other.node}}
}

// Dir sets the working directory for every Cmd in e's subtree that
// doesn't have its own, more deeply nested Dir override.
func (e Expression) Dir(path string) Expression {
	return e.wrap(&expr.Dir{Inner: e.node, Path: path})
}

// Env overlays a single environment variable on e's subtree. A later,
// more deeply nested Env/EnvRemove/FullEnv for the same name wins.
func (e Expression) Env(name, value string) Expression {
	return e.wrap(&expr.Env{Inner: e.node, Name: name, Value: value})
}

// EnvRemove unsets an environment variable for e's subtree without
// affecting anything composed with e outside this node.
func (e Expression) EnvRemove(name string) Expression {
	return e.wrap(&expr.EnvRemove{Inner: e.node, Name: name})
}

// FullEnv replaces the entire environment for e's subtree, discarding
// any Env/EnvRemove/FullEnv applied further out.
func (e Expression) FullEnv(vars map[string]string) Expression {
	return e.wrap(&expr.FullEnv{Inner: e.node, Vars: vars})
}

// Unchecked marks e's subtree so a non-zero exit from one of its leaves
// doesn't raise NonZeroExit, without masking an unrelated sibling's
// failure elsewhere in a larger composition.
func (e Expression) Unchecked() Expression {
	return e.wrap(&expr.Unchecked{Inner: e.node})
}

// BeforeSpawn attaches a hook that runs immediately before every Cmd
// leaf in e's subtree is spawned, with a chance to edit the resolved
// platform.ChildSpec in place. When hooks are nested, the innermost one
// (closest to a given leaf) runs last.
func (e Expression) BeforeSpawn(hook func(*platform.ChildSpec)) Expression {
	return e.wrap(&expr.BeforeSpawn{Inner: e.node, Hook: hook})
}

func (e Expression) redir(op expr.RedirKind) Expression {
	return e.wrap(&expr.IoRedir{Inner: e.node, Op: op})
}

func (e Expression) redirPath(op expr.RedirKind, path string) Expression {
	return e.wrap(&expr.IoRedir{Inner: e.node, Op: op, Path: path})
}

func (e Expression) redirFile(op expr.RedirKind, f *os.File) Expression {
	return e.wrap(&expr.IoRedir{Inner: e.node, Op: op, File: f})
}

// StdinBytes feeds data to the leaf's stdin from memory on a background
// thread.
func (e Expression) StdinBytes(data []byte) Expression {
	return e.wrap(&expr.IoRedir{Inner: e.node, Op: expr.StdinBytes, Bytes: data})
}

// StdinBytesRaw is StdinBytes for a string, for callers who already have
// text rather than bytes. Its "\n" line endings are translated to the
// platform's native line separator before encoding, the way a text
// editor's "save" would, rather than being sent byte-for-byte.
func (e Expression) StdinBytesRaw(data string) Expression {
	return e.StdinBytes([]byte(encodeWithUniversalNewlines(data)))
}

func encodeWithUniversalNewlines(s string) string {
	if platform.LineSeparator == "\n" {
		return s
	}
	return strings.ReplaceAll(s, "\n", platform.LineSeparator)
}

// StdinPath opens path for reading and uses it as stdin.
func (e Expression) StdinPath(path string) Expression { return e.redirPath(expr.StdinPath, path) }

// StdinFile uses an already-open file as stdin.
func (e Expression) StdinFile(f *os.File) Expression { return e.redirFile(expr.StdinFile, f) }

// StdinNull connects stdin to the platform's null device.
func (e Expression) StdinNull() Expression { return e.redir(expr.StdinNull) }

// StdoutPath opens path for writing, truncating it, and uses it as
// stdout.
func (e Expression) StdoutPath(path string) Expression { return e.redirPath(expr.StdoutPath, path) }

// StdoutFile uses an already-open file as stdout.
func (e Expression) StdoutFile(f *os.File) Expression { return e.redirFile(expr.StdoutFile, f) }

// StdoutNull connects stdout to the platform's null device.
func (e Expression) StdoutNull() Expression { return e.redir(expr.StdoutNull) }

// StdoutCapture has a background thread collect stdout in memory; the
// bytes are available from Output.Stdout after the expression finishes.
func (e Expression) StdoutCapture() Expression { return e.redir(expr.StdoutCapture) }

// StdoutToStderr makes stdout a duplicate of the effective stderr
// endpoint at this point in the tree.
func (e Expression) StdoutToStderr() Expression { return e.redir(expr.StdoutToStderr) }

// StderrPath opens path for writing, truncating it, and uses it as
// stderr.
func (e Expression) StderrPath(path string) Expression { return e.redirPath(expr.StderrPath, path) }

// StderrFile uses an already-open file as stderr.
func (e Expression) StderrFile(f *os.File) Expression { return e.redirFile(expr.StderrFile, f) }

// StderrNull connects stderr to the platform's null device.
func (e Expression) StderrNull() Expression { return e.redir(expr.StderrNull) }

// StderrCapture has a background thread collect stderr in memory; the
// bytes are available from Output.Stderr after the expression finishes.
func (e Expression) StderrCapture() Expression { return e.redir(expr.StderrCapture) }

// StderrToStdout makes stderr a duplicate of the effective stdout
// endpoint at this point in the tree.
func (e Expression) StderrToStdout() Expression { return e.redir(expr.StderrToStdout) }

// StdoutStderrSwap atomically swaps the effective stdout and stderr
// endpoints.
func (e Expression) StdoutStderrSwap() Expression { return e.redir(expr.StdoutStderrSwap) }

// Output is the result of Run: the reduced status plus whatever
// StdoutCapture/StderrCapture collected.
type Output struct {
	Status Status
	Stdout []byte
	Stderr []byte
}

// Status is a leaf or composition's exit result: a code, and whether a
// non-zero code should be treated as an error.
type Status = interp.Status

// Run executes e to completion and returns its Output. If the reduced
// status is checked and non-zero, it returns a *NonZeroExit alongside a
// non-nil Output so callers can still inspect captured output on
// failure.
func (e Expression) Run(ctx context.Context) (Output, error) {
	return e.runWith(ctx, interp.Start)
}

func (e Expression) runWith(ctx context.Context, start func(context.Context, expr.Node) (*interp.Handle, error)) (Output, error) {
	h, err := start(ctx, e.node)
	if err != nil {
		return Output{}, err
	}
	res, err := h.Result()
	out := Output{Status: res.Status, Stdout: res.Stdout, Stderr: res.Stderr}
	if err != nil {
		return out, err
	}
	if !res.Status.Success() {
		return out, &NonZeroExit{Status: res.Status, Expr: e}
	}
	return out, nil
}

// Read runs e, captures its stdout if the tree doesn't already, and
// returns it as text with universal newlines: embedded "\r\n" and lone
// "\r" are normalized to "\n" before every trailing "\n" is stripped.
func (e Expression) Read(ctx context.Context) (string, error) {
	captured := e.StdoutCapture()
	out, err := captured.Run(ctx)
	return decodeWithUniversalNewlines(out.Stdout), err
}

func decodeWithUniversalNewlines(b []byte) string {
	text := strings.ReplaceAll(string(b), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimRight(text, "\n")
}

// Start spawns e without waiting for it, returning a live Handle.
func (e Expression) Start(ctx context.Context) (*Handle, error) {
	return e.startWith(ctx, interp.Start)
}

func (e Expression) startWith(ctx context.Context, start func(context.Context, expr.Node) (*interp.Handle, error)) (*Handle, error) {
	h, err := start(ctx, e.node)
	if err != nil {
		return nil, err
	}
	return &Handle{inner: h}, nil
}

// Handle is a running Expression. Wait must eventually be called on
// every Handle to reap its leaves.
type Handle struct {
	inner *interp.Handle
}

// Wait blocks until every leaf has exited and returns the reduced
// status, without raising an error for a non-zero but checked status.
func (h *Handle) Wait() (Status, error) { return h.inner.Wait() }

// TryWait returns the reduced status without blocking if every leaf has
// already exited, or (nil, nil) if any is still running.
func (h *Handle) TryWait() (*Status, error) { return h.inner.TryWait() }

// Kill signals every live leaf. It does not wait for them to exit or
// join any background I/O thread; call Wait afterward to reap.
func (h *Handle) Kill() error { return h.inner.Kill() }

// Pids returns the OS process IDs of every leaf that hasn't exited yet.
func (h *Handle) Pids() []int { return h.inner.Pids() }

// Runner runs Expressions against a configured stdio, working directory,
// and environment instead of the current process's own, the way a test
// harness or a server handling many unrelated requests needs to. The zero
// value is not usable; build one with NewRunner.
type Runner struct {
	inner *interp.Runner
}

// RunnerOption configures a Runner built by NewRunner.
type RunnerOption = interp.Option

// NewRunner builds a Runner, applying opts in order. With no options, a
// Runner behaves exactly like calling Run or Start directly on an
// Expression.
func NewRunner(opts ...RunnerOption) (*Runner, error) {
	inner, err := interp.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Runner{inner: inner}, nil
}

// WithStdio overrides a Runner's baseline stdin/stdout/stderr, the
// endpoints a leaf gets when nothing in its expression tree redirects
// that stream. A nil argument leaves the corresponding stream at its
// previous value.
func WithStdio(stdin, stdout, stderr *os.File) RunnerOption {
	return interp.WithStdio(stdin, stdout, stderr)
}

// WithDir overrides a Runner's baseline working directory. An empty path
// leaves the current process's own working directory in effect.
func WithDir(path string) RunnerOption { return interp.WithDir(path) }

// WithEnv overrides the environment a Runner's leaves inherit before any
// Env/EnvRemove/FullEnv overlay in the expression tree is applied. A nil
// environ leaves the process's own environment in effect.
func WithEnv(environ []string) RunnerOption { return interp.WithEnv(environ) }

// Run executes e against r's configured defaults to completion, the way
// Expression.Run does against the process's own stdio and environment.
func (r *Runner) Run(ctx context.Context, e Expression) (Output, error) {
	return e.runWith(ctx, r.inner.Run)
}

// Start spawns e against r's configured defaults without waiting for it,
// the way Expression.Start does against the process's own stdio and
// environment.
func (r *Runner) Start(ctx context.Context, e Expression) (*Handle, error) {
	return e.startWith(ctx, r.inner.Run)
}
