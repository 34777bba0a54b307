// Package ductscript embeds go.starlark.net so callers can describe a
// duct.Expression with a small, sandboxed, Python-like script instead of
// Go builder code — the direct descendant of original_source/duct.py
// being driven from an actual Python interpreter, now driven from a
// deterministic scripting language with no access to the filesystem or
// network of its own.
package ductscript

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/procduct/duct"
)

// Run evaluates src as a Starlark script and returns the Expression its
// top-level "result" variable is bound to. The script sees cmd and
// cmd_path as builtins; pipe, dir, env, env_remove, unchecked and the
// bytes/path/null/capture/to-other-stream/swap redirections are exposed
// as methods on the value cmd/cmd_path returns. There is no full_env
// method and no stdin_file/stdout_file/stderr_file method.
func Run(src []byte, filename string) (duct.Expression, error) {
	thread := &starlark.Thread{Name: filename}
	predeclared := starlark.StringDict{
		"cmd":      starlark.NewBuiltin("cmd", builtinCmd),
		"cmd_path": starlark.NewBuiltin("cmd_path", builtinCmdPath),
	}

	globals, err := starlark.ExecFile(thread, filename, src, predeclared)
	if err != nil {
		return duct.Expression{}, fmt.Errorf("ductscript: %w", err)
	}

	result, ok := globals["result"]
	if !ok {
		return duct.Expression{}, fmt.Errorf("ductscript: %s: no top-level \"result\" variable", filename)
	}
	e, ok := result.(*exprValue)
	if !ok {
		return duct.Expression{}, fmt.Errorf("ductscript: %s: \"result\" is %s, not an expression", filename, result.Type())
	}
	return e.expr, nil
}

// exprValue wraps a duct.Expression as a Starlark value. Expressions are
// immutable on the Go side already, so Freeze is a no-op: there is
// nothing mutable underneath for the interpreter to protect.
type exprValue struct {
	expr duct.Expression
}

var _ starlark.Value = (*exprValue)(nil)
var _ starlark.HasAttrs = (*exprValue)(nil)

func (e *exprValue) String() string        { return e.expr.String() }
func (e *exprValue) Type() string          { return "duct_expression" }
func (e *exprValue) Freeze()               {}
func (e *exprValue) Truth() starlark.Bool  { return starlark.True }
func (e *exprValue) Hash() (uint32, error) { return 0, fmt.Errorf("duct_expression is not hashable") }

func (e *exprValue) Attr(name string) (starlark.Value, error) {
	method, ok := exprMethods[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, method).BindReceiver(e), nil
}

// Unpack implements starlark.Unpacker so exprValue can be the target of
// starlark.UnpackArgs, e.g. pipe's "other" parameter.
func (e *exprValue) Unpack(v starlark.Value) error {
	other, ok := v.(*exprValue)
	if !ok {
		return fmt.Errorf("got %s, want duct_expression", v.Type())
	}
	*e = *other
	return nil
}

func (e *exprValue) AttrNames() []string {
	names := make([]string, 0, len(exprMethods))
	for name := range exprMethods {
		names = append(names, name)
	}
	return names
}

func builtinCmd(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	program, rest, err := unpackProgramAndArgs("cmd", args, kwargs)
	if err != nil {
		return nil, err
	}
	return &exprValue{expr: duct.Cmd(program, rest...)}, nil
}

func builtinCmdPath(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	path, rest, err := unpackProgramAndArgs("cmd_path", args, kwargs)
	if err != nil {
		return nil, err
	}
	return &exprValue{expr: duct.CmdPath(path, rest...)}, nil
}

func unpackProgramAndArgs(fnName string, args starlark.Tuple, kwargs []starlark.Tuple) (string, []string, error) {
	if len(kwargs) != 0 {
		return "", nil, fmt.Errorf("%s: unexpected keyword arguments", fnName)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%s: at least one argument (the program) is required", fnName)
	}
	var program string
	if err := starlark.UnpackArgs(fnName, args[:1], nil, "program", &program); err != nil {
		return "", nil, err
	}
	rest := make([]string, 0, len(args)-1)
	for i, a := range args[1:] {
		s, ok := starlark.AsString(a)
		if !ok {
			return "", nil, fmt.Errorf("%s: argument %d is not a string", fnName, i+1)
		}
		rest = append(rest, s)
	}
	return program, rest, nil
}

// exprMethods maps a Starlark method name on an expression value to the
// builtin implementing it. Receiver-taking builtins are bound per value
// in exprValue.Attr via Builtin.BindReceiver.
var exprMethods = map[string]func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error){
	"pipe":              methodPipe,
	"dir":               methodDir,
	"env":               methodEnv,
	"env_remove":        methodEnvRemove,
	"unchecked":         methodUnchecked,
	"stdin_bytes":       methodStdinBytes,
	"stdin_path":        methodStdinPath,
	"stdin_null":        methodStdinNull,
	"stdout_path":       methodStdoutPath,
	"stdout_null":       methodStdoutNull,
	"stdout_capture":    methodStdoutCapture,
	"stdout_to_stderr":  methodStdoutToStderr,
	"stderr_path":       methodStderrPath,
	"stderr_null":       methodStderrNull,
	"stderr_capture":    methodStderrCapture,
	"stderr_to_stdout":  methodStderrToStdout,
	"stdout_stderr_swap": methodStdoutStderrSwap,
}

func receiver(b *starlark.Builtin) duct.Expression {
	return b.Receiver().(*exprValue).expr
}

func methodPipe(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var other exprValue
	if err := starlark.UnpackArgs("pipe", args, kwargs, "other", &other); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).Pipe(other.expr)}, nil
}

func methodDir(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs("dir", args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).Dir(path)}, nil
}

func methodEnv(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, value string
	if err := starlark.UnpackArgs("env", args, kwargs, "name", &name, "value", &value); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).Env(name, value)}, nil
}

func methodEnvRemove(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs("env_remove", args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).EnvRemove(name)}, nil
}

func methodUnchecked(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("unchecked", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).Unchecked()}, nil
}

func methodStdinBytes(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data string
	if err := starlark.UnpackArgs("stdin_bytes", args, kwargs, "data", &data); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StdinBytesRaw(data)}, nil
}

func methodStdinPath(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs("stdin_path", args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StdinPath(path)}, nil
}

func methodStdinNull(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("stdin_null", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StdinNull()}, nil
}

func methodStdoutPath(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs("stdout_path", args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StdoutPath(path)}, nil
}

func methodStdoutNull(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("stdout_null", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StdoutNull()}, nil
}

func methodStdoutCapture(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("stdout_capture", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StdoutCapture()}, nil
}

func methodStdoutToStderr(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("stdout_to_stderr", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StdoutToStderr()}, nil
}

func methodStderrPath(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs("stderr_path", args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StderrPath(path)}, nil
}

func methodStderrNull(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("stderr_null", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StderrNull()}, nil
}

func methodStderrCapture(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("stderr_capture", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StderrCapture()}, nil
}

func methodStderrToStdout(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("stderr_to_stdout", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StderrToStdout()}, nil
}

func methodStdoutStderrSwap(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("stdout_stderr_swap", args, kwargs); err != nil {
		return nil, err
	}
	return &exprValue{expr: receiver(b).StdoutStderrSwap()}, nil
}
