// Package child wraps one OS child process in a handle that's safe to
// wait on and kill from multiple goroutines at once: the "Shared Child"
// from the spec. Its job is narrow and entirely about one invariant:
// a kill from one goroutine racing a wait from another must never end up
// signaling a process ID that the OS has already recycled for something
// unrelated.
package child

import (
	"errors"
	"os/exec"

	"github.com/procduct/duct/internal/platform"
)

// ExitStatus is the raw OS-level result of a reaped child: a decoded
// exit code, or (on POSIX) a negative signal number if the child died
// from a signal. It carries no pipefail/unchecked semantics; that's the
// Status Reducer's job, one layer up in the interp package.
type ExitStatus struct {
	Code int
}

// SpawnError is returned by Spawn when the OS refuses to start the leaf
// (the program doesn't exist, isn't executable, or resources are
// exhausted).
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return "duct: exec: " + e.Program + ": " + e.Err.Error()
}
func (e *SpawnError) Unwrap() error { return e.Err }

// Spawn starts spec as a child process and wraps it in a SharedChild in
// its NotWaited state. Callers are expected to run Spawn inside
// platform.WithSpawnLock, alongside creation of any pipes spec's stdio
// depends on.
func Spawn(spec *platform.ChildSpec) (*SharedChild, error) {
	cmd := &exec.Cmd{
		Path:   spec.Path,
		Args:   spec.Args,
		Env:    spec.Env,
		Dir:    spec.Dir,
		Stdin:  spec.Stdin,
		Stdout: spec.Stdout,
		Stderr: spec.Stderr,
	}
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Program: spec.Path, Err: err}
	}
	return newSharedChild(cmd), nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
