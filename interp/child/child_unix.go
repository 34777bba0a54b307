//go:build unix

package child

import (
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// state is the SharedChild state machine from the spec: NotWaited,
// Exiting, Reaped.
type state int

const (
	notWaited state = iota
	exiting
	reaped
)

// SharedChild wraps one running child process. The hard invariant it
// provides: kill() is always safe to call concurrently with wait(),
// because wait() learns that the child has exited via waitid(WNOWAIT)
// before it ever reaps it, so the pid cannot have been recycled while
// kill() is still deciding whether to signal it.
type SharedChild struct {
	cmd *exec.Cmd

	mu      sync.Mutex
	cond    *sync.Cond
	state   state
	reaping bool // true while one goroutine is inside the wait-then-reap sequence
	status  ExitStatus
	waitErr error
}

func newSharedChild(cmd *exec.Cmd) *SharedChild {
	sc := &SharedChild{cmd: cmd}
	sc.cond = sync.NewCond(&sc.mu)
	return sc
}

// Pid returns the child's process ID. It is exposed read-only: nothing
// outside this package signals a child by PID directly.
func (sc *SharedChild) Pid() int { return sc.cmd.Process.Pid }

// Wait blocks until the child is reaped and returns its exit status.
// Concurrent callers all block until the same reap completes and all
// observe the same ExitStatus.
func (sc *SharedChild) Wait() (ExitStatus, error) {
	sc.mu.Lock()
	for sc.state != reaped && sc.reaping {
		sc.cond.Wait()
	}
	if sc.state == reaped {
		status, err := sc.status, sc.waitErr
		sc.mu.Unlock()
		return status, err
	}
	sc.reaping = true
	sc.mu.Unlock()

	// Learn that the child has exited without freeing its pid. A killer
	// racing us right now is still signaling a valid, unreaped zombie.
	_, _ = waitidNoReap(sc.cmd.Process.Pid, 0)

	sc.mu.Lock()
	sc.state = exiting
	sc.mu.Unlock()

	// The child has already exited, so this reap is fast. From this
	// point on the pid may be recycled by the OS; Kill treats state >=
	// exiting as a no-op specifically so it never signals past this line.
	err := sc.cmd.Wait()
	status := decodeStatus(sc.cmd.ProcessState)

	sc.mu.Lock()
	sc.status = status
	if err != nil && !isExitError(err) {
		sc.waitErr = err
	}
	sc.state = reaped
	sc.reaping = false
	sc.cond.Broadcast()
	status, waitErr := sc.status, sc.waitErr
	sc.mu.Unlock()
	return status, waitErr
}

// TryWait returns the exit status without blocking if the child has
// already exited, or (nil, nil) if it's still running.
func (sc *SharedChild) TryWait() (*ExitStatus, error) {
	sc.mu.Lock()
	if sc.state == reaped {
		status, err := sc.status, sc.waitErr
		sc.mu.Unlock()
		return &status, err
	}
	if sc.reaping {
		sc.mu.Unlock()
		return nil, nil
	}
	sc.mu.Unlock()

	exited, err := waitidNoReap(sc.cmd.Process.Pid, unix.WNOHANG)
	if err != nil {
		return nil, err
	}
	if !exited {
		return nil, nil
	}
	status, waitErr := sc.Wait() // already exited: this reaps promptly
	return &status, waitErr
}

// Kill sends SIGKILL to the child if it hasn't started exiting yet. Once
// wait() has observed the child's exit via waitid(WNOWAIT), Kill becomes
// a no-op: there is nothing left to signal, and signaling past this
// point risks hitting a recycled pid.
func (sc *SharedChild) Kill() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != notWaited {
		return nil
	}
	if err := sc.cmd.Process.Kill(); err != nil {
		return err
	}
	return nil
}

// waitidNoReap blocks (unless extraOpts includes WNOHANG) until the
// child has exited, without reaping it. The boolean result is only
// meaningful when WNOHANG was requested: it reports whether the child
// had already exited.
func waitidNoReap(pid int, extraOpts int) (bool, error) {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT|extraOpts, nil)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return info.Signo != 0, nil
	}
}

// decodeStatus turns the reaped process's raw wait status into duct's
// exit code convention: the decoded exit code on a clean exit, or the
// negative signal number when the child died from a signal.
func decodeStatus(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{Code: -1}
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Code: -int(ws.Signal())}
	}
	return ExitStatus{Code: ps.ExitCode()}
}
