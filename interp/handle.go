package interp

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/procduct/duct/internal/iopump"
	"github.com/procduct/duct/interp/child"
)

// IoError wraps a failure from an IO Pump thread: a capture or
// stdin-bytes copy failed for a reason other than the ordinary broken-
// pipe case, which pumps swallow rather than report. It's deferred to
// wait time and, per the error-propagation policy, only surfaces when
// the leaf it came from exited zero — a non-zero exit status always
// wins over a pump error.
type IoError struct {
	Err error
}

func (e *IoError) Error() string { return "duct: io: " + e.Err.Error() }
func (e *IoError) Unwrap() error { return e.Err }

// Output is the result of running an expression to completion: its
// reduced status plus whatever stdout/stderr bytes any capture
// redirections collected.
type Output struct {
	Status Status
	Stdout []byte
	Stderr []byte
}

// handleNode is the runtime counterpart of an expr.Node: the Handle Tree
// from §3/§4.4. Every leaf holds a SharedChild; every composition holds
// its children's handleNodes. Nothing here blocks except wait, and kill
// never joins an IO Pump.
type handleNode interface {
	wait() (Status, error)
	tryWait() (*Status, error)
	kill() error
	pids() []int
	collectOutput(out *Output)
}

// leafHandle is the Handle Tree's LeafHandle: one SharedChild plus
// whatever IO Pump threads its redirections required.
type leafHandle struct {
	child      *child.SharedChild
	unchecked  bool
	stdinPump  *iopump.Pump // non-nil when this leaf reads stdin_bytes
	stdoutPump *iopump.Pump // non-nil when this leaf's stdout is captured
	stderrPump *iopump.Pump // non-nil when this leaf's stderr is captured
}

func (lh *leafHandle) wait() (Status, error) {
	es, err := lh.child.Wait()
	status := Status{Code: es.Code, Checked: !lh.unchecked}

	var ioErr error
	if _, e := lh.stdinPump.Join(); e != nil {
		ioErr = e
	}
	if _, e := lh.stdoutPump.Join(); e != nil && ioErr == nil {
		ioErr = e
	}
	if _, e := lh.stderrPump.Join(); e != nil && ioErr == nil {
		ioErr = e
	}
	if err != nil {
		return status, err
	}
	if status.Code != 0 {
		// Status wins over a deferred IoError per the error-propagation
		// policy; the pump error is dropped rather than masking the exit.
		return status, nil
	}
	if ioErr != nil {
		return status, &IoError{Err: ioErr}
	}
	return status, nil
}

func (lh *leafHandle) tryWait() (*Status, error) {
	es, err := lh.child.TryWait()
	if err != nil {
		return nil, err
	}
	if es == nil {
		return nil, nil
	}
	if !lh.stdinPump.Done() || !lh.stdoutPump.Done() || !lh.stderrPump.Done() {
		// The leaf exited but a grandchild may still hold a captured pipe
		// open; the result isn't ready until the pumps say so too.
		return nil, nil
	}
	status, err := lh.wait()
	return &status, err
}

func (lh *leafHandle) kill() error { return lh.child.Kill() }

func (lh *leafHandle) pids() []int {
	status, _ := lh.child.TryWait()
	if status != nil {
		return nil
	}
	return []int{lh.child.Pid()}
}

func (lh *leafHandle) collectOutput(out *Output) {
	if data, _ := lh.stdoutPump.Join(); len(data) > 0 {
		out.Stdout = append(out.Stdout, data...)
	}
	if data, _ := lh.stderrPump.Join(); len(data) > 0 {
		out.Stderr = append(out.Stderr, data...)
	}
}

// pipeHandle is the Handle Tree's PipeHandle.
type pipeHandle struct {
	left, right handleNode
}

// wait races the two sides' own waits so that back-pressure on one side
// of the pipe can never deadlock against the other, per §4.4's "wait L
// and R in parallel" rule.
func (ph *pipeHandle) wait() (Status, error) {
	var lStatus, rStatus Status
	var lErr, rErr error
	var g errgroup.Group
	g.Go(func() error { lStatus, lErr = ph.left.wait(); return nil })
	g.Go(func() error { rStatus, rErr = ph.right.wait(); return nil })
	_ = g.Wait()

	reduced := reducePipe(lStatus, rStatus)
	if rErr != nil {
		return reduced, rErr
	}
	return reduced, lErr
}

func (ph *pipeHandle) tryWait() (*Status, error) {
	ls, err := ph.left.tryWait()
	if err != nil {
		return nil, err
	}
	if ls == nil {
		return nil, nil
	}
	rs, err := ph.right.tryWait()
	if err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, nil
	}
	reduced := reducePipe(*ls, *rs)
	return &reduced, nil
}

func (ph *pipeHandle) kill() error {
	lErr := ph.left.kill()
	rErr := ph.right.kill()
	if lErr != nil {
		return lErr
	}
	return rErr
}

func (ph *pipeHandle) pids() []int {
	return append(ph.left.pids(), ph.right.pids()...)
}

func (ph *pipeHandle) collectOutput(out *Output) {
	ph.left.collectOutput(out)
	ph.right.collectOutput(out)
}

// Handle is the public handle on a started expression. A Handle's first
// Wait call performs the one real reap; subsequent calls replay its
// result, matching SharedChild's own "exactly one Reaped transition"
// invariant one level up.
type Handle struct {
	root   handleNode
	once   sync.Once
	status Status
	err    error
	done   chan struct{}
}

func newHandle(root handleNode) *Handle {
	return &Handle{root: root, done: make(chan struct{})}
}

// Wait blocks until every leaf is reaped and returns the reduced status.
func (h *Handle) Wait() (Status, error) {
	h.once.Do(func() {
		h.status, h.err = h.root.wait()
		close(h.done)
	})
	<-h.done
	return h.status, h.err
}

// TryWait returns the reduced status without blocking if every leaf has
// already exited and every IO Pump has finished, or (nil, nil) otherwise.
func (h *Handle) TryWait() (*Status, error) { return h.root.tryWait() }

// Kill signals every live leaf. It never joins an IO Pump; callers must
// still call Wait to reap.
func (h *Handle) Kill() error { return h.root.kill() }

// Pids returns the PIDs of every leaf that hasn't exited yet.
func (h *Handle) Pids() []int { return h.root.pids() }

// Result waits for completion and returns the captured output alongside
// the reduced status.
func (h *Handle) Result() (Output, error) {
	status, err := h.Wait()
	out := Output{Status: status}
	h.root.collectOutput(&out)
	return out, err
}
