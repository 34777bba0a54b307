package interp

import (
	"context"
	"os"

	"github.com/procduct/duct/internal/expr"
	"github.com/procduct/duct/internal/iopump"
	"github.com/procduct/duct/internal/platform"
	"github.com/procduct/duct/interp/child"
)

// spawnLedger tracks every leaf spawned so far during one recursive
// start, in spawn order, so that a failure anywhere in the tree can kill
// and reap all of them in reverse order before the error is returned.
// This is the "hardest property" of §4.4: no zombie survives a failed
// start.
type spawnLedger struct {
	spawned []*child.SharedChild
}

func (l *spawnLedger) record(sc *child.SharedChild) { l.spawned = append(l.spawned, sc) }

func (l *spawnLedger) cleanup() {
	for i := len(l.spawned) - 1; i >= 0; i-- {
		sc := l.spawned[i]
		_ = sc.Kill()
		_, _ = sc.Wait()
	}
}

// Start runs the recursive start protocol over root and returns the
// resulting Handle Tree, or an error if any leaf failed to spawn — in
// which case every leaf spawned so far has already been killed and
// reaped before Start returns.
func Start(ctx context.Context, root expr.Node) (*Handle, error) {
	platform.SuppressSIGPIPEOnce()
	ledger := &spawnLedger{}
	hn, err := startNode(ctx, root, rootContext(), ledger)
	if err != nil {
		ledger.cleanup()
		return nil, err
	}
	return newHandle(hn), nil
}

func startNode(ctx context.Context, node expr.Node, ioctx ioContext, ledger *spawnLedger) (handleNode, error) {
	switch n := node.(type) {
	case *expr.Cmd:
		return spawnLeaf(ctx, n, ioctx, ledger)
	case *expr.Pipe:
		return startPipe(ctx, n, ioctx, ledger)
	case *expr.IoRedir:
		return startNode(ctx, n.Inner, applyRedir(ioctx, n), ledger)
	case *expr.Dir:
		ioctx.dir = n.Path
		return startNode(ctx, n.Inner, ioctx, ledger)
	case *expr.Env:
		return startNode(ctx, n.Inner, ioctx.withEnvOp(envOp{name: n.Name, value: n.Value}), ledger)
	case *expr.EnvRemove:
		return startNode(ctx, n.Inner, ioctx.withEnvOp(envOp{clear: true, name: n.Name}), ledger)
	case *expr.FullEnv:
		return startNode(ctx, n.Inner, ioctx.withEnvOp(envOp{full: true, vars: n.Vars}), ledger)
	case *expr.Unchecked:
		ioctx.unchecked = true
		return startNode(ctx, n.Inner, ioctx, ledger)
	case *expr.BeforeSpawn:
		return startNode(ctx, n.Inner, ioctx.withHook(n.Hook), ledger)
	default:
		panic("duct: interp: unrecognized expression node")
	}
}

func applyRedir(ioctx ioContext, n *expr.IoRedir) ioContext {
	switch n.Op {
	case expr.StdinBytes:
		ioctx.stdin = ioEndpoint{kind: epBytesIn, bytes: n.Bytes}
	case expr.StdinPath:
		ioctx.stdin = ioEndpoint{kind: epPath, path: n.Path}
	case expr.StdinFile:
		ioctx.stdin = ioEndpoint{kind: epFile, file: n.File}
	case expr.StdinNull:
		ioctx.stdin = ioEndpoint{kind: epNull}
	case expr.StdoutPath:
		ioctx.stdout = ioEndpoint{kind: epPath, path: n.Path}
	case expr.StdoutFile:
		ioctx.stdout = ioEndpoint{kind: epFile, file: n.File}
	case expr.StdoutNull:
		ioctx.stdout = ioEndpoint{kind: epNull}
	case expr.StdoutCapture:
		ioctx.stdout = ioEndpoint{kind: epCapture}
	case expr.StdoutToStderr:
		ioctx.stdout = ioctx.stderr
	case expr.StderrPath:
		ioctx.stderr = ioEndpoint{kind: epPath, path: n.Path}
	case expr.StderrFile:
		ioctx.stderr = ioEndpoint{kind: epFile, file: n.File}
	case expr.StderrNull:
		ioctx.stderr = ioEndpoint{kind: epNull}
	case expr.StderrCapture:
		ioctx.stderr = ioEndpoint{kind: epCapture}
	case expr.StderrToStdout:
		ioctx.stderr = ioctx.stdout
	case expr.StdoutStderrSwap:
		ioctx.stdout, ioctx.stderr = ioctx.stderr, ioctx.stdout
	}
	return ioctx
}

// startPipe implements §4.4's Pipe(L, R) case: create the pipe, start L,
// close the parent's write end so EOF reaches R once L's writers finish,
// start R, close the parent's read end, and on R's failure kill and wait
// L before returning R's error.
func startPipe(ctx context.Context, n *expr.Pipe, ioctx ioContext, ledger *spawnLedger) (handleNode, error) {
	var r, w *os.File
	if err := platform.WithSpawnLock(func() error {
		var err error
		r, w, err = platform.PipePair()
		return err
	}); err != nil {
		return nil, err
	}

	ioctxL := ioctx
	ioctxL.stdout = ioEndpoint{kind: epPipeEnd, file: w}
	ioctxR := ioctx
	ioctxR.stdin = ioEndpoint{kind: epPipeEnd, file: r}

	left, err := startNode(ctx, n.Left, ioctxL, ledger)
	if err != nil {
		w.Close()
		r.Close()
		return nil, err
	}
	w.Close()

	right, err := startNode(ctx, n.Right, ioctxR, ledger)
	r.Close()
	if err != nil {
		_ = left.kill()
		_, _ = left.wait()
		return nil, err
	}
	return &pipeHandle{left: left, right: right}, nil
}

// spawnLeaf implements §4.4's Cmd case.
func spawnLeaf(ctx context.Context, n *expr.Cmd, ioctx ioContext, ledger *spawnLedger) (handleNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env := resolveEnv(ioctx.baseEnv, ioctx.envOps)

	var path string
	if n.IsPath {
		var err error
		path = platform.NormalizeProgram(n.Program, true)
		if ioctx.dir != "" {
			path, err = platform.CanonicalizeForDir(path, ioctx.dir)
			if err != nil {
				return nil, err
			}
		}
	} else {
		var err error
		path, err = platform.LookPath(n.Program, ioctx.dir, env)
		if err != nil {
			return nil, &child.SpawnError{Program: n.Program, Err: err}
		}
	}

	spec := &platform.ChildSpec{
		Path: path,
		Args: append([]string{n.Program}, n.Args...),
		Env:  env,
		Dir:  ioctx.dir,
	}

	var stdinPump, stdoutPump, stderrPump *iopump.Pump
	var toClose []*os.File
	closeOpened := func() {
		for _, f := range toClose {
			f.Close()
		}
	}

	var sc *child.SharedChild
	err := platform.WithSpawnLock(func() error {
		stdinFile, pump, owned, err := resolveStdio(ioctx.stdin, true, os.Stdin)
		if err != nil {
			return err
		}
		stdinPump = pump
		if owned != nil {
			toClose = append(toClose, owned)
		}
		spec.Stdin = stdinFile

		stdoutFile, pump, owned, err := resolveStdio(ioctx.stdout, false, os.Stdout)
		if err != nil {
			return err
		}
		stdoutPump = pump
		if owned != nil {
			toClose = append(toClose, owned)
		}
		spec.Stdout = stdoutFile

		stderrFile, pump, owned, err := resolveStdio(ioctx.stderr, false, os.Stderr)
		if err != nil {
			return err
		}
		stderrPump = pump
		if owned != nil {
			toClose = append(toClose, owned)
		}
		spec.Stderr = stderrFile

		for _, hook := range ioctx.hooks {
			hook(spec)
		}

		sc, err = child.Spawn(spec)
		return err
	})
	if err != nil {
		closeOpened()
		return nil, err
	}
	closeOpened()
	ledger.record(sc)

	return &leafHandle{
		child:      sc,
		unchecked:  ioctx.unchecked,
		stdinPump:  stdinPump,
		stdoutPump: stdoutPump,
		stderrPump: stderrPump,
	}, nil
}

// resolveStdio turns one stream's ioEndpoint into the *os.File to hand
// the child, an optional IO Pump feeding or draining it, and — for
// endpoints this call opened itself, rather than borrowed — the file the
// caller must close once the child has been spawned and duplicated it.
func resolveStdio(ep ioEndpoint, isInput bool, inherit *os.File) (file *os.File, pump *iopump.Pump, ownedToClose *os.File, err error) {
	switch ep.kind {
	case epInherit:
		return inherit, nil, nil, nil
	case epFile:
		return ep.file, nil, nil, nil
	case epPipeEnd:
		return ep.file, nil, nil, nil
	case epNull:
		flag := os.O_WRONLY
		if isInput {
			flag = os.O_RDONLY
		}
		f, err := os.OpenFile(os.DevNull, flag, 0)
		if err != nil {
			return nil, nil, nil, platform.NewPlatformError("open null device", err)
		}
		return f, nil, f, nil
	case epPath:
		var f *os.File
		if isInput {
			f, err = os.Open(ep.path)
		} else {
			f, err = os.OpenFile(ep.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		}
		if err != nil {
			return nil, nil, nil, platform.NewPlatformError("open redirection target", err)
		}
		return f, nil, f, nil
	case epBytesIn:
		r, w, err := platform.PipePair()
		if err != nil {
			return nil, nil, nil, err
		}
		p := iopump.WriteBytes(ep.bytes, w)
		return r, p, r, nil
	case epCapture:
		r, w, err := platform.PipePair()
		if err != nil {
			return nil, nil, nil, err
		}
		p := iopump.Capture(r)
		return w, p, w, nil
	default:
		return inherit, nil, nil, nil
	}
}
