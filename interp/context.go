package interp

import (
	"os"

	"github.com/procduct/duct/internal/expr"
	"github.com/procduct/duct/internal/platform"
)

// endpointKind tags the meaning of an ioEndpoint. Most kinds are resolved
// lazily, only once recursion reaches the single Cmd leaf they end up
// feeding; this is what lets an IoRedir wrapping an entire Pipe apply to
// whichever leaf turns out to own that stream once Pipe has claimed the
// other one for its internal plumbing.
type endpointKind int

const (
	epInherit endpointKind = iota // the process's own stdin/stdout/stderr
	epNull
	epPath
	epFile
	epBytesIn
	epCapture
	epPipeEnd // the read or write end of a Pipe's internal os.Pipe
)

type ioEndpoint struct {
	kind endpointKind
	path string
	file *os.File // epFile, epPipeEnd: caller/Pipe-owned, never closed by the leaf
	bytes []byte
}

// envOp is one step of the environment overlay chain recorded while
// descending the tree. Ops are replayed in recording order against the
// parent process's environment once a Cmd leaf needs the result.
type envOp struct {
	full    bool
	clear   bool // EnvRemove
	name    string
	value   string
	vars    map[string]string
}

// ioContext is the per-recursion-level record the Executor folds
// redirection/Dir/Env/Unchecked/BeforeSpawn nodes into on the way down to
// a leaf. Every node that derives a new ioContext copies the parent's and
// overrides only what it controls; nothing here is ever mutated in
// place, so siblings never observe each other's overrides.
type ioContext struct {
	stdin, stdout, stderr ioEndpoint
	dir                   string
	baseEnv               []string
	envOps                []envOp
	unchecked             bool
	hooks                 []expr.BeforeSpawnHook
}

func rootContext() ioContext {
	return ioContext{
		stdin:   ioEndpoint{kind: epInherit},
		stdout:  ioEndpoint{kind: epInherit},
		stderr:  ioEndpoint{kind: epInherit},
		baseEnv: os.Environ(),
	}
}

// withEnvOp returns a derived context with op appended. Appending, never
// mutating the parent's slice, is what keeps Right's env untouched by an
// Env node recorded only on Left's path down to Left's own leaves.
func (c ioContext) withEnvOp(op envOp) ioContext {
	ops := make([]envOp, len(c.envOps)+1)
	copy(ops, c.envOps)
	ops[len(ops)-1] = op
	c.envOps = ops
	return c
}

func (c ioContext) withHook(h expr.BeforeSpawnHook) ioContext {
	hooks := make([]expr.BeforeSpawnHook, len(c.hooks)+1)
	copy(hooks, c.hooks)
	hooks[len(hooks)-1] = h
	c.hooks = hooks
	return c
}

// resolveEnv replays the recorded overlay chain against base, the
// environment a Runner was configured with (the process's own by
// default). A full-env op resets the working map entirely, erasing
// every overlay recorded before it, exactly as FullEnv's "erases any
// outer env/FullEnv" rule requires.
func resolveEnv(base []string, ops []envOp) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		name, value, ok := splitEnv(kv)
		if ok {
			env[platform.EnvFold(name)] = value
		}
	}
	for _, op := range ops {
		switch {
		case op.full:
			env = make(map[string]string, len(op.vars))
			for name, value := range op.vars {
				env[platform.EnvFold(name)] = value
			}
		case op.clear:
			delete(env, platform.EnvFold(op.name))
		default:
			env[platform.EnvFold(op.name)] = op.value
		}
	}
	out := make([]string, 0, len(env))
	for name, value := range env {
		out = append(out, name+"="+value)
	}
	return out
}

func splitEnv(kv string) (name, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
