// Package expr holds the immutable expression tree that duct's executor
// consumes: the "Expression Model" at the bottom of the dependency graph.
// Nothing here knows how to run a process; it only describes one. The
// root duct package builds these nodes through its fluent Expression
// type, and the interp package walks them to spawn and wait on children.
package expr

import (
	"os"

	"github.com/procduct/duct/internal/platform"
)

// Node is a single point in an expression tree. The set of
// implementations is closed to this package: callers build trees through
// the root duct package's builder, never by constructing a Node
// directly.
type Node interface {
	exprNode()
}

// Cmd is a leaf: one OS process to spawn.
type Cmd struct {
	Program string
	// IsPath marks Program as a filesystem path rather than a bare name
	// to resolve on PATH; it controls the leading "./" normalization
	// duct applies to relative paths (see platform.NormalizeProgram).
	IsPath bool
	Args   []string
}

func (*Cmd) exprNode() {}

// Pipe composes two expressions as a unidirectional byte pipe, Left's
// stdout feeding Right's stdin.
type Pipe struct {
	Left, Right Node
}

func (*Pipe) exprNode() {}

// RedirKind enumerates the stdio redirections an IoRedir node can apply.
type RedirKind int

const (
	StdinBytes RedirKind = iota
	StdinPath
	StdinFile
	StdinNull
	StdoutPath
	StdoutFile
	StdoutNull
	StdoutCapture
	StdoutToStderr
	StderrPath
	StderrFile
	StderrNull
	StderrCapture
	StderrToStdout
	StdoutStderrSwap
)

// IoRedir applies a single stdio redirection to Inner. Exactly one of
// the payload fields is meaningful, depending on Op.
type IoRedir struct {
	Inner Node
	Op    RedirKind
	Bytes []byte
	Path  string
	File  *os.File
}

func (*IoRedir) exprNode() {}

// Dir sets the working directory for every Cmd descendant of Inner that
// does not have its own, nested Dir override.
type Dir struct {
	Inner Node
	Path  string
}

func (*Dir) exprNode() {}

// Env overlays a single environment variable on Inner's subtree.
type Env struct {
	Inner      Node
	Name, Value string
}

func (*Env) exprNode() {}

// EnvRemove unsets an environment variable for Inner's subtree, without
// affecting the environment above this node.
type EnvRemove struct {
	Inner Node
	Name  string
}

func (*EnvRemove) exprNode() {}

// FullEnv replaces the entire environment for Inner's subtree, erasing
// any Env/EnvRemove/FullEnv overlay from further out.
type FullEnv struct {
	Inner Node
	Vars  map[string]string
}

func (*FullEnv) exprNode() {}

// Unchecked marks Inner's subtree so that its reduced status is flagged
// non-erroring, without masking a sibling's unrelated failure.
type Unchecked struct {
	Inner Node
}

func (*Unchecked) exprNode() {}

// BeforeSpawnHook is called once per Cmd leaf, immediately before it is
// spawned, and may edit the resolved ChildSpec in place. Its return value
// is ignored.
type BeforeSpawnHook func(*platform.ChildSpec)

// BeforeSpawn attaches a spawn-time hook to every Cmd leaf under Inner.
// When hooks are nested, the innermost one (the one closest to a given
// leaf) runs last.
type BeforeSpawn struct {
	Inner Node
	Hook  BeforeSpawnHook
}

func (*BeforeSpawn) exprNode() {}
