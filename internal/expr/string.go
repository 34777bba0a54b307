package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders n the way it was built, e.g.
// `cmd("echo", "hi").pipe(cmd("sed", "s/i/o/"))`. It exists for error
// messages and debugging, not for round-tripping — redirections that
// carry an *os.File or raw bytes render a placeholder rather than their
// payload.
func String(n Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Cmd:
		ctor := "cmd"
		if v.IsPath {
			ctor = "cmdPath"
		}
		b.WriteString(ctor)
		b.WriteByte('(')
		b.WriteString(strconv.Quote(v.Program))
		for _, a := range v.Args {
			b.WriteString(", ")
			b.WriteString(strconv.Quote(a))
		}
		b.WriteByte(')')
	case *Pipe:
		writeNode(b, v.Left)
		b.WriteString(".pipe(")
		writeNode(b, v.Right)
		b.WriteByte(')')
	case *IoRedir:
		writeNode(b, v.Inner)
		b.WriteByte('.')
		b.WriteString(redirCall(v))
	case *Dir:
		writeNode(b, v.Inner)
		fmt.Fprintf(b, ".dir(%s)", strconv.Quote(v.Path))
	case *Env:
		writeNode(b, v.Inner)
		fmt.Fprintf(b, ".env(%s, %s)", strconv.Quote(v.Name), strconv.Quote(v.Value))
	case *EnvRemove:
		writeNode(b, v.Inner)
		fmt.Fprintf(b, ".envRemove(%s)", strconv.Quote(v.Name))
	case *FullEnv:
		writeNode(b, v.Inner)
		b.WriteString(".fullEnv(...)")
	case *Unchecked:
		writeNode(b, v.Inner)
		b.WriteString(".unchecked()")
	case *BeforeSpawn:
		writeNode(b, v.Inner)
		b.WriteString(".beforeSpawn(...)")
	default:
		b.WriteString("<unknown>")
	}
}

func redirCall(n *IoRedir) string {
	switch n.Op {
	case StdinBytes:
		return "stdinBytes(...)"
	case StdinPath:
		return fmt.Sprintf("stdinPath(%s)", strconv.Quote(n.Path))
	case StdinFile:
		return "stdinFile(...)"
	case StdinNull:
		return "stdinNull()"
	case StdoutPath:
		return fmt.Sprintf("stdoutPath(%s)", strconv.Quote(n.Path))
	case StdoutFile:
		return "stdoutFile(...)"
	case StdoutNull:
		return "stdoutNull()"
	case StdoutCapture:
		return "stdoutCapture()"
	case StdoutToStderr:
		return "stdoutToStderr()"
	case StderrPath:
		return fmt.Sprintf("stderrPath(%s)", strconv.Quote(n.Path))
	case StderrFile:
		return "stderrFile(...)"
	case StderrNull:
		return "stderrNull()"
	case StderrCapture:
		return "stderrCapture()"
	case StderrToStdout:
		return "stderrToStdout()"
	case StdoutStderrSwap:
		return "stdoutStderrSwap()"
	default:
		return "redir(?)"
	}
}
