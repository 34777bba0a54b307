package expr

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestStringRendersBuildChain(t *testing.T) {
	n := &Pipe{
		Left:  &Cmd{Program: "echo", Args: []string{"hi"}},
		Right: &IoRedir{Inner: &Cmd{Program: "sed", Args: []string{"s/i/o/"}}, Op: StdoutCapture},
	}
	got := String(n)
	want := `cmd("echo", "hi").pipe(cmd("sed", "s/i/o/").stdoutCapture())`
	qt.Assert(t, got, qt.Equals, want)
}

func TestStringRendersCmdPath(t *testing.T) {
	n := &Dir{Inner: &Cmd{Program: "./script.sh", IsPath: true}, Path: "/tmp"}
	got := String(n)
	want := `cmdPath("./script.sh").dir("/tmp")`
	qt.Assert(t, got, qt.Equals, want)
}
