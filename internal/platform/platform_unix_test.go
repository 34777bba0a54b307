//go:build unix

package platform

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCanonicalizeForDirResolvesRelativeExeAgainstCallerCwd(t *testing.T) {
	cwd, err := os.Getwd()
	qt.Assert(t, err, qt.IsNil)

	got, err := CanonicalizeForDir("./script.sh", "/somewhere/else")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, filepath.Join(cwd, "script.sh"))
}

func TestCanonicalizeForDirLeavesBareNameAlone(t *testing.T) {
	got, err := CanonicalizeForDir("echo", "/somewhere")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "echo")
}

func TestCanonicalizeForDirNoopWithoutDir(t *testing.T) {
	got, err := CanonicalizeForDir("./script.sh", "")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "./script.sh")
}

func TestEnvFoldIsIdentityOnUnix(t *testing.T) {
	qt.Assert(t, EnvFold("Foo"), qt.Equals, "Foo")
}

func TestNormalizeProgramAddsDotSlashForRelativePaths(t *testing.T) {
	qt.Assert(t, NormalizeProgram("script.sh", true), qt.Equals, "./script.sh")
	qt.Assert(t, NormalizeProgram("/abs/script.sh", true), qt.Equals, "/abs/script.sh")
	qt.Assert(t, NormalizeProgram("echo", false), qt.Equals, "echo")
}

func TestIsBrokenPipeDetectsEPIPE(t *testing.T) {
	r, w, err := os.Pipe()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, r.Close(), qt.IsNil)
	_, writeErr := w.Write([]byte("x"))
	qt.Assert(t, writeErr != nil, qt.Equals, true)
	qt.Assert(t, IsBrokenPipe(writeErr), qt.Equals, true)
	_ = w.Close()
}
