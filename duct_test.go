//go:build unix

package duct

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestReadEcho(t *testing.T) {
	t.Parallel()
	got, err := Cmd("echo", "hi").Read(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "hi")
}

func TestReadPipe(t *testing.T) {
	t.Parallel()
	got, err := Cmd("echo", "hi").Pipe(Cmd("sed", "s/i/o/")).Read(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "ho")
}

func TestRunFalseIsNonZeroExit(t *testing.T) {
	t.Parallel()
	_, err := Cmd("false").Run(context.Background())
	var nonZero *NonZeroExit
	qt.Assert(t, err, qt.ErrorAs, &nonZero)
	qt.Assert(t, nonZero.Status.Code, qt.Equals, 1)
	qt.Assert(t, err.Error(), qt.Contains, `cmd("false")`)
}

func TestRunFalseUncheckedSucceeds(t *testing.T) {
	t.Parallel()
	out, err := Cmd("false").Unchecked().Run(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, out.Status.Code, qt.Equals, 1)
}

func TestStdinBytesRoundTrips(t *testing.T) {
	t.Parallel()
	got, err := Cmd("cat").StdinBytesRaw("stuff").Read(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "stuff")
}

func TestStdinBytesLargeNoDeadlock(t *testing.T) {
	t.Parallel()
	big := strings.Repeat("x", 10_000_000)
	_, err := Cmd("head", "-c", "0").StdinBytesRaw(big).Run(context.Background())
	qt.Assert(t, err, qt.IsNil)
}

func TestReadNormalizesEmbeddedCarriageReturns(t *testing.T) {
	t.Parallel()
	got, err := Cmd("printf", "a\\r\\nb\\rc\\n").Read(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "a\nb\nc")
}

func TestRunnerRunsAgainstOverriddenStdio(t *testing.T) {
	t.Parallel()
	r, w, err := os.Pipe()
	qt.Assert(t, err, qt.IsNil)
	defer r.Close()

	runner, err := NewRunner(WithStdio(nil, w, nil))
	qt.Assert(t, err, qt.IsNil)

	_, err = runner.Run(context.Background(), Cmd("echo", "hi"))
	qt.Assert(t, w.Close(), qt.IsNil)
	qt.Assert(t, err, qt.IsNil)

	got, err := io.ReadAll(r)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(got), qt.Equals, "hi\n")
}

func TestRunnerWithDirAffectsRelativeExePath(t *testing.T) {
	t.Parallel()
	scratch := t.TempDir()
	script := filepath.Join(scratch, "relscript.sh")
	qt.Assert(t, os.WriteFile(script, []byte("#!/bin/sh\necho from-script\n"), 0o755), qt.IsNil)

	runner, err := NewRunner(WithDir(scratch))
	qt.Assert(t, err, qt.IsNil)

	out, err := runner.Run(context.Background(), CmdPath("./relscript.sh").StdoutCapture())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(out.Stdout), qt.Equals, "from-script\n")
}

func TestPipeLargeOutputNoDeadlock(t *testing.T) {
	t.Parallel()
	const n = 2_000_000 // well over 10x a typical OS pipe buffer
	out, err := Cmd("yes").Pipe(Cmd("head", "-c", strconv.Itoa(n))).Unchecked().StdoutCapture().Run(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, len(out.Stdout), qt.Equals, n)
}

func TestPipeSpawnErrorReapsStartedSibling(t *testing.T) {
	t.Parallel()
	_, err := Cmd("echo", "x").Pipe(Cmd("duct-nonexistent-xyz")).Run(context.Background())
	var spawnErr *SpawnError
	qt.Assert(t, err, qt.ErrorAs, &spawnErr)
}

func TestPipefailPropagatesThroughSuccessfulRight(t *testing.T) {
	t.Parallel()
	_, err := Cmd("false").Pipe(Cmd("true")).Run(context.Background())
	var nonZero *NonZeroExit
	qt.Assert(t, err, qt.ErrorAs, &nonZero)
	qt.Assert(t, nonZero.Status.Code, qt.Equals, 1)
}

func TestUncheckedOnOneSideDoesNotMaskTheOther(t *testing.T) {
	t.Parallel()
	_, err := Cmd("false").Unchecked().Pipe(Cmd("true")).Run(context.Background())
	qt.Assert(t, err, qt.IsNil)
}

func TestEnvThenEnvRemoveLeavesVarUnset(t *testing.T) {
	t.Parallel()
	got, err := Cmd("sh", "-c", "echo -n ${FOO:-}${foo:-}").
		Env("foo", "bar").
		EnvRemove("foo").
		Read(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "")
}

func TestDirDoesNotReinterpretRelativeExePath(t *testing.T) {
	// Chdir is process-global, so this test can't run in parallel with
	// anything that cares about the current directory.
	cwd, err := os.Getwd()
	qt.Assert(t, err, qt.IsNil)
	scratch := t.TempDir()
	qt.Assert(t, os.Chdir(scratch), qt.IsNil)
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	script := filepath.Join(scratch, "relscript.sh")
	qt.Assert(t, os.WriteFile(script, []byte("#!/bin/sh\necho from-script\n"), 0o755), qt.IsNil)

	elsewhere := t.TempDir()
	got, err := CmdPath("./relscript.sh").Dir(elsewhere).Read(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "from-script")
}

func TestKillUnblocksWait(t *testing.T) {
	t.Parallel()
	h, err := Cmd("sleep", "1000").Start(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, h.Kill(), qt.IsNil)
	status, _ := h.Wait()
	qt.Assert(t, status.Code < 0, qt.Equals, true)
}
