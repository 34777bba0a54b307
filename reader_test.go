//go:build unix

package duct

import (
	"context"
	"io"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestReaderStreamsStdout(t *testing.T) {
	t.Parallel()
	rd, err := Cmd("printf", "a\nb\nc\n").Reader(context.Background())
	qt.Assert(t, err, qt.IsNil)

	got, err := io.ReadAll(rd)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(got), qt.Equals, "a\nb\nc\n")
	qt.Assert(t, rd.Close(), qt.IsNil)
}

func TestReaderCloseKillsLongRunningExpression(t *testing.T) {
	t.Parallel()
	rd, err := Cmd("yes").Reader(context.Background())
	qt.Assert(t, err, qt.IsNil)

	buf := make([]byte, 16)
	_, err = rd.Read(buf)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, rd.Close(), qt.IsNil)
}
