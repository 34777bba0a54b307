//go:build unix

package interp

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"pgregory.net/rapid"

	"github.com/procduct/duct/internal/expr"
	"github.com/procduct/duct/interp/child"
)

// genValidLeaf draws one of the three leaf shapes §8 names: true, false,
// and sh -c.
func genValidLeaf(draw *rapid.T) expr.Node {
	switch rapid.IntRange(0, 2).Draw(draw, "leafKind") {
	case 0:
		return &expr.Cmd{Program: "true"}
	case 1:
		return &expr.Cmd{Program: "false"}
	default:
		return &expr.Cmd{Program: "sh", Args: []string{"-c", "exit 0"}}
	}
}

// genValidTree draws a random expression tree of only always-spawnable
// leaves, bounded to depth levels of Pipe composition with an occasional
// Unchecked wrapper on one side.
func genValidTree(draw *rapid.T, depth int) expr.Node {
	if depth <= 0 || rapid.Bool().Draw(draw, "isLeaf") {
		return genValidLeaf(draw)
	}
	left := genValidTree(draw, depth-1)
	right := genValidTree(draw, depth-1)
	if rapid.Bool().Draw(draw, "unchecked") {
		left = &expr.Unchecked{Inner: left}
	}
	return &expr.Pipe{Left: left, Right: right}
}

func isProcessAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// TestRandomTreeEveryLeafReapedExactlyOnce checks §4.4's central
// guarantee over random trees: once Wait returns, every leaf that
// startNode recorded in the spawn ledger has actually been reaped, not
// merely signaled.
func TestRandomTreeEveryLeafReapedExactlyOnce(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(draw *rapid.T) {
		root := genValidTree(draw, 3)

		ledger := &spawnLedger{}
		hn, err := startNode(context.Background(), root, rootContext(), ledger)
		if err != nil {
			draw.Fatalf("unexpected spawn error for an all-valid tree: %v", err)
		}

		h := newHandle(hn)
		if _, err := h.Wait(); err != nil {
			var ioErr *IoError
			if !errors.As(err, &ioErr) {
				draw.Fatalf("unexpected wait error: %v", err)
			}
		}

		for _, sc := range ledger.spawned {
			if isProcessAlive(sc.Pid()) {
				draw.Fatalf("pid %d still alive after Wait", sc.Pid())
			}
		}
	})
}

// TestRandomTreeNoLiveProcessSurvivesSpawnError checks the other half of
// §4.4: when a leaf fails to spawn anywhere in a random tree, every leaf
// spawned before it is killed and reaped before the error surfaces, with
// nothing left running.
func TestRandomTreeNoLiveProcessSurvivesSpawnError(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(draw *rapid.T) {
		valid := genValidTree(draw, 2)
		var fail expr.Node = &expr.Cmd{Program: "duct-nonexistent-xyz"}

		var root expr.Node
		if rapid.Bool().Draw(draw, "failOnLeft") {
			root = &expr.Pipe{Left: fail, Right: valid}
		} else {
			root = &expr.Pipe{Left: valid, Right: fail}
		}

		ledger := &spawnLedger{}
		hn, err := startNode(context.Background(), root, rootContext(), ledger)
		if err == nil {
			_ = hn.kill()
			_, _ = hn.wait()
			draw.Fatalf("expected a spawn error from the nonexistent-program leaf")
		}
		var spawnErr *child.SpawnError
		if !errors.As(err, &spawnErr) {
			draw.Fatalf("expected a *child.SpawnError, got %T: %v", err, err)
		}

		ledger.cleanup()
		for _, sc := range ledger.spawned {
			if isProcessAlive(sc.Pid()) {
				draw.Fatalf("pid %d still alive after a failed start", sc.Pid())
			}
		}
	})
}
