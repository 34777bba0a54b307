//go:build unix

package child

import (
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/procduct/duct/internal/platform"
)

func spawnSleep(t *testing.T) *SharedChild {
	t.Helper()
	sc, err := Spawn(&platform.ChildSpec{
		Path: "/bin/sleep",
		Args: []string{"sleep", "1000"},
	})
	qt.Assert(t, err, qt.IsNil)
	return sc
}

func TestWaitAfterKillReportsSignalDeath(t *testing.T) {
	t.Parallel()
	sc := spawnSleep(t)
	qt.Assert(t, sc.Kill(), qt.IsNil)
	status, err := sc.Wait()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, status.Code < 0, qt.Equals, true)
}

func TestConcurrentWaitersObserveSameStatus(t *testing.T) {
	t.Parallel()
	sc := spawnSleep(t)
	qt.Assert(t, sc.Kill(), qt.IsNil)

	const n = 8
	results := make([]ExitStatus, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			status, err := sc.Wait()
			qt.Check(t, err, qt.IsNil)
			results[i] = status
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		qt.Assert(t, r, qt.Equals, results[0])
	}
}

func TestKillAfterWaitIsNoop(t *testing.T) {
	t.Parallel()
	sc, err := Spawn(&platform.ChildSpec{Path: "/bin/true", Args: []string{"true"}})
	qt.Assert(t, err, qt.IsNil)
	_, err = sc.Wait()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, sc.Kill(), qt.IsNil)
}

func TestTryWaitNonBlockingWhileRunning(t *testing.T) {
	t.Parallel()
	sc := spawnSleep(t)
	defer func() {
		_ = sc.Kill()
		_, _ = sc.Wait()
	}()
	status, err := sc.TryWait()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, status, qt.IsNil)
}
