package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/procduct/duct"
)

// watchUI is a tiny live dashboard over a running duct.Handle: a table
// of its live PIDs, refreshed on a ticker, until the Handle finishes or
// the surrounding context is cancelled.
type watchUI struct {
	app   *tview.Application
	table *tview.Table

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func newWatchUI(title string) *watchUI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 1)
	table.SetBorder(true).SetTitle(title)
	table.SetCell(0, 0, tview.NewTableCell("PID").SetSelectable(false))
	table.SetCell(0, 1, tview.NewTableCell("STATE").SetSelectable(false))

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return &watchUI{app: app.SetRoot(table, true), table: table}
}

// Run polls h every interval until it finishes or ctx is cancelled, then
// stops the UI and returns h's reduced status.
func (u *watchUI) Run(ctx context.Context, h *duct.Handle, interval time.Duration) (duct.Status, error) {
	ctx, cancel := context.WithCancel(ctx)
	u.mu.Lock()
	u.cancel = cancel
	u.mu.Unlock()

	statusCh := make(chan struct {
		status duct.Status
		err    error
	}, 1)

	go func() {
		status, err := h.Wait()
		statusCh <- struct {
			status duct.Status
			err    error
		}{status, err}
		u.stop()
	}()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				u.refresh(h)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		u.stop()
	}()

	u.refresh(h)
	if err := u.app.Run(); err != nil {
		cancel()
		return duct.Status{}, err
	}
	cancel()

	select {
	case result := <-statusCh:
		return result.status, result.err
	default:
		return h.Wait()
	}
}

func (u *watchUI) refresh(h *duct.Handle) {
	pids := h.Pids()
	u.app.QueueUpdateDraw(func() {
		for row := u.table.GetRowCount() - 1; row > 0; row-- {
			u.table.RemoveRow(row)
		}
		for i, pid := range pids {
			u.table.SetCell(i+1, 0, tview.NewTableCell(fmt.Sprintf("%d", pid)))
			u.table.SetCell(i+1, 1, tview.NewTableCell("running"))
		}
		if len(pids) == 0 {
			u.table.SetCell(1, 0, tview.NewTableCell("-"))
			u.table.SetCell(1, 1, tview.NewTableCell("exited"))
		}
	})
}

func (u *watchUI) stop() {
	u.stopOnce.Do(func() {
		u.app.Stop()
	})
}
