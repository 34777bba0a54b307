// Package iopump runs the background goroutines that shovel bytes
// between an in-memory buffer or captured sink and a child's pipe
// endpoint, so that a child's stdio never has to block on the caller
// reading or writing synchronously.
//
// A Pump is never joined by a kill: a killed leaf's grandchildren may
// still hold its pipe open, so only Wait joins pumps, exactly as the
// spec's §4.3 "not joined synchronously" rule requires.
package iopump

import (
	"bytes"
	"io"
	"os"

	"github.com/procduct/duct/internal/platform"
)

// Pump is a single background copy goroutine and its eventual result.
type Pump struct {
	done chan struct{}
	buf  []byte
	err  error
}

// WriteBytes copies data into w on a background goroutine and closes w
// when done. A write that fails because the reading end has already
// closed the pipe is swallowed, not recorded as an error, matching the
// "broken-pipe writes to a child's stdin are not errors" rule.
func WriteBytes(data []byte, w *os.File) *Pump {
	p := &Pump{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		defer w.Close()
		_, err := io.Copy(w, bytes.NewReader(data))
		if err != nil && !platform.IsBrokenPipe(err) {
			p.err = err
		}
	}()
	return p
}

// Capture reads r to EOF on a background goroutine, closing r when done.
// The bytes read become available from Join. An I/O error other than a
// clean EOF is recorded and returned from Join.
func Capture(r *os.File) *Pump {
	p := &Pump{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		defer r.Close()
		var buf bytes.Buffer
		_, err := io.Copy(&buf, r)
		p.buf = buf.Bytes()
		if err != nil {
			p.err = err
		}
	}()
	return p
}

// Join blocks until the pump's goroutine has finished, then returns
// whatever it captured (nil for a writer pump) and any recorded error.
// It is safe to call more than once.
func (p *Pump) Join() ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	<-p.done
	return p.buf, p.err
}

// Done reports, without blocking, whether the pump's goroutine has
// finished. A leaf's exit does not by itself mean its pumps are done: a
// grandchild may still be holding the read end of a captured pipe open.
func (p *Pump) Done() bool {
	if p == nil {
		return true
	}
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
