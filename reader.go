package duct

import (
	"context"
	"os"

	"github.com/procduct/duct/internal/platform"
)

// Reader streams an Expression's stdout as it's produced, rather than
// buffering it in memory the way StdoutCapture does. Closing it kills
// and reaps the expression; callers that read to EOF on their own still
// need to Close to reap the leaves.
type Reader struct {
	pipe   *os.File
	handle *Handle
}

// Reader starts e with its stdout wired directly to a pipe and returns
// the read end as a streaming io.Reader.
func (e Expression) Reader(ctx context.Context) (*Reader, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, platform.NewPlatformError("create pipe", err)
	}

	h, err := e.StdoutFile(w).Start(ctx)
	// The leaf (if it started) has its own duplicate of w by now; our copy
	// must close regardless so EOF reaches the read end once it's done.
	w.Close()
	if err != nil {
		r.Close()
		return nil, err
	}
	return &Reader{pipe: r, handle: h}, nil
}

// Read implements io.Reader.
func (rd *Reader) Read(p []byte) (int, error) { return rd.pipe.Read(p) }

// Close kills and reaps the underlying expression and closes the read
// end of the pipe.
func (rd *Reader) Close() error {
	_ = rd.handle.Kill()
	_, waitErr := rd.handle.Wait()
	closeErr := rd.pipe.Close()
	if waitErr != nil {
		return waitErr
	}
	return closeErr
}
