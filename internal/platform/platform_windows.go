//go:build windows

package platform

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// errBrokenPipe is ERROR_BROKEN_PIPE, returned by WriteFile when the
// reading end of a pipe has already closed.
const errBrokenPipe = syscall.Errno(109)

// EnvFold uppercases environment variable names, matching Windows'
// case-insensitive environment so that "foo" and "FOO" are the same key.
func EnvFold(name string) string { return strings.ToUpper(name) }

// LineSeparator is the platform's native text line ending, used to
// translate a caller's "\n"-delimited text into the bytes a native
// program expects on stdin.
const LineSeparator = "\r\n"

// CanonicalizeForDir is a no-op on Windows. CreateProcess resolves a
// relative application path against the parent's current directory
// itself, so there is no chdir-before-exec reinterpretation to guard
// against here.
func CanonicalizeForDir(program, dir string) (string, error) { return program, nil }

func isAbsoluteForExec(p string) bool {
	if filepath.IsAbs(p) {
		return true
	}
	// An "almost-absolute" root like `\x` (no drive letter) is already
	// anchored to the current drive; prepending "." would turn it into a
	// different, drive-relative path, which is not what the caller meant.
	return len(p) > 0 && (p[0] == '\\' || p[0] == '/')
}

func joinDot(p string) string { return filepath.Join(".", p) }

// pathExts returns the extensions CreateProcess implicitly tries for an
// extension-less name, read from env's PATHEXT, or Windows' own default
// list when PATHEXT isn't set.
func pathExts(env []string) []string {
	pathext := envValue(env, "PATHEXT")
	if pathext == "" {
		return []string{".com", ".exe", ".bat", ".cmd"}
	}
	var exts []string
	for _, e := range strings.Split(strings.ToLower(pathext), ";") {
		if e == "" {
			continue
		}
		if e[0] != '.' {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}

// isExecutableFile reports whether path names an existing, non-directory
// file. Windows has no executable permission bit to check separately.
func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SuppressSIGPIPEOnce is a no-op on Windows: there is no SIGPIPE, and
// ERROR_BROKEN_PIPE already surfaces as an ordinary write error.
func SuppressSIGPIPEOnce() {}

// PipePair creates a unidirectional, non-inheritable pipe. Callers are
// expected to create it inside WithSpawnLock together with the spawn
// that will use it, to avoid leaking its handles into an unrelated
// concurrent CreateProcess call.
func PipePair() (r, w *os.File, err error) {
	r, w, err = os.Pipe()
	if err != nil {
		return nil, nil, NewPlatformError("create pipe", err)
	}
	return r, w, nil
}

// IsBrokenPipe reports whether err is the result of writing to a pipe
// whose reading end has already closed.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, errBrokenPipe) || errors.Is(err, syscall.ERROR_NO_DATA)
}
