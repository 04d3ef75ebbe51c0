// Package security masks secrets in output the tool passes through.
package security

import (
	"bytes"
	"io"
	"sync"

	"github.com/relicta-tech/crateship/internal/errors"
)

// Mask redacts registry tokens and credentials from s.
func Mask(s string) string {
	return errors.RedactSensitive(s)
}

// MaskedWriter wraps an io.Writer and redacts secrets from subprocess
// output before it reaches the terminal. Output is masked a line at a time
// so a token split across two writes is still caught; call Flush once the
// producer is done to emit a trailing partial line.
type MaskedWriter struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

// NewMaskedWriter creates a new MaskedWriter that wraps the given writer.
func NewMaskedWriter(w io.Writer) *MaskedWriter {
	return &MaskedWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success even though the
// masked bytes written downstream may differ in length.
func (mw *MaskedWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	mw.buf = append(mw.buf, p...)
	i := bytes.LastIndexByte(mw.buf, '\n')
	if i < 0 {
		return len(p), nil
	}

	lines := mw.buf[:i+1]
	if _, err := io.WriteString(mw.w, Mask(string(lines))); err != nil {
		return 0, err
	}
	mw.buf = append(mw.buf[:0], mw.buf[i+1:]...)
	return len(p), nil
}

// Flush writes any buffered partial line.
func (mw *MaskedWriter) Flush() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if len(mw.buf) == 0 {
		return nil
	}
	_, err := io.WriteString(mw.w, Mask(string(mw.buf)))
	mw.buf = mw.buf[:0]
	return err
}
