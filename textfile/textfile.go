// Package textfile exports transcripts and imports plain text for playback.
package textfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"
)

const (
	ExportName = "transcription.txt"
	MaxImport  = 4 << 20
)

var (
	ErrNotFound   = errors.New("file not found")
	ErrPermission = errors.New("permission denied")
	ErrNotText    = errors.New("not a plain-text file")
	ErrTooLarge   = errors.New("file too large")
)

// ReadError wraps an import failure with the path involved.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("import %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// Export writes text verbatim to dir/transcription.txt and returns the path.
func Export(dir, text string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path := filepath.Join(dir, ExportName)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return path, nil
}

// Import reads the whole file. Content is returned byte-for-byte; files that
// are not valid UTF-8 text are rejected rather than silently decoded.
func Import(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ReadError{Path: path, Err: classify(err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &ReadError{Path: path, Err: fmt.Errorf("%w: is a directory", ErrNotText)}
	}
	if info.Size() > MaxImport {
		return "", &ReadError{Path: path, Err: ErrTooLarge}
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxImport+1))
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	if len(data) > MaxImport {
		return "", &ReadError{Path: path, Err: ErrTooLarge}
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", &ReadError{Path: path, Err: ErrNotText}
	}
	return string(data), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	}
	return err
}
