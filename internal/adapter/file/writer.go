// Package file writes rendered documents to disk atomically.
package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer replaces a target file atomically: content is rendered to a temp file
// in the same directory, synced, then renamed over the target. A failed render
// leaves the previous file untouched.
type Writer struct {
	path string
	perm os.FileMode
}

// NewWriter creates a Writer for path. The file is created with mode 0644.
func NewWriter(path string) *Writer {
	return &Writer{path: path, perm: 0o644}
}

// Path returns the target path.
func (w *Writer) Path() string { return w.path }

// WriteDocument calls render with the temp file and publishes the result on
// success.
func (w *Writer) WriteDocument(render func(io.Writer) error) (err error) {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()           //nolint:errcheck // already failing
			os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	if err := render(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(w.perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("replace %s: %w", w.path, err)
	}
	return nil
}
