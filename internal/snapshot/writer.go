package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer writes JSON documents to disk. A document either appears complete
// at its final path or not at all.
type Writer struct {
	// Indent is the per-level indentation; empty writes compact JSON.
	Indent string
}

// NewWriter creates a writer producing 2-space indented JSON.
func NewWriter() *Writer {
	return &Writer{Indent: "  "}
}

// WriteJSON encodes v into a temporary file next to path and renames it into
// place, replacing any existing file. Missing parent directories are created.
func (w *Writer) WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", w.Indent)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	committed = true
	return nil
}
