package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/poleepo/loaddriver/internal/metrics"
)

// EncodeJSON writes the summary as indented JSON.
func EncodeJSON(w io.Writer, s *metrics.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

// WriteJSON exports the summary to path, creating parent directories.
// A path of "-" writes to stdout instead.
func WriteJSON(s *metrics.Summary, path string, stdout io.Writer) error {
	if s == nil {
		return fmt.Errorf("no summary to export")
	}
	if path == "-" {
		return EncodeJSON(stdout, s)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}

	if err := EncodeJSON(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
