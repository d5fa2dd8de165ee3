// Package export packages a parsed artifact into a downloadable archive.
package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zip"

	"github.com/emilalvaro25/vibe/internal/fileparse"
)

// ErrNoFiles is returned when nothing remains after filtering blanks.
var ErrNoFiles = errors.New("export: no files to archive")

// Archive zips the given files in order. Entries with an empty path or empty
// content are skipped, matching what the preview surfaces.
func Archive(files []fileparse.File) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	written := 0
	for _, f := range files {
		if f.Path == "" || f.Content == "" {
			continue
		}
		w, err := zw.Create(f.Path)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", f.Path, err)
		}
		if _, err := w.Write([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", f.Path, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if written == 0 {
		return nil, ErrNoFiles
	}
	return buf.Bytes(), nil
}
