package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/sambeau/streamline/pkg/engine"
	jerrors "github.com/sambeau/streamline/pkg/java/errors"
)

// WriteFile renders results into path, gzip-compressed when compress is
// set. The file is written to a temporary name first and renamed into
// place, so a failed render leaves any earlier report intact.
func (r *Reporter) WriteFile(path string, compress bool, results []*engine.FileResult) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return jerrors.New("IO-0002", map[string]any{"Path": path, "Err": err})
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var zw *gzip.Writer
	if compress {
		zw, err = gzip.NewWriterLevel(tmp, gzip.BestCompression)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("creating gzip writer: %w", err)
		}
		zw.Name = filepath.Base(path)
		w = zw
	}

	if err := r.Write(w, results); err != nil {
		tmp.Close()
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			tmp.Close()
			return jerrors.New("IO-0002", map[string]any{"Path": path, "Err": err})
		}
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return jerrors.New("IO-0002", map[string]any{"Path": path, "Err": err})
	}
	if err := tmp.Close(); err != nil {
		return jerrors.New("IO-0002", map[string]any{"Path": path, "Err": err})
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return jerrors.New("IO-0002", map[string]any{"Path": path, "Err": err})
	}
	return nil
}
