package formatter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/notation"
	"github.com/desertthunder/scribe/internal/shared"
)

// Exporter writes scores to disk one at a time.
//
// [Exporter.Busy] is true while a write is in flight so the shell can show a busy indicator;
// it is cleared whether the export succeeds or fails.
type Exporter struct {
	dir    string
	logger *log.Logger
	busy   atomic.Bool
}

// NewExporter creates an exporter writing into dir ("." when empty).
func NewExporter(dir string, logger *log.Logger) *Exporter {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{dir: dir, logger: logger}
}

// Busy reports whether an export is running.
func (e *Exporter) Busy() bool { return e.busy.Load() }

// Path is where score would be written in format f.
func (e *Exporter) Path(score *notation.Score, f Format) string {
	name := strings.TrimSuffix(notation.ExportFilename(score.Title), ".pdf") + f.Ext()
	return filepath.Join(e.dir, name)
}

// Export renders score and writes it, returning the written path.
//
// A second call while one is in flight fails with [shared.ErrBusy].
func (e *Exporter) Export(ctx context.Context, score *notation.Score, f Format) (string, error) {
	if score == nil {
		return "", fmt.Errorf("%w: nothing to export", shared.ErrInvalidArgument)
	}
	if !e.busy.CompareAndSwap(false, true) {
		return "", fmt.Errorf("export %w", shared.ErrBusy)
	}
	defer e.busy.Store(false)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := Render(score, f)
	if err != nil {
		e.logger.Error("export failed", "format", f, "error", err)
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := e.Path(score, f)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.logger.Error("export failed", "path", path, "error", err)
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	e.logger.Info("exported score", "path", path, "bytes", len(data))
	return path, nil
}
