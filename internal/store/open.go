package store

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/roach88/rmatrack/internal/config"
	"github.com/roach88/rmatrack/internal/rma"
)

// Open builds the configured backend, wrapped with the Excel export when
// store.excel_path is set.
func Open(cfg *config.Config, clock rma.Clock, logger *zap.Logger) (Store, error) {
	var s Store
	switch cfg.Store.Backend {
	case config.BackendCSV:
		s = NewCSVStore(cfg.CSVPath(), WithCSVClock(clock), WithCSVLogger(logger))
	case config.BackendSQLite:
		path := cfg.SQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		sq, err := OpenSQLite(path, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		s = sq
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if path := cfg.ExcelPath(); path != "" {
		s = WithExport(s, NewExcelExporter(path), logger)
	}
	return s, nil
}
