package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/rmatrack/internal/fsutil"
	"github.com/roach88/rmatrack/internal/logging"
	"github.com/roach88/rmatrack/internal/rma"
)

// CSVStore keeps the table in a single CSV file with a header row.
type CSVStore struct {
	path   string
	clock  rma.Clock
	logger *zap.Logger
}

// CSVOption configures a CSVStore.
type CSVOption func(*CSVStore)

// WithCSVClock sets the clock used to stamp quarantined files.
func WithCSVClock(c rma.Clock) CSVOption {
	return func(s *CSVStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithCSVLogger sets the logger.
func WithCSVLogger(l *zap.Logger) CSVOption {
	return func(s *CSVStore) { s.logger = logging.OrNop(l) }
}

// NewCSVStore creates a store backed by path. The file need not exist.
func NewCSVStore(path string, opts ...CSVOption) *CSVStore {
	s := &CSVStore{path: path, clock: rma.SystemClock{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the CSV file path.
func (s *CSVStore) Path() string {
	return s.path
}

// LoadAll reads the table. A missing or empty file is an empty table.
// A file that cannot be parsed is renamed to "<path>.corrupt-<stamp>" and
// also loads as empty, so the next save starts fresh without destroying it.
func (s *CSVStore) LoadAll(ctx context.Context) ([]rma.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("record table not found, starting empty", zap.String("path", s.path))
		return []rma.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []rma.Record{}, nil
	}

	records, parseErr := decodeCSV(bytes.NewReader(data))
	if parseErr == nil {
		return records, nil
	}

	quarantine := s.path + ".corrupt-" + s.clock.Now().Format("20060102T150405")
	if err := os.Rename(s.path, quarantine); err != nil {
		return nil, fmt.Errorf("quarantine corrupt table %s: %w (parse error: %v)", s.path, err, parseErr)
	}
	s.logger.Warn("record table is corrupt, moved aside and starting empty",
		zap.String("path", s.path),
		zap.String("quarantine", quarantine),
		zap.Error(parseErr),
	)
	return []rma.Record{}, nil
}

// SaveAll atomically replaces the CSV file.
func (s *CSVStore) SaveAll(ctx context.Context, records []rma.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := fsutil.WriteFileAtomic(s.path, 0o644, func(w io.Writer) error {
		return encodeCSV(w, records)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	s.logger.Debug("record table saved", zap.String("path", s.path), zap.Int("records", len(records)))
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (s *CSVStore) Close() error {
	return nil
}

func encodeCSV(w io.Writer, records []rma.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row, err := marshalRow(r)
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// decodeCSV addresses cells by header name, so column order is free and
// unknown columns (such as a stray "Label" column) are ignored.
func decodeCSV(r io.Reader) ([]rma.Record, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimPrefix(h, "\ufeff")] = i
	}
	if _, ok := index[ColID]; !ok {
		return nil, fmt.Errorf("header has no %q column", ColID)
	}

	records := []rma.Record{}
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := unmarshalRow(func(col string) string {
			if i, ok := index[col]; ok && i < len(row) {
				return row[i]
			}
			return ""
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("line %d: duplicate id %s", line, rec.ID)
		}
		seen[rec.ID] = true
		records = append(records, rec)
	}
	return records, nil
}
