package store

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/roach88/rmatrack/internal/fsutil"
	"github.com/roach88/rmatrack/internal/logging"
	"github.com/roach88/rmatrack/internal/rma"
)

// SheetName is the worksheet holding the exported table.
const SheetName = "RMA Log"

// columnWidths sizes exported columns; unlisted columns keep the default.
var columnWidths = map[string]float64{
	ColID:                 14,
	ColDateCreated:        17,
	ColCustomer:           24,
	ColProduct:            20,
	ColReasonCodes:        30,
	ColNotes:              30,
	ColCreatedBy:          28,
	ColInspectedBy:        28,
	ColReviewedBy:         28,
	ColAttachedDocument:   36,
	ColInspectionDocument: 36,
	ColCauseNote:          30,
	ColChangeLog:          50,
}

// Exporter writes a write-only copy of the table after a save.
type Exporter interface {
	Export(ctx context.Context, records []rma.Record) error
}

// ExcelExporter writes the table to an .xlsx workbook.
type ExcelExporter struct {
	path string
}

// NewExcelExporter creates an exporter writing to path.
func NewExcelExporter(path string) *ExcelExporter {
	return &ExcelExporter{path: path}
}

// Path returns the workbook path.
func (e *ExcelExporter) Path() string {
	return e.path
}

// Export renders records and atomically replaces the workbook.
func (e *ExcelExporter) Export(ctx context.Context, records []rma.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := BuildWorkbook(records)
	if err != nil {
		return &ExportError{Path: e.path, Err: err}
	}
	defer f.Close()

	err = fsutil.WriteFileAtomic(e.path, 0o644, func(w io.Writer) error {
		return f.Write(w)
	})
	if err != nil {
		return &ExportError{Path: e.path, Err: err}
	}
	return nil
}

// BuildWorkbook renders records into a new workbook with a styled header row.
// Callers must Close the returned file.
func BuildWorkbook(records []rma.Record) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		if width, ok := columnWidths[header]; ok {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(SheetName, name, name, width); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for i, r := range records {
		row, err := marshalRow(r)
		if err != nil {
			f.Close()
			return nil, err
		}
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		// Version is numeric in the sheet so it sorts and filters as a number.
		cells[len(cells)-1] = r.Version

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header row: %w", err)
	}

	return f, nil
}

// exportingStore saves through an inner Store, then runs an Exporter.
type exportingStore struct {
	Store
	exporter Exporter
	logger   *zap.Logger
}

// WithExport wraps s so every successful SaveAll is followed by an export.
// An export failure is returned as an *ExportError; the primary save has
// already completed when it is reported.
func WithExport(s Store, exporter Exporter, logger *zap.Logger) Store {
	if exporter == nil {
		return s
	}
	return &exportingStore{Store: s, exporter: exporter, logger: logging.OrNop(logger)}
}

func (s *exportingStore) SaveAll(ctx context.Context, records []rma.Record) error {
	if err := s.Store.SaveAll(ctx, records); err != nil {
		return err
	}
	if err := s.exporter.Export(ctx, records); err != nil {
		s.logger.Error("secondary export failed", zap.Error(err))
		return err
	}
	return nil
}
