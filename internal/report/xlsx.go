package report

import (
	"fmt"
	"os"
	"path/filepath"

	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet every report is written to
const SheetName = "Sheet1"

// XLSXWriter writes tables as spreadsheet files
type XLSXWriter struct {
	log *logger.Logger
}

// NewXLSXWriter creates a new spreadsheet writer
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{log: logger.ForReport()}
}

// WriteTable writes columns as the header row and rows beneath it, replacing any existing file
func (w *XLSXWriter) WriteTable(path string, columns []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := writeRow(f, 1, header); err != nil {
		return apperrors.NewExport("xlsx", "failed to write header", err)
	}

	for i, row := range rows {
		if err := writeRow(f, i+2, row); err != nil {
			return apperrors.NewExport("xlsx", fmt.Sprintf("failed to write row %d", i+1), err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.NewExport("xlsx", "failed to create output directory", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return apperrors.NewExport("xlsx", "failed to save "+path, err)
	}

	w.log.Info().Str("path", path).Int("rows", len(rows)).Msg("Report written")
	return nil
}

func writeRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(SheetName, cell, &values)
}
