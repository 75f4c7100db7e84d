package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/logger"
)

// LoadXLSX streams rows from one sheet of an Excel workbook.
// Cells are read raw, so dates arrive as Excel serial numbers.
func LoadXLSX(ctx context.Context, path string, opts Options) ([]domain.Transaction, LoadReport, error) {
	opts = opts.withDefaults()
	log := logger.WithComponent(logger.FromContext(ctx), "source")
	report := LoadReport{Format: "xlsx"}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, report, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, report, ErrEmptyInput
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, report, fmt.Errorf("open sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var sink *rowSink
	for rows.Next() {
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, report, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		if sink == nil {
			if isBlank(cols) {
				continue
			}
			sink, err = newRowSink(ctx, "xlsx", cols, opts.Policy)
			if err != nil {
				return nil, report, err
			}
			continue
		}

		if isBlank(cols) {
			continue
		}
		if err := sink.add(cols); err != nil {
			return nil, sink.report, err
		}
	}
	if err := rows.Error(); err != nil {
		return nil, report, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if sink == nil {
		return nil, report, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, sink.report, err
	}

	log.Info().
		Str("sheet", sheet).
		Int("rows", sink.report.Rows).
		Int("loaded", sink.report.Loaded).
		Int("skipped", sink.report.Skipped).
		Msg("xlsx loaded")

	return sink.txs, sink.report, nil
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
