// Package source loads raw retail transactions from CSV and XLSX exports.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"retail-demand-lab/internal/domain"
)

var (
	// ErrMalformedRow is returned under the strict policy for the first row that cannot be parsed.
	ErrMalformedRow = errors.New("malformed row")

	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")

	// ErrUnsupportedFormat is returned for file extensions with no loader.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrEmptyInput is returned when the input has no header row.
	ErrEmptyInput = errors.New("input has no header row")
)

// Policy decides what happens to rows that cannot be parsed.
type Policy string

const (
	// PolicyStrict aborts the load at the first malformed row.
	PolicyStrict Policy = "strict"
	// PolicySkip drops malformed rows and counts them in LoadReport.
	PolicySkip Policy = "skip"
)

// Encoding names the byte encoding of CSV input.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "iso-8859-1"
)

// maxReportErrors caps RowError details kept in a LoadReport.
const maxReportErrors = 100

// Options configures a load.
type Options struct {
	Encoding Encoding // CSV only, defaults to ISO-8859-1
	Policy   Policy   // defaults to PolicyStrict
	Sheet    string   // XLSX only, defaults to the first sheet
}

func (o Options) withDefaults() Options {
	if o.Encoding == "" {
		o.Encoding = EncodingLatin1
	}
	if o.Policy == "" {
		o.Policy = PolicyStrict
	}
	return o
}

// RowError describes one row that failed to parse.
type RowError struct {
	Row    int64  // 1-based data row, header excluded
	Column string // empty for row-level problems
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d, column %s: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// LoadReport summarizes a load.
type LoadReport struct {
	Format  string
	Rows    int        // data rows read
	Loaded  int        // transactions returned
	Skipped int        // malformed rows dropped under PolicySkip
	Errors  []RowError // first skipped rows, capped
}

func (r *LoadReport) skip(rowErr *RowError) {
	r.Skipped++
	if len(r.Errors) < maxReportErrors {
		r.Errors = append(r.Errors, *rowErr)
	}
}

// Load reads transactions from path, choosing the loader by file extension.
func Load(ctx context.Context, path string, opts Options) ([]domain.Transaction, LoadReport, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSVFile(ctx, path, opts)
	case ".xlsx", ".xlsm":
		return LoadXLSX(ctx, path, opts)
	default:
		return nil, LoadReport{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// rowSink applies the malformed-row policy while rows stream in.
type rowSink struct {
	ctx    context.Context
	policy Policy
	cols   columnIndex
	txs    []domain.Transaction
	report LoadReport
}

func newRowSink(ctx context.Context, format string, header []string, policy Policy) (*rowSink, error) {
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}
	return &rowSink{
		ctx:    ctx,
		policy: policy,
		cols:   cols,
		report: LoadReport{Format: format},
	}, nil
}

// add parses one data row. It returns a non-nil error only when the load must stop.
func (s *rowSink) add(fields []string) error {
	s.report.Rows++
	seq := int64(s.report.Rows)

	if seq%4096 == 0 {
		if err := s.ctx.Err(); err != nil {
			return err
		}
	}

	tx, rowErr := s.cols.parse(fields, seq)
	if rowErr != nil {
		return s.reject(rowErr)
	}
	s.txs = append(s.txs, tx)
	s.report.Loaded++
	return nil
}

// reject applies the policy to an unparseable row.
func (s *rowSink) reject(rowErr *RowError) error {
	if s.policy == PolicyStrict {
		return fmt.Errorf("%w: %w", ErrMalformedRow, rowErr)
	}
	s.report.skip(rowErr)
	return nil
}
