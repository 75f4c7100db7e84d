package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/logger"
)

// LoadCSVFile opens path and loads it with LoadCSV.
func LoadCSVFile(ctx context.Context, path string, opts Options) ([]domain.Transaction, LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return LoadCSV(ctx, f, opts)
}

// LoadCSV reads a header row followed by transaction rows.
// Rows with a wrong field count or unparseable values are handled per opts.Policy.
func LoadCSV(ctx context.Context, r io.Reader, opts Options) ([]domain.Transaction, LoadReport, error) {
	opts = opts.withDefaults()
	log := logger.WithComponent(logger.FromContext(ctx), "source")

	switch opts.Encoding {
	case EncodingLatin1:
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	case EncodingUTF8:
	default:
		return nil, LoadReport{}, fmt.Errorf("%w: encoding %q", ErrUnsupportedFormat, opts.Encoding)
	}

	reader := csv.NewReader(r)
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, LoadReport{Format: "csv"}, ErrEmptyInput
	}
	if err != nil {
		return nil, LoadReport{Format: "csv"}, fmt.Errorf("read header: %w", err)
	}

	sink, err := newRowSink(ctx, "csv", header, opts.Policy)
	if err != nil {
		return nil, LoadReport{Format: "csv"}, err
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, sink.report, fmt.Errorf("read csv: %w", err)
			}
			sink.report.Rows++
			if rerr := sink.reject(&RowError{Row: int64(sink.report.Rows), Err: perr.Err}); rerr != nil {
				return nil, sink.report, rerr
			}
			log.Debug().Int("row", sink.report.Rows).Err(perr.Err).Msg("skipped malformed row")
			continue
		}

		if err := sink.add(record); err != nil {
			return nil, sink.report, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, sink.report, err
	}

	log.Info().
		Int("rows", sink.report.Rows).
		Int("loaded", sink.report.Loaded).
		Int("skipped", sink.report.Skipped).
		Msg("csv loaded")

	return sink.txs, sink.report, nil
}
