package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-demand-lab/internal/config"
)

const retailCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,A,ITEM A,10,1/3/2011 9:30,5,17850,United Kingdom
536366,A,ITEM A,10,2/3/2011 9:30,5,17850,United Kingdom
536367,B,ITEM B,20,2/3/2011 9:30,5,17850,United Kingdom
C536368,B,ITEM B,-1,2/3/2011 9:30,5,17850,United Kingdom
`

func testConfig(t *testing.T, rawPath string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	maxQty := int64(10000)
	rev, peak := 0.5, 0.5

	cfg := config.Default()
	cfg.Dataset.RawPath = rawPath
	cfg.Dataset.FinalPath = filepath.Join(dir, "out", "product_quadrants.csv")
	cfg.Dataset.Encoding = "utf-8"
	cfg.Params.MaxQuantity = &maxQty
	cfg.Params.RevenueQuantile = &rev
	cfg.Params.MaxSalesQuantile = &peak
	require.NoError(t, cfg.Validate())
	return &cfg
}

func fixedOptions() runOptions {
	return runOptions{
		RunID: func() string { return "run-1" },
		Clock: func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func TestRun_FileToCSV(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "online_retail.csv")
	require.NoError(t, os.WriteFile(raw, []byte(retailCSV), 0o644))
	cfg := testConfig(t, raw)

	require.NoError(t, run(context.Background(), cfg, fixedOptions()))

	out, err := os.ReadFile(cfg.Dataset.FinalPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "StockCode,Avg_Sales,Std_Dev,Max_Sales,CV,UnitPrice,Description,Avg_Revenue,Label", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "A,10.0,0.0,10,0.0,5.0,ITEM A,50.0,1"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "B,10.0,"), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], ",2"), lines[2])

	summary, err := os.ReadFile(filepath.Join(filepath.Dir(cfg.Dataset.FinalPath), SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Run: run-1")
	assert.Contains(t, string(summary), "## Quadrants")
}

func TestRun_MissingInputIsNoop(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.csv"))

	require.NoError(t, run(context.Background(), cfg, fixedOptions()))

	_, err := os.Stat(cfg.Dataset.FinalPath)
	assert.True(t, os.IsNotExist(err), "no output expected")
}

func TestRun_OutputDirOverride(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "online_retail.csv")
	require.NoError(t, os.WriteFile(raw, []byte(retailCSV), 0o644))
	cfg := testConfig(t, raw)

	opts := fixedOptions()
	opts.OutputDir = t.TempDir()
	require.NoError(t, run(context.Background(), cfg, opts))

	_, err := os.Stat(filepath.Join(opts.OutputDir, SummaryFile))
	assert.NoError(t, err)
}

func TestRun_BlankCellsFilteredUnderStrict(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "online_retail.csv")
	body := retailCSV +
		"536369,C,ITEM C,,2/3/2011 9:30,5,17850,United Kingdom\n" +
		"536370,D,ITEM D,4,2/3/2011 9:30,,17850,United Kingdom\n"
	require.NoError(t, os.WriteFile(raw, []byte(body), 0o644))
	cfg := testConfig(t, raw)

	require.NoError(t, run(context.Background(), cfg, fixedOptions()))

	out, err := os.ReadFile(cfg.Dataset.FinalPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines, 3, "rows with blank quantity or price are filtered, not fatal")
}

func TestRun_MalformedRowStrict(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "online_retail.csv")
	body := retailCSV + "536369,C,ITEM C,lots,2/3/2011 9:30,5,17850,United Kingdom\n"
	require.NoError(t, os.WriteFile(raw, []byte(body), 0o644))
	cfg := testConfig(t, raw)

	err := run(context.Background(), cfg, fixedOptions())
	assert.Error(t, err)

	cfg.Dataset.MalformedRows = config.MalformedSkip
	require.NoError(t, run(context.Background(), cfg, fixedOptions()))
}
