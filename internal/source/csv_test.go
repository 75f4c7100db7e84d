package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-demand-lab/internal/domain"
)

const retailHeader = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n"

func loadString(t *testing.T, body string, opts Options) ([]string, LoadReport, error) {
	t.Helper()
	txs, report, err := LoadCSV(context.Background(), strings.NewReader(body), opts)
	codes := make([]string, len(txs))
	for i, tx := range txs {
		codes[i] = tx.StockCode
	}
	return codes, report, err
}

func TestLoadCSV_ParsesRetailRows(t *testing.T) {
	body := retailHeader +
		`536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,12/1/2010 8:26,2.55,17850,United Kingdom` + "\n" +
		`536366,22633,"HAND WARMER, UNION JACK",6,12/1/2010 8:28,1.85,17850.0,United Kingdom` + "\n" +
		`C536379,D,Discount,-1,12/1/2010 9:41,27.50,,United Kingdom` + "\n"

	txs, report, err := LoadCSV(context.Background(), strings.NewReader(body), Options{Encoding: EncodingUTF8})
	require.NoError(t, err)
	require.Len(t, txs, 3)

	first := txs[0]
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "536365", *first.InvoiceNo)
	assert.Equal(t, "85123A", first.StockCode)
	assert.Equal(t, "WHITE HANGING HEART T-LIGHT HOLDER", *first.Description)
	assert.Equal(t, int64(6), first.Quantity)
	assert.Equal(t, time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), first.InvoiceDate)
	assert.True(t, decimal.RequireFromString("2.55").Equal(first.UnitPrice))
	assert.Equal(t, "17850", *first.CustomerID)
	assert.Equal(t, "United Kingdom", *first.Country)

	assert.Equal(t, "HAND WARMER, UNION JACK", *txs[1].Description)
	assert.Equal(t, "17850", *txs[1].CustomerID, "float artifact stripped")

	assert.Nil(t, txs[2].CustomerID)
	assert.Equal(t, int64(-1), txs[2].Quantity)

	assert.Equal(t, LoadReport{Format: "csv", Rows: 3, Loaded: 3}, report)
}

func TestLoadCSV_DecodesLatin1(t *testing.T) {
	// 0xE9 is "é" in ISO-8859-1 and invalid on its own in UTF-8.
	body := []byte(retailHeader + "1,A,CAF\xe9 MUG,1,2011-01-05 10:00:00,1.00,1,France\n")

	txs, _, err := LoadCSV(context.Background(), strings.NewReader(string(body)), Options{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "CAFé MUG", *txs[0].Description)
}

func TestLoadCSV_OnlineRetailIIHeader(t *testing.T) {
	body := "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country\n" +
		"489434,85048,LED BOX,12,2009-12-01 07:45:00,6.95,13085.0,United Kingdom\n"

	txs, _, err := LoadCSV(context.Background(), strings.NewReader(body), Options{Encoding: EncodingUTF8})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "489434", *txs[0].InvoiceNo)
	assert.Equal(t, "13085", *txs[0].CustomerID)
	assert.True(t, decimal.RequireFromString("6.95").Equal(txs[0].UnitPrice))
}

func TestLoadCSV_OptionalColumnsMayBeAbsent(t *testing.T) {
	body := "StockCode,Quantity,InvoiceDate,UnitPrice,CustomerID\nA,2,1/3/2011 10:00,1.5,9\n"

	txs, _, err := LoadCSV(context.Background(), strings.NewReader(body), Options{Encoding: EncodingUTF8})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].Description)
	assert.Nil(t, txs[0].InvoiceNo)
	assert.Nil(t, txs[0].Country)
}

func TestLoadCSV_MissingRequiredColumn(t *testing.T) {
	body := "StockCode,Quantity,InvoiceDate,CustomerID\nA,2,1/3/2011 10:00,9\n"

	_, _, err := loadString(t, body, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), ColUnitPrice)
}

func TestLoadCSV_Empty(t *testing.T) {
	_, _, err := loadString(t, "", Options{})
	assert.True(t, errors.Is(err, ErrEmptyInput))
}

const malformedBody = retailHeader +
	"1,A,ok,2,1/3/2011 10:00,1.5,9,UK\n" +
	"2,B,bad qty,two,1/3/2011 10:00,1.5,9,UK\n" +
	"3,C,bad date,2,yesterday,1.5,9,UK\n" +
	"4,D,short row,2\n" +
	"5,E,bad price,2,1/3/2011 10:00,cheap,9,UK\n" +
	"6,F,ok,3,1/4/2011 10:00,2,9,UK\n"

func TestLoadCSV_StrictPolicyAbortsWithRow(t *testing.T) {
	_, _, err := loadString(t, malformedBody, Options{Policy: PolicyStrict})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRow))

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, int64(2), rowErr.Row)
	assert.Equal(t, ColQuantity, rowErr.Column)
}

func TestLoadCSV_SkipPolicyCountsRows(t *testing.T) {
	codes, report, err := loadString(t, malformedBody, Options{Policy: PolicySkip})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "F"}, codes)
	assert.Equal(t, 6, report.Rows)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 4, report.Skipped)
	require.Len(t, report.Errors, 4)

	assert.Equal(t, ColQuantity, report.Errors[0].Column)
	assert.Equal(t, ColInvoiceDate, report.Errors[1].Column)
	assert.Equal(t, int64(4), report.Errors[2].Row)
	assert.Equal(t, "", report.Errors[2].Column)
	assert.Equal(t, ColUnitPrice, report.Errors[3].Column)
}

func TestLoadCSV_BlankCellsAreMissingNotMalformed(t *testing.T) {
	body := retailHeader +
		"1,A,no qty,,1/3/2011 10:00,1.5,9,UK\n" +
		"2,B,no price,2,1/3/2011 10:00,,9,UK\n" +
		"3,C,no date,2,,1.5,9,UK\n" +
		"4,D,ok,2,1/3/2011 10:00,1.5,9,UK\n"

	txs, report, err := LoadCSV(context.Background(), strings.NewReader(body), Options{Encoding: EncodingUTF8})
	require.NoError(t, err)
	require.Len(t, txs, 4)
	assert.Equal(t, 0, report.Skipped)

	assert.Equal(t, domain.MissingQuantity, txs[0].Missing)
	assert.Equal(t, domain.MissingUnitPrice, txs[1].Missing)
	assert.Equal(t, domain.MissingInvoiceDate, txs[2].Missing)
	assert.False(t, txs[2].HasInvoiceDate())
	assert.Zero(t, txs[3].Missing)
}

func TestLoadCSV_TextKeptVerbatim(t *testing.T) {
	body := retailHeader + `1,A ,"  LEAD SPACE ", 6 ,1/3/2011 10:00, 2.5 , 17850.0 ,UK` + "\n"

	txs, _, err := LoadCSV(context.Background(), strings.NewReader(body), Options{Encoding: EncodingUTF8})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, "A ", txs[0].StockCode)
	assert.Equal(t, "  LEAD SPACE ", *txs[0].Description)
	assert.Equal(t, int64(6), txs[0].Quantity)
	assert.True(t, decimal.RequireFromString("2.5").Equal(txs[0].UnitPrice))
	assert.Equal(t, "17850", *txs[0].CustomerID)
}

func TestLoadCSV_SeqFollowsSourceRows(t *testing.T) {
	txs, _, err := LoadCSV(context.Background(), strings.NewReader(malformedBody), Options{Policy: PolicySkip})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(1), txs[0].Seq)
	assert.Equal(t, int64(6), txs[1].Seq)
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "online_retail.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(retailHeader+"1,A,x,1,1/3/2011 10:00,1,9,UK\n"), 0o600))

	txs, report, err := Load(context.Background(), csvPath, Options{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, "csv", report.Format)

	_, _, err = Load(context.Background(), filepath.Join(dir, "data.parquet"), Options{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, _, err = Load(context.Background(), filepath.Join(dir, "missing.csv"), Options{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseInvoiceDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"12/1/2010 8:26", time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)},
		{"12/9/11 12:50", time.Date(2011, 12, 9, 12, 50, 0, 0, time.UTC)},
		{"2011-12-09 12:50:00", time.Date(2011, 12, 9, 12, 50, 0, 0, time.UTC)},
		{"2011-12-09T12:50:00", time.Date(2011, 12, 9, 12, 50, 0, 0, time.UTC)},
		{"40513.5", time.Date(2010, 12, 1, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseInvoiceDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := parseInvoiceDate("")
	assert.Error(t, err)
	_, err = parseInvoiceDate("not a date")
	assert.Error(t, err)
}

func TestParseQuantity(t *testing.T) {
	n, err := parseQuantity("6.0")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	_, err = parseQuantity("6.5")
	assert.Error(t, err)
}
