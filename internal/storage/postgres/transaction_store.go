package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const selectTransactions = `
	SELECT seq, invoice_no, stock_code, description, quantity,
		invoice_date, unit_price::text, customer_id, country
	FROM transactions
`

// InsertBulk adds multiple transactions atomically. Fails entire batch on duplicate seq.
// Blank source cells (Transaction.Missing) are stored as NULL.
// Rows are pipelined in one round trip; unit_price is sent as text to keep decimal precision.
func (s *TransactionStore) InsertBulk(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transactions (
			seq, invoice_no, stock_code, description, quantity,
			invoice_date, unit_price, customer_id, country
		) VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, t := range txs {
		t := t
		if t.Seq <= 0 {
			return storage.ErrInvalidInput
		}
		qty, date, price := nullableValues(&t)
		batch.Queue(query,
			t.Seq, t.InvoiceNo, t.StockCode, t.Description, qty,
			date, price, t.CustomerID, t.Country,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range txs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transaction in bulk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves every transaction ordered by seq ASC.
func (s *TransactionStore) GetAll(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, selectTransactions+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByTimeRange retrieves transactions invoiced within [start, end), ordered by seq ASC.
// Undated transactions never match.
func (s *TransactionStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]domain.Transaction, error) {
	query := selectTransactions + `
		WHERE invoice_date >= $1 AND invoice_date < $2
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get transactions by time range: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// Count returns the number of stored transactions.
func (s *TransactionStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return int(n), nil
}

// nullableValues maps flagged cells to NULL.
func nullableValues(t *domain.Transaction) (qty *int64, date *time.Time, price *string) {
	if !t.Missing.Has(domain.MissingQuantity) {
		qty = &t.Quantity
	}
	if t.HasInvoiceDate() {
		d := t.InvoiceDate.UTC()
		date = &d
	}
	if !t.Missing.Has(domain.MissingUnitPrice) {
		p := t.UnitPrice.String()
		price = &p
	}
	return qty, date, price
}

// scanTransactions scans multiple rows, flagging NULL cells in Missing.
func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var result []domain.Transaction

	for rows.Next() {
		var t domain.Transaction
		var qty *int64
		var date *time.Time
		var price *string
		err := rows.Scan(
			&t.Seq, &t.InvoiceNo, &t.StockCode, &t.Description, &qty,
			&date, &price, &t.CustomerID, &t.Country,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		if qty == nil {
			t.Missing |= domain.MissingQuantity
		} else {
			t.Quantity = *qty
		}
		if date == nil {
			t.Missing |= domain.MissingInvoiceDate
		} else {
			t.InvoiceDate = date.UTC()
		}
		if price == nil {
			t.Missing |= domain.MissingUnitPrice
		} else if t.UnitPrice, err = decimal.NewFromString(*price); err != nil {
			return nil, fmt.Errorf("parse unit_price of seq %d: %w", t.Seq, err)
		}

		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return result, nil
}
