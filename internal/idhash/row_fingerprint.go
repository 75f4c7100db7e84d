package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"

	"github.com/mr-tron/base58"

	"retail-demand-lab/internal/domain"
)

// ComputeRowFingerprint computes a deterministic identity for a transaction row.
// Formula: SHA256 over every data field (invoice_no, stock_code, description,
// quantity, invoice_date, unit_price, customer_id, country) plus the missing-cell
// flags, each length-prefixed with NULL distinct from empty. Seq is provenance
// and is excluded. Two blank cells compare equal; a blank and a zero do not.
// Returns base58-encoded hash.
//
// Two rows share a fingerprint exactly when they are identical on every field;
// unit prices compare by value, so 2.50 and 2.5 collide.
func ComputeRowFingerprint(t *domain.Transaction) string {
	h := sha256.New()

	writeNullable(h, t.InvoiceNo)
	writeString(h, t.StockCode)
	writeNullable(h, t.Description)
	writeInt(h, t.Quantity)
	if t.HasInvoiceDate() {
		writeInt(h, t.InvoiceDate.UnixNano())
	} else {
		writeInt(h, 0)
	}
	writeString(h, t.UnitPrice.String())
	writeNullable(h, t.CustomerID)
	writeNullable(h, t.Country)
	h.Write([]byte{byte(t.Missing)})

	return base58.Encode(h.Sum(nil))
}

func writeString(h hash.Hash, s string) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	h.Write([]byte{1})
	h.Write(lenBuf[:])
	h.Write([]byte(s))
}

func writeNullable(h hash.Hash, s *string) {
	if s == nil {
		h.Write([]byte{0})
		return
	}
	writeString(h, *s)
}

func writeInt(h hash.Hash, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}
