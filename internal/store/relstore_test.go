package store

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CreditProcess/internal/creditreq"
)

func newTestRelStore(t *testing.T) *RelStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewRelStore(db, DriverSQLite)
	require.NoError(t, err)
	return s
}

func TestRelStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRelStore(t)

	rec := creditreq.Record{
		Date:               "2026-03-01",
		CreditType:         "Credit Memo",
		IssueType:          "Pricing",
		InvoiceNumber:      "INV-01",
		ItemNumber:         "100",
		Quantity:           2,
		UnitPrice:          decimal.RequireFromString("10.50"),
		CreditRequestTotal: decimal.RequireFromString("21.00"),
		TicketNumber:       "T-1",
		RecordID:           "T-1_20260301120000_0",
	}
	key, err := s.Push(ctx, rec)
	require.NoError(t, err)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "INV-01", got.InvoiceNumber)
	assert.True(t, got.UnitPrice.Equal(rec.UnitPrice))
	assert.Equal(t, rec.RecordID, got.RecordID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelStorePairIndexRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestRelStore(t)

	_, err := s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"})
	require.NoError(t, err)

	_, err = s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100", TicketNumber: "T-2"})
	assert.ErrorIs(t, err, ErrDuplicatePair)
}

func TestRelStoreTaxRowsBypassPairIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestRelStore(t)

	// Tax rows store an empty item number; the partial index ignores them.
	_, err := s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", IssueType: "Tax"})
	require.NoError(t, err)
	_, err = s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", IssueType: "Tax"})
	require.NoError(t, err)

	pairs, err := s.Pairs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestRelStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestRelStore(t)

	key, err := s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, key, map[string]interface{}{
		"RTN_CR_No": "CR-7",
		"Status":    "[2026-03-02 09:00:00] Update: CR issued",
	}))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "CR-7", got.RTNCRNumber)

	assert.Error(t, s.Update(ctx, key, map[string]interface{}{"no_such_column": 1}))
	assert.ErrorIs(t, s.Update(ctx, "missing", map[string]interface{}{"Status": "x"}), ErrNotFound)
	assert.NoError(t, s.Update(ctx, key, nil))
}

func TestRelStoreDeleteFreesPair(t *testing.T) {
	ctx := context.Background()
	s := newTestRelStore(t)

	key, err := s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"})
	assert.NoError(t, err)
}

func TestRelStoreAll(t *testing.T) {
	ctx := context.Background()
	s := newTestRelStore(t)

	k1, err := s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"})
	require.NoError(t, err)
	k2, err := s.Push(ctx, creditreq.Record{InvoiceNumber: "INV-02", ItemNumber: "200"})
	require.NoError(t, err)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "INV-01", all[k1].InvoiceNumber)
	assert.Equal(t, "INV-02", all[k2].InvoiceNumber)
}

func TestRebind(t *testing.T) {
	pg := &RelStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))

	lite := &RelStore{driver: DriverSQLite}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}
