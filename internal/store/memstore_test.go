package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CreditProcess/internal/creditreq"
)

func TestMemStoreCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	key, err := m.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100", TicketNumber: "T-1"})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	rec, err := m.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "INV-01", rec.InvoiceNumber)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.Update(ctx, key, map[string]interface{}{"RTN_CR_No": "CR-5", "Status": "updated"})
	require.NoError(t, err)
	rec, err = m.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "CR-5", rec.RTNCRNumber)
	assert.Equal(t, "updated", rec.Status)

	assert.ErrorIs(t, m.Update(ctx, "missing", map[string]interface{}{"Status": "x"}), ErrNotFound)

	require.NoError(t, m.Delete(ctx, key))
	_, err = m.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	// Deleting an absent key is not an error.
	assert.NoError(t, m.Delete(ctx, key))
}

func TestMemStorePairsSkipTaxRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	_, err := m.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"})
	require.NoError(t, err)
	_, err = m.Push(ctx, creditreq.Record{InvoiceNumber: "INV-02", IssueType: "Tax"})
	require.NoError(t, err)

	pairs, err := m.Pairs(ctx)
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
	_, ok := pairs[creditreq.Pair{Invoice: "INV-01", Item: "100"}]
	assert.True(t, ok)
}

func TestMemStoreAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	key, err := m.Push(ctx, creditreq.Record{InvoiceNumber: "INV-01", ItemNumber: "100"})
	require.NoError(t, err)

	all, err := m.All(ctx)
	require.NoError(t, err)
	delete(all, key)

	_, err = m.Get(ctx, key)
	assert.NoError(t, err)
}
