package creditreq

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFixture() map[string]Record {
	return map[string]Record{
		"key-b": {Date: "2026-02-01", InvoiceNumber: "INV-02", ItemNumber: "200", TicketNumber: "T-2",
			UnitPrice: decimal.RequireFromString("5.5")},
		"key-a": {Date: "2026-01-01", InvoiceNumber: "INV-01", ItemNumber: "100", TicketNumber: "T-1"},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportFixture()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	// Rows come out in key order, store key in the Record ID column.
	assert.Equal(t, "INV-01", rows[1][4])
	assert.Equal(t, "key-a", rows[1][18])
	assert.Equal(t, "5.50", rows[2][7])
}

func TestBuildWorkbookRoundTrips(t *testing.T) {
	xl, err := BuildWorkbook(exportFixture())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, xl.Write(&buf))

	raw, err := ParseWorkbook(buf.Bytes(), "backup.xlsx")
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, Columns, raw[0][:len(Columns)])
	assert.Equal(t, "INV-01", raw[1][4])
}
