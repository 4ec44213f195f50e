package creditreq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairNormalization(t *testing.T) {
	p := NewPair(" inv-01 ", "8321.0")
	assert.Equal(t, "INV-01", p.Invoice)
	assert.Equal(t, "8321", p.Item)
	assert.False(t, p.Empty())
	assert.Equal(t, "INV-01|8321", p.String())

	assert.True(t, NewPair("", "8321").Empty())
	assert.True(t, NewPair("INV-01", "").Empty())
}

func TestTaxRowsHaveNoPair(t *testing.T) {
	rec := Record{IssueType: "tax", InvoiceNumber: "INV-01", ItemNumber: "8321"}
	assert.True(t, rec.IsTax())
	assert.True(t, rec.Pair().Empty())

	rec.IssueType = "Pricing"
	assert.False(t, rec.IsTax())
	assert.Equal(t, Pair{Invoice: "INV-01", Item: "8321"}, rec.Pair())
}

func TestCreditTypeCode(t *testing.T) {
	assert.Equal(t, "RTNCM", CreditTypeCode("Credit Memo"))
	assert.Equal(t, "RTNINT", CreditTypeCode(" Internal "))
	assert.Equal(t, "", CreditTypeCode("Other"))
}

func TestTicketMetaValidate(t *testing.T) {
	m := TicketMeta{TicketNumber: " t-100 ", TicketDate: "03/05/2026"}
	assert.NoError(t, m.Validate())
	assert.Equal(t, "T-100", m.TicketNumber)
	assert.Equal(t, "2026-03-05", m.TicketDate)

	m = TicketMeta{}
	assert.Error(t, m.Validate())

	m = TicketMeta{TicketNumber: "T-100", TicketDate: "nope"}
	assert.Error(t, m.Validate())
}

func TestNewRecordID(t *testing.T) {
	at := time.Date(2026, 3, 5, 14, 30, 45, 0, time.UTC)
	assert.Equal(t, "T-100_20260305143045_0", NewRecordID("t-100", at, 0))
	assert.Equal(t, "T-100_20260305143045_7", NewRecordID("T-100", at, 7))
}

func TestTicketMetaApply(t *testing.T) {
	at := time.Date(2026, 3, 5, 14, 30, 45, 0, time.UTC)
	m := TicketMeta{
		TicketNumber: "T-100",
		TicketDate:   "2026-03-01",
		StatusNote:   "opened",
		SalesRep:     "JD",
		CreditType:   "Credit Memo",
	}
	rec := Record{InvoiceNumber: "inv-01", ItemNumber: "8321.0", IssueType: "Pricing"}
	m.Apply(&rec, at, 2)

	assert.Equal(t, "T-100", rec.TicketNumber)
	assert.Equal(t, "2026-03-01", rec.Date)
	assert.Equal(t, "opened", rec.Status)
	assert.Equal(t, "JD", rec.SalesRep)
	assert.Equal(t, "RTNCM", rec.TypeCode)
	assert.Equal(t, "INV-01", rec.InvoiceNumber)
	assert.Equal(t, "8321", rec.ItemNumber)
	assert.Equal(t, "T-100_20260305143045_2", rec.RecordID)
}

func TestTicketMetaApplyTaxRow(t *testing.T) {
	at := time.Date(2026, 3, 5, 14, 30, 45, 0, time.UTC)
	m := TicketMeta{TicketNumber: "T-100"}
	rec := Record{InvoiceNumber: "INV-01", ItemNumber: "8321", IssueType: "Tax"}
	m.Apply(&rec, at, 0)

	// Tax rows carry no item number and default the date to submit day.
	assert.Equal(t, "", rec.ItemNumber)
	assert.Equal(t, "2026-03-05", rec.Date)
}
