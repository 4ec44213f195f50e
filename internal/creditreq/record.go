package creditreq

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one credit line item. The JSON names are the exact keys the
// legacy dashboards wrote to the document tree, so every backend stores
// and returns the same shape.
type Record struct {
	Date                 string          `json:"Date"`
	CreditType           string          `json:"Credit Type"`
	IssueType            string          `json:"Issue Type"`
	CustomerNumber       string          `json:"Customer Number"`
	InvoiceNumber        string          `json:"Invoice Number"`
	ItemNumber           string          `json:"Item Number"`
	Quantity             float64         `json:"QTY"`
	UnitPrice            decimal.Decimal `json:"Unit Price"`
	ExtendedPrice        decimal.Decimal `json:"Extended Price"`
	CorrectedUnitPrice   decimal.Decimal `json:"Corrected Unit Price"`
	ExtendedCorrectPrice decimal.Decimal `json:"Extended Correct Price"`
	CreditRequestTotal   decimal.Decimal `json:"Credit Request Total"`
	RequestedBy          string          `json:"Requested By"`
	ReasonForCredit      string          `json:"Reason for Credit"`
	Status               string          `json:"Status"`
	TicketNumber         string          `json:"Ticket Number"`
	SalesRep             string          `json:"Sales Rep"`
	TypeCode             string          `json:"Type"`
	RecordID             string          `json:"Record ID"`
	RTNCRNumber          string          `json:"RTN_CR_No"`
}

// Columns is the canonical column order used by templates, exports and the
// relational schema. Keep in sync with the Record JSON tags.
var Columns = []string{
	"Date", "Credit Type", "Issue Type", "Customer Number",
	"Invoice Number", "Item Number", "QTY", "Unit Price",
	"Extended Price", "Corrected Unit Price", "Extended Correct Price",
	"Credit Request Total", "Requested By", "Reason for Credit",
	"Status", "Ticket Number", "Sales Rep", "Type", "Record ID", "RTN_CR_No",
}

// Pair is a normalized (invoice, item) combination, the sole idempotency key
// for submitted rows.
type Pair struct {
	Invoice string
	Item    string
}

func (p Pair) Empty() bool {
	return p.Invoice == "" || p.Item == ""
}

func (p Pair) String() string {
	return p.Invoice + "|" + p.Item
}

// NewPair normalizes raw invoice/item values into a Pair.
func NewPair(invoice, item string) Pair {
	return Pair{Invoice: NormalizeInvoice(invoice), Item: NormalizeItem(item)}
}

// IsTax reports whether the row is a tax line. Tax rows carry no item number
// and are exempt from pair-based dedup.
func (r *Record) IsTax() bool {
	return strings.EqualFold(strings.TrimSpace(r.IssueType), "Tax")
}

// Pair returns the dedup key for the record. Tax rows return an empty pair.
func (r *Record) Pair() Pair {
	if r.IsTax() {
		return Pair{}
	}
	return NewPair(r.InvoiceNumber, r.ItemNumber)
}

// HasCR reports whether a CR number has been filled in from billing.
func (r *Record) HasCR() bool {
	return strings.TrimSpace(r.RTNCRNumber) != ""
}

// CreditTypeCode maps the friendly credit type to the billing code stored in
// the Type field. Unknown types map to "".
func CreditTypeCode(friendly string) string {
	switch strings.TrimSpace(friendly) {
	case "Credit Memo":
		return "RTNCM"
	case "Internal":
		return "RTNINT"
	}
	return ""
}

// TicketMeta is the user-supplied batch metadata applied to every row at
// submit time.
type TicketMeta struct {
	TicketNumber string `json:"ticket_number"`
	TicketDate   string `json:"ticket_date"`
	StatusNote   string `json:"status"`
	SalesRep     string `json:"sales_rep"`
	CreditType   string `json:"credit_type"`
}

// Validate checks the required fields and normalizes the ticket date.
func (m *TicketMeta) Validate() error {
	m.TicketNumber = NormalizeTicket(m.TicketNumber)
	if m.TicketNumber == "" {
		return fmt.Errorf("ticket number is required")
	}
	if m.TicketDate != "" {
		d, err := NormalizeDate(m.TicketDate)
		if err != nil {
			return fmt.Errorf("invalid ticket date %q", m.TicketDate)
		}
		m.TicketDate = d
	}
	return nil
}

// NewRecordID builds the submit-time identifier: ticket, timestamp, position
// in batch.
func NewRecordID(ticket string, at time.Time, seq int) string {
	return fmt.Sprintf("%s_%s_%d", NormalizeTicket(ticket), at.Format("20060102150405"), seq)
}

// Apply stamps the ticket metadata onto a record and assigns its Record ID.
// seq is the number of rows submitted before this one in the batch.
func (m TicketMeta) Apply(r *Record, at time.Time, seq int) {
	r.TicketNumber = m.TicketNumber
	if m.TicketDate != "" {
		r.Date = m.TicketDate
	} else if r.Date == "" {
		r.Date = at.Format("2006-01-02")
	}
	if m.StatusNote != "" {
		r.Status = m.StatusNote
	}
	if m.SalesRep != "" {
		r.SalesRep = m.SalesRep
	}
	if m.CreditType != "" {
		r.CreditType = m.CreditType
	}
	r.TypeCode = CreditTypeCode(r.CreditType)
	r.InvoiceNumber = NormalizeInvoice(r.InvoiceNumber)
	if !r.IsTax() {
		r.ItemNumber = NormalizeItem(r.ItemNumber)
	} else {
		r.ItemNumber = ""
	}
	r.RecordID = NewRecordID(m.TicketNumber, at, seq)
}
