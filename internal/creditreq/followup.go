package creditreq

import (
	"fmt"
	"time"
)

// FollowupStaleDays triggers a follow-up when a ticket has gone this many
// days without a status update.
const FollowupStaleDays = 20

// ConsoleWindow returns the default console date range: the first day of the
// month three months back through today.
func ConsoleWindow(now time.Time) (time.Time, time.Time) {
	start := now.AddDate(0, -3, 0)
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, end
}

// FollowupSummary is the per-record console row.
type FollowupSummary struct {
	Key             string    `json:"Record ID"`
	TicketNumber    string    `json:"Ticket Number"`
	RequestedBy     string    `json:"Requested By"`
	SalesRep        string    `json:"Sales Rep"`
	IssueType       string    `json:"Issue Type"`
	RequestDate     time.Time `json:"request_dt"`
	LastUpdate      time.Time `json:"status_last_update_dt"`
	LastMessage     string    `json:"status_last_msg"`
	State           string    `json:"status_state"`
	DaysOpen        int       `json:"days_open"`
	DaysSinceUpdate int       `json:"days_since_update"`
	RTNCRNumber     string    `json:"RTN_CR_No"`
	HasCR           bool      `json:"has_cr_number"`
	NeedsFollowup   bool      `json:"needs_followup"`
	MessageSubject  string    `json:"message_subject"`
	MessageBody     string    `json:"message_body"`
}

// Summarize builds the console row for one record. ok is false when the
// record carries no parseable request date and cannot be aged.
func Summarize(key string, rec Record, now time.Time) (FollowupSummary, bool) {
	reqDate, ok := ParseDate(rec.Date)
	if !ok {
		return FollowupSummary{}, false
	}
	last, stamped := LastStatusEntry(rec.Status)
	lastUpdate := last.At
	if !stamped || lastUpdate.IsZero() {
		lastUpdate = reqDate
	}
	s := FollowupSummary{
		Key:             key,
		TicketNumber:    rec.TicketNumber,
		RequestedBy:     rec.RequestedBy,
		SalesRep:        rec.SalesRep,
		IssueType:       rec.IssueType,
		RequestDate:     reqDate,
		LastUpdate:      lastUpdate,
		LastMessage:     last.Text,
		State:           ClassifyState(rec.Status, last.Text),
		DaysOpen:        int(now.Sub(reqDate).Hours() / 24),
		DaysSinceUpdate: int(now.Sub(lastUpdate).Hours() / 24),
		RTNCRNumber:     rec.RTNCRNumber,
		HasCR:           rec.HasCR(),
	}
	// Unknown state with a CR on file is the one excused combination.
	s.NeedsFollowup = (!s.HasCR || s.DaysSinceUpdate >= FollowupStaleDays) &&
		!(s.State == StateUnknown && s.HasCR)
	s.MessageSubject, s.MessageBody = ComposeFollowupMessage(s)
	return s, true
}

func fmtDay(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02 15:04")
}

// ComposeFollowupMessage renders the subject/body for a console row. Three
// templates: no-action (Unknown but CR on file), resolved, and follow-up.
func ComposeFollowupMessage(s FollowupSummary) (string, string) {
	if s.State == StateUnknown && s.HasCR {
		subject := fmt.Sprintf("[No action] Ticket %s has CR on file", s.TicketNumber)
		body := fmt.Sprintf(
			"Ticket %s (Record %s) shows state Unknown but has a CR number (%s).\n\n"+
				"- Issue Type: %s\n- Opened: %s\n- Last update: %s (days since: %d)\n\n"+
				"No follow-up required.",
			s.TicketNumber, s.Key, s.RTNCRNumber,
			s.IssueType, fmtDay(s.RequestDate), fmtDay(s.LastUpdate), s.DaysSinceUpdate)
		return subject, body
	}

	if s.HasCR || s.State == StateApproved || s.State == StateResolved || s.State == StateDenied {
		cr := s.RTNCRNumber
		if cr == "" {
			cr = "N/A"
		}
		subject := fmt.Sprintf("[Resolved] Ticket %s is already closed or processed", s.TicketNumber)
		body := fmt.Sprintf(
			"Ticket %s (Record %s) is marked as %s and has a CR number (%s).\n\n"+
				"- Issue Type: %s\n- Last update: %s\n- Closed days ago: %d\n\n"+
				"No further follow-up needed unless an exception arises.",
			s.TicketNumber, s.Key, s.State, cr,
			s.IssueType, fmtDay(s.LastUpdate), s.DaysSinceUpdate)
		return subject, body
	}

	var reasons []string
	if !s.HasCR {
		reasons = append(reasons, "missing CR number")
	}
	if s.DaysSinceUpdate >= FollowupStaleDays {
		reasons = append(reasons, fmt.Sprintf("%d days without update", s.DaysSinceUpdate))
	}
	reason := "follow-up"
	if len(reasons) == 1 {
		reason = reasons[0]
	} else if len(reasons) == 2 {
		reason = reasons[0] + " and " + reasons[1]
	}
	cr := s.RTNCRNumber
	if cr == "" {
		cr = "None"
	}
	subject := fmt.Sprintf("[Follow-up] Ticket %s – %s", s.TicketNumber, reason)
	body := fmt.Sprintf(
		"Hi team,\n\nFollowing up on ticket %s (Record %s).\n"+
			"- Issue Type: %s\n- Opened: %s (days open: %d)\n"+
			"- Last update: %s (days since: %d)\n- CR Number: %s\n- State: %s\n\n"+
			"Request: please provide a status update and CR number (if issued), or an ETA for resolution.\n\nThanks!",
		s.TicketNumber, s.Key,
		s.IssueType, fmtDay(s.RequestDate), s.DaysOpen,
		fmtDay(s.LastUpdate), s.DaysSinceUpdate, cr, s.State)
	return subject, body
}

// AgingRow is one line of the aging report.
type AgingRow struct {
	Key                string    `json:"Record ID"`
	TicketNumber       string    `json:"Ticket Number"`
	InvoiceNumber      string    `json:"Invoice Number"`
	ItemNumber         string    `json:"Item Number"`
	RequestedBy        string    `json:"Requested By"`
	SalesRep           string    `json:"Sales Rep"`
	Status             string    `json:"Status"`
	CreditRequestTotal string    `json:"Credit Request Total"`
	RTNCRNumber        string    `json:"RTN_CR_No"`
	Date               time.Time `json:"date"`
	AgeDays            int       `json:"age_days"`
	Bucket             string    `json:"bucket"`
	HasCR              bool      `json:"has_cr"`
}

// AgingBucket places an age in days into the report buckets.
func AgingBucket(age int) string {
	switch {
	case age <= 30:
		return "0-30"
	case age <= 60:
		return "31-60"
	case age <= 90:
		return "61-90"
	}
	return "90+"
}

// Age builds the aging row for one record. ok is false when the record has
// no parseable date.
func Age(key string, rec Record, now time.Time) (AgingRow, bool) {
	d, ok := ParseDate(rec.Date)
	if !ok {
		return AgingRow{}, false
	}
	age := int(now.Sub(d).Hours() / 24)
	return AgingRow{
		Key:                key,
		TicketNumber:       rec.TicketNumber,
		InvoiceNumber:      rec.InvoiceNumber,
		ItemNumber:         rec.ItemNumber,
		RequestedBy:        rec.RequestedBy,
		SalesRep:           rec.SalesRep,
		Status:             rec.Status,
		CreditRequestTotal: rec.CreditRequestTotal.StringFixed(2),
		RTNCRNumber:        rec.RTNCRNumber,
		Date:               d,
		AgeDays:            age,
		Bucket:             AgingBucket(age),
		HasCR:              rec.HasCR(),
	}, true
}
