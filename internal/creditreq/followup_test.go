package creditreq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 13, 0, 0, 0, time.UTC)
	from, to := ConsoleWindow(now)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), to)
}

func TestAgingBucket(t *testing.T) {
	assert.Equal(t, "0-30", AgingBucket(0))
	assert.Equal(t, "0-30", AgingBucket(30))
	assert.Equal(t, "31-60", AgingBucket(31))
	assert.Equal(t, "61-90", AgingBucket(90))
	assert.Equal(t, "90+", AgingBucket(91))
}

func TestSummarizeNeedsFollowup(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// No CR, fresh update: still needs follow-up because the CR is missing.
	rec := Record{
		Date:   "2026-03-10",
		Status: "[2026-03-14 09:00:00] Update: pending review",
	}
	s, ok := Summarize("k1", rec, now)
	require.True(t, ok)
	assert.True(t, s.NeedsFollowup)
	assert.Equal(t, StateInProcess, s.State)

	// CR on file and recently updated: no follow-up.
	rec.RTNCRNumber = "CR-9"
	s, ok = Summarize("k1", rec, now)
	require.True(t, ok)
	assert.False(t, s.NeedsFollowup)

	// CR on file but stale: follow-up again.
	rec.Status = "[2026-01-02 09:00:00] Update: pending review"
	s, ok = Summarize("k1", rec, now)
	require.True(t, ok)
	assert.True(t, s.NeedsFollowup)

	// Unknown state with a CR is the excused combination, even when stale.
	rec.Status = ""
	s, ok = Summarize("k1", rec, now)
	require.True(t, ok)
	assert.Equal(t, StateUnknown, s.State)
	assert.False(t, s.NeedsFollowup)
}

func TestSummarizeUnparseableDate(t *testing.T) {
	_, ok := Summarize("k1", Record{Date: "garbage"}, time.Now())
	assert.False(t, ok)
}

func TestSummarizeFallsBackToRequestDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rec := Record{Date: "2026-03-01", Status: "legacy free text"}
	s, ok := Summarize("k1", rec, now)
	require.True(t, ok)
	assert.Equal(t, s.RequestDate, s.LastUpdate)
	assert.Equal(t, 14, s.DaysSinceUpdate)
	assert.Equal(t, "legacy free text", s.LastMessage)
}

func TestComposeFollowupMessageTemplates(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	rec := Record{Date: "2026-01-05", TicketNumber: "T-1"}
	s, _ := Summarize("k1", rec, now)
	assert.Contains(t, s.MessageSubject, "[Follow-up]")
	assert.Contains(t, s.MessageSubject, "missing CR number")
	assert.Contains(t, s.MessageBody, "T-1")

	rec.Status = "[2026-03-14 09:00:00] Update: credit issued"
	rec.RTNCRNumber = "CR-9"
	s, _ = Summarize("k1", rec, now)
	assert.Contains(t, s.MessageSubject, "[Resolved]")

	rec.Status = ""
	s, _ = Summarize("k1", rec, now)
	assert.Contains(t, s.MessageSubject, "[No action]")
}

func TestAge(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rec := Record{Date: "2026-02-01", TicketNumber: "T-1", RTNCRNumber: "CR-9"}
	row, ok := Age("k1", rec, now)
	require.True(t, ok)
	assert.Equal(t, 42, row.AgeDays)
	assert.Equal(t, "31-60", row.Bucket)
	assert.True(t, row.HasCR)

	_, ok = Age("k1", Record{Date: ""}, now)
	assert.False(t, ok)
}
