package creditreq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAndAppendStatus(t *testing.T) {
	at := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	entry := FormatStatusEntry(at, "Update", "waiting on billing")
	assert.Equal(t, "[2026-02-10 09:30:00] Update: waiting on billing", entry)

	assert.Equal(t, entry, AppendStatus("", entry))
	assert.Equal(t, entry, AppendStatus("   ", entry))

	history := AppendStatus("[2026-02-01 08:00:00] Update: opened", entry)
	assert.Equal(t, "[2026-02-01 08:00:00] Update: opened\n"+entry, history)
}

func TestParseStatusHistory(t *testing.T) {
	history := "[2026-02-01 08:00:00] Update: opened\n[2026-02-10 09:30:00] In Process: waiting on billing"
	entries := ParseStatusHistory(history)
	assert.Len(t, entries, 2)
	assert.Equal(t, "Update: opened", entries[0].Text)
	assert.Equal(t, "In Process: waiting on billing", entries[1].Text)
	assert.True(t, entries[1].At.After(entries[0].At))

	assert.Empty(t, ParseStatusHistory("free text with no stamp"))
}

func TestLastStatusEntry(t *testing.T) {
	history := "[2026-02-01 08:00:00] Update: opened\n[2026-02-10 09:30:00] Update: WIP: waiting on CR"
	last, ok := LastStatusEntry(history)
	assert.True(t, ok)
	assert.Equal(t, "waiting on CR", last.Text)
	assert.Equal(t, 10, last.At.Day())

	// Unstamped history still surfaces its text.
	last, ok = LastStatusEntry("legacy free text")
	assert.False(t, ok)
	assert.Equal(t, "legacy free text", last.Text)
}

func TestClassifyState(t *testing.T) {
	assert.Equal(t, StateDenied, ClassifyState("no credit warranted", ""))
	assert.Equal(t, StateApproved, ClassifyState("", "credit issued"))
	assert.Equal(t, StateResolved, ClassifyState("closing out", ""))
	assert.Equal(t, StateInProcess, ClassifyState("", "pending review"))
	assert.Equal(t, StateUnknown, ClassifyState("", ""))

	// Denied wins over approved when both appear.
	assert.Equal(t, StateDenied, ClassifyState("submitted then rejected", ""))
}

func TestValidStatusLabel(t *testing.T) {
	assert.True(t, ValidStatusLabel("Update"))
	assert.True(t, ValidStatusLabel("Submitted to Billing"))
	assert.False(t, ValidStatusLabel("update"))
	assert.False(t, ValidStatusLabel("Whatever"))
}
