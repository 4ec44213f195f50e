package creditreq

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status history format: one "[YYYY-MM-DD HH:MM:SS] Label: text" entry per
// line, appended over time. Older records may hold free text with no stamp.

const StatusTimeLayout = "2006-01-02 15:04:05"

// Status labels accepted by the bulk update screen.
var StatusLabels = []string{"Update", "Credit No & Reason", "In Process", "Submitted to Billing"}

// Classified states, checked in this order.
const (
	StateDenied    = "Denied"
	StateApproved  = "Approved/Submitted"
	StateResolved  = "Resolved/Closing"
	StateInProcess = "In Process"
	StateUnknown   = "Unknown"
)

// StatusEntry is one timestamped line of a record's status history.
type StatusEntry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// FormatStatusEntry renders a new history line.
func FormatStatusEntry(at time.Time, label, text string) string {
	return fmt.Sprintf("[%s] %s: %s", at.Format(StatusTimeLayout), label, text)
}

// AppendStatus appends an entry to an existing history. Prior history is
// never truncated or reordered.
func AppendStatus(history, entry string) string {
	if strings.TrimSpace(history) == "" {
		return entry
	}
	return history + "\n" + entry
}

var statusStamp = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2})\]`)

// ParseStatusHistory splits a history blob into its timestamped entries.
// Text with no stamps yields no entries.
func ParseStatusHistory(history string) []StatusEntry {
	locs := statusStamp.FindAllStringSubmatchIndex(history, -1)
	entries := make([]StatusEntry, 0, len(locs))
	for i, loc := range locs {
		stamp := history[loc[2]:loc[3]]
		stamp = strings.Replace(stamp, "T", " ", 1)
		at, err := time.Parse(StatusTimeLayout, stamp)
		if err != nil {
			continue
		}
		end := len(history)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		entries = append(entries, StatusEntry{At: at, Text: strings.TrimSpace(history[loc[1]:end])})
	}
	return entries
}

var updatePrefix = regexp.MustCompile(`(?i)^\s*(Update:|In\s*Process:|WIP:?)+\s*`)

// LastStatusEntry returns the newest timestamped entry with the routine
// "Update:" style prefixes stripped. ok is false when the history carries no
// stamped entries; the raw text is still returned for display.
func LastStatusEntry(history string) (StatusEntry, bool) {
	entries := ParseStatusHistory(history)
	if len(entries) == 0 {
		return StatusEntry{Text: strings.TrimSpace(history)}, false
	}
	last := entries[len(entries)-1]
	last.Text = updatePrefix.ReplaceAllString(last.Text, "")
	return last, true
}

// Keyword lists from the legacy console, checked in order.
var (
	deniedWords    = []string{"denied", "no credit warranted", "rejected"}
	approvedWords  = []string{"approved", "submitted", "credit issued", "posted"}
	resolvedWords  = []string{"resolved", "closing", "closed"}
	inProcessWords = []string{"wip", "in process", "pending", "delay", "delayed"}
)

// ClassifyState maps the full status text plus the latest message onto one
// of the console states.
func ClassifyState(fullStatus, lastMsg string) string {
	text := strings.ToLower(fullStatus + " " + lastMsg)
	contains := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
	switch {
	case contains(deniedWords):
		return StateDenied
	case contains(approvedWords):
		return StateApproved
	case contains(resolvedWords):
		return StateResolved
	case contains(inProcessWords):
		return StateInProcess
	}
	return StateUnknown
}

// ValidStatusLabel reports whether label is one of the accepted options.
func ValidStatusLabel(label string) bool {
	for _, l := range StatusLabels {
		if l == label {
			return true
		}
	}
	return false
}
