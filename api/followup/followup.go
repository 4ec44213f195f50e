package followup

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"CreditProcess/api"
	"CreditProcess/api/constants"
	"CreditProcess/internal/config"
	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/notification"
	"CreditProcess/internal/store"
)

func StartFollowupService(records store.RecordStore, mailer *notification.Mailer) {
	mux := http.NewServeMux()
	mux.HandleFunc("/followup/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Followup Service is active"))
	})

	mux.Handle("/followup/console", api.SessionMiddleware(Console(records)))
	mux.Handle("/followup/aging", api.SessionMiddleware(Aging(records)))
	mux.Handle("/followup/alert", api.SessionMiddleware(Alert(records, mailer)))

	log.Println("Followup Service started on :4143")
	err := http.ListenAndServe(":4143", mux)
	if err != nil {
		log.Fatalf("Followup Service failed: %v", err)
	}
}

func parseDay(s string) (time.Time, bool) {
	t, err := time.Parse(constants.DateFormat, s)
	return t, err == nil
}

// Console builds the follow-up console rows for the window. Defaults to
// the first day of the month three months back through today; `from`
// and `to` query params override.
func Console(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		now := time.Now()
		from, to := creditreq.ConsoleWindow(now)
		if v := r.URL.Query().Get("from"); v != "" {
			t, ok := parseDay(v)
			if !ok {
				api.RespondWithError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
				return
			}
			from = t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, ok := parseDay(v)
			if !ok {
				api.RespondWithError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
				return
			}
			to = t
		}

		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("console load: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		var rows []creditreq.FollowupSummary
		needFollowup := 0
		for key, rec := range all {
			s, ok := creditreq.Summarize(key, rec, now)
			if !ok {
				continue
			}
			if s.RequestDate.Before(from) || s.RequestDate.After(to.Add(24*time.Hour-time.Nanosecond)) {
				continue
			}
			if s.NeedsFollowup {
				needFollowup++
			}
			rows = append(rows, s)
		}

		// Follow-ups first, stalest first within each half.
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].NeedsFollowup != rows[j].NeedsFollowup {
				return rows[i].NeedsFollowup
			}
			if rows[i].DaysSinceUpdate != rows[j].DaysSinceUpdate {
				return rows[i].DaysSinceUpdate > rows[j].DaysSinceUpdate
			}
			return rows[i].Key < rows[j].Key
		})

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":        true,
			"window_from":    from.Format(constants.DateFormat),
			"window_to":      to.Format(constants.DateFormat),
			"rows":           rows,
			"needs_followup": needFollowup,
		})
	}
}

// Aging returns the aging report. `view=pending` keeps only rows with
// no CR number, `view=has_cr` the opposite; `min_age` filters by days.
func Aging(records store.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		minAge := 0
		if v := r.URL.Query().Get("min_age"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				api.RespondWithError(w, http.StatusBadRequest, "invalid min_age")
				return
			}
			minAge = n
		}
		view := r.URL.Query().Get("view")

		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("aging load: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		now := time.Now()
		var rows []creditreq.AgingRow
		buckets := map[string]int{}
		for key, rec := range all {
			row, ok := creditreq.Age(key, rec, now)
			if !ok || row.AgeDays < minAge {
				continue
			}
			switch view {
			case "pending":
				if row.HasCR {
					continue
				}
			case "has_cr":
				if !row.HasCR {
					continue
				}
			}
			buckets[row.Bucket]++
			rows = append(rows, row)
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].AgeDays != rows[j].AgeDays {
				return rows[i].AgeDays > rows[j].AgeDays
			}
			return rows[i].Key < rows[j].Key
		})

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"rows":    rows,
			"buckets": buckets,
			"count":   len(rows),
		})
	}
}

type alertRequest struct {
	ThresholdDays int  `json:"threshold_days"`
	DryRun        bool `json:"dry_run"`
}

// Alert composes the aging alert (rows at or past the threshold with no
// CR number) and mails it unless dry_run is set.
func Alert(records store.RecordStore, mailer *notification.Mailer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		var req alertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if req.ThresholdDays <= 0 {
			req.ThresholdDays = config.DefaultAgingAlertThresholdDays
		}

		all, err := records.All(r.Context())
		if err != nil {
			api.LogError("alert load: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		now := time.Now()
		var stale []creditreq.AgingRow
		for key, rec := range all {
			row, ok := creditreq.Age(key, rec, now)
			if !ok {
				continue
			}
			if row.AgeDays >= req.ThresholdDays && !row.HasCR {
				stale = append(stale, row)
			}
		}
		sort.Slice(stale, func(i, j int) bool { return stale[i].AgeDays > stale[j].AgeDays })

		subject := fmt.Sprintf("Credit aging alert: %d requests at %d+ days", len(stale), req.ThresholdDays)
		body := alertBody(stale)

		sent := false
		if !req.DryRun && len(stale) > 0 {
			if mailer == nil || !mailer.Configured() {
				api.RespondWithError(w, http.StatusServiceUnavailable, "SMTP notifier is not configured")
				return
			}
			if err := mailer.Send(subject, body); err != nil {
				api.LogError("alert send: %v", err)
				api.RespondWithError(w, http.StatusBadGateway, "failed to send alert email")
				return
			}
			sent = true
		}

		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"sent":      sent,
			"dry_run":   req.DryRun,
			"subject":   subject,
			"body":      body,
			"row_count": len(stale),
			"rows":      stale,
		})
	}
}

func alertBody(rows []creditreq.AgingRow) string {
	var b strings.Builder
	b.WriteString("<h3>Credit requests past the aging threshold</h3>")
	b.WriteString("<table border=\"1\" cellpadding=\"4\"><tr><th>Ticket</th><th>Invoice</th><th>Item</th><th>Age (days)</th><th>Bucket</th><th>Total</th></tr>")
	for _, row := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			row.TicketNumber, row.InvoiceNumber, row.ItemNumber, row.AgeDays, row.Bucket, row.CreditRequestTotal)
	}
	b.WriteString("</table>")
	return b.String()
}
