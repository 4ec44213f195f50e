package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"CreditProcess/internal/creditreq"
	"CreditProcess/internal/logger"
	"CreditProcess/internal/notification"
	"CreditProcess/internal/reminders"
	"CreditProcess/internal/store"
)

// cronRunner is a thin wrapper over cron so the service can stop every
// job with one call.
type cronRunner struct {
	c *cron.Cron
}

func newCronRunner(loc *time.Location) (*cronRunner, error) {
	return &cronRunner{c: cron.New(cron.WithLocation(loc))}, nil
}

func (r *cronRunner) add(spec string, fn func()) error {
	_, err := r.c.AddFunc(spec, fn)
	return err
}

func (r *cronRunner) start() { r.c.Start() }

func (r *cronRunner) stop() {
	ctx := r.c.Stop()
	<-ctx.Done()
}

// ReminderSweep finds reminders whose due time has passed and raises
// each one exactly once: an audit line always, a mail when SMTP is
// configured. Reminders stay pending until someone dismisses them.
type ReminderSweep struct {
	store  *reminders.Store
	mailer *notification.Mailer

	mu       sync.Mutex
	notified map[int64]struct{}
}

func NewReminderSweep(store *reminders.Store, mailer *notification.Mailer) *ReminderSweep {
	return &ReminderSweep{
		store:    store,
		mailer:   mailer,
		notified: make(map[int64]struct{}),
	}
}

func (j *ReminderSweep) Run(ctx context.Context) error {
	due, err := j.store.Due(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("fetch due reminders: %w", err)
	}

	j.mu.Lock()
	fresh := make([]reminders.Reminder, 0, len(due))
	live := make(map[int64]struct{}, len(due))
	for _, r := range due {
		live[r.ID] = struct{}{}
		if _, seen := j.notified[r.ID]; !seen {
			fresh = append(fresh, r)
			j.notified[r.ID] = struct{}{}
		}
	}
	// Drop dismissed/snoozed ids so they re-fire if they come due again.
	for id := range j.notified {
		if _, ok := live[id]; !ok {
			delete(j.notified, id)
		}
	}
	j.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	for _, r := range fresh {
		logger.Auditf("Reminder due: ticket %s (%s), was due %s", r.Ticket, r.Note, r.DueAt.Format("2006-01-02 15:04"))
	}

	if j.mailer != nil && j.mailer.Configured() {
		var body strings.Builder
		body.WriteString("<h3>Reminders due</h3><ul>")
		for _, r := range fresh {
			fmt.Fprintf(&body, "<li><b>%s</b> — %s (due %s)</li>", r.Ticket, r.Note, r.DueAt.Format("2006-01-02 15:04"))
		}
		body.WriteString("</ul>")
		subject := fmt.Sprintf("Credit reminders due: %d", len(fresh))
		if err := j.mailer.Send(subject, body.String()); err != nil {
			return fmt.Errorf("send reminder mail: %w", err)
		}
	}
	return nil
}

// AgingAlertJob mails a table of every pending credit request at or past
// the aging threshold. Store reads go through a circuit breaker so a
// flapping backend does not hammer the scheduler.
type AgingAlertJob struct {
	records   store.RecordStore
	mailer    *notification.Mailer
	threshold int
	breaker   *CircuitBreaker
}

func NewAgingAlertJob(records store.RecordStore, mailer *notification.Mailer, threshold int) *AgingAlertJob {
	return &AgingAlertJob{
		records:   records,
		mailer:    mailer,
		threshold: threshold,
		breaker:   NewCircuitBreaker(3, 60*time.Second),
	}
}

func (j *AgingAlertJob) Run(ctx context.Context) error {
	var all map[string]creditreq.Record
	err := j.breaker.Execute(func() error {
		var e error
		all, e = j.records.All(ctx)
		return e
	})
	if err != nil {
		return fmt.Errorf("load records for aging alert: %w", err)
	}

	now := time.Now()
	var stale []creditreq.AgingRow
	for key, rec := range all {
		row, ok := creditreq.Age(key, rec, now)
		if !ok {
			continue
		}
		if row.AgeDays >= j.threshold && !row.HasCR {
			stale = append(stale, row)
		}
	}
	if len(stale) == 0 {
		logger.Audit("Aging alert: nothing at or past threshold")
		return nil
	}
	sort.Slice(stale, func(i, k int) bool { return stale[i].AgeDays > stale[k].AgeDays })

	var body strings.Builder
	body.WriteString("<h3>Credit requests past the aging threshold</h3>")
	body.WriteString("<table border=\"1\" cellpadding=\"4\"><tr><th>Ticket</th><th>Invoice</th><th>Item</th><th>Age (days)</th><th>Bucket</th><th>Total</th></tr>")
	for _, row := range stale {
		fmt.Fprintf(&body, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			row.TicketNumber, row.InvoiceNumber, row.ItemNumber, row.AgeDays, row.Bucket, row.CreditRequestTotal)
	}
	body.WriteString("</table>")

	subject := fmt.Sprintf("Credit aging alert: %d requests at %d+ days", len(stale), j.threshold)
	logger.Auditf("Aging alert: %d requests at %d+ days without a CR number", len(stale), j.threshold)
	if j.mailer != nil && j.mailer.Configured() {
		if err := j.mailer.Send(subject, body.String()); err != nil {
			return fmt.Errorf("send aging alert mail: %w", err)
		}
	}
	return nil
}

// FollowupScan walks the console window once a day and logs how many
// requests need a follow-up, so the morning audit log carries the count
// before anyone opens the console.
type FollowupScan struct {
	records store.RecordStore
}

func NewFollowupScan(records store.RecordStore) *FollowupScan {
	return &FollowupScan{records: records}
}

func (j *FollowupScan) Run(ctx context.Context) error {
	all, err := j.records.All(ctx)
	if err != nil {
		return fmt.Errorf("load records for follow-up scan: %w", err)
	}

	now := time.Now()
	inWindow, needFollowup := 0, 0
	for key, rec := range all {
		summary, ok := creditreq.Summarize(key, rec, now)
		if !ok {
			continue
		}
		inWindow++
		if summary.NeedsFollowup {
			needFollowup++
		}
	}
	logger.Auditf("Follow-up scan: %d of %d in-window requests need a follow-up", needFollowup, inWindow)
	return nil
}
