package reminders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"CreditProcess/internal/config"
)

var (
	// ErrNotFound is returned when a reminder id does not exist.
	ErrNotFound = errors.New("reminder not found")
	// ErrRecentDuplicate is returned when the same ticket/note pair was
	// added moments ago, which almost always means a double click.
	ErrRecentDuplicate = errors.New("identical reminder added moments ago")
	// ErrTooFarOut rejects due times beyond the two week cap.
	ErrTooFarOut = errors.New("reminder due time exceeds the maximum window")
)

// doubleAddWindow is how long an identical ticket/note pair is treated
// as a duplicate add.
const doubleAddWindow = 2 * time.Minute

// Reminder is one follow-up nudge tied to a ticket.
type Reminder struct {
	ID        int64      `json:"id"`
	Ticket    string     `json:"ticket"`
	Note      string     `json:"note"`
	DueAt     time.Time  `json:"due_at"`
	CreatedAt time.Time  `json:"created_at"`
	Done      bool       `json:"done"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
}

// Overdue reports whether the reminder is pending and past due.
func (r Reminder) Overdue(now time.Time) bool {
	return !r.Done && now.After(r.DueAt)
}

const remindersDDL = `
CREATE TABLE IF NOT EXISTS reminders (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    ticket     TEXT NOT NULL,
    note       TEXT NOT NULL DEFAULT '',
    due_at     TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    done       INTEGER NOT NULL DEFAULT 0,
    done_at    TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(done, due_at);
`

// Store keeps reminders in their own sqlite file, separate from the
// credit records so clearing one never touches the other.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and if needed creates) the reminder database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open reminders db: %w", err)
	}
	if _, err := db.Exec(remindersDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init reminders schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// NewStore wraps an existing handle, for tests that use :memory:.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(remindersDDL); err != nil {
		return nil, fmt.Errorf("init reminders schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// SetClock overrides the time source, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add creates a reminder due at dueAt. Adding the same ticket/note pair
// twice within two minutes is rejected as a double add.
func (s *Store) Add(ctx context.Context, ticket, note string, dueAt time.Time) (*Reminder, error) {
	now := s.now()
	if dueAt.Sub(now) > time.Duration(config.ReminderMaxHours)*time.Hour {
		return nil, ErrTooFarOut
	}

	// Only open reminders count toward the guard; re-adding after a
	// dismissal is intentional.
	var recent int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders WHERE ticket = ? AND done = 0 AND created_at >= ?`,
		ticket, now.Add(-doubleAddWindow)).Scan(&recent)
	if err != nil {
		return nil, fmt.Errorf("check recent reminders: %w", err)
	}
	if recent > 0 {
		return nil, ErrRecentDuplicate
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (ticket, note, due_at, created_at, done) VALUES (?, ?, ?, ?, 0)`,
		ticket, note, dueAt, now)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Reminder{ID: id, Ticket: ticket, Note: note, DueAt: dueAt, CreatedAt: now}, nil
}

// AddPreset creates a reminder due in one of the preset hour offsets.
func (s *Store) AddPreset(ctx context.Context, ticket, note string, hours int) (*Reminder, error) {
	if hours <= 0 {
		hours = config.ReminderPresetDay
	}
	return s.Add(ctx, ticket, note, s.now().Add(time.Duration(hours)*time.Hour))
}

// Get fetches one reminder by id.
func (s *Store) Get(ctx context.Context, id int64) (*Reminder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ticket, note, due_at, created_at, done, done_at FROM reminders WHERE id = ?`, id)
	return scanReminder(row)
}

// List returns reminders, pending first (soonest due leading), then
// done ones newest-completed first. When pendingOnly is set, done
// reminders are skipped.
func (s *Store) List(ctx context.Context, pendingOnly bool) ([]Reminder, error) {
	query := `SELECT id, ticket, note, due_at, created_at, done, done_at FROM reminders`
	if pendingOnly {
		query += ` WHERE done = 0`
	}
	query += ` ORDER BY done ASC,
		CASE WHEN done = 0 THEN due_at END ASC,
		done_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Due returns the pending reminders whose due time has passed.
func (s *Store) Due(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticket, note, due_at, created_at, done, done_at
		   FROM reminders WHERE done = 0 AND due_at <= ? ORDER BY due_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("due reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// MarkDone flags a reminder as handled.
func (s *Store) MarkDone(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET done = 1, done_at = ? WHERE id = ? AND done = 0`, s.now(), id)
	if err != nil {
		return fmt.Errorf("mark reminder done: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Snooze pushes a pending reminder's due time out by the given hours,
// counted from its current due time.
func (s *Store) Snooze(ctx context.Context, id int64, hours int) (*Reminder, error) {
	if hours <= 0 {
		hours = config.ReminderPresetShort
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Done {
		return nil, ErrNotFound
	}
	newDue := r.DueAt.Add(time.Duration(hours) * time.Hour)
	if newDue.Sub(s.now()) > time.Duration(config.ReminderMaxHours)*time.Hour {
		return nil, ErrTooFarOut
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET due_at = ? WHERE id = ?`, newDue, id); err != nil {
		return nil, fmt.Errorf("snooze reminder: %w", err)
	}
	r.DueAt = newDue
	return r, nil
}

// Delete removes a reminder outright.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Prune trims completed reminders down to the newest keep entries and
// returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		keep = config.ReminderKeepDone
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE done = 1 AND id NOT IN (
		    SELECT id FROM reminders WHERE done = 1 ORDER BY done_at DESC, id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune reminders: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReminder(row rowScanner) (*Reminder, error) {
	var r Reminder
	var done int
	var doneAt sql.NullTime
	err := row.Scan(&r.ID, &r.Ticket, &r.Note, &r.DueAt, &r.CreatedAt, &done, &doneAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reminder: %w", err)
	}
	r.Done = done != 0
	if doneAt.Valid {
		t := doneAt.Time
		r.DoneAt = &t
	}
	return &r, nil
}
