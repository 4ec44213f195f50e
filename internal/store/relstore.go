package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"CreditProcess/internal/creditreq"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Driver names the relational store understands.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLiteDSN builds the sqlite connection string with the WAL and busy
// timeout options every handle should carry.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
}

// RelStore keeps records in the legacy `credits` table. The quoted headline
// column names are preserved so existing tooling keeps working; the pair
// rule is enforced a second time by a partial unique index.
type RelStore struct {
	db     *sql.DB
	driver string
	ids    *PushIDGenerator
}

const creditsDDL = `
CREATE TABLE IF NOT EXISTS credits (
	store_key TEXT PRIMARY KEY,
	"Date" TEXT,
	"Credit Type" TEXT,
	"Issue Type" TEXT,
	"Customer Number" TEXT,
	"Invoice Number" TEXT,
	"Item Number" TEXT,
	"QTY" REAL,
	"Unit Price" NUMERIC,
	"Extended Price" NUMERIC,
	"Corrected Unit Price" NUMERIC,
	"Extended Correct Price" NUMERIC,
	"Credit Request Total" NUMERIC,
	"Requested By" TEXT,
	"Reason for Credit" TEXT,
	"Status" TEXT,
	"Ticket Number" TEXT,
	"Sales Rep" TEXT,
	"Type" TEXT,
	"Record ID" TEXT,
	"RTN_CR_No" TEXT
)`

const creditsPairIndexDDL = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_credits_pair
ON credits ("Invoice Number", "Item Number")
WHERE "Item Number" <> ''`

func NewRelStore(db *sql.DB, driver string) (*RelStore, error) {
	if db == nil {
		return nil, fmt.Errorf("relational store requires an open database handle")
	}
	s := &RelStore{db: db, driver: driver, ids: NewPushIDGenerator()}
	for _, ddl := range []string{creditsDDL, creditsPairIndexDDL} {
		if _, err := db.Exec(ddl); err != nil {
			return nil, fmt.Errorf("credits schema setup failed: %w", err)
		}
	}
	return s, nil
}

// rebind rewrites ? placeholders into $n for the postgres driver.
func (s *RelStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsDuplicateErr reports whether err is a unique violation from either
// driver, so handlers can answer "already present" instead of a 500.
func IsDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	if sqErr, ok := err.(sqlite3.Error); ok {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func quotedColumns() string {
	quoted := make([]string, len(creditreq.Columns))
	for i, c := range creditreq.Columns {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}

func recordArgs(key string, r creditreq.Record) []interface{} {
	return []interface{}{
		key,
		r.Date, r.CreditType, r.IssueType, r.CustomerNumber,
		r.InvoiceNumber, r.ItemNumber, r.Quantity, r.UnitPrice.String(),
		r.ExtendedPrice.String(), r.CorrectedUnitPrice.String(),
		r.ExtendedCorrectPrice.String(), r.CreditRequestTotal.String(),
		r.RequestedBy, r.ReasonForCredit, r.Status, r.TicketNumber,
		r.SalesRep, r.TypeCode, r.RecordID, r.RTNCRNumber,
	}
}

func (s *RelStore) All(ctx context.Context) (map[string]creditreq.Record, error) {
	query := "SELECT store_key, " + quotedColumns() + " FROM credits ORDER BY store_key"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("credits query failed: %w", err)
	}
	defer rows.Close()

	records := make(map[string]creditreq.Record)
	for rows.Next() {
		key, rec, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records[key] = rec
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *RelStore) scanRow(row rowScanner) (string, creditreq.Record, error) {
	var (
		key                           string
		date, creditType, issueType   sql.NullString
		customer, invoice, item       sql.NullString
		qty                           sql.NullFloat64
		unit, ext, corrected          sql.NullString
		extCorrect, total             sql.NullString
		requestedBy, reason, status   sql.NullString
		ticket, salesRep, typeCode    sql.NullString
		recordID, rtn                 sql.NullString
	)
	err := row.Scan(
		&key, &date, &creditType, &issueType, &customer, &invoice, &item,
		&qty, &unit, &ext, &corrected, &extCorrect, &total,
		&requestedBy, &reason, &status, &ticket, &salesRep, &typeCode,
		&recordID, &rtn,
	)
	if err != nil {
		return "", creditreq.Record{}, fmt.Errorf("credits scan failed: %w", err)
	}
	money := func(ns sql.NullString) decimal.Decimal {
		if !ns.Valid {
			return decimal.Zero
		}
		return creditreq.ParseMoney(ns.String)
	}
	rec := creditreq.Record{
		Date:                 date.String,
		CreditType:           creditType.String,
		IssueType:            issueType.String,
		CustomerNumber:       customer.String,
		InvoiceNumber:        invoice.String,
		ItemNumber:           item.String,
		Quantity:             qty.Float64,
		UnitPrice:            money(unit),
		ExtendedPrice:        money(ext),
		CorrectedUnitPrice:   money(corrected),
		ExtendedCorrectPrice: money(extCorrect),
		CreditRequestTotal:   money(total),
		RequestedBy:          requestedBy.String,
		ReasonForCredit:      reason.String,
		Status:               status.String,
		TicketNumber:         ticket.String,
		SalesRep:             salesRep.String,
		TypeCode:             typeCode.String,
		RecordID:             recordID.String,
		RTNCRNumber:          rtn.String,
	}
	return key, rec, nil
}

func (s *RelStore) Get(ctx context.Context, key string) (creditreq.Record, error) {
	query := s.rebind("SELECT store_key, " + quotedColumns() + " FROM credits WHERE store_key = ?")
	row := s.db.QueryRowContext(ctx, query, key)
	_, rec, err := s.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return creditreq.Record{}, ErrNotFound
		}
		return creditreq.Record{}, err
	}
	return rec, nil
}

func (s *RelStore) Push(ctx context.Context, rec creditreq.Record) (string, error) {
	key := s.ids.Next()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(creditreq.Columns)+1), ", ")
	query := s.rebind(fmt.Sprintf(
		"INSERT INTO credits (store_key, %s) VALUES (%s) ON CONFLICT DO NOTHING",
		quotedColumns(), placeholders))
	res, err := s.db.ExecContext(ctx, query, recordArgs(key, rec)...)
	if err != nil {
		if IsDuplicateErr(err) {
			return "", ErrDuplicatePair
		}
		return "", fmt.Errorf("credits insert failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrDuplicatePair
	}
	return key, nil
}

var columnSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(creditreq.Columns))
	for _, c := range creditreq.Columns {
		set[c] = struct{}{}
	}
	return set
}()

func (s *RelStore) Update(ctx context.Context, key string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	var (
		sets []string
		args []interface{}
	)
	for col, val := range fields {
		if _, ok := columnSet[col]; !ok {
			return fmt.Errorf("unknown field %q", col)
		}
		sets = append(sets, `"`+col+`" = ?`)
		args = append(args, val)
	}
	args = append(args, key)
	query := s.rebind("UPDATE credits SET " + strings.Join(sets, ", ") + " WHERE store_key = ?")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if IsDuplicateErr(err) {
			return ErrDuplicatePair
		}
		return fmt.Errorf("credits update failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RelStore) Delete(ctx context.Context, key string) error {
	query := s.rebind("DELETE FROM credits WHERE store_key = ?")
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("credits delete failed: %w", err)
	}
	return nil
}

func (s *RelStore) Pairs(ctx context.Context) (map[creditreq.Pair]struct{}, error) {
	query := `SELECT DISTINCT "Invoice Number", "Item Number" FROM credits WHERE "Item Number" <> ''`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pair query failed: %w", err)
	}
	defer rows.Close()

	pairs := make(map[creditreq.Pair]struct{})
	for rows.Next() {
		var invoice, item sql.NullString
		if err := rows.Scan(&invoice, &item); err != nil {
			return nil, fmt.Errorf("pair scan failed: %w", err)
		}
		p := creditreq.NewPair(invoice.String, item.String)
		if !p.Empty() {
			pairs[p] = struct{}{}
		}
	}
	return pairs, rows.Err()
}
