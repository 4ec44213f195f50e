package store

import (
	"context"
	"fmt"

	"CreditProcess/internal/creditreq"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BulkStager is the optional fast path a backend can offer for large
// submits. Rows are staged and merged in one transaction; rows whose pair
// already exists are left behind by the merge.
type BulkStager interface {
	StageAndMerge(ctx context.Context, records map[string]creditreq.Record) (int, error)
}

// PgStager stages rows through CopyFrom into credit_input_rows keyed by a
// batch id, then moves them into credits with ON CONFLICT DO NOTHING.
type PgStager struct {
	pool *pgxpool.Pool
}

const stagingDDL = `
CREATE TABLE IF NOT EXISTS credit_input_rows (
	batch_id UUID NOT NULL,
	store_key TEXT NOT NULL,
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

func NewPgStager(ctx context.Context, pool *pgxpool.Pool) (*PgStager, error) {
	if _, err := pool.Exec(ctx, stagingDDL); err != nil {
		return nil, fmt.Errorf("staging schema setup failed: %w", err)
	}
	return &PgStager{pool: pool}, nil
}

func (p *PgStager) StageAndMerge(ctx context.Context, records map[string]creditreq.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	batchID := uuid.New()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start staging transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	columns := []string{"batch_id", "store_key"}
	columns = append(columns, creditreq.Columns...)

	var copyRows [][]interface{}
	for key, rec := range records {
		row := []interface{}{batchID}
		row = append(row, recordArgs(key, rec)...)
		copyRows = append(copyRows, row)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"credit_input_rows"}, columns, pgx.CopyFromRows(copyRows)); err != nil {
		return 0, fmt.Errorf("staging copy failed: %w", err)
	}

	merge := fmt.Sprintf(`
		INSERT INTO credits (store_key, %s)
		SELECT store_key, %s FROM credit_input_rows WHERE batch_id = $1
		ON CONFLICT DO NOTHING`, quotedColumns(), quotedColumns())
	tag, err := tx.Exec(ctx, merge, batchID)
	if err != nil {
		return 0, fmt.Errorf("staging merge failed: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM credit_input_rows WHERE batch_id = $1", batchID); err != nil {
		return 0, fmt.Errorf("staging cleanup failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("staging commit failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
