package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UploadEntry is one row of the upload log.
type UploadEntry struct {
	ID                int64  `json:"id"`
	Filename          string `json:"filename"`
	UploadTime        string `json:"upload_time"`
	RowsInserted      int    `json:"rows_inserted"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
	FileHash          string `json:"file_hash,omitempty"`
}

// UploadLog records every submit in the legacy upload_log table, one row per
// upload with accurate counts.
type UploadLog struct {
	db     *sql.DB
	driver string
}

func NewUploadLog(db *sql.DB, driver string) (*UploadLog, error) {
	idCol := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == DriverPostgres {
		idCol = "id BIGSERIAL PRIMARY KEY"
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS upload_log (
			%s,
			filename TEXT NOT NULL,
			upload_time TEXT NOT NULL,
			rows_inserted INTEGER NOT NULL DEFAULT 0,
			duplicates_skipped INTEGER NOT NULL DEFAULT 0,
			file_hash TEXT
		)`, idCol)
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("upload_log schema setup failed: %w", err)
	}
	return &UploadLog{db: db, driver: driver}, nil
}

func (u *UploadLog) rebind(query string) string {
	return (&RelStore{driver: u.driver}).rebind(query)
}

// Record appends one log row and returns its id.
func (u *UploadLog) Record(ctx context.Context, filename string, inserted, skipped int, fileHash string) (int64, error) {
	now := time.Now().Format("2006-01-02 15:04:05")
	if u.driver == DriverPostgres {
		var id int64
		err := u.db.QueryRowContext(ctx, `
			INSERT INTO upload_log (filename, upload_time, rows_inserted, duplicates_skipped, file_hash)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			filename, now, inserted, skipped, fileHash).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("upload_log insert failed: %w", err)
		}
		return id, nil
	}
	res, err := u.db.ExecContext(ctx, `
		INSERT INTO upload_log (filename, upload_time, rows_inserted, duplicates_skipped, file_hash)
		VALUES (?, ?, ?, ?, ?)`,
		filename, now, inserted, skipped, fileHash)
	if err != nil {
		return 0, fmt.Errorf("upload_log insert failed: %w", err)
	}
	return res.LastInsertId()
}

// SeenHash returns the newest log entry for a file hash, if any. Used to
// warn when an identical file is re-uploaded.
func (u *UploadLog) SeenHash(ctx context.Context, fileHash string) (*UploadEntry, error) {
	if fileHash == "" {
		return nil, nil
	}
	query := u.rebind(`
		SELECT id, filename, upload_time, rows_inserted, duplicates_skipped, COALESCE(file_hash, '')
		FROM upload_log WHERE file_hash = ? ORDER BY id DESC LIMIT 1`)
	var e UploadEntry
	err := u.db.QueryRowContext(ctx, query, fileHash).Scan(
		&e.ID, &e.Filename, &e.UploadTime, &e.RowsInserted, &e.DuplicatesSkipped, &e.FileHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("upload_log lookup failed: %w", err)
	}
	return &e, nil
}

// List returns log entries newest first.
func (u *UploadLog) List(ctx context.Context, limit, offset int) ([]UploadEntry, int, error) {
	var total int
	if err := u.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM upload_log").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("upload_log count failed: %w", err)
	}
	query := u.rebind(`
		SELECT id, filename, upload_time, rows_inserted, duplicates_skipped, COALESCE(file_hash, '')
		FROM upload_log ORDER BY id DESC LIMIT ? OFFSET ?`)
	rows, err := u.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("upload_log query failed: %w", err)
	}
	defer rows.Close()

	var entries []UploadEntry
	for rows.Next() {
		var e UploadEntry
		if err := rows.Scan(&e.ID, &e.Filename, &e.UploadTime, &e.RowsInserted, &e.DuplicatesSkipped, &e.FileHash); err != nil {
			return nil, 0, fmt.Errorf("upload_log scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
