package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"CreditProcess/internal/creditreq"
)

// ErrNotFound is returned when a key has no record behind it.
var ErrNotFound = errors.New("record not found")

// ErrDuplicatePair is returned when an insert collides with an existing
// (invoice, item) pair at the storage level.
var ErrDuplicatePair = errors.New("record already present for invoice/item pair")

// RecordStore is the backend-neutral view of the credit request tree. Keys
// are push IDs regardless of backend.
type RecordStore interface {
	// All returns every record keyed by its store key.
	All(ctx context.Context) (map[string]creditreq.Record, error)
	// Get fetches one record. ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (creditreq.Record, error)
	// Push inserts a record under a freshly generated key and returns it.
	Push(ctx context.Context, rec creditreq.Record) (string, error)
	// Update applies a partial field map to an existing record.
	Update(ctx context.Context, key string, fields map[string]interface{}) error
	// Delete removes a record. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Pairs returns the set of existing non-empty (invoice, item) pairs.
	Pairs(ctx context.Context) (map[creditreq.Pair]struct{}, error)
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend    string // rtdb | sqlite | postgres | memory
	SQLitePath string
	RTDBURL    string
	RTDBToken  string
	RTDBTree   string
	RTDBMirror []string
}

// ConfigFromEnv reads the backend selection the way the services read the
// rest of their settings.
func ConfigFromEnv() Config {
	cfg := Config{
		Backend:    strings.ToLower(os.Getenv("STORE_BACKEND")),
		SQLitePath: os.Getenv("SQLITE_PATH"),
		RTDBURL:    os.Getenv("RTDB_URL"),
		RTDBToken:  os.Getenv("RTDB_AUTH_TOKEN"),
		RTDBTree:   os.Getenv("RTDB_TREE"),
	}
	if cfg.Backend == "" {
		cfg.Backend = "sqlite"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "credits.db"
	}
	if cfg.RTDBTree == "" {
		cfg.RTDBTree = "credit_requests"
	}
	if mirrors := os.Getenv("RTDB_MIRROR_URLS"); mirrors != "" {
		for _, m := range strings.Split(mirrors, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.RTDBMirror = append(cfg.RTDBMirror, m)
			}
		}
	}
	return cfg
}

// Open builds the configured RecordStore. The relational backends receive
// the shared sql handle opened in main.
func Open(cfg Config, db *sql.DB) (RecordStore, error) {
	switch cfg.Backend {
	case "rtdb":
		if cfg.RTDBURL == "" {
			return nil, errors.New("rtdb backend requires RTDB_URL")
		}
		return NewRTDBStore(cfg.RTDBURL, cfg.RTDBTree, cfg.RTDBToken, cfg.RTDBMirror), nil
	case "sqlite":
		return NewRelStore(db, DriverSQLite)
	case "postgres":
		return NewRelStore(db, DriverPostgres)
	case "memory":
		return NewMemStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
