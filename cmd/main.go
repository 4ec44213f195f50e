package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"CreditProcess/internal/appmanager"
	"CreditProcess/internal/notification"
	"CreditProcess/internal/reminders"
	"CreditProcess/internal/store"
)

// openDB opens the relational handle the configured backend runs on.
// rtdb and memory backends get no handle at all.
func openDB(cfg store.Config) (*sql.DB, string, error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := sql.Open(store.DriverSQLite, store.SQLiteDSN(cfg.SQLitePath))
		return db, store.DriverSQLite, err
	case "postgres":
		connStr := fmt.Sprintf(
			"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
			os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_NAME"),
		)
		db, err := sql.Open(store.DriverPostgres, connStr)
		return db, store.DriverPostgres, err
	}
	return nil, "", nil
}

func main() {
	// Load .env for local dev (ignored in deployed environments)
	_ = godotenv.Load(".env")

	storeCfg := store.ConfigFromEnv()

	db, driver, err := openDB(storeCfg)
	if err != nil {
		log.Fatal("failed to open DB:", err)
	}
	if db != nil {
		appmanager.SetDB(db)
	}

	records, err := store.Open(storeCfg, db)
	if err != nil {
		log.Fatal("failed to open record store:", err)
	}
	appmanager.SetRecordStore(records)

	// Upload audit log rides the same relational handle. The rtdb and
	// memory backends keep their upload log in a local sqlite file.
	logDB, logDriver := db, driver
	if logDB == nil {
		logDB, err = sql.Open(store.DriverSQLite, store.SQLiteDSN("uploads.db"))
		if err != nil {
			log.Fatal("failed to open upload log DB:", err)
		}
		logDriver = store.DriverSQLite
	}
	uploads, err := store.NewUploadLog(logDB, logDriver)
	if err != nil {
		log.Fatal("failed to init upload log:", err)
	}
	appmanager.SetUploadLog(uploads)

	// Bulk staging fast path only exists on postgres.
	if storeCfg.Backend == "postgres" {
		poolURL := os.Getenv("DATABASE_URL")
		if poolURL == "" {
			poolURL = fmt.Sprintf(
				"postgres://%s:%s@%s:%s/%s?sslmode=disable",
				os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
				os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_NAME"),
			)
		}
		pool, err := pgxpool.New(context.Background(), poolURL)
		if err != nil {
			log.Fatal("failed to create pgx pool:", err)
		}
		appmanager.SetPgxPool(pool)
		stager, err := store.NewPgStager(context.Background(), pool)
		if err != nil {
			log.Fatal("failed to init bulk stager:", err)
		}
		appmanager.SetBulkStager(stager)
	}

	remindersPath := os.Getenv("REMINDERS_DB_PATH")
	if remindersPath == "" {
		remindersPath = "reminders.db"
	}
	remStore, err := reminders.Open(remindersPath)
	if err != nil {
		log.Fatal("failed to open reminders DB:", err)
	}
	appmanager.SetReminderStore(remStore)

	appmanager.SetMailer(notification.NewMailerFromEnv())

	manager := appmanager.NewAppManager()

	// Load service configs from YAML
	servicesCfg, err := appmanager.LoadServiceSequence("services.yaml")
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}

	// Automatically register all services
	manager.AutoRegisterServices(servicesCfg)

	// Start all services
	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	// Stop all services
	if err := manager.StopAll(); err != nil {
		log.Fatal("failed to stop:", err)
	}
}
