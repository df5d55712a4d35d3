package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"rifa-web-app/internal/logger"
)

// Init opens the Turso database and ensures the schema exists.
func Init(url, authToken string, log *logger.Logger) (*sql.DB, error) {
	dsn := url
	if authToken != "" {
		dsn = url + "?authToken=" + authToken
	}

	database, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	database.SetMaxIdleConns(5)
	database.SetMaxOpenConns(20)
	database.SetConnMaxLifetime(time.Hour)

	log.Info("Database connection established")

	if err := createTables(database); err != nil {
		return nil, err
	}
	return database, nil
}

func createTables(database *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS raffles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		ticket_price TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'Bs',
		total_tickets INTEGER NOT NULL,
		sold_tickets INTEGER NOT NULL DEFAULT 0,
		min_tickets INTEGER NOT NULL DEFAULT 3,
		status TEXT NOT NULL DEFAULT 'active',
		cover_url TEXT NOT NULL DEFAULT '',
		prizes TEXT NOT NULL DEFAULT '[]',
		draw_date TEXT,
		created_at TEXT NOT NULL,
		CHECK (sold_tickets >= 0 AND sold_tickets <= total_tickets)
	);

	CREATE TABLE IF NOT EXISTS purchase_requests (
		id TEXT PRIMARY KEY,
		raffle_id TEXT NOT NULL REFERENCES raffles(id),
		full_name TEXT NOT NULL,
		national_id TEXT NOT NULL,
		email TEXT NOT NULL,
		whatsapp TEXT NOT NULL DEFAULT '',
		ticket_qty INTEGER NOT NULL,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		receipt_path TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		assigned_numbers TEXT NOT NULL DEFAULT '[]',
		telegram_chat_id INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		processed_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_requests_identity ON purchase_requests(national_id, email);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON purchase_requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_raffle ON purchase_requests(raffle_id);

	CREATE TABLE IF NOT EXISTS tickets (
		raffle_id TEXT NOT NULL REFERENCES raffles(id),
		number INTEGER NOT NULL,
		request_id TEXT NOT NULL REFERENCES purchase_requests(id),
		PRIMARY KEY (raffle_id, number)
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_request ON tickets(request_id);

	CREATE TABLE IF NOT EXISTS admins (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'pagos',
		created_at TEXT NOT NULL
	);
	`

	if _, err := database.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
