package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Connect membuka pool MySQL. DSN harus pakai parseTime=true.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chats (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  user_email VARCHAR(320) NOT NULL,
  title VARCHAR(255) NOT NULL,
  messages JSON NOT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_chats_owner (user_email, created_at)
)`,
	`CREATE TABLE IF NOT EXISTS analysis_results (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  user_email VARCHAR(320) NOT NULL,
  document_type VARCHAR(16) NOT NULL,
  document_url TEXT NOT NULL,
  label VARCHAR(32) NOT NULL,
  confidence DOUBLE NOT NULL,
  reason TEXT NOT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_results_owner (user_email, created_at)
)`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  user_email VARCHAR(320) NOT NULL,
  kind VARCHAR(16) NOT NULL,
  stage VARCHAR(32) NOT NULL,
  message TEXT NOT NULL,
  details_json JSON NOT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_failures_owner (user_email, created_at)
)`,
}

// Migrate creates the tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
