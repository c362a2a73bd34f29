package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	schema string
	table  string
	logger *log.Logger
}

// ConnString returns DATABASE_URL, or a connection string assembled from
// the DB_* variables when it is unset
func ConnString() string {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		return connStr
	}

	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "ndv")
	password := getEnvOrDefault("DB_PASSWORD", "")
	dbname := getEnvOrDefault("DB_NAME", "ndv")
	sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

// NewDB opens a connection and makes sure the record tables exist
func NewDB(ctx context.Context, connStr, schema, table string, logger *log.Logger) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, schema: schema, table: table, logger: logger}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// runsTable and recordsTable are schema-qualified, quoted identifiers
func (db *DB) runsTable() string {
	return pq.QuoteIdentifier(db.schema) + "." + pq.QuoteIdentifier(db.table+"_runs")
}

func (db *DB) recordsTable() string {
	return pq.QuoteIdentifier(db.schema) + "." + pq.QuoteIdentifier(db.table)
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS `+pq.QuoteIdentifier(db.schema))
	if err != nil {
		// If schema creation fails (e.g., permission denied), assume it already exists
		db.logger.Warn("could not create schema (may already exist)", "schema", db.schema, "err", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+db.runsTable()+` (
			id UUID PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
			records_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished_at TIMESTAMP,
			CONSTRAINT valid_status CHECK (status IN ('in_progress', 'done', 'failed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+db.recordsTable()+` (
			run_id UUID NOT NULL REFERENCES `+db.runsTable()+`(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			complex TEXT,
			type VARCHAR(20),
			number TEXT,
			area DOUBLE PRECISION,
			price_base BIGINT,
			price_sale BIGINT,
			payload JSONB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, position)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS `+pq.QuoteIdentifier("idx_"+db.table+"_complex")+` ON `+db.recordsTable()+`(complex)`)
	if err != nil {
		db.logger.Warn("failed to create index on complex", "err", err)
	}

	return nil
}
