package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ndv-scraper/models"
)

// Run statuses
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Run represents one crawl stored in database
type Run struct {
	ID           uuid.UUID
	Status       string // "in_progress", "done", "failed"
	RecordsCount int
	LastError    sql.NullString
	StartedAt    time.Time
	FinishedAt   sql.NullTime
}

// recordColumns are the columns filled by SaveRecords, in row order
var recordColumns = []string{"run_id", "position", "complex", "type", "number", "area", "price_base", "price_sale", "payload"}

// CreateRun registers a new crawl run
func (db *DB) CreateRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO `+db.runsTable()+` (id, status)
		VALUES ($1, $2)
		RETURNING id, status, records_count, started_at
	`, id, StatusInProgress).Scan(&run.ID, &run.Status, &run.RecordsCount, &run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return &run, nil
}

// FinishRun records the outcome of a run. A nil runErr marks it done.
func (db *DB) FinishRun(ctx context.Context, id uuid.UUID, recordsCount int, runErr error) error {
	status := StatusDone
	var lastError sql.NullString
	if runErr != nil {
		status = StatusFailed
		lastError = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		UPDATE `+db.runsTable()+`
		SET status = $1, records_count = $2, last_error = $3, finished_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`, status, recordsCount, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, status, records_count, last_error, started_at, finished_at
		FROM `+db.runsTable()+`
		WHERE id = $1
	`, id).Scan(&run.ID, &run.Status, &run.RecordsCount, &run.LastError, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveRecords bulk-copies the records of a run in one transaction
func (db *DB) SaveRecords(ctx context.Context, runID uuid.UUID, records []models.Record) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(db.schema, db.table, recordColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for i, record := range records {
		row, err := recordRow(runID, i, record)
		if err != nil {
			stmt.Close()
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy record %d: %w", i, err)
		}
	}

	// flush the buffered rows
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	db.logger.Info("records saved to database", "run", runID, "count", len(records))
	return nil
}

// recordRow lays a record out in recordColumns order. The whole record
// goes into payload, the rest are copies for querying.
func recordRow(runID uuid.UUID, position int, record models.Record) ([]interface{}, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %d: %w", position, err)
	}
	return []interface{}{
		runID.String(),
		position,
		nullString(record.Complex),
		nullString(record.Type),
		nullString(record.Number),
		nullFloat(record.Area),
		nullInt(record.PriceBase),
		nullInt(record.PriceSale),
		string(payload),
	}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
