package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// BatchStore persists sweep records (table batches).
type BatchStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewBatchStore creates a batch store.
func NewBatchStore(conn *Connection, logger *slog.Logger) (*BatchStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &BatchStore{conn: conn, logger: logger}, nil
}

// Create opens a batch record. Its created_at becomes the ran_dt of every
// result the sweep inserts.
func (s *BatchStore) Create(ctx context.Context, inputFile string) (*Batch, error) {
	batch := &Batch{ID: uuid.NewString(), InputFile: inputFile}

	row := s.conn.QueryRowContext(ctx, `
		INSERT INTO batches (id, input_file)
		VALUES ($1, NULLIF($2, ''))
		RETURNING created_at
	`, batch.ID, inputFile)

	if err := row.Scan(&batch.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	return batch, nil
}

// Finish records the final totals of a completed sweep.
func (s *BatchStore) Finish(ctx context.Context, id string, totalQueries, totalResults int) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE batches SET total_queries = $2, total_results = $3 WHERE id = $1`,
		id, totalQueries, totalResults)
	if err != nil {
		return fmt.Errorf("failed to finish batch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

const batchColumns = `id, input_file, created_at, total_queries, total_results`

// GetByID fetches one batch record.
func (s *BatchStore) GetByID(ctx context.Context, id string) (*Batch, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)

	batch, err := scanBatch(row)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBatchNotFound
		}

		return nil, fmt.Errorf("failed to fetch batch: %w", err)
	}

	return batch, nil
}

// Latest returns the most recent batch.
func (s *BatchStore) Latest(ctx context.Context) (*Batch, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC LIMIT 1`)

	batch, err := scanBatch(row)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBatchNotFound
		}

		return nil, fmt.Errorf("failed to fetch latest batch: %w", err)
	}

	return batch, nil
}

// List returns recent batches, newest first.
func (s *BatchStore) List(ctx context.Context, limit int) ([]*Batch, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var batches []*Batch

	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}

		batches = append(batches, batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batches: %w", err)
	}

	return batches, nil
}

func scanBatch(row rowScanner) (*Batch, error) {
	var (
		batch     Batch
		inputFile sql.NullString
	)

	err := row.Scan(&batch.ID, &inputFile, &batch.CreatedAt, &batch.TotalQueries, &batch.TotalResults)
	if err != nil {
		return nil, err
	}

	batch.InputFile = inputFile.String

	return &batch, nil
}
