package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type (
	// CapturedQuery is one row of the legacy queries table, written by the
	// scraper collaborator per batch.
	CapturedQuery struct {
		ID        int64     `json:"id"`
		BatchID   string    `json:"batchId"`
		FirstName string    `json:"firstName"`
		LastName  string    `json:"lastName"`
		City      string    `json:"city,omitempty"`
		State     string    `json:"state,omitempty"`
		Age       int       `json:"age,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// CapturedResult is one row of the legacy results table: an obituary
	// the scraper found for a captured query.
	CapturedResult struct {
		ID        int64     `json:"id"`
		QueryID   int64     `json:"queryId"`
		URL       string    `json:"url"`
		Title     string    `json:"title,omitempty"`
		Snippet   string    `json:"snippet,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// CaptureStore reads the legacy queries/results capture tables. The
	// scraper owns writes; this service only reports against them.
	CaptureStore struct {
		conn *Connection
	}
)

// NewCaptureStore creates a read-only capture store.
func NewCaptureStore(conn *Connection) (*CaptureStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &CaptureStore{conn: conn}, nil
}

// QueriesForBatch returns the captured queries recorded under one batch.
func (s *CaptureStore) QueriesForBatch(ctx context.Context, batchID string) ([]*CapturedQuery, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, batch_id, first_name, last_name, city, state, age, created_at
		FROM queries WHERE batch_id = $1 ORDER BY id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list captured queries: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var queries []*CapturedQuery

	for rows.Next() {
		var (
			q     CapturedQuery
			city  sql.NullString
			state sql.NullString
			age   sql.NullInt64
		)

		err := rows.Scan(&q.ID, &q.BatchID, &q.FirstName, &q.LastName, &city, &state, &age, &q.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan captured query: %w", err)
		}

		q.City = city.String
		q.State = state.String
		q.Age = int(age.Int64)

		queries = append(queries, &q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captured queries: %w", err)
	}

	return queries, nil
}

// ResultsForQuery returns the captured results under one captured query.
func (s *CaptureStore) ResultsForQuery(ctx context.Context, queryID int64) ([]*CapturedResult, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, query_id, url, title, snippet, created_at
		FROM results WHERE query_id = $1 ORDER BY id
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list captured results: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var results []*CapturedResult

	for rows.Next() {
		var (
			r       CapturedResult
			title   sql.NullString
			snippet sql.NullString
		)

		if err := rows.Scan(&r.ID, &r.QueryID, &r.URL, &title, &snippet, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan captured result: %w", err)
		}

		r.Title = title.String
		r.Snippet = snippet.String

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captured results: %w", err)
	}

	return results, nil
}
