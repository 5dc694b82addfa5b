package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// ResultStore persists batch-produced results (table user_result).
type ResultStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewResultStore creates a result store.
func NewResultStore(conn *Connection, logger *slog.Logger) (*ResultStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &ResultStore{conn: conn, logger: logger}, nil
}

const resultColumns = `
	id, user_query_id, rank, name_full, name_first, name_last, age, dod,
	city, state, source, url, snippet, provider, image_url, also_found_at,
	date_visitation, date_funeral, fingerprint, scores, score_final,
	score_max, criteria_cnt, is_read, status, ran_dt`

// Insert writes one result row. Each insert is its own transaction; a
// duplicate (query, fingerprint, ran_dt) collision maps to a unique
// violation the caller may treat as a skip.
func (s *ResultStore) Insert(ctx context.Context, result *StoredResult) error {
	scores, err := json.Marshal(result.ScoresCriteria)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}

	alsoFoundAt, err := json.Marshal(result.AlsoFoundAt)
	if err != nil {
		return fmt.Errorf("failed to encode alternate urls: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO user_result (
			id, user_query_id, rank, name_full, name_first, name_last, age, dod,
			city, state, source, url, snippet, provider, image_url, also_found_at,
			date_visitation, date_funeral, fingerprint, scores, score_final,
			score_max, criteria_cnt, is_read, status, ran_dt
		) VALUES (
			$1, $2, $3, $4, $5, $6, NULLIF($7, 0), NULLIF($8, '')::date,
			$9, $10, $11, $12, $13, $14, NULLIF($15, ''), $16,
			NULLIF($17, '')::date, NULLIF($18, '')::date, $19, $20, $21,
			$22, $23, $24, $25, $26
		)
	`, result.ID, result.UserQueryID, result.Rank, result.NameFull, result.NameFirst,
		result.NameLast, result.Age, result.DOD, result.City, result.State,
		result.Source, result.URL, result.Snippet, result.Provider, result.ImageURL,
		alsoFoundAt, result.DateVisitation, result.DateFuneral, result.Fingerprint,
		scores, result.ScoreFinal, result.ScoreMax, result.CriteriaCnt,
		result.IsRead, string(result.Status), result.RanDt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: saved search %d", ErrQueryNotFound, result.UserQueryID)
		}

		return fmt.Errorf("failed to insert result: %w", err)
	}

	return nil
}

// FingerprintsForQuery returns every fingerprint already stored for a saved
// search, across all prior runs. The batch runner pre-reads this set to
// decide which candidates are new.
func (s *ResultStore) FingerprintsForQuery(ctx context.Context, queryID int64) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT DISTINCT fingerprint FROM user_result WHERE user_query_id = $1`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprints: %w", err)
	}

	defer func() { _ = rows.Close() }()

	fingerprints := make(map[string]struct{})

	for rows.Next() {
		var fingerprint string
		if err := rows.Scan(&fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}

		fingerprints[fingerprint] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fingerprints: %w", err)
	}

	return fingerprints, nil
}

// GetByID fetches one result.
func (s *ResultStore) GetByID(ctx context.Context, id string) (*StoredResult, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM user_result WHERE id = $1`, id)

	result, err := scanResult(row)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrResultNotFound
		}

		return nil, fmt.Errorf("failed to fetch result: %w", err)
	}

	return result, nil
}

// ListByQuery returns a saved search's results, best rank first within the
// newest run.
func (s *ResultStore) ListByQuery(ctx context.Context, queryID int64) ([]*StoredResult, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM user_result
		 WHERE user_query_id = $1
		 ORDER BY ran_dt DESC, rank, score_final DESC`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var results []*StoredResult

	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}

	return results, nil
}

// MarkRead flips every pending, unread result of a saved search to read in
// one statement. Returns how many rows changed.
func (s *ResultStore) MarkRead(ctx context.Context, queryID int64) (int64, error) {
	result, err := s.conn.ExecContext(ctx, `
		UPDATE user_result SET is_read = TRUE
		WHERE user_query_id = $1 AND status = 'pending' AND is_read = FALSE
	`, queryID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark results read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected, nil
}

// SetStatus updates one result's lifecycle state and read flag.
func (s *ResultStore) SetStatus(ctx context.Context, id string, status ResultStatus, isRead bool) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE user_result SET status = $2, is_read = $3 WHERE id = $1`,
		id, string(status), isRead)
	if err != nil {
		return fmt.Errorf("failed to update result status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return ErrResultNotFound
	}

	return nil
}

// NullStaleImageURLs clears image URLs on every run older than each saved
// search's most recent, so only the current snapshot keeps full image
// metadata. Returns how many rows were cleaned.
func (s *ResultStore) NullStaleImageURLs(ctx context.Context) (int64, error) {
	result, err := s.conn.ExecContext(ctx, `
		UPDATE user_result r
		SET image_url = NULL
		WHERE r.image_url IS NOT NULL
		  AND r.ran_dt < (
			SELECT MAX(ran_dt) FROM user_result latest
			WHERE latest.user_query_id = r.user_query_id
		  )
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear stale image urls: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected, nil
}

// UnreadSummary is one user's unread-pending counts, grouped per saved
// search. Handed to the notification collaborator after a batch.
type UnreadSummary struct {
	LoginID  string        `json:"loginId"`
	Total    int           `json:"total"`
	PerQuery map[int64]int `json:"perQuery"`
}

// UnreadPendingSummaries reports, per user, the active saved searches that
// currently hold unread pending results.
func (s *ResultStore) UnreadPendingSummaries(ctx context.Context) ([]*UnreadSummary, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT q.login_id, q.id, COUNT(*)
		FROM user_result r
		JOIN user_query q ON q.id = r.user_query_id
		WHERE r.status = 'pending' AND r.is_read = FALSE
		  AND q.disabled = FALSE
		GROUP BY q.login_id, q.id
		ORDER BY q.login_id, q.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize unread results: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var (
		summaries []*UnreadSummary
		current   *UnreadSummary
	)

	for rows.Next() {
		var (
			loginID string
			queryID int64
			count   int
		)

		if err := rows.Scan(&loginID, &queryID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan unread summary: %w", err)
		}

		if current == nil || current.LoginID != loginID {
			current = &UnreadSummary{LoginID: loginID, PerQuery: make(map[int64]int)}
			summaries = append(summaries, current)
		}

		current.PerQuery[queryID] = count
		current.Total += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unread summaries: %w", err)
	}

	return summaries, nil
}

func scanResult(row rowScanner) (*StoredResult, error) {
	var (
		result         StoredResult
		nameFirst      sql.NullString
		nameLast       sql.NullString
		age            sql.NullInt64
		dod            sql.NullTime
		city           sql.NullString
		state          sql.NullString
		snippet        sql.NullString
		imageURL       sql.NullString
		alsoFoundAt    []byte
		dateVisitation sql.NullTime
		dateFuneral    sql.NullTime
		scores         []byte
		status         string
	)

	err := row.Scan(&result.ID, &result.UserQueryID, &result.Rank, &result.NameFull,
		&nameFirst, &nameLast, &age, &dod, &city, &state, &result.Source, &result.URL,
		&snippet, &result.Provider, &imageURL, &alsoFoundAt, &dateVisitation,
		&dateFuneral, &result.Fingerprint, &scores, &result.ScoreFinal,
		&result.ScoreMax, &result.CriteriaCnt, &result.IsRead, &status, &result.RanDt)
	if err != nil {
		return nil, err
	}

	result.NameFirst = nameFirst.String
	result.NameLast = nameLast.String
	result.Age = int(age.Int64)
	result.City = city.String
	result.State = state.String
	result.Snippet = snippet.String
	result.ImageURL = imageURL.String
	result.Status = ResultStatus(status)

	if dod.Valid {
		result.DOD = dod.Time.Format("2006-01-02")
	}

	if dateVisitation.Valid {
		result.DateVisitation = dateVisitation.Time.Format("2006-01-02")
	}

	if dateFuneral.Valid {
		result.DateFuneral = dateFuneral.Time.Format("2006-01-02")
	}

	if len(alsoFoundAt) > 0 {
		if err := json.Unmarshal(alsoFoundAt, &result.AlsoFoundAt); err != nil {
			return nil, fmt.Errorf("failed to decode alternate urls: %w", err)
		}
	}

	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &result.ScoresCriteria); err != nil {
			return nil, fmt.Errorf("failed to decode scores: %w", err)
		}
	}

	return &result, nil
}
