package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// QueryStore persists saved searches (table user_query).
type QueryStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewQueryStore creates a saved-search store.
func NewQueryStore(conn *Connection, logger *slog.Logger) (*QueryStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &QueryStore{conn: conn, logger: logger}, nil
}

const savedSearchColumns = `
	id, login_id, first_name, middle_name, nick_name, last_name,
	city, state, age, key_words, input_date, search_key,
	disabled, confirmed, confirmed_at, created_at, updated_at`

// Create inserts a saved search and fills its generated ID and timestamps.
func (s *QueryStore) Create(ctx context.Context, saved *SavedSearch) error {
	row := s.conn.QueryRowContext(ctx, `
		INSERT INTO user_query (
			login_id, first_name, middle_name, nick_name, last_name,
			city, state, age, key_words, input_date, search_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		RETURNING id, created_at, updated_at
	`, saved.LoginID, saved.FirstName, saved.MiddleName, saved.NickName, saved.LastName,
		saved.City, saved.State, saved.Age, saved.KeyWords, saved.InputDate, saved.SearchKey)

	if err := row.Scan(&saved.ID, &saved.CreatedAt, &saved.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert saved search: %w", err)
	}

	return nil
}

// GetByID fetches one saved search.
func (s *QueryStore) GetByID(ctx context.Context, id int64) (*SavedSearch, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+savedSearchColumns+` FROM user_query WHERE id = $1`, id)

	saved, err := scanSavedSearch(row)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrQueryNotFound
		}

		return nil, fmt.Errorf("failed to fetch saved search: %w", err)
	}

	return saved, nil
}

// ListByLogin returns every saved search owned by a user, newest first.
func (s *QueryStore) ListByLogin(ctx context.Context, loginID string) ([]*SavedSearch, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+savedSearchColumns+` FROM user_query WHERE login_id = $1 ORDER BY created_at DESC`, loginID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}

	defer func() { _ = rows.Close() }()

	return collectSavedSearches(rows)
}

// ListActive returns the sweep set: neither disabled nor confirmed, oldest
// first so long-watched entries are processed before fresh ones.
func (s *QueryStore) ListActive(ctx context.Context) ([]*SavedSearch, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+savedSearchColumns+` FROM user_query
		 WHERE disabled = FALSE AND confirmed = FALSE
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active searches: %w", err)
	}

	defer func() { _ = rows.Close() }()

	return collectSavedSearches(rows)
}

// GetBySearchKey fetches the saved search carrying a search key. Keys are
// deterministic over the normalized person fields, so at most one active
// search per user holds a given key in practice.
func (s *QueryStore) GetBySearchKey(ctx context.Context, searchKey string) (*SavedSearch, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+savedSearchColumns+` FROM user_query WHERE search_key = $1 ORDER BY id LIMIT 1`, searchKey)

	saved, err := scanSavedSearch(row)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrQueryNotFound
		}

		return nil, fmt.Errorf("failed to fetch saved search: %w", err)
	}

	return saved, nil
}

// Update rewrites the mutable fields of a saved search. Confirmed searches
// are frozen and reject edits.
func (s *QueryStore) Update(ctx context.Context, saved *SavedSearch) error {
	existing, err := s.GetByID(ctx, saved.ID)
	if err != nil {
		return err
	}

	if existing.Confirmed {
		return ErrQueryConfirmed
	}

	_, err = s.conn.ExecContext(ctx, `
		UPDATE user_query SET
			first_name = $2, middle_name = $3, nick_name = $4, last_name = $5,
			city = $6, state = $7, age = $8, key_words = $9,
			input_date = NULLIF($10, ''), search_key = $11, disabled = $12,
			updated_at = NOW()
		WHERE id = $1
	`, saved.ID, saved.FirstName, saved.MiddleName, saved.NickName, saved.LastName,
		saved.City, saved.State, saved.Age, saved.KeyWords, saved.InputDate,
		saved.SearchKey, saved.Disabled)
	if err != nil {
		return fmt.Errorf("failed to update saved search: %w", err)
	}

	return nil
}

// UpdateSearchKey records a refreshed search key when the engine computed a
// different one than stored.
func (s *QueryStore) UpdateSearchKey(ctx context.Context, id int64, searchKey string) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE user_query SET search_key = $2, updated_at = NOW() WHERE id = $1`, id, searchKey)
	if err != nil {
		return fmt.Errorf("failed to update search key: %w", err)
	}

	return nil
}

// Confirm freezes a saved search: confirmed, timestamped, and disabled in
// one statement. Irreversible from within this service.
func (s *QueryStore) Confirm(ctx context.Context, id int64, at time.Time) error {
	result, err := s.conn.ExecContext(ctx, `
		UPDATE user_query
		SET confirmed = TRUE, confirmed_at = $2, disabled = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to confirm saved search: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return ErrQueryNotFound
	}

	return nil
}

// Disable soft-deletes a saved search.
func (s *QueryStore) Disable(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE user_query SET disabled = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to disable saved search: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return ErrQueryNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedSearch(row rowScanner) (*SavedSearch, error) {
	var (
		saved       SavedSearch
		middleName  sql.NullString
		nickName    sql.NullString
		city        sql.NullString
		state       sql.NullString
		age         sql.NullInt64
		keyWords    sql.NullString
		inputDate   sql.NullTime
		confirmedAt sql.NullTime
	)

	err := row.Scan(&saved.ID, &saved.LoginID, &saved.FirstName, &middleName, &nickName,
		&saved.LastName, &city, &state, &age, &keyWords, &inputDate, &saved.SearchKey,
		&saved.Disabled, &saved.Confirmed, &confirmedAt, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return nil, err
	}

	saved.MiddleName = middleName.String
	saved.NickName = nickName.String
	saved.City = city.String
	saved.State = state.String
	saved.Age = int(age.Int64)
	saved.KeyWords = keyWords.String

	if inputDate.Valid {
		saved.InputDate = inputDate.Time.Format("2006-01-02")
	}

	if confirmedAt.Valid {
		saved.ConfirmedAt = &confirmedAt.Time
	}

	return &saved, nil
}

func collectSavedSearches(rows *sql.Rows) ([]*SavedSearch, error) {
	var searches []*SavedSearch

	for rows.Next() {
		saved, err := scanSavedSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved search: %w", err)
		}

		searches = append(searches, saved)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved searches: %w", err)
	}

	return searches, nil
}
