package exclusion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

// PostgresStore is the production Store (table exclusions). Idempotence
// rides on the table's unique index over (scope, search_key, fingerprint,
// url); a conflicting insert returns the existing row.
type PostgresStore struct {
	conn   *storage.Connection
	logger *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgreSQL-backed exclusion store.
func NewPostgresStore(conn *storage.Connection, logger *slog.Logger) (*PostgresStore, error) {
	if conn == nil {
		return nil, storage.ErrNoDatabaseConnection
	}

	return &PostgresStore{conn: conn, logger: logger}, nil
}

const exclusionColumns = `
	id, scope, search_key, fingerprint_excluded, url_excluded,
	name_excluded, reason, created_at`

// Add implements Store. ON CONFLICT DO NOTHING plus a follow-up read keeps
// the operation idempotent without racing concurrent writers.
func (s *PostgresStore) Add(ctx context.Context, exclusion *Exclusion) (*Exclusion, bool, error) {
	if err := exclusion.Validate(); err != nil {
		return nil, false, err
	}

	row := s.conn.QueryRowContext(ctx, `
		INSERT INTO exclusions (scope, search_key, fingerprint_excluded, url_excluded, name_excluded, reason)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		ON CONFLICT (scope, COALESCE(search_key, ''), COALESCE(fingerprint_excluded, ''), COALESCE(url_excluded, ''))
		DO NOTHING
		RETURNING id, created_at
	`, string(exclusion.Scope), exclusion.SearchKey, exclusion.FingerprintExcluded,
		exclusion.URLExcluded, exclusion.NameExcluded, exclusion.Reason)

	created := *exclusion

	err := row.Scan(&created.ID, &created.CreatedAt)
	if err == nil {
		return &created, true, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert exclusion: %w", err)
	}

	// Conflict path: the identical rule already exists; fetch it.
	existing, err := s.findExisting(ctx, exclusion)
	if err != nil {
		return nil, false, err
	}

	return existing, false, nil
}

func (s *PostgresStore) findExisting(ctx context.Context, exclusion *Exclusion) (*Exclusion, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+exclusionColumns+` FROM exclusions
		WHERE scope = $1
		  AND COALESCE(search_key, '') = $2
		  AND COALESCE(fingerprint_excluded, '') = $3
		  AND COALESCE(url_excluded, '') = $4
	`, string(exclusion.Scope), exclusion.SearchKey, exclusion.FingerprintExcluded, exclusion.URLExcluded)

	existing, err := scanExclusion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing exclusion: %w", err)
	}

	return existing, nil
}

// Remove implements Store.
func (s *PostgresStore) Remove(ctx context.Context, id int64) (bool, error) {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM exclusions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete exclusion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// RemoveMatching implements Store.
func (s *PostgresStore) RemoveMatching(ctx context.Context, searchKey, fingerprint string) (bool, error) {
	result, err := s.conn.ExecContext(ctx, `
		DELETE FROM exclusions
		WHERE scope = 'per-query' AND search_key = $1 AND fingerprint_excluded = $2
	`, searchKey, fingerprint)
	if err != nil {
		return false, fmt.Errorf("failed to delete matching exclusion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// FingerprintsExcluded implements Store.
func (s *PostgresStore) FingerprintsExcluded(ctx context.Context, searchKey string) (map[string]struct{}, error) {
	return s.collectSet(ctx, `
		SELECT fingerprint_excluded FROM exclusions
		WHERE fingerprint_excluded IS NOT NULL
		  AND (scope = 'global' OR search_key = $1)
	`, searchKey)
}

// URLsExcluded implements Store.
func (s *PostgresStore) URLsExcluded(ctx context.Context, searchKey string) (map[string]struct{}, error) {
	return s.collectSet(ctx, `
		SELECT url_excluded FROM exclusions
		WHERE url_excluded IS NOT NULL
		  AND (scope = 'global' OR search_key = $1)
	`, searchKey)
}

func (s *PostgresStore) collectSet(ctx context.Context, query, searchKey string) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx, query, searchKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read exclusion set: %w", err)
	}

	defer func() { _ = rows.Close() }()

	set := make(map[string]struct{})

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan exclusion value: %w", err)
		}

		set[value] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exclusion set: %w", err)
	}

	return set, nil
}

// GetByKeySearch implements Store.
func (s *PostgresStore) GetByKeySearch(ctx context.Context, searchKey string) ([]*Exclusion, error) {
	return s.collect(ctx, `
		SELECT `+exclusionColumns+` FROM exclusions
		WHERE scope = 'per-query' AND search_key = $1
		ORDER BY created_at DESC
	`, searchKey)
}

// GetGlobalExclusions implements Store.
func (s *PostgresStore) GetGlobalExclusions(ctx context.Context) ([]*Exclusion, error) {
	return s.collect(ctx, `
		SELECT `+exclusionColumns+` FROM exclusions
		WHERE scope = 'global'
		ORDER BY created_at DESC
	`)
}

// GetAll implements Store.
func (s *PostgresStore) GetAll(ctx context.Context) ([]*Exclusion, error) {
	return s.collect(ctx, `
		SELECT `+exclusionColumns+` FROM exclusions
		ORDER BY created_at DESC
	`)
}

// Stats implements Store.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE scope = 'per-query'),
			COUNT(*) FILTER (WHERE scope = 'global'),
			COUNT(fingerprint_excluded),
			COUNT(url_excluded)
		FROM exclusions
	`)

	var stats Stats

	err := row.Scan(&stats.Total, &stats.PerQuery, &stats.Global, &stats.Fingerprints, &stats.URLs)
	if err != nil {
		return nil, fmt.Errorf("failed to read exclusion stats: %w", err)
	}

	return &stats, nil
}

func (s *PostgresStore) collect(ctx context.Context, query string, args ...any) ([]*Exclusion, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var exclusions []*Exclusion

	for rows.Next() {
		exclusion, err := scanExclusion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exclusion: %w", err)
		}

		exclusions = append(exclusions, exclusion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exclusions: %w", err)
	}

	return exclusions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExclusion(row rowScanner) (*Exclusion, error) {
	var (
		exclusion   Exclusion
		scope       string
		searchKey   sql.NullString
		fingerprint sql.NullString
		url         sql.NullString
		name        sql.NullString
		reason      sql.NullString
	)

	err := row.Scan(&exclusion.ID, &scope, &searchKey, &fingerprint, &url, &name,
		&reason, &exclusion.CreatedAt)
	if err != nil {
		return nil, err
	}

	exclusion.Scope = Scope(scope)
	exclusion.SearchKey = searchKey.String
	exclusion.FingerprintExcluded = fingerprint.String
	exclusion.URLExcluded = url.String
	exclusion.NameExcluded = name.String
	exclusion.Reason = reason.String

	return &exclusion, nil
}
