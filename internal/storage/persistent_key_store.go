package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const keyStoreQueryTimeout = 5 * time.Second

// PersistentKeyStore implements KeyStore with a PostgreSQL backend. Only
// bcrypt hashes are stored; lookup scans active keys and compares hashes,
// which is fine at the handful-of-keys scale this service runs at.
type PersistentKeyStore struct {
	conn   *Connection
	logger *slog.Logger
}

var _ KeyStore = (*PersistentKeyStore)(nil)

// NewPersistentKeyStore creates a PostgreSQL-backed key store.
func NewPersistentKeyStore(conn *Connection, logger *slog.Logger) (*PersistentKeyStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &PersistentKeyStore{conn: conn, logger: logger}, nil
}

// FindByKey retrieves an API key by its plaintext value via bcrypt hash
// comparison. Returns (nil, false) when not found or on any query error.
func (s *PersistentKeyStore) FindByKey(key string) (*Key, bool) {
	if key == "" {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), keyStoreQueryTimeout)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, key_hash, name, created_at, expires_at, active
		FROM api_keys
		WHERE active = TRUE
	`)
	if err != nil {
		s.logger.Error("api key lookup failed", slog.String("error", err.Error()))

		return nil, false
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			apiKey    Key
			keyHash   string
			expiresAt sql.NullTime
		)

		if err := rows.Scan(&apiKey.ID, &keyHash, &apiKey.Name, &apiKey.CreatedAt, &expiresAt, &apiKey.Active); err != nil {
			s.logger.Error("api key scan failed", slog.String("error", err.Error()))

			continue
		}

		if expiresAt.Valid {
			apiKey.ExpiresAt = &expiresAt.Time
		}

		if !CompareAPIKeyHash(keyHash, key) {
			continue
		}

		if apiKey.ExpiresAt != nil && time.Now().After(*apiKey.ExpiresAt) {
			return nil, false
		}

		// Hand the caller the plaintext it presented, never the hash.
		apiKey.Key = key

		return &apiKey, true
	}

	return nil, false
}

// Add stores a new API key. The plaintext key is hashed before insert.
func (s *PersistentKeyStore) Add(apiKey *Key) error {
	if apiKey == nil { // pragma: allowlist secret
		return ErrKeyNil
	}

	keyHash, err := HashAPIKey(apiKey.Key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), keyStoreQueryTimeout)
	defer cancel()

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash, name, created_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, apiKey.ID, keyHash, apiKey.Name, apiKey.CreatedAt, nullableTime(apiKey.ExpiresAt), apiKey.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrKeyAlreadyExists
		}

		return fmt.Errorf("failed to insert api key: %w", err)
	}

	return nil
}

// Delete removes an API key by id.
func (s *PersistentKeyStore) Delete(keyID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), keyStoreQueryTimeout)
	defer cancel()

	result, err := s.conn.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, keyID)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return ErrKeyNotFound
	}

	return nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}

// ErrNoRows re-exported check helper.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
