package storage

import (
	"context"
	"fmt"
)

// VariantStore reads the name_first_variant table, which holds
// operator-curated first-name equivalences merged into the nickname table
// at startup (for names the static seed does not know).
type VariantStore struct {
	conn *Connection
}

// NewVariantStore creates a name-variant store.
func NewVariantStore(conn *Connection) (*VariantStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &VariantStore{conn: conn}, nil
}

// Pairs returns every (name, variant) pair in the table.
func (s *VariantStore) Pairs(ctx context.Context) ([][2]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name_first, variant FROM name_first_variant`)
	if err != nil {
		return nil, fmt.Errorf("failed to read name variants: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var pairs [][2]string

	for rows.Next() {
		var name, variant string
		if err := rows.Scan(&name, &variant); err != nil {
			return nil, fmt.Errorf("failed to scan name variant: %w", err)
		}

		pairs = append(pairs, [2]string{name, variant})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate name variants: %w", err)
	}

	return pairs, nil
}
