package cartstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jogardn/panda-lite/internal/cart"
)

const (
	createCartsTable = `CREATE TABLE IF NOT EXISTS carts (
			key VARCHAR(255) PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	selectCart = `SELECT data FROM carts WHERE key = $1`
	upsertCart = `INSERT INTO carts (key, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
)

// PostgresStore keeps each cart as one JSONB row keyed by the storage key.
type PostgresStore struct {
	db  *sql.DB
	key string
}

func NewPostgresStore(db *sql.DB, key string) *PostgresStore {
	return &PostgresStore{db: db, key: key}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCartsTable); err != nil {
		return fmt.Errorf("failed to create carts table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (cart.Cart, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, selectCart, s.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return cart.Cart{}, false, nil
	}
	if err != nil {
		return cart.Cart{}, false, fmt.Errorf("failed to read cart from postgres: %w", err)
	}
	c, err := cart.Decode(data)
	if err != nil {
		return cart.Cart{}, false, err
	}
	return c, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, c cart.Cart) error {
	data, err := cart.Encode(c)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertCart, s.key, string(data)); err != nil {
		return fmt.Errorf("failed to write cart to postgres: %w", err)
	}
	return nil
}
