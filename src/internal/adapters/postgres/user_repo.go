package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcline/jcline/src/internal/domain"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_seen  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresUserRepo records every identity-provider subject that reached the
// control plane.
type PostgresUserRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db, now: time.Now}
}

func (r *PostgresUserRepo) InitSchema() error {
	if _, err := r.db.Exec(usersSchema); err != nil {
		return fmt.Errorf("users schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u     domain.User
		email sql.NullString
	)
	if err := row.Scan(&u.ID, &email, &u.CreatedAt, &u.LastSeen); err != nil {
		return nil, err
	}
	u.Email = email.String
	return &u, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, created_at, last_seen FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// FindOrCreate provisions the user on first sight and bumps last_seen
// afterwards. An empty email never overwrites a known one.
func (r *PostgresUserRepo) FindOrCreate(ctx context.Context, id, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, created_at, last_seen)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO UPDATE SET
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			last_seen = EXCLUDED.last_seen
		RETURNING id, email, created_at, last_seen`,
		id, email, r.now().UTC())
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("provision user %s: %w", id, err)
	}
	return u, nil
}
