package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusmate/server/internal/domain/users"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *UserRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const uniqueViolation = "23505"

func (r *UserRepository) Create(ctx context.Context, user users.User) (users.User, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (id, username, email, password_hash, created_at)
VALUES ($1, $2, $3, $4, now())
RETURNING id, username, email, password_hash, created_at
`, user.ID, user.Username, user.Email, user.PasswordHash)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// The service pre-checks, but a concurrent registration can
			// still race to the same unique index.
			if strings.Contains(pgErr.ConstraintName, "email") {
				return users.User{}, users.ErrEmailTaken
			}
			return users.User{}, users.ErrUsernameTaken
		}
		return users.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (users.User, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, username, email, password_hash, created_at
  FROM users
 WHERE id = $1
`, id)
	return getUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (users.User, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, username, email, password_hash, created_at
  FROM users
 WHERE username = $1
`, username)
	return getUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (users.User, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, username, email, password_hash, created_at
  FROM users
 WHERE email = $1
`, email)
	return getUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]users.User, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, username, email, password_hash, created_at
  FROM users
 ORDER BY username ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []users.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func getUser(row pgx.Row) (users.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (users.User, error) {
	var (
		user      users.User
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &createdAt); err != nil {
		return users.User{}, err
	}
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}
	return user, nil
}
