package pgrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/jrsteele09/go-edu-portal/users"
	pkgerrors "github.com/pkg/errors"
)

var _ users.UserRepo = (*UserRepo)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS portal_users (
  id             UUID PRIMARY KEY,
  email          TEXT NOT NULL UNIQUE,
  password_hash  TEXT NOT NULL,
  full_name      TEXT NOT NULL DEFAULT '',
  role           TEXT NOT NULL DEFAULT 'student',
  email_verified BOOLEAN NOT NULL DEFAULT FALSE,
  metadata       JSONB NOT NULL DEFAULT '{}'::jsonb,
  date_joined    TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_login     TIMESTAMPTZ
)`

const selectColumns = `id, email, password_hash, full_name, role, email_verified, metadata, date_joined, last_login`

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// UserRepo stores users in Postgres.
type UserRepo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// NewPool opens and pings a pool for the given DSN.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[pgrepo NewPool] open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, pkgerrors.Wrap(err, "[pgrepo NewPool] ping")
	}
	return pool, nil
}

// Migrate creates the users table when it does not exist.
func (r *UserRepo) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return pkgerrors.Wrap(err, "[UserRepo Migrate]")
}

func (r *UserRepo) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	metadata := user.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, `
    INSERT INTO portal_users (id, email, password_hash, full_name, role, email_verified, metadata, date_joined, last_login)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    ON CONFLICT (id) DO UPDATE SET
      email = EXCLUDED.email,
      password_hash = EXCLUDED.password_hash,
      full_name = EXCLUDED.full_name,
      role = EXCLUDED.role,
      email_verified = EXCLUDED.email_verified,
      metadata = EXCLUDED.metadata,
      last_login = EXCLUDED.last_login
  `, user.ID, users.NormaliseEmail(user.Email), user.PasswordHash, user.FullName, users.NormaliseRole(user.Role).String(),
		user.EmailVerified, metadata, user.DateJoined, nullableTime(user.LastLogin))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.ErrUserExists
		}
		return pkgerrors.Wrap(err, "[UserRepo Upsert]")
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM portal_users WHERE email = $1`, users.NormaliseEmail(email))
	if err != nil {
		return pkgerrors.Wrap(err, "[UserRepo Delete]")
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM portal_users WHERE email = $1`, users.NormaliseEmail(email))
	return scanUser(row)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.ErrUserNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM portal_users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) (users.UsersListResponse, error) {
	resp := users.UsersListResponse{Offset: offset, Limit: limit, Users: []*users.User{}}
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM portal_users`).Scan(&resp.Total); err != nil {
		return resp, pkgerrors.Wrap(err, "[UserRepo List] count")
	}
	if limit <= 0 {
		limit = resp.Total
	}
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM portal_users ORDER BY email OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return resp, pkgerrors.Wrap(err, "[UserRepo List] query")
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return resp, err
		}
		resp.Users = append(resp.Users, u)
	}
	return resp, pkgerrors.Wrap(rows.Err(), "[UserRepo List] rows")
}

func (r *UserRepo) SetVerified(ctx context.Context, email string, verified bool) error {
	return r.exec(ctx, `UPDATE portal_users SET email_verified = $2 WHERE email = $1`, users.NormaliseEmail(email), verified)
}

func (r *UserRepo) SetLastLogin(ctx context.Context, email string, at time.Time) error {
	return r.exec(ctx, `UPDATE portal_users SET last_login = $2 WHERE email = $1`, users.NormaliseEmail(email), at)
}

func (r *UserRepo) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return pkgerrors.Wrap(err, "[UserRepo exec]")
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var (
		u         users.User
		role      string
		lastLogin *time.Time
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role, &u.EmailVerified, &u.Metadata, &u.DateJoined, &lastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[pgrepo scanUser]")
	}
	u.Role = users.NormaliseRole(users.RoleType(role))
	if lastLogin != nil {
		u.LastLogin = *lastLogin
	}
	return &u, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
