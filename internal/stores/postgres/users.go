// Package postgres is the PostgreSQL user directory. It speaks database/sql
// through the pgx stdlib driver so callers can hand it any *sql.DB.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/password"
	"github.com/MrEthical07/sessionauth/store"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

// DBTX is the subset of *sql.DB and *sql.Tx the directory needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Users struct {
	db     DBTX
	hasher password.Hasher
}

var _ store.UserDirectory = (*Users)(nil)

func NewUsers(db DBTX, hasher password.Hasher) *Users {
	return &Users{db: db, hasher: hasher}
}

// Open connects with the pgx driver and pings once.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return db, nil
}

func (r *Users) Insert(ctx context.Context, user store.NewUser) error {
	hash, err := r.hasher.Hash(user.Password.Reveal())
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	query :=
		`INSERT INTO users (email, password_hash, requires_2fa)
		 VALUES ($1, $2, $3)
		 `

	_, err = r.db.ExecContext(ctx, query, user.Email.String(), hash, user.RequiresTwoFA)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrUserExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Users) Get(ctx context.Context, email identity.Email) (store.User, error) {
	query :=
		`SELECT email, password_hash, requires_2fa FROM users
		 WHERE email = $1
		 `

	var (
		raw  string
		user store.User
	)
	err := r.db.QueryRowContext(ctx, query, email.String()).Scan(&raw, &user.PasswordHash, &user.RequiresTwoFA)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, store.ErrUserNotFound
		}
		return store.User{}, fmt.Errorf("db error: %w", err)
	}

	user.Email, err = identity.NewEmail(raw)
	if err != nil {
		return store.User{}, fmt.Errorf("db error: stored email: %w", err)
	}
	return user, nil
}

func (r *Users) Validate(ctx context.Context, email identity.Email, pw identity.Password) error {
	user, err := r.Get(ctx, email)
	if err != nil {
		return err
	}
	ok, err := r.hasher.Verify(pw.Reveal(), user.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return store.ErrInvalidCredentials
		}
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return store.ErrInvalidCredentials
	}
	return nil
}
