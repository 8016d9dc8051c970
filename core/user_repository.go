package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrEmailTaken is returned when registration hits the unique email index.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// UserRecord is the persisted projection of a principal. PasswordHash and
// the reset token columns never leave the repository layer.
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository defines persistence operations for principals.
type UserRepository interface {
	Create(ctx context.Context, name, email, passwordHash string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindByID(ctx context.Context, id string) (*UserRecord, error)
	// SetResetToken stores the digest of a fresh reset token, replacing any
	// prior challenge for the user.
	SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	// ResetPassword atomically replaces the password hash and clears the
	// challenge for the user holding a matching, unexpired token digest.
	// Returns false when no such user exists (invalid, expired, or replayed).
	ResetPassword(ctx context.Context, tokenHash, newPasswordHash string) (bool, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func (r *PgUserRepository) Create(ctx context.Context, name, email, passwordHash string) (*UserRecord, error) {
	const q = `
INSERT INTO users (id, name, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING created_at`
	u := UserRecord{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
	}
	if err := r.db.QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash).Scan(&u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	const q = `SELECT id, name, email, password_hash, created_at FROM users WHERE email=$1`
	return r.scanOne(r.db.QueryRow(ctx, q, strings.ToLower(email)))
}

func (r *PgUserRepository) FindByID(ctx context.Context, id string) (*UserRecord, error) {
	const q = `SELECT id, name, email, password_hash, created_at FROM users WHERE id=$1`
	return r.scanOne(r.db.QueryRow(ctx, q, id))
}

func (r *PgUserRepository) scanOne(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	const q = `UPDATE users SET reset_token_hash=$1, reset_token_expires=$2 WHERE id=$3`
	tag, err := r.db.Exec(ctx, q, tokenHash, expires, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgUserRepository) ResetPassword(ctx context.Context, tokenHash, newPasswordHash string) (bool, error) {
	// Single filtered update: the digest match, expiry check, password swap
	// and challenge clear happen in one statement, so a token cannot be
	// consumed twice even under concurrent resets.
	const q = `
UPDATE users
SET password_hash=$1, reset_token_hash=NULL, reset_token_expires=NULL
WHERE reset_token_hash=$2 AND reset_token_expires > now()`
	tag, err := r.db.Exec(ctx, q, newPasswordHash, tokenHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
