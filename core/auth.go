package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials is returned when email/password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidResetToken is returned when a reset token is unknown,
	// expired, or already consumed. The three cases are indistinguishable.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID    string
	Email string
}

// AuthService implements registration, login, and the password reset flow
// on top of the user repository.
type AuthService struct {
	users    UserRepository
	mailer   Mailer
	secret   []byte
	tokenTTL time.Duration
	resetTTL time.Duration
	appURL   string
}

func NewAuthService(users UserRepository, mailer Mailer, cfg Config) *AuthService {
	return &AuthService{
		users:    users,
		mailer:   mailer,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: cfg.TokenTTL,
		resetTTL: cfg.ResetTokenTTL,
		appURL:   strings.TrimRight(cfg.AppURL, "/"),
	}
}

// Register creates a new principal. The existence check runs before hashing
// to avoid wasted bcrypt work; the unique index on email is the real guard
// when two registrations race.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*UserRecord, error) {
	email = strings.ToLower(email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, name, email, hash)
}

// Login verifies the credentials and issues a bearer token. The unknown-
// email path still performs a bcrypt comparison so both failures take a
// similar amount of time.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *UserRecord, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			CheckPassword(password, dummyDigest)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := IssueToken(u.ID, u.Email, s.secret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// ForgotPassword stores a fresh reset challenge and dispatches the reset
// link. It returns nil whether or not the email is registered: the caller's
// response must not reveal account existence, so token generation happens
// on both paths and mail failures are only logged.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	token, err := NewResetToken()
	if err != nil {
		return err
	}
	tokenHash := HashResetToken(token)

	u, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	if err := s.users.SetResetToken(ctx, u.ID, tokenHash, time.Now().Add(s.resetTTL)); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, token)
	if err := s.mailer.SendPasswordReset(u.Email, link); err != nil {
		log.Printf("reset mail dispatch failed for user %s: %v", u.ID, err)
	}
	return nil
}

// ResetPassword consumes a reset challenge. The incoming raw token is only
// ever matched by digest, and a successful reset clears the challenge in
// the same statement, so replaying the token fails.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	ok, err := s.users.ResetPassword(ctx, HashResetToken(token), hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}
	return nil
}
