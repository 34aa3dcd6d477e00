// Package auth validates staff credentials against stored user records.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
	"github.com/soyeahso/salesbot/internal/store"
)

var (
	// ErrInvalidCredentials means no approved user has the submitted username.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidPassword means the user exists but the password does not match.
	ErrInvalidPassword = errors.New("auth: invalid password")
	// ErrUnavailable wraps datastore failures during authentication.
	ErrUnavailable = errors.New("auth: authentication unavailable")
)

// UserFinder looks up approved users by username.
type UserFinder interface {
	FindApprovedUser(ctx context.Context, username string) (domain.UserRecord, error)
}

// Authenticator checks a username and password pair.
type Authenticator struct {
	users UserFinder
	log   *logging.Logger
}

// New creates an Authenticator over users.
func New(users UserFinder, log *logging.Logger) *Authenticator {
	return &Authenticator{users: users, log: log.Sub("auth")}
}

// Authenticate returns the user whose approved record matches username and
// whose stored bcrypt hash verifies password. It never mutates sessions.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	rec, err := a.users.FindApprovedUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		a.log.Error().Err(err).Str("username", username).Msg("user lookup failed")
		return domain.User{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			a.log.Warn().Err(err).Int64("userId", rec.ID).Msg("stored password hash is unusable")
		}
		return domain.User{}, ErrInvalidPassword
	}

	return rec.User, nil
}

// HashPassword returns the bcrypt hash to store for password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
