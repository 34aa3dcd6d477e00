package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
	"github.com/soyeahso/salesbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	records map[string]domain.UserRecord
	err     error
	calls   int
}

func (f *fakeUsers) FindApprovedUser(_ context.Context, username string) (domain.UserRecord, error) {
	f.calls++
	if f.err != nil {
		return domain.UserRecord{}, f.err
	}
	rec, ok := f.records[username]
	if !ok || rec.Status != domain.UserStatusApproved {
		return domain.UserRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestAuth(t *testing.T) (*Authenticator, *fakeUsers) {
	users := &fakeUsers{records: map[string]domain.UserRecord{
		"alice": {
			User:         domain.User{ID: 7, Username: "alice", FirstName: "Alice", LastName: "Karimova", Role: "sales_officer"},
			PasswordHash: hash(t, "correctpass"),
			Status:       domain.UserStatusApproved,
		},
		"bob": {
			User:         domain.User{ID: 8, Username: "bob"},
			PasswordHash: hash(t, "bobpass"),
			Status:       "pending",
		},
	}}
	return New(users, logging.New(nil, "silent")), users
}

func TestAuthenticate_Success(t *testing.T) {
	a, _ := newTestAuth(t)

	user, err := a.Authenticate(context.Background(), "alice", "correctpass")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Alice Karimova", user.DisplayName())
	assert.Equal(t, "sales_officer", user.Role)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	a, _ := newTestAuth(t)

	_, err := a.Authenticate(context.Background(), "alice", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	a, _ := newTestAuth(t)

	_, err := a.Authenticate(context.Background(), "mallory", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_NotApproved(t *testing.T) {
	a, _ := newTestAuth(t)

	_, err := a.Authenticate(context.Background(), "bob", "bobpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_CorruptHash(t *testing.T) {
	a, users := newTestAuth(t)
	rec := users.records["alice"]
	rec.PasswordHash = "plaintext"
	users.records["alice"] = rec

	_, err := a.Authenticate(context.Background(), "alice", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthenticate_StoreError(t *testing.T) {
	a, users := newTestAuth(t)
	cause := errors.New("connection refused")
	users.err = cause

	_, err := a.Authenticate(context.Background(), "alice", "correctpass")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, users.calls, "no retry")
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("other")))
}
