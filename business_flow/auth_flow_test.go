package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const accountPassword = "Secret123!"

func newTestAuthFlow(s *memStore) AuthFlow {
	return NewAuthFlow(
		fakeUserRepo{s: s},
		fakeSessionRepo{s: s},
		fakeResetRepo{s: s},
		fakeAttemptRepo{s: s},
		fakePermissionRepo{s: s},
		fakeAuditRepo{s: s},
		fakeMailer{s: s},
		nil,
		s,
		"https://registry.test/reset-password",
		utils.NopLogger(),
	)
}

// addAccount stores an active consumer whose password is accountPassword
func (s *memStore) addAccount(email string) uint {
	hash, err := bcrypt.GenerateFromPassword([]byte(accountPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	id := s.id()
	s.users[id] = models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Jane",
		UserType:     models.UserTypeConsumer,
		Status:       models.UserStatusActive,
	}
	return id
}

func (s *memStore) setUserStatus(id uint, status models.UserStatus) {
	u := s.users[id]
	u.Status = status
	s.users[id] = u
}

func (s *memStore) sessionsOf(userID uint) int {
	n := 0
	for _, session := range s.sessions {
		if session.UserID == userID {
			n++
		}
	}
	return n
}

func login(ctx context.Context, flow AuthFlow, email, password string) (*dto.LoginResponse, error) {
	return flow.Authenticate(ctx, &dto.LoginRequest{Email: email, Password: password}, nil)
}

func TestAuthenticate_LocksAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.addAccount("jane@example.com")
	flow := newTestAuthFlow(s)

	for i := 0; i < utils.MaxFailedLoginAttempts; i++ {
		_, err := login(ctx, flow, "jane@example.com", "wrong-password")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCredentials), "attempt %d", i+1)
	}

	_, err := login(ctx, flow, "jane@example.com", accountPassword)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccountLocked), "the right password does not lift the lock")
	assert.True(t, IsAccountLocked(err))
	assert.Equal(t, KindAuth, ErrorKindOf(err))
	assert.Empty(t, s.sessions)

	// failures age out of the window
	for i := range s.attempts {
		s.attempts[i].AttemptedAt = time.Now().UTC().Add(-utils.LoginLockoutWindow - time.Minute)
	}
	resp, err := login(ctx, flow, "jane@example.com", accountPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Session.Token)
}

func TestAuthenticate_SuccessClearsFailures(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	user := s.addAccount("jane@example.com")
	flow := newTestAuthFlow(s)

	for range utils.MaxFailedLoginAttempts - 1 {
		_, err := login(ctx, flow, "jane@example.com", "wrong-password")
		require.Error(t, err)
	}
	assert.Len(t, s.attempts, utils.MaxFailedLoginAttempts-1)

	resp, err := login(ctx, flow, "JANE@example.com", accountPassword)
	require.NoError(t, err)
	assert.Equal(t, user, resp.User.ID)
	assert.Empty(t, s.attempts)
	assert.Equal(t, 1, s.sessionsOf(user))
	assert.NotNil(t, s.users[user].LastLoginAt)

	for range utils.MaxFailedLoginAttempts - 1 {
		_, err := login(ctx, flow, "jane@example.com", "wrong-password")
		require.Error(t, err)
	}
	_, err = login(ctx, flow, "jane@example.com", accountPassword)
	assert.NoError(t, err, "the counter restarted after the successful login")
}

func TestAuthenticate_RejectsUnusableAccounts(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	user := s.addAccount("jane@example.com")
	s.setUserStatus(user, models.UserStatusSuspended)
	flow := newTestAuthFlow(s)

	_, err := login(ctx, flow, "jane@example.com", accountPassword)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = login(ctx, flow, "nobody@example.com", accountPassword)
	assert.True(t, errors.Is(err, ErrInvalidCredentials), "unknown email answers like a wrong password")
	assert.Len(t, s.attempts, 2)
	assert.Empty(t, s.sessions)
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	user := s.addAccount("jane@example.com")
	flow := newTestAuthFlow(s)

	resp, err := login(ctx, flow, "jane@example.com", accountPassword)
	require.NoError(t, err)
	token := resp.Session.Token

	var sessionID uint
	for id := range s.sessions {
		sessionID = id
	}
	session := s.sessions[sessionID]
	session.ExpiresAt = time.Now().UTC().Add(time.Hour)
	s.sessions[sessionID] = session

	got, err := flow.ValidateSession(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user, got.ID)
	assert.WithinDuration(t, time.Now().Add(utils.SessionTTL), s.sessions[sessionID].ExpiresAt, time.Minute, "expiry slides forward")

	got, err = flow.ValidateSession(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = flow.ValidateSession(ctx, "  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	s.setUserStatus(user, models.UserStatusInactive)
	got, err = flow.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)

	s.setUserStatus(user, models.UserStatusActive)
	session = s.sessions[sessionID]
	session.ExpiresAt = time.Now().UTC().Add(-time.Second)
	s.sessions[sessionID] = session
	got, err = flow.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, s.sessions[sessionID].ExpiresAt.Before(time.Now()), "an expired session is not revived")
}

func TestInitiatePasswordReset_SameAnswerForEveryEmail(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	user := s.addAccount("jane@example.com")
	flow := newTestAuthFlow(s)

	known, err := flow.InitiatePasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "jane@example.com"}, nil)
	require.NoError(t, err)
	require.Len(t, s.emails, 1)
	assert.Equal(t, "jane@example.com", s.emails[0].to)
	require.Len(t, s.resets, 1)
	for _, reset := range s.resets {
		assert.Equal(t, user, reset.UserID)
		assert.Contains(t, s.emails[0].body, reset.Token)
	}

	unknown, err := flow.InitiatePasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "nobody@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, known, unknown)
	assert.Len(t, s.emails, 1)

	s.failUserLookup = true
	lookupFailed, err := flow.InitiatePasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "jane@example.com"}, nil)
	require.NoError(t, err, "storage failures must not reveal the account")
	assert.Equal(t, known, lookupFailed)
	s.failUserLookup = false

	s.failResetSave = true
	saveFailed, err := flow.InitiatePasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "jane@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, known, saveFailed)
	assert.Len(t, s.emails, 1)
	assert.Len(t, s.resets, 1)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	user := s.addAccount("jane@example.com")
	flow := newTestAuthFlow(s)

	for range 2 {
		_, err := login(ctx, flow, "jane@example.com", accountPassword)
		require.NoError(t, err)
	}
	require.Equal(t, 2, s.sessionsOf(user))

	_, err := flow.InitiatePasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "jane@example.com"}, nil)
	require.NoError(t, err)
	var first models.PasswordReset
	for _, r := range s.resets {
		first = r
	}
	// a second request supersedes the first token
	_, err = flow.InitiatePasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "jane@example.com"}, nil)
	require.NoError(t, err)
	var token string
	for _, r := range s.resets {
		if r.ID != first.ID {
			token = r.Token
		}
	}
	require.NotEmpty(t, token)

	req := func(token string) *dto.ResetPasswordRequest {
		return &dto.ResetPasswordRequest{Token: token, NewPassword: "NewSecret123", ConfirmPassword: "NewSecret123"}
	}

	err = flow.ResetPassword(ctx, req(first.Token), nil)
	assert.True(t, errors.Is(err, ErrInvalidOrExpiredToken), "superseded token")

	require.NoError(t, flow.ResetPassword(ctx, req(token), nil))
	assert.Zero(t, s.sessionsOf(user), "every session is revoked")

	_, err = login(ctx, flow, "jane@example.com", accountPassword)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = login(ctx, flow, "jane@example.com", "NewSecret123")
	require.NoError(t, err)

	err = flow.ResetPassword(ctx, req(token), nil)
	assert.True(t, errors.Is(err, ErrInvalidOrExpiredToken), "tokens are single use")
	assert.Equal(t, KindAuth, ErrorKindOf(err))

	expired := models.PasswordReset{
		ID:        s.id(),
		UserID:    user,
		Token:     "expired-token-0123456789",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	s.resets[expired.ID] = expired
	err = flow.ResetPassword(ctx, req(expired.Token), nil)
	assert.True(t, errors.Is(err, ErrInvalidOrExpiredToken))

	err = flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "NewSecret123", ConfirmPassword: "Different123"}, nil)
	assert.Equal(t, KindValidation, ErrorKindOf(err))
}
