package v1

import (
	"context"
	"testing"
	"time"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/internal/core/domain/mocks"
	"github.com/duynhne/catalog-service/internal/core/token"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret     = "unit-test-secret-unit-test-secret"
	testAccessTTL  = time.Minute
	testRefreshTTL = 10 * time.Minute
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func strPtr(s string) *string { return &s }

func newTokens(t *testing.T, clock *fakeClock) (*token.Codec, *token.Issuer) {
	t.Helper()
	codec, err := token.NewCodec(testSecret, "catalog-service", token.WithClock(clock.Now))
	require.NoError(t, err)
	issuer, err := token.NewIssuer(codec, testAccessTTL, testRefreshTTL)
	require.NoError(t, err)
	return codec, issuer
}

type sessionFixture struct {
	clock    *fakeClock
	codec    *token.Codec
	issuer   *token.Issuer
	users    *mocks.MockUserRepository
	verifier *SessionVerifier
}

func newSessionFixture(t *testing.T, rotate bool) *sessionFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	clock := newFakeClock()
	codec, issuer := newTokens(t, clock)
	users := mocks.NewMockUserRepository(ctrl)
	return &sessionFixture{
		clock:    clock,
		codec:    codec,
		issuer:   issuer,
		users:    users,
		verifier: NewSessionVerifier(codec, issuer, users, rotate),
	}
}

func (f *sessionFixture) login(t *testing.T, id, email string, role domain.Role) (token.Pair, *domain.UserRow) {
	t.Helper()
	pair, err := f.issuer.IssuePair(id, email, role)
	require.NoError(t, err)
	row := &domain.UserRow{
		ID:           id,
		Email:        email,
		Role:         role,
		RefreshToken: strPtr(pair.RefreshToken),
		IsActive:     true,
	}
	return pair, row
}

func creds(p token.Pair) Credentials {
	return Credentials{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func TestAuthorize_MissingTokens(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, _ := f.login(t, "u1", "a@x.com", domain.RoleUser)

	for name, c := range map[string]Credentials{
		"both absent":    {},
		"access absent":  {RefreshToken: pair.RefreshToken},
		"refresh absent": {AccessToken: pair.AccessToken},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.verifier.Authenticate(context.Background(), c)
			require.ErrorIs(t, err, ErrMissingTokens)
		})
	}
}

func TestAuthorize_ValidAccessIgnoresRefreshToken(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, _ := f.login(t, "u1", "a@x.com", domain.RoleUser)

	// No repository expectations: any store call fails the test.
	sess, err := f.verifier.Authenticate(context.Background(), Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: "garbage",
	})
	require.NoError(t, err)
	assert.False(t, sess.Refreshed())
	assert.Equal(t, "u1", sess.Claims.SubjectID)
	assert.Equal(t, "a@x.com", sess.Claims.Email)
	assert.Equal(t, domain.RoleUser, sess.Claims.Role)
}

func TestAuthorize_Idempotent(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, _ := f.login(t, "u1", "a@x.com", domain.RoleAdmin)

	first, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.NoError(t, err)
	second, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.NoError(t, err)
	assert.Equal(t, first.Claims, second.Claims)
}

func TestAuthorize_InvalidAccessToken(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, _ := f.login(t, "u1", "a@x.com", domain.RoleUser)

	_, err := f.verifier.Authenticate(context.Background(), Credentials{
		AccessToken:  pair.AccessToken + "x",
		RefreshToken: pair.RefreshToken,
	})
	require.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestAuthorize_ExpiredAccess_RotatesRefreshToken(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)
	f.clock.Advance(testAccessTTL + time.Second)

	var stored string
	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)
	f.users.EXPECT().SwapRefreshToken(gomock.Any(), "u1", pair.RefreshToken, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, next string) (bool, error) {
			stored = next
			return true, nil
		})

	sess, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.NoError(t, err)
	require.True(t, sess.Refreshed())
	assert.Equal(t, "u1", sess.Claims.SubjectID)
	assert.Equal(t, stored, sess.NewRefreshToken)
	assert.NotEqual(t, pair.RefreshToken, sess.NewRefreshToken)

	claims, err := f.codec.Verify(sess.NewAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, f.clock.Now().Add(testAccessTTL).Unix(), claims.ExpiresAt.Unix())
}

func TestAuthorize_ExpiredAccess_WithoutRotation(t *testing.T) {
	f := newSessionFixture(t, false)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)
	f.clock.Advance(testAccessTTL + time.Second)

	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil).Times(2)

	sess, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.NoError(t, err)
	require.True(t, sess.Refreshed())
	assert.Empty(t, sess.NewRefreshToken)

	// The refresh token stays usable.
	_, err = f.verifier.Authenticate(context.Background(), creds(pair))
	require.NoError(t, err)
}

func TestAuthorize_TokenMismatch(t *testing.T) {
	f := newSessionFixture(t, true)
	a, _ := f.login(t, "u1", "a@x.com", domain.RoleUser)
	b, _ := f.login(t, "u2", "b@x.com", domain.RoleUser)
	f.clock.Advance(testAccessTTL + time.Second)

	_, err := f.verifier.Authenticate(context.Background(), Credentials{
		AccessToken:  a.AccessToken,
		RefreshToken: b.RefreshToken,
	})
	require.ErrorIs(t, err, ErrTokenMismatch)
}

func TestAuthorize_RefreshTokenExpired(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, _ := f.login(t, "u1", "a@x.com", domain.RoleUser)
	f.clock.Advance(testRefreshTTL + time.Second)

	_, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestAuthorize_InvalidRefreshToken(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, _ := f.login(t, "u1", "a@x.com", domain.RoleUser)
	f.clock.Advance(testAccessTTL + time.Second)

	_, err := f.verifier.Authenticate(context.Background(), Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: "not-a-token",
	})
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthorize_SupersededRefreshToken(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)
	row.RefreshToken = strPtr("a-newer-token")
	f.clock.Advance(testAccessTTL + time.Second)

	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)

	_, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthorize_LoggedOutRefreshToken(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)
	row.RefreshToken = nil
	f.clock.Advance(testAccessTTL + time.Second)

	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)

	_, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthorize_ConcurrentRotationLoses(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)
	f.clock.Advance(testAccessTTL + time.Second)

	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)
	f.users.EXPECT().SwapRefreshToken(gomock.Any(), "u1", pair.RefreshToken, gomock.Any()).Return(false, nil)

	_, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthorize_InactiveUserCannotRefresh(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)
	row.IsActive = false
	f.clock.Advance(testAccessTTL + time.Second)

	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)

	_, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthorize_RoleGate(t *testing.T) {
	f := newSessionFixture(t, true)
	user, _ := f.login(t, "u1", "a@x.com", domain.RoleUser)
	mod, _ := f.login(t, "u2", "m@x.com", domain.RoleModerator)

	_, err := f.verifier.Authorize(context.Background(), creds(user), domain.RoleAdmin, domain.RoleModerator)
	require.ErrorIs(t, err, ErrAccessDenied)

	sess, err := f.verifier.Authorize(context.Background(), creds(mod), domain.RoleAdmin, domain.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, sess.Claims.Role)
}

func TestAuthorize_RoleGateOnRefreshLeavesStoredTokenAlone(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)
	f.clock.Advance(testAccessTTL + time.Second)

	// No SwapRefreshToken expectation: a denied request must not rotate.
	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)

	_, err := f.verifier.Authorize(context.Background(), creds(pair), domain.RoleAdmin)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestResolveCaller(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)

	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)
	got, sess, err := f.verifier.ResolveCaller(context.Background(), creds(pair))
	require.NoError(t, err)
	assert.Equal(t, row, got)
	assert.Equal(t, "u1", sess.Claims.SubjectID)

	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, nil)
	_, _, err = f.verifier.ResolveCaller(context.Background(), creds(pair))
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthorize_RefreshTokenRejectedAsAccessToken(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleUser)
	f.clock.Advance(testAccessTTL + time.Second)

	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)
	f.users.EXPECT().SwapRefreshToken(gomock.Any(), "u1", pair.RefreshToken, gomock.Any()).Return(true, nil)
	_, err := f.verifier.Authenticate(context.Background(), creds(pair))
	require.NoError(t, err)

	// The rotated-out refresh token is still within its own lifetime but
	// must not pass as an access token.
	f.clock.Advance(5 * testAccessTTL)
	_, err = f.verifier.Authenticate(context.Background(), Credentials{
		AccessToken:  pair.RefreshToken,
		RefreshToken: "garbage",
	})
	require.ErrorIs(t, err, ErrInvalidAccessToken)

	_, err = f.verifier.Authenticate(context.Background(), Credentials{
		AccessToken:  pair.RefreshToken,
		RefreshToken: pair.RefreshToken,
	})
	require.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestAuthorize_AccessTokenRejectedAsRefreshToken(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, _ := f.login(t, "u1", "a@x.com", domain.RoleUser)
	f.clock.Advance(testAccessTTL + time.Second)

	fresh, err := f.issuer.IssuePair("u1", "a@x.com", domain.RoleUser)
	require.NoError(t, err)

	// No repository expectations: the kind check fails before any lookup.
	_, err = f.verifier.Authenticate(context.Background(), Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: fresh.AccessToken,
	})
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthorize_RoleChangedSinceRefreshTokenIssued(t *testing.T) {
	f := newSessionFixture(t, true)
	pair, row := f.login(t, "u1", "a@x.com", domain.RoleAdmin)
	// The role was lowered but the stored refresh token survived.
	row.Role = domain.RoleUser
	f.clock.Advance(testAccessTTL + time.Second)

	// No SwapRefreshToken expectation: nothing is minted for a stale role.
	f.users.EXPECT().FindByID(gomock.Any(), "u1").Return(row, nil)

	sess, err := f.verifier.Authorize(context.Background(), creds(pair), domain.RoleAdmin)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.Nil(t, sess)
}
