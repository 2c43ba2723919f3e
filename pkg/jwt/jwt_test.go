package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager("access-secret", "refresh-secret", "system-admin-secret", "schoolhub-test",
		time.Hour, 7*24*time.Hour, 8*time.Hour)
}

func testIdentity() Identity {
	return Identity{
		UserID:   "6a9c6d8e-0000-4000-8000-000000000001",
		SchoolID: "ABC123",
		Email:    "teacher@example.com",
		Role:     "teacher",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()
	id := testIdentity()

	token, err := m.IssueAccessToken(id)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, PurposeAccess, claims.Purpose)
	assert.Equal(t, id, claims.Identity())
	assert.Equal(t, id.UserID, claims.Subject)
	assert.Equal(t, "schoolhub-test", claims.Issuer)
	assert.False(t, claims.IsSchoolAdmin())
}

func TestSchoolAdminTokenShape(t *testing.T) {
	m := newTestManager()
	id := Identity{SchoolID: "ABC123", Email: "office@example.com", Role: "school_admin"}

	token, err := m.IssueAccessToken(id)
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsSchoolAdmin())
	assert.Equal(t, "ABC123", claims.Subject)
	assert.Empty(t, claims.UserID)
}

func TestExpiredTokenIsDistinguishable(t *testing.T) {
	expired := NewManager("access-secret", "refresh-secret", "system-admin-secret", "schoolhub-test",
		-time.Minute, -time.Minute, -time.Minute)

	token, err := expired.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	_, err = expired.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestTamperedTokenIsInvalid(t *testing.T) {
	m := newTestManager()
	token, err := m.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(token + "x")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestFamiliesDoNotCrossVerify(t *testing.T) {
	m := newTestManager()
	id := testIdentity()

	access, err := m.IssueAccessToken(id)
	require.NoError(t, err)
	refresh, err := m.IssueRefreshToken(id)
	require.NoError(t, err)
	reset, err := m.IssuePasswordResetToken(id)
	require.NoError(t, err)

	// Different secrets.
	_, err = m.VerifyRefreshToken(RefreshToken(access))
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = m.VerifyAccessToken(AccessToken(refresh))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Reset tokens share the access secret; the purpose claim must still
	// keep the families apart in both directions.
	_, err = m.VerifyAccessToken(AccessToken(reset))
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = m.VerifyPasswordResetToken(PasswordResetToken(access))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.VerifySystemAdminToken(SystemAdminToken(access))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordResetTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.IssuePasswordResetToken(testIdentity())
	require.NoError(t, err)

	claims, err := m.VerifyPasswordResetToken(token)
	require.NoError(t, err)
	assert.Equal(t, PurposePasswordReset, claims.Purpose)
	// Fixed one-hour lifetime regardless of the access TTL.
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestSystemAdminTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.IssueSystemAdminToken("root@example.com", "full", true)
	require.NoError(t, err)

	claims, err := m.VerifySystemAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", claims.Email)
	assert.Equal(t, SystemAdminRole, claims.Role)
	assert.Equal(t, "full", claims.SystemAdminLevel)
	assert.True(t, claims.CrossSchoolAccess)

	// A system-admin token never verifies as a user access token.
	_, err = m.VerifyAccessToken(AccessToken(token))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSystemAdminVerifyRejectsWrongTypeClaim(t *testing.T) {
	// Correctly signed with the system-admin secret but carrying the wrong
	// type: the verifier must refuse it.
	now := time.Now()
	claims := SystemAdminClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    "schoolhub-test",
			Subject:   "root@example.com",
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email: "root@example.com",
		Role:  SystemAdminRole,
		Type:  "user",
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("system-admin-secret"))
	require.NoError(t, err)

	m := newTestManager()
	_, err = m.VerifySystemAdminToken(SystemAdminToken(signed))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSystemAdminVerifyRejectsWrongRoleClaim(t *testing.T) {
	now := time.Now()
	claims := SystemAdminClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    "schoolhub-test",
			Subject:   "root@example.com",
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email: "root@example.com",
		Role:  "admin",
		Type:  "system_admin",
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("system-admin-secret"))
	require.NoError(t, err)

	m := newTestManager()
	_, err = m.VerifySystemAdminToken(SystemAdminToken(signed))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	other := NewManager("access-secret", "refresh-secret", "system-admin-secret", "someone-else",
		time.Hour, time.Hour, time.Hour)
	token, err := other.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	m := newTestManager()
	_, err = m.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
