package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPurpose tags which family a token belongs to. Families never verify
// across purposes, even when two families share a signing secret.
type TokenPurpose string

const (
	PurposeAccess        TokenPurpose = "access"
	PurposeRefresh       TokenPurpose = "refresh"
	PurposePasswordReset TokenPurpose = "password_reset"
	PurposeSystemAdmin   TokenPurpose = "system_admin"
)

// Distinct string types per family so a token issued by one family cannot be
// passed to another family's verifier without an explicit, visible conversion.
type (
	AccessToken        string
	RefreshToken       string
	PasswordResetToken string
	SystemAdminToken   string
)

var (
	// ErrTokenExpired reports a well-formed, correctly signed token past its
	// expiry. Callers use this to distinguish "retry with refresh" from
	// "retry login".
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid reports any other verification failure: bad signature,
	// malformed payload, wrong purpose, wrong family.
	ErrTokenInvalid = errors.New("token is invalid")
)

// Identity is the claim payload for the access/refresh/reset families.
// School-admin identities carry a SchoolID and no UserID; regular users carry
// both.
type Identity struct {
	UserID   string
	SchoolID string
	Email    string
	Role     string
}

// Claims extends jwt.RegisteredClaims with the identity fields this service
// stamps into user-facing tokens.
type Claims struct {
	jwt.RegisteredClaims
	Purpose  TokenPurpose `json:"purpose"`
	UserID   string       `json:"userId,omitempty"`
	SchoolID string       `json:"schoolId,omitempty"`
	Email    string       `json:"email,omitempty"`
	Role     string       `json:"role,omitempty"`
}

// SystemAdminClaims is the fixed claim set of the system-admin family.
// Verification rejects tokens whose Type or Role is off even when the
// signature checks out, so a leaked or shared secret cannot be used to mint
// cross-family privileges.
type SystemAdminClaims struct {
	jwt.RegisteredClaims
	Email             string `json:"email"`
	Role              string `json:"role"`
	CrossSchoolAccess bool   `json:"crossSchoolAccess"`
	SystemAdminLevel  string `json:"systemAdminLevel"`
	Type              string `json:"type"`
}

const (
	SystemAdminRole = "system_admin"
	systemAdminType = "system_admin"

	passwordResetTTL = time.Hour
)

// Manager signs and verifies all four token families. Password-reset tokens
// share the access secret and are separated by purpose claim; the other
// families each hold their own secret.
type Manager struct {
	accessSecret      []byte
	refreshSecret     []byte
	systemAdminSecret []byte
	issuer            string
	accessTTL         time.Duration
	refreshTTL        time.Duration
	systemAdminTTL    time.Duration
}

func NewManager(accessSecret, refreshSecret, systemAdminSecret, issuer string, accessTTL, refreshTTL, systemAdminTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:      []byte(accessSecret),
		refreshSecret:     []byte(refreshSecret),
		systemAdminSecret: []byte(systemAdminSecret),
		issuer:            issuer,
		accessTTL:         accessTTL,
		refreshTTL:        refreshTTL,
		systemAdminTTL:    systemAdminTTL,
	}
}

// AccessTokenTTL exposes the access lifetime for expires_in response fields.
func (m *Manager) AccessTokenTTL() time.Duration { return m.accessTTL }

// RefreshTokenTTL reports the refresh token lifetime, which doubles as the
// max-age of the cookie carrying it.
func (m *Manager) RefreshTokenTTL() time.Duration { return m.refreshTTL }

// IssueAccessToken creates a signed short-lived access token for an identity.
func (m *Manager) IssueAccessToken(id Identity) (AccessToken, error) {
	signed, err := m.sign(id, PurposeAccess, m.accessSecret, m.accessTTL)
	return AccessToken(signed), err
}

// IssueRefreshToken creates a signed long-lived refresh token for an identity.
func (m *Manager) IssueRefreshToken(id Identity) (RefreshToken, error) {
	signed, err := m.sign(id, PurposeRefresh, m.refreshSecret, m.refreshTTL)
	return RefreshToken(signed), err
}

// IssuePasswordResetToken creates a reset token with a fixed one-hour
// lifetime. It signs with the access secret; the purpose claim keeps the two
// families apart.
func (m *Manager) IssuePasswordResetToken(id Identity) (PasswordResetToken, error) {
	signed, err := m.sign(id, PurposePasswordReset, m.accessSecret, passwordResetTTL)
	return PasswordResetToken(signed), err
}

// VerifyAccessToken validates an access token and returns its claims.
func (m *Manager) VerifyAccessToken(token AccessToken) (*Claims, error) {
	return m.verify(string(token), PurposeAccess, m.accessSecret)
}

// VerifyRefreshToken validates a refresh token and returns its claims.
func (m *Manager) VerifyRefreshToken(token RefreshToken) (*Claims, error) {
	return m.verify(string(token), PurposeRefresh, m.refreshSecret)
}

// VerifyPasswordResetToken validates a password-reset token and returns its claims.
func (m *Manager) VerifyPasswordResetToken(token PasswordResetToken) (*Claims, error) {
	return m.verify(string(token), PurposePasswordReset, m.accessSecret)
}

// IssueSystemAdminToken creates a token in the system-admin family.
func (m *Manager) IssueSystemAdminToken(email, level string, crossSchoolAccess bool) (SystemAdminToken, error) {
	now := time.Now()
	claims := SystemAdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.systemAdminTTL)),
			ID:        uuid.New().String(),
		},
		Email:             email,
		Role:              SystemAdminRole,
		CrossSchoolAccess: crossSchoolAccess,
		SystemAdminLevel:  level,
		Type:              systemAdminType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.systemAdminSecret)
	return SystemAdminToken(signed), err
}

// VerifySystemAdminToken validates a system-admin token. Tokens missing
// type=system_admin or whose role is not system_admin are rejected even with a
// valid signature.
func (m *Manager) VerifySystemAdminToken(token SystemAdminToken) (*SystemAdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(string(token), &SystemAdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.systemAdminSecret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	claims, ok := parsed.Claims.(*SystemAdminClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Type != systemAdminType || claims.Role != SystemAdminRole {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != m.issuer {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *Manager) sign(id Identity, purpose TokenPurpose, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	subject := id.UserID
	if subject == "" {
		subject = id.SchoolID
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		Purpose:  purpose,
		UserID:   id.UserID,
		SchoolID: id.SchoolID,
		Email:    id.Email,
		Role:     id.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *Manager) verify(tokenStr string, purpose TokenPurpose, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != m.issuer {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Identity reconstructs the Identity an access/refresh claim set was issued for.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:   c.UserID,
		SchoolID: c.SchoolID,
		Email:    c.Email,
		Role:     c.Role,
	}
}

// IsSchoolAdmin reports whether the claims belong to a school-admin token
// (schoolId present, no userId).
func (c *Claims) IsSchoolAdmin() bool {
	return c.UserID == "" && c.SchoolID != ""
}

func mapParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}
