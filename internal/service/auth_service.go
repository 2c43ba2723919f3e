package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edubase/schoolhub/internal/cache"
	"edubase/schoolhub/internal/config"
	"edubase/schoolhub/internal/model"
	"edubase/schoolhub/internal/repository"
	"edubase/schoolhub/pkg/crypto"
	"edubase/schoolhub/pkg/jwt"
)

// RedirectCompleteRegistration signals a successful login against a
// temporary credential: the client must finish registration before tokens
// are issued.
const RedirectCompleteRegistration = "complete-registration"

type TokenPair struct {
	AccessToken jwt.AccessToken `json:"accessToken"`
	ExpiresIn   int64           `json:"expiresIn"`
	// The refresh token travels in an HttpOnly cookie, never in the body.
	RefreshToken jwt.RefreshToken `json:"-"`
}

type LoginInput struct {
	Email    string
	Password string
	SchoolID string
	Role     string
}

// LoginResult carries either a token pair or a redirect signal, never both.
type LoginResult struct {
	User       *model.User   `json:"user,omitempty"`
	School     *model.School `json:"school,omitempty"`
	Tokens     *TokenPair    `json:"tokens,omitempty"`
	RedirectTo string        `json:"redirectTo,omitempty"`
}

type SystemAdminLoginResult struct {
	Token             jwt.SystemAdminToken `json:"token"`
	Email             string               `json:"email"`
	SystemAdminLevel  string               `json:"systemAdminLevel"`
	CrossSchoolAccess bool                 `json:"crossSchoolAccess"`
	ExpiresIn         int64                `json:"expiresIn"`
}

type SystemAdminProfile struct {
	Email             string `json:"email"`
	SystemAdminLevel  string `json:"systemAdminLevel"`
	CrossSchoolAccess bool   `json:"crossSchoolAccess"`
}

// Identity is the "who am I" answer. Exactly one of User, School and
// SystemAdmin is set, depending on the token shape the call arrived with.
type Identity struct {
	Kind        string              `json:"kind"`
	User        *model.User         `json:"user,omitempty"`
	School      *model.School       `json:"school,omitempty"`
	SystemAdmin *SystemAdminProfile `json:"systemAdmin,omitempty"`
}

type sessionEntry struct {
	Email   string    `json:"email"`
	Role    string    `json:"role"`
	LoginAt time.Time `json:"loginAt"`
}

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	SystemAdminLogin(ctx context.Context, email, password string) (*SystemAdminLoginResult, error)
	RefreshToken(ctx context.Context, token jwt.RefreshToken) (*LoginResult, error)
	Logout(ctx context.Context, token jwt.RefreshToken)
	GetMe(ctx context.Context, claims *jwt.Claims) (*Identity, error)
	SystemAdminIdentity(claims *jwt.SystemAdminClaims) *Identity
	ForgotPassword(ctx context.Context, email, schoolID string) error
	ResetPassword(ctx context.Context, token jwt.PasswordResetToken, newPassword string) error
}

type authService struct {
	schoolRepo repository.SchoolRepository
	userRepo   repository.UserRepository
	cache      cache.Client
	dispatcher NotificationDispatcher
	tokens     *jwt.Manager
	sysAdmin   config.SystemAdminConfig
	portalURL  string
	logger     *zap.Logger
}

func NewAuthService(
	schoolRepo repository.SchoolRepository,
	userRepo repository.UserRepository,
	cacheClient cache.Client,
	dispatcher NotificationDispatcher,
	tokens *jwt.Manager,
	sysAdmin config.SystemAdminConfig,
	portalURL string,
	logger *zap.Logger,
) AuthService {
	return &authService{
		schoolRepo: schoolRepo,
		userRepo:   userRepo,
		cache:      cacheClient,
		dispatcher: dispatcher,
		tokens:     tokens,
		sysAdmin:   sysAdmin,
		portalURL:  portalURL,
		logger:     logger,
	}
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	school, err := s.resolveOperationalSchool(ctx, in.SchoolID)
	if err != nil {
		return nil, err
	}

	if in.Role == string(model.RoleSchoolAdmin) {
		return s.loginSchoolAdmin(ctx, school, in)
	}
	return s.loginUser(ctx, school, in)
}

func (s *authService) loginSchoolAdmin(ctx context.Context, school *model.School, in LoginInput) (*LoginResult, error) {
	if !strings.EqualFold(school.Email, in.Email) || !crypto.CheckPassword(in.Password, school.Password) {
		return nil, NewAuthenticationError("Invalid credentials")
	}
	identity := jwt.Identity{
		SchoolID: school.SchoolID,
		Email:    school.Email,
		Role:     string(model.RoleSchoolAdmin),
	}
	pair, err := issueTokenPair(s.tokens, identity)
	if err != nil {
		return nil, err
	}
	s.rememberSession(ctx, school.SchoolID, sessionEntry{Email: school.Email, Role: string(model.RoleSchoolAdmin), LoginAt: time.Now()})
	return &LoginResult{School: school, Tokens: &pair}, nil
}

func (s *authService) loginUser(ctx context.Context, school *model.School, in LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmailAndSchool(ctx, in.Email, school.SchoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewAuthenticationError("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if in.Role != "" && in.Role != string(user.Role) {
		return nil, NewAuthenticationError("Invalid credentials")
	}

	// A temporary credential logs in, but yields a redirect instead of
	// tokens: the account is not usable until registration completes.
	if user.IsTemporaryPassword {
		if !crypto.CheckPassword(in.Password, user.Password) {
			return nil, NewAuthenticationError("Invalid credentials")
		}
		return &LoginResult{User: user, RedirectTo: RedirectCompleteRegistration}, nil
	}

	if !crypto.CheckPassword(in.Password, user.Password) {
		return nil, NewAuthenticationError("Invalid credentials")
	}
	// Identity is confirmed past this point; account-state rejections are
	// deliberately distinguishable from bad credentials.
	if !user.IsVerified {
		return nil, NewAuthorizationError("Your account is not verified")
	}
	if !user.IsActive {
		return nil, NewAuthorizationError("Your account is deactivated. Please contact your school administration")
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	pair, err := issueTokenPair(s.tokens, jwt.Identity{
		UserID:   user.ID.String(),
		SchoolID: user.SchoolID,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, err
	}
	s.rememberSession(ctx, user.ID.String(), sessionEntry{Email: user.Email, Role: string(user.Role), LoginAt: now})
	return &LoginResult{User: user, Tokens: &pair}, nil
}

func (s *authService) SystemAdminLogin(ctx context.Context, email, password string) (*SystemAdminLoginResult, error) {
	if s.sysAdmin.Email == "" || s.sysAdmin.PasswordHash == "" {
		return nil, NewAuthenticationError("Invalid credentials")
	}
	if !strings.EqualFold(email, s.sysAdmin.Email) || !crypto.CheckPassword(password, s.sysAdmin.PasswordHash) {
		return nil, NewAuthenticationError("Invalid credentials")
	}
	token, err := s.tokens.IssueSystemAdminToken(s.sysAdmin.Email, s.sysAdmin.Level, s.sysAdmin.CrossSchoolAccess)
	if err != nil {
		return nil, fmt.Errorf("issue system admin token: %w", err)
	}
	return &SystemAdminLoginResult{
		Token:             token,
		Email:             s.sysAdmin.Email,
		SystemAdminLevel:  s.sysAdmin.Level,
		CrossSchoolAccess: s.sysAdmin.CrossSchoolAccess,
		ExpiresIn:         int64((time.Duration(s.sysAdmin.TokenExpiryHours) * time.Hour).Seconds()),
	}, nil
}

// RefreshToken rotates a refresh token into a fresh pair. The underlying
// identity is re-resolved and its active state re-checked: a token issued
// before a deactivation must not mint new access.
func (s *authService) RefreshToken(ctx context.Context, token jwt.RefreshToken) (*LoginResult, error) {
	claims, err := s.tokens.VerifyRefreshToken(token)
	if err != nil {
		return nil, NewAuthenticationError("Invalid or expired refresh token")
	}

	if claims.IsSchoolAdmin() {
		school, err := s.schoolRepo.GetBySchoolID(ctx, claims.SchoolID)
		if err != nil || !school.IsOperational() {
			return nil, NewAuthenticationError("Invalid or expired refresh token")
		}
		pair, err := issueTokenPair(s.tokens, claims.Identity())
		if err != nil {
			return nil, err
		}
		return &LoginResult{School: school, Tokens: &pair}, nil
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, NewAuthenticationError("Invalid or expired refresh token")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return nil, NewAuthenticationError("Invalid or expired refresh token")
	}
	pair, err := issueTokenPair(s.tokens, jwt.Identity{
		UserID:   user.ID.String(),
		SchoolID: user.SchoolID,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: &pair}, nil
}

// Logout resolves the session subject from the presented refresh token and
// drops the advisory session entry. Best-effort: an absent or unverifiable
// token is ignored, and the HTTP response never fails.
func (s *authService) Logout(ctx context.Context, token jwt.RefreshToken) {
	if token == "" {
		return
	}
	claims, err := s.tokens.VerifyRefreshToken(token)
	if err != nil {
		return
	}
	subject := claims.UserID
	if subject == "" {
		subject = claims.SchoolID
	}
	if subject == "" {
		return
	}
	if !s.cache.Delete(ctx, cache.NamespaceSessions, subject) {
		s.logger.Warn("session cache invalidation failed on logout", zap.String("subject", subject))
	}
}

func (s *authService) GetMe(ctx context.Context, claims *jwt.Claims) (*Identity, error) {
	if claims.IsSchoolAdmin() {
		school, err := s.schoolRepo.GetBySchoolID(ctx, claims.SchoolID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("School not found")
		}
		if err != nil {
			return nil, fmt.Errorf("resolve school: %w", err)
		}
		return &Identity{Kind: string(model.RoleSchoolAdmin), School: school}, nil
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, NewAuthenticationError("Invalid token")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return &Identity{Kind: "user", User: user}, nil
}

func (s *authService) SystemAdminIdentity(claims *jwt.SystemAdminClaims) *Identity {
	return &Identity{
		Kind: jwt.SystemAdminRole,
		SystemAdmin: &SystemAdminProfile{
			Email:             claims.Email,
			SystemAdminLevel:  claims.SystemAdminLevel,
			CrossSchoolAccess: claims.CrossSchoolAccess,
		},
	}
}

// ForgotPassword never discloses whether the account exists: the caller gets
// the same outcome either way, and only an internal storage failure surfaces.
func (s *authService) ForgotPassword(ctx context.Context, email, schoolID string) error {
	user, err := s.userRepo.GetByEmailAndSchool(ctx, email, schoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	if !user.IsActive || user.IsTemporaryPassword {
		return nil
	}

	resetToken, err := s.tokens.IssuePasswordResetToken(jwt.Identity{
		UserID:   user.ID.String(),
		SchoolID: user.SchoolID,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	school, err := s.schoolRepo.GetBySchoolID(ctx, schoolID)
	schoolName := schoolID
	if err == nil {
		schoolName = school.Name
	}
	s.dispatcher.SendTemplated(ctx, TemplatePasswordReset, user.Email, "Reset your password", map[string]interface{}{
		"FirstName":  user.FirstName,
		"SchoolName": schoolName,
		"ResetURL":   fmt.Sprintf("%s/reset-password?token=%s", s.portalURL, string(resetToken)),
	})
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token jwt.PasswordResetToken, newPassword string) error {
	claims, err := s.tokens.VerifyPasswordResetToken(token)
	if err != nil {
		return NewAuthenticationError("Invalid or expired reset token")
	}
	if len(newPassword) < 8 {
		return NewValidationError("New password must be at least 8 characters long")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return NewAuthenticationError("Invalid or expired reset token")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewAuthenticationError("Invalid or expired reset token")
	}
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = hash
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *authService) resolveOperationalSchool(ctx context.Context, schoolID string) (*model.School, error) {
	school, err := s.schoolRepo.GetBySchoolID(ctx, schoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewAuthenticationError("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve school: %w", err)
	}
	if !school.IsOperational() {
		return nil, NewAuthorizationError("This school is not currently active")
	}
	return school, nil
}

func (s *authService) rememberSession(ctx context.Context, subject string, entry sessionEntry) {
	s.cache.Set(ctx, cache.NamespaceSessions, subject, entry, s.tokens.AccessTokenTTL())
}

func issueTokenPair(tokens *jwt.Manager, identity jwt.Identity) (TokenPair, error) {
	access, err := tokens.IssueAccessToken(identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := tokens.IssueRefreshToken(identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		ExpiresIn:    int64(tokens.AccessTokenTTL().Seconds()),
		RefreshToken: refresh,
	}, nil
}
