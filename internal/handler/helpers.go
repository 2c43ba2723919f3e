package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"edubase/schoolhub/internal/handler/middleware"
	"edubase/schoolhub/internal/service"
	jwtpkg "edubase/schoolhub/pkg/jwt"
	"edubase/schoolhub/pkg/response"
)

// refreshCookieName scopes the refresh token to the auth endpoints; it never
// travels in a response body.
const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

var ErrNoClaims = errors.New("claims not found in context")

func getClaimsFromContext(c *gin.Context) (*jwtpkg.Claims, error) {
	claimsVal, exists := c.Get(middleware.ContextKeyUserClaims)
	if !exists {
		return nil, ErrNoClaims
	}
	claims, ok := claimsVal.(*jwtpkg.Claims)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

func getSystemAdminClaimsFromContext(c *gin.Context) (*jwtpkg.SystemAdminClaims, bool) {
	claimsVal, exists := c.Get(middleware.ContextKeySystemAdminClaims)
	if !exists {
		return nil, false
	}
	claims, ok := claimsVal.(*jwtpkg.SystemAdminClaims)
	return claims, ok
}

// actorFromClaims extracts the acting user's ID. School-admin tokens carry no
// user ID; they resolve to uuid.Nil and the service layer falls back to the
// school's admin account.
func actorFromClaims(claims *jwtpkg.Claims) (uuid.UUID, error) {
	if claims.UserID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(claims.UserID)
}

// handleServiceError translates the service error taxonomy onto HTTP status
// codes. Anything outside the taxonomy becomes a generic 500; the detail is
// logged server-side only.
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validationErr     *service.ValidationError
		authenticationErr *service.AuthenticationError
		authorizationErr  *service.AuthorizationError
		notFoundErr       *service.NotFoundError
		conflictErr       *service.ConflictError
		invalidStateErr   *service.InvalidStateError
	)

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(c, validationErr.Message)
	case errors.As(err, &invalidStateErr):
		response.BadRequest(c, invalidStateErr.Error())
	case errors.As(err, &authenticationErr):
		response.Unauthorized(c, authenticationErr.Message)
	case errors.As(err, &authorizationErr):
		response.Forbidden(c, authorizationErr.Message)
	case errors.As(err, &notFoundErr):
		response.NotFound(c, notFoundErr.Message)
	case errors.As(err, &conflictErr):
		response.Conflict(c, conflictErr.Message)
	default:
		logger.Error("unhandled service error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		response.InternalError(c, "An unexpected error occurred")
	}
}

func setRefreshCookie(c *gin.Context, token jwtpkg.RefreshToken, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, string(token), int(ttl.Seconds()), refreshCookiePath, "", gin.Mode() == gin.ReleaseMode, true)
}

func clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", gin.Mode() == gin.ReleaseMode, true)
}
