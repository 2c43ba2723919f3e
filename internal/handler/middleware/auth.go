package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"edubase/schoolhub/internal/model"
	jwtpkg "edubase/schoolhub/pkg/jwt"
	"edubase/schoolhub/pkg/response"
)

const (
	ContextKeyUserClaims        = "user_claims"
	ContextKeySystemAdminClaims = "system_admin_claims"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// JWTAuth authenticates requests carrying an access token. System-admin
// tokens are a separate family signed with their own secret; they are
// accepted here too so that identity endpoints can serve all token shapes,
// and land under their own context key.
func JWTAuth(tokens *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Authorization header is missing or malformed")
			c.Abort()
			return
		}

		claims, err := tokens.VerifyAccessToken(jwtpkg.AccessToken(raw))
		if err == nil {
			c.Set(ContextKeyUserClaims, claims)
			c.Next()
			return
		}
		if errors.Is(err, jwtpkg.ErrTokenExpired) {
			response.Unauthorized(c, "Token has expired")
			c.Abort()
			return
		}

		saClaims, saErr := tokens.VerifySystemAdminToken(jwtpkg.SystemAdminToken(raw))
		if saErr == nil {
			c.Set(ContextKeySystemAdminClaims, saClaims)
			c.Next()
			return
		}
		if errors.Is(saErr, jwtpkg.ErrTokenExpired) {
			response.Unauthorized(c, "Token has expired")
		} else {
			response.Unauthorized(c, "Invalid token")
		}
		c.Abort()
	}
}

// RequireSchoolActor restricts a route to tokens scoped to a school: a
// school-admin token or a regular user token. Must run after JWTAuth.
func RequireSchoolActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsVal, exists := c.Get(ContextKeyUserClaims)
		if !exists {
			response.Forbidden(c, "This endpoint requires a school account")
			c.Abort()
			return
		}
		claims, ok := claimsVal.(*jwtpkg.Claims)
		if !ok || claims.SchoolID == "" {
			response.Forbidden(c, "This endpoint requires a school account")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin restricts a route to school administrators: either a
// school-admin token (schoolId without userId) or a user token carrying the
// admin role. Must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsVal, exists := c.Get(ContextKeyUserClaims)
		if !exists {
			response.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		claims, ok := claimsVal.(*jwtpkg.Claims)
		if !ok {
			response.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		if !claims.IsSchoolAdmin() && claims.Role != string(model.RoleAdmin) {
			response.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole restricts a route to user tokens carrying one of the given
// roles. Must run after JWTAuth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsVal, exists := c.Get(ContextKeyUserClaims)
		if !exists {
			response.Forbidden(c, "Insufficient permissions")
			c.Abort()
			return
		}
		claims, ok := claimsVal.(*jwtpkg.Claims)
		if !ok {
			response.Forbidden(c, "Insufficient permissions")
			c.Abort()
			return
		}
		if _, found := allowed[claims.Role]; !found {
			response.Forbidden(c, "Insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SystemAdminAuth authenticates requests against the system-admin token
// family only. Regular access tokens are rejected regardless of role.
func SystemAdminAuth(tokens *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Authorization header is missing or malformed")
			c.Abort()
			return
		}

		claims, err := tokens.VerifySystemAdminToken(jwtpkg.SystemAdminToken(raw))
		if err != nil {
			if errors.Is(err, jwtpkg.ErrTokenExpired) {
				response.Unauthorized(c, "Token has expired")
			} else {
				response.Unauthorized(c, "Invalid token")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeySystemAdminClaims, claims)
		c.Next()
	}
}
