package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edubase/schoolhub/internal/service"
	jwtpkg "edubase/schoolhub/pkg/jwt"
	"edubase/schoolhub/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
	tokens      *jwtpkg.Manager
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, tokens *jwtpkg.Manager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	SchoolID string `json:"schoolId" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email    string `json:"email" binding:"required"`
	SchoolID string `json:"schoolId" binding:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		SchoolID: req.SchoolID,
		Role:     req.Role,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	if result.Tokens != nil {
		setRefreshCookie(c, result.Tokens.RefreshToken, h.tokens.RefreshTokenTTL())
	}
	response.Success(c, result)
}

// Refresh rotates the token pair. The refresh token arrives only via its
// HttpOnly cookie; there is no body parameter for it.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		response.Unauthorized(c, "Invalid or expired refresh token")
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), jwtpkg.RefreshToken(raw))
	if err != nil {
		clearRefreshCookie(c)
		handleServiceError(c, h.logger, err)
		return
	}

	setRefreshCookie(c, result.Tokens.RefreshToken, h.tokens.RefreshTokenTTL())
	response.Success(c, result)
}

// Logout never fails: it clears the cookie and best-effort invalidates the
// cached session, whatever state the presented token is in.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, err := c.Cookie(refreshCookieName)
	if err == nil && raw != "" {
		h.authService.Logout(c.Request.Context(), jwtpkg.RefreshToken(raw))
	}
	clearRefreshCookie(c)
	response.SuccessMessage(c, "Logged out successfully", nil)
}

// Me resolves the caller's identity from whichever token shape the request
// carried: system-admin, school-admin, or regular user.
func (h *AuthHandler) Me(c *gin.Context) {
	if saClaims, ok := getSystemAdminClaimsFromContext(c); ok {
		response.Success(c, h.authService.SystemAdminIdentity(saClaims))
		return
	}

	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	identity, err := h.authService.GetMe(c.Request.Context(), claims)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, identity)
}

// ForgotPassword always answers with the same message; whether the account
// exists must not be observable from this endpoint.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email, req.SchoolID); err != nil {
		h.logger.Error("forgot-password processing failed", zap.Error(err))
	}
	response.SuccessMessage(c, "If an account exists, an email has been sent", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), jwtpkg.PasswordResetToken(req.Token), req.NewPassword); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SuccessMessage(c, "Password has been reset", nil)
}
