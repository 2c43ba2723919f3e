package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"edubase/schoolhub/internal/model"
	"edubase/schoolhub/internal/service"
	jwtpkg "edubase/schoolhub/pkg/jwt"
	"edubase/schoolhub/pkg/response"
)

type InvitationHandler struct {
	invitationService service.InvitationService
	tokens            *jwtpkg.Manager
	logger            *zap.Logger
}

func NewInvitationHandler(invitationService service.InvitationService, tokens *jwtpkg.Manager, logger *zap.Logger) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService, tokens: tokens, logger: logger}
}

type InviteTeacherRequest struct {
	Email     string   `json:"email" binding:"required"`
	FirstName string   `json:"firstName" binding:"required"`
	LastName  string   `json:"lastName" binding:"required"`
	Subjects  []string `json:"subjects"`
	Classes   []string `json:"classes"`
	Message   string   `json:"message"`
}

type InviteParentRequest struct {
	Email      string   `json:"email" binding:"required"`
	FirstName  string   `json:"firstName" binding:"required"`
	LastName   string   `json:"lastName" binding:"required"`
	StudentIDs []string `json:"studentIds"`
	Message    string   `json:"message"`
}

type CancelInvitationRequest struct {
	Reason string `json:"reason"`
}

type CompleteRegistrationRequest struct {
	Email           string   `json:"email" binding:"required"`
	SchoolID        string   `json:"schoolId" binding:"required"`
	CurrentPassword string   `json:"currentPassword" binding:"required"`
	NewPassword     string   `json:"newPassword" binding:"required"`
	Phone           string   `json:"phone"`
	Subjects        []string `json:"subjects"`
	Classes         []string `json:"classes"`
}

func (h *InvitationHandler) InviteTeacher(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	actorID, err := actorFromClaims(claims)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	var req InviteTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.invitationService.InviteTeacher(c.Request.Context(), claims.SchoolID, actorID, service.TeacherInvitationInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Subjects:  req.Subjects,
		Classes:   req.Classes,
		Message:   req.Message,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Created(c, result)
}

func (h *InvitationHandler) InviteParent(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	actorID, err := actorFromClaims(claims)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	var req InviteParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.invitationService.InviteParent(c.Request.Context(), claims.SchoolID, actorID, service.ParentInvitationInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		StudentIDs: req.StudentIDs,
		Message:    req.Message,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Created(c, result)
}

func (h *InvitationHandler) Resend(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invitation ID")
		return
	}

	result, err := h.invitationService.ResendInvitation(c.Request.Context(), claims.SchoolID, invitationID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, result)
}

func (h *InvitationHandler) Cancel(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	actorID, err := actorFromClaims(claims)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invitation ID")
		return
	}

	// The body is optional; cancelling without a reason is fine.
	var req CancelInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	view, err := h.invitationService.CancelInvitation(c.Request.Context(), claims.SchoolID, invitationID, actorID, req.Reason)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SuccessMessage(c, "Invitation cancelled", view)
}

func (h *InvitationHandler) Get(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invitation ID")
		return
	}

	view, err := h.invitationService.GetInvitation(c.Request.Context(), claims.SchoolID, invitationID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, view)
}

// Validate is the unauthenticated landing-page lookup behind an invite link.
// The token arrives as a query parameter; the request logger never records
// query strings, so it stays out of the logs.
func (h *InvitationHandler) Validate(c *gin.Context) {
	preview, err := h.invitationService.ValidateInvitationToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, preview)
}

func (h *InvitationHandler) List(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	status := model.InvitationStatus(c.Query("status"))
	switch status {
	case "", model.InvitationPending, model.InvitationAccepted,
		model.InvitationExpired, model.InvitationCancelled:
	default:
		response.BadRequest(c, "Invalid status filter")
		return
	}

	views, err := h.invitationService.ListInvitations(c.Request.Context(), claims.SchoolID, status)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, views)
}

func (h *InvitationHandler) ListExpired(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	views, err := h.invitationService.ListExpiredInvitations(c.Request.Context(), claims.SchoolID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, views)
}

func (h *InvitationHandler) Stats(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	stats, err := h.invitationService.GetStats(c.Request.Context(), claims.SchoolID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, stats)
}

// CompleteRegistration exchanges the temporary credential for a permanent
// one and logs the account in.
func (h *InvitationHandler) CompleteRegistration(c *gin.Context) {
	var req CompleteRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.invitationService.CompleteRegistration(c.Request.Context(), service.CompleteRegistrationInput{
		Email:           req.Email,
		SchoolID:        req.SchoolID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		Phone:           req.Phone,
		Subjects:        req.Subjects,
		Classes:         req.Classes,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	setRefreshCookie(c, result.Tokens.RefreshToken, h.tokens.RefreshTokenTTL())
	response.Success(c, result)
}
