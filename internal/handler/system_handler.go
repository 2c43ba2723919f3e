package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edubase/schoolhub/internal/service"
	"edubase/schoolhub/pkg/response"
)

// SystemHandler serves the system-admin surface: bootstrap login, school
// verification and the manual expiry sweep.
type SystemHandler struct {
	authService       service.AuthService
	schoolService     service.SchoolService
	invitationService service.InvitationService
	logger            *zap.Logger
}

func NewSystemHandler(
	authService service.AuthService,
	schoolService service.SchoolService,
	invitationService service.InvitationService,
	logger *zap.Logger,
) *SystemHandler {
	return &SystemHandler{
		authService:       authService,
		schoolService:     schoolService,
		invitationService: invitationService,
		logger:            logger,
	}
}

type SystemLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SetSchoolActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (h *SystemHandler) Login(c *gin.Context) {
	var req SystemLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.authService.SystemAdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, result)
}

func (h *SystemHandler) Me(c *gin.Context) {
	claims, ok := getSystemAdminClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "Invalid token")
		return
	}
	response.Success(c, h.authService.SystemAdminIdentity(claims))
}

func (h *SystemHandler) ListSchools(c *gin.Context) {
	schools, err := h.schoolService.ListSchools(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, schools)
}

func (h *SystemHandler) VerifySchool(c *gin.Context) {
	school, err := h.schoolService.VerifySchool(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SuccessMessage(c, "School verified", school)
}

func (h *SystemHandler) SetSchoolActive(c *gin.Context) {
	var req SetSchoolActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	school, err := h.schoolService.SetSchoolActive(c.Request.Context(), c.Param("schoolId"), *req.IsActive)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, school)
}

// SweepInvitations runs the expiry sweep on demand, outside its cron
// schedule. Safe to trigger while a scheduled run is in flight.
func (h *SystemHandler) SweepInvitations(c *gin.Context) {
	count, err := h.invitationService.SweepExpired(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{"expired": count})
}
