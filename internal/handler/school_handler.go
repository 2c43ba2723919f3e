package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edubase/schoolhub/internal/model"
	"edubase/schoolhub/internal/service"
	"edubase/schoolhub/pkg/response"
)

type SchoolHandler struct {
	schoolService service.SchoolService
	logger        *zap.Logger
}

func NewSchoolHandler(schoolService service.SchoolService, logger *zap.Logger) *SchoolHandler {
	return &SchoolHandler{schoolService: schoolService, logger: logger}
}

type RegisterSchoolRequest struct {
	Name     string             `json:"name" binding:"required"`
	Email    string             `json:"email" binding:"required"`
	Password string             `json:"password" binding:"required"`
	Address  string             `json:"address"`
	Phone    string             `json:"phone"`
	Admin    SchoolAdminRequest `json:"admin" binding:"required"`
}

type SchoolAdminRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// Register creates a school tenant and its first admin account. The school
// stays unverified until a system admin approves it.
func (h *SchoolHandler) Register(c *gin.Context) {
	var req RegisterSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.schoolService.RegisterSchool(c.Request.Context(), service.RegisterSchoolInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Address:        req.Address,
		Phone:          req.Phone,
		AdminFirstName: req.Admin.FirstName,
		AdminLastName:  req.Admin.LastName,
		AdminEmail:     req.Admin.Email,
		AdminPassword:  req.Admin.Password,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Created(c, result)
}

// Me returns the calling actor's school.
func (h *SchoolHandler) Me(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	school, err := h.schoolService.GetSchool(c.Request.Context(), claims.SchoolID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, school)
}

// ListMembers returns the school's user accounts, optionally filtered by role.
func (h *SchoolHandler) ListMembers(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	role := model.Role(c.Query("role"))
	switch role {
	case "", model.RoleAdmin, model.RoleTeacher, model.RoleParent:
	default:
		response.BadRequest(c, "Invalid role filter")
		return
	}

	members, err := h.schoolService.ListMembers(c.Request.Context(), claims.SchoolID, role)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, members)
}
