package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"edubase/schoolhub/internal/service"
	"edubase/schoolhub/pkg/response"
)

type StudentHandler struct {
	studentService service.StudentService
	logger         *zap.Logger
}

func NewStudentHandler(studentService service.StudentService, logger *zap.Logger) *StudentHandler {
	return &StudentHandler{studentService: studentService, logger: logger}
}

type CreateStudentRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Grade       string `json:"grade"`
	DateOfBirth string `json:"dateOfBirth"` // YYYY-MM-DD
}

type SetStudentActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (h *StudentHandler) Create(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	var req CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	in := service.StudentInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Grade:     req.Grade,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			response.BadRequest(c, "Invalid date of birth, expected YYYY-MM-DD")
			return
		}
		in.DateOfBirth = &dob
	}

	student, err := h.studentService.CreateStudent(c.Request.Context(), claims.SchoolID, in)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Created(c, student)
}

func (h *StudentHandler) Get(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid student ID")
		return
	}

	student, err := h.studentService.GetStudent(c.Request.Context(), claims.SchoolID, studentID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, student)
}

func (h *StudentHandler) List(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	students, err := h.studentService.ListStudents(c.Request.Context(), claims.SchoolID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, students)
}

// ListMine returns the students linked to the calling parent account.
func (h *StudentHandler) ListMine(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	students, err := h.studentService.ListStudentsForParent(c.Request.Context(), claims.SchoolID, claims.UserID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, students)
}

func (h *StudentHandler) SetActive(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid student ID")
		return
	}

	var req SetStudentActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	student, err := h.studentService.SetStudentActive(c.Request.Context(), claims.SchoolID, studentID, *req.IsActive)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Success(c, student)
}
