package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edubase/schoolhub/internal/config"
	"edubase/schoolhub/internal/handler/middleware"
	"edubase/schoolhub/internal/model"
	jwtpkg "edubase/schoolhub/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	tokens *jwtpkg.Manager,
	authHandler *AuthHandler,
	invitationHandler *InvitationHandler,
	schoolHandler *SchoolHandler,
	studentHandler *StudentHandler,
	systemHandler *SystemHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	// Public auth routes. Refresh and logout are driven by the HttpOnly
	// cookie; complete-registration authenticates with the temporary
	// credential itself.
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/complete-registration", invitationHandler.CompleteRegistration)
	}

	// Public school registration
	api.POST("/schools", schoolHandler.Register)

	// Public invite-link lookup, token in the query string
	api.GET("/invitations/validate", invitationHandler.Validate)

	// Authenticated routes
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(tokens))
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.GET("/schools/me", middleware.RequireSchoolActor(), schoolHandler.Me)
	}

	// School-scoped routes
	school := protected.Group("")
	school.Use(middleware.RequireSchoolActor())
	{
		// Invitation management (school admins only)
		admin := school.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/teachers/invitations", invitationHandler.InviteTeacher)
			admin.POST("/parents/invitations", invitationHandler.InviteParent)

			invitations := admin.Group("/invitations")
			{
				invitations.GET("", invitationHandler.List)
				invitations.GET("/:id", invitationHandler.Get)
				invitations.POST("/:id/resend", invitationHandler.Resend)
				invitations.POST("/:id/cancel", invitationHandler.Cancel)
			}

			dashboard := admin.Group("/dashboard/invitations")
			{
				dashboard.GET("/stats", invitationHandler.Stats)
				dashboard.GET("/expired", invitationHandler.ListExpired)
			}

			admin.GET("/members", schoolHandler.ListMembers)

			admin.POST("/students", studentHandler.Create)
			admin.PUT("/students/:id/active", studentHandler.SetActive)
		}

		// Student directory (school staff)
		staff := school.Group("/students")
		staff.Use(middleware.RequireRole(model.RoleSchoolAdmin, model.RoleAdmin, model.RoleTeacher))
		{
			staff.GET("", studentHandler.List)
			staff.GET("/:id", studentHandler.Get)
		}

		// Parent view of their own linked students
		parents := school.Group("/parents")
		parents.Use(middleware.RequireRole(model.RoleParent))
		{
			parents.GET("/students", studentHandler.ListMine)
		}
	}

	// System-admin surface
	system := api.Group("/system")
	{
		system.POST("/login", systemHandler.Login)

		sysAdmin := system.Group("")
		sysAdmin.Use(middleware.SystemAdminAuth(tokens))
		{
			sysAdmin.GET("/me", systemHandler.Me)
			sysAdmin.GET("/schools", systemHandler.ListSchools)
			sysAdmin.POST("/schools/:schoolId/verify", systemHandler.VerifySchool)
			sysAdmin.PUT("/schools/:schoolId/active", systemHandler.SetSchoolActive)
			sysAdmin.POST("/invitations/sweep", systemHandler.SweepInvitations)
		}
	}

	return r
}
