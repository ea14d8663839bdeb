package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/handler/middleware"
	"midas/reimbursehub/internal/model"
)

type Handlers struct {
	Auth          *AuthHandler
	Groups        *GroupHandler
	Reimbursement *ReimbursementHandler
	Admin         *AdminHandler
}

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authenticator middleware.Authenticator,
	h Handlers,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public auth routes
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
	}

	joinLimiter := middleware.NewRateLimiter(cfg.RateLimit.JoinPerMinute, cfg.RateLimit.Burst)

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(authenticator))
	{
		protected.GET("/me", h.Auth.Me)

		protected.GET("/groups", h.Groups.List)
		protected.GET("/groups/:id", h.Groups.Get)
		protected.POST("/groups/join", joinLimiter.Handler(), h.Groups.Join)
		protected.POST("/groups/active", h.Groups.SwitchActive)

		protected.POST("/reimbursements", middleware.RequireRole(model.RoleMember), h.Reimbursement.Submit)
		protected.GET("/reimbursements", h.Reimbursement.ListMine)
	}

	// Admin routes (JWT + admin role)
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuth(authenticator))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	{
		admin.POST("/invite-codes", h.Admin.CreateInviteCode)
		admin.GET("/invite-codes", h.Admin.ListInviteCodes)
		admin.POST("/groups", h.Admin.CreateGroup)
		admin.GET("/groups", h.Admin.ListGroups)
		admin.GET("/users", h.Admin.ListUsers)
		admin.GET("/reimbursements", h.Admin.ListReimbursements)
	}

	return r
}
