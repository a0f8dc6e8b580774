package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/config"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/services"
	"github.com/SURE-Trust/certificate-service/internal/utils"
)

type HandlerManager struct {
	certificateHandler *CertificateHandler
	authHandler        *AuthHandler
	claimHandler       *ClaimHandler
	userHandler        *UserHandler
	adminHandler       *AdminHandler
	authMiddleware     *JWTAuthMiddleware

	serviceManager services.ServiceManager
	rateLimitStore cache.RateLimitStore
	cfg            *config.Config
	logger         utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	rateLimitStore cache.RateLimitStore,
	cfg *config.Config,
) *HandlerManager {
	return &HandlerManager{
		certificateHandler: NewCertificateHandler(serviceManager.Certificate(), serviceManager.Verification(), logger),
		authHandler:        NewAuthHandler(serviceManager.Auth(), logger),
		claimHandler:       NewClaimHandler(serviceManager.Claim(), logger),
		userHandler:        NewUserHandler(serviceManager.User(), cfg.AvatarDir, logger),
		adminHandler:       NewAdminHandler(serviceManager.Admin(), logger),
		authMiddleware:     NewJWTAuthMiddleware(serviceManager.Auth()),
		serviceManager:     serviceManager,
		rateLimitStore:     rateLimitStore,
		cfg:                cfg,
		logger:             logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "certificate-service",
		})
	})
	router.GET("/health/detailed", func(c *gin.Context) {
		checks := hm.serviceManager.HealthCheck(c.Request.Context())
		status := http.StatusOK
		for _, v := range checks {
			if v != "healthy" && v != "disabled" {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"checks": checks})
	})

	// Uploaded avatars are served as-is.
	router.Static("/uploads/avatars", hm.cfg.AvatarDir)

	authLimit := RateLimitMiddleware(hm.rateLimitStore, "auth", hm.cfg.RateLimit.AuthMax, hm.cfg.RateLimit.Window, hm.logger)
	verifyLimit := RateLimitMiddleware(hm.rateLimitStore, "verify", hm.cfg.RateLimit.VerifyMax, hm.cfg.RateLimit.Window, hm.logger)

	requireAuth := hm.authMiddleware.AuthMiddleware()
	requireAdmin := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		certificates := v1.Group("/certificates")
		{
			// Public verification endpoint. Everything else on the group is
			// operator-only.
			certificates.GET("/verify/:code", verifyLimit, hm.certificateHandler.VerifyCertificate)

			certificates.POST("", requireAuth, requireAdmin, hm.certificateHandler.GenerateCertificate)
			certificates.GET("", requireAuth, requireAdmin, hm.certificateHandler.ListCertificates)
			certificates.DELETE("/:id", requireAuth, requireAdmin, hm.certificateHandler.DeactivateCertificate)
			certificates.POST("/:id/reactivate", requireAuth, requireAdmin, hm.certificateHandler.ReactivateCertificate)

			// Owner-or-admin, enforced in the handler.
			certificates.GET("/:id", requireAuth, hm.certificateHandler.GetCertificate)
			certificates.GET("/:id/pdf", requireAuth, hm.certificateHandler.DownloadPDF)
			certificates.GET("/:id/image", requireAuth, hm.certificateHandler.DownloadImage)
		}

		auth := v1.Group("/auth", authLimit)
		{
			auth.POST("/register", hm.authHandler.Register)
			auth.POST("/login", hm.authHandler.Login)
			auth.POST("/google", hm.authHandler.GoogleLogin)
			auth.POST("/refresh", hm.authHandler.Refresh)
			auth.POST("/logout", hm.authHandler.Logout)
			auth.POST("/verify-email", hm.authHandler.VerifyEmail)
			auth.GET("/verify-email", hm.authHandler.VerifyEmail)
			auth.POST("/forgot-password", hm.authHandler.ForgotPassword)
			auth.POST("/reset-password", hm.authHandler.ResetPassword)
		}

		claims := v1.Group("/claims")
		{
			claims.GET("/:code", verifyLimit, hm.claimHandler.ClaimStatus)
			claims.POST("/:code", requireAuth, hm.claimHandler.Claim)
		}

		me := v1.Group("/users/me", requireAuth)
		{
			me.GET("", hm.userHandler.GetProfile)
			me.PUT("", hm.userHandler.UpdateProfile)
			me.DELETE("", hm.userHandler.DeleteAccount)
			me.POST("/avatar", hm.userHandler.UploadAvatar)
			me.PUT("/password", hm.userHandler.ChangePassword)
			me.GET("/certificates", hm.userHandler.ListMyCertificates)
		}

		admin := v1.Group("/admin", requireAuth, requireAdmin)
		{
			admin.GET("/dashboard", hm.adminHandler.Dashboard)
			admin.GET("/users", hm.adminHandler.ListUsers)
			admin.GET("/users/:id", hm.adminHandler.GetUser)
			admin.PUT("/users/:id", hm.adminHandler.UpdateUser)
			admin.DELETE("/users/:id", hm.adminHandler.DeleteUser)
			admin.GET("/certificates/stats", hm.adminHandler.CertificateStats)
			admin.GET("/verification-logs", hm.adminHandler.VerificationLogs)
		}
	}
}
