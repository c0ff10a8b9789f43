package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/config"
	"github.com/pavitra93/go-coliving-admin/shared/metrics"
	"github.com/pavitra93/go-coliving-admin/shared/middleware"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	log := config.SetupLogging("auth")

	admin, err := NewAdminAccount(config.GetEnv("ADMIN_EMAIL", ""), config.GetEnv("ADMIN_PASSWORD_HASH", ""))
	if err != nil {
		log.Fatal("Failed to load admin account: ", err)
	}

	authMiddleware, err := middleware.NewAuthMiddleware(config.GetEnv("JWT_SECRET", ""))
	if err != nil {
		log.Fatal("Failed to initialize auth middleware: ", err)
	}

	// Logout needs Redis; without it tokens live until expiry
	var revoker tokenRevoker
	client, err := utils.NewRedisClient(context.Background(), config.GetRedisConfig())
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, logout will not revoke tokens")
	} else {
		denylist := utils.NewTokenDenylist(client)
		authMiddleware.WithRevocations(denylist)
		revoker = denylist
	}

	ttl := config.GetEnvDuration("TOKEN_TTL", 12*time.Hour)
	router := setupRouter(admin, authMiddleware, revoker, ttl)

	port := config.GetEnv("AUTH_SERVICE_PORT", "8001")
	log.Infof("Auth service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start auth service: ", err)
	}
}

func setupRouter(admin *AdminAccount, auth *middleware.AuthMiddleware, revoker tokenRevoker, ttl time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Auth service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", handleLogin(admin, auth, ttl))
		authGroup.GET("/verify", auth.RequireAuth(), handleVerifyToken())
		authGroup.POST("/logout", auth.RequireAuth(), handleLogout(revoker))
	}

	return router
}
