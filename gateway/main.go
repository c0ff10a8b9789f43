package main

import (
	"context"
	"net/http"

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
	log := config.SetupLogging("gateway")

	authMiddleware, err := middleware.NewAuthMiddleware(config.GetEnv("JWT_SECRET", ""))
	if err != nil {
		log.Fatal("Failed to initialize auth middleware: ", err)
	}

	// Logged out tokens are rejected when Redis is reachable
	if client, err := utils.NewRedisClient(context.Background(), config.GetRedisConfig()); err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, token revocation disabled")
	} else {
		authMiddleware.WithRevocations(utils.NewTokenDenylist(client))
	}

	serviceClients := &ServiceClients{
		AuthService:     NewServiceClient("auth", config.GetEnv("AUTH_SERVICE_URL", "http://localhost:8001")),
		MembersService:  NewServiceClient("members", config.GetEnv("MEMBERS_SERVICE_URL", "http://localhost:8002")),
		RentalService:   NewServiceClient("rental", config.GetEnv("RENTAL_SERVICE_URL", "http://localhost:8003")),
		NotifierService: NewServiceClient("notifier", config.GetEnv("NOTIFIER_SERVICE_URL", "http://localhost:8004")),
		RetryConsumer:   NewServiceClient("retry_consumer", config.GetEnv("RETRY_CONSUMER_URL", "http://localhost:8085")),
	}

	router := setupRouter(authMiddleware, serviceClients, config.GetEnv("CORS_ALLOW_ORIGIN", "*"))

	port := config.GetEnv("API_GATEWAY_PORT", "8080")
	log.Infof("API Gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start API Gateway: ", err)
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func setupRouter(auth *middleware.AuthMiddleware, services *ServiceClients, origin string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware(origin), metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "API Gateway is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	router.POST("/auth/login", services.AuthService.ProxyRequest)

	// Everything else needs an admin token
	protected := router.Group("/")
	protected.Use(auth.RequireAuth(), auth.RequireRole(middleware.RoleAdmin), middleware.ForwardIdentity())
	{
		protected.GET("/status", func(c *gin.Context) {
			status, healthy := services.GetServiceStatus(c.Request.Context())
			if !healthy {
				utils.SuccessResponse(c, http.StatusServiceUnavailable, "Some services are unhealthy", status)
				return
			}
			utils.OKResponse(c, "All services are healthy", status)
		})

		protected.GET("/auth/verify", services.AuthService.ProxyRequest)
		protected.POST("/auth/logout", services.AuthService.ProxyRequest)

		protected.Any("/members", services.MembersService.ProxyRequest)
		protected.Any("/members/*path", services.MembersService.ProxyRequest)
		protected.GET("/rooms/*path", services.MembersService.ProxyRequest)
		protected.GET("/inventory", services.MembersService.ProxyRequest)
		protected.GET("/uploads/*path", services.MembersService.ProxyRequest)

		protected.Any("/rental/*path", services.RentalService.ProxyRequest)

		protected.GET("/notifier/*path", services.NotifierService.ProxyRequest)
		protected.POST("/notifier/*path", services.NotifierService.ProxyRequest)
		protected.GET("/retry/stats", func(c *gin.Context) {
			c.Request.URL.Path = "/stats"
			services.RetryConsumer.ProxyRequest(c)
		})
	}

	return router
}
