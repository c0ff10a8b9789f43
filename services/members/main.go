package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/assets"
	"github.com/pavitra93/go-coliving-admin/shared/config"
	"github.com/pavitra93/go-coliving-admin/shared/metrics"
	"github.com/pavitra93/go-coliving-admin/shared/middleware"
	"github.com/pavitra93/go-coliving-admin/shared/occupancy"
	"github.com/pavitra93/go-coliving-admin/shared/store"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	log := config.SetupLogging("members")
	ctx := context.Background()

	inv, err := config.LoadInventory()
	if err != nil {
		log.Fatal("Failed to load room inventory: ", err)
	}

	repo, closeRepo, err := store.Open(ctx, config.GetDatabaseConfig(), true)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer closeRepo()

	images, err := newAssetStore()
	if err != nil {
		log.Fatal("Failed to initialize asset storage: ", err)
	}

	authMiddleware, err := middleware.NewAuthMiddleware(config.GetEnv("JWT_SECRET", ""))
	if err != nil {
		log.Fatal("Failed to initialize auth middleware: ", err)
	}

	// Redis backs both room locks and the logout denylist when reachable
	redisClient, err := utils.NewRedisClient(ctx, config.GetRedisConfig())
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, room locks are process-local and token revocation is disabled")
	} else {
		defer redisClient.Close()
		authMiddleware.WithRevocations(utils.NewTokenDenylist(redisClient))
	}

	members := store.NewMemberStore(repo, occupancy.NewResolver(inv), newRoomLocker(redisClient), images, log)
	router := setupRouter(members, images, authMiddleware)

	port := config.GetEnv("MEMBERS_SERVICE_PORT", "8002")
	log.Infof("Members service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start members service: ", err)
	}
}

// newRoomLocker shares room locks across replicas through Redis and falls
// back to in-process locks without a client
func newRoomLocker(client *redis.Client) store.RoomLocker {
	if client == nil {
		return store.NewLocalRoomLocker()
	}
	ttl := config.GetEnvDuration("ROOM_LOCK_TTL", 10*time.Second)
	return store.NewRedisRoomLocker(client, ttl)
}

func newAssetStore() (assets.Store, error) {
	if config.GetEnv("ASSET_BACKEND", "disk") == "s3" {
		return assets.NewS3Store(config.GetEnv("AWS_REGION", "ap-south-1"), config.GetEnv("S3_BUCKET", "coliving-assets"))
	}
	return assets.NewDiskStore(config.GetEnv("UPLOAD_DIR", "uploads"))
}

func setupRouter(members *store.MemberStore, images assets.Store, auth *middleware.AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Members service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	if disk, ok := images.(*assets.DiskStore); ok {
		router.GET("/uploads/:name", func(c *gin.Context) {
			c.File(disk.Path(c.Param("name")))
		})
	}

	api := router.Group("/")
	api.Use(auth.RequireAuth(), auth.RequireRole(middleware.RoleAdmin))
	{
		api.POST("/members", handleCreateMember(members, images))
		api.GET("/members", handleListMembers(members))
		api.GET("/members/:id", handleGetMember(members))
		api.PUT("/members/:id", handleUpdateMember(members))
		api.POST("/members/:id/image", handleReplaceImage(members, images))
		api.DELETE("/members/:id", handleDeleteMember(members))

		api.GET("/rooms/occupancy", handleOccupancy(members))
		api.GET("/rooms/available", handleAvailableRooms(members))
		api.GET("/rooms/summary", handleRoomSummary(members))
		api.GET("/rooms/export", handleExport(members))
		api.GET("/inventory", handleInventory(members))
	}

	return router
}
