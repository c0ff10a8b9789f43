package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/config"
	"github.com/pavitra93/go-coliving-admin/shared/ledger"
	"github.com/pavitra93/go-coliving-admin/shared/metrics"
	"github.com/pavitra93/go-coliving-admin/shared/middleware"
	"github.com/pavitra93/go-coliving-admin/shared/notify"
	"github.com/pavitra93/go-coliving-admin/shared/store"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	log := config.SetupLogging("rental")
	ctx := context.Background()

	repo, closeRepo, err := store.Open(ctx, config.GetDatabaseConfig(), false)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer closeRepo()

	notifier, closeNotifier, err := newNotifier(log)
	if err != nil {
		log.Fatal("Failed to initialize notification transport: ", err)
	}

	// Close the producer on shutdown so queued events are flushed
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received")
		if err := closeNotifier.Close(); err != nil {
			log.WithError(err).Error("Failed to close notification transport")
		}
		closeRepo()
		os.Exit(0)
	}()

	authMiddleware, err := middleware.NewAuthMiddleware(config.GetEnv("JWT_SECRET", ""))
	if err != nil {
		log.Fatal("Failed to initialize auth middleware: ", err)
	}

	if client, err := utils.NewRedisClient(ctx, config.GetRedisConfig()); err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, token revocation disabled")
	} else {
		defer client.Close()
		authMiddleware.WithRevocations(utils.NewTokenDenylist(client))
	}

	service := ledger.NewService(repo, notifier, log)
	router := setupRouter(service, authMiddleware)

	port := config.GetEnv("RENTAL_SERVICE_PORT", "8003")
	log.Infof("Rental service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start rental service: ", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newNotifier selects the transport named by NOTIFY_TRANSPORT
func newNotifier(log *logrus.Entry) (notify.Notifier, io.Closer, error) {
	switch transport := config.GetEnv("NOTIFY_TRANSPORT", "kafka"); transport {
	case "kafka":
		kn := notify.NewKafkaNotifier(config.GetEnv("KAFKA_BROKER", "localhost:9092"), log)
		return kn, kn, nil
	case "nats":
		nn, err := notify.NewNATSNotifier(config.GetEnv("NATS_URL", "nats://localhost:4222"))
		if err != nil {
			return nil, nil, err
		}
		return nn, nn, nil
	default:
		log.Warnf("Notification transport %q, events are only logged", transport)
		return notify.LogNotifier{Log: log}, nopCloser{}, nil
	}
}

func setupRouter(service *ledger.Service, auth *middleware.AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Rental service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	rental := router.Group("/rental")
	rental.Use(auth.RequireAuth(), auth.RequireRole(middleware.RoleAdmin))
	{
		rental.GET("/rental-data", handleRentalData(service))
		rental.GET("/statistics", handleStatistics(service))
		rental.GET("/payment-status", handlePaymentStatus(service))
		rental.POST("/update-payment", handleUpdatePayment(service))
		rental.POST("/send-reminder", handleSendReminder(service))
	}

	return router
}
