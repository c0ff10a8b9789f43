package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/config"
	"github.com/pavitra93/go-coliving-admin/shared/metrics"
	"github.com/pavitra93/go-coliving-admin/shared/notify"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	log := config.SetupLogging("retry-consumer")

	db, err := config.ConnectDatabase(config.GetDatabaseConfig())
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	dead := notify.NewDeadLetters(db)
	if err := dead.Migrate(); err != nil {
		log.Fatal("Failed to migrate failed notifications: ", err)
	}

	client := notify.NewWhatsAppClient(
		config.GetEnv("WHATSAPP_ENDPOINT", "http://localhost:9090/messages"),
		config.GetEnv("WHATSAPP_SENDER", notify.DefaultSender),
		utils.NewCircuitBreaker("whatsapp-retry", 3, time.Minute),
	)

	retryConsumer := NewRetryConsumer(dead, client, log)
	retryConsumer.batchSize = config.GetEnvInt("RETRY_BATCH_SIZE", 100)
	retryConsumer.checkInterval = config.GetEnvDuration("RETRY_CHECK_INTERVAL", 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go retryConsumer.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received")
		cancel()
		os.Exit(0)
	}()

	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Retry consumer is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())
	router.GET("/stats", handleStats(retryConsumer))

	port := config.GetEnv("RETRY_CONSUMER_PORT", "8085")
	log.Infof("Retry Consumer starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start Retry Consumer: ", err)
	}
}
