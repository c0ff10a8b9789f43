package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
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
	log := config.SetupLogging("notifier")

	// Failed deliveries are kept in the relational store
	db, err := config.ConnectDatabase(config.GetDatabaseConfig())
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	dead := notify.NewDeadLetters(db)
	if err := dead.Migrate(); err != nil {
		log.Fatal("Failed to migrate failed notifications: ", err)
	}

	breaker := utils.NewCircuitBreaker("whatsapp",
		config.GetEnvInt("WHATSAPP_MAX_FAILURES", 5),
		config.GetEnvDuration("WHATSAPP_RESET_TIMEOUT", 30*time.Second))
	breaker.OnStateChange(func(name string, from, to utils.CircuitState) {
		log.Warnf("Circuit %s changed from %s to %s", name, from, to)
	})
	client := notify.NewWhatsAppClient(
		config.GetEnv("WHATSAPP_ENDPOINT", "http://localhost:9090/messages"),
		config.GetEnv("WHATSAPP_SENDER", notify.DefaultSender),
		breaker,
	)
	consumer := NewConsumer(client, dead, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch transport := config.GetEnv("NOTIFY_TRANSPORT", "kafka"); transport {
	case "nats":
		conn, err := nats.Connect(config.GetEnv("NATS_URL", "nats://localhost:4222"),
			nats.Name("coliving-notifier"), nats.MaxReconnects(-1))
		if err != nil {
			log.Fatal("Failed to connect to NATS: ", err)
		}
		defer conn.Drain()
		if _, err := consumer.SubscribeNATS(conn); err != nil {
			log.Fatal("Failed to subscribe to notifications: ", err)
		}
	default:
		reader := NewKafkaReader(config.GetEnv("KAFKA_BROKER", "localhost:9092"))
		defer reader.Close()
		go consumer.RunKafka(ctx, reader)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received")
		cancel()
		os.Exit(0)
	}()

	router := setupRouter(client, consumer)

	port := config.GetEnv("NOTIFIER_SERVICE_PORT", "8004")
	log.Infof("Notifier service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start notifier service: ", err)
	}
}

func setupRouter(client *notify.WhatsAppClient, consumer *Consumer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Notifier service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	notifier := router.Group("/notifier")
	{
		notifier.GET("/status", handleGetStatus(client, consumer))
		notifier.POST("/reset-circuit", handleResetCircuit(client))
	}

	return router
}
