package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/metrics"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/notify"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

type deadLetterQueue interface {
	Due(ctx context.Context, limit int) ([]models.FailedNotification, error)
	Resolve(ctx context.Context, failed *models.FailedNotification) error
	Reschedule(ctx context.Context, failed *models.FailedNotification, cause error) error
	Abandon(ctx context.Context, failed *models.FailedNotification, reason string) error
	Stats(ctx context.Context) (notify.DeadLetterStats, error)
}

type deliverer interface {
	Deliver(ctx context.Context, event notify.Event) error
}

// RetryConsumer redelivers failed notifications with exponential backoff
type RetryConsumer struct {
	queue         deadLetterQueue
	client        deliverer
	log           *logrus.Entry
	batchSize     int
	checkInterval time.Duration
}

func NewRetryConsumer(queue deadLetterQueue, client deliverer, log *logrus.Entry) *RetryConsumer {
	return &RetryConsumer{
		queue:         queue,
		client:        client,
		log:           log,
		batchSize:     100,
		checkInterval: 30 * time.Second,
	}
}

// Run processes due rows every checkInterval until ctx is cancelled
func (rc *RetryConsumer) Run(ctx context.Context) {
	rc.log.Info("Starting retry consumer...")

	ticker := time.NewTicker(rc.checkInterval)
	defer ticker.Stop()
	for {
		if n, err := rc.ProcessDue(ctx); err != nil {
			rc.log.WithError(err).Error("Error processing failed notifications")
		} else if n > 0 {
			rc.log.Infof("Processed %d failed notifications", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue retries one batch of due rows and returns how many it handled
func (rc *RetryConsumer) ProcessDue(ctx context.Context) (int, error) {
	due, err := rc.queue.Due(ctx, rc.batchSize)
	if err != nil {
		return 0, err
	}

	for i := range due {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		if err := rc.retry(ctx, &due[i]); err != nil {
			rc.log.WithError(err).WithField("id", due[i].ID).Error("Failed to update failed notification")
		}
	}
	return len(due), nil
}

func (rc *RetryConsumer) retry(ctx context.Context, failed *models.FailedNotification) error {
	event, err := notify.Decode([]byte(failed.Payload))
	if err != nil {
		return rc.queue.Abandon(ctx, failed, fmt.Sprintf("Undecodable payload: %v", err))
	}

	if err := rc.client.Deliver(ctx, event); err != nil {
		if err := rc.queue.Reschedule(ctx, failed, err); err != nil {
			return err
		}
		if failed.Status == models.NotificationPermanentlyFailed {
			metrics.Notification(failed.Kind, "permanently_failed")
			rc.log.WithField("id", failed.ID).Warn("Notification permanently failed")
		}
		return nil
	}

	metrics.Notification(failed.Kind, "redelivered")
	return rc.queue.Resolve(ctx, failed)
}

func handleStats(rc *RetryConsumer) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := rc.queue.Stats(c.Request.Context())
		if err != nil {
			rc.log.WithError(err).Error("Failed to read retry stats")
			utils.ServiceUnavailableResponse(c, "Retry statistics unavailable")
			return
		}

		utils.OKResponse(c, "Retry statistics retrieved successfully", gin.H{
			"retry_stats": stats,
			"config": gin.H{
				"max_retries":    notify.MaxRetries,
				"base_delay":     notify.BaseRetryDelay.String(),
				"batch_size":     rc.batchSize,
				"check_interval": rc.checkInterval.String(),
			},
		})
	}
}
