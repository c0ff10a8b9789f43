package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pavitra93/go-coliving-admin/shared/models"
)

// Retry policy for undelivered notifications
const (
	MaxRetries     = 8
	BaseRetryDelay = time.Minute
)

// RetryDelay is the wait before attempt n+1: 1m, 2m, 4m, ...
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return BaseRetryDelay * time.Duration(1<<(attempt-1))
}

// DeadLetters stores events whose delivery failed
type DeadLetters struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDeadLetters(db *gorm.DB) *DeadLetters {
	return &DeadLetters{db: db, now: time.Now}
}

// Migrate creates the failed_notifications table
func (d *DeadLetters) Migrate() error {
	return d.db.AutoMigrate(&models.FailedNotification{})
}

// Record stores event for retry one BaseRetryDelay from now
func (d *DeadLetters) Record(ctx context.Context, event Event, cause error) (*models.FailedNotification, error) {
	payload, err := event.Encode()
	if err != nil {
		return nil, err
	}

	now := d.now()
	next := now.Add(BaseRetryDelay)
	failed := &models.FailedNotification{
		ID:              uuid.New(),
		OriginalEventID: event.ID.String(),
		Kind:            string(event.Kind),
		MemberID:        event.MemberID.String(),
		Payload:         string(payload),
		ErrorMessage:    cause.Error(),
		Status:          models.NotificationPending,
		NextRetryAt:     &next,
	}
	if err := d.db.WithContext(ctx).Create(failed).Error; err != nil {
		return nil, fmt.Errorf("failed to store failed notification: %w", err)
	}
	return failed, nil
}

// Due returns pending rows whose retry time has passed, oldest first
func (d *DeadLetters) Due(ctx context.Context, limit int) ([]models.FailedNotification, error) {
	var rows []models.FailedNotification
	err := d.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", models.NotificationPending, d.now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch failed notifications: %w", err)
	}
	return rows, nil
}

// Resolve marks a row delivered
func (d *DeadLetters) Resolve(ctx context.Context, failed *models.FailedNotification) error {
	now := d.now()
	failed.Status = models.NotificationResolved
	failed.ResolvedAt = &now
	failed.NextRetryAt = nil
	return d.db.WithContext(ctx).Save(failed).Error
}

// Reschedule counts a failed attempt. After MaxRetries attempts the row is
// marked permanently failed.
func (d *DeadLetters) Reschedule(ctx context.Context, failed *models.FailedNotification, cause error) error {
	now := d.now()
	failed.RetryCount++

	if failed.RetryCount >= MaxRetries {
		failed.Status = models.NotificationPermanentlyFailed
		failed.ResolvedAt = &now
		failed.NextRetryAt = nil
		failed.ErrorMessage = fmt.Sprintf("Max retries reached: %s", cause.Error())
	} else {
		next := now.Add(RetryDelay(failed.RetryCount))
		failed.NextRetryAt = &next
		failed.ErrorMessage = cause.Error()
	}
	return d.db.WithContext(ctx).Save(failed).Error
}

// Abandon marks a row permanently failed without retrying
func (d *DeadLetters) Abandon(ctx context.Context, failed *models.FailedNotification, reason string) error {
	now := d.now()
	failed.Status = models.NotificationPermanentlyFailed
	failed.ResolvedAt = &now
	failed.NextRetryAt = nil
	failed.ErrorMessage = reason
	return d.db.WithContext(ctx).Save(failed).Error
}

// DeadLetterStats counts rows per status
type DeadLetterStats struct {
	Pending           int64 `json:"pending"`
	Resolved          int64 `json:"resolved"`
	PermanentlyFailed int64 `json:"permanently_failed"`
}

func (d *DeadLetters) Stats(ctx context.Context) (DeadLetterStats, error) {
	var rows []struct {
		Status models.NotificationStatus
		Count  int64
	}
	err := d.db.WithContext(ctx).Model(&models.FailedNotification{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return DeadLetterStats{}, fmt.Errorf("failed to count failed notifications: %w", err)
	}

	var stats DeadLetterStats
	for _, r := range rows {
		switch r.Status {
		case models.NotificationPending:
			stats.Pending = r.Count
		case models.NotificationResolved:
			stats.Resolved = r.Count
		case models.NotificationPermanentlyFailed:
			stats.PermanentlyFailed = r.Count
		}
	}
	return stats, nil
}
