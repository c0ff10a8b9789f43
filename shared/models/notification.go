package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus is the delivery state of a failed notification
type NotificationStatus string

const (
	NotificationPending           NotificationStatus = "pending"
	NotificationResolved          NotificationStatus = "resolved"
	NotificationPermanentlyFailed NotificationStatus = "permanently_failed"
)

// FailedNotification is a rent notification whose delivery failed and is
// waiting for the retry consumer
type FailedNotification struct {
	ID              uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	OriginalEventID string             `json:"original_event_id" gorm:"not null;index"`
	Kind            string             `json:"kind" gorm:"type:varchar(32);not null"`
	MemberID        string             `json:"member_id" gorm:"not null;index"`
	Payload         string             `json:"payload" gorm:"type:text;not null"`
	ErrorMessage    string             `json:"error_message" gorm:"not null"`
	RetryCount      int                `json:"retry_count" gorm:"default:0"`
	Status          NotificationStatus `json:"status" gorm:"type:varchar(32);default:'pending';index"`
	NextRetryAt     *time.Time         `json:"next_retry_at,omitempty" gorm:"index"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`
}

// TableName returns the table name for the FailedNotification model
func (FailedNotification) TableName() string {
	return "failed_notifications"
}
