package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pavitra93/go-coliving-admin/shared/inventory"
)

// Gender of a member
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// MemberStatus is the lodging lifecycle status
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// Member represents a resident of the co-living facility
type Member struct {
	ID            uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	FullName      string              `json:"full_name" gorm:"not null"`
	Gender        Gender              `json:"gender" gorm:"type:varchar(10);not null"`
	Age           int                 `json:"age" gorm:"not null"`
	PhoneNumber   string              `json:"phone_number" gorm:"type:varchar(10);not null;uniqueIndex:idx_members_phone"`
	Email         string              `json:"email" gorm:"not null;uniqueIndex:idx_members_email"`
	ParentsNumber string              `json:"parents_number" gorm:"type:varchar(10);not null"`
	Address       string              `json:"address" gorm:"not null"`
	Occupation    string              `json:"occupation" gorm:"not null"`
	Amount        int64               `json:"amount" gorm:"not null"`
	ProfileAsset  string              `json:"profile_asset,omitempty"`
	Status        MemberStatus        `json:"status" gorm:"type:varchar(10);not null;default:'active';index"`
	JoiningDate   time.Time           `json:"joining_date"`
	RoomNumber    string              `json:"room_number" gorm:"type:varchar(10);not null;index"`
	FloorNumber   inventory.Floor     `json:"floor_number" gorm:"type:varchar(5);not null"`
	RoomType      inventory.ShareType `json:"room_type" gorm:"type:varchar(10);not null"`
	Payments      Ledger              `json:"payment_status" gorm:"type:text;serializer:json"`
	Version       int64               `json:"version" gorm:"not null;default:1"`
	CreatedAt     time.Time           `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// TableName returns the table name for the Member model
func (Member) TableName() string {
	return "members"
}

// IsActive reports whether the member counts toward room occupancy
func (m *Member) IsActive() bool {
	return m.Status == MemberStatusActive
}

// Clone returns a deep copy, including the payment ledger
func (m *Member) Clone() *Member {
	cp := *m
	cp.Payments = m.Payments.Clone()
	return &cp
}
