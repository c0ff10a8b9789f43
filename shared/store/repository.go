package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
	"github.com/pavitra93/go-coliving-admin/shared/models"
)

// Repository is the persistence collaborator behind MemberStore
type Repository interface {
	FindActive(ctx context.Context) ([]models.Member, error)
	// FindAll returns every member, newest first
	FindAll(ctx context.Context) ([]models.Member, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	// FindByPhoneOrEmail returns members holding either identity
	FindByPhoneOrEmail(ctx context.Context, phone, email string) ([]models.Member, error)
	Insert(ctx context.Context, m *models.Member) error
	// UpdateByID replaces the stored member if its version still equals
	// expectedVersion. On success m.Version holds the new version.
	UpdateByID(ctx context.Context, m *models.Member, expectedVersion int64) error
	UpdateLedger(ctx context.Context, id uuid.UUID, ledger models.Ledger, expectedVersion int64) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// duplicateError maps a unique index violation message onto the identity it
// collided on. Returns nil when msg is not a uniqueness violation.
func duplicateError(msg string) error {
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "unique") && !strings.Contains(lower, "duplicate key") {
		return nil
	}
	switch {
	case strings.Contains(lower, "phone"):
		return apperr.ErrDuplicatePhone
	case strings.Contains(lower, "email"):
		return apperr.ErrDuplicateEmail
	}
	return apperr.ErrDuplicateIdentity
}
