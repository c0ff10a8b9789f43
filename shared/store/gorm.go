package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
	"github.com/pavitra93/go-coliving-admin/shared/models"
)

// GormRepository stores members in a relational database
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository on db
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the members table and its unique indexes
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&models.Member{})
}

func (r *GormRepository) FindActive(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	err := r.db.WithContext(ctx).
		Where("status = ?", models.MemberStatusActive).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, apperr.Storage("find active members", err)
	}
	return members, nil
}

func (r *GormRepository) FindAll(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&members).Error; err != nil {
		return nil, apperr.Storage("list members", err)
	}
	return members, nil
}

func (r *GormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("find member", err)
	}
	return &member, nil
}

func (r *GormRepository) FindByPhoneOrEmail(ctx context.Context, phone, email string) ([]models.Member, error) {
	var members []models.Member
	err := r.db.WithContext(ctx).
		Where("phone_number = ? OR email = ?", phone, email).
		Find(&members).Error
	if err != nil {
		return nil, apperr.Storage("find member by identity", err)
	}
	return members, nil
}

func (r *GormRepository) Insert(ctx context.Context, m *models.Member) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if dup := duplicateError(err.Error()); dup != nil {
			return dup
		}
		return apperr.Storage("insert member", err)
	}
	return nil
}

func (r *GormRepository) UpdateByID(ctx context.Context, m *models.Member, expectedVersion int64) error {
	next := *m
	next.Version = expectedVersion + 1

	res := r.db.WithContext(ctx).
		Model(&next).
		Select("*").
		Omit("id", "created_at").
		Where("version = ?", expectedVersion).
		Updates(&next)
	if res.Error != nil {
		if dup := duplicateError(res.Error.Error()); dup != nil {
			return dup
		}
		return apperr.Storage("update member", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, m.ID)
	}

	m.Version = next.Version
	m.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *GormRepository) UpdateLedger(ctx context.Context, id uuid.UUID, ledger models.Ledger, expectedVersion int64) error {
	row := models.Member{ID: id, Payments: ledger, Version: expectedVersion + 1}
	res := r.db.WithContext(ctx).
		Model(&row).
		Select("payments", "version", "updated_at").
		Where("version = ?", expectedVersion).
		Updates(&row)
	if res.Error != nil {
		return apperr.Storage("update payment ledger", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *GormRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Member{})
	if res.Error != nil {
		return apperr.Storage("delete member", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// missOrConflict explains a versioned write that touched no rows
func (r *GormRepository) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Member{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperr.Storage("check member version", err)
	}
	if count == 0 {
		return apperr.ErrNotFound
	}
	return apperr.ErrConcurrentModification
}
