package repository

import (
	"context"

	"flocksync/internal/model"

	"gorm.io/gorm"
)

// AuditInterface defines the interface for admin audit log persistence
type AuditInterface interface {
	Create(ctx context.Context, audit *model.AdminAudit) error
	List(ctx context.Context, offset, limit int) ([]model.AdminAudit, int64, error)
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, audit *model.AdminAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *AuditRepository) List(ctx context.Context, offset, limit int) ([]model.AdminAudit, int64, error) {
	var audits []model.AdminAudit
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AdminAudit{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).Order("id DESC").Find(&audits).Error; err != nil {
		return nil, 0, err
	}

	return audits, total, nil
}
