package repository

import (
	"context"
	"errors"

	"flocksync/internal/model"

	"gorm.io/gorm"
)

// activeStatuses are the statuses that count as pending work: items still
// awaiting a successful submission to the records API.
var activeStatuses = []int{model.StatusPending, model.StatusSyncing}

type QueueInterface interface {
	Create(ctx context.Context, item *model.QueueItem) error
	Get(ctx context.Context, id string) (*model.QueueItem, error)
	// Put persists a full replacement of the item, including zero-valued
	// fields, so status transitions can clear LastError.
	Put(ctx context.Context, item *model.QueueItem) error
	// ListReady returns pending and syncing items in FIFO order:
	// enqueued_at primary, id as deterministic tiebreak for same-tick items.
	ListReady(ctx context.Context) ([]model.QueueItem, error)
	ListAll(ctx context.Context) ([]model.QueueItem, error)
	Remove(ctx context.Context, id string) error
	RemoveByStatus(ctx context.Context, status int) error
	Clear(ctx context.Context) error
	CountActive(ctx context.Context) (int64, error)
	PingContext(ctx context.Context) error
}

type QueueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

func (r *QueueRepository) Create(ctx context.Context, item *model.QueueItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *QueueRepository) Get(ctx context.Context, id string) (*model.QueueItem, error) {
	var item model.QueueItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *QueueRepository) Put(ctx context.Context, item *model.QueueItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *QueueRepository) ListReady(ctx context.Context) ([]model.QueueItem, error) {
	var items []model.QueueItem
	err := r.db.WithContext(ctx).
		Where("status IN ?", activeStatuses).
		Order("enqueued_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *QueueRepository) ListAll(ctx context.Context) ([]model.QueueItem, error) {
	var items []model.QueueItem
	err := r.db.WithContext(ctx).
		Order("enqueued_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *QueueRepository) Remove(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.QueueItem{}, "id = ?", id).Error
}

func (r *QueueRepository) RemoveByStatus(ctx context.Context, status int) error {
	return r.db.WithContext(ctx).Delete(&model.QueueItem{}, "status = ?", status).Error
}

func (r *QueueRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.QueueItem{}).Error
}

func (r *QueueRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.QueueItem{}).
		Where("status IN ?", activeStatuses).
		Count(&count).Error
	return count, err
}

func (r *QueueRepository) PingContext(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
