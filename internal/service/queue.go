package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flocksync/internal/metrics"
	"flocksync/internal/model"
	"flocksync/internal/repository"
	v1 "flocksync/pkg/api/v1"
	"flocksync/pkg/constraints"
	"flocksync/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull rejects an enqueue once the queue holds maxQueueSize
	// items of pending work. No state changes.
	ErrQueueFull = errors.New("check-in queue is full")
	// ErrEmptyBatch rejects an enqueue carrying no operations.
	ErrEmptyBatch = errors.New("batch must contain at least one operation")
)

// QueueService is the host-facing API over the durable queue: enqueue,
// inspect, and administer. It never performs network I/O, so the kiosk UI
// can keep accepting check-ins while the records API is unreachable.
type QueueService struct {
	repo         repository.QueueInterface
	auditRepo    repository.AuditInterface
	events       EventSink
	observer     metrics.QueueObserver
	maxQueueSize int
	nowFn        func() time.Time
}

func NewQueueService(repo repository.QueueInterface, auditRepo repository.AuditInterface, events EventSink, observer metrics.QueueObserver, maxQueueSize int) *QueueService {
	return &QueueService{
		repo:         repo,
		auditRepo:    auditRepo,
		events:       events,
		observer:     observer,
		maxQueueSize: maxQueueSize,
		nowFn:        time.Now,
	}
}

// Enqueue persists one batch of operations as a new pending queue item and
// returns its id. The id is the idempotency key the records API will use
// for duplicate detection.
func (s *QueueService) Enqueue(ctx context.Context, ops []v1.Operation) (string, error) {
	if len(ops) == 0 {
		return "", ErrEmptyBatch
	}

	count, err := s.repo.CountActive(ctx)
	if err != nil {
		return "", fmt.Errorf("count queue items: %w", err)
	}
	if count >= int64(s.maxQueueSize) {
		return "", ErrQueueFull
	}

	payload, err := json.Marshal(ops)
	if err != nil {
		return "", fmt.Errorf("marshal operations: %w", err)
	}

	item := &model.QueueItem{
		ID:         uuid.New().String(),
		Payload:    string(payload),
		EnqueuedAt: s.nowFn(),
		Attempts:   0,
		Status:     model.StatusPending,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return "", fmt.Errorf("persist queue item: %w", err)
	}

	logger.Debug("batch enqueued", zap.String("id", item.ID), zap.Int("operations", len(ops)))
	if s.observer != nil {
		s.observer.SetQueueDepth(int(count) + 1)
	}
	if s.events != nil {
		s.events.Publish(constraints.ActionEnqueued, item.ID, int(count)+1, "")
	}
	return item.ID, nil
}

// Count returns the number of items still awaiting sync, for UI badges.
func (s *QueueService) Count(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx)
}

func (s *QueueService) List(ctx context.Context) ([]model.QueueItem, error) {
	return s.repo.ListAll(ctx)
}

func (s *QueueService) Get(ctx context.Context, id string) (*model.QueueItem, error) {
	return s.repo.Get(ctx, id)
}

// Remove deletes a single item, recording who asked for it. Used by admins
// to discard items that reached the failed state.
func (s *QueueService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove queue item: %w", err)
	}
	s.recordAudit(ctx, "remove", id, "queue item removed by operator")
	return nil
}

// Clear wipes the whole queue. Administrative reset for device decommission;
// queued check-ins are lost, hence the audit trail.
func (s *QueueService) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	s.recordAudit(ctx, "clear", "", "queue cleared by operator")
	if s.observer != nil {
		s.observer.SetQueueDepth(0)
	}
	if s.events != nil {
		s.events.Publish(constraints.ActionCount, "", 0, "")
	}
	return nil
}

func (s *QueueService) Audits(ctx context.Context, offset, limit int) ([]model.AdminAudit, int64, error) {
	return s.auditRepo.List(ctx, offset, limit)
}

func (s *QueueService) Health(ctx context.Context) error {
	return s.repo.PingContext(ctx)
}

func (s *QueueService) recordAudit(ctx context.Context, action, itemID, detail string) {
	if s.auditRepo == nil {
		return
	}
	audit := &model.AdminAudit{
		Action:   action,
		ItemID:   itemID,
		Detail:   detail,
		Operator: GetOperator(ctx),
		TraceID:  GetTraceID(ctx),
	}
	if err := s.auditRepo.Create(ctx, audit); err != nil {
		logger.Warn("failed to record admin audit", zap.String("action", action), zap.Error(err))
	}
}
