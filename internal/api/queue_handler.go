package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"flocksync/internal/dto/req"
	"flocksync/internal/dto/resp"
	"flocksync/internal/model"
	"flocksync/internal/service"
	v1 "flocksync/pkg/api/v1"

	"github.com/gin-gonic/gin"
)

type QueueProvider interface {
	Enqueue(ctx context.Context, ops []v1.Operation) (string, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]model.QueueItem, error)
	Get(ctx context.Context, id string) (*model.QueueItem, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Audits(ctx context.Context, offset, limit int) ([]model.AdminAudit, int64, error)
	Health(ctx context.Context) error
}

// OnlineReporter exposes the connectivity watcher's last probe verdict.
type OnlineReporter interface {
	Online() bool
}

type QueueHandler struct {
	service QueueProvider
	syncer  service.Drainer
	watcher OnlineReporter
}

func NewQueueHandler(service QueueProvider, syncer service.Drainer, watcher OnlineReporter) *QueueHandler {
	return &QueueHandler{
		service: service,
		syncer:  syncer,
		watcher: watcher,
	}
}

func (h *QueueHandler) Enqueue(c *gin.Context) {
	var r req.EnqueueRequest

	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(400, gin.H{"error": "JSON format error"})
		return
	}
	ops := make([]v1.Operation, 0, len(r.Operations))
	for _, op := range r.Operations {
		ops = append(ops, v1.Operation{
			Kind:       op.Kind,
			PersonID:   op.PersonID,
			EventID:    op.EventID,
			RecordedAt: op.RecordedAt,
			Fields:     op.Fields,
		})
	}
	id, err := h.service.Enqueue(c.Request.Context(), ops)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQueueFull):
			c.JSON(507, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrEmptyBatch):
			c.JSON(400, gin.H{"error": err.Error()})
		default:
			c.JSON(500, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(200, resp.EnqueueResponse{ID: id})
}

func (h *QueueHandler) Count(c *gin.Context) {
	count, err := h.service.Count(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, resp.CountResponse{Count: count})
}

func (h *QueueHandler) ListItems(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	views := make([]resp.QueueItemView, 0, len(items))
	for _, item := range items {
		views = append(views, itemView(item))
	}
	c.JSON(200, resp.ListResponse{Items: views})
}

func (h *QueueHandler) GetItem(c *gin.Context) {
	var r req.GetItemRequest
	if err := c.ShouldBindUri(&r); err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}
	item, err := h.service.Get(c.Request.Context(), r.ID)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if item == nil {
		c.JSON(404, gin.H{"error": "item not found"})
		return
	}
	c.JSON(200, itemView(*item))
}

func (h *QueueHandler) RemoveItem(c *gin.Context) {
	var r req.GetItemRequest
	if err := c.ShouldBindUri(&r); err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}
	if err := h.service.Remove(c.Request.Context(), r.ID); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "removed"})
}

func (h *QueueHandler) ClearQueue(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "cleared"})
}

// Sync runs one drain cycle immediately instead of waiting for the next
// connectivity probe. Overlapping calls return an empty result set.
func (h *QueueHandler) Sync(c *gin.Context) {
	results, err := h.syncer.Drain(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	synced, failed := 0, 0
	for _, r := range results {
		if r.Success {
			synced++
		} else {
			failed++
		}
	}
	c.JSON(200, resp.DrainResponse{Synced: synced, Failed: failed, Results: results})
}

func (h *QueueHandler) Status(c *gin.Context) {
	count, err := h.service.Count(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, resp.StatusResponse{Online: h.watcher.Online(), Pending: count})
}

func (h *QueueHandler) GetAudits(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	audits, total, err := h.service.Audits(c.Request.Context(), offset, limit)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	entries := make([]resp.AuditLogItem, 0, len(audits))
	for _, a := range audits {
		entries = append(entries, resp.AuditLogItem{
			ID:        a.ID,
			Action:    a.Action,
			ItemID:    a.ItemID,
			Detail:    a.Detail,
			Operator:  a.Operator,
			CreatedAt: a.CreatedAt,
		})
	}
	c.JSON(200, resp.AuditListResponse{Total: total, Entries: entries})
}

func (h *QueueHandler) HealthCheck(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func itemView(item model.QueueItem) resp.QueueItemView {
	var ops []v1.Operation
	_ = json.Unmarshal([]byte(item.Payload), &ops)
	return resp.QueueItemView{
		ID:            item.ID,
		Status:        model.StatusName(item.Status),
		Operations:    len(ops),
		Attempts:      item.Attempts,
		EnqueuedAt:    item.EnqueuedAt,
		LastAttemptAt: item.LastAttemptAt,
		LastError:     item.LastError,
	}
}
