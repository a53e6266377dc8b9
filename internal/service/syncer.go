package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"flocksync/client"
	"flocksync/internal/metrics"
	"flocksync/internal/model"
	"flocksync/internal/repository"
	v1 "flocksync/pkg/api/v1"
	"flocksync/pkg/constraints"
	"flocksync/pkg/logger"

	"go.uber.org/zap"
)

// maxAttemptsMsg is the terminal error recorded when an item exhausts its
// retry budget.
const maxAttemptsMsg = "max sync attempts exceeded"

// RemoteSubmitter is the outbound boundary: one batch in, a tagged outcome
// out. client.RecordsClient is the production implementation.
type RemoteSubmitter interface {
	Submit(ctx context.Context, batch v1.CheckinBatch) (client.Outcome, error)
}

type SyncerConfig struct {
	DeviceID    string
	MaxAttempts int
	Backoff     []time.Duration
}

// Syncer drains the durable queue into the records API. One drain cycle
// attempts every currently-eligible item exactly once, in FIFO order, and
// aggregates per-item outcomes instead of failing the cycle.
type Syncer struct {
	repo     repository.QueueInterface
	remote   RemoteSubmitter
	events   EventSink
	observer metrics.QueueObserver

	deviceID    string
	maxAttempts int
	backoff     []time.Duration

	inFlight atomic.Bool
	nowFn    func() time.Time
}

func NewSyncer(repo repository.QueueInterface, remote RemoteSubmitter, events EventSink, observer metrics.QueueObserver, cfg SyncerConfig) *Syncer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 30 * time.Second}
	}
	return &Syncer{
		repo:        repo,
		remote:      remote,
		events:      events,
		observer:    observer,
		deviceID:    cfg.DeviceID,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		nowFn:       time.Now,
	}
}

// Drain runs one sync cycle and returns one result per attempted item.
// It is non-reentrant: a call that starts while another is in flight returns
// an empty result immediately, so a connectivity event and a manual "sync
// now" can never submit the same item twice concurrently. Per-item failures
// are reported in the results; only storage failures propagate as errors.
func (s *Syncer) Drain(ctx context.Context) ([]v1.SyncResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		logger.Debug("drain already in flight, skipping")
		return []v1.SyncResult{}, nil
	}
	defer s.inFlight.Store(false)

	// Deferred cleanup: items the previous cycle marked success get removed
	// now, never mid-iteration and never via timers.
	if err := s.repo.RemoveByStatus(ctx, model.StatusSuccess); err != nil {
		return nil, fmt.Errorf("sweep synced items: %w", err)
	}

	items, err := s.repo.ListReady(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ready items: %w", err)
	}

	results := make([]v1.SyncResult, 0, len(items))
	for i := range items {
		item := items[i]

		if item.Attempts >= s.maxAttempts {
			item.Status = model.StatusFailed
			item.LastError = maxAttemptsMsg
			if err := s.repo.Put(ctx, &item); err != nil {
				return results, fmt.Errorf("persist failed item %s: %w", item.ID, err)
			}
			logger.Warn("queue item exhausted retries",
				zap.String("id", item.ID),
				zap.Int("attempts", item.Attempts))
			s.record(metrics.OutcomeTerminal)
			s.publish(constraints.ActionFailed, item.ID, maxAttemptsMsg)
			results = append(results, v1.SyncResult{ID: item.ID, Success: false, Error: maxAttemptsMsg})
			continue
		}

		// Backoff gate: the Nth failure earns the Nth delay tier; the last
		// configured tier repeats once attempts outrun the schedule.
		if item.LastAttemptAt != nil {
			delay := s.backoffDelay(item.Attempts)
			if s.nowFn().Sub(*item.LastAttemptAt) < delay {
				continue
			}
		}

		now := s.nowFn()
		item.Status = model.StatusSyncing
		item.Attempts++
		item.LastAttemptAt = &now
		if err := s.repo.Put(ctx, &item); err != nil {
			return results, fmt.Errorf("persist syncing item %s: %w", item.ID, err)
		}

		var ops []v1.Operation
		if err := json.Unmarshal([]byte(item.Payload), &ops); err != nil {
			// A payload that cannot even be decoded locally will never
			// submit; fail it directly instead of burning attempts.
			msg := "corrupt payload: " + err.Error()
			item.Status = model.StatusFailed
			item.LastError = msg
			if err := s.repo.Put(ctx, &item); err != nil {
				return results, fmt.Errorf("persist corrupt item %s: %w", item.ID, err)
			}
			logger.Error("corrupt queue payload", zap.String("id", item.ID), zap.Error(err))
			s.record(metrics.OutcomeTerminal)
			s.publish(constraints.ActionFailed, item.ID, msg)
			results = append(results, v1.SyncResult{ID: item.ID, Success: false, Error: msg})
			continue
		}

		batch := v1.CheckinBatch{BatchID: item.ID, DeviceID: s.deviceID, Operations: ops}
		outcome, submitErr := s.remote.Submit(ctx, batch)

		switch outcome {
		case client.OutcomeAccepted:
			// Removal is deferred to the start of the next cycle.
			item.Status = model.StatusSuccess
			item.LastError = ""
			if err := s.repo.Put(ctx, &item); err != nil {
				return results, fmt.Errorf("persist synced item %s: %w", item.ID, err)
			}
			logger.Info("batch synced", zap.String("id", item.ID), zap.Int("attempts", item.Attempts))
			s.record(metrics.OutcomeSuccess)
			s.publish(constraints.ActionSynced, item.ID, "")
			results = append(results, v1.SyncResult{ID: item.ID, Success: true})

		case client.OutcomeDuplicate:
			// The server already holds this batch; nothing left to say to
			// it, so the item can go immediately.
			if err := s.repo.Remove(ctx, item.ID); err != nil {
				return results, fmt.Errorf("remove duplicate item %s: %w", item.ID, err)
			}
			logger.Info("batch was already applied remotely", zap.String("id", item.ID))
			s.record(metrics.OutcomeDuplicate)
			s.publish(constraints.ActionDuplicate, item.ID, "")
			results = append(results, v1.SyncResult{ID: item.ID, Success: true, Duplicate: true})

		default:
			msg := "submission failed"
			if submitErr != nil {
				msg = submitErr.Error()
			}
			item.Status = model.StatusPending
			item.LastError = msg
			if err := s.repo.Put(ctx, &item); err != nil {
				return results, fmt.Errorf("persist retrying item %s: %w", item.ID, err)
			}
			logger.Warn("batch submission failed, will retry",
				zap.String("id", item.ID),
				zap.Int("attempts", item.Attempts),
				zap.Error(submitErr))
			s.record(metrics.OutcomeFailure)
			s.publish(constraints.ActionFailed, item.ID, msg)
			results = append(results, v1.SyncResult{ID: item.ID, Success: false, Error: msg})
		}
	}

	return results, nil
}

func (s *Syncer) backoffDelay(attempts int) time.Duration {
	if attempts <= 0 || len(s.backoff) == 0 {
		return 0
	}
	idx := attempts - 1
	if idx >= len(s.backoff) {
		idx = len(s.backoff) - 1
	}
	return s.backoff[idx]
}

func (s *Syncer) publish(action constraints.Action, itemID, errMsg string) {
	if s.events == nil {
		return
	}
	s.events.Publish(action, itemID, 0, errMsg)
}

func (s *Syncer) record(outcome string) {
	if s.observer == nil {
		return
	}
	s.observer.RecordSync(outcome)
}
