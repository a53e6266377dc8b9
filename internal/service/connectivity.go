package service

import (
	"context"
	"sync/atomic"
	"time"

	"flocksync/internal/metrics"
	v1 "flocksync/pkg/api/v1"
	"flocksync/pkg/constraints"
	"flocksync/pkg/logger"

	"go.uber.org/zap"
)

const probeTimeout = 5 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Drainer interface {
	Drain(ctx context.Context) ([]v1.SyncResult, error)
}

type QueueCounter interface {
	Count(ctx context.Context) (int64, error)
}

type ConnectivityConfig struct {
	ProbeInterval     time.Duration
	CountPollInterval time.Duration
}

// ConnectivityWatcher owns no durable state. It probes the records API and
// kicks off a drain on every offline-to-online transition; a separate,
// slower poll refreshes the queue-depth gauge and stream without draining.
type ConnectivityWatcher struct {
	remote   Pinger
	syncer   Drainer
	queue    QueueCounter
	events   EventSink
	observer metrics.QueueObserver

	probeInterval time.Duration
	countInterval time.Duration
	online        atomic.Bool
}

func NewConnectivityWatcher(remote Pinger, syncer Drainer, queue QueueCounter, events EventSink, observer metrics.QueueObserver, cfg ConnectivityConfig) *ConnectivityWatcher {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 10 * time.Second
	}
	if cfg.CountPollInterval <= 0 {
		cfg.CountPollInterval = 5 * time.Second
	}
	return &ConnectivityWatcher{
		remote:        remote,
		syncer:        syncer,
		queue:         queue,
		events:        events,
		observer:      observer,
		probeInterval: cfg.ProbeInterval,
		countInterval: cfg.CountPollInterval,
	}
}

// Online reports the last observed connectivity state.
func (w *ConnectivityWatcher) Online() bool {
	return w.online.Load()
}

func (w *ConnectivityWatcher) Run(ctx context.Context) {
	logger.Info("connectivity watcher started",
		zap.Duration("probe_interval", w.probeInterval),
		zap.Duration("count_poll_interval", w.countInterval))

	// Probe once up front so a kiosk that boots online drains immediately.
	w.probe(ctx)
	w.pollCount(ctx)

	probeTicker := time.NewTicker(w.probeInterval)
	defer probeTicker.Stop()
	countTicker := time.NewTicker(w.countInterval)
	defer countTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("connectivity watcher stopped")
			return
		case <-probeTicker.C:
			w.probe(ctx)
		case <-countTicker.C:
			w.pollCount(ctx)
		}
	}
}

func (w *ConnectivityWatcher) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := w.remote.Ping(pctx)
	cancel()

	wasOnline := w.online.Load()
	if err != nil {
		w.online.Store(false)
		if wasOnline {
			logger.Warn("records api went offline", zap.Error(err))
		}
		return
	}

	w.online.Store(true)
	if wasOnline {
		return
	}

	logger.Info("records api reachable, draining queue")
	results, err := w.syncer.Drain(ctx)
	if err != nil {
		logger.Error("automatic drain failed", zap.Error(err))
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
	if len(results) > 0 {
		logger.Info("automatic drain finished",
			zap.Int("synced", synced),
			zap.Int("failed", failed))
	}
}

func (w *ConnectivityWatcher) pollCount(ctx context.Context) {
	count, err := w.queue.Count(ctx)
	if err != nil {
		logger.Warn("queue count poll failed", zap.Error(err))
		return
	}
	if w.observer != nil {
		w.observer.SetQueueDepth(int(count))
	}
	if w.events != nil {
		w.events.Publish(constraints.ActionCount, "", int(count), "")
	}
}
