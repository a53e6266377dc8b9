package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	v1 "flocksync/pkg/api/v1"
)

type stubPinger struct {
	mu  sync.Mutex
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *stubPinger) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type stubDrainer struct {
	mu    sync.Mutex
	calls int
}

func (d *stubDrainer) Drain(ctx context.Context) ([]v1.SyncResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return []v1.SyncResult{{ID: "x", Success: true}}, nil
}

func (d *stubDrainer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type stubCounter struct{ count int64 }

func (c *stubCounter) Count(ctx context.Context) (int64, error) { return c.count, nil }

type depthObserver struct {
	mu    sync.Mutex
	depth int
}

func (o *depthObserver) SetQueueDepth(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.depth = n
}
func (o *depthObserver) IncStreamClients()        {}
func (o *depthObserver) DecStreamClients()        {}
func (o *depthObserver) RecordPush()              {}
func (o *depthObserver) RecordSync(outcome string) {}

func newTestWatcher(p Pinger, d Drainer, c QueueCounter, obs *depthObserver) *ConnectivityWatcher {
	return NewConnectivityWatcher(p, d, c, nil, obs, ConnectivityConfig{
		ProbeInterval:     time.Hour, // tests drive probes directly
		CountPollInterval: time.Hour,
	})
}

func TestProbe_OnlineTransitionTriggersDrain(t *testing.T) {
	pinger := &stubPinger{err: errors.New("no route to host")}
	drainer := &stubDrainer{}
	watcher := newTestWatcher(pinger, drainer, &stubCounter{}, nil)

	ctx := context.Background()

	// Offline probe: no drain, state stays offline.
	watcher.probe(ctx)
	if watcher.Online() {
		t.Error("watcher should be offline")
	}
	if drainer.callCount() != 0 {
		t.Error("offline probe must not drain")
	}

	// Connectivity returns: exactly one drain on the transition.
	pinger.setErr(nil)
	watcher.probe(ctx)
	if !watcher.Online() {
		t.Error("watcher should be online")
	}
	if drainer.callCount() != 1 {
		t.Errorf("expected 1 drain on the offline->online transition, got %d", drainer.callCount())
	}

	// Staying online does not re-drain.
	watcher.probe(ctx)
	if drainer.callCount() != 1 {
		t.Errorf("steady online state must not drain again, got %d", drainer.callCount())
	}

	// Drop and recover: a second transition drains again.
	pinger.setErr(errors.New("timeout"))
	watcher.probe(ctx)
	if watcher.Online() {
		t.Error("watcher should be offline after failed probe")
	}
	pinger.setErr(nil)
	watcher.probe(ctx)
	if drainer.callCount() != 2 {
		t.Errorf("expected a drain per transition, got %d", drainer.callCount())
	}
}

func TestPollCount_UpdatesObserverAndSink(t *testing.T) {
	obs := &depthObserver{}
	sink := &recordSink{}
	watcher := NewConnectivityWatcher(&stubPinger{}, &stubDrainer{}, &stubCounter{count: 7}, sink, obs, ConnectivityConfig{
		ProbeInterval:     time.Hour,
		CountPollInterval: time.Hour,
	})

	watcher.pollCount(context.Background())

	if obs.depth != 7 {
		t.Errorf("expected depth gauge 7, got %d", obs.depth)
	}
	if len(sink.counts) != 1 || sink.counts[0] != 7 {
		t.Errorf("expected count event with 7, got %v", sink.counts)
	}
}
