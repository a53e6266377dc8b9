package service

import (
	"sync"
	"testing"
	"time"

	v1 "flocksync/pkg/api/v1"
	"flocksync/pkg/constraints"
)

type mockObserver struct{}

func (m *mockObserver) SetQueueDepth(n int)        {}
func (m *mockObserver) IncStreamClients()          {}
func (m *mockObserver) DecStreamClients()          {}
func (m *mockObserver) RecordPush()                {}
func (m *mockObserver) RecordSync(outcome string)  {}

func TestHub_PublishAssignsSequence(t *testing.T) {
	hub := NewHub(&mockObserver{}, time.Hour, 16, 16)
	go hub.Run()

	hub.Publish(constraints.ActionEnqueued, "a", 1, "")
	hub.Publish(constraints.ActionSynced, "a", 0, "")
	hub.Publish(constraints.ActionCount, "", 0, "")

	evts, ok := hub.GetSince(0)
	if !ok {
		t.Fatal("GetSince(0) should succeed while the buffer has not wrapped")
	}
	if len(evts) != 3 {
		t.Fatalf("expected 3 buffered events, got %d", len(evts))
	}
	for i, evt := range evts {
		if evt.Seq != int64(i+1) {
			t.Errorf("event %d: expected seq %d, got %d", i, i+1, evt.Seq)
		}
	}

	evts, ok = hub.GetSince(2)
	if !ok || len(evts) != 1 || evts[0].Action != constraints.ActionCount {
		t.Errorf("expected only the count event after seq 2, got %v ok=%v", evts, ok)
	}
}

func TestHub_Concurrency(t *testing.T) {
	hub := NewHub(&mockObserver{}, 100*time.Millisecond, 512, 512)
	go hub.Run()

	var wg sync.WaitGroup
	clientCount := 50
	eventCount := 200

	clients := make([]*StreamClient, clientCount)

	// 1. Concurrent registration
	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c := &StreamClient{Send: make(chan v1.QueueEvent, 50)}
			clients[idx] = c
			hub.Register <- c
		}(i)
	}
	wg.Wait()

	broadcastDone := make(chan struct{})

	// 2. Concurrent publishes
	go func() {
		for i := 0; i < eventCount; i++ {
			hub.Publish(constraints.ActionCount, "", i, "")
			// Small delay to allow interleaving with unregister
			if i%10 == 0 {
				time.Sleep(time.Millisecond)
			}
		}
		close(broadcastDone)
	}()

	// 3. Concurrent unregister (churn)
	go func() {
		for i := 0; i < clientCount/2; i++ {
			time.Sleep(2 * time.Millisecond)
			hub.Unregister <- clients[i]
		}
	}()

	// 4. Reader consuming loop
	var readWg sync.WaitGroup
	for i := 0; i < clientCount; i++ {
		readWg.Add(1)
		go func(c *StreamClient) {
			defer readWg.Done()
			timeout := time.After(3 * time.Second)
			for {
				select {
				case _, ok := <-c.Send:
					if !ok {
						return // channel closed by hub (unregister/slow client)
					}
				case <-broadcastDone:
					for {
						select {
						case _, ok := <-c.Send:
							if !ok {
								return
							}
						default:
							return
						}
					}
				case <-timeout:
					return
				}
			}
		}(clients[i])
	}

	readWg.Wait()
}
