package service

import (
	"time"

	"flocksync/internal/buffer"
	"flocksync/internal/metrics"
	v1 "flocksync/pkg/api/v1"
	"flocksync/pkg/constraints"
	"flocksync/pkg/logger"
)

// EventSink is what the queue services publish through; the Hub is the live
// implementation, tests substitute a recorder.
type EventSink interface {
	Publish(action constraints.Action, itemID string, count int, errMsg string)
}

// StreamClient is one connected SSE consumer (the kiosk UI).
type StreamClient struct {
	Send chan v1.QueueEvent
}

// Hub fans queue events out to connected stream clients and keeps a replay
// buffer so a reconnecting UI can catch up on what it missed.
type Hub struct {
	clients    map[*StreamClient]bool
	Register   chan *StreamClient
	Unregister chan *StreamClient
	broadcast  chan v1.QueueEvent

	observer  metrics.QueueObserver
	heartbeat time.Duration
	events    *buffer.EventBuffer
}

func NewHub(observer metrics.QueueObserver, heartbeat time.Duration, bufferSize, replaySize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 128
	}
	return &Hub{
		clients:    make(map[*StreamClient]bool),
		Register:   make(chan *StreamClient),
		Unregister: make(chan *StreamClient),
		broadcast:  make(chan v1.QueueEvent, bufferSize),
		observer:   observer,
		heartbeat:  heartbeat,
		events:     buffer.NewEventBuffer(replaySize),
	}
}

// Publish records the event for replay and hands it to the broadcast loop.
// The buffer assigns the sequence number so concurrent publishers cannot
// interleave out of order. Drops the event if the loop is saturated; clients
// recover via the replay buffer on their next reconnect.
func (h *Hub) Publish(action constraints.Action, itemID string, count int, errMsg string) {
	evt := h.events.Append(v1.QueueEvent{
		Action: action,
		ItemID: itemID,
		Count:  count,
		Error:  errMsg,
		At:     time.Now(),
	})

	select {
	case h.broadcast <- evt:
	default:
		logger.Warn("hub broadcast channel full, dropping event")
	}
}

// GetSince returns buffered events newer than lastSeq; ok=false means the
// client's position has been overwritten and it must resync via the queue
// listing.
func (h *Hub) GetSince(lastSeq int64) ([]v1.QueueEvent, bool) {
	return h.events.GetSince(lastSeq)
}

func (h *Hub) Run() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case c := <-h.Register:
			h.clients[c] = true
			if h.observer != nil {
				h.observer.IncStreamClients()
			}
		case c := <-h.Unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
				if h.observer != nil {
					h.observer.DecStreamClients()
				}
			}
		case evt := <-h.broadcast:
			if h.observer != nil {
				h.observer.RecordPush()
			}
			h.dispatch(evt)
		case <-ticker.C:
			h.dispatch(v1.QueueEvent{Action: constraints.ActionPing, At: time.Now()})
		}
	}
}

func (h *Hub) dispatch(evt v1.QueueEvent) {
	for c := range h.clients {
		select {
		case c.Send <- evt:
		default:
			logger.Warn("stream client too slow, disconnecting")
			close(c.Send)
			delete(h.clients, c)
			if h.observer != nil {
				h.observer.DecStreamClients()
			}
		}
	}
}
