package buffer

import (
	"sort"
	"sync"

	v1 "flocksync/pkg/api/v1"
)

// EventBuffer is a fixed-size ring of recent queue events. It owns the
// sequence counter: Append stamps each event with the next seq under the
// same lock that stores it, so the ring stays sorted even when publishers
// race. A reconnecting stream client replays the events it missed via
// GetSince; when events it has not seen were already overwritten the client
// must resync from the queue listing instead.
type EventBuffer struct {
	mu      sync.RWMutex
	events  []v1.QueueEvent
	size    int
	head    int
	isFull  bool
	lastSeq int64
}

func NewEventBuffer(size int) *EventBuffer {
	if size <= 0 {
		size = 256
	}
	return &EventBuffer{
		events: make([]v1.QueueEvent, size),
		size:   size,
		head:   0,
		isFull: false,
	}
}

// Append assigns the next sequence number to evt, stores it and returns the
// stamped event.
func (b *EventBuffer) Append(evt v1.QueueEvent) v1.QueueEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSeq++
	evt.Seq = b.lastSeq

	b.events[b.head] = evt
	b.head = (b.head + 1) % b.size
	if b.head == 0 {
		b.isFull = true
	}
	return evt
}

// GetSince returns all buffered events with Seq > lastSeq. The second return
// value is false when the first event the client is missing (lastSeq+1) has
// already been overwritten, meaning the replay would have a gap and the
// caller needs a full resync.
func (b *EventBuffer) GetSince(lastSeq int64) ([]v1.QueueEvent, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.head
	start := 0
	if b.isFull {
		count = b.size
		start = b.head
	}

	if count == 0 {
		return nil, true
	}

	oldestSeq := b.events[start].Seq

	if lastSeq+1 < oldestSeq {
		return nil, false
	}

	// Logical index range [0, count) maps to physical index (start + i) % size.
	searchFunc := func(i int) bool {
		physIdx := (start + i) % b.size
		return b.events[physIdx].Seq > lastSeq
	}

	idx := sort.Search(count, searchFunc)

	if idx == count {
		return nil, true
	}

	result := make([]v1.QueueEvent, 0, count-idx)
	for i := idx; i < count; i++ {
		physIdx := (start + i) % b.size
		result = append(result, b.events[physIdx])
	}

	return result, true
}
