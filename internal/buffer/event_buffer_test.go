package buffer

import (
	"sync"
	"testing"
	"time"

	"flocksync/pkg/logger"
	v1 "flocksync/pkg/api/v1"
)

func init() {
	logger.InitLogger("test")
}

func TestEventBuffer_Lifecycle(t *testing.T) {
	// Size 3
	buf := NewEventBuffer(3)

	// 1. Empty buffer check
	evts, ok := buf.GetSince(0)
	if !ok || len(evts) != 0 {
		t.Error("Empty buffer should return empty slice and ok=true")
	}

	// 2. Fill buffer [1, 2, 3]
	buf.Append(v1.QueueEvent{ItemID: "a"})
	buf.Append(v1.QueueEvent{ItemID: "b"})
	buf.Append(v1.QueueEvent{ItemID: "c"})

	// 3. A fresh client (seq 0) has missed nothing that was overwritten:
	// the buffer still starts at seq 1, so it gets the whole history.
	evts, ok = buf.GetSince(0)
	if !ok {
		t.Error("GetSince(0) should succeed while the buffer still holds seq 1")
	}
	if len(evts) != 3 || evts[0].Seq != 1 || evts[2].Seq != 3 {
		t.Errorf("Expected full replay [1..3], got %v", evts)
	}

	// 4. Wrap around: append a fourth event. Buffer logically holds [2, 3, 4].
	buf.Append(v1.QueueEvent{ItemID: "d"})

	// 5. Seq 1 is gone now, but a client at seq 1 already saw it; its next
	// missing event (2) is still buffered, so the replay is contiguous.
	evts, ok = buf.GetSince(1)
	if !ok {
		t.Error("GetSince(1) should succeed, the replay from seq 2 has no gap")
	}
	if len(evts) != 3 || evts[0].Seq != 2 || evts[2].Seq != 4 {
		t.Errorf("Expected [2, 3, 4], got %v", evts)
	}

	// 6. A fresh client is now missing seq 1, which was overwritten.
	evts, ok = buf.GetSince(0)
	if ok {
		t.Error("GetSince(0) should fail (ok=false) once seq 1 was overwritten")
	}

	// 7. Valid partial get (> 2 -> [3, 4])
	evts, ok = buf.GetSince(2)
	if !ok {
		t.Error("GetSince(2) should be valid")
	}
	if len(evts) != 2 {
		t.Errorf("Expected 2 events, got %d", len(evts))
	}
	if evts[0].Seq != 3 || evts[1].Seq != 4 {
		t.Errorf("Expected [3, 4], got [%d, %d]", evts[0].Seq, evts[1].Seq)
	}

	// 8. Fully caught up
	evts, ok = buf.GetSince(4)
	if !ok || len(evts) != 0 {
		t.Error("GetSince(4) should return empty slice and ok=true")
	}
}

func TestEventBuffer_ConcurrentAppendStaysSorted(t *testing.T) {
	buf := NewEventBuffer(1024)

	var wg sync.WaitGroup
	writers := 8
	perWriter := 100

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				buf.Append(v1.QueueEvent{At: time.Now()})
			}
		}()
	}
	wg.Wait()

	evts, ok := buf.GetSince(0)
	if !ok {
		t.Fatal("GetSince(0) should succeed, the buffer has not wrapped")
	}
	if len(evts) != writers*perWriter {
		t.Fatalf("Expected %d events, got %d", writers*perWriter, len(evts))
	}
	for i, evt := range evts {
		if evt.Seq != int64(i+1) {
			t.Fatalf("Event %d: expected contiguous seq %d, got %d", i, i+1, evt.Seq)
		}
	}
}

func TestEventBuffer_ConcurrentAccess(t *testing.T) {
	buf := NewEventBuffer(64)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			buf.Append(v1.QueueEvent{At: time.Now()})
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			buf.GetSince(int64(i))
		}
	}()

	wg.Wait()

	evts, ok := buf.GetSince(490)
	if !ok {
		t.Fatal("GetSince(490) should succeed after writer finished")
	}
	if len(evts) != 10 {
		t.Errorf("Expected 10 trailing events, got %d", len(evts))
	}
}
