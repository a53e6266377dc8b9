package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Configuration
var (
	baseURL     = flag.String("url", "http://localhost:8080", "Agent base URL")
	deviceKey   = flag.String("key", "flock-kiosk-key-1", "Device Key")
	totalVUs    = flag.Int("c", 500, "Total Virtual Users (Concurrency)")
	rampUp      = flag.Duration("ramp", 30*time.Second, "Ramp up duration")
	enqueueRate = flag.Int("enqueue", 0, "Batches enqueued per second (0 disables the writer)")
)

// Metrics
var (
	activeClients int64
	totalconnects int64
	connectErrors int64
	eventsRx      int64
	enqueueOK     int64
	enqueueErrs   int64
	latencySum    int64 // milliseconds
	latencyCount  int64
)

type queueEvent struct {
	Seq    int64     `json:"seq"`
	Action string    `json:"action"`
	ItemID string    `json:"item_id"`
	At     time.Time `json:"at"`
}

func main() {
	flag.Parse()

	fmt.Printf("🚀 Starting Load Test\n")
	fmt.Printf("   Target: %s\n", *baseURL)
	fmt.Printf("   VUs: %d\n", *totalVUs)
	fmt.Printf("   Ramp: %v\n", *rampUp)
	fmt.Printf("   Enqueue rate: %d/s\n", *enqueueRate)

	http.DefaultTransport.(*http.Transport).TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	http.DefaultTransport.(*http.Transport).MaxIdleConns = *totalVUs
	http.DefaultTransport.(*http.Transport).MaxConnsPerHost = *totalVUs

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metric Reporter
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				currentActive := atomic.LoadInt64(&activeClients)
				total := atomic.LoadInt64(&totalconnects)
				errs := atomic.LoadInt64(&connectErrors)
				evts := atomic.SwapInt64(&eventsRx, 0)
				enq := atomic.SwapInt64(&enqueueOK, 0)
				enqErr := atomic.LoadInt64(&enqueueErrs)
				latSum := atomic.SwapInt64(&latencySum, 0)
				latCnt := atomic.SwapInt64(&latencyCount, 0)

				avgLat := float64(0)
				if latCnt > 0 {
					avgLat = float64(latSum) / float64(latCnt)
				}

				fmt.Printf("[%s] Active: %d | Total: %d | Errors: %d | Events/s: %d | Enq/s: %d (err %d) | Avg Latency: %.2f ms\n",
					time.Now().Format("15:04:05"), currentActive, total, errs, evts, enq, enqErr, avgLat)
			}
		}
	}()

	// Optional enqueue writer driving events through the hub
	if *enqueueRate > 0 {
		go runEnqueuer(ctx)
	}

	// Ramp-up Logic
	interval := *rampUp / time.Duration(*totalVUs)
	for i := 0; i < *totalVUs; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(ctx, id)
		}(i)
		time.Sleep(interval)
	}

	// Keep alive
	fmt.Println("✅ All VUs launched. Waiting...")
	wg.Wait()
}

func runClient(ctx context.Context, id int) {
	req, err := http.NewRequestWithContext(ctx, "GET", *baseURL+"/v1/stream/queue", nil)
	if err != nil {
		fmt.Printf("Client %d error: %v\n", id, err)
		return
	}

	req.Header.Set("X-Flock-Key", *deviceKey)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Connection", "keep-alive")

	client := &http.Client{
		Timeout: 0, // Infinite timeout for SSE
	}

	resp, err := client.Do(req)
	if err != nil {
		if atomic.AddInt64(&connectErrors, 1) == 1 {
			fmt.Printf("Error connecting: %v\n", err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		if atomic.AddInt64(&connectErrors, 1) == 1 {
			fmt.Printf("Error status code: %d\n", resp.StatusCode)
		}
		return
	}

	atomic.AddInt64(&activeClients, 1)
	atomic.AddInt64(&totalconnects, 1)
	defer atomic.AddInt64(&activeClients, -1)

	reader := bufio.NewReader(resp.Body)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// server closed or network error
			return
		}

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data:") {
			data := strings.TrimPrefix(line, "data:")
			var evt queueEvent
			if err := json.Unmarshal([]byte(data), &evt); err == nil && evt.Seq > 0 {
				atomic.AddInt64(&eventsRx, 1)

				latency := time.Since(evt.At).Milliseconds()
				// Filter reasonable range to avoid clock skew weirdness
				if latency >= 0 && latency < 10000 {
					atomic.AddInt64(&latencySum, latency)
					atomic.AddInt64(&latencyCount, 1)
				}
			}
		}
	}
}

func runEnqueuer(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(*enqueueRate))
	defer ticker.Stop()

	client := &http.Client{Timeout: 5 * time.Second}
	n := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			body, _ := json.Marshal(map[string]any{
				"operations": []map[string]any{{
					"kind":        "checkin",
					"person_id":   fmt.Sprintf("load-person-%d", n),
					"event_id":    "load-event",
					"recorded_at": time.Now().Format(time.RFC3339),
				}},
			})
			req, err := http.NewRequestWithContext(ctx, "POST", *baseURL+"/v1/queue", bytes.NewReader(body))
			if err != nil {
				continue
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Flock-Key", *deviceKey)

			resp, err := client.Do(req)
			if err != nil {
				atomic.AddInt64(&enqueueErrs, 1)
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == 200 {
				atomic.AddInt64(&enqueueOK, 1)
			} else {
				atomic.AddInt64(&enqueueErrs, 1)
			}
		}
	}
}
