package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	v1 "flocksync/pkg/api/v1"
	"flocksync/pkg/logger"

	"go.uber.org/zap"
)

// Outcome classifies one submission attempt against the records API. The
// syncer's retry policy dispatches on this tag instead of inspecting raw
// HTTP status codes.
type Outcome int

const (
	// OutcomeAccepted means the batch was applied.
	OutcomeAccepted Outcome = iota
	// OutcomeDuplicate means the server already holds a batch with this
	// idempotency key. Resolved as success, not failure.
	OutcomeDuplicate
	// OutcomeTransient covers network and server errors worth retrying.
	OutcomeTransient
)

// RecordsClient submits check-in batches to the central records API.
type RecordsClient struct {
	addr       string
	apiKey     string
	httpClient *http.Client
}

func NewRecordsClient(addr, apiKey string, timeout time.Duration) *RecordsClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RecordsClient{
		addr:       addr,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit posts one batch. The batch id rides along as the idempotency key so
// the server can detect a batch it has already applied (HTTP 409).
func (c *RecordsClient) Submit(ctx context.Context, batch v1.CheckinBatch) (Outcome, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return OutcomeTransient, fmt.Errorf("marshal batch: %w", err)
	}

	url := fmt.Sprintf("%s/v1/checkins/batch", c.addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return OutcomeTransient, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Flock-Key", c.apiKey)
	req.Header.Set("Idempotency-Key", batch.BatchID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("batch submission failed", zap.String("batch_id", batch.BatchID), zap.Error(err))
		return OutcomeTransient, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result v1.BatchResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			// The server accepted the batch; a garbled ack body is not
			// worth a resubmission.
			logger.Warn("failed to decode batch ack", zap.String("batch_id", batch.BatchID), zap.Error(err))
		}
		logger.Info("batch accepted",
			zap.String("batch_id", batch.BatchID),
			zap.Int("applied", result.Applied))
		return OutcomeAccepted, nil
	case resp.StatusCode == http.StatusConflict:
		logger.Info("batch already applied", zap.String("batch_id", batch.BatchID))
		return OutcomeDuplicate, nil
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return OutcomeTransient, fmt.Errorf("records api returned %d: %s", resp.StatusCode, string(snippet))
	}
}

// Ping probes the records API health endpoint. The connectivity watcher
// treats a nil return as "online".
func (c *RecordsClient) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", c.addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("records api unhealthy: %d", resp.StatusCode)
	}
	return nil
}
