package api

import (
	"io"
	"strconv"

	"flocksync/internal/service"
	v1 "flocksync/pkg/api/v1"
	"flocksync/pkg/constraints"
	"flocksync/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StreamHandler struct {
	hub *service.Hub
}

func NewStreamHandler(hub *service.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// WatchQueue streams queue events over SSE. A reconnecting client passes
// last_seq to replay what it missed; if the replay buffer no longer covers
// that position the client receives a reset event and must refetch the
// queue listing.
func (h *StreamHandler) WatchQueue(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	var lastSeq int64
	if s := c.Query("last_seq"); s != "" {
		lastSeq, _ = strconv.ParseInt(s, 10, 64)
	}

	logger.Info("stream client connected",
		zap.Int64("last_seq", lastSeq),
		zap.String("ip", c.ClientIP()),
	)

	client := &service.StreamClient{
		Send: make(chan v1.QueueEvent, 128),
	}

	h.hub.Register <- client
	defer func() {
		h.hub.Unregister <- client
	}()

	events, ok := h.hub.GetSince(lastSeq)
	maxSentSeq := lastSeq
	if ok {
		for _, evt := range events {
			c.SSEvent("message", evt)
			maxSentSeq = evt.Seq
		}
	} else {
		c.SSEvent("reset", "sequence_too_old")
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-client.Send:
			if !ok {
				return false
			}

			if evt.Action == constraints.ActionPing {
				c.SSEvent("ping", "pong")
				return true
			}

			// filter events replayed during compensation
			if evt.Seq <= maxSentSeq {
				return true
			}
			c.SSEvent("message", evt)
			maxSentSeq = evt.Seq
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
