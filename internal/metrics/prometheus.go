package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusObserver struct {
	queueDepth    prometheus.Gauge
	streamClients prometheus.Gauge
	pushCounter   prometheus.Counter
	syncCounter   *prometheus.CounterVec
}

var (
	queueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flocksync_queue_depth",
		Help: "Number of check-in batches awaiting sync",
	})
	streamClientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flocksync_stream_clients",
		Help: "Number of connected queue-event stream clients",
	})
	pushCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flocksync_event_push_total",
		Help: "Total number of queue events pushed to stream clients",
	})
	syncCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flocksync_sync_total",
		Help: "Per-item drain outcomes",
	}, []string{"outcome"})
)

func NewPrometheusObserver() QueueObserver {
	return &prometheusObserver{
		queueDepth:    queueDepthGauge,
		streamClients: streamClientsGauge,
		pushCounter:   pushCounter,
		syncCounter:   syncCounter,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (p *prometheusObserver) SetQueueDepth(n int) {
	p.queueDepth.Set(float64(n))
}

func (p *prometheusObserver) IncStreamClients() {
	p.streamClients.Inc()
}

func (p *prometheusObserver) DecStreamClients() {
	p.streamClients.Dec()
}

func (p *prometheusObserver) RecordPush() {
	p.pushCounter.Inc()
}

func (p *prometheusObserver) RecordSync(outcome string) {
	p.syncCounter.WithLabelValues(outcome).Inc()
}
