package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics exposes the queue's operational counters to Prometheus.
type QueueMetrics struct {
	depth        prometheus.GaugeFunc
	outcomes     *prometheus.CounterVec
	waitDuration prometheus.Histogram
	batchSize    prometheus.Histogram
	retries      prometheus.Counter
}

// NewQueueMetrics builds the collectors and registers them with reg.
// depthFn is sampled on every scrape.
func NewQueueMetrics(reg prometheus.Registerer, depthFn func() int) (*QueueMetrics, error) {
	m := &QueueMetrics{
		depth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "webgrid",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of session requests currently waiting in the queue.",
		}, func() float64 { return float64(depthFn()) }),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webgrid",
			Subsystem: "queue",
			Name:      "requests_total",
			Help:      "Resolved session requests by outcome.",
		}, []string{"outcome"}),
		waitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "webgrid",
			Subsystem: "queue",
			Name:      "wait_seconds",
			Help:      "Time session requests spent queued before resolution.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "webgrid",
			Subsystem: "queue",
			Name:      "batch_claimed",
			Help:      "Requests handed out per distributor poll.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webgrid",
			Subsystem: "queue",
			Name:      "retries_total",
			Help:      "Requests returned to the front of the queue after a node declined them.",
		}),
	}

	for _, c := range []prometheus.Collector{m.depth, m.outcomes, m.waitDuration, m.batchSize, m.retries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveOutcome records a resolved request and its queue time.
func (m *QueueMetrics) ObserveOutcome(outcome string, waited time.Duration) {
	m.outcomes.WithLabelValues(outcome).Inc()
	m.waitDuration.Observe(waited.Seconds())
}

// ObserveBatch records how many requests one distributor poll claimed.
func (m *QueueMetrics) ObserveBatch(claimed int) {
	m.batchSize.Observe(float64(claimed))
}

// ObserveRetry records a request being handed back to the queue head.
func (m *QueueMetrics) ObserveRetry() {
	m.retries.Inc()
}
