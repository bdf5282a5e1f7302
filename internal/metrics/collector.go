package metrics

import (
	"github.com/innermap/innermap-backend/internal/transcribe"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats provides the collector access to inference pool state.
type PoolStats interface {
	Ready() bool
	Workers() int
	Stats() transcribe.QueueStats
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	pool PoolStats

	engineReady   *prometheus.Desc
	queuePending  *prometheus.Desc
	poolWorkers   *prometheus.Desc
	poolCompleted *prometheus.Desc
	poolFailed    *prometheus.Desc
}

// NewCollector creates a collector that reads pool state at scrape time.
func NewCollector(pool PoolStats) *Collector {
	return &Collector{
		pool: pool,
		engineReady: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "engine", "ready"),
			"1 if the transcription engine loaded at startup, else 0.",
			nil, nil,
		),
		queuePending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transcription_queue", "pending"),
			"Jobs waiting for a free inference worker.",
			nil, nil,
		),
		poolWorkers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transcription_pool", "workers"),
			"Configured inference workers.",
			nil, nil,
		),
		poolCompleted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transcription_pool", "completed_total"),
			"Inference jobs completed by the pool.",
			nil, nil,
		),
		poolFailed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transcription_pool", "failed_total"),
			"Inference jobs that returned an error.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.engineReady
	ch <- c.queuePending
	ch <- c.poolWorkers
	ch <- c.poolCompleted
	ch <- c.poolFailed
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ready := 0.0
	if c.pool.Ready() {
		ready = 1
	}
	stats := c.pool.Stats()

	ch <- prometheus.MustNewConstMetric(c.engineReady, prometheus.GaugeValue, ready)
	ch <- prometheus.MustNewConstMetric(c.queuePending, prometheus.GaugeValue, float64(stats.Pending))
	ch <- prometheus.MustNewConstMetric(c.poolWorkers, prometheus.GaugeValue, float64(c.pool.Workers()))
	ch <- prometheus.MustNewConstMetric(c.poolCompleted, prometheus.CounterValue, float64(stats.Completed))
	ch <- prometheus.MustNewConstMetric(c.poolFailed, prometheus.CounterValue, float64(stats.Failed))
}
