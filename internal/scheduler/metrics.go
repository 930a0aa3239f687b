package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"identarr/internal/models"
)

// Metrics exposes queue state to Prometheus.
type Metrics struct {
	tasks      *prometheus.GaugeVec
	processing prometheus.Histogram
}

// NewMetrics registers the queue collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "identarr",
			Subsystem: "queue",
			Name:      "tasks",
			Help:      "Number of scraping tasks by status.",
		}, []string{"status"}),
		processing: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "identarr",
			Subsystem: "queue",
			Name:      "processing_seconds",
			Help:      "Wall time of successful task attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(m.tasks, m.processing)
	return m
}

// SetStats publishes per-status task counts.
func (m *Metrics) SetStats(stats *models.QueueStats) {
	m.tasks.WithLabelValues(string(models.TaskStatusPending)).Set(float64(stats.Pending))
	m.tasks.WithLabelValues(string(models.TaskStatusRunning)).Set(float64(stats.Running))
	m.tasks.WithLabelValues(string(models.TaskStatusCompleted)).Set(float64(stats.Completed))
	m.tasks.WithLabelValues(string(models.TaskStatusFailed)).Set(float64(stats.Failed))
	m.tasks.WithLabelValues(string(models.TaskStatusCanceled)).Set(float64(stats.Canceled))
}

// ObserveProcessing records one successful attempt's duration.
func (m *Metrics) ObserveProcessing(elapsed time.Duration) {
	m.processing.Observe(elapsed.Seconds())
}
