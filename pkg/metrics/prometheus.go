package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	cacheOps        *prometheus.CounterVec
	candlesInserted prometheus.Counter
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder whose collectors are registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_jobs_total",
				Help: "Signal generation jobs by outcome",
			},
			[]string{"outcome"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signals_job_duration_seconds",
				Help:    "Time from claim to terminal state",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		cacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_cache_operations_total",
				Help: "Latest-signal cache lookups by result",
			},
			[]string{"result"},
		),
		candlesInserted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "signals_candles_inserted_total",
				Help: "Candles written by ingestion",
			},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signals_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordJob records a job reaching a terminal state (or being skipped).
func (r *Recorder) RecordJob(outcome string, seconds float64) {
	r.jobsTotal.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		r.jobDuration.WithLabelValues(outcome).Observe(seconds)
	}
}

// RecordCache records a cache lookup result: hit, miss or error.
func (r *Recorder) RecordCache(result string) {
	r.cacheOps.WithLabelValues(result).Inc()
}

// RecordCandlesInserted adds n to the ingested candle counter.
func (r *Recorder) RecordCandlesInserted(n int64) {
	if n > 0 {
		r.candlesInserted.Add(float64(n))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
