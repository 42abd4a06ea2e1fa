package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus series a Runner updates.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	rowsInserted *prometheus.CounterVec
	rowsDropped  *prometheus.CounterVec
	anomalies    prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// NewMetrics creates the series and registers them with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lattes_dw_runs_total",
			Help: "Total number of pipeline runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lattes_dw_run_duration_seconds",
			Help:    "Duration of complete pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lattes_dw_step_duration_seconds",
			Help:    "Duration of single pipeline steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lattes_dw_step_failures_total",
			Help: "Total number of failed pipeline steps.",
		}, []string{"step"}),
		rowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lattes_dw_rows_inserted_total",
			Help: "Total number of warehouse rows inserted.",
		}, []string{"step"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lattes_dw_rows_dropped_total",
			Help: "Total number of source rows skipped, by reason.",
		}, []string{"step", "reason"}),
		anomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lattes_dw_validation_anomalies",
			Help: "Number of anomalies found by the last validation.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lattes_dw_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.runDuration, m.stepDuration, m.stepFailures,
			m.rowsInserted, m.rowsDropped, m.anomalies, m.lastSuccess)
	}
	return m
}

func (m *Metrics) observeOutcome(step string, o *Outcome) {
	if o == nil {
		return
	}
	if o.Result != nil {
		m.rowsInserted.WithLabelValues(step).Add(float64(o.Result.Inserted))
		for reason, n := range o.Result.Dropped {
			m.rowsDropped.WithLabelValues(step, reason).Add(float64(n))
		}
	}
	if o.Report != nil {
		m.anomalies.Set(float64(len(o.Report.Anomalies())))
	}
}
