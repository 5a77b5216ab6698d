// Package telemetry exposes load and selection metrics through Prometheus.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carbonatlas"

// Recorder publishes dataset load results and the selected year. It
// satisfies state.MetricsRecorder.
type Recorder struct {
	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.GaugeVec
	year     prometheus.Gauge
}

// NewPrometheus registers the carbonatlas collectors with reg. A nil reg
// falls back to prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_total",
			Help:      "Dataset load attempts by resource and result.",
		}, []string{"resource", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent fetching and parsing one dataset.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows (or features) held for each dataset after its last successful load.",
		}, []string{"resource"}),
		year: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "selected_year",
			Help:      "Currently selected year.",
		}),
	}
	for _, c := range []prometheus.Collector{r.loads, r.duration, r.rows, r.year} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveLoad records one resource load.
func (r *Recorder) ObserveLoad(resource string, success bool, duration time.Duration, rows int) {
	status := "success"
	if !success {
		status = "error"
	}
	r.loads.WithLabelValues(resource, status).Inc()
	r.duration.WithLabelValues(resource).Observe(duration.Seconds())
	if success {
		r.rows.WithLabelValues(resource).Set(float64(rows))
	}
}

// SetSelectedYear publishes the selected year.
func (r *Recorder) SetSelectedYear(year int) {
	r.year.Set(float64(year))
}
