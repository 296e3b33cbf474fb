// Package metrics collects per-run pipeline counters in a private
// Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry methods accept a nil receiver so callers can run without metrics.
type Registry struct {
	reg           *prometheus.Registry
	RowsLoaded    *prometheus.GaugeVec
	RowsExtracted *prometheus.GaugeVec
	RowsDropped   prometheus.Counter
	TrainingRows  prometheus.Gauge
	StageSeconds  *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	loaded := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "olist_table_rows",
		Help: "Rows loaded per raw table.",
	}, []string{"table"})
	extracted := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "olist_extractor_rows",
		Help: "Per-order rows produced by each extractor.",
	}, []string{"extractor"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "olist_training_rows_dropped_total",
		Help: "Joined rows removed because a feature was missing.",
	})
	training := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "olist_training_rows",
		Help: "Rows in the assembled training table.",
	})
	stages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "olist_stage_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	r.MustRegister(loaded, extracted, dropped, training, stages)
	return &Registry{
		reg:           r,
		RowsLoaded:    loaded,
		RowsExtracted: extracted,
		RowsDropped:   dropped,
		TrainingRows:  training,
		StageSeconds:  stages,
	}
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

func (r *Registry) TableLoaded(table string, rows int) {
	if r == nil {
		return
	}
	r.RowsLoaded.WithLabelValues(table).Set(float64(rows))
}

func (r *Registry) Extracted(extractor string, rows int) {
	if r == nil {
		return
	}
	r.RowsExtracted.WithLabelValues(extractor).Set(float64(rows))
}

func (r *Registry) Assembled(kept, dropped int) {
	if r == nil {
		return
	}
	r.TrainingRows.Set(float64(kept))
	r.RowsDropped.Add(float64(dropped))
}

// Stage starts timing a stage; call the returned func when it ends.
func (r *Registry) Stage(stage string) func() {
	if r == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		r.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// WriteTextfile writes the current values in the Prometheus text format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Gatherer())
}
