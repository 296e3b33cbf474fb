// Package report summarizes one training-table run for humans and for
// downstream tooling.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/op/go-logging"
	"gopkg.in/yaml.v3"

	"github.com/WolfSchew/kaggle-olist/internal/olist"
	"github.com/WolfSchew/kaggle-olist/internal/table"
)

var log = logging.MustGetLogger("report")

// Features are recorded as fixed-point values with three decimals.
const (
	scale       = 1000
	highest     = 1_000_000_000_000
	significant = 3
)

type TableSummary struct {
	Name    string `json:"name" yaml:"name"`
	Rows    int    `json:"rows" yaml:"rows"`
	Columns int    `json:"columns" yaml:"columns"`
}

// FeatureSummary describes the distribution of one numeric column.
type FeatureSummary struct {
	Name  string  `json:"name" yaml:"name"`
	Count int64   `json:"count" yaml:"count"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Mean  float64 `json:"mean" yaml:"mean"`
	P50   float64 `json:"p50" yaml:"p50"`
	P95   float64 `json:"p95" yaml:"p95"`
	P99   float64 `json:"p99" yaml:"p99"`
}

type Options struct {
	IsDelivered  bool `json:"is_delivered" yaml:"is_delivered"`
	WithDistance bool `json:"with_distance" yaml:"with_distance"`
}

type Report struct {
	RunID       string           `json:"run_id" yaml:"run_id"`
	Source      string           `json:"source" yaml:"source"`
	GeneratedAt time.Time        `json:"generated_at" yaml:"generated_at"`
	Options     Options          `json:"options" yaml:"options"`
	Tables      []TableSummary   `json:"tables" yaml:"tables"`
	Rows        int              `json:"rows" yaml:"rows"`
	Columns     []string         `json:"columns" yaml:"columns"`
	Features    []FeatureSummary `json:"features" yaml:"features"`
}

type feature struct {
	name  string
	value func(olist.TrainingRow) (float64, bool)
}

func always(f func(olist.TrainingRow) float64) func(olist.TrainingRow) (float64, bool) {
	return func(r olist.TrainingRow) (float64, bool) { return f(r), true }
}

var features = []feature{
	{"wait_time", always(func(r olist.TrainingRow) float64 { return r.WaitTime })},
	{"expected_wait_time", always(func(r olist.TrainingRow) float64 { return r.ExpectedWaitTime })},
	{"delay_vs_expected", always(func(r olist.TrainingRow) float64 { return r.DelayVsExpected })},
	{"review_score", always(func(r olist.TrainingRow) float64 { return float64(r.ReviewScore) })},
	{"number_of_products", always(func(r olist.TrainingRow) float64 { return float64(r.NumberOfProducts) })},
	{"number_of_sellers", always(func(r olist.TrainingRow) float64 { return float64(r.NumberOfSellers) })},
	{"price", always(func(r olist.TrainingRow) float64 { return r.Price })},
	{"freight_value", always(func(r olist.TrainingRow) float64 { return r.FreightValue })},
}

var distanceFeature = feature{"distance_seller_customer", func(r olist.TrainingRow) (float64, bool) {
	return r.DistanceSellerCustomer.V, r.DistanceSellerCustomer.Valid
}}

// Build summarizes the raw tables and the assembled training rows.
func Build(runID, source string, tables table.Tables, opts olist.TrainingOptions, rows []olist.TrainingRow) *Report {
	r := &Report{
		RunID:       runID,
		Source:      source,
		GeneratedAt: time.Now().UTC(),
		Options:     Options{IsDelivered: opts.IsDelivered, WithDistance: opts.WithDistance},
		Rows:        len(rows),
		Columns:     olist.Columns(opts.WithDistance),
	}
	for _, name := range tables.Names() {
		t := tables[name]
		r.Tables = append(r.Tables, TableSummary{Name: name, Rows: t.Len(), Columns: len(t.Headers())})
	}

	fs := features
	if opts.WithDistance {
		fs = append(fs[:len(fs):len(fs)], distanceFeature)
	}
	for _, f := range fs {
		r.Features = append(r.Features, summarize(f, rows))
	}
	return r
}

// summarize records every value shifted by the smallest negative value, if
// any, so inconsistent timestamps keep their sign in the summary.
func summarize(f feature, rows []olist.TrainingRow) FeatureSummary {
	values := make([]float64, 0, len(rows))
	offset := 0.0
	for _, row := range rows {
		if v, ok := f.value(row); ok {
			values = append(values, v)
			offset = min(offset, v)
		}
	}
	if offset < 0 {
		log.Warningf("feature %s: negative values down to %v", f.name, offset)
	}

	h := hdrhistogram.New(1, highest, significant)
	for _, v := range values {
		if err := h.RecordValue(int64((v - offset) * scale)); err != nil {
			log.Warningf("feature %s: value %v out of histogram range", f.name, v)
		}
	}
	s := FeatureSummary{Name: f.name, Count: h.TotalCount()}
	if s.Count == 0 {
		return s
	}
	at := func(v int64) float64 { return float64(v)/scale + offset }
	s.Min = at(h.Min())
	s.Max = at(h.Max())
	s.Mean = h.Mean()/scale + offset
	s.P50 = at(h.ValueAtQuantile(50))
	s.P95 = at(h.ValueAtQuantile(95))
	s.P99 = at(h.ValueAtQuantile(99))
	return s
}

// WriteJSON writes the report as indented JSON, creating parent directories.
func (r *Report) WriteJSON(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return writeFile(path, append(b, '\n'))
}

func (r *Report) WriteYAML(path string) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return writeFile(path, b)
}

func writeFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}
