package report

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/WolfSchew/kaggle-olist/internal/olist"
	"github.com/WolfSchew/kaggle-olist/internal/table"
)

func sampleRows() []olist.TrainingRow {
	rows := make([]olist.TrainingRow, 0, 100)
	for i := 1; i <= 100; i++ {
		rows = append(rows, olist.TrainingRow{
			OrderID:                "o",
			WaitTime:               float64(i),
			ExpectedWaitTime:       20,
			ReviewScore:            5,
			NumberOfProducts:       1,
			NumberOfSellers:        1,
			Price:                  99.9,
			FreightValue:           10,
			DistanceSellerCustomer: sql.Null[float64]{V: 250, Valid: true},
		})
	}
	return rows
}

func sampleTables(t *testing.T) table.Tables {
	orders, err := table.FromRecords(table.Orders, "mem", [][]string{{"order_id", "order_status"}, {"o", "delivered"}})
	require.NoError(t, err)
	return table.Tables{table.Orders: orders}
}

func findFeature(t *testing.T, r *Report, name string) FeatureSummary {
	t.Helper()
	for _, f := range r.Features {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("feature %q not in report", name)
	return FeatureSummary{}
}

func TestBuild(t *testing.T) {
	opts := olist.TrainingOptions{IsDelivered: true, WithDistance: true}
	r := Build("run-1", "csv", sampleTables(t), opts, sampleRows())

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, 100, r.Rows)
	assert.Equal(t, olist.Columns(true), r.Columns)
	assert.Equal(t, []TableSummary{{Name: "orders", Rows: 1, Columns: 2}}, r.Tables)

	wait := findFeature(t, r, "wait_time")
	assert.Equal(t, int64(100), wait.Count)
	assert.InEpsilon(t, 1.0, wait.Min, 0.01)
	assert.InEpsilon(t, 100.0, wait.Max, 0.01)
	assert.InEpsilon(t, 50.5, wait.Mean, 0.01)
	assert.InEpsilon(t, 50.0, wait.P50, 0.01)
	assert.InEpsilon(t, 95.0, wait.P95, 0.01)
	assert.InEpsilon(t, 99.0, wait.P99, 0.01)

	price := findFeature(t, r, "price")
	assert.InEpsilon(t, 99.9, price.P50, 0.01)

	dist := findFeature(t, r, "distance_seller_customer")
	assert.InEpsilon(t, 250.0, dist.Mean, 0.01)

	delay := findFeature(t, r, "delay_vs_expected")
	assert.Equal(t, int64(100), delay.Count)
	assert.InDelta(t, 0, delay.Max, 0.01)
}

func TestBuildWithoutDistance(t *testing.T) {
	r := Build("run-2", "csv", nil, olist.DefaultTrainingOptions(), nil)
	assert.Zero(t, r.Rows)
	assert.Len(t, r.Features, 8)
	for _, f := range r.Features {
		assert.NotEqual(t, "distance_seller_customer", f.Name)
		assert.Zero(t, f.Count)
	}
}

func TestWriteJSONAndYAML(t *testing.T) {
	r := Build("run-3", "sqlite", sampleTables(t), olist.DefaultTrainingOptions(), sampleRows())
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "out", "report.json")
	require.NoError(t, r.WriteJSON(jsonPath))
	b, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	assert.Equal(t, "run-3", fromJSON["run_id"])
	assert.Equal(t, float64(100), fromJSON["rows"])

	yamlPath := filepath.Join(dir, "report.yaml")
	require.NoError(t, r.WriteYAML(yamlPath))
	b, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(b, &fromYAML))
	assert.Equal(t, "sqlite", fromYAML.Source)
	assert.Equal(t, r.Columns, fromYAML.Columns)
	assert.Len(t, fromYAML.Features, len(r.Features))
}

func TestBuildKeepsNegativeValues(t *testing.T) {
	rows := []olist.TrainingRow{{WaitTime: -2}, {WaitTime: 4}, {WaitTime: 4}}
	r := Build("run-4", "csv", nil, olist.DefaultTrainingOptions(), rows)

	wait := findFeature(t, r, "wait_time")
	assert.Equal(t, int64(3), wait.Count)
	assert.InDelta(t, -2.0, wait.Min, 0.01)
	assert.InDelta(t, 4.0, wait.Max, 0.01)
	assert.InDelta(t, 4.0, wait.P50, 0.01)
	assert.InDelta(t, 2.0, wait.Mean, 0.01)
}
