package olist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WolfSchew/kaggle-olist/internal/metrics"
	"github.com/WolfSchew/kaggle-olist/internal/source"
	"github.com/WolfSchew/kaggle-olist/internal/table"
)

const (
	deliveredOrder = "e481f51cbdc54678b7cc49136f2d6af7"
	shippedOrder   = "53cdb2fc8bc7dce0b6741e2150273451"
	unreviewed     = "47770eb9100c2d0c44946d9cf07ec65d"
)

func testdataPath(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func fixture() Source {
	return source.Dir{Path: testdataPath("olist")}
}

func loadFixture(t *testing.T, opts ...Option) *Order {
	t.Helper()
	o, err := Load(context.Background(), fixture(), opts...)
	require.NoError(t, err)
	return o
}

func days(from, to string) float64 {
	a, _ := time.Parse(time.DateTime, from)
	b, _ := time.Parse(time.DateTime, to)
	return Days(b.Sub(a))
}

func TestTableKey(t *testing.T) {
	key, ok := TableKey("olist_order_items_dataset.csv")
	assert.True(t, ok)
	assert.Equal(t, "order_items", key)
}

func TestGetData(t *testing.T) {
	tables, err := GetData(context.Background(), fixture())
	require.NoError(t, err)
	require.NoError(t, tables.Require(table.Required...))
	assert.Equal(t, 3, tables[table.Orders].Len())
	assert.Equal(t, 8, tables[table.Geolocation].Len())
}

func TestGetMatchingTable(t *testing.T) {
	rows, err := GetMatchingTable(context.Background(), fixture())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	perOrder := map[string]int{}
	for _, r := range rows {
		perOrder[r.OrderID]++
		assert.True(t, r.CustomerID.Valid)
		assert.True(t, r.SellerID.Valid)
	}
	assert.Equal(t, map[string]int{deliveredOrder: 2, shippedOrder: 1, unreviewed: 1}, perOrder)
	assert.False(t, rows[3].ReviewID.Valid)
}

func TestExtractorsOnFixture(t *testing.T) {
	o := loadFixture(t)

	waits, err := o.WaitTime(true)
	require.NoError(t, err)
	require.Len(t, waits, 2)
	for _, w := range waits {
		assert.Equal(t, StatusDelivered, w.OrderStatus)
		assert.GreaterOrEqual(t, w.DelayVsExpected.V, 0.0)
	}

	all, err := o.WaitTime(false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, shippedOrder, all[1].OrderID)
	assert.False(t, all[1].WaitTime.Valid)

	products, err := o.ProductCount()
	require.NoError(t, err)
	sellers, err := o.SellerCount()
	require.NoError(t, err)
	require.Len(t, sellers, len(products))
	for i := range products {
		assert.LessOrEqual(t, sellers[i].NumberOfSellers, products[i].NumberOfProducts)
	}
}

func TestLocateUsesFirstGeolocationEntry(t *testing.T) {
	o := loadFixture(t)
	sellers, err := o.LocateSellers()
	require.NoError(t, err)
	require.Len(t, sellers, 3)
	assert.Equal(t, coord(-23.680729, -46.444238), sellers[0].Coord)

	customers, err := o.LocateCustomers()
	require.NoError(t, err)
	assert.Equal(t, coord(-23.576983, -46.587161), customers[0].Coord)
}

func TestTrainingData(t *testing.T) {
	for _, delivered := range []bool{true, false} {
		o := loadFixture(t)
		rows, err := o.TrainingData(context.Background(), TrainingOptions{IsDelivered: delivered})
		require.NoError(t, err)
		require.Len(t, rows, 1, "is_delivered=%v", delivered)

		r := rows[0]
		assert.Equal(t, deliveredOrder, r.OrderID)
		assert.Equal(t, StatusDelivered, r.OrderStatus)
		assert.Equal(t, 2, r.NumberOfProducts)
		assert.Equal(t, 1, r.NumberOfSellers)
		assert.Equal(t, 1, r.DimIsFiveStar)
		assert.Equal(t, 0, r.DimIsOneStar)
		assert.Equal(t, 5, r.ReviewScore)
		assert.InDelta(t, 100.0, r.Price, 1e-9)
		assert.InDelta(t, 10.0, r.FreightValue, 1e-9)
		assert.InDelta(t, days("2017-10-02 10:56:33", "2017-10-10 21:25:13"), r.WaitTime, 1e-9)
		assert.InDelta(t, days("2017-10-02 10:56:33", "2017-10-18 00:00:00"), r.ExpectedWaitTime, 1e-9)
		assert.Equal(t, 0.0, r.DelayVsExpected)
		assert.False(t, r.DistanceSellerCustomer.Valid)
	}
}

func TestTrainingDataWithDistance(t *testing.T) {
	reg := metrics.NewRegistry()
	o := loadFixture(t, WithMetrics(reg), WithDistanceWorkers(2))

	rows, err := o.TrainingData(context.Background(), TrainingOptions{IsDelivered: true, WithDistance: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	want := Haversine(
		Coordinate{Lat: -23.680729, Lng: -46.444238},
		Coordinate{Lat: -23.576983, Lng: -46.587161},
	)
	require.True(t, rows[0].DistanceSellerCustomer.Valid)
	assert.InDelta(t, want, rows[0].DistanceSellerCustomer.V, 1e-9)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.TrainingRows))
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.RowsLoaded.WithLabelValues(table.Orders)))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.RowsExtracted.WithLabelValues("review_score")))
	for _, extractor := range []string{"product_count", "seller_count", "price_and_freight"} {
		assert.Equal(t, 3.0, testutil.ToFloat64(reg.RowsExtracted.WithLabelValues(extractor)), extractor)
	}
}

func TestTrainingDataMissingTable(t *testing.T) {
	o := loadFixture(t)
	tables := o.Data()
	delete(tables, table.Geolocation)

	_, err := New(tables).TrainingData(context.Background(), DefaultTrainingOptions())
	require.NoError(t, err)

	_, err = New(tables).TrainingData(context.Background(), TrainingOptions{IsDelivered: true, WithDistance: true})
	assert.True(t, errors.Is(err, table.ErrMissingTable))

	delete(tables, table.Reviews)
	_, err = New(tables).TrainingData(context.Background(), DefaultTrainingOptions())
	assert.True(t, errors.Is(err, table.ErrMissingTable))
}

func TestTrainingDataCancelled(t *testing.T) {
	o := loadFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.TrainingData(ctx, TrainingOptions{IsDelivered: true, WithDistance: true})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunID(t *testing.T) {
	assert.NotEmpty(t, New(nil).RunID())
	assert.Equal(t, "fixed", New(nil, WithRunID("fixed")).RunID())
}
