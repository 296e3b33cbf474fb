package olist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WolfSchew/kaggle-olist/internal/table"
)

func TestDecodeTreatsNaNCellsAsMissing(t *testing.T) {
	orders, err := table.FromRecords(table.Orders, "mem", [][]string{
		{"order_id", "customer_id", "order_status", "order_purchase_timestamp",
			"order_estimated_delivery_date", "order_delivered_customer_date"},
		{"o1", "c1", "NaN", "2018-01-01 00:00:00", "2018-01-10 00:00:00", "2018-01-05 00:00:00"},
		{"o2", "c2", " delivered ", "2018-01-01 00:00:00", "2018-01-10 00:00:00", "2018-01-05 00:00:00"},
	})
	require.NoError(t, err)
	reviews, err := table.FromRecords(table.Reviews, "mem", [][]string{
		{"review_id", "order_id", "review_score"},
		{"NaN", "o1", "5"},
		{"r2", "o2", "4"},
	})
	require.NoError(t, err)
	ts := table.Tables{table.Orders: orders, table.Reviews: reviews}

	decodedOrders, err := decodeOrders(ts)
	require.NoError(t, err)
	require.Len(t, decodedOrders, 2)
	assert.Equal(t, "", decodedOrders[0].Status)
	assert.Equal(t, StatusDelivered, decodedOrders[1].Status)

	decodedReviews, err := decodeReviews(ts)
	require.NoError(t, err)
	require.Len(t, decodedReviews, 2)
	assert.Equal(t, "", decodedReviews[0].ID)
	assert.Equal(t, "r2", decodedReviews[1].ID)

	matching := MatchingTable(decodedOrders, decodedReviews, nil)
	require.Len(t, matching, 2)
	assert.False(t, matching[0].ReviewID.Valid)
	assert.True(t, matching[1].ReviewID.Valid)

	waits := WaitTimes(decodedOrders, false)
	f := features{
		waits:    waits,
		reviews:  ReviewScores(decodedReviews),
		products: []ProductCountRow{{"o1", 1}, {"o2", 1}},
		sellers:  []SellerCountRow{{"o1", 1}, {"o2", 1}},
		prices:   []PriceFreightRow{{"o1", 1, 1}, {"o2", 1, 1}},
	}
	rows, dropped := assemble(f)
	require.Len(t, rows, 1)
	assert.Equal(t, "o2", rows[0].OrderID)
	assert.Equal(t, 1, dropped)
}
