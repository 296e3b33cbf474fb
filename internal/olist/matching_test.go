package olist

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) sql.Null[string] { return sql.Null[string]{V: s, Valid: true} }

func TestMatchingTable(t *testing.T) {
	orders := []OrderRecord{
		{ID: "o1", CustomerID: str("c1")},
		{ID: "o2", CustomerID: str("c2")},
	}
	reviews := []ReviewRecord{
		{ID: "r1", OrderID: "o1"},
		{ID: "r9", OrderID: "o9"},
	}
	items := []ItemRecord{
		{OrderID: "o1", ProductID: str("p1"), SellerID: str("s1")},
		{OrderID: "o1", ProductID: str("p2"), SellerID: str("s2")},
		{OrderID: "o8", ProductID: str("p3"), SellerID: str("s3")},
	}

	rows := MatchingTable(orders, reviews, items)
	require.Len(t, rows, 5)

	assert.Equal(t, MatchingRow{OrderID: "o1", ReviewID: str("r1"), CustomerID: str("c1"), ProductID: str("p1"), SellerID: str("s1")}, rows[0])
	assert.Equal(t, MatchingRow{OrderID: "o1", ReviewID: str("r1"), CustomerID: str("c1"), ProductID: str("p2"), SellerID: str("s2")}, rows[1])
	assert.Equal(t, MatchingRow{OrderID: "o2", CustomerID: str("c2")}, rows[2])
	assert.Equal(t, MatchingRow{OrderID: "o9", ReviewID: str("r9")}, rows[3])
	assert.Equal(t, MatchingRow{OrderID: "o8", ProductID: str("p3"), SellerID: str("s3")}, rows[4])
}

func TestMatchingTableEveryOrderAppears(t *testing.T) {
	orders := []OrderRecord{{ID: "o1"}, {ID: "o2"}, {ID: "o3"}}
	rows := MatchingTable(orders, nil, nil)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, orders[i].ID, r.OrderID)
		assert.False(t, r.ReviewID.Valid)
		assert.False(t, r.SellerID.Valid)
	}
}
