package olist

import (
	"database/sql"

	"github.com/WolfSchew/kaggle-olist/internal/relation"
)

// MatchingRow links the keys of one order, review and line item. Slots are
// null when the relation is absent.
type MatchingRow struct {
	OrderID    string
	ReviewID   sql.Null[string]
	CustomerID sql.Null[string]
	ProductID  sql.Null[string]
	SellerID   sql.Null[string]
}

// MatchingTable outer joins orders with reviews and then with line items on
// order_id. An order with several items or reviews appears once per
// combination; every order, review and item appears at least once.
func MatchingTable(orders []OrderRecord, reviews []ReviewRecord, items []ItemRecord) []MatchingRow {
	orderReviews := relation.OuterJoin(orders, reviews,
		func(o OrderRecord) string { return o.ID },
		func(r ReviewRecord) string { return r.OrderID },
	)
	partial := make([]MatchingRow, 0, len(orderReviews))
	for _, p := range orderReviews {
		var row MatchingRow
		if p.Left != nil {
			row.OrderID = p.Left.ID
			row.CustomerID = p.Left.CustomerID
		}
		if p.Right != nil {
			row.OrderID = p.Right.OrderID
			row.ReviewID = sql.Null[string]{V: p.Right.ID, Valid: p.Right.ID != ""}
		}
		partial = append(partial, row)
	}

	withItems := relation.OuterJoin(partial, items,
		func(m MatchingRow) string { return m.OrderID },
		func(it ItemRecord) string { return it.OrderID },
	)
	out := make([]MatchingRow, 0, len(withItems))
	for _, p := range withItems {
		var row MatchingRow
		if p.Left != nil {
			row = *p.Left
		}
		if p.Right != nil {
			row.OrderID = p.Right.OrderID
			row.ProductID = p.Right.ProductID
			row.SellerID = p.Right.SellerID
		}
		out = append(out, row)
	}
	return out
}
