package olist

import (
	"database/sql"
	"time"

	"github.com/WolfSchew/kaggle-olist/internal/relation"
)

// WaitTimeRow holds the delivery timing of one order, in fractional days.
type WaitTimeRow struct {
	OrderID          string
	WaitTime         sql.Null[float64]
	ExpectedWaitTime sql.Null[float64]
	DelayVsExpected  sql.Null[float64]
	OrderStatus      string
}

// ReviewScoreRow holds the review of one order.
type ReviewScoreRow struct {
	OrderID       string
	DimIsFiveStar int
	DimIsOneStar  int
	ReviewScore   sql.Null[int]
}

type ProductCountRow struct {
	OrderID          string
	NumberOfProducts int
}

type SellerCountRow struct {
	OrderID         string
	NumberOfSellers int
}

type PriceFreightRow struct {
	OrderID      string
	Price        float64
	FreightValue float64
}

// Days converts a duration to fractional days.
func Days(d time.Duration) float64 { return d.Hours() / 24 }

// DelayVsExpected turns the gap between estimated and actual delivery, in
// days, into the lateness of the order. Early or on-time deliveries yield 0.
func DelayVsExpected(estimatedMinusDelivered float64) float64 {
	if estimatedMinusDelivered < 0 {
		return -estimatedMinusDelivered
	}
	return 0
}

// IsFiveStar returns 1 for a five-star score and 0 otherwise.
func IsFiveStar(score int) int {
	if score == 5 {
		return 1
	}
	return 0
}

// IsOneStar returns 1 for a one-star score and 0 otherwise.
func IsOneStar(score int) int {
	if score == 1 {
		return 1
	}
	return 0
}

func daysBetween(from, to sql.Null[time.Time]) sql.Null[float64] {
	if !from.Valid || !to.Valid {
		return sql.Null[float64]{}
	}
	return sql.Null[float64]{V: Days(to.V.Sub(from.V)), Valid: true}
}

// WaitTimes computes the timing features per order. With onlyDelivered set,
// orders whose status is not "delivered" are left out.
func WaitTimes(orders []OrderRecord, onlyDelivered bool) []WaitTimeRow {
	out := make([]WaitTimeRow, 0, len(orders))
	for _, o := range orders {
		if onlyDelivered && o.Status != StatusDelivered {
			continue
		}
		row := WaitTimeRow{
			OrderID:          o.ID,
			WaitTime:         daysBetween(o.PurchasedAt, o.DeliveredAt),
			ExpectedWaitTime: daysBetween(o.PurchasedAt, o.EstimatedDeliveryAt),
			OrderStatus:      o.Status,
		}
		if gap := daysBetween(o.DeliveredAt, o.EstimatedDeliveryAt); gap.Valid {
			row.DelayVsExpected = sql.Null[float64]{V: DelayVsExpected(gap.V), Valid: true}
		}
		out = append(out, row)
	}
	return out
}

// ReviewScores emits one row per reviewed order. When an order has several
// reviews the first one in source order with a score is used.
func ReviewScores(reviews []ReviewRecord) []ReviewScoreRow {
	groups := relation.GroupBy(reviews, func(r ReviewRecord) string { return r.OrderID })
	out := make([]ReviewScoreRow, 0, len(groups))
	for _, g := range groups {
		score := firstScore(g.Rows)
		row := ReviewScoreRow{OrderID: g.Key, ReviewScore: score}
		if score.Valid {
			row.DimIsFiveStar = IsFiveStar(score.V)
			row.DimIsOneStar = IsOneStar(score.V)
		}
		out = append(out, row)
	}
	return out
}

func firstScore(reviews []ReviewRecord) sql.Null[int] {
	for _, r := range reviews {
		if r.Score.Valid {
			return r.Score
		}
	}
	return reviews[0].Score
}

func groupItems(items []ItemRecord) []relation.Group[string, ItemRecord] {
	return relation.GroupBy(items, func(it ItemRecord) string { return it.OrderID })
}

// ProductCounts counts line items per order.
func ProductCounts(items []ItemRecord) []ProductCountRow {
	groups := groupItems(items)
	out := make([]ProductCountRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, ProductCountRow{OrderID: g.Key, NumberOfProducts: relation.Count(g.Rows)})
	}
	return out
}

// SellerCounts counts distinct sellers per order.
func SellerCounts(items []ItemRecord) []SellerCountRow {
	groups := groupItems(items)
	out := make([]SellerCountRow, 0, len(groups))
	for _, g := range groups {
		n := relation.CountDistinct(g.Rows, func(it ItemRecord) (string, bool) { return it.SellerID.V, it.SellerID.Valid })
		out = append(out, SellerCountRow{OrderID: g.Key, NumberOfSellers: n})
	}
	return out
}

// PricesAndFreight sums item price and freight per order.
func PricesAndFreight(items []ItemRecord) []PriceFreightRow {
	groups := groupItems(items)
	out := make([]PriceFreightRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, PriceFreightRow{
			OrderID:      g.Key,
			Price:        relation.Sum(g.Rows, func(it ItemRecord) (float64, bool) { return it.Price.V, it.Price.Valid }),
			FreightValue: relation.Sum(g.Rows, func(it ItemRecord) (float64, bool) { return it.Freight.V, it.Freight.Valid }),
		})
	}
	return out
}
