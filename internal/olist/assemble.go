package olist

import (
	"database/sql"

	"github.com/RoaringBitmap/roaring"
)

// TrainingRow is one fully populated order of the training table.
type TrainingRow struct {
	OrderID                string
	WaitTime               float64
	ExpectedWaitTime       float64
	DelayVsExpected        float64
	OrderStatus            string
	DimIsFiveStar          int
	DimIsOneStar           int
	ReviewScore            int
	NumberOfProducts       int
	NumberOfSellers        int
	Price                  float64
	FreightValue           float64
	DistanceSellerCustomer sql.Null[float64]
}

// Columns returns the training table header.
func Columns(withDistance bool) []string {
	cols := []string{
		"order_id", "wait_time", "expected_wait_time", "delay_vs_expected", "order_status",
		"dim_is_five_star", "dim_is_one_star", "review_score", "number_of_products",
		"number_of_sellers", "price", "freight_value",
	}
	if withDistance {
		cols = append(cols, "distance_seller_customer")
	}
	return cols
}

// interner hands out dense ordinals for order ids so key sets fit in bitmaps.
type interner map[string]uint32

func (in interner) id(s string) uint32 {
	if v, ok := in[s]; ok {
		return v
	}
	v := uint32(len(in))
	in[s] = v
	return v
}

func keySet[T any](in interner, rows []T, key func(T) string) *roaring.Bitmap {
	bm := roaring.New()
	for _, r := range rows {
		bm.Add(in.id(key(r)))
	}
	return bm
}

func byOrder[T any](rows []T, key func(T) string) map[string]T {
	m := make(map[string]T, len(rows))
	for _, r := range rows {
		if _, ok := m[key(r)]; !ok {
			m[key(r)] = r
		}
	}
	return m
}

type features struct {
	waits     []WaitTimeRow
	reviews   []ReviewScoreRow
	products  []ProductCountRow
	sellers   []SellerCountRow
	prices    []PriceFreightRow
	distances []DistanceRow
	// withDistance distinguishes "not requested" from "requested, none computable".
	withDistance bool
}

// assemble inner joins the per-order tables on order_id, in wait-time order,
// and drops rows with a missing value. It also returns how many joined rows
// were dropped.
func assemble(f features) ([]TrainingRow, int) {
	in := interner{}
	keep := keySet(in, f.waits, func(r WaitTimeRow) string { return r.OrderID })
	keep.And(keySet(in, f.reviews, func(r ReviewScoreRow) string { return r.OrderID }))
	keep.And(keySet(in, f.products, func(r ProductCountRow) string { return r.OrderID }))
	keep.And(keySet(in, f.sellers, func(r SellerCountRow) string { return r.OrderID }))
	keep.And(keySet(in, f.prices, func(r PriceFreightRow) string { return r.OrderID }))
	if f.withDistance {
		keep.And(keySet(in, f.distances, func(r DistanceRow) string { return r.OrderID }))
	}

	reviews := byOrder(f.reviews, func(r ReviewScoreRow) string { return r.OrderID })
	products := byOrder(f.products, func(r ProductCountRow) string { return r.OrderID })
	sellers := byOrder(f.sellers, func(r SellerCountRow) string { return r.OrderID })
	prices := byOrder(f.prices, func(r PriceFreightRow) string { return r.OrderID })
	distances := byOrder(f.distances, func(r DistanceRow) string { return r.OrderID })

	var out []TrainingRow
	dropped := 0
	for _, w := range f.waits {
		if !keep.Contains(in.id(w.OrderID)) {
			continue
		}
		rv, pc, sc, pf := reviews[w.OrderID], products[w.OrderID], sellers[w.OrderID], prices[w.OrderID]
		if !w.WaitTime.Valid || !w.ExpectedWaitTime.Valid || !w.DelayVsExpected.Valid ||
			w.OrderStatus == "" || !rv.ReviewScore.Valid {
			dropped++
			continue
		}
		row := TrainingRow{
			OrderID:          w.OrderID,
			WaitTime:         w.WaitTime.V,
			ExpectedWaitTime: w.ExpectedWaitTime.V,
			DelayVsExpected:  w.DelayVsExpected.V,
			OrderStatus:      w.OrderStatus,
			DimIsFiveStar:    rv.DimIsFiveStar,
			DimIsOneStar:     rv.DimIsOneStar,
			ReviewScore:      rv.ReviewScore.V,
			NumberOfProducts: pc.NumberOfProducts,
			NumberOfSellers:  sc.NumberOfSellers,
			Price:            pf.Price,
			FreightValue:     pf.FreightValue,
		}
		if f.withDistance {
			row.DistanceSellerCustomer = sql.Null[float64]{V: distances[w.OrderID].DistanceSellerCustomer, Valid: true}
		}
		out = append(out, row)
	}
	return out, dropped
}
