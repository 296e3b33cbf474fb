package olist

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/WolfSchew/kaggle-olist/internal/relation"
)

// distanceChunk is the number of seller/customer pairs one worker task handles.
const distanceChunk = 4096

// DistanceRow is the mean seller to customer distance of one order, in km.
type DistanceRow struct {
	OrderID                string
	DistanceSellerCustomer float64
}

type geoPair struct {
	OrderID  string
	Seller   Coordinate
	Customer Coordinate
}

func partyKey(p LocatedParty) sql.Null[string] {
	return sql.Null[string]{V: p.ID, Valid: true}
}

// geoPairs inner joins the matching rows with located sellers and located
// customers, then keeps the rows where both coordinates are known.
func geoPairs(matching []MatchingRow, sellers, customers []LocatedParty) []geoPair {
	withSeller := relation.InnerJoin(matching, sellers,
		func(m MatchingRow) sql.Null[string] { return m.SellerID },
		partyKey,
	)
	withCustomer := relation.InnerJoin(withSeller, customers,
		func(p relation.Pair[MatchingRow, LocatedParty]) sql.Null[string] { return p.Left.CustomerID },
		partyKey,
	)
	out := make([]geoPair, 0, len(withCustomer))
	for _, p := range withCustomer {
		seller, customer := p.Left.Right.Coord, p.Right.Coord
		if !seller.Valid || !customer.Valid {
			continue
		}
		out = append(out, geoPair{OrderID: p.Left.Left.OrderID, Seller: seller.V, Customer: customer.V})
	}
	return out
}

// pairDistances computes the haversine distance of every pair on at most
// workers goroutines. Results are stored by index, so order is preserved.
func pairDistances(ctx context.Context, pairs []geoPair, workers int) ([]float64, error) {
	out := make([]float64, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for start := 0; start < len(pairs); start += distanceChunk {
		start, end := start, min(start+distanceChunk, len(pairs))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = Haversine(pairs[i].Seller, pairs[i].Customer)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DistancesSellerCustomer averages, per order, the distance between seller
// and customer over every matching row with both coordinates resolved.
func DistancesSellerCustomer(ctx context.Context, matching []MatchingRow, sellers, customers []LocatedParty, workers int) ([]DistanceRow, error) {
	pairs := geoPairs(matching, sellers, customers)
	dists, err := pairDistances(ctx, pairs, workers)
	if err != nil {
		return nil, err
	}

	type measured struct {
		orderID string
		km      float64
	}
	rows := make([]measured, len(pairs))
	for i, p := range pairs {
		rows[i] = measured{orderID: p.OrderID, km: dists[i]}
	}
	groups := relation.GroupBy(rows, func(m measured) string { return m.orderID })
	out := make([]DistanceRow, 0, len(groups))
	for _, g := range groups {
		mean, ok := relation.Mean(g.Rows, func(m measured) (float64, bool) { return m.km, true })
		if !ok {
			continue
		}
		out = append(out, DistanceRow{OrderID: g.Key, DistanceSellerCustomer: mean})
	}
	return out, nil
}
