// Package olist builds the per-order feature table of the Olist e-commerce
// dataset from its raw tables.
package olist

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"github.com/op/go-logging"

	"github.com/WolfSchew/kaggle-olist/internal/metrics"
	"github.com/WolfSchew/kaggle-olist/internal/table"
)

var log = logging.MustGetLogger("olist")

// Source yields the raw tables of one snapshot.
type Source interface {
	Load(ctx context.Context) (table.Tables, error)
}

// TableKey maps a data file name to its table key.
func TableKey(fileName string) (string, bool) { return table.Key(fileName) }

// GetData loads every raw table of src.
func GetData(ctx context.Context, src Source) (table.Tables, error) {
	return src.Load(ctx)
}

// GetMatchingTable loads src and returns its matching table.
func GetMatchingTable(ctx context.Context, src Source) ([]MatchingRow, error) {
	o, err := Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return o.MatchingTable()
}

// TrainingOptions selects which orders and columns the training table has.
type TrainingOptions struct {
	IsDelivered  bool
	WithDistance bool
}

func DefaultTrainingOptions() TrainingOptions {
	return TrainingOptions{IsDelivered: true}
}

// Order computes features over one loaded snapshot. The tables are only
// read, so an Order may be shared between goroutines.
type Order struct {
	tables  table.Tables
	runID   string
	metrics *metrics.Registry
	workers int
}

type Option func(*Order)

// WithMetrics records row counts and stage timings in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(o *Order) { o.metrics = r }
}

// WithDistanceWorkers bounds the goroutines computing distances.
func WithDistanceWorkers(n int) Option {
	return func(o *Order) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithRunID(id string) Option {
	return func(o *Order) {
		if id != "" {
			o.runID = id
		}
	}
}

// New wraps already loaded tables.
func New(tables table.Tables, opts ...Option) *Order {
	o := &Order{
		tables:  tables,
		runID:   uuid.NewString(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load reads src and wraps the result.
func Load(ctx context.Context, src Source, opts ...Option) (*Order, error) {
	o := New(nil, opts...)
	done := o.metrics.Stage("load")
	tables, err := GetData(ctx, src)
	done()
	if err != nil {
		return nil, err
	}
	o.tables = tables
	for _, name := range tables.Names() {
		n := tables[name].Len()
		o.metrics.TableLoaded(name, n)
		log.Debugf("run %s: table %s has %d rows", o.runID, name, n)
	}
	log.Infof("run %s: loaded %d tables", o.runID, len(tables))
	return o, nil
}

// Data returns the raw tables.
func (o *Order) Data() table.Tables { return o.tables }

func (o *Order) RunID() string { return o.runID }

// MatchingTable links every order with its reviews and line items.
func (o *Order) MatchingTable() ([]MatchingRow, error) {
	orders, err := decodeOrders(o.tables)
	if err != nil {
		return nil, err
	}
	reviews, err := decodeReviews(o.tables)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems(o.tables)
	if err != nil {
		return nil, err
	}
	rows := MatchingTable(orders, reviews, items)
	o.record("matching", len(rows))
	return rows, nil
}

// WaitTime returns the delivery timing of each order, of delivered orders
// only when isDelivered is set.
func (o *Order) WaitTime(isDelivered bool) ([]WaitTimeRow, error) {
	orders, err := decodeOrders(o.tables)
	if err != nil {
		return nil, err
	}
	rows := WaitTimes(orders, isDelivered)
	o.record("wait_time", len(rows))
	return rows, nil
}

func (o *Order) ReviewScore() ([]ReviewScoreRow, error) {
	reviews, err := decodeReviews(o.tables)
	if err != nil {
		return nil, err
	}
	rows := ReviewScores(reviews)
	o.record("review_score", len(rows))
	return rows, nil
}

func (o *Order) ProductCount() ([]ProductCountRow, error) {
	items, err := decodeItems(o.tables)
	if err != nil {
		return nil, err
	}
	return o.productCount(items), nil
}

func (o *Order) SellerCount() ([]SellerCountRow, error) {
	items, err := decodeItems(o.tables)
	if err != nil {
		return nil, err
	}
	return o.sellerCount(items), nil
}

func (o *Order) PriceAndFreight() ([]PriceFreightRow, error) {
	items, err := decodeItems(o.tables)
	if err != nil {
		return nil, err
	}
	return o.priceAndFreight(items), nil
}

func (o *Order) productCount(items []ItemRecord) []ProductCountRow {
	rows := ProductCounts(items)
	o.record("product_count", len(rows))
	return rows
}

func (o *Order) sellerCount(items []ItemRecord) []SellerCountRow {
	rows := SellerCounts(items)
	o.record("seller_count", len(rows))
	return rows
}

func (o *Order) priceAndFreight(items []ItemRecord) []PriceFreightRow {
	rows := PricesAndFreight(items)
	o.record("price_and_freight", len(rows))
	return rows
}

// LocateSellers attaches a resolved coordinate to every seller.
func (o *Order) LocateSellers() ([]LocatedParty, error) {
	return o.locate(decodeSellers)
}

// LocateCustomers attaches a resolved coordinate to every customer.
func (o *Order) LocateCustomers() ([]LocatedParty, error) {
	return o.locate(decodeCustomers)
}

func (o *Order) locate(decode func(table.Tables) ([]Party, error)) ([]LocatedParty, error) {
	parties, err := decode(o.tables)
	if err != nil {
		return nil, err
	}
	geo, err := decodeGeo(o.tables)
	if err != nil {
		return nil, err
	}
	return Locate(parties, ResolveGeo(geo)), nil
}

// DistanceSellerCustomer returns, per order, the mean distance in km between
// its sellers and its customer.
func (o *Order) DistanceSellerCustomer(ctx context.Context) ([]DistanceRow, error) {
	defer o.metrics.Stage("distance")()

	matching, err := o.MatchingTable()
	if err != nil {
		return nil, err
	}
	sellers, err := o.LocateSellers()
	if err != nil {
		return nil, err
	}
	customers, err := o.LocateCustomers()
	if err != nil {
		return nil, err
	}
	rows, err := DistancesSellerCustomer(ctx, matching, sellers, customers, o.workers)
	if err != nil {
		return nil, err
	}
	o.record("distance_seller_customer", len(rows))
	return rows, nil
}

// TrainingData assembles the training table: one row per order that has
// every feature.
func (o *Order) TrainingData(ctx context.Context, opts TrainingOptions) ([]TrainingRow, error) {
	defer o.metrics.Stage("training_data")()

	var (
		f   = features{withDistance: opts.WithDistance}
		err error
	)
	if f.waits, err = o.WaitTime(opts.IsDelivered); err != nil {
		return nil, err
	}
	if f.reviews, err = o.ReviewScore(); err != nil {
		return nil, err
	}
	items, err := decodeItems(o.tables)
	if err != nil {
		return nil, err
	}
	f.products = o.productCount(items)
	f.sellers = o.sellerCount(items)
	f.prices = o.priceAndFreight(items)
	if opts.WithDistance {
		if f.distances, err = o.DistanceSellerCustomer(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, dropped := assemble(f)
	o.metrics.Assembled(len(rows), dropped)
	log.Infof("run %s: training table has %d rows, %d dropped for missing values", o.runID, len(rows), dropped)
	return rows, nil
}

func (o *Order) record(extractor string, rows int) {
	o.metrics.Extracted(extractor, rows)
	log.Debugf("run %s: %s produced %d rows", o.runID, extractor, rows)
}
