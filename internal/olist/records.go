package olist

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/WolfSchew/kaggle-olist/internal/table"
)

// StatusDelivered is the order_status of orders that reached the customer.
const StatusDelivered = "delivered"

var timestampLayouts = []string{time.DateTime, time.RFC3339Nano, time.DateOnly}

// OrderRecord is one row of the orders table.
type OrderRecord struct {
	ID                  string
	CustomerID          sql.Null[string]
	Status              string
	PurchasedAt         sql.Null[time.Time]
	EstimatedDeliveryAt sql.Null[time.Time]
	DeliveredAt         sql.Null[time.Time]
}

// ReviewRecord is one row of the order_reviews table.
type ReviewRecord struct {
	ID      string
	OrderID string
	Score   sql.Null[int]
}

// ItemRecord is one line item of the order_items table.
type ItemRecord struct {
	OrderID   string
	Seq       sql.Null[int]
	ProductID sql.Null[string]
	SellerID  sql.Null[string]
	Price     sql.Null[float64]
	Freight   sql.Null[float64]
}

// Party is a seller or a customer with its postal-code prefix.
type Party struct {
	ID        string
	ZipPrefix string
	City      string
	State     string
}

// Coordinate is a point in degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// GeoEntry is one row of the geolocation table.
type GeoEntry struct {
	ZipPrefix string
	Coord     sql.Null[Coordinate]
}

func decodeOrders(ts table.Tables) ([]OrderRecord, error) {
	cols, err := columns(ts, table.Orders,
		"order_id", "customer_id", "order_status",
		"order_purchase_timestamp", "order_estimated_delivery_date", "order_delivered_customer_date")
	if err != nil {
		return nil, err
	}
	out := make([]OrderRecord, 0, len(cols[0]))
	for i, id := range cols[0] {
		if table.IsMissing(id) {
			continue
		}
		out = append(out, OrderRecord{
			ID:                  strings.TrimSpace(id),
			CustomerID:          parseString(cols[1][i]),
			Status:              parseString(cols[2][i]).V,
			PurchasedAt:         parseTime(cols[3][i]),
			EstimatedDeliveryAt: parseTime(cols[4][i]),
			DeliveredAt:         parseTime(cols[5][i]),
		})
	}
	return out, nil
}

func decodeReviews(ts table.Tables) ([]ReviewRecord, error) {
	cols, err := columns(ts, table.Reviews, "review_id", "order_id", "review_score")
	if err != nil {
		return nil, err
	}
	out := make([]ReviewRecord, 0, len(cols[0]))
	for i, id := range cols[0] {
		if table.IsMissing(cols[1][i]) {
			continue
		}
		out = append(out, ReviewRecord{
			ID:      parseString(id).V,
			OrderID: strings.TrimSpace(cols[1][i]),
			Score:   parseInt(cols[2][i]),
		})
	}
	return out, nil
}

func decodeItems(ts table.Tables) ([]ItemRecord, error) {
	cols, err := columns(ts, table.Items,
		"order_id", "order_item_id", "product_id", "seller_id", "price", "freight_value")
	if err != nil {
		return nil, err
	}
	out := make([]ItemRecord, 0, len(cols[0]))
	for i, id := range cols[0] {
		if table.IsMissing(id) {
			continue
		}
		out = append(out, ItemRecord{
			OrderID:   strings.TrimSpace(id),
			Seq:       parseInt(cols[1][i]),
			ProductID: parseString(cols[2][i]),
			SellerID:  parseString(cols[3][i]),
			Price:     parseFloat(cols[4][i]),
			Freight:   parseFloat(cols[5][i]),
		})
	}
	return out, nil
}

func decodeSellers(ts table.Tables) ([]Party, error) {
	return decodeParties(ts, table.Sellers, "seller_id", "seller_zip_code_prefix", "seller_city", "seller_state")
}

func decodeCustomers(ts table.Tables) ([]Party, error) {
	return decodeParties(ts, table.Customers, "customer_id", "customer_zip_code_prefix", "customer_city", "customer_state")
}

func decodeParties(ts table.Tables, name string, cols ...string) ([]Party, error) {
	vals, err := columns(ts, name, cols...)
	if err != nil {
		return nil, err
	}
	out := make([]Party, 0, len(vals[0]))
	for i, id := range vals[0] {
		if table.IsMissing(id) {
			continue
		}
		out = append(out, Party{
			ID:        strings.TrimSpace(id),
			ZipPrefix: zipKey(vals[1][i]),
			City:      strings.TrimSpace(vals[2][i]),
			State:     strings.TrimSpace(vals[3][i]),
		})
	}
	return out, nil
}

func decodeGeo(ts table.Tables) ([]GeoEntry, error) {
	cols, err := columns(ts, table.Geolocation,
		"geolocation_zip_code_prefix", "geolocation_lat", "geolocation_lng")
	if err != nil {
		return nil, err
	}
	out := make([]GeoEntry, 0, len(cols[0]))
	for i, zip := range cols[0] {
		key := zipKey(zip)
		if key == "" {
			continue
		}
		e := GeoEntry{ZipPrefix: key}
		lat, lng := parseFloat(cols[1][i]), parseFloat(cols[2][i])
		if lat.Valid && lng.Valid {
			e.Coord = sql.Null[Coordinate]{V: Coordinate{Lat: lat.V, Lng: lng.V}, Valid: true}
		}
		out = append(out, e)
	}
	return out, nil
}

func columns(ts table.Tables, name string, cols ...string) ([][]string, error) {
	t, err := ts.Get(name)
	if err != nil {
		return nil, err
	}
	return t.Columns(cols...)
}

func parseString(s string) sql.Null[string] {
	if table.IsMissing(s) {
		return sql.Null[string]{}
	}
	return sql.Null[string]{V: strings.TrimSpace(s), Valid: true}
}

func parseTime(s string) sql.Null[time.Time] {
	if table.IsMissing(s) {
		return sql.Null[time.Time]{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return sql.Null[time.Time]{V: t, Valid: true}
		}
	}
	return sql.Null[time.Time]{}
}

func parseFloat(s string) sql.Null[float64] {
	if table.IsMissing(s) {
		return sql.Null[float64]{}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return sql.Null[float64]{}
	}
	return sql.Null[float64]{V: f, Valid: true}
}

// parseInt accepts integral floats such as "5.0", which is how integer
// columns with gaps come out of most exporters.
func parseInt(s string) sql.Null[int] {
	f := parseFloat(s)
	if !f.Valid || f.V != float64(int(f.V)) {
		return sql.Null[int]{}
	}
	return sql.Null[int]{V: int(f.V), Valid: true}
}

// zipKey normalizes a postal-code prefix so that "01001", "1001" and "1001.0"
// join with each other.
func zipKey(s string) string {
	if table.IsMissing(s) {
		return ""
	}
	s = strings.TrimSpace(s)
	if n := parseInt(s); n.Valid {
		return strconv.Itoa(n.V)
	}
	return s
}
