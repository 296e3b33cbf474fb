package olist

import (
	"database/sql"
	"math"

	"github.com/WolfSchew/kaggle-olist/internal/relation"
)

// EarthRadiusKm is the sphere radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// LocatedParty is a seller or customer with its resolved coordinate.
type LocatedParty struct {
	Party
	Coord sql.Null[Coordinate]
}

// ResolveGeo keeps one entry per postal-code prefix: the first one, in
// source order, that carries a coordinate. Output follows first-seen order.
func ResolveGeo(entries []GeoEntry) []GeoEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]GeoEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Coord.Valid {
			continue
		}
		if _, ok := seen[e.ZipPrefix]; ok {
			continue
		}
		seen[e.ZipPrefix] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Locate left joins parties onto a resolved geolocation table by postal-code
// prefix. Parties whose prefix is unknown keep a null coordinate.
func Locate(parties []Party, resolved []GeoEntry) []LocatedParty {
	joined := relation.LeftJoin(parties, resolved,
		func(p Party) string { return p.ZipPrefix },
		func(g GeoEntry) string { return g.ZipPrefix },
	)
	out := make([]LocatedParty, 0, len(joined))
	for _, j := range joined {
		lp := LocatedParty{Party: *j.Left}
		if j.Right != nil && j.Left.ZipPrefix != "" {
			lp.Coord = j.Right.Coord
		}
		out = append(out, lp)
	}
	return out
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Coordinate) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(math.Min(h, 1)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
