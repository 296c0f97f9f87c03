package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// encodePoint converts a (lat, lon) pair to EWKB bytes with SRID 4326
// for the Postgres geometry column. Coordinate order is (X=lon, Y=lat).
func encodePoint(lat, lon float64) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode point WKB")
	}
	return data, nil
}
