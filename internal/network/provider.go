// Package network acquires road-network snapshots for the optimizer. It
// is the only I/O-bound stage of the system and sits fully outside the
// optimization core: the core consumes the materialized node sequence and
// never performs network calls itself.
package network

import (
	"context"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// Provider supplies the node set for a circular area: identifiers,
// coordinates, and a connectivity degree per node, in a deterministic
// ingestion order.
type Provider interface {
	// FetchPoint downloads the drivable street network within radiusM
	// meters of (lat, lon).
	FetchPoint(ctx context.Context, lat, lon, radiusM float64) ([]model.NetworkNode, error)
}

// Geocoder resolves a free-form place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (lat, lon float64, err error)
}
