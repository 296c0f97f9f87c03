// Package model defines the domain types shared across the optimizer:
// road-network nodes, snapshots, hubs, and optimization results.
//
// Latitude/longitude pairs are treated as planar coordinates throughout.
// This is a deliberate approximation that holds at the scales the tool
// targets (neighborhood to ~10km corridor); it does not generalize to
// continental extents.
package model

import "time"

// NetworkNode is a single road-network intersection. Nodes are immutable
// once ingested; the degree is the count of distinct street edges meeting
// at the node and serves as the risk proxy.
type NetworkNode struct {
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Degree int     `json:"degree"`
}

// Snapshot is a materialized road network for one area at one point in
// time. Node order is the ingestion order and is preserved by every
// downstream stage.
type Snapshot struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Source    string        `json:"source"` // "overpass" or "shapefile"
	CenterLat float64       `json:"center_lat"`
	CenterLon float64       `json:"center_lon"`
	RadiusM   float64       `json:"radius_m"`
	FetchedAt time.Time     `json:"fetched_at"`
	Nodes     []NetworkNode `json:"nodes,omitempty"`
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int {
	return len(s.Nodes)
}
