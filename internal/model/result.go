package model

import "time"

// WarningKind identifies a non-fatal signal raised during optimization.
type WarningKind string

// Warning kinds.
const (
	// WarnThresholdFallback means the classifier had to relax past the
	// caller's requested minimum degree to qualify enough nodes.
	WarnThresholdFallback WarningKind = "threshold_fallback"

	// WarnDegenerateCentroids means two or more hubs converged to the
	// same coordinates (colinear or sparse input).
	WarnDegenerateCentroids WarningKind = "degenerate_centroids"
)

// Warning is a non-fatal observability signal. Warnings never halt the
// pipeline; translation to user-visible text happens at the presentation
// layer.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Detail string      `json:"detail"`
}

// Hub is a synthesized standby coordinate: the centroid of one cluster of
// risk-node positions. A hub is not necessarily coincident with any real
// intersection. Index runs 1..N in internal cluster order, which is
// reproducible for a fixed seed but not ranked by any external criterion.
type Hub struct {
	Index int     `json:"index"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// OptimizationResult is the full output of one optimization run. It is
// immutable once assembled; renderers consume it read-only.
type OptimizationResult struct {
	Subset     []NetworkNode `json:"subset"`
	Hubs       []Hub         `json:"hubs"`
	TotalNodes int           `json:"total_nodes"`
	RiskCount  int           `json:"risk_count"`
	HubCount   int           `json:"hub_count"`
	Warnings   []Warning     `json:"warnings,omitempty"`
}

// Run is a persisted optimization run: the parameters used plus the
// resulting hubs and counts.
type Run struct {
	ID         string    `json:"id"`
	SnapshotID string    `json:"snapshot_id"`
	MinDegree  int       `json:"min_degree"`
	Facilities int       `json:"facilities"`
	Seed       int64     `json:"seed"`
	TotalNodes int       `json:"total_nodes"`
	RiskCount  int       `json:"risk_count"`
	Hubs       []Hub     `json:"hubs"`
	Warnings   []Warning `json:"warnings,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
