// Package plan runs the optimization pipeline over an ingested node set:
// risk classification, hub clustering, result assembly. The pipeline is
// synchronous and performs no I/O or logging; failures and warnings come
// back as structured values for the presentation layer to translate.
package plan

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/lifeline-labs/goldenhour/internal/cluster"
	"github.com/lifeline-labs/goldenhour/internal/model"
	"github.com/lifeline-labs/goldenhour/internal/risk"
)

// Params configures one optimization run.
type Params struct {
	MinDegree  int
	Facilities int
	Seed       int64

	// Clustering knobs; zero values take the cluster package defaults.
	Restarts      int
	MaxIterations int
}

// Build classifies nodes, clusters the risk subset's coordinates, and
// assembles the result. On failure no partial result is returned: either
// the result holds exactly Facilities hubs or the error is non-nil.
func Build(nodes []model.NetworkNode, p Params) (*model.OptimizationResult, error) {
	if p.Facilities < 1 {
		return nil, eris.Errorf("plan: facilities must be >= 1, got %d", p.Facilities)
	}

	subset, fellBack := risk.Classify(nodes, p.MinDegree, p.Facilities)

	samples := make([]cluster.Sample, len(subset))
	for i, n := range subset {
		samples[i] = cluster.Sample{Lat: n.Lat, Lon: n.Lon}
	}

	hubs, degenerate, err := cluster.Optimize(samples, p.Facilities, p.Seed, cluster.Options{
		Restarts:      p.Restarts,
		MaxIterations: p.MaxIterations,
	})
	if err != nil {
		return nil, err
	}

	var warnings []model.Warning
	if fellBack {
		warnings = append(warnings, model.Warning{
			Kind:   model.WarnThresholdFallback,
			Detail: fmt.Sprintf("min_degree %d qualified fewer than %d nodes; relaxed selection used", p.MinDegree, p.Facilities),
		})
	}
	if degenerate {
		warnings = append(warnings, model.Warning{
			Kind:   model.WarnDegenerateCentroids,
			Detail: "two or more hubs converged to the same coordinates",
		})
	}

	return Assemble(subset, hubs, len(nodes), warnings), nil
}

// Assemble composes the final result. Pure data composition: hub order is
// preserved exactly as the optimizer produced it.
func Assemble(subset []model.NetworkNode, hubs []model.Hub, totalNodes int, warnings []model.Warning) *model.OptimizationResult {
	return &model.OptimizationResult{
		Subset:     subset,
		Hubs:       hubs,
		TotalNodes: totalNodes,
		RiskCount:  len(subset),
		HubCount:   len(hubs),
		Warnings:   warnings,
	}
}
