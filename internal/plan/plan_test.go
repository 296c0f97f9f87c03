package plan

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeline-labs/goldenhour/internal/cluster"
	"github.com/lifeline-labs/goldenhour/internal/model"
)

// lineNodes returns n nodes of the given degree evenly spaced on the lat
// axis from (0,0).
func lineNodes(n, degree int) []model.NetworkNode {
	nodes := make([]model.NetworkNode, n)
	for i := range nodes {
		nodes[i] = model.NetworkNode{ID: int64(i + 1), Lat: float64(i), Lon: 0, Degree: degree}
	}
	return nodes
}

func TestBuild_LineScenario(t *testing.T) {
	// 10 nodes on a line, all degree 5, min_degree 3: everything passes
	// the primary threshold, two hubs land near the half means.
	nodes := lineNodes(10, 5)

	result, err := Build(nodes, Params{MinDegree: 3, Facilities: 2, Seed: 42})
	require.NoError(t, err)

	assert.Equal(t, 10, result.TotalNodes)
	assert.Equal(t, 10, result.RiskCount)
	assert.Equal(t, 2, result.HubCount)
	assert.Len(t, result.Hubs, 2)
	assert.Empty(t, result.Warnings)

	lats := []float64{result.Hubs[0].Lat, result.Hubs[1].Lat}
	sort.Float64s(lats)
	assert.InDelta(t, 2.0, lats[0], 1e-9)
	assert.InDelta(t, 7.0, lats[1], 1e-9)
}

func TestBuild_InsufficientAfterFullFallback(t *testing.T) {
	// 3 nodes of degree 1, min_degree 4, 5 facilities: the ladder
	// exhausts at the full node set and clustering must refuse.
	nodes := lineNodes(3, 1)

	result, err := Build(nodes, Params{MinDegree: 4, Facilities: 5, Seed: 42})
	require.Error(t, err)
	assert.Nil(t, result, "no partial result on failure")

	var ise *cluster.InsufficientSamplesError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 3, ise.Samples)
	assert.Equal(t, 5, ise.Facilities)
}

func TestBuild_FallbackWarningSurfaced(t *testing.T) {
	// Two high-degree nodes is short of 3 facilities; degree>=2 nodes
	// fill the gap and the fallback is reported as a warning.
	nodes := []model.NetworkNode{
		{ID: 1, Lat: 0, Lon: 0, Degree: 5},
		{ID: 2, Lat: 1, Lon: 1, Degree: 4},
		{ID: 3, Lat: 2, Lon: 2, Degree: 2},
		{ID: 4, Lat: 3, Lon: 3, Degree: 3},
	}

	result, err := Build(nodes, Params{MinDegree: 4, Facilities: 3, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, 4, result.RiskCount)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, model.WarnThresholdFallback, result.Warnings[0].Kind)
}

func TestBuild_DegenerateWarningSurfaced(t *testing.T) {
	nodes := []model.NetworkNode{
		{ID: 1, Lat: 0, Lon: 0, Degree: 4},
		{ID: 2, Lat: 0, Lon: 0, Degree: 4},
	}

	result, err := Build(nodes, Params{MinDegree: 4, Facilities: 2, Seed: 42})
	require.NoError(t, err)
	require.Len(t, result.Hubs, 2)

	kinds := make([]model.WarningKind, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		kinds = append(kinds, w.Kind)
	}
	assert.Contains(t, kinds, model.WarnDegenerateCentroids)
}

func TestBuild_InvalidFacilities(t *testing.T) {
	_, err := Build(lineNodes(5, 5), Params{MinDegree: 3, Facilities: 0, Seed: 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "facilities must be >= 1")
}

func TestBuild_Deterministic(t *testing.T) {
	nodes := lineNodes(40, 4)

	a, err := Build(nodes, Params{MinDegree: 3, Facilities: 4, Seed: 99})
	require.NoError(t, err)
	b, err := Build(nodes, Params{MinDegree: 3, Facilities: 4, Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssemble_PreservesHubOrder(t *testing.T) {
	subset := lineNodes(3, 4)
	hubs := []model.Hub{
		{Index: 1, Lat: 9, Lon: 9},
		{Index: 2, Lat: 1, Lon: 1},
		{Index: 3, Lat: 5, Lon: 5},
	}

	result := Assemble(subset, hubs, 12, nil)
	assert.Equal(t, hubs, result.Hubs)
	assert.Equal(t, 12, result.TotalNodes)
	assert.Equal(t, 3, result.RiskCount)
	assert.Equal(t, 3, result.HubCount)
	assert.Empty(t, result.Warnings)
}
