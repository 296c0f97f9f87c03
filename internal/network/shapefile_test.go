package network

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeRoads authors a temporary shapefile with the given polylines,
// each a sequence of (lon, lat) points.
func writeRoads(t *testing.T, lines [][]shp.Point) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roads.shp")

	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)
	for _, line := range lines {
		w.Write(shp.NewPolyLine([][]shp.Point{line}))
	}
	w.Close()
	return path
}

func TestLoadShapefile_SharedEndpointIsIntersection(t *testing.T) {
	// Two roads meeting at (10, 10): the shared vertex has degree 2.
	path := writeRoads(t, [][]shp.Point{
		{{X: 0, Y: 0}, {X: 10, Y: 10}},
		{{X: 10, Y: 10}, {X: 20, Y: 0}},
	})

	nodes, err := LoadShapefile(path)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	// First-seen order: (0,0), (10,10), (20,0) — IDs are synthesized.
	assert.Equal(t, int64(1), nodes[0].ID)
	assert.InDelta(t, 10.0, nodes[1].Lat, 1e-9)
	assert.InDelta(t, 10.0, nodes[1].Lon, 1e-9)

	assert.Equal(t, 1, nodes[0].Degree)
	assert.Equal(t, 2, nodes[1].Degree)
	assert.Equal(t, 1, nodes[2].Degree)
}

func TestLoadShapefile_MidVertexDegrees(t *testing.T) {
	// A single road with an interior vertex: endpoints degree 1,
	// interior degree 2.
	path := writeRoads(t, [][]shp.Point{
		{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}},
	})

	nodes, err := LoadShapefile(path)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, 1, nodes[0].Degree)
	assert.Equal(t, 2, nodes[1].Degree)
	assert.Equal(t, 1, nodes[2].Degree)
}

func TestLoadShapefile_FourWayCrossing(t *testing.T) {
	// Four roads radiating from the origin make a degree-4 node.
	path := writeRoads(t, [][]shp.Point{
		{{X: 0, Y: 0}, {X: 1, Y: 0}},
		{{X: 0, Y: 0}, {X: -1, Y: 0}},
		{{X: 0, Y: 0}, {X: 0, Y: 1}},
		{{X: 0, Y: 0}, {X: 0, Y: -1}},
	})

	nodes, err := LoadShapefile(path)
	require.NoError(t, err)
	require.Len(t, nodes, 5)
	assert.Equal(t, 4, nodes[0].Degree, "the shared origin joins four street edges")
}

func TestLoadShapefile_MissingFile(t *testing.T) {
	_, err := LoadShapefile(filepath.Join(t.TempDir(), "absent.shp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}

func TestQuantize_SnapsNearbyVertices(t *testing.T) {
	a := quantize(12.935200, 77.624500)
	b := quantize(12.9352000004, 77.6245000004)
	c := quantize(12.935210, 77.624500)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
