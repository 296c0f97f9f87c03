package network

import (
	"math"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// coordQuantum is the grid used to snap polyline vertices when deriving
// intersections: ~0.1m, well below road-geometry precision.
const coordQuantum = 1e-6

// vertexKey identifies a snapped vertex position.
type vertexKey struct {
	lat int64
	lon int64
}

func quantize(lat, lon float64) vertexKey {
	return vertexKey{
		lat: int64(math.Round(lat / coordQuantum)),
		lon: int64(math.Round(lon / coordQuantum)),
	}
}

// LoadShapefile derives a road network from polyline road geometry
// (e.g., Census TIGER roads). Every distinct vertex becomes a node; its
// degree is the number of polyline segments incident to it, so shared
// endpoints between road features count as intersections. Node IDs are
// synthesized in first-seen order, which makes ingestion order
// deterministic for a fixed file.
func LoadShapefile(path string) ([]model.NetworkNode, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "network: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	index := make(map[vertexKey]int)
	var nodes []model.NetworkNode
	var skipped int

	touch := func(lat, lon float64) int {
		key := quantize(lat, lon)
		if i, ok := index[key]; ok {
			return i
		}
		i := len(nodes)
		index[key] = i
		nodes = append(nodes, model.NetworkNode{ID: int64(i + 1), Lat: lat, Lon: lon})
		return i
	}

	for reader.Next() {
		_, shape := reader.Shape()
		pl, ok := shape.(*shp.PolyLine)
		if !ok || pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
			skipped++
			continue
		}

		for part := int32(0); part < pl.NumParts; part++ {
			start := pl.Parts[part]
			end := int32(len(pl.Points))
			if part+1 < pl.NumParts {
				end = pl.Parts[part+1]
			}

			prev := -1
			for j := start; j < end; j++ {
				// Shapefile points are (X=lon, Y=lat).
				cur := touch(pl.Points[j].Y, pl.Points[j].X)
				if prev >= 0 && prev != cur {
					nodes[prev].Degree++
					nodes[cur].Degree++
				}
				prev = cur
			}
		}
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped non-polyline records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return nodes, nil
}
