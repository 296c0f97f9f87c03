package render

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// GeoJSON writes the result as a FeatureCollection: one point feature
// per standby hub (role "hub") and one per risk node (role "risk_node").
// Coordinates follow the GeoJSON convention of lon, lat.
func GeoJSON(w io.Writer, res *model.OptimizationResult) error {
	fc := geojson.NewFeatureCollection()

	for _, h := range res.Hubs {
		f := geojson.NewFeature(orb.Point{h.Lon, h.Lat})
		f.Properties["role"] = "hub"
		f.Properties["unit"] = h.Index
		fc.Append(f)
	}

	for _, n := range res.Subset {
		f := geojson.NewFeature(orb.Point{n.Lon, n.Lat})
		f.Properties["role"] = "risk_node"
		f.Properties["node_id"] = n.ID
		f.Properties["degree"] = n.Degree
		fc.Append(f)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return eris.Wrap(err, "render: encode geojson")
	}
	return nil
}
