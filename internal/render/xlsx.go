package render

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// XLSX writes the result as a two-sheet workbook: Units with the hub
// coordinates and Risk Nodes with the classified intersections.
func XLSX(w io.Writer, res *model.OptimizationResult) error {
	f := xlsx.NewFile()

	units, err := f.AddSheet("Units")
	if err != nil {
		return eris.Wrap(err, "render: add units sheet")
	}
	header := units.AddRow()
	for _, h := range []string{"Unit", "Latitude", "Longitude"} {
		header.AddCell().Value = h
	}
	for _, h := range res.Hubs {
		row := units.AddRow()
		row.AddCell().SetInt(h.Index)
		row.AddCell().SetFloatWithFormat(h.Lat, "0.000000")
		row.AddCell().SetFloatWithFormat(h.Lon, "0.000000")
	}

	nodes, err := f.AddSheet("Risk Nodes")
	if err != nil {
		return eris.Wrap(err, "render: add risk nodes sheet")
	}
	header = nodes.AddRow()
	for _, h := range []string{"Node ID", "Latitude", "Longitude", "Degree"} {
		header.AddCell().Value = h
	}
	for _, n := range res.Subset {
		row := nodes.AddRow()
		row.AddCell().SetInt64(n.ID)
		row.AddCell().SetFloatWithFormat(n.Lat, "0.000000")
		row.AddCell().SetFloatWithFormat(n.Lon, "0.000000")
		row.AddCell().SetInt(n.Degree)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "render: write workbook")
	}
	return nil
}
