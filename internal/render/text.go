// Package render turns optimization results into user-facing output:
// plain text, GeoJSON for mapping tools, and XLSX workbooks.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// Text writes the hub list in the canonical one-line-per-unit format.
func Text(w io.Writer, res *model.OptimizationResult) error {
	for _, h := range res.Hubs {
		if _, err := fmt.Fprintf(w, "Unit %d: %.6f, %.6f\n", h.Index, h.Lat, h.Lon); err != nil {
			return eris.Wrap(err, "render: write hub line")
		}
	}
	return nil
}

// Summary writes a tabulated overview of the run: node counts, hub
// coordinates and any warnings raised along the way.
func Summary(w io.Writer, res *model.OptimizationResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Network nodes:\t%d\n", res.TotalNodes)
	fmt.Fprintf(tw, "Risk nodes:\t%d\n", res.RiskCount)
	fmt.Fprintf(tw, "Standby units:\t%d\n", res.HubCount)
	fmt.Fprintln(tw)

	for _, h := range res.Hubs {
		fmt.Fprintf(tw, "Unit %d:\t%.6f, %.6f\n", h.Index, h.Lat, h.Lon)
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintln(tw)
		for _, warn := range res.Warnings {
			fmt.Fprintf(tw, "Warning:\t%s\n", warningText(warn))
		}
	}

	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "render: flush summary")
	}
	return nil
}

// warningText maps a structured warning to its user-visible phrasing.
func warningText(w model.Warning) string {
	switch w.Kind {
	case model.WarnThresholdFallback:
		if w.Detail != "" {
			return fmt.Sprintf("risk threshold relaxed (%s)", w.Detail)
		}
		return "risk threshold relaxed to qualify enough nodes"
	case model.WarnDegenerateCentroids:
		if w.Detail != "" {
			return fmt.Sprintf("some units share coordinates (%s)", w.Detail)
		}
		return "some units share coordinates"
	default:
		return string(w.Kind)
	}
}
