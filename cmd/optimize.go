package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifeline-labs/goldenhour/internal/model"
	"github.com/lifeline-labs/goldenhour/internal/network"
	"github.com/lifeline-labs/goldenhour/internal/plan"
	"github.com/lifeline-labs/goldenhour/internal/render"
	"github.com/lifeline-labs/goldenhour/internal/store"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Place standby units for a corridor",
	Long:  "Classifies risk intersections in a road network and places standby trauma units at cluster centroids. The network comes from a saved snapshot, a shapefile, or a fresh Overpass fetch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("optimize"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		snap, presetMinDegree, err := resolveSnapshot(ctx, cmd, st)
		if err != nil {
			return err
		}

		params := optimizeParams(cmd, presetMinDegree)
		start := time.Now()
		result, err := plan.Build(snap.Nodes, params)
		if err != nil {
			return eris.Wrap(err, "optimize")
		}
		zap.L().Info("optimization complete",
			zap.String("snapshot", snap.Name),
			zap.Int("total_nodes", result.TotalNodes),
			zap.Int("risk_nodes", result.RiskCount),
			zap.Int("units", result.HubCount),
			zap.Duration("elapsed", time.Since(start)),
		)

		run := &model.Run{
			ID:         uuid.New().String(),
			SnapshotID: snap.ID,
			MinDegree:  params.MinDegree,
			Facilities: params.Facilities,
			Seed:       params.Seed,
			TotalNodes: result.TotalNodes,
			RiskCount:  result.RiskCount,
			Hubs:       result.Hubs,
			Warnings:   result.Warnings,
			CreatedAt:  time.Now().UTC(),
		}
		if err := st.SaveRun(ctx, run); err != nil {
			return err
		}

		return writeResult(cmd, result)
	},
}

// resolveSnapshot produces the node set to optimize: a stored snapshot,
// a local shapefile, or a fresh fetch (which is persisted for reuse).
// The second return is a preset-level degree threshold, 0 when unset.
func resolveSnapshot(ctx context.Context, cmd *cobra.Command, st store.Store) (*model.Snapshot, int, error) {
	snapshotRef, _ := cmd.Flags().GetString("snapshot")
	shapefile, _ := cmd.Flags().GetString("shapefile")

	switch {
	case snapshotRef != "":
		snap, err := st.FindSnapshotByName(ctx, snapshotRef)
		if err != nil {
			return nil, 0, err
		}
		if snap == nil {
			snap, err = st.GetSnapshot(ctx, snapshotRef)
			if err != nil {
				return nil, 0, err
			}
		}
		return snap, 0, nil

	case shapefile != "":
		nodes, err := network.LoadShapefile(shapefile)
		if err != nil {
			return nil, 0, err
		}
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = shapefile
		}
		snap := &model.Snapshot{
			ID:        uuid.New().String(),
			Name:      name,
			Source:    "shapefile",
			FetchedAt: time.Now().UTC(),
			Nodes:     nodes,
		}
		if err := st.SaveSnapshot(ctx, snap); err != nil {
			return nil, 0, err
		}
		return snap, 0, nil

	default:
		a, err := resolveArea(ctx, cmd)
		if err != nil {
			return nil, 0, err
		}
		snap, err := fetchSnapshot(ctx, initOverpass(), a)
		if err != nil {
			return nil, 0, err
		}
		if err := st.SaveSnapshot(ctx, snap); err != nil {
			return nil, 0, err
		}
		return snap, a.MinDegree, nil
	}
}

// optimizeParams merges flag overrides onto config defaults. A preset
// threshold applies only when --min-degree was not given.
func optimizeParams(cmd *cobra.Command, presetMinDegree int) plan.Params {
	p := plan.Params{
		MinDegree:     cfg.Optimizer.MinDegree,
		Facilities:    cfg.Optimizer.Facilities,
		Seed:          cfg.Optimizer.Seed,
		Restarts:      cfg.Optimizer.Restarts,
		MaxIterations: cfg.Optimizer.MaxIterations,
	}
	if presetMinDegree > 0 {
		p.MinDegree = presetMinDegree
	}
	if cmd.Flags().Changed("min-degree") {
		p.MinDegree, _ = cmd.Flags().GetInt("min-degree")
	}
	if cmd.Flags().Changed("facilities") {
		p.Facilities, _ = cmd.Flags().GetInt("facilities")
	}
	if cmd.Flags().Changed("seed") {
		p.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("restarts") {
		p.Restarts, _ = cmd.Flags().GetInt("restarts")
	}
	return p
}

// writeResult renders the result in the requested format to stdout or
// the --output file.
func writeResult(cmd *cobra.Command, result *model.OptimizationResult) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return eris.Wrapf(err, "create output file %s", output)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch format {
	case "text":
		return render.Text(w, result)
	case "summary":
		return render.Summary(w, result)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "geojson":
		return render.GeoJSON(w, result)
	case "xlsx":
		if output == "" {
			return eris.New("xlsx format requires --output")
		}
		return render.XLSX(w, result)
	default:
		return eris.Errorf("unknown format: %s", format)
	}
}

func init() {
	areaFlags(optimizeCmd)
	optimizeCmd.Flags().String("snapshot", "", "use a stored snapshot by name or ID instead of fetching")
	optimizeCmd.Flags().String("shapefile", "", "load the road network from a local shapefile")
	optimizeCmd.Flags().Int("facilities", 0, "number of standby units (default from config)")
	optimizeCmd.Flags().Int("min-degree", 0, "minimum intersection degree for risk classification (default from config)")
	optimizeCmd.Flags().Int64("seed", 0, "clustering seed (default from config)")
	optimizeCmd.Flags().Int("restarts", 0, "clustering restarts (default from config)")
	optimizeCmd.Flags().String("format", "summary", "output format: text, summary, json, geojson, xlsx")
	optimizeCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	rootCmd.AddCommand(optimizeCmd)
}
