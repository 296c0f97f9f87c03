package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifeline-labs/goldenhour/internal/config"
	"github.com/lifeline-labs/goldenhour/internal/model"
	"github.com/lifeline-labs/goldenhour/internal/network"
)

// area is a resolved fetch target: a center point and radius, plus an
// optional per-corridor degree threshold from a preset.
type area struct {
	Name      string
	Lat       float64
	Lon       float64
	RadiusM   float64
	MinDegree int // 0 means not set
}

// areaFlags registers the shared location flags on a command.
func areaFlags(cmd *cobra.Command) {
	cmd.Flags().String("preset", "", "named corridor preset")
	cmd.Flags().String("place", "", "free-form place name, resolved via Nominatim")
	cmd.Flags().Float64("lat", 0, "center latitude")
	cmd.Flags().Float64("lon", 0, "center longitude")
	cmd.Flags().Float64("radius", 0, "fetch radius in meters (default from config)")
	cmd.Flags().String("name", "", "snapshot name (defaults to preset or place)")
}

// resolveArea turns the location flags into a concrete area. Exactly one
// of --preset, --place, or --lat/--lon must be given.
func resolveArea(ctx context.Context, cmd *cobra.Command) (*area, error) {
	preset, _ := cmd.Flags().GetString("preset")
	place, _ := cmd.Flags().GetString("place")
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	radius, _ := cmd.Flags().GetFloat64("radius")
	name, _ := cmd.Flags().GetString("name")

	if radius <= 0 {
		radius = cfg.Network.DefaultRadiusM
	}

	switch {
	case preset != "":
		presets, err := config.LoadPresets(cfg.Presets.Path)
		if err != nil {
			return nil, err
		}
		p := config.FindPreset(presets, preset)
		if p == nil {
			return nil, eris.Errorf("unknown preset: %s", preset)
		}
		if name == "" {
			name = p.Name
		}
		return &area{Name: name, Lat: p.Lat, Lon: p.Lon, RadiusM: p.RadiusM, MinDegree: p.MinDegree}, nil

	case place != "":
		gc := initGeocoder()
		glat, glon, err := gc.Geocode(ctx, place)
		if err != nil {
			return nil, err
		}
		zap.L().Info("geocoded place",
			zap.String("place", place),
			zap.Float64("lat", glat),
			zap.Float64("lon", glon),
		)
		if name == "" {
			name = place
		}
		return &area{Name: name, Lat: glat, Lon: glon, RadiusM: radius}, nil

	case cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon"):
		if name == "" {
			name = "adhoc"
		}
		return &area{Name: name, Lat: lat, Lon: lon, RadiusM: radius}, nil

	default:
		return nil, eris.New("one of --preset, --place, or --lat/--lon is required")
	}
}

// fetchSnapshot downloads the road network for an area and wraps it in
// a snapshot ready for persistence.
func fetchSnapshot(ctx context.Context, provider network.Provider, a *area) (*model.Snapshot, error) {
	start := time.Now()
	nodes, err := provider.FetchPoint(ctx, a.Lat, a.Lon, a.RadiusM)
	if err != nil {
		return nil, err
	}
	zap.L().Info("fetched road network",
		zap.String("name", a.Name),
		zap.Int("nodes", len(nodes)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &model.Snapshot{
		ID:        uuid.New().String(),
		Name:      a.Name,
		Source:    "overpass",
		CenterLat: a.Lat,
		CenterLon: a.Lon,
		RadiusM:   a.RadiusM,
		FetchedAt: time.Now().UTC(),
		Nodes:     nodes,
	}, nil
}
