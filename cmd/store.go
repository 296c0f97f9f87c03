package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lifeline-labs/goldenhour/internal/network"
	"github.com/lifeline-labs/goldenhour/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "goldenhour.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initOverpass() *network.OverpassClient {
	return network.NewOverpassClient(
		network.WithBaseURL(cfg.Network.OverpassURL),
		network.WithUserAgent(cfg.Network.UserAgent),
		network.WithRateLimit(cfg.Network.RateLimitRPS),
		network.WithTimeout(time.Duration(cfg.Network.TimeoutSecs)*time.Second),
		network.WithMaxRetries(cfg.Network.MaxRetries),
	)
}

func initGeocoder() *network.NominatimClient {
	return network.NewNominatimClient(
		network.WithNominatimURL(cfg.Network.NominatimURL),
		network.WithNominatimUserAgent(cfg.Network.UserAgent),
	)
}
