package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/lifeline-labs/goldenhour/internal/db"
	"github.com/lifeline-labs/goldenhour/internal/model"
)

// PostgresStore implements Store using pgxpool. Node geometry is stored
// as EWKB alongside the raw coordinates so a PostGIS-enabled database
// can index it directly.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	source     TEXT NOT NULL,
	center_lat DOUBLE PRECISION NOT NULL,
	center_lon DOUBLE PRECISION NOT NULL,
	radius_m   DOUBLE PRECISION NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshot_nodes (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	ord         INTEGER NOT NULL,
	node_id     BIGINT NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	degree      INTEGER NOT NULL,
	geom        BYTEA,
	PRIMARY KEY (snapshot_id, ord)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL,
	min_degree  INTEGER NOT NULL,
	facilities  INTEGER NOT NULL,
	seed        BIGINT NOT NULL,
	total_nodes INTEGER NOT NULL,
	risk_count  INTEGER NOT NULL,
	hubs        JSONB NOT NULL,
	warnings    JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots (name, fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs (created_at DESC);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// snapshotNodeColumns is the COPY column list for snapshot_nodes.
var snapshotNodeColumns = []string{"snapshot_id", "ord", "node_id", "lat", "lon", "degree", "geom"}

// SaveSnapshot inserts the snapshot row and bulk-loads its nodes.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO snapshots (id, name, source, center_lat, center_lon, radius_m, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snap.ID, snap.Name, snap.Source, snap.CenterLat, snap.CenterLon, snap.RadiusM, snap.FetchedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert snapshot %s", snap.ID)
	}

	rows := make([][]any, len(snap.Nodes))
	for i, n := range snap.Nodes {
		geomBytes, encErr := encodePoint(n.Lat, n.Lon)
		if encErr != nil {
			return encErr
		}
		rows[i] = []any{snap.ID, i, n.ID, n.Lat, n.Lon, n.Degree, geomBytes}
	}

	if _, err := db.CopyFrom(ctx, s.pool, "snapshot_nodes", snapshotNodeColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: load nodes for snapshot %s", snap.ID)
	}
	return nil
}

// GetSnapshot returns the snapshot with its node set in ingestion order.
func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	snap, err := s.scanSnapshot(ctx, `
		SELECT id, name, source, center_lat, center_lon, radius_m, fetched_at
		FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, eris.Errorf("postgres: snapshot %s not found", id)
	}

	if err := s.loadNodes(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// FindSnapshotByName returns the most recent snapshot with the given
// name, nodes included, or nil when none exists.
func (s *PostgresStore) FindSnapshotByName(ctx context.Context, name string) (*model.Snapshot, error) {
	snap, err := s.scanSnapshot(ctx, `
		SELECT id, name, source, center_lat, center_lon, radius_m, fetched_at
		FROM snapshots WHERE name = $1 ORDER BY fetched_at DESC LIMIT 1`, name)
	if err != nil || snap == nil {
		return nil, err
	}

	if err := s.loadNodes(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PostgresStore) scanSnapshot(ctx context.Context, query string, arg any) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&snap.ID, &snap.Name, &snap.Source,
		&snap.CenterLat, &snap.CenterLon, &snap.RadiusM, &snap.FetchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: query snapshot")
	}
	return &snap, nil
}

func (s *PostgresStore) loadNodes(ctx context.Context, snap *model.Snapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT node_id, lat, lon, degree
		FROM snapshot_nodes WHERE snapshot_id = $1 ORDER BY ord`, snap.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: query nodes for snapshot %s", snap.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var n model.NetworkNode
		if err := rows.Scan(&n.ID, &n.Lat, &n.Lon, &n.Degree); err != nil {
			return eris.Wrap(err, "postgres: scan node row")
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "postgres: iterate node rows")
	}
	return nil
}

// ListSnapshots returns snapshot metadata, newest first, without nodes.
func (s *PostgresStore) ListSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.name, s.source, s.center_lat, s.center_lon, s.radius_m, s.fetched_at
		FROM snapshots s ORDER BY s.fetched_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(
			&snap.ID, &snap.Name, &snap.Source,
			&snap.CenterLat, &snap.CenterLon, &snap.RadiusM, &snap.FetchedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot row")
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate snapshot rows")
	}
	return snaps, nil
}

// SaveRun persists one optimization run.
func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	hubs, err := json.Marshal(run.Hubs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal hubs")
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal warnings")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO runs (id, snapshot_id, min_degree, facilities, seed, total_nodes, risk_count, hubs, warnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.SnapshotID, run.MinDegree, run.Facilities, run.Seed,
		run.TotalNodes, run.RiskCount, hubs, warnings, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}
	return nil
}

// ListRuns returns runs newest first, capped at limit (0 means 50).
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, snapshot_id, min_degree, facilities, seed, total_nodes, risk_count, hubs, warnings, created_at
		FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var hubs, warnings []byte
		if err := rows.Scan(
			&run.ID, &run.SnapshotID, &run.MinDegree, &run.Facilities, &run.Seed,
			&run.TotalNodes, &run.RiskCount, &hubs, &warnings, &run.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run row")
		}
		if err := json.Unmarshal(hubs, &run.Hubs); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal hubs for run %s", run.ID)
		}
		if len(warnings) > 0 {
			if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal warnings for run %s", run.ID)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate run rows")
	}
	return runs, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
