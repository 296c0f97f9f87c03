package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the
// default backend: a single file, no server, suitable for single-user
// corridor planning.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	source     TEXT NOT NULL,
	center_lat REAL NOT NULL,
	center_lon REAL NOT NULL,
	radius_m   REAL NOT NULL,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_nodes (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	ord         INTEGER NOT NULL,
	node_id     INTEGER NOT NULL,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	degree      INTEGER NOT NULL,
	geom        BLOB,
	PRIMARY KEY (snapshot_id, ord)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL,
	min_degree  INTEGER NOT NULL,
	facilities  INTEGER NOT NULL,
	seed        INTEGER NOT NULL,
	total_nodes INTEGER NOT NULL,
	risk_count  INTEGER NOT NULL,
	hubs        TEXT NOT NULL,
	warnings    TEXT,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name, fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// SaveSnapshot inserts the snapshot row and its nodes in one transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, source, center_lat, center_lon, radius_m, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.Source, snap.CenterLat, snap.CenterLon, snap.RadiusM, snap.FetchedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert snapshot %s", snap.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_nodes (snapshot_id, ord, node_id, lat, lon, degree, geom)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare node insert")
	}
	defer stmt.Close()

	for i, n := range snap.Nodes {
		geomBytes, encErr := encodePoint(n.Lat, n.Lon)
		if encErr != nil {
			return encErr
		}
		if _, err := stmt.ExecContext(ctx, snap.ID, i, n.ID, n.Lat, n.Lon, n.Degree, geomBytes); err != nil {
			return eris.Wrapf(err, "sqlite: insert node %d for snapshot %s", n.ID, snap.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit snapshot")
	}
	return nil
}

// GetSnapshot returns the snapshot with its node set in ingestion order.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	snap, err := s.scanSnapshot(ctx, `
		SELECT id, name, source, center_lat, center_lon, radius_m, fetched_at
		FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, eris.Errorf("sqlite: snapshot %s not found", id)
	}

	if err := s.loadNodes(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// FindSnapshotByName returns the most recent snapshot with the given
// name, nodes included, or nil when none exists.
func (s *SQLiteStore) FindSnapshotByName(ctx context.Context, name string) (*model.Snapshot, error) {
	snap, err := s.scanSnapshot(ctx, `
		SELECT id, name, source, center_lat, center_lon, radius_m, fetched_at
		FROM snapshots WHERE name = ? ORDER BY fetched_at DESC LIMIT 1`, name)
	if err != nil || snap == nil {
		return nil, err
	}

	if err := s.loadNodes(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLiteStore) scanSnapshot(ctx context.Context, query string, arg any) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&snap.ID, &snap.Name, &snap.Source,
		&snap.CenterLat, &snap.CenterLon, &snap.RadiusM, &snap.FetchedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: query snapshot")
	}
	return &snap, nil
}

func (s *SQLiteStore) loadNodes(ctx context.Context, snap *model.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, lat, lon, degree
		FROM snapshot_nodes WHERE snapshot_id = ? ORDER BY ord`, snap.ID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: query nodes for snapshot %s", snap.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var n model.NetworkNode
		if err := rows.Scan(&n.ID, &n.Lat, &n.Lon, &n.Degree); err != nil {
			return eris.Wrap(err, "sqlite: scan node row")
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	return eris.Wrap(rows.Err(), "sqlite: iterate node rows")
}

// ListSnapshots returns snapshot metadata, newest first, without nodes.
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source, center_lat, center_lon, radius_m, fetched_at
		FROM snapshots ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(
			&snap.ID, &snap.Name, &snap.Source,
			&snap.CenterLat, &snap.CenterLon, &snap.RadiusM, &snap.FetchedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot row")
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate snapshot rows")
	}
	return snaps, nil
}

// SaveRun persists one optimization run.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	hubs, err := json.Marshal(run.Hubs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal hubs")
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal warnings")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, snapshot_id, min_degree, facilities, seed, total_nodes, risk_count, hubs, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SnapshotID, run.MinDegree, run.Facilities, run.Seed,
		run.TotalNodes, run.RiskCount, string(hubs), string(warnings), run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}
	return nil
}

// ListRuns returns runs newest first, capped at limit (0 means 50).
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, snapshot_id, min_degree, facilities, seed, total_nodes, risk_count, hubs, warnings, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var hubs string
		var warnings sql.NullString
		if err := rows.Scan(
			&run.ID, &run.SnapshotID, &run.MinDegree, &run.Facilities, &run.Seed,
			&run.TotalNodes, &run.RiskCount, &hubs, &warnings, &run.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		if err := json.Unmarshal([]byte(hubs), &run.Hubs); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal hubs for run %s", run.ID)
		}
		if warnings.Valid && warnings.String != "" && warnings.String != "null" {
			if err := json.Unmarshal([]byte(warnings.String), &run.Warnings); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal warnings for run %s", run.ID)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate run rows")
	}
	return runs, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
