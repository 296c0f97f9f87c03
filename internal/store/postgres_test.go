package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS snapshots`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err := s.Migrate(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	snap := &model.Snapshot{
		ID:        "snap-1",
		Name:      "sohna-expressway",
		Source:    "overpass",
		CenterLat: 28.2378,
		CenterLon: 77.0697,
		RadiusM:   5000,
		FetchedAt: time.Now().UTC(),
		Nodes: []model.NetworkNode{
			{ID: 101, Lat: 28.24, Lon: 77.07, Degree: 4},
			{ID: 102, Lat: 28.25, Lon: 77.08, Degree: 3},
		},
	}

	mock.ExpectExec(`INSERT INTO snapshots`).
		WithArgs(snap.ID, snap.Name, snap.Source, snap.CenterLat, snap.CenterLon, snap.RadiusM, snap.FetchedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"snapshot_nodes"}, snapshotNodeColumns).
		WillReturnResult(2)

	err := s.SaveSnapshot(context.Background(), snap)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSnapshot_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, source, center_lat, center_lon, radius_m, fetched_at`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSnapshot(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindSnapshotByName_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, source, center_lat, center_lon, radius_m, fetched_at`).
		WithArgs("unknown-corridor").
		WillReturnError(pgx.ErrNoRows)

	snap, err := s.FindSnapshotByName(context.Background(), "unknown-corridor")
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindSnapshotByName_LoadsNodes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	fetched := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM snapshots WHERE name = \$1 ORDER BY fetched_at DESC LIMIT 1`).
		WithArgs("sohna-expressway").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "name", "source", "center_lat", "center_lon", "radius_m", "fetched_at"}).
			AddRow("snap-1", "sohna-expressway", "overpass", 28.2378, 77.0697, 5000.0, fetched))
	mock.ExpectQuery(`FROM snapshot_nodes WHERE snapshot_id = \$1 ORDER BY ord`).
		WithArgs("snap-1").
		WillReturnRows(pgxmock.NewRows([]string{"node_id", "lat", "lon", "degree"}).
			AddRow(int64(101), 28.24, 77.07, 4).
			AddRow(int64(102), 28.25, 77.08, 3))

	snap, err := s.FindSnapshotByName(context.Background(), "sohna-expressway")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "snap-1", snap.ID)
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, int64(101), snap.Nodes[0].ID)
	assert.Equal(t, 3, snap.Nodes[1].Degree)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	run := &model.Run{
		ID:         "run-1",
		SnapshotID: "snap-1",
		MinDegree:  4,
		Facilities: 5,
		Seed:       42,
		TotalNodes: 120,
		RiskCount:  34,
		Hubs:       []model.Hub{{Index: 1, Lat: 28.24, Lon: 77.07}},
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(run.ID, run.SnapshotID, run.MinDegree, run.Facilities, run.Seed,
			run.TotalNodes, run.RiskCount, pgxmock.AnyArg(), pgxmock.AnyArg(), run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveRun(context.Background(), run)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM runs ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "snapshot_id", "min_degree", "facilities", "seed", "total_nodes", "risk_count", "hubs", "warnings", "created_at"}).
			AddRow("run-1", "snap-1", 4, 5, int64(42), 120, 34,
				[]byte(`[{"index":1,"lat":28.24,"lon":77.07}]`),
				[]byte(`[{"kind":"threshold_fallback","detail":"min degree relaxed to 2"}]`),
				created))

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	require.Len(t, runs[0].Hubs, 1)
	assert.InDelta(t, 28.24, runs[0].Hubs[0].Lat, 1e-9)
	require.Len(t, runs[0].Warnings, 1)
	assert.Equal(t, model.WarnThresholdFallback, runs[0].Warnings[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "snapshot_id", "min_degree", "facilities", "seed", "total_nodes", "risk_count", "hubs", "warnings", "created_at"}))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
