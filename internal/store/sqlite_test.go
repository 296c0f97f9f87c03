package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSnapshot(name string) *model.Snapshot {
	return &model.Snapshot{
		ID:        "snap-" + name,
		Name:      name,
		Source:    "overpass",
		CenterLat: 28.2378,
		CenterLon: 77.0697,
		RadiusM:   5000,
		FetchedAt: time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC),
		Nodes: []model.NetworkNode{
			{ID: 101, Lat: 28.24, Lon: 77.07, Degree: 4},
			{ID: 102, Lat: 28.25, Lon: 77.08, Degree: 3},
			{ID: 103, Lat: 28.26, Lon: 77.09, Degree: 2},
		},
	}
}

func TestSQLite_Snapshot_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	snap := testSnapshot("sohna-expressway")
	require.NoError(t, st.SaveSnapshot(ctx, snap))

	got, err := st.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Name, got.Name)
	assert.InDelta(t, snap.CenterLat, got.CenterLat, 1e-9)
	require.Len(t, got.Nodes, 3)
	// Node order survives the round trip.
	assert.Equal(t, int64(101), got.Nodes[0].ID)
	assert.Equal(t, int64(103), got.Nodes[2].ID)
	assert.Equal(t, 4, got.Nodes[0].Degree)
}

func TestSQLite_Snapshot_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetSnapshot(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_Snapshot_FindByName(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := testSnapshot("corridor")
	first.ID = "snap-old"
	first.FetchedAt = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveSnapshot(ctx, first))

	second := testSnapshot("corridor")
	second.ID = "snap-new"
	second.FetchedAt = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveSnapshot(ctx, second))

	got, err := st.FindSnapshotByName(ctx, "corridor")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "snap-new", got.ID)
	assert.Len(t, got.Nodes, 3)
}

func TestSQLite_Snapshot_FindByName_Miss(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.FindSnapshotByName(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Snapshot_List(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testSnapshot("alpha")
	a.FetchedAt = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	b := testSnapshot("beta")
	b.FetchedAt = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveSnapshot(ctx, a))
	require.NoError(t, st.SaveSnapshot(ctx, b))

	snaps, err := st.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "beta", snaps[0].Name)
	assert.Equal(t, "alpha", snaps[1].Name)
	// Listing is metadata only.
	assert.Empty(t, snaps[0].Nodes)
}

func TestSQLite_Run_SaveAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := &model.Run{
		ID:         "run-1",
		SnapshotID: "snap-1",
		MinDegree:  4,
		Facilities: 5,
		Seed:       42,
		TotalNodes: 120,
		RiskCount:  34,
		Hubs: []model.Hub{
			{Index: 1, Lat: 28.24, Lon: 77.07},
			{Index: 2, Lat: 28.26, Lon: 77.09},
		},
		Warnings: []model.Warning{
			{Kind: model.WarnThresholdFallback, Detail: "min degree relaxed to 2"},
		},
		CreatedAt: time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.SaveRun(ctx, run))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Seed, got.Seed)
	require.Len(t, got.Hubs, 2)
	assert.Equal(t, 2, got.Hubs[1].Index)
	assert.InDelta(t, 28.26, got.Hubs[1].Lat, 1e-9)
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, model.WarnThresholdFallback, got.Warnings[0].Kind)
}

func TestSQLite_Run_ListOrderAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := &model.Run{
			ID:         []string{"run-a", "run-b", "run-c"}[i],
			SnapshotID: "snap-1",
			MinDegree:  4,
			Facilities: 5,
			Seed:       42,
			Hubs:       []model.Hub{{Index: 1, Lat: 1, Lon: 1}},
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, st.SaveRun(ctx, run))
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestSQLite_Run_NoWarnings(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := &model.Run{
		ID:         "run-clean",
		SnapshotID: "snap-1",
		MinDegree:  4,
		Facilities: 2,
		Seed:       42,
		Hubs:       []model.Hub{{Index: 1, Lat: 1, Lon: 1}},
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.SaveRun(ctx, run))

	runs, err := st.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].Warnings)
}
