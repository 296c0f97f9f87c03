// Package store persists network snapshots and optimization runs.
// Snapshots make repeat optimizations cheap (the network download is the
// only I/O-bound step); runs keep a history of produced deployments.
package store

import (
	"context"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// Store is the persistence interface for snapshots and runs. Two
// implementations exist: Postgres (pgx) for shared deployments and
// SQLite for local single-user use, selected by the store.driver config.
type Store interface {
	// Snapshots. SaveSnapshot persists metadata and the full node set;
	// GetSnapshot returns both; ListSnapshots returns metadata only.
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	FindSnapshotByName(ctx context.Context, name string) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]model.Snapshot, error)

	// Runs.
	SaveRun(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
