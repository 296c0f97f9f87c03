package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage road network snapshots",
	Long:  "Commands for fetching road networks from Overpass and inspecting stored snapshots.",
}

// -- network fetch --

var networkFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and store a road network snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		a, err := resolveArea(ctx, cmd)
		if err != nil {
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

		snap, err := fetchSnapshot(ctx, initOverpass(), a)
		if err != nil {
			return err
		}
		if err := st.SaveSnapshot(ctx, snap); err != nil {
			return err
		}

		fmt.Printf("Saved snapshot %s (%s): %d nodes\n", snap.Name, snap.ID, snap.NodeCount())
		return nil
	},
}

// -- network status --

var networkStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		snaps, err := st.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Fprintln(os.Stderr, "No snapshots found.")
			return nil
		}

		formatSnapshotList(os.Stdout, snaps)
		return nil
	},
}

// formatSnapshotList writes a tabular list of snapshots to w.
func formatSnapshotList(out io.Writer, snaps []model.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSOURCE\tCENTER\tRADIUS_M\tFETCHED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t------\t--------\t-------")

	for _, s := range snaps {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.4f, %.4f\t%.0f\t%s\n",
			truncateID(s.ID),
			s.Name,
			s.Source,
			s.CenterLat, s.CenterLon,
			s.RadiusM,
			s.FetchedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	areaFlags(networkFetchCmd)
	networkCmd.AddCommand(networkFetchCmd)
	networkCmd.AddCommand(networkStatusCmd)
	rootCmd.AddCommand(networkCmd)
}
