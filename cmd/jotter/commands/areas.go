package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/jotter/internal/notesfmt"
	"github.com/dyluth/jotter/pkg/area"
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "List the note-taking areas of the town",
	Long: `List every note-taking area the authority has published, with its
occupancy state, number of notes, and occupants.

An area is active while at least one player is inside it. Empty areas hold
no notes: the authority discards them when the last player leaves.`,
	Args: cobra.NoArgs,
	RunE: runAreas,
}

func init() {
	rootCmd.AddCommand(areasCmd)
}

func runAreas(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	t, err := connectTown(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	ids, err := t.client.ListAreas(ctx)
	if err != nil {
		return fmt.Errorf("failed to list areas: %w", err)
	}

	snaps := make([]*area.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := t.client.GetSnapshot(ctx, id)
		if err != nil {
			// Indexed but not cached yet; skip rather than fail the listing
			if area.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("failed to get area %s: %w", id, err)
		}
		snaps = append(snaps, snap)
	}

	notesfmt.FormatAreas(cmd.OutOrStdout(), snaps, t.cfg.Town)
	return nil
}
