package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/jotter/internal/filter"
	"github.com/dyluth/jotter/internal/notesfmt"
	"github.com/dyluth/jotter/internal/printer"
	"github.com/dyluth/jotter/pkg/notes"
)

var (
	showOutputFormat string
	showTitle        string
	showContains     string
)

var showCmd = &cobra.Command{
	Use:   "show AREA [NOTE]",
	Short: "Show the notes of an area",
	Long: `Show the notes of a note-taking area in list or get mode.

List Mode (no NOTE):
  Displays the area's notes as a table or JSONL stream, in tab order.

Get Mode (with NOTE):
  Displays one note as pretty-printed JSON. NOTE may be a note id, a unique
  id prefix, "#N" for the Nth tab, or a title (case-insensitive).

Output Formats (list mode only):
  default - Human-readable table with tab, ID, title, and a content preview
  jsonl   - Line-delimited JSON, one note per line

Filters (list mode only):
  --title    - Filter by title (glob pattern: "Meeting*", "*draft*")
  --contains - Filter by content substring (case-insensitive)

Examples:
  # List the notes of the library table
  jotter show library-table

  # Notes whose title starts with "Sprint"
  jotter show library-table --title="Sprint*"

  # Pipe the notes to jq
  jotter show library-table -o jsonl | jq -r .title

  # Get the second tab
  jotter show library-table '#2'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")
	showCmd.Flags().StringVar(&showTitle, "title", "", "Filter by title (glob pattern)")
	showCmd.Flags().StringVar(&showContains, "contains", "", "Filter by content substring")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	areaID := args[0]
	isGetMode := len(args) > 1

	if !isGetMode && showOutputFormat != "default" && showOutputFormat != "jsonl" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", showOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	t, err := connectTown(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	snap, err := t.getSnapshot(ctx, areaID)
	if err != nil {
		return err
	}

	if snap.Notes.IsZero() {
		printer.Info("Area '%s' holds no notes: nobody is inside it.\n", areaID)
		return nil
	}
	collection := notes.Normalize(snap.Notes)

	if isGetMode {
		i, err := resolveNote(collection, areaID, args[1])
		if err != nil {
			return err
		}
		return notesfmt.FormatSingleJSON(cmd.OutOrStdout(), collection.At(i))
	}

	criteria := &filter.Criteria{TitleGlob: showTitle, Contains: showContains}
	list := criteria.Apply(collection)

	if showOutputFormat == "jsonl" {
		return notesfmt.FormatJSONL(cmd.OutOrStdout(), list)
	}
	notesfmt.FormatNotes(cmd.OutOrStdout(), areaID, list)
	return nil
}
