package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/jotter/internal/notefiles"
	"github.com/dyluth/jotter/internal/printer"
	"github.com/dyluth/jotter/pkg/notes"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export AREA [NOTE]",
	Short: "Export notes as HTML files",
	Long: `Export an area's notes to HTML files named after their titles.

File names are the lowercased title with every character other than a-z and
0-9 replaced by "_" ("Team Sync!" becomes "team_sync_.html"). Without NOTE
every note is exported, and titles that map to the same file name get a
numeric suffix ("plan.html", "plan 2.html"). Untitled notes are written as
"notes.html".

Examples:
  # Export every note into ./backup
  jotter export library-table --dir ./backup

  # Export the first tab into the current directory
  jotter export library-table '#1'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", ".", "Directory to write the files to")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	areaID := args[0]

	t, err := connectTown(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	ed, err := t.openEditor(ctx, areaID)
	if err != nil {
		return err
	}
	defer ed.abort()

	exported := ed.session.ExportAll()
	if len(args) > 1 {
		i, err := resolveNote(ed.session.Notes(), areaID, args[1])
		if err != nil {
			return err
		}
		if err := ed.session.Select(i); err != nil {
			return err
		}
		active, err := ed.session.ExportActive()
		if err != nil {
			return err
		}
		exported = []notes.Exported{active}
	}

	paths, err := notefiles.WriteFiles(exportDir, exported)
	if err != nil {
		return fmt.Errorf("failed to export notes: %w", err)
	}
	for _, p := range paths {
		printer.Step("%s\n", p)
	}
	printer.Success("Exported %d notes from area '%s'\n", len(paths), areaID)
	return nil
}
