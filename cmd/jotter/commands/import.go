package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/jotter/internal/notefiles"
	"github.com/dyluth/jotter/internal/printer"
	"github.com/dyluth/jotter/pkg/notes"
)

var (
	importWatchDir string
	importTimeout  time.Duration
)

var importCmd = &cobra.Command{
	Use:   "import AREA [FILE...]",
	Short: "Import text and HTML documents as notes",
	Long: `Import documents into an area's notes as one bulk update.

Each document becomes a new note appended after the existing ones, titled
after its file name without the extension. Duplicate titles within the batch
get a numeric suffix ("notes", "notes 2", ...). Supported files: .txt, .html,
.htm. The area must be active (at least one player inside).

With --watch, jotter keeps following a directory and imports every batch of
documents written into it until interrupted.

Examples:
  # Import two documents
  jotter import library-table agenda.html minutes.txt

  # Import whatever lands in ./inbox
  jotter import library-table --watch ./inbox`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importWatchDir, "watch", "", "Directory to watch for new documents")
	importCmd.Flags().DurationVar(&importTimeout, "timeout", defaultWaitTimeout, "How long to wait for the authority to publish the result")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	areaID, paths := args[0], args[1:]
	if len(paths) == 0 && importWatchDir == "" {
		return printer.Error(
			"nothing to import",
			"Name at least one document, or a directory to watch.",
			[]string{
				fmt.Sprintf("Import files:\n  jotter import %s notes.html", areaID),
				fmt.Sprintf("Watch a directory:\n  jotter import %s --watch ./inbox", areaID),
			},
		)
	}

	incoming, err := notefiles.ReadFiles(paths)
	if err != nil {
		return printer.Error(
			"failed to read documents",
			err.Error(),
			[]string{"Supported files: .txt, .html, .htm"},
		)
	}

	ctx := cmd.Context()
	t, err := connectTown(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	ed, err := t.openEditor(ctx, areaID)
	if err != nil {
		return err
	}

	if err := ed.session.Import(ctx, incoming); err != nil {
		ed.abort()
		return err
	}
	if len(incoming) > 0 {
		printer.Step("Sent %d documents to area '%s'\n", len(incoming), areaID)
	}

	if importWatchDir != "" {
		if err := watchImports(ctx, ed.session.Import, areaID); err != nil {
			ed.abort()
			return err
		}
	}

	// Commit with a fresh context: the watch may have ended on a signal
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), importTimeout+time.Second)
	defer cancel()
	snap, err := ed.commit(commitCtx, importTimeout)
	if err != nil {
		return err
	}

	total := 0
	if c, ok := snap.Notes.Collection(); ok {
		total = c.Len()
	}
	printer.Success("Area '%s' now holds %d notes\n", areaID, total)
	return nil
}

func watchImports(ctx context.Context, importFn notefiles.BatchFunc, areaID string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := notefiles.NewWatcher(importWatchDir, notefiles.DefaultQuietPeriod, nil)
	if err != nil {
		return printer.Error(
			"cannot watch directory",
			err.Error(),
			[]string{"Check that the directory exists and is readable"},
		)
	}

	printer.Info("Watching %s for documents (Ctrl-C to stop)\n", importWatchDir)
	return w.Run(ctx, func(ctx context.Context, batch []notes.Incoming) error {
		if err := importFn(ctx, batch); err != nil {
			printer.Warning("Failed to import %d documents: %v\n", len(batch), err)
			return err
		}
		printer.Step("Sent %d documents to area '%s'\n", len(batch), areaID)
		return nil
	})
}
