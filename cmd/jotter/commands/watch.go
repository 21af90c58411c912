package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/jotter/internal/printer"
	"github.com/dyluth/jotter/internal/watch"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch [AREA...]",
	Short: "Monitor notes and player movement in real time",
	Long: `Stream every notes snapshot the authority publishes for the given areas
(all published areas when none are named), plus player movement across the
town, until interrupted.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON event envelopes for programmatic processing

Examples:
  # Watch every area
  jotter watch

  # Watch one area and export events as JSON
  jotter watch library-table --output=json > events.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := connectTown(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	areaIDs := args
	if len(areaIDs) == 0 {
		areaIDs, err = t.client.ListAreas(ctx)
		if err != nil {
			return fmt.Errorf("failed to list areas: %w", err)
		}
	}

	return watch.StreamEvents(ctx, t.client, areaIDs, outputFormat, cmd.OutOrStdout())
}

