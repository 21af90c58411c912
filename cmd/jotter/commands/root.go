package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/jotter/internal/config"
	"github.com/dyluth/jotter/internal/printer"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jotter",
	Short: "Jotter - shared notes for the note-taking areas of a town",
	Long: `Jotter inspects and edits the shared notes of a town's note-taking areas.

Every area is owned by the authority, which holds the notes while players
are inside and broadcasts each change to all of them. Jotter connects to the
same Redis as the authority and speaks the same command protocol as the
players in the town.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil && !printer.IsPrinted(err) {
		fmt.Fprintf(printer.ErrOut, "Error: %v\n", err)
	}
	return err
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to jotter.yml (JOTTER_* variables override it)")
}
