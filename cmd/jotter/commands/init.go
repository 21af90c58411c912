package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/jotter/internal/scaffold"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create jotter.yml and a sample town map",
	Long: `Create a starting configuration for the authority and the CLI.

Creates:
  • jotter.yml - Town name, Redis address, HTTP listener, and edit window
  • town.yml   - Sample town map with two note-taking areas

Use --force to reinitialize (WARNING: overwrites existing configuration).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (overwrites jotter.yml and town.yml)")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to create the files in")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceInit {
		if err := scaffold.CheckExisting(initDir); err != nil {
			return err
		}
	}

	if err := scaffold.Initialize(initDir, forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess()
	return nil
}
