package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/jotter/internal/notefiles"
	"github.com/dyluth/jotter/internal/printer"
)

var (
	noteTitle   string
	noteContent string
	noteFile    string
	editTimeout time.Duration
)

var editCmd = &cobra.Command{
	Use:   "edit AREA NOTE",
	Short: "Change the title or content of a note",
	Long: `Change a note's title and/or content. NOTE may be a note id, a unique id
prefix, "#N" for the Nth tab, or a title (case-insensitive).

The area must be active (at least one player inside). Participants see the
change as soon as the authority broadcasts it.

Examples:
  jotter edit library-table '#1' --title "Agenda"
  jotter edit library-table Agenda --file agenda.html`,
	Args: cobra.ExactArgs(2),
	RunE: runEdit,
}

var addCmd = &cobra.Command{
	Use:   "add AREA",
	Short: "Add a note as a new tab",
	Long: `Append a new note to an area. Without --title it is named
"Untitled Note N" after the number of tabs.

Examples:
  jotter add library-table
  jotter add library-table --title "Ideas" --content "<p>first</p>"`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var rmCmd = &cobra.Command{
	Use:   "rm AREA NOTE",
	Short: "Remove a note",
	Long: `Remove a note from an area. Removing the only note leaves a fresh empty
note in its place, so an active area never has zero notes.

Examples:
  jotter rm library-table '#3'`,
	Args: cobra.ExactArgs(2),
	RunE: runRm,
}

func init() {
	for _, c := range []*cobra.Command{editCmd, addCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "Note title")
		c.Flags().StringVar(&noteContent, "content", "", "Note content (HTML or plain text)")
		c.Flags().StringVarP(&noteFile, "file", "f", "", "Read the note content from a .txt or .html file")
		c.MarkFlagsMutuallyExclusive("content", "file")
	}
	for _, c := range []*cobra.Command{editCmd, addCmd, rmCmd} {
		c.Flags().DurationVar(&editTimeout, "timeout", defaultWaitTimeout, "How long to wait for the authority to publish the result")
		rootCmd.AddCommand(c)
	}
}

// noteChanges reads the title and content flags. Unset flags are nil.
func noteChanges(cmd *cobra.Command) (title, content *string, err error) {
	if cmd.Flags().Changed("title") {
		title = &noteTitle
	}
	switch {
	case cmd.Flags().Changed("content"):
		content = &noteContent
	case cmd.Flags().Changed("file"):
		in, err := notefiles.ReadFile(noteFile)
		if err != nil {
			return nil, nil, printer.Error(
				"failed to read content file",
				err.Error(),
				[]string{"Supported files: .txt, .html, .htm"},
			)
		}
		content = &in.Content
	}
	return title, content, nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	areaID, ref := args[0], args[1]

	title, content, err := noteChanges(cmd)
	if err != nil {
		return err
	}
	if title == nil && content == nil {
		return printer.Error(
			"nothing to change",
			"Pass --title, --content, or --file.",
			[]string{fmt.Sprintf("Rename a note:\n  jotter edit %s '%s' --title \"New title\"", areaID, ref)},
		)
	}

	t, err := connectTown(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	ed, err := t.openEditor(ctx, areaID)
	if err != nil {
		return err
	}

	i, err := resolveNote(ed.session.Notes(), areaID, ref)
	if err != nil {
		ed.abort()
		return err
	}
	if err := ed.session.Select(i); err != nil {
		ed.abort()
		return err
	}
	if title != nil {
		if err := ed.session.SetTitle(*title); err != nil {
			ed.abort()
			return err
		}
	}
	if content != nil {
		if err := ed.session.SetContent(*content); err != nil {
			ed.abort()
			return err
		}
	}

	_, n, _ := ed.session.Active()
	if _, err := ed.commit(ctx, editTimeout); err != nil {
		return err
	}
	printer.Success("Updated note '%s' (%s) in area '%s'\n", n.Title, n.ID, areaID)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	areaID := args[0]

	title, content, err := noteChanges(cmd)
	if err != nil {
		return err
	}

	t, err := connectTown(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	ed, err := t.openEditor(ctx, areaID)
	if err != nil {
		return err
	}

	if _, err := ed.session.AddTab(); err != nil {
		ed.abort()
		return err
	}
	if title != nil {
		if err := ed.session.SetTitle(*title); err != nil {
			ed.abort()
			return err
		}
	}
	if content != nil {
		if err := ed.session.SetContent(*content); err != nil {
			ed.abort()
			return err
		}
	}

	i, n, _ := ed.session.Active()
	if _, err := ed.commit(ctx, editTimeout); err != nil {
		return err
	}
	printer.Success("Added note '%s' (%s) as tab #%d in area '%s'\n", n.Title, n.ID, i+1, areaID)
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	areaID, ref := args[0], args[1]

	t, err := connectTown(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	ed, err := t.openEditor(ctx, areaID)
	if err != nil {
		return err
	}

	before := ed.session.Notes()
	i, err := resolveNote(before, areaID, ref)
	if err != nil {
		ed.abort()
		return err
	}
	removed := before.At(i)

	if err := ed.session.CloseTab(i); err != nil {
		ed.abort()
		return err
	}
	if _, err := ed.commit(ctx, editTimeout); err != nil {
		return err
	}
	printer.Success("Removed note '%s' (%s) from area '%s'\n", removed.Title, removed.ID, areaID)
	return nil
}
