package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/jotter/internal/printer"
	"github.com/dyluth/jotter/internal/testutil"
	"github.com/dyluth/jotter/pkg/notes"
)

type cliEnv struct {
	*testutil.Town
	configPath string
}

// setupTown runs an authority with two areas, "corner" and "hall", and writes
// a jotter.yml pointing at it.
func setupTown(t *testing.T) *cliEnv {
	t.Helper()
	town := testutil.StartTown(t, "corner", "hall")

	configPath := filepath.Join(t.TempDir(), "jotter.yml")
	config := fmt.Sprintf(`version: "1.0"
town: %q
redis_url: %q
map: "town.yml"
edit_window: "20ms"
log_level: "error"
`, testutil.TownName, town.RedisURL())
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))
	// Wins over any REDIS_URL in the environment
	t.Setenv("JOTTER_REDIS_URL", town.RedisURL())

	return &cliEnv{Town: town, configPath: configPath}
}

// run executes the CLI with the test configuration and returns everything it
// printed.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	prevOut, prevErrOut := printer.Out, printer.ErrOut
	printer.Out, printer.ErrOut = &out, &out
	t.Cleanup(func() { printer.Out, printer.ErrOut = prevOut, prevErrOut })

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestAreasCommand(t *testing.T) {
	env := setupTown(t)
	env.Enter("corner", "ada")

	out, err := env.run(t, "areas")
	require.NoError(t, err)
	assert.Contains(t, out, "Note-taking areas in town 'test-town'")
	assert.Regexp(t, `corner\s+active\s+1\s+ada`, out)
	assert.Regexp(t, `hall\s+empty`, out)
	assert.Contains(t, out, "2 areas found")
}

func TestShowCommand(t *testing.T) {
	env := setupTown(t)
	env.Enter("corner", "ada")

	t.Run("list", func(t *testing.T) {
		out, err := env.run(t, "show", "corner")
		require.NoError(t, err)
		assert.Contains(t, out, notes.DefaultNoteTitle)
	})

	t.Run("get by tab number", func(t *testing.T) {
		out, err := env.run(t, "show", "corner", "#1")
		require.NoError(t, err)
		assert.Contains(t, out, notes.DefaultNoteID)
	})

	t.Run("unknown note", func(t *testing.T) {
		out, err := env.run(t, "show", "corner", "nope")
		assert.Error(t, err)
		assert.Contains(t, out, "note 'nope' not found")
	})

	t.Run("reset area", func(t *testing.T) {
		env.Enter("hall", "bob")
		env.Exit("hall", "bob")

		out, err := env.run(t, "show", "hall")
		require.NoError(t, err)
		assert.Contains(t, out, "holds no notes")
	})

	t.Run("unknown area", func(t *testing.T) {
		out, err := env.run(t, "show", "missing")
		assert.Error(t, err)
		assert.Contains(t, out, "area 'missing' not found")
	})

	t.Run("invalid output format", func(t *testing.T) {
		out, err := env.run(t, "show", "corner", "-o", "xml")
		assert.Error(t, err)
		assert.Contains(t, out, "invalid output format")
	})
}

func TestAddEditRemove(t *testing.T) {
	env := setupTown(t)
	env.Enter("corner", "ada")

	out, err := env.run(t, "add", "corner", "--title", "Ideas", "--content", "<p>first</p>")
	require.NoError(t, err)
	assert.Contains(t, out, "as tab #2")

	c := env.Notes("corner")
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "Ideas", c.At(1).Title)
	assert.Equal(t, "<p>first</p>", c.At(1).Content)

	_, err = env.run(t, "edit", "corner", "ideas", "--title", "Plans")
	require.NoError(t, err)

	c = env.Notes("corner")
	assert.Equal(t, "Plans", c.At(1).Title)
	assert.Equal(t, "<p>first</p>", c.At(1).Content)

	contentFile := filepath.Join(t.TempDir(), "plan.html")
	require.NoError(t, os.WriteFile(contentFile, []byte("<p>second</p>"), 0o644))
	_, err = env.run(t, "edit", "corner", "#2", "--file", contentFile)
	require.NoError(t, err)
	assert.Equal(t, "<p>second</p>", env.Notes("corner").At(1).Content)

	out, err = env.run(t, "rm", "corner", "Plans")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed note 'Plans'")

	c = env.Notes("corner")
	require.Equal(t, 1, c.Len())
	assert.Equal(t, notes.DefaultNoteTitle, c.At(0).Title)
}

func TestRemoveLastNoteLeavesFreshNote(t *testing.T) {
	env := setupTown(t)
	env.Enter("corner", "ada")

	_, err := env.run(t, "rm", "corner", "#1")
	require.NoError(t, err)

	c := env.Notes("corner")
	require.Equal(t, 1, c.Len())
	assert.NotEqual(t, notes.DefaultNoteID, c.At(0).ID)
	assert.Empty(t, c.At(0).Content)
}

func TestEditCommand_Errors(t *testing.T) {
	env := setupTown(t)
	env.Enter("corner", "ada")

	t.Run("nothing to change", func(t *testing.T) {
		out, err := env.run(t, "edit", "corner", "#1")
		assert.Error(t, err)
		assert.Contains(t, out, "nothing to change")
	})

	t.Run("inactive area", func(t *testing.T) {
		out, err := env.run(t, "edit", "hall", "#1", "--title", "x")
		assert.Error(t, err)
		assert.Contains(t, out, "area 'hall' is not active")
	})

	t.Run("content and file are exclusive", func(t *testing.T) {
		_, err := env.run(t, "edit", "corner", "#1", "--content", "a", "--file", "b.txt")
		assert.Error(t, err)
	})
}

func TestImportAndExport(t *testing.T) {
	env := setupTown(t)
	env.Enter("corner", "ada")

	src := t.TempDir()
	agendaHTML := filepath.Join(src, "agenda.html")
	agendaTXT := filepath.Join(src, "agenda.txt")
	require.NoError(t, os.WriteFile(agendaHTML, []byte("<h1>Agenda</h1>"), 0o644))
	require.NoError(t, os.WriteFile(agendaTXT, []byte("plain agenda"), 0o644))

	out, err := env.run(t, "import", "corner", agendaHTML, agendaTXT)
	require.NoError(t, err)
	assert.Contains(t, out, "now holds 3 notes")

	c := env.Notes("corner")
	require.Equal(t, 3, c.Len())
	assert.Equal(t, "agenda", c.At(1).Title)
	assert.Equal(t, "agenda 2", c.At(2).Title)
	assert.Equal(t, "plain agenda", c.At(2).Content)

	dst := filepath.Join(t.TempDir(), "backup")
	out, err = env.run(t, "export", "corner", "--dir", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 notes")

	data, err := os.ReadFile(filepath.Join(dst, "agenda_2.html"))
	require.NoError(t, err)
	assert.Equal(t, "plain agenda", string(data))

	t.Run("single note", func(t *testing.T) {
		one := filepath.Join(t.TempDir(), "one")
		_, err := env.run(t, "export", "corner", "agenda", "--dir", one)
		require.NoError(t, err)

		entries, err := os.ReadDir(one)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "agenda.html", entries[0].Name())
	})

	t.Run("single note by tab number", func(t *testing.T) {
		one := filepath.Join(t.TempDir(), "one")
		_, err := env.run(t, "export", "corner", "#3", "--dir", one)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(one, "agenda_2.html"))
		require.NoError(t, err)
		assert.Equal(t, "plain agenda", string(data))
	})

	t.Run("inactive area", func(t *testing.T) {
		out, err := env.run(t, "export", "hall", "--dir", t.TempDir())
		assert.Error(t, err)
		assert.Contains(t, out, "not active")
	})
}

func TestImportCommand_Errors(t *testing.T) {
	env := setupTown(t)
	env.Enter("corner", "ada")

	t.Run("nothing to import", func(t *testing.T) {
		out, err := env.run(t, "import", "corner")
		assert.Error(t, err)
		assert.Contains(t, out, "nothing to import")
	})

	t.Run("unsupported file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "photo.png")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		out, err := env.run(t, "import", "corner", path)
		assert.Error(t, err)
		assert.Contains(t, out, "failed to read documents")
	})
}

func TestConnectTown_InvalidConfig(t *testing.T) {
	env := setupTown(t)
	require.NoError(t, os.WriteFile(env.configPath, []byte(`version: "2.0"`), 0o644))

	out, err := env.run(t, "areas")
	assert.Error(t, err)
	assert.Contains(t, out, "invalid configuration")
}

func TestInitCommand(t *testing.T) {
	env := &cliEnv{configPath: "unused.yml"}
	dir := t.TempDir()

	out, err := env.run(t, "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized jotter configuration")
	assert.FileExists(t, filepath.Join(dir, "jotter.yml"))
	assert.FileExists(t, filepath.Join(dir, "town.yml"))

	_, err = env.run(t, "init", "--dir", dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")

	_, err = env.run(t, "init", "--dir", dir, "--force")
	assert.NoError(t, err)
}
