package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatplan/internal/domain"
)

func TestDefault(t *testing.T) {
	c := Default()
	items := c.Items()
	require.Len(t, items, 10)
	assert.Equal(t, "desk", items[0].Type)

	board, ok := c.Lookup("board")
	require.True(t, ok)
	assert.Equal(t, 4.0, board.W)
	assert.Equal(t, 1.0, board.H)
	assert.Equal(t, "#0f5132", board.Color)

	_, ok = c.Lookup("piano")
	assert.False(t, ok)
}

func TestColorFor(t *testing.T) {
	c := Default()
	assert.Equal(t, "#b87333", c.ColorFor(domain.Furniture{Type: "door"}))
	assert.Equal(t, "#ff0000", c.ColorFor(domain.Furniture{Type: "door", Color: "#ff0000"}))
	assert.Equal(t, fallbackColor, c.ColorFor(domain.Furniture{Type: "gone"}))
}

func writeCatalog(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	writeCatalog(t, path, `
[[furniture]]
type = "desk"
w = 3

[[furniture]]
type = "piano"
label = "Piano"
w = 3
h = 2
color = "#111111"
`)
	c, err := Load(path)
	require.NoError(t, err)

	desk, _ := c.Lookup("desk")
	assert.Equal(t, 3.0, desk.W)
	assert.Equal(t, 1.0, desk.H, "unset fields keep the default")
	assert.Equal(t, "Desk", desk.Label)

	piano, ok := c.Lookup("piano")
	require.True(t, ok)
	assert.Equal(t, "#111111", piano.Color)
	assert.Len(t, c.Items(), 11)
	assert.Contains(t, c.Types(), "piano")
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	writeCatalog(t, path, "[[furniture]]\nlabel = \"nameless\"\n")
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.toml")
	writeCatalog(t, path, "[[furniture]]\ntype = \"desk\"\nw = 3\n")

	c, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, c, log.New(io.Discard))
	require.NoError(t, err)
	reloads := make(chan struct{}, 16)
	w.OnReload(func() {
		select {
		case reloads <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeCatalog(t, path, "[[furniture]]\ntype = \"desk\"\nw = 5\n")

	// a truncating write may be observed empty first; wait for the final state
	require.Eventually(t, func() bool {
		desk, _ := c.Lookup("desk")
		return desk.W == 5
	}, 3*time.Second, 20*time.Millisecond)
	assert.NotEmpty(t, reloads)
}
