package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/lawlink/pkg/types"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Greater(t, c.Len(), 60)

	civil, ok := c.Lookup("新民法")
	require.True(t, ok)
	assert.Equal(t, "民法", civil.Name)
	assert.False(t, civil.ExternalProne)

	criminal, ok := c.Lookup("旧刑法")
	require.True(t, ok)
	assert.Equal(t, "刑法", criminal.Name)

	constitution, ok := c.Lookup("憲法")
	require.True(t, ok)
	assert.Equal(t, "日本国憲法", constitution.Name)

	juvenile, ok := c.Lookup("少年法")
	require.True(t, ok)
	assert.True(t, juvenile.ExternalProne)

	// Entries without an e-Gov id are keyed by name.
	bengoshi, ok := c.Lookup("弁護士法")
	require.True(t, ok)
	assert.Equal(t, "弁護士法", bengoshi.ID)
}

func TestNamesLongestFirst(t *testing.T) {
	c, err := New([]types.Statute{
		{ID: "a", Name: "刑法", Aliases: []string{"旧刑法"}},
		{ID: "b", Name: "刑事訴訟法"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"刑事訴訟法", "旧刑法", "刑法"}, c.Names())
}

func TestNewRejectsCollisions(t *testing.T) {
	_, err := New([]types.Statute{
		{ID: "a", Name: "民法"},
		{ID: "b", Name: "新民法", Aliases: []string{"民法"}},
	})
	assert.Error(t, err)

	_, err = New([]types.Statute{{ID: "a", Name: "民法"}, {ID: "a", Name: "刑法"}})
	assert.Error(t, err)

	_, err = New([]types.Statute{{ID: "a"}})
	assert.Error(t, err)
}

func TestMergeReplacesByIDAndName(t *testing.T) {
	base, err := New([]types.Statute{
		{ID: "civil", Name: "民法"},
		{ID: "commercial", Name: "商法", ExternalProne: true},
	})
	require.NoError(t, err)
	override, err := New([]types.Statute{
		{ID: "commercial-new", Name: "商法"},
		{ID: "companies", Name: "会社法"},
	})
	require.NoError(t, err)

	merged, err := base.Merge(override)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Len())

	s, ok := merged.Lookup("商法")
	require.True(t, ok)
	assert.Equal(t, "commercial-new", s.ID)
	assert.False(t, s.ExternalProne)

	_, ok = merged.ByID("commercial")
	assert.False(t, ok)

	// The receiver is untouched.
	s, _ = base.Lookup("商法")
	assert.Equal(t, "commercial", s.ID)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("10-base.yaml", "statutes:\n  - id: x1\n    name: 甲法\n")
	write("20-more.yml", "statutes:\n  - id: x2\n    name: 乙法\n    aliases: [旧乙法]\n")
	write("README.md", "not a catalog")

	c, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	s, ok := c.Lookup("旧乙法")
	require.True(t, ok)
	assert.Equal(t, "x2", s.ID)

	missing, err := LoadDir(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Equal(t, 0, missing.Len())
}

func TestLoadDirReportsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("statutes: [[["), 0644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestWatcherReloads(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping watch test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "local.yaml")
	require.NoError(t, os.WriteFile(path, []byte("statutes:\n  - id: x1\n    name: 甲法\n"), 0644))

	w, err := NewWatcher(dir, Default(), nil)
	require.NoError(t, err)
	_, ok := w.Current().Lookup("甲法")
	require.True(t, ok)

	changed := make(chan *Catalog, 1)
	w.SetOnChange(func(c *Catalog) {
		select {
		case changed <- c:
		default:
		}
	})

	require.NoError(t, w.Start())
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("statutes:\n  - id: x1\n    name: 甲法\n    aliases: [新甲法]\n"), 0644))

	select {
	case c := <-changed:
		// A write can surface as several events; the last reload wins.
		time.Sleep(100 * time.Millisecond)
		_, ok := w.Current().Lookup("新甲法")
		assert.True(t, ok)
		_, ok = c.Lookup("民法")
		assert.True(t, ok, "reloaded catalog keeps the base entries")
	case <-time.After(3 * time.Second):
		t.Log("watcher did not report the change within timeout (may be CI environment)")
	}
}
