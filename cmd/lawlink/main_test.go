package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/fsnotify.v1"
)

func TestStatuteNameOf(t *testing.T) {
	root := filepath.Join("/srv", "vault")
	assert.Equal(t, "刑法", statuteNameOf(root, filepath.Join(root, "laws", "刑法", "本文", "第19条.md")))
	assert.Equal(t, "刑法", statuteNameOf(root, filepath.Join(root, "laws", "刑法")))
	assert.Equal(t, "", statuteNameOf(root, filepath.Join(root, "laws")))
	assert.Equal(t, "", statuteNameOf(root, filepath.Join(root, "notes", "a.md")))
}

func TestRelevantChange(t *testing.T) {
	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"laws/刑法/本文/第19条.md", fsnotify.Write, true},
		{"laws/刑法/本文", fsnotify.Create, true},
		{"laws/刑法/本文/第19条.md", fsnotify.Chmod, false},
		{"laws/刑法/edges.jsonl", fsnotify.Write, false},
		{"laws/刑法/本文/.第19条.md.tmp-123", fsnotify.Create, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relevantChange(fsnotify.Event{Name: tt.name, Op: tt.op}), tt.name)
	}
}

func TestLoadCatalogMergesFile(t *testing.T) {
	base, err := loadCatalog("")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("statutes:\n  - id: X1\n    name: 架空法\n"), 0644))
	merged, err := loadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, base.Len()+1, merged.Len())
	_, ok := merged.Lookup("架空法")
	assert.True(t, ok)

	_, err = loadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
