package library_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/lawlink/pkg/library"
	"github.com/coolbeans/lawlink/pkg/library/librarytest"
	"github.com/coolbeans/lawlink/pkg/types"
)

func TestStoreStatutes(t *testing.T) {
	v := librarytest.New(t)
	v.Statute("民法", "129AC0000000089")
	v.Statute("刑法", "")

	s := v.Open()
	ids := s.ListStatuteIDs()
	assert.Equal(t, []string{"129AC0000000089", "刑法"}, ids)

	e, ok := s.Statute("129AC0000000089")
	require.True(t, ok)
	assert.Equal(t, "民法", e.Name)

	e, ok = s.StatuteByName("刑法")
	require.True(t, ok)
	assert.Equal(t, "刑法", e.ID)
}

func TestStoreList(t *testing.T) {
	v := librarytest.New(t)
	v.Statute("民法", "civil")
	v.Article("民法", types.PartMain, 20, 0, "本文\n")
	v.Article("民法", types.PartMain, 19, 2, "本文\n")
	v.Article("民法", types.PartMain, 19, 0, "本文\n")
	v.Article("民法", types.PartSuppl, 1, 0, "附則本文\n")
	v.Fragment("民法", "H11_L87", 1, "改正\n")
	v.Range("民法", 38, 84)
	v.WriteFile("laws/民法/本文/notes.md", "ignored")
	v.WriteFile("laws/民法/附則/改正法/平成一一年法律第一五一号/附則第2条.md", "---\nid: x\n---\n")

	s := v.Open()
	listing, err := s.List("civil")
	require.NoError(t, err)

	var got []string
	for _, a := range listing.Articles {
		got = append(got, a.Identity.NodeID())
	}
	assert.Equal(t, []string{
		"JPLAW:civil#main#19",
		"JPLAW:civil#main#19_2",
		"JPLAW:civil#main#20",
		"JPLAW:civil#suppl#1",
		"JPLAW:civil#suppl#H11_L87#1",
		"JPLAW:civil#suppl#H11_L151#2",
	}, got)

	require.Len(t, listing.Ranges, 1)
	assert.Equal(t, types.RangeIdentity{StatuteID: "civil", Part: types.PartMain, From: 38, To: 84}, listing.Ranges[0].Range)
	assert.Equal(t, "laws/民法/本文/第38条から第84条まで.md", listing.Ranges[0].Path)
}

func TestStoreReadWrite(t *testing.T) {
	v := librarytest.New(t)
	v.Statute("民法", "civil")
	v.Article("民法", types.PartMain, 19, 0, "第二十条の規定による。\n")

	s := v.Open()
	id := types.ArticleIdentity{StatuteID: "civil", Part: types.PartMain, Number: 19}
	require.True(t, s.Exists(id))

	doc, err := s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "第十九条", doc.Heading)
	assert.Equal(t, "第二十条の規定による。\n", doc.Body)
	assert.Equal(t, "民法", doc.Frontmatter.LawName)

	before := v.ReadFile("laws/民法/本文/第19条.md")
	require.NoError(t, s.Write(id, doc.WithBody("書換え。\n")))
	after := v.ReadFile("laws/民法/本文/第19条.md")
	assert.Equal(t, before[:len(before)-len(doc.Body)], after[:len(after)-len("書換え。\n")])

	reread, err := s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "書換え。\n", reread.Body)
}

func TestStoreReadSeesExternalEdits(t *testing.T) {
	v := librarytest.New(t)
	v.Statute("民法", "civil")
	v.Article("民法", types.PartMain, 1, 0, "旧\n")

	s := v.Open()
	id := types.ArticleIdentity{StatuteID: "civil", Part: types.PartMain, Number: 1}
	_, err := s.Read(id)
	require.NoError(t, err)

	path := filepath.Join(v.Root, "laws", "民法", "本文", "第1条.md")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, "追加\n"...), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	doc, err := s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "旧\n追加\n", doc.Body)
}

func TestStoreReadErrors(t *testing.T) {
	v := librarytest.New(t)
	v.Statute("民法", "civil")
	v.WriteFile("laws/民法/本文/第2条.md", "no frontmatter here\n")

	s := v.Open()
	_, err := s.Read(types.ArticleIdentity{StatuteID: "civil", Part: types.PartMain, Number: 1})
	assert.True(t, errors.Is(err, library.ErrNotFound))

	_, err = s.Read(types.ArticleIdentity{StatuteID: "civil", Part: types.PartMain, Number: 2})
	assert.True(t, errors.Is(err, library.ErrCorruptDocument))

	_, err = s.Read(types.ArticleIdentity{StatuteID: "unknown", Part: types.PartMain, Number: 2})
	assert.True(t, errors.Is(err, library.ErrNotFound))
}

func TestStatuteFilePath(t *testing.T) {
	v := librarytest.New(t)
	v.Statute("民法", "civil")
	s := v.Open()

	p, err := s.StatuteFilePath("civil", "edges.jsonl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v.Root, "laws", "民法", "edges.jsonl"), p)

	_, err = s.StatuteFilePath("missing", "edges.jsonl")
	assert.Error(t, err)
}
