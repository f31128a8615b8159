// Package library is the on-disk vault of statute documents: one directory
// per statute holding per-article markdown files with YAML frontmatter. It
// owns every path convention; callers address documents by identity.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/coolbeans/lawlink/pkg/types"
)

// DefaultCacheSize bounds the parsed-document cache.
const DefaultCacheSize = 4096

// StatuteEntry describes one statute directory.
type StatuteEntry struct {
	ID   string
	Name string // directory name, also the canonical name used in links
}

// ArticleRef is one article document found in a statute directory.
type ArticleRef struct {
	Identity types.ArticleIdentity
	Path     string // vault-relative, slash separated
}

// RangeRef is one deleted-range node.
type RangeRef struct {
	Range types.RangeIdentity
	Path  string
}

// Listing is the ordered content of one statute directory.
type Listing struct {
	Statute  StatuteEntry
	Articles []ArticleRef
	Ranges   []RangeRef
}

type cachedDocument struct {
	size    int64
	modTime time.Time
	doc     *Document
}

// Store reads and writes vault documents.
type Store struct {
	root  string
	cache *lru.Cache[string, cachedDocument]

	mu       sync.RWMutex
	statutes map[string]StatuteEntry
	paths    map[types.ArticleIdentity]string
}

// Open opens the vault at root and scans its statute directories.
func Open(root string, cacheSize int) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening vault: %s is not a directory", root)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedDocument](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating document cache: %w", err)
	}

	s := &Store{root: root, cache: cache}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the vault root directory.
func (s *Store) Root() string {
	return s.root
}

// Refresh rescans the statute directories. Cached documents stay valid
// because they are keyed by path and checked against the file's stat.
func (s *Store) Refresh() error {
	lawsPath := filepath.Join(s.root, LawsDir)
	entries, err := os.ReadDir(lawsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			entries = nil
		} else {
			return fmt.Errorf("reading %s: %w", lawsPath, err)
		}
	}

	statutes := make(map[string]StatuteEntry, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		id := s.statuteID(name)
		if prev, dup := statutes[id]; dup {
			return fmt.Errorf("statute id %q used by both %q and %q", id, prev.Name, name)
		}
		statutes[id] = StatuteEntry{ID: id, Name: name}
	}

	s.mu.Lock()
	s.statutes = statutes
	s.paths = make(map[types.ArticleIdentity]string)
	s.mu.Unlock()
	return nil
}

// statuteID reads law_id from the statute node, falling back to the
// directory name when the node is missing or has no id.
func (s *Store) statuteID(name string) string {
	nodePath := filepath.Join(s.root, LawsDir, name, name+markdownExt)
	data, err := os.ReadFile(nodePath)
	if err != nil {
		return name
	}
	doc, err := ParseDocument(data)
	if err != nil || doc.Frontmatter.LawID == "" {
		return name
	}
	return doc.Frontmatter.LawID
}

// Statutes returns every statute, sorted by name.
func (s *Store) Statutes() []StatuteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StatuteEntry, 0, len(s.statutes))
	for _, e := range s.statutes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListStatuteIDs returns the ids of every statute, sorted.
func (s *Store) ListStatuteIDs() []string {
	entries := s.Statutes()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	sort.Strings(ids)
	return ids
}

// Statute looks up a statute by id.
func (s *Store) Statute(id string) (StatuteEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.statutes[id]
	return e, ok
}

// StatuteByName looks up a statute by directory name.
func (s *Store) StatuteByName(name string) (StatuteEntry, bool) {
	for _, e := range s.Statutes() {
		if e.Name == name {
			return e, true
		}
	}
	return StatuteEntry{}, false
}

// List enumerates a statute's article and range documents in reading
// order: main body, supplementary provisions, then amendment fragments by
// key. Only file names are inspected.
func (s *Store) List(statuteID string) (*Listing, error) {
	entry, ok := s.Statute(statuteID)
	if !ok {
		return nil, fmt.Errorf("statute %q: %w", statuteID, ErrNotFound)
	}
	listing := &Listing{Statute: entry}

	if err := s.listPart(listing, filepath.Join(LawsDir, entry.Name, MainDir), types.PartMain, ""); err != nil {
		return nil, err
	}
	if err := s.listPart(listing, filepath.Join(LawsDir, entry.Name, SupplDir), types.PartSuppl, ""); err != nil {
		return nil, err
	}

	amendRoot := filepath.Join(LawsDir, entry.Name, SupplDir, AmendmentDir)
	dirs, err := os.ReadDir(filepath.Join(s.root, amendRoot))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", amendRoot, err)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		rel := filepath.Join(amendRoot, d.Name())
		if err := s.listPart(listing, rel, types.PartAmendment, amendmentKey(d.Name())); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	for _, ref := range listing.Articles {
		s.paths[ref.Identity] = ref.Path
	}
	s.mu.Unlock()
	return listing, nil
}

func (s *Store) listPart(listing *Listing, rel string, part types.Part, key string) error {
	entries, err := os.ReadDir(filepath.Join(s.root, rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", rel, err)
	}

	var articles []ArticleRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		parsed := parseArticleFile(e.Name(), part != types.PartMain)
		relPath := filepath.ToSlash(filepath.Join(rel, e.Name()))
		switch parsed.kind {
		case fileArticle:
			articles = append(articles, ArticleRef{
				Identity: types.ArticleIdentity{
					StatuteID:    listing.Statute.ID,
					Part:         part,
					Number:       parsed.main,
					Sub:          parsed.sub,
					AmendmentKey: key,
				},
				Path: relPath,
			})
		case fileRange:
			if part == types.PartAmendment {
				continue
			}
			listing.Ranges = append(listing.Ranges, RangeRef{
				Range: types.RangeIdentity{StatuteID: listing.Statute.ID, Part: part, From: parsed.from, To: parsed.to},
				Path:  relPath,
			})
		}
	}

	sort.Slice(articles, func(i, j int) bool {
		a, b := articles[i].Identity, articles[j].Identity
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.Sub < b.Sub
	})
	listing.Articles = append(listing.Articles, articles...)
	return nil
}

// pathOf returns the vault-relative path of an identity, preferring the
// path recorded by List.
func (s *Store) pathOf(id types.ArticleIdentity) (string, error) {
	s.mu.RLock()
	p, ok := s.paths[id]
	entry, known := s.statutes[id.StatuteID]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}
	if !known {
		return "", fmt.Errorf("statute %q: %w", id.StatuteID, ErrNotFound)
	}
	return ArticlePath(entry.Name, id), nil
}

// Exists reports whether a document exists for id.
func (s *Store) Exists(id types.ArticleIdentity) bool {
	p, err := s.pathOf(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(s.root, filepath.FromSlash(p)))
	return err == nil
}

// Read loads and parses the document for id. Parsed documents are cached
// until the file's size or modification time changes.
func (s *Store) Read(id types.ArticleIdentity) (*Document, error) {
	p, err := s.pathOf(id)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(p))

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	if cached, ok := s.cache.Get(p); ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.doc, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	s.cache.Add(p, cachedDocument{size: info.Size(), modTime: info.ModTime(), doc: doc})
	return doc, nil
}

// Write replaces the document for id.
func (s *Store) Write(id types.ArticleIdentity, doc *Document) error {
	p, err := s.pathOf(id)
	if err != nil {
		return err
	}
	full := filepath.Join(s.root, filepath.FromSlash(p))
	if err := WriteFileAtomic(full, doc.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	s.cache.Remove(p)
	return nil
}

// StatuteFilePath returns the absolute path of a per-statute file such as
// edges.jsonl.
func (s *Store) StatuteFilePath(statuteID, fileName string) (string, error) {
	entry, ok := s.Statute(statuteID)
	if !ok {
		return "", fmt.Errorf("statute %q: %w", statuteID, ErrNotFound)
	}
	return filepath.Join(s.root, LawsDir, entry.Name, fileName), nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
