// Package corpus provides the Index: an immutable snapshot of which
// statutes, articles and deleted-range nodes exist in the vault. It is built
// once before a link pass and shared read-only by every worker, so a pass
// never observes documents created after it started.
package corpus

import (
	"fmt"
	"sort"

	"github.com/coolbeans/lawlink/pkg/catalog"
	"github.com/coolbeans/lawlink/pkg/library"
	"github.com/coolbeans/lawlink/pkg/types"
)

// Lister is the part of the document store the index is built from.
type Lister interface {
	Statutes() []library.StatuteEntry
	List(statuteID string) (*library.Listing, error)
}

type partKey struct {
	part types.Part
	key  string
}

type statuteEntry struct {
	statute types.Statute
	// ordered articles per part, for neighbor lookups
	ordered map[partKey][]types.ArticleIdentity
	ranges  map[types.Part][]types.RangeIdentity
}

// Index is a read-only existence snapshot. All methods are safe for
// concurrent use.
type Index struct {
	statutes map[string]*statuteEntry
	articles map[types.ArticleIdentity]string // vault-relative path
	ranges   map[types.RangeIdentity]string
	position map[types.ArticleIdentity]int
	names    map[string]string
}

// Stats summarizes an index.
type Stats struct {
	Statutes int
	Articles int
	Ranges   int
}

// Build scans every statute in the store. Catalog names and aliases of a
// materialized statute resolve to it, matched by id first and directory
// name second.
func Build(store Lister, cat *catalog.Catalog) (*Index, error) {
	if cat == nil {
		cat = catalog.Empty()
	}
	idx := &Index{
		statutes: make(map[string]*statuteEntry),
		articles: make(map[types.ArticleIdentity]string),
		ranges:   make(map[types.RangeIdentity]string),
		position: make(map[types.ArticleIdentity]int),
		names:    make(map[string]string),
	}

	for _, entry := range store.Statutes() {
		listing, err := store.List(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("indexing %s: %w", entry.Name, err)
		}

		statute := types.Statute{ID: entry.ID, Name: entry.Name}
		if known, ok := cat.ByID(entry.ID); ok {
			statute.Aliases, statute.ExternalProne = known.Names(), known.ExternalProne
		} else if known, ok := cat.Lookup(entry.Name); ok {
			statute.Aliases, statute.ExternalProne = known.Names(), known.ExternalProne
		}
		statute.Aliases = withoutName(statute.Aliases, entry.Name)

		se := &statuteEntry{
			statute: statute,
			ordered: make(map[partKey][]types.ArticleIdentity),
			ranges:  make(map[types.Part][]types.RangeIdentity),
		}
		for _, ref := range listing.Articles {
			id := ref.Identity
			k := partKey{part: id.Part, key: id.AmendmentKey}
			idx.position[id] = len(se.ordered[k])
			se.ordered[k] = append(se.ordered[k], id)
			idx.articles[id] = ref.Path
		}
		for _, r := range listing.Ranges {
			se.ranges[r.Range.Part] = append(se.ranges[r.Range.Part], r.Range)
			idx.ranges[r.Range] = r.Path
		}
		for part := range se.ranges {
			rs := se.ranges[part]
			sort.Slice(rs, func(i, j int) bool { return rs[i].From < rs[j].From })
		}

		idx.statutes[entry.ID] = se
		idx.names[entry.Name] = entry.ID
	}

	// Aliases are added after every directory name so that a directory name
	// always wins over another statute's alias.
	for _, id := range idx.StatuteIDs() {
		for _, alias := range idx.statutes[id].statute.Aliases {
			if _, taken := idx.names[alias]; !taken {
				idx.names[alias] = id
			}
		}
	}
	return idx, nil
}

func withoutName(names []string, name string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// HasStatute reports whether the statute is materialized.
func (idx *Index) HasStatute(id string) bool {
	_, ok := idx.statutes[id]
	return ok
}

// HasArticle reports whether the article document exists.
func (idx *Index) HasArticle(id types.ArticleIdentity) bool {
	_, ok := idx.articles[id]
	return ok
}

// FindCoveringRange returns the deleted-range node covering number.
func (idx *Index) FindCoveringRange(statuteID string, part types.Part, number int) (types.RangeIdentity, bool) {
	se, ok := idx.statutes[statuteID]
	if !ok {
		return types.RangeIdentity{}, false
	}
	rs := se.ranges[part]
	i := sort.Search(len(rs), func(i int) bool { return rs[i].From > number })
	if i > 0 && rs[i-1].Covers(number) {
		return rs[i-1], true
	}
	return types.RangeIdentity{}, false
}

// Statute returns a materialized statute by id.
func (idx *Index) Statute(id string) (types.Statute, bool) {
	se, ok := idx.statutes[id]
	if !ok {
		return types.Statute{}, false
	}
	return se.statute, true
}

// StatuteByName resolves a directory name or catalog alias to a
// materialized statute.
func (idx *Index) StatuteByName(name string) (types.Statute, bool) {
	id, ok := idx.names[name]
	if !ok {
		return types.Statute{}, false
	}
	return idx.Statute(id)
}

// Names returns every name that resolves to a materialized statute.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.names))
	for n := range idx.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StatuteIDs returns the ids of every materialized statute, sorted.
func (idx *Index) StatuteIDs() []string {
	ids := make([]string, 0, len(idx.statutes))
	for id := range idx.statutes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Neighbor walks offset articles forward or backward from id within its
// part. ok is false when id is not indexed or the walk leaves the part.
// Missing articles and deleted ranges are not in the list, so callers
// bound the result by number.
func (idx *Index) Neighbor(id types.ArticleIdentity, offset int) (types.ArticleIdentity, bool) {
	pos, ok := idx.position[id]
	if !ok {
		return types.ArticleIdentity{}, false
	}
	se := idx.statutes[id.StatuteID]
	list := se.ordered[partKey{part: id.Part, key: id.AmendmentKey}]
	target := pos + offset
	if target < 0 || target >= len(list) {
		return types.ArticleIdentity{}, false
	}
	return list[target], true
}

// ArticlePath returns the vault-relative link path of an indexed article.
func (idx *Index) ArticlePath(id types.ArticleIdentity) (string, bool) {
	p, ok := idx.articles[id]
	return p, ok
}

// RangePath returns the vault-relative link path of an indexed
// deleted-range node.
func (idx *Index) RangePath(r types.RangeIdentity) (string, bool) {
	p, ok := idx.ranges[r]
	return p, ok
}

// Stats counts the indexed statutes, articles and ranges.
func (idx *Index) Stats() Stats {
	return Stats{Statutes: len(idx.statutes), Articles: len(idx.articles), Ranges: len(idx.ranges)}
}
