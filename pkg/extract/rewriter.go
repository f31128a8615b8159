package extract

import (
	"regexp"
	"strings"

	"github.com/coolbeans/lawlink/pkg/library"
	"github.com/coolbeans/lawlink/pkg/types"
)

// corpusLinkPattern matches a wikilink into the statute tree, capturing
// the display label when one is present.
var corpusLinkPattern = regexp.MustCompile(`\[\[` + library.LawsDir + `/[^\]|]*(?:\|([^\]]*))?\]\]`)

// StripLinks replaces every wikilink into the statute tree with its label,
// or its target's base name when it has none. Other wikilinks are kept.
func StripLinks(text string) string {
	return corpusLinkPattern.ReplaceAllStringFunc(text, func(link string) string {
		m := corpusLinkPattern.FindStringSubmatch(link)
		if m[1] != "" {
			return m[1]
		}
		target := strings.TrimSuffix(strings.TrimPrefix(link, "[["), "]]")
		target = target[strings.LastIndex(target, "/")+1:]
		return strings.TrimSuffix(target, ".md")
	})
}

// Rewrite applies decisions to text. Anchors are replaced left to right and
// never overlap; decisions that do not link leave their bytes untouched.
// It returns the new text and one edge per linked target and evidence span.
func Rewrite(text string, src types.ArticleIdentity, decisions []Decision) (string, []types.Edge) {
	var b strings.Builder
	b.Grow(len(text))
	pos := 0

	type edgeKey struct {
		target string
		start  int
	}
	seen := make(map[edgeKey]bool)
	var edges []types.Edge

	for _, d := range decisions {
		if !d.Linked() {
			continue
		}
		c := d.Candidate

		edge := newEdge(text, src, d)
		key := edgeKey{target: edge.TargetID(), start: c.Span.Start}
		if !seen[key] {
			seen[key] = true
			edges = append(edges, edge)
		}

		if c.Anchor.Empty() || c.Anchor.Start < pos || d.Path == "" {
			continue
		}
		b.WriteString(text[pos:c.Anchor.Start])
		b.WriteString(formatLink(d.Path, text[c.Anchor.Start:c.Anchor.End]))
		pos = c.Anchor.End
	}
	b.WriteString(text[pos:])
	return b.String(), edges
}

func newEdge(text string, src types.ArticleIdentity, d Decision) types.Edge {
	e := types.Edge{
		Source:           src,
		Relation:         types.RelationRefersTo,
		Evidence:         text[d.Candidate.Span.Start:d.Candidate.Span.End],
		Confidence:       d.Confidence,
		ExtractorVersion: types.ExtractorVersion,
	}
	if d.Outcome == OutcomeRedirect {
		rng := d.Range
		e.TargetRange = &rng
		e.Relation = types.RelationRefersToRange
	} else {
		e.Target = d.Target
	}
	return e
}

func formatLink(path, label string) string {
	return "[[" + path + "|" + label + "]]"
}
