// Package extract finds article citations in statute text, resolves them
// against the corpus and rewrites them into wikilinks.
package extract

import (
	"github.com/coolbeans/lawlink/pkg/catalog"
	"github.com/coolbeans/lawlink/pkg/types"
)

// NamedCorpus is a Corpus that also knows every materialized statute name.
type NamedCorpus interface {
	Corpus
	Names() []string
}

// Counts tallies decisions by outcome.
type Counts struct {
	Links              int `json:"links"`
	NoLink             int `json:"no_link"`
	UnresolvedExternal int `json:"unresolved_external"`
	Redirected         int `json:"redirected"`
}

// Add accumulates other into c.
func (c *Counts) Add(other Counts) {
	c.Links += other.Links
	c.NoLink += other.NoLink
	c.UnresolvedExternal += other.UnresolvedExternal
	c.Redirected += other.Redirected
}

func (c *Counts) count(d Decision) {
	switch d.Outcome {
	case OutcomeLink:
		c.Links++
	case OutcomeRedirect:
		c.Redirected++
	case OutcomeExternalUnresolved:
		c.UnresolvedExternal++
	default:
		c.NoLink++
	}
}

// Result is the rewrite of one article body.
type Result struct {
	Identity  types.ArticleIdentity
	Text      string
	Changed   bool
	Edges     []types.Edge
	Decisions []Decision
	Counts    Counts
}

// Linker runs the scan, scope, resolve and rewrite pipeline over article
// bodies. A Linker holds no per-document state and is safe for concurrent
// use.
type Linker struct {
	scanner  *Scanner
	resolver *Resolver
}

// NewLinker creates a linker recognizing every catalog name and every name
// the corpus resolves.
func NewLinker(c NamedCorpus, cat *catalog.Catalog) *Linker {
	if cat == nil {
		cat = catalog.Empty()
	}
	names := append(cat.Names(), c.Names()...)
	return &Linker{
		scanner:  NewScanner(names),
		resolver: NewResolver(c, cat),
	}
}

// Analysis is the intermediate state of one pipeline run.
type Analysis struct {
	Scan      *ScanResult
	Annotated []Annotated
	Decisions []Decision
}

// Analyze scans and resolves body without rewriting it. Links into the
// statute tree are stripped first, so already-linked text is read the same
// as plain text.
func (l *Linker) Analyze(src Source, body string) *Analysis {
	plain := StripLinks(body)
	scan := l.scanner.Scan(plain)
	annotated := ScopeTracker{Fragment: src.Fragment}.Annotate(scan)
	return &Analysis{
		Scan:      scan,
		Annotated: annotated,
		Decisions: l.resolver.Resolve(src, annotated),
	}
}

// Link rewrites body and collects its edges.
func (l *Linker) Link(src Source, body string) *Result {
	a := l.Analyze(src, body)
	text, edges := Rewrite(a.Scan.Text, src.Identity, a.Decisions)

	res := &Result{
		Identity:  src.Identity,
		Text:      text,
		Changed:   text != body,
		Edges:     edges,
		Decisions: a.Decisions,
	}
	for _, d := range a.Decisions {
		res.Counts.count(d)
	}
	return res
}
