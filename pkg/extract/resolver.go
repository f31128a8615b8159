package extract

import (
	"github.com/coolbeans/lawlink/pkg/catalog"
	"github.com/coolbeans/lawlink/pkg/types"
)

// Outcome is the terminal state of resolving one candidate.
type Outcome string

const (
	OutcomeLink               Outcome = "link"
	OutcomeRedirect           Outcome = "redirect"
	OutcomeExternalUnresolved Outcome = "external-unresolved"
	OutcomeNoLink             Outcome = "no-link"
)

// Reasons attached to decisions.
const (
	ReasonResolved        = "article exists"
	ReasonDeletedRange    = "article repealed; covered by deleted range"
	ReasonMissingArticle  = "article not in corpus"
	ReasonExternalProne   = "catalog statute prone to false matches is not in corpus"
	ReasonNotMaterialized = "statute not in corpus"
	ReasonUnknownStatute  = "unknown statute"
	ReasonAnaphoric       = "同法 refers to a statute named earlier"
	ReasonAmendingLaw     = "cites the amending law's own numbering"
	ReasonSelfReference   = "article cites itself"
	ReasonNoAnchor        = "relative reference without an anchor"
	ReasonOutOfRange      = "relative offset leaves the statute"
)

// Confidence per citation kind. A redirect keeps its kind's score.
var kindConfidence = map[CitationKind]float64{
	KindQualified: 0.95,
	KindSelf:      0.95,
	KindAbsolute:  0.9,
	KindRelative:  0.8,
}

// Corpus is the existence snapshot a resolver consults. *corpus.Index
// implements it.
type Corpus interface {
	HasArticle(id types.ArticleIdentity) bool
	FindCoveringRange(statuteID string, part types.Part, number int) (types.RangeIdentity, bool)
	StatuteByName(name string) (types.Statute, bool)
	Neighbor(id types.ArticleIdentity, offset int) (types.ArticleIdentity, bool)
	ArticlePath(id types.ArticleIdentity) (string, bool)
	RangePath(r types.RangeIdentity) (string, bool)
}

// Decision is the resolution of one annotated candidate.
type Decision struct {
	Candidate  Annotated
	Outcome    Outcome
	Target     types.ArticleIdentity
	Range      types.RangeIdentity
	Path       string
	Confidence float64
	Reason     string
}

// Linked reports whether the decision produces a link and an edge.
func (d Decision) Linked() bool {
	return d.Outcome == OutcomeLink || d.Outcome == OutcomeRedirect
}

// Source describes the article being processed.
type Source struct {
	Identity types.ArticleIdentity
	// Fragment is set for amendment fragments, whose bare citations use the
	// amending law's numbering.
	Fragment bool
}

// Resolver turns annotated candidates into decisions.
type Resolver struct {
	corpus  Corpus
	catalog *catalog.Catalog
}

// NewResolver creates a resolver. A nil catalog is treated as empty.
func NewResolver(c Corpus, cat *catalog.Catalog) *Resolver {
	if cat == nil {
		cat = catalog.Empty()
	}
	return &Resolver{corpus: c, catalog: cat}
}

// anchor is the last non-relative target, used by relative references
// in the same epoch.
type anchor struct {
	target types.ArticleIdentity
	epoch  int
	set    bool
}

// Resolve decides every candidate in order. The result has one decision
// per candidate.
func (r *Resolver) Resolve(src Source, cands []Annotated) []Decision {
	decisions := make([]Decision, 0, len(cands))
	var last anchor
	for _, c := range cands {
		d := Decision{Candidate: c, Confidence: kindConfidence[c.Kind]}
		target, ok := r.target(src, c, &last, &d)
		if ok {
			r.decideExistence(src, target, &d)
		}
		decisions = append(decisions, d)
	}
	return decisions
}

// target computes the article a candidate names. ok is false once d holds
// a terminal decision.
func (r *Resolver) target(src Source, c Annotated, last *anchor, d *Decision) (types.ArticleIdentity, bool) {
	if c.Anaphoric || c.Governing.Kind == GoverningAnaphoric {
		d.Outcome, d.Reason = OutcomeNoLink, ReasonAnaphoric
		return types.ArticleIdentity{}, false
	}

	var statuteID string
	switch c.Governing.Kind {
	case GoverningStatute:
		id, outcome, reason := r.governingStatute(c.Governing)
		if outcome != "" {
			d.Outcome, d.Reason = outcome, reason
			return types.ArticleIdentity{}, false
		}
		statuteID = id
	default:
		if src.Fragment {
			d.Outcome, d.Reason = OutcomeNoLink, ReasonAmendingLaw
			return types.ArticleIdentity{}, false
		}
		statuteID = src.Identity.StatuteID
	}

	if c.Kind == KindRelative {
		return r.relative(src, c, statuteID, *last, d)
	}

	part := types.PartMain
	if c.Part == types.PartSuppl {
		part = types.PartSuppl
	}
	target := types.ArticleIdentity{StatuteID: statuteID, Part: part, Number: c.Number, Sub: c.Sub}
	*last = anchor{target: target, epoch: c.Epoch, set: true}
	return target, true
}

// governingStatute maps a named statute to a materialized id, or returns
// the terminal outcome when it is not in the corpus.
func (r *Resolver) governingStatute(g Governing) (string, Outcome, string) {
	if g.Name != "" {
		if st, ok := r.corpus.StatuteByName(g.Name); ok {
			return st.ID, "", ""
		}
		if known, ok := r.catalog.Lookup(g.Name); ok {
			if known.ExternalProne {
				return "", OutcomeExternalUnresolved, ReasonExternalProne
			}
			return "", OutcomeExternalUnresolved, ReasonNotMaterialized
		}
	}
	return "", OutcomeExternalUnresolved, ReasonUnknownStatute
}

func (r *Resolver) relative(src Source, c Annotated, statuteID string, last anchor, d *Decision) (types.ArticleIdentity, bool) {
	var base types.ArticleIdentity
	switch {
	case last.set && last.epoch == c.Epoch && last.target.StatuteID == statuteID:
		base = last.target
	case statuteID == src.Identity.StatuteID:
		base = src.Identity
	default:
		d.Outcome, d.Reason = OutcomeNoLink, ReasonNoAnchor
		return types.ArticleIdentity{}, false
	}

	if c.SameArticle {
		return base, true
	}
	n := base.Number + c.Offset
	if base.Sub > 0 && c.Offset < 0 {
		// 前条 of 第19条の2 is 第19条.
		n++
	}
	if n <= 0 {
		d.Outcome, d.Reason = OutcomeNoLink, ReasonOutOfRange
		return types.ArticleIdentity{}, false
	}
	arith := types.ArticleIdentity{StatuteID: base.StatuteID, Part: base.Part, Number: n, AmendmentKey: base.AmendmentKey}
	// The walk only counts sub-numbered articles between the anchor and
	// the arithmetic target. Anything further away means the corpus has a
	// gap there.
	if next, ok := r.corpus.Neighbor(base, c.Offset); ok && between(next, base, arith) {
		return next, true
	}
	return arith, true
}

// between reports whether id lies in the half-open interval from anchor
// (exclusive) to target (inclusive), in either direction.
func between(id, anchor, target types.ArticleIdentity) bool {
	if articleLess(target, anchor) {
		return !articleLess(id, target) && articleLess(id, anchor)
	}
	return articleLess(anchor, id) && !articleLess(target, id)
}

func articleLess(a, b types.ArticleIdentity) bool {
	if a.Number != b.Number {
		return a.Number < b.Number
	}
	return a.Sub < b.Sub
}

func (r *Resolver) decideExistence(src Source, target types.ArticleIdentity, d *Decision) {
	d.Target = target
	switch {
	case target == src.Identity:
		d.Outcome, d.Reason = OutcomeNoLink, ReasonSelfReference
	case r.corpus.HasArticle(target):
		d.Outcome, d.Reason = OutcomeLink, ReasonResolved
		d.Path, _ = r.corpus.ArticlePath(target)
	default:
		rng, ok := r.corpus.FindCoveringRange(target.StatuteID, target.Part, target.Number)
		if !ok {
			d.Outcome, d.Reason = OutcomeNoLink, ReasonMissingArticle
			return
		}
		d.Outcome, d.Reason = OutcomeRedirect, ReasonDeletedRange
		d.Range = rng
		d.Path, _ = r.corpus.RangePath(rng)
	}
}
