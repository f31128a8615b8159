package extract

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/lawlink/pkg/catalog"
	"github.com/coolbeans/lawlink/pkg/types"
)

// fakeCorpus holds main-body articles of a few statutes keyed by id.
type fakeCorpus struct {
	articles map[types.ArticleIdentity]bool
	ranges   []types.RangeIdentity
	byName   map[string]types.Statute
}

func newFakeCorpus() *fakeCorpus {
	f := &fakeCorpus{
		articles: make(map[types.ArticleIdentity]bool),
		byName: map[string]types.Statute{
			"甲法": {ID: "A", Name: "甲法"},
			"乙法": {ID: "B", Name: "乙法"},
		},
	}
	for _, n := range []int{1, 2, 3, 10, 31} {
		f.articles[mainArticle("A", n, 0)] = true
	}
	f.articles[mainArticle("B", 4, 0)] = true
	f.articles[mainArticle("B", 4, 2)] = true
	f.articles[mainArticle("B", 5, 0)] = true
	f.ranges = []types.RangeIdentity{{StatuteID: "A", Part: types.PartMain, From: 20, To: 30}}
	return f
}

func (f *fakeCorpus) HasArticle(id types.ArticleIdentity) bool { return f.articles[id] }

func (f *fakeCorpus) FindCoveringRange(statuteID string, part types.Part, number int) (types.RangeIdentity, bool) {
	for _, r := range f.ranges {
		if r.StatuteID == statuteID && r.Part == part && r.Covers(number) {
			return r, true
		}
	}
	return types.RangeIdentity{}, false
}

func (f *fakeCorpus) StatuteByName(name string) (types.Statute, bool) {
	s, ok := f.byName[name]
	return s, ok
}

// Neighbor walks the indexed articles of the same statute and part in order.
func (f *fakeCorpus) Neighbor(id types.ArticleIdentity, offset int) (types.ArticleIdentity, bool) {
	var list []types.ArticleIdentity
	for a := range f.articles {
		if a.StatuteID == id.StatuteID && a.Part == id.Part {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return articleLess(list[i], list[j]) })
	for i, a := range list {
		if a == id {
			if j := i + offset; j >= 0 && j < len(list) {
				return list[j], true
			}
			break
		}
	}
	return types.ArticleIdentity{}, false
}

func (f *fakeCorpus) ArticlePath(id types.ArticleIdentity) (string, bool) {
	return "laws/" + id.StatuteID + "/" + id.Label() + ".md", f.articles[id]
}

func (f *fakeCorpus) RangePath(r types.RangeIdentity) (string, bool) {
	return "laws/" + r.StatuteID + "/" + r.Label() + ".md", true
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	cat, err := catalog.New([]types.Statute{
		{ID: "C", Name: "丙法"},
		{ID: "D", Name: "丁法", ExternalProne: true},
	})
	require.NoError(t, err)
	return NewResolver(newFakeCorpus(), cat)
}

func absolute(n int, epoch int) Annotated {
	return Annotated{Candidate: Candidate{Kind: KindAbsolute, Number: n}, Epoch: epoch}
}

func qualified(name string, n int, epoch int) Annotated {
	return Annotated{
		Candidate: Candidate{Kind: KindQualified, Number: n, StatuteName: name},
		Governing: Governing{Kind: GoverningStatute, Name: name},
		Epoch:     epoch,
	}
}

func relativeRef(offset int, gov Governing, epoch int) Annotated {
	return Annotated{Candidate: Candidate{Kind: KindRelative, Offset: offset}, Governing: gov, Epoch: epoch}
}

func TestResolveExistence(t *testing.T) {
	r := newTestResolver(t)
	src := Source{Identity: mainArticle("A", 3, 0)}
	ds := r.Resolve(src, []Annotated{absolute(1, 0), absolute(25, 0), absolute(99, 0), absolute(3, 0)})
	require.Len(t, ds, 4)

	assert.Equal(t, OutcomeLink, ds[0].Outcome)
	assert.Equal(t, "laws/A/第1条.md", ds[0].Path)
	assert.Equal(t, 0.9, ds[0].Confidence)

	assert.Equal(t, OutcomeRedirect, ds[1].Outcome)
	assert.Equal(t, 20, ds[1].Range.From)
	assert.Equal(t, mainArticle("A", 25, 0), ds[1].Target)
	assert.True(t, ds[1].Linked())

	assert.Equal(t, OutcomeNoLink, ds[2].Outcome)
	assert.Equal(t, ReasonMissingArticle, ds[2].Reason)

	assert.Equal(t, ReasonSelfReference, ds[3].Reason)
	assert.False(t, ds[3].Linked())
}

func TestResolveGoverningStatute(t *testing.T) {
	r := newTestResolver(t)
	src := Source{Identity: mainArticle("A", 1, 0)}
	ds := r.Resolve(src, []Annotated{
		qualified("乙法", 5, 1),
		qualified("丙法", 5, 2),
		qualified("丁法", 5, 3),
		qualified("戊法", 5, 4),
	})

	assert.Equal(t, mainArticle("B", 5, 0), ds[0].Target)
	assert.Equal(t, 0.95, ds[0].Confidence)
	assert.Equal(t, ReasonNotMaterialized, ds[1].Reason)
	assert.Equal(t, ReasonExternalProne, ds[2].Reason)
	assert.Equal(t, ReasonUnknownStatute, ds[3].Reason)
	for _, d := range ds[1:] {
		assert.Equal(t, OutcomeExternalUnresolved, d.Outcome)
	}
}

func TestResolveAnaphoricAndFragment(t *testing.T) {
	r := newTestResolver(t)
	anaphoric := absolute(1, 1)
	anaphoric.Governing = Governing{Kind: GoverningAnaphoric}

	ds := r.Resolve(Source{Identity: mainArticle("A", 3, 0)}, []Annotated{anaphoric})
	assert.Equal(t, ReasonAnaphoric, ds[0].Reason)

	frag := Source{Identity: types.ArticleIdentity{StatuteID: "A", Part: types.PartAmendment, Number: 1, AmendmentKey: "H11_L87"}, Fragment: true}
	ds = r.Resolve(frag, []Annotated{absolute(1, 0), qualified("甲法", 2, 1)})
	assert.Equal(t, ReasonAmendingLaw, ds[0].Reason)
	assert.Equal(t, OutcomeLink, ds[1].Outcome)
}

func TestResolveRelative(t *testing.T) {
	r := newTestResolver(t)
	src := Source{Identity: mainArticle("A", 3, 0)}
	b := Governing{Kind: GoverningStatute, Name: "乙法"}

	ds := r.Resolve(src, []Annotated{
		absolute(10, 0),
		relativeRef(-1, Governing{}, 0), // 第九条 is missing; 第三条 sits across the gap
		relativeRef(-1, Governing{}, 1), // new epoch anchors on the source
		relativeRef(1, b, 2),            // no anchor inside 乙法
	})

	assert.Equal(t, mainArticle("A", 9, 0), ds[1].Target)
	assert.Equal(t, ReasonMissingArticle, ds[1].Reason)
	assert.Equal(t, mainArticle("A", 2, 0), ds[2].Target)
	assert.Equal(t, OutcomeLink, ds[2].Outcome)
	assert.Equal(t, 0.8, ds[2].Confidence)
	assert.Equal(t, ReasonNoAnchor, ds[3].Reason)
}

func TestResolveRelativeOutOfRange(t *testing.T) {
	r := newTestResolver(t)
	ds := r.Resolve(Source{Identity: mainArticle("A", 1, 0)}, []Annotated{relativeRef(-2, Governing{}, 0)})
	assert.Equal(t, OutcomeNoLink, ds[0].Outcome)
	assert.Equal(t, ReasonOutOfRange, ds[0].Reason)
}

func TestResolveRelativeAcrossGaps(t *testing.T) {
	r := newTestResolver(t)
	tests := []struct {
		name    string
		source  types.ArticleIdentity
		offset  int
		outcome Outcome
		target  types.ArticleIdentity
	}{
		{"preceding article missing", mainArticle("A", 10, 0), -1, OutcomeNoLink, mainArticle("A", 9, 0)},
		{"next article missing", mainArticle("A", 10, 0), 1, OutcomeNoLink, mainArticle("A", 11, 0)},
		{"preceding article deleted", mainArticle("A", 31, 0), -1, OutcomeRedirect, mainArticle("A", 30, 0)},
		{"preceding sub-numbered article", mainArticle("B", 5, 0), -1, OutcomeLink, mainArticle("B", 4, 2)},
		{"next sub-numbered article", mainArticle("B", 4, 0), 1, OutcomeLink, mainArticle("B", 4, 2)},
		{"preceding of sub-numbered article", mainArticle("B", 4, 2), -1, OutcomeLink, mainArticle("B", 4, 0)},
		{"next of sub-numbered article", mainArticle("B", 4, 2), 1, OutcomeLink, mainArticle("B", 5, 0)},
		{"two before across sub-numbering", mainArticle("B", 5, 0), -2, OutcomeLink, mainArticle("B", 4, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := r.Resolve(Source{Identity: tt.source}, []Annotated{relativeRef(tt.offset, Governing{}, 0)})
			require.Len(t, ds, 1)
			assert.Equal(t, tt.outcome, ds[0].Outcome)
			assert.Equal(t, tt.target, ds[0].Target)
		})
	}
}
