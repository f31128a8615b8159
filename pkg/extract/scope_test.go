package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annotate(text string, fragment bool) []Annotated {
	res := NewScanner([]string{"民法", "刑法"}).Scan(text)
	return ScopeTracker{Fragment: fragment}.Annotate(res)
}

func governed(a []Annotated) []string {
	out := make([]string, 0, len(a))
	for _, c := range a {
		switch c.Governing.Kind {
		case GoverningNone:
			out = append(out, "none")
		case GoverningSelf:
			out = append(out, "self")
		case GoverningAnaphoric:
			out = append(out, "anaphoric")
		default:
			out = append(out, c.Governing.Name)
		}
	}
	return out
}

func TestScopeContinuesThroughEnumeration(t *testing.T) {
	a := annotate("民法第七百四十九条、第七百七十一条及び第七百八十八条の規定", false)
	assert.Equal(t, []string{"民法", "民法", "民法"}, governed(a))
	assert.Equal(t, a[0].Epoch, a[2].Epoch)
}

func TestScopeResetsOnAnaphora(t *testing.T) {
	a := annotate("民法第五条。同規定により第五条", false)
	assert.Equal(t, []string{"民法", "none"}, governed(a))
	assert.Greater(t, a[1].Epoch, a[0].Epoch)

	a = annotate("民法第五条の規定は、第六条", false)
	assert.Equal(t, []string{"民法", "none"}, governed(a))
}

func TestScopeResetsOnParagraph(t *testing.T) {
	a := annotate("民法第一条\n第二条", false)
	assert.Equal(t, []string{"民法", "none"}, governed(a))
}

func TestScopeClauseResetOnlyInFragments(t *testing.T) {
	text := "民法第一条の規定により第二条"
	assert.Equal(t, []string{"民法", "民法"}, governed(annotate(text, false)))
	assert.Equal(t, []string{"民法", "none"}, governed(annotate(text, true)))
}

func TestScopeNearestQualifierWins(t *testing.T) {
	a := annotate("民法第一条及び刑法第二条並びに第三条", false)
	assert.Equal(t, []string{"民法", "刑法", "刑法"}, governed(a))
	assert.NotEqual(t, a[0].Epoch, a[1].Epoch)
	assert.Equal(t, a[1].Epoch, a[2].Epoch)
}

func TestScopeSelfOverridesExternal(t *testing.T) {
	a := annotate("民法第一条及びこの法律第十条、第十一条", false)
	assert.Equal(t, []string{"民法", "self", "self"}, governed(a))
}

func TestScopeAnaphoricContinues(t *testing.T) {
	a := annotate("民法第一条。同法第二条及び第三条", false)
	require.Len(t, a, 3)
	assert.Equal(t, []string{"民法", "anaphoric", "anaphoric"}, governed(a))
}

func TestScopeRepeatedQualifierKeepsEpoch(t *testing.T) {
	a := annotate("民法第一条及び民法第二条", false)
	assert.Equal(t, a[0].Epoch, a[1].Epoch)
}
