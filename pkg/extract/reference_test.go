package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/lawlink/pkg/types"
)

func scan(text string, names ...string) *ScanResult {
	return NewScanner(names).Scan(text)
}

func anchorText(res *ScanResult, c Candidate) string {
	return res.Text[c.Anchor.Start:c.Anchor.End]
}

func TestScanAbsolute(t *testing.T) {
	res := scan("第十九条の三第二項第一号の規定により")
	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, KindAbsolute, c.Kind)
	assert.Equal(t, 19, c.Number)
	assert.Equal(t, 3, c.Sub)
	assert.Equal(t, 2, c.Paragraph)
	assert.Equal(t, 1, c.Item)
	assert.Equal(t, "第十九条の三", anchorText(res, c))
	assert.Equal(t, "第十九条の三第二項第一号", res.Text[c.Span.Start:c.Span.End])
	assert.Equal(t, "第十九条の三", c.Raw)
}

func TestScanLargeAndArabicNumbers(t *testing.T) {
	res := scan("第千二十四条及び第１２条")
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, 1024, res.Candidates[0].Number)
	assert.Equal(t, 12, res.Candidates[1].Number)
}

func TestScanSupplementaryHint(t *testing.T) {
	res := scan("附則第三条")
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, types.PartSuppl, res.Candidates[0].Part)
	assert.Equal(t, "附則第三条", anchorText(res, res.Candidates[0]))
}

func TestScanIgnoresNonCitations(t *testing.T) {
	for _, text := range []string{
		"平成十年十月一日から施行する。",
		"百万円以下の罰金に処する。",
		"第三項の規定を準用する。",
		"同条例の定めるところによる。",
	} {
		assert.Empty(t, scan(text).Candidates, text)
	}
}

func TestScanSkipsMalformedNumerals(t *testing.T) {
	res := scan("第二三条及び第五条")
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, 5, res.Candidates[0].Number)
}

func TestScanQualified(t *testing.T) {
	res := scan("民法第七百四十九条、第七百七十一条及び第七百八十八条", "民法")
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, KindQualified, res.Candidates[0].Kind)
	assert.Equal(t, "民法", res.Candidates[0].StatuteName)
	assert.Equal(t, "第七百四十九条", anchorText(res, res.Candidates[0]))
	for _, c := range res.Candidates[1:] {
		assert.Equal(t, KindAbsolute, c.Kind)
		assert.Empty(t, c.StatuteName)
	}
	assert.Equal(t, []int{749, 771, 788}, numbers(res.Candidates))
}

func TestScanQualifierFiller(t *testing.T) {
	tests := []struct {
		text  string
		names []string
		want  string
		law   string
	}{
		{"民法 第一条", []string{"民法"}, "民法", ""},
		{"民法の第一条", []string{"民法"}, "民法", ""},
		{"民法（明治二十九年法律第八十九号）第一条", []string{"民法"}, "民法", "M29_L89"},
		{"商法（明治三十二年法律第四十八号）第五百条", nil, "商法", "M32_L48"},
		{"新民法第一条", []string{"民法", "新民法"}, "新民法", ""},
		{"民法施行法第一条", []string{"民法"}, "民法施行法", ""},
		{"刑事訴訟法第一条", []string{"刑法", "刑事訴訟法"}, "刑事訴訟法", ""},
	}
	for _, tt := range tests {
		res := scan(tt.text, tt.names...)
		require.Len(t, res.Candidates, 1, tt.text)
		c := res.Candidates[0]
		assert.Equal(t, KindQualified, c.Kind, tt.text)
		assert.Equal(t, tt.want, c.StatuteName, tt.text)
		assert.Equal(t, tt.law, c.LawNumber, tt.text)
	}
}

func TestScanKnownNameInsideLongerName(t *testing.T) {
	// 刑法 must not match the tail of 特別刑法.
	res := scan("特別刑法第一条", "刑法")
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "特別刑法", res.Candidates[0].StatuteName)
}

func TestScanOrdinaryWordsAreNotStatutes(t *testing.T) {
	for _, text := range []string{"その方法第一条", "法律第一条"} {
		res := scan(text)
		require.Len(t, res.Candidates, 1, text)
		assert.Equal(t, KindAbsolute, res.Candidates[0].Kind, text)
	}
}

func TestScanSelfReferential(t *testing.T) {
	for _, text := range []string{"この法律第十条", "本法第十条", "当該法律 第十条"} {
		res := scan(text, "民法")
		require.Len(t, res.Candidates, 1, text)
		assert.Equal(t, KindSelf, res.Candidates[0].Kind, text)
		assert.Equal(t, 10, res.Candidates[0].Number)
	}
}

func TestScanAnaphoricQualifier(t *testing.T) {
	res := scan("民法第一条。同法第二条", "民法")
	require.Len(t, res.Candidates, 2)
	assert.False(t, res.Candidates[0].Anaphoric)
	assert.True(t, res.Candidates[1].Anaphoric)
	assert.Equal(t, KindAbsolute, res.Candidates[1].Kind)
}

func TestScanRangeExpansion(t *testing.T) {
	res := scan("第二百三十五条から第二百三十六条まで")
	require.Len(t, res.Candidates, 2)
	a, b := res.Candidates[0], res.Candidates[1]
	assert.Equal(t, []int{235, 236}, numbers(res.Candidates))
	assert.Equal(t, a.Span, b.Span)
	assert.Equal(t, a.Group, b.Group)
	assert.Equal(t, "第二百三十五条から第二百三十六条まで", res.Text[a.Span.Start:a.Span.End])
	assert.Equal(t, "第二百三十五条", anchorText(res, a))
	assert.Equal(t, "第二百三十六条", anchorText(res, b))
}

func TestScanRangeInterior(t *testing.T) {
	res := scan("第三十八条から第四十条まで")
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, []int{38, 39, 40}, numbers(res.Candidates))
	assert.True(t, res.Candidates[1].Anchor.Empty())
	assert.False(t, res.Candidates[0].Anchor.Empty())
	assert.False(t, res.Candidates[2].Anchor.Empty())
}

func TestScanRangeSubNumbers(t *testing.T) {
	res := scan("第十九条から第十九条の三まで")
	require.Len(t, res.Candidates, 3)
	var subs []int
	for _, c := range res.Candidates {
		assert.Equal(t, 19, c.Number)
		subs = append(subs, c.Sub)
	}
	assert.Equal(t, []int{0, 2, 3}, subs)
}

func TestScanRangeCapped(t *testing.T) {
	res := scan("第一条から第五千条まで")
	assert.Equal(t, []int{1, 5000}, numbers(res.Candidates))
}

func TestScanReversedRangeIsTwoCitations(t *testing.T) {
	res := scan("第十条から第五条まで")
	require.Len(t, res.Candidates, 2)
	assert.NotEqual(t, res.Candidates[0].Group, res.Candidates[1].Group)
}

func TestScanRelative(t *testing.T) {
	res := scan("前条、次条及び同条第二項")
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, -1, res.Candidates[0].Offset)
	assert.Equal(t, 1, res.Candidates[1].Offset)
	assert.True(t, res.Candidates[2].SameArticle)
	assert.Equal(t, 2, res.Candidates[2].Paragraph)
	assert.Equal(t, "同条", anchorText(res, res.Candidates[2]))
	for _, c := range res.Candidates {
		assert.Equal(t, KindRelative, c.Kind)
	}
}

func TestScanPrecedingCount(t *testing.T) {
	res := scan("前二条の規定")
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, -2, res.Candidates[0].Offset)
	assert.Equal(t, -1, res.Candidates[1].Offset)
	assert.Equal(t, res.Candidates[0].Anchor, res.Candidates[1].Anchor)
	assert.Equal(t, "前二条", anchorText(res, res.Candidates[0]))
}

func TestScanSkipsWikilinks(t *testing.T) {
	res := scan("[[メモ|第一条]]及び第二条", "民法")
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, 2, res.Candidates[0].Number)

	// A name inside a link does not qualify the citation after it.
	res = scan("[[民法]]第三条", "民法")
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, KindAbsolute, res.Candidates[0].Kind)
}

func TestScanMarkers(t *testing.T) {
	res := scan("民法第一条。\n同規定及び民法の規定により、当該")
	var kinds []MarkerKind
	for _, m := range res.Markers {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []MarkerKind{MarkerParagraph, MarkerAnaphora, MarkerClause, MarkerAnaphora}, kinds)
}

func numbers(cands []Candidate) []int {
	out := make([]int, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Number)
	}
	return out
}
