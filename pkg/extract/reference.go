package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coolbeans/lawlink/pkg/numeral"
	"github.com/coolbeans/lawlink/pkg/types"
)

// CitationKind classifies a citation by how its statute is determined.
type CitationKind string

const (
	KindAbsolute  CitationKind = "absolute"
	KindRelative  CitationKind = "relative"
	KindQualified CitationKind = "statute-qualified"
	KindSelf      CitationKind = "self-referential"
)

// maxRangeMembers caps the expansion of a single 第N条から第M条まで range.
const maxRangeMembers = 1000

// Span is a half-open byte range of the scanned text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the span covers no text.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Candidate is one citation found by the Scanner. Candidates expanded from a
// single range or 前N条 expression share Span and Group.
type Candidate struct {
	// Span is the evidence: the whole citation expression.
	Span Span `json:"span"`
	// Anchor is the text a link replaces. Interior members of a range have
	// an empty anchor and only produce edges.
	Anchor Span         `json:"anchor"`
	Raw    string       `json:"raw"`
	Kind   CitationKind `json:"kind"`

	Number    int `json:"number,omitempty"`
	Sub       int `json:"sub,omitempty"`
	Paragraph int `json:"paragraph,omitempty"`
	Item      int `json:"item,omitempty"`

	// Offset is the relative offset of 前条 (-1), 次条 (+1) and so on.
	Offset      int  `json:"offset,omitempty"`
	SameArticle bool `json:"same_article,omitempty"`

	StatuteName string `json:"statute_name,omitempty"`
	LawNumber   string `json:"law_number,omitempty"`

	// Part is PartSuppl when the citation carries a 附則 prefix.
	Part types.Part `json:"part,omitempty"`
	// Anaphoric marks a citation qualified by 同法.
	Anaphoric bool `json:"anaphoric,omitempty"`
	Group     int  `json:"group"`
}

// MarkerKind classifies a scope boundary found in the text.
type MarkerKind int

const (
	// MarkerParagraph is a line break.
	MarkerParagraph MarkerKind = iota
	// MarkerAnaphora is a phrase such as 同法 or 当該規定 that ends the
	// current statute scope.
	MarkerAnaphora
	// MarkerClause is a clause ending such as の規定により. It only resets
	// scope inside amendment fragments.
	MarkerClause
)

// Marker is a scope boundary at a byte position.
type Marker struct {
	Pos  int
	Kind MarkerKind
	Text string
}

// ScanResult is the ordered output of one Scan.
type ScanResult struct {
	Text       string
	Candidates []Candidate
	Markers    []Marker
}

var (
	numeralRun = `[` + numeral.Class + `]+`

	// citationPattern matches 附則第N条のM, 前N条, 次条 and 同条, each with an
	// optional paragraph and item anchor.
	citationPattern = regexp.MustCompile(
		`(?:(附則)?第(` + numeralRun + `)条(?:の(` + numeralRun + `))?|(前|次)(` + numeralRun + `)?条|(同)条)` +
			`(?:第(` + numeralRun + `)項)?(?:第(` + numeralRun + `)号)?`)

	anaphoraPattern = regexp.MustCompile(`同法|同規定|当該規定|当該|の規定は、`)
	clausePattern   = regexp.MustCompile(`の規定により|の規定による|の規定に`)
	wikilinkPattern = regexp.MustCompile(`\[\[[^\]]*\]\]`)
)

// selfPrefixes mean "this statute", longest first.
var selfPrefixes = []string{"この法律", "当該法律", "当該法", "本法"}

// statuteSuffixes end the names of statutes and orders.
var statuteSuffixes = []string{"法律", "法", "令", "規則"}

// notStatutes are ordinary words ending like a statute name.
var notStatutes = map[string]bool{
	"法律": true, "方法": true, "違法": true, "適法": true, "合法": true, "不法": true,
	"立法": true, "司法": true, "手法": true, "用法": true, "作法": true, "便法": true,
	"命令": true, "指令": true, "政令": true, "省令": true, "法令": true,
	"同法": true, "本法": true,
}

// Scanner finds citation candidates in article text.
type Scanner struct {
	names []string
}

// NewScanner creates a scanner recognizing the given statute names. Names
// are tried longest first.
func NewScanner(names []string) *Scanner {
	seen := make(map[string]bool, len(names))
	sorted := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" && !seen[n] {
			seen[n] = true
			sorted = append(sorted, n)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(sorted[i]), utf8.RuneCountInString(sorted[j])
		if li != lj {
			return li > lj
		}
		return sorted[i] < sorted[j]
	})
	return &Scanner{names: sorted}
}

type token struct {
	span       Span
	articleEnd int
	relative   bool
	number     int
	sub        int
	paragraph  int
	item       int
	offset     int
	count      int
	same       bool
	suppl      bool
	qual       qualifier
}

// Scan runs one left-to-right pass over text. Text inside existing
// [[wikilinks]] is never scanned.
func (s *Scanner) Scan(text string) *ScanResult {
	masks := maskedSpans(text)
	result := &ScanResult{Text: text}

	var tokens []token
	prevEnd := 0
	for _, m := range citationPattern.FindAllStringSubmatchIndex(text, -1) {
		span := Span{Start: m[0], End: m[1]}
		if overlapsAny(span, masks) {
			continue
		}
		tok, ok := parseToken(text, m)
		if !ok {
			continue
		}

		gapStart := prevEnd
		for _, mask := range masks {
			if mask.End <= span.Start && mask.End > gapStart {
				gapStart = mask.End
			}
		}
		if !tok.relative {
			tok.qual = s.qualify(text, gapStart, span.Start)
		}
		tokens = append(tokens, tok)
		prevEnd = span.End
	}

	group := 0
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if i+1 < len(tokens) {
			if end, ok := rangeEnd(text, tok, tokens[i+1]); ok {
				result.Candidates = append(result.Candidates, expandRange(text, tok, tokens[i+1], end, group)...)
				group++
				i++
				continue
			}
		}
		result.Candidates = append(result.Candidates, tokenCandidates(text, tok, group)...)
		group++
	}

	result.Markers = scanMarkers(text, masks)
	return result
}

// parseToken reads the submatches of citationPattern. Malformed numerals
// reject the token.
func parseToken(text string, m []int) (token, bool) {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return text[m[2*i]:m[2*i+1]]
	}
	groupEnd := func(i int) int { return m[2*i+1] }

	tok := token{span: Span{Start: m[0], End: m[1]}}
	switch {
	case group(2) != "":
		n, ok := numeral.ParseExact(group(2), numeral.Positional)
		if !ok {
			return token{}, false
		}
		tok.number = n
		tok.suppl = group(1) != ""
		tok.articleEnd = groupEnd(2) + len("条")
		if sub := group(3); sub != "" {
			v, ok := numeral.ParseExact(sub, numeral.Positional)
			if !ok {
				return token{}, false
			}
			tok.sub = v
			tok.articleEnd = groupEnd(3)
		}
	case group(4) != "":
		tok.relative = true
		tok.count = 1
		if c := group(5); c != "" {
			v, ok := numeral.ParseExact(c, numeral.Positional)
			if !ok {
				return token{}, false
			}
			tok.count = v
			tok.articleEnd = groupEnd(5) + len("条")
		} else {
			tok.articleEnd = groupEnd(4) + len("条")
		}
		tok.offset = -1
		if group(4) == "次" {
			tok.offset = 1
		}
	default:
		tok.relative = true
		tok.same = true
		tok.articleEnd = groupEnd(6) + len("条")
		// 同条例 is an ordinance, not an article.
		if strings.HasPrefix(text[tok.articleEnd:], "例") {
			return token{}, false
		}
	}

	if p := group(7); p != "" {
		tok.paragraph, _ = numeral.ParseExact(p, numeral.Positional)
	}
	if it := group(8); it != "" {
		tok.item, _ = numeral.ParseExact(it, numeral.Positional)
	}
	return tok, true
}

type qualifier struct {
	kind      CitationKind
	name      string
	lawNumber string
	anaphoric bool
}

// qualify inspects the text between the previous citation and this one for
// a statute qualifier ending right before the citation.
func (s *Scanner) qualify(text string, gapStart, tokStart int) qualifier {
	gap := text[gapStart:tokStart]

	tight := strings.TrimRight(gap, " 　\t")
	for _, p := range selfPrefixes {
		if !strings.HasSuffix(tight, p) {
			continue
		}
		start := gapStart + len(tight) - len(p)
		if p == "本法" && hanBefore(text, start) {
			break
		}
		return qualifier{kind: KindSelf, name: p}
	}
	if strings.HasSuffix(tight, "同法") {
		return qualifier{anaphoric: true}
	}

	rest, paren, loose := stripFiller(gap)
	restEnd := gapStart + len(rest)

	if name, ok := s.matchName(text, gapStart, restEnd); ok {
		q := qualifier{kind: KindQualified, name: name}
		if key, ok := numeral.NormalizeLawNumber(paren); ok && paren != "" {
			q.lawNumber = key
		}
		return q
	}
	if paren != "" {
		if key, ok := numeral.NormalizeLawNumber(paren); ok {
			name := trailingNameRun(rest)
			if name == "法律" {
				name = ""
			}
			return qualifier{kind: KindQualified, name: name, lawNumber: key}
		}
	}
	if !loose {
		if name := compoundStatuteName(rest); name != "" {
			return qualifier{kind: KindQualified, name: name}
		}
	}
	return qualifier{}
}

// stripFiller removes whitespace, の, 、 and one trailing parenthetical from
// the end of gap. loose reports whether の or 、 was removed.
func stripFiller(gap string) (rest, paren string, loose bool) {
	rest = gap
	parenSeen := false
	for {
		trimmed := strings.TrimRight(rest, " 　\t\r\n")
		switch {
		case strings.HasSuffix(trimmed, "の"):
			trimmed = strings.TrimSuffix(trimmed, "の")
			loose = true
		case strings.HasSuffix(trimmed, "、"):
			trimmed = strings.TrimSuffix(trimmed, "、")
			loose = true
		case !parenSeen && strings.HasSuffix(trimmed, "）"):
			open := strings.LastIndex(trimmed, "（")
			if open >= 0 {
				paren = trimmed[open+len("（") : len(trimmed)-len("）")]
				trimmed = trimmed[:open]
				parenSeen = true
			}
		}
		if trimmed == rest {
			return rest, paren, loose
		}
		rest = trimmed
	}
}

// matchName finds the longest known name ending at end. A name preceded by
// another ideograph is part of a longer, unknown name and does not match.
func (s *Scanner) matchName(text string, gapStart, end int) (string, bool) {
	window := text[gapStart:end]
	for _, name := range s.names {
		if !strings.HasSuffix(window, name) {
			continue
		}
		if hanBefore(text, end-len(name)) {
			continue
		}
		return name, true
	}
	return "", false
}

// trailingNameRun returns the run of ideographs and katakana ending s.
func trailingNameRun(s string) string {
	start := len(s)
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:start])
		if !isNameRune(r) {
			break
		}
		start -= size
	}
	return s[start:]
}

// compoundStatuteName returns an unknown statute name ending s, such as
// 民法施行法, or "".
func compoundStatuteName(s string) string {
	run := trailingNameRun(s)
	if utf8.RuneCountInString(run) < 2 || notStatutes[run] {
		return ""
	}
	for _, suffix := range statuteSuffixes {
		if strings.HasSuffix(run, suffix) {
			return run
		}
	}
	return ""
}

func isNameRune(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Katakana, r) || r == 'ー' || r == '・'
}

func hanBefore(text string, pos int) bool {
	if pos <= 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return unicode.Is(unicode.Han, r)
}

// rangeEnd reports whether a and b form 第N条から第M条まで and returns the
// end of the expression.
func rangeEnd(text string, a, b token) (int, bool) {
	if a.relative || b.relative || b.qual.kind != "" || b.qual.anaphoric || a.suppl != b.suppl {
		return 0, false
	}
	if text[a.span.End:b.span.Start] != "から" || !strings.HasPrefix(text[b.span.End:], "まで") {
		return 0, false
	}
	if b.number < a.number || (b.number == a.number && b.sub <= a.sub) {
		return 0, false
	}
	return b.span.End + len("まで"), true
}

type articleNumber struct{ main, sub int }

// rangeMembers lists the articles from a to b. Sub-numbered articles are
// only enumerated when both ends share a main number.
func rangeMembers(a, b token) []articleNumber {
	var members []articleNumber
	if a.number == b.number {
		members = append(members, articleNumber{a.number, a.sub})
		from := a.sub + 1
		if from < 2 {
			from = 2
		}
		for s := from; s <= b.sub; s++ {
			members = append(members, articleNumber{a.number, s})
		}
		return members
	}
	if b.number-a.number+1 > maxRangeMembers {
		return []articleNumber{{a.number, a.sub}, {b.number, b.sub}}
	}
	members = append(members, articleNumber{a.number, a.sub})
	for n := a.number + 1; n < b.number; n++ {
		members = append(members, articleNumber{n, 0})
	}
	return append(members, articleNumber{b.number, b.sub})
}

func expandRange(text string, a, b token, end, group int) []Candidate {
	span := Span{Start: a.span.Start, End: end}
	members := rangeMembers(a, b)
	out := make([]Candidate, 0, len(members))
	for i, m := range members {
		c := baseCandidate(a, span, group)
		c.Number, c.Sub = m.main, m.sub
		c.Paragraph, c.Item = 0, 0
		switch i {
		case 0:
			c.Anchor = Span{Start: a.span.Start, End: a.articleEnd}
			c.Paragraph, c.Item = a.paragraph, a.item
		case len(members) - 1:
			c.Anchor = Span{Start: b.span.Start, End: b.articleEnd}
			c.Paragraph, c.Item = b.paragraph, b.item
		}
		c.Raw = rawText(text, c)
		out = append(out, c)
	}
	return out
}

func tokenCandidates(text string, tok token, group int) []Candidate {
	anchor := Span{Start: tok.span.Start, End: tok.articleEnd}
	if !tok.relative || tok.same {
		c := baseCandidate(tok, tok.span, group)
		c.Anchor = anchor
		c.Raw = rawText(text, c)
		return []Candidate{c}
	}

	// 前二条 names the two articles before the anchor, 次二条 the two after.
	out := make([]Candidate, 0, tok.count)
	for i := 0; i < tok.count; i++ {
		c := baseCandidate(tok, tok.span, group)
		c.Anchor = anchor
		if tok.offset < 0 {
			c.Offset = -tok.count + i
		} else {
			c.Offset = i + 1
		}
		c.Raw = rawText(text, c)
		out = append(out, c)
	}
	return out
}

func baseCandidate(tok token, span Span, group int) Candidate {
	c := Candidate{
		Span:      span,
		Number:    tok.number,
		Sub:       tok.sub,
		Paragraph: tok.paragraph,
		Item:      tok.item,
		Group:     group,
	}
	switch {
	case tok.relative:
		c.Kind = KindRelative
		c.SameArticle = tok.same
	case tok.qual.kind != "":
		c.Kind = tok.qual.kind
		if tok.qual.kind == KindQualified {
			c.StatuteName = tok.qual.name
			c.LawNumber = tok.qual.lawNumber
		}
	default:
		c.Kind = KindAbsolute
		c.Anaphoric = tok.qual.anaphoric
	}
	if tok.suppl {
		c.Part = types.PartSuppl
	}
	return c
}

func rawText(text string, c Candidate) string {
	if c.Anchor.Empty() {
		return text[c.Span.Start:c.Span.End]
	}
	return text[c.Anchor.Start:c.Anchor.End]
}

func scanMarkers(text string, masks []Span) []Marker {
	var markers []Marker
	add := func(kind MarkerKind, start, end int) {
		span := Span{Start: start, End: end}
		if overlapsAny(span, masks) {
			return
		}
		markers = append(markers, Marker{Pos: start, Kind: kind, Text: text[start:end]})
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			add(MarkerParagraph, i, i+1)
		}
	}
	for _, m := range anaphoraPattern.FindAllStringIndex(text, -1) {
		add(MarkerAnaphora, m[0], m[1])
	}
	for _, m := range clausePattern.FindAllStringIndex(text, -1) {
		add(MarkerClause, m[0], m[1])
	}
	sort.SliceStable(markers, func(i, j int) bool { return markers[i].Pos < markers[j].Pos })
	return markers
}

func maskedSpans(text string) []Span {
	var spans []Span
	for _, m := range wikilinkPattern.FindAllStringIndex(text, -1) {
		spans = append(spans, Span{Start: m[0], End: m[1]})
	}
	return spans
}

func overlapsAny(s Span, spans []Span) bool {
	for _, o := range spans {
		if s.Start < o.End && o.Start < s.End {
			return true
		}
	}
	return false
}
