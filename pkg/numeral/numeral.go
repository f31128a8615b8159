// Package numeral converts between the numerals used in Japanese statute text
// and integers: kanji positional numerals (二百三十五), concatenated kanji digits
// (八七), Arabic digits in half or full width, and article labels with
// sub-numbering (第十九条の三).
package numeral

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Notation selects how a run of kanji glyphs is read.
type Notation int

const (
	// Positional reads digit and power-of-ten glyphs: 二百三十五 = 235.
	Positional Notation = iota
	// Concatenative reads each glyph as one decimal digit: 一一 = 11.
	Concatenative
	// Auto picks Positional when a unit glyph is present, Concatenative otherwise.
	Auto
)

// Class is a regexp character class body matching every numeral glyph.
const Class = `〇零一壱二弐三参四五六七八九十百千万0-9０-９`

// maxDigits bounds digit-per-glyph numerals so values stay well inside int.
const maxDigits = 9

var digitValue = map[rune]int{
	'〇': 0, '零': 0,
	'一': 1, '壱': 1,
	'二': 2, '弐': 2,
	'三': 3, '参': 3,
	'四': 4,
	'五': 5,
	'六': 6,
	'七': 7,
	'八': 8,
	'九': 9,
}

var unitValue = map[rune]int{
	'十': 10,
	'百': 100,
	'千': 1000,
}

const manGlyph = '万'

// IsNumeralRune reports whether r can appear inside a numeral.
func IsNumeralRune(r rune) bool {
	if _, ok := digitValue[r]; ok {
		return true
	}
	if _, ok := unitValue[r]; ok {
		return true
	}
	return r == manGlyph || arabicValue(r) >= 0
}

// Parse reads the maximal numeral prefix of s and returns its value and the
// number of bytes consumed. ok is false when s does not start with a numeral
// or the numeral is zero. Parse never panics on arbitrary input.
func Parse(s string, n Notation) (value int, consumed int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	if arabicValue(r) >= 0 {
		return parseArabic(s)
	}

	switch n {
	case Concatenative:
		return parseConcatenative(s)
	case Auto:
		end := kanjiRunEnd(s)
		if strings.ContainsAny(s[:end], "十百千万") {
			return parsePositional(s)
		}
		return parseConcatenative(s)
	default:
		return parsePositional(s)
	}
}

// ParseExact parses s as a single numeral and fails unless all of s is consumed.
func ParseExact(s string, n Notation) (int, bool) {
	v, consumed, ok := Parse(s, n)
	if !ok || consumed != len(s) {
		return 0, false
	}
	return v, true
}

func arabicValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= '０' && r <= '９':
		return int(r - '０')
	}
	return -1
}

func parseArabic(s string) (int, int, bool) {
	value, digits, consumed := 0, 0, 0
	for i, r := range s {
		d := arabicValue(r)
		if d < 0 {
			break
		}
		digits++
		if digits > maxDigits {
			return 0, 0, false
		}
		value = value*10 + d
		consumed = i + utf8.RuneLen(r)
	}
	return value, consumed, value > 0
}

func parseConcatenative(s string) (int, int, bool) {
	value, digits, consumed := 0, 0, 0
	for i, r := range s {
		d, ok := digitValue[r]
		if !ok {
			break
		}
		digits++
		if digits > maxDigits {
			return 0, 0, false
		}
		value = value*10 + d
		consumed = i + utf8.RuneLen(r)
	}
	return value, consumed, value > 0 && consumed > 0
}

// parsePositional is strict: two digit glyphs in a row, or a unit glyph not
// smaller than the previous one within a 万 section, end the numeral.
func parsePositional(s string) (int, int, bool) {
	total := 0
	section := 0
	digit := -1
	lastUnit := 10000
	seenMan := false
	consumed := 0

loop:
	for i, r := range s {
		next := i + utf8.RuneLen(r)
		if d, ok := digitValue[r]; ok {
			if digit >= 0 {
				break
			}
			digit = d
			consumed = next
			continue
		}
		if u, ok := unitValue[r]; ok {
			if u >= lastUnit || digit == 0 {
				break
			}
			if digit < 0 {
				digit = 1
			}
			section += digit * u
			digit = -1
			lastUnit = u
			consumed = next
			continue
		}
		if r == manGlyph {
			if seenMan {
				break
			}
			if digit > 0 {
				section += digit
				digit = -1
			}
			if section == 0 {
				break loop
			}
			total = section * 10000
			section = 0
			lastUnit = 10000
			seenMan = true
			consumed = next
			continue
		}
		break
	}
	if digit > 0 {
		section += digit
	}
	value := total + section
	return value, consumed, value > 0 && consumed > 0
}

func kanjiRunEnd(s string) int {
	end := 0
	for i, r := range s {
		if _, ok := digitValue[r]; ok {
			end = i + utf8.RuneLen(r)
			continue
		}
		if _, ok := unitValue[r]; ok || r == manGlyph {
			end = i + utf8.RuneLen(r)
			continue
		}
		break
	}
	return end
}

// ParseSubNumbered parses "十九の三" style numbers. sub is 0 when there is no
// sub-number. The whole string must be consumed.
func ParseSubNumbered(s string) (main, sub int, ok bool) {
	head, tail, hasSub := strings.Cut(s, "の")
	main, ok = ParseExact(head, Positional)
	if !ok {
		return 0, 0, false
	}
	if !hasSub {
		return main, 0, true
	}
	sub, ok = ParseExact(tail, Positional)
	if !ok {
		return 0, 0, false
	}
	return main, sub, true
}

// FormatArticleLabel renders the label used for article file names: 第19条,
// 第19条の3. It returns "" for a non-positive main number or a negative sub.
func FormatArticleLabel(main, sub int) string {
	if main <= 0 || sub < 0 {
		return ""
	}
	if sub == 0 {
		return fmt.Sprintf("第%d条", main)
	}
	return fmt.Sprintf("第%d条の%d", main, sub)
}

// ParseArticleLabel is the inverse of FormatArticleLabel. Kanji numerals are
// accepted as well, so 第十九条の三 parses to (19, 3).
func ParseArticleLabel(s string) (main, sub int, ok bool) {
	rest, found := strings.CutPrefix(s, "第")
	if !found {
		return 0, 0, false
	}
	num, suffix, found := strings.Cut(rest, "条")
	if !found {
		return 0, 0, false
	}
	main, ok = ParseExact(num, Positional)
	if !ok {
		return 0, 0, false
	}
	if suffix == "" {
		return main, 0, true
	}
	subText, found := strings.CutPrefix(suffix, "の")
	if !found {
		return 0, 0, false
	}
	sub, ok = ParseExact(subText, Positional)
	if !ok {
		return 0, 0, false
	}
	return main, sub, true
}

// FormatRangeLabel renders a deleted-range label: 第73条から第76条まで.
func FormatRangeLabel(from, to int) string {
	return fmt.Sprintf("第%d条から第%d条まで", from, to)
}

var (
	rangeLabelPattern       = regexp.MustCompile(`^第(\d+)条から第(\d+)条まで$`)
	legacyRangeLabelPattern = regexp.MustCompile(`^第(\d+):(\d+)条$`)
)

// ParseRangeLabel parses 第73条から第76条まで and the legacy 第73:76条 form.
func ParseRangeLabel(s string) (from, to int, ok bool) {
	m := rangeLabelPattern.FindStringSubmatch(s)
	if m == nil {
		m = legacyRangeLabelPattern.FindStringSubmatch(s)
	}
	if m == nil {
		return 0, 0, false
	}
	from, _ = strconv.Atoi(m[1])
	to, _ = strconv.Atoi(m[2])
	if from <= 0 || to < from {
		return 0, 0, false
	}
	return from, to, true
}

var kanjiDigits = []rune("〇一二三四五六七八九")

// FormatKanji renders n as a positional kanji numeral. Values outside
// 1..99,999,999 render as "".
func FormatKanji(n int) string {
	if n <= 0 || n >= 100000000 {
		return ""
	}
	var b strings.Builder
	if n >= 10000 {
		writeSection(&b, n/10000)
		b.WriteRune(manGlyph)
		n %= 10000
	}
	writeSection(&b, n)
	return b.String()
}

func writeSection(b *strings.Builder, n int) {
	for _, u := range []struct {
		value int
		glyph rune
	}{{1000, '千'}, {100, '百'}, {10, '十'}} {
		d := n / u.value
		n %= u.value
		if d == 0 {
			continue
		}
		if d > 1 {
			b.WriteRune(kanjiDigits[d])
		}
		b.WriteRune(u.glyph)
	}
	if n > 0 {
		b.WriteRune(kanjiDigits[n])
	}
}
