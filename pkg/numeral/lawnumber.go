package numeral

import (
	"fmt"
	"regexp"
	"strings"
)

var eraCodes = map[string]string{
	"明治": "M",
	"大正": "T",
	"昭和": "S",
	"平成": "H",
	"令和": "R",
}

var codeEras = map[string]string{
	"M": "明治",
	"T": "大正",
	"S": "昭和",
	"H": "平成",
	"R": "令和",
}

var (
	lawNumberPattern = regexp.MustCompile(`(明治|大正|昭和|平成|令和)([元` + Class + `]+)年.*?法律第([` + Class + `]+)号`)
	lawKeyPattern    = regexp.MustCompile(`^([MTSHR])(\d+)_L(\d+)$`)
)

// NormalizeLawNumber turns a law number such as 平成一一年七月一六日法律第八七号
// into its key form H11_L87. Keys are returned unchanged.
func NormalizeLawNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if lawKeyPattern.MatchString(s) {
		return s, true
	}
	m := lawNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	year := 1
	if m[2] != "元" {
		var ok bool
		year, ok = ParseExact(m[2], Auto)
		if !ok {
			return "", false
		}
	}
	number, ok := ParseExact(m[3], Auto)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s%d_L%d", eraCodes[m[1]], year, number), true
}

// LawNumberTitle renders a key back into a title: H11_L87 becomes
// 平成11年法律第87号. Unknown input is returned as is.
func LawNumberTitle(key string) string {
	m := lawKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return key
	}
	return fmt.Sprintf("%s%s年法律第%s号", codeEras[m[1]], m[2], m[3])
}
