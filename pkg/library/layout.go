package library

import (
	"path"
	"strings"

	"github.com/coolbeans/lawlink/pkg/numeral"
	"github.com/coolbeans/lawlink/pkg/types"
)

// Vault layout:
//
//	laws/<name>/<name>.md                      statute node
//	laws/<name>/本文/第N条[のM].md              main articles
//	laws/<name>/本文/第N条から第M条まで.md       deleted ranges
//	laws/<name>/附則/附則第N条.md               supplementary provisions
//	laws/<name>/附則/改正法/<key>/附則第N条.md   amendment fragments
const (
	LawsDir      = "laws"
	MainDir      = "本文"
	SupplDir     = "附則"
	AmendmentDir = "改正法"

	supplPrefix = "附則"
	markdownExt = ".md"
)

// StatuteDir returns the vault-relative directory of a statute.
func StatuteDir(name string) string {
	return path.Join(LawsDir, name)
}

// ArticlePath returns the vault-relative path of an article document.
func ArticlePath(statuteName string, id types.ArticleIdentity) string {
	file := numeral.FormatArticleLabel(id.Number, id.Sub) + markdownExt
	switch id.Part {
	case types.PartSuppl:
		return path.Join(LawsDir, statuteName, SupplDir, supplPrefix+file)
	case types.PartAmendment:
		return path.Join(LawsDir, statuteName, SupplDir, AmendmentDir, id.AmendmentKey, supplPrefix+file)
	default:
		return path.Join(LawsDir, statuteName, MainDir, file)
	}
}

// RangePath returns the vault-relative path of a deleted-range node.
func RangePath(statuteName string, r types.RangeIdentity) string {
	file := numeral.FormatRangeLabel(r.From, r.To) + markdownExt
	if r.Part == types.PartSuppl {
		return path.Join(LawsDir, statuteName, SupplDir, supplPrefix+file)
	}
	return path.Join(LawsDir, statuteName, MainDir, file)
}

// fileKind classifies a file name inside a part directory.
type fileKind int

const (
	fileOther fileKind = iota
	fileArticle
	fileRange
)

type parsedFile struct {
	kind     fileKind
	main     int
	sub      int
	from, to int
}

// parseArticleFile interprets 第19条の2.md, 附則第3条.md and the range
// forms 第38条から第84条まで.md and 第38:84条.md. supplementary selects
// whether the 附則 prefix is expected.
func parseArticleFile(name string, supplementary bool) parsedFile {
	stem, ok := strings.CutSuffix(name, markdownExt)
	if !ok {
		return parsedFile{}
	}
	if supplementary {
		if stem, ok = strings.CutPrefix(stem, supplPrefix); !ok {
			return parsedFile{}
		}
	} else if strings.HasPrefix(stem, supplPrefix) {
		return parsedFile{}
	}

	if from, to, ok := numeral.ParseRangeLabel(stem); ok {
		return parsedFile{kind: fileRange, from: from, to: to}
	}
	if main, sub, ok := numeral.ParseArticleLabel(stem); ok {
		return parsedFile{kind: fileArticle, main: main, sub: sub}
	}
	return parsedFile{}
}

// amendmentKey normalizes an amendment directory name. Older vaults used
// the raw law number title as the directory name.
func amendmentKey(dir string) string {
	if key, ok := numeral.NormalizeLawNumber(dir); ok {
		return key
	}
	return dir
}
