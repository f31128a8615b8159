// Package types provides the core domain types for statute citations.
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coolbeans/lawlink/pkg/numeral"
)

// Part identifies which body of a statute an article belongs to.
type Part string

const (
	PartMain      Part = "main"
	PartSuppl     Part = "suppl"
	PartAmendment Part = "amendment"
)

// ArticleIdentity addresses one article document in the corpus. It is
// comparable and compared structurally; two identities are the same article
// exactly when all fields match.
type ArticleIdentity struct {
	StatuteID string
	Part      Part
	Number    int
	Sub       int // 0 when the article has no sub-number

	// AmendmentKey is the normalized amending-law key (H11_L87) for
	// amendment fragments and empty otherwise.
	AmendmentKey string
}

// Valid reports whether the identity can name a document.
func (a ArticleIdentity) Valid() bool {
	if a.StatuteID == "" || a.Number <= 0 || a.Sub < 0 {
		return false
	}
	if a.Part == PartAmendment {
		return a.AmendmentKey != ""
	}
	return a.Part == PartMain || a.Part == PartSuppl
}

// Label returns the file-name label, 第19条の2 or 附則第3条.
func (a ArticleIdentity) Label() string {
	label := numeral.FormatArticleLabel(a.Number, a.Sub)
	if a.Part != PartMain {
		return "附則" + label
	}
	return label
}

// NodeID returns the graph node id: JPLAW:<statute>#main#19_2. Supplementary
// articles use #suppl#, amendment fragments #suppl#<key>#.
func (a ArticleIdentity) NodeID() string {
	num := strconv.Itoa(a.Number)
	if a.Sub > 0 {
		num += "_" + strconv.Itoa(a.Sub)
	}
	switch a.Part {
	case PartSuppl:
		return fmt.Sprintf("JPLAW:%s#suppl#%s", a.StatuteID, num)
	case PartAmendment:
		return fmt.Sprintf("JPLAW:%s#suppl#%s#%s", a.StatuteID, a.AmendmentKey, num)
	default:
		return fmt.Sprintf("JPLAW:%s#main#%s", a.StatuteID, num)
	}
}

// String implements fmt.Stringer.
func (a ArticleIdentity) String() string {
	return a.NodeID()
}

// ParseNodeID parses the output of NodeID. Range node ids are rejected.
func ParseNodeID(id string) (ArticleIdentity, error) {
	rest, ok := strings.CutPrefix(id, "JPLAW:")
	if !ok {
		return ArticleIdentity{}, fmt.Errorf("node id %q: missing JPLAW prefix", id)
	}
	fields := strings.Split(rest, "#")
	var a ArticleIdentity
	var num string
	switch {
	case len(fields) == 3 && fields[1] == "main":
		a = ArticleIdentity{StatuteID: fields[0], Part: PartMain}
		num = fields[2]
	case len(fields) == 3 && fields[1] == "suppl":
		a = ArticleIdentity{StatuteID: fields[0], Part: PartSuppl}
		num = fields[2]
	case len(fields) == 4 && fields[1] == "suppl":
		a = ArticleIdentity{StatuteID: fields[0], Part: PartAmendment, AmendmentKey: fields[2]}
		num = fields[3]
	default:
		return ArticleIdentity{}, fmt.Errorf("node id %q: unrecognized layout", id)
	}

	mainText, subText, hasSub := strings.Cut(num, "_")
	n, err := strconv.Atoi(mainText)
	if err != nil {
		return ArticleIdentity{}, fmt.Errorf("node id %q: article number: %w", id, err)
	}
	a.Number = n
	if hasSub {
		s, err := strconv.Atoi(subText)
		if err != nil {
			return ArticleIdentity{}, fmt.Errorf("node id %q: sub number: %w", id, err)
		}
		a.Sub = s
	}
	if !a.Valid() {
		return ArticleIdentity{}, fmt.Errorf("node id %q: invalid identity", id)
	}
	return a, nil
}

// RangeIdentity addresses a deleted-range node standing in for articles
// From..To that were repealed.
type RangeIdentity struct {
	StatuteID string
	Part      Part
	From      int
	To        int
}

// Covers reports whether number falls inside the range.
func (r RangeIdentity) Covers(number int) bool {
	return number >= r.From && number <= r.To
}

// Label returns 第73条から第76条まで.
func (r RangeIdentity) Label() string {
	label := numeral.FormatRangeLabel(r.From, r.To)
	if r.Part != PartMain {
		return "附則" + label
	}
	return label
}

// NodeID returns JPLAW:<statute>#main#73:76.
func (r RangeIdentity) NodeID() string {
	part := "main"
	if r.Part != PartMain {
		part = "suppl"
	}
	return fmt.Sprintf("JPLAW:%s#%s#%d:%d", r.StatuteID, part, r.From, r.To)
}

// Statute is one named body of law.
type Statute struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Aliases       []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	ExternalProne bool     `yaml:"external_prone,omitempty" json:"external_prone,omitempty"`
}

// Names returns the canonical name followed by the aliases.
func (s Statute) Names() []string {
	names := make([]string, 0, 1+len(s.Aliases))
	if s.Name != "" {
		names = append(names, s.Name)
	}
	return append(names, s.Aliases...)
}
