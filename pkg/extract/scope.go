package extract

// GoverningKind says which statute unqualified citations currently refer to.
type GoverningKind int

const (
	// GoverningNone means no statute has been named in the current scope.
	GoverningNone GoverningKind = iota
	// GoverningSelf means the article's own statute was named.
	GoverningSelf
	// GoverningStatute means another statute was named.
	GoverningStatute
	// GoverningAnaphoric means 同法 pointed back at a statute named in an
	// earlier sentence, which cannot be recovered.
	GoverningAnaphoric
)

// Governing is the statute context a citation is read in.
type Governing struct {
	Kind      GoverningKind
	Name      string
	LawNumber string
}

// Annotated is a candidate together with the scope it was read in. Epoch
// increases every time the scope is reset or changes statute.
type Annotated struct {
	Candidate
	Governing Governing
	Epoch     int
}

// ScopeTracker carries statute context from qualified citations to the
// unqualified ones that follow them.
type ScopeTracker struct {
	// Fragment enables clause-ending resets, used for amendment fragments
	// where every clause may concern a different statute.
	Fragment bool
}

// Annotate walks candidates and markers in text order. Markers before
// a candidate's start apply first. Paragraph breaks and anaphora always
// reset; clause endings reset only in fragment mode.
func (st ScopeTracker) Annotate(res *ScanResult) []Annotated {
	out := make([]Annotated, 0, len(res.Candidates))
	var gov Governing
	epoch := 0
	mi := 0

	reset := func() {
		gov = Governing{}
		epoch++
	}

	for _, c := range res.Candidates {
		for mi < len(res.Markers) && res.Markers[mi].Pos < c.Span.Start {
			m := res.Markers[mi]
			mi++
			if m.Kind == MarkerClause && !st.Fragment {
				continue
			}
			reset()
		}

		switch {
		case c.Anaphoric:
			if gov.Kind != GoverningAnaphoric {
				gov = Governing{Kind: GoverningAnaphoric}
				epoch++
			}
		case c.Kind == KindQualified:
			next := Governing{Kind: GoverningStatute, Name: c.StatuteName, LawNumber: c.LawNumber}
			if next != gov {
				gov = next
				epoch++
			}
		case c.Kind == KindSelf:
			if gov.Kind != GoverningSelf {
				gov = Governing{Kind: GoverningSelf}
				epoch++
			}
		}
		out = append(out, Annotated{Candidate: c, Governing: gov, Epoch: epoch})
	}
	return out
}
