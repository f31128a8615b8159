package types

// ExtractorVersion tags every edge produced by the citation linker.
const ExtractorVersion = "regex_v2"

// Relation types carried on edges.
const (
	RelationRefersTo      = "refers_to"
	RelationRefersToRange = "refers_to_range"
)

// Edge is one citation from a source article to a target node.
type Edge struct {
	Source ArticleIdentity
	// Target is set for article links; TargetRange for redirects.
	Target      ArticleIdentity
	TargetRange *RangeIdentity

	Relation         string
	Evidence         string
	Confidence       float64
	ExtractorVersion string
}

// TargetID returns the node id of whichever target the edge carries.
func (e Edge) TargetID() string {
	if e.TargetRange != nil {
		return e.TargetRange.NodeID()
	}
	return e.Target.NodeID()
}

// TargetStatuteID returns the statute id of the edge target.
func (e Edge) TargetStatuteID() string {
	if e.TargetRange != nil {
		return e.TargetRange.StatuteID
	}
	return e.Target.StatuteID
}
