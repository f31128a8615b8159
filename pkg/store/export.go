package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/coolbeans/lawlink/pkg/numeral"
)

// GraphNode represents a node in the graph visualization.
type GraphNode struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Type    string `json:"type"`
	Statute string `json:"statute"`
}

// GraphEdge represents an edge in the graph visualization.
type GraphEdge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Evidence   string  `json:"evidence,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// GraphExport represents the complete citation graph.
type GraphExport struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
	Stats GraphStats  `json:"stats"`
}

// GraphStats contains summary statistics for the graph.
type GraphStats struct {
	TotalNodes     int            `json:"total_nodes"`
	TotalEdges     int            `json:"total_edges"`
	NodesByType    map[string]int `json:"nodes_by_type"`
	EdgesByType    map[string]int `json:"edges_by_type"`
	CrossStatute   int            `json:"cross_statute"`
	MostReferenced []NodeRefCount `json:"most_referenced,omitempty"`
}

// NodeRefCount holds the incoming edge count of a node.
type NodeRefCount struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

const mostReferencedLimit = 10

// ExportGraph builds a graph from stored edge records. Nodes are listed in
// first-seen order.
func ExportGraph(records []EdgeRecord) *GraphExport {
	export := &GraphExport{
		Nodes: make([]GraphNode, 0),
		Edges: make([]GraphEdge, 0, len(records)),
		Stats: GraphStats{
			NodesByType: make(map[string]int),
			EdgesByType: make(map[string]int),
		},
	}

	seen := make(map[string]bool)
	incoming := make(map[string]int)
	addNode := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		node := createNode(id)
		export.Nodes = append(export.Nodes, node)
		export.Stats.NodesByType[node.Type]++
	}

	for _, r := range records {
		addNode(r.Source)
		addNode(r.Target)
		export.Edges = append(export.Edges, GraphEdge{
			Source:     r.Source,
			Target:     r.Target,
			Type:       r.Type,
			Evidence:   r.Evidence,
			Confidence: r.Confidence,
		})
		export.Stats.EdgesByType[r.Type]++
		incoming[r.Target]++
		if statuteOf(r.Source) != statuteOf(r.Target) {
			export.Stats.CrossStatute++
		}
	}

	export.Stats.TotalNodes = len(export.Nodes)
	export.Stats.TotalEdges = len(export.Edges)
	export.Stats.MostReferenced = topReferenced(incoming, mostReferencedLimit)
	return export
}

// createNode derives a node from a JPLAW node id.
func createNode(id string) GraphNode {
	fields := strings.Split(strings.TrimPrefix(id, "JPLAW:"), "#")
	node := GraphNode{ID: id, Label: id, Type: "Node", Statute: fields[0]}
	if len(fields) < 3 {
		return node
	}

	num := fields[len(fields)-1]
	switch {
	case strings.Contains(num, ":"):
		node.Type = "DeletedRange"
		from, to, _ := strings.Cut(num, ":")
		node.Label = fmt.Sprintf("第%s条から第%s条まで", from, to)
	case len(fields) == 4:
		node.Type = "AmendmentArticle"
		node.Label = fields[2] + " 附則" + articleLabel(num)
	case fields[1] == "suppl":
		node.Type = "SupplementaryArticle"
		node.Label = "附則" + articleLabel(num)
	default:
		node.Type = "Article"
		node.Label = articleLabel(num)
	}
	return node
}

// articleLabel turns the node id suffix 19_2 into 第19条の2.
func articleLabel(num string) string {
	mainText, subText, _ := strings.Cut(num, "_")
	main, _ := strconv.Atoi(mainText)
	sub, _ := strconv.Atoi(subText)
	if label := numeral.FormatArticleLabel(main, sub); label != "" {
		return label
	}
	return num
}

func statuteOf(id string) string {
	s := strings.TrimPrefix(id, "JPLAW:")
	if i := strings.Index(s, "#"); i >= 0 {
		return s[:i]
	}
	return s
}

func topReferenced(incoming map[string]int, limit int) []NodeRefCount {
	counts := make([]NodeRefCount, 0, len(incoming))
	for id, n := range incoming {
		counts = append(counts, NodeRefCount{ID: id, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ID < counts[j].ID
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

// ToJSON serializes the graph export to JSON.
func (g *GraphExport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// ToDOT exports the graph in DOT format for Graphviz.
func (g *GraphExport) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph CitationGraph {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box];\n\n")

	typeColors := map[string]string{
		"Article":              "lightblue",
		"SupplementaryArticle": "lightyellow",
		"AmendmentArticle":     "lavender",
		"DeletedRange":         "lightgray",
	}

	for _, node := range g.Nodes {
		color := typeColors[node.Type]
		if color == "" {
			color = "white"
		}
		label := strings.ReplaceAll(node.Label, "\"", "\\\"")
		sb.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\" style=filled fillcolor=%s];\n",
			node.ID, label, color))
	}

	sb.WriteString("\n")

	for _, edge := range g.Edges {
		style := "solid"
		if strings.HasSuffix(edge.Type, "_range") {
			style = "dashed"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [style=%s];\n", edge.Source, edge.Target, style))
	}

	sb.WriteString("}\n")
	return sb.String()
}
