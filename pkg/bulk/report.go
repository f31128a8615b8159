package bulk

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/coolbeans/lawlink/pkg/extract"
	"github.com/coolbeans/lawlink/pkg/types"
)

// Report summarizes one link run.
type Report struct {
	RunID      string           `json:"run_id"`
	DryRun     bool             `json:"dry_run"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Statutes   []*StatuteReport `json:"statutes"`
	Totals     Totals           `json:"totals"`
	Failed     []Failure        `json:"failed,omitempty"`
}

// Totals sums the statute reports.
type Totals struct {
	Articles int `json:"articles"`
	Changed  int `json:"changed"`
	Edges    int `json:"edges"`
	extract.Counts
}

// StatuteReport holds the outcome for one statute.
type StatuteReport struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Articles int    `json:"articles"`
	Changed  int    `json:"changed"`
	Edges    int    `json:"edges"`
	extract.Counts
	Failed []Failure `json:"failed,omitempty"`
	// Error is set when the statute as a whole failed, for example when
	// its edges could not be stored.
	Error   string          `json:"error,omitempty"`
	Results []ArticleResult `json:"results,omitempty"`

	edges []types.Edge
}

// Failure names an article that could not be processed.
type Failure struct {
	Identity string `json:"identity"`
	Error    string `json:"error"`
}

// ArticleResult is the in-memory outcome for one article of a dry run.
type ArticleResult struct {
	Identity string       `json:"identity"`
	Before   string       `json:"-"`
	After    string       `json:"text"`
	Edges    []types.Edge `json:"-"`
}

// Changed reports whether the article text would be rewritten.
func (a ArticleResult) Changed() bool {
	return a.Before != a.After
}

func (s *StatuteReport) fail(id types.ArticleIdentity, err error) {
	s.Failed = append(s.Failed, Failure{Identity: id.NodeID(), Error: err.Error()})
}

// EdgeList returns every edge produced for the statute in article order.
func (s *StatuteReport) EdgeList() []types.Edge {
	return s.edges
}

func (r *Report) add(s *StatuteReport) {
	if s == nil {
		return
	}
	r.Statutes = append(r.Statutes, s)
	r.Totals.Articles += s.Articles
	r.Totals.Changed += s.Changed
	r.Totals.Edges += s.Edges
	r.Totals.Counts.Add(s.Counts)
	r.Failed = append(r.Failed, s.Failed...)
	if s.Error != "" {
		r.Failed = append(r.Failed, Failure{Identity: "JPLAW:" + s.ID, Error: s.Error})
	}
}

// Statute returns the report for statuteID.
func (r *Report) Statute(statuteID string) (*StatuteReport, bool) {
	for _, s := range r.Statutes {
		if s.ID == statuteID {
			return s, true
		}
	}
	return nil, false
}

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))

// FormatReport writes a terminal table of the run.
func FormatReport(w io.Writer, report *Report) {
	title := "Link Report"
	if report.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintf(w, "Run %s, %s\n", report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(w, strings.Repeat("═", 60))

	statutes := append([]*StatuteReport(nil), report.Statutes...)
	sort.Slice(statutes, func(i, j int) bool { return statutes[i].Name < statutes[j].Name })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Statute", "Articles", "Changed", "Links", "Redirected", "External", "No link", "Failed"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})
	for _, s := range statutes {
		failed := len(s.Failed)
		if s.Error != "" {
			failed++
		}
		table.Append([]string{
			s.Name,
			strconv.Itoa(s.Articles),
			strconv.Itoa(s.Changed),
			strconv.Itoa(s.Links),
			strconv.Itoa(s.Redirected),
			strconv.Itoa(s.UnresolvedExternal),
			strconv.Itoa(s.NoLink),
			strconv.Itoa(failed),
		})
	}
	t := report.Totals
	table.SetFooter([]string{
		"Total",
		strconv.Itoa(t.Articles),
		strconv.Itoa(t.Changed),
		strconv.Itoa(t.Links),
		strconv.Itoa(t.Redirected),
		strconv.Itoa(t.UnresolvedExternal),
		strconv.Itoa(t.NoLink),
		strconv.Itoa(len(report.Failed)),
	})
	table.Render()

	if len(report.Failed) > 0 {
		fmt.Fprintln(w, strings.Repeat("─", 60))
		for _, f := range report.Failed {
			fmt.Fprintf(w, "  [FAIL] %s: %s\n", f.Identity, f.Error)
		}
	}
}

// FormatReportJSON formats a Report as JSON.
func FormatReportJSON(report *Report) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// FormatDiff writes the lines a dry run would change. Rewriting never
// adds or removes lines, so lines are compared by position.
func FormatDiff(w io.Writer, report *Report) {
	for _, s := range report.Statutes {
		for _, a := range s.Results {
			if !a.Changed() {
				continue
			}
			fmt.Fprintf(w, "--- %s\n+++ %s\n", a.Identity, a.Identity)
			before := strings.Split(a.Before, "\n")
			after := strings.Split(a.After, "\n")
			for i := range before {
				if i < len(after) && before[i] == after[i] {
					continue
				}
				fmt.Fprintf(w, "-%s\n", before[i])
				if i < len(after) {
					fmt.Fprintf(w, "+%s\n", after[i])
				}
			}
		}
	}
}
