// Package linkcheck validates the wikilinks of a vault against the files
// that actually exist in it.
package linkcheck

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LinkStatus represents the validation status of a link.
type LinkStatus string

const (
	StatusValid   LinkStatus = "valid"
	StatusBroken  LinkStatus = "broken"
	StatusSkipped LinkStatus = "skipped"
)

// LinkResult captures the outcome of validating a single wikilink.
type LinkResult struct {
	Target    string     `json:"target"` // link target with alias, heading and block suffixes removed
	Raw       string     `json:"raw"`
	Status    LinkStatus `json:"status"`
	Source    string     `json:"source"` // vault-relative file containing the link
	Line      int        `json:"line"`
	Statute   string     `json:"statute,omitempty"`
	ResolveTo string     `json:"resolved_to,omitempty"`
}

// IsSuccess returns true if the link target exists.
func (r *LinkResult) IsSuccess() bool {
	return r.Status == StatusValid
}

// Config holds configuration for a vault check.
type Config struct {
	// Prefix limits checking to targets starting with it, such as "laws/".
	// Other links are reported as skipped.
	Prefix string `json:"prefix"`

	// Concurrency is the number of files scanned at once.
	Concurrency int `json:"concurrency"`

	// CacheSize bounds the existence cache.
	CacheSize int `json:"cache_size"`

	// CacheTTL is the time-to-live for cached existence checks.
	CacheTTL time.Duration `json:"cache_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 8,
		CacheSize:   65536,
		CacheTTL:    time.Minute,
	}
}

// Report is the complete report of a vault check.
type Report struct {
	TotalLinks   int `json:"total_links"`
	ValidLinks   int `json:"valid_links"`
	BrokenLinks  int `json:"broken_links"`
	SkippedLinks int `json:"skipped_links"`
	Files        int `json:"files"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	// StatuteStats groups results by the statute directory of the target.
	StatuteStats map[string]*StatuteStats `json:"statute_stats"`

	Broken []*LinkResult `json:"broken"`
}

// StatuteStats holds statistics for links into one statute.
type StatuteStats struct {
	Statute string `json:"statute"`
	Total   int    `json:"total"`
	Valid   int    `json:"valid"`
	Broken  int    `json:"broken"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		StatuteStats: make(map[string]*StatuteStats),
		Broken:       make([]*LinkResult, 0),
	}
}

// AddResult adds a link result to the report and updates statistics.
func (r *Report) AddResult(result *LinkResult) {
	r.TotalLinks++
	switch result.Status {
	case StatusValid:
		r.ValidLinks++
	case StatusBroken:
		r.BrokenLinks++
		r.Broken = append(r.Broken, result)
	case StatusSkipped:
		r.SkippedLinks++
		return
	}

	if result.Statute == "" {
		return
	}
	stats, ok := r.StatuteStats[result.Statute]
	if !ok {
		stats = &StatuteStats{Statute: result.Statute}
		r.StatuteStats[result.Statute] = stats
	}
	stats.Total++
	if result.Status == StatusValid {
		stats.Valid++
	} else {
		stats.Broken++
	}
}

// Finalize completes the report with timing information.
func (r *Report) Finalize() {
	r.CompletedAt = time.Now()
	r.DurationMs = r.CompletedAt.Sub(r.StartedAt).Milliseconds()
	sort.Slice(r.Broken, func(i, j int) bool {
		if r.Broken[i].Source != r.Broken[j].Source {
			return r.Broken[i].Source < r.Broken[j].Source
		}
		return r.Broken[i].Line < r.Broken[j].Line
	})
}

// OK reports whether no link is broken.
func (r *Report) OK() bool {
	return r.BrokenLinks == 0
}

// ToJSON serializes the report to JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToMarkdown generates a Markdown formatted report.
func (r *Report) ToMarkdown() string {
	var b strings.Builder

	b.WriteString("# Link Check Report\n\n")
	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("- **Files**: %d\n", r.Files))
	b.WriteString(fmt.Sprintf("- **Total Links**: %d\n", r.TotalLinks))
	b.WriteString(fmt.Sprintf("- **Valid Links**: %d\n", r.ValidLinks))
	b.WriteString(fmt.Sprintf("- **Broken Links**: %d\n", r.BrokenLinks))
	b.WriteString(fmt.Sprintf("- **Skipped Links**: %d\n", r.SkippedLinks))
	b.WriteString(fmt.Sprintf("- **Duration**: %dms\n\n", r.DurationMs))

	if len(r.StatuteStats) > 0 {
		b.WriteString("## Statutes\n\n")
		b.WriteString("| Statute | Total | Valid | Broken |\n")
		b.WriteString("|---------|-------|-------|--------|\n")
		names := make([]string, 0, len(r.StatuteStats))
		for name := range r.StatuteStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := r.StatuteStats[name]
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n", name, s.Total, s.Valid, s.Broken))
		}
		b.WriteString("\n")
	}

	if len(r.Broken) > 0 {
		b.WriteString("## Broken Links\n\n")
		b.WriteString("| Source | Line | Target |\n")
		b.WriteString("|--------|------|--------|\n")
		for _, l := range r.Broken {
			b.WriteString(fmt.Sprintf("| %s | %d | %s |\n", l.Source, l.Line, l.Target))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// String returns a human-readable summary of the report.
func (r *Report) String() string {
	var b strings.Builder

	b.WriteString("Link Check Report\n")
	b.WriteString("=================\n\n")
	b.WriteString(fmt.Sprintf("Files:    %d\n", r.Files))
	b.WriteString(fmt.Sprintf("Links:    %d\n", r.TotalLinks))
	b.WriteString(fmt.Sprintf("Valid:    %d\n", r.ValidLinks))
	b.WriteString(fmt.Sprintf("Broken:   %d\n", r.BrokenLinks))
	b.WriteString(fmt.Sprintf("Skipped:  %d\n", r.SkippedLinks))
	b.WriteString(fmt.Sprintf("Duration: %dms\n", r.DurationMs))

	if len(r.Broken) > 0 {
		b.WriteString(fmt.Sprintf("\nBroken links (%d):\n", len(r.Broken)))
		for _, l := range r.Broken {
			b.WriteString(fmt.Sprintf("  - %s:%d: %s\n", l.Source, l.Line, l.Target))
		}
	}
	return b.String()
}

// statuteOf returns the statute directory of a laws/<name>/... target.
func statuteOf(target string) string {
	rest, ok := strings.CutPrefix(target, "laws/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}
