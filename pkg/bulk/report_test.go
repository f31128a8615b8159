package bulk

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/lawlink/pkg/extract"
)

func sampleReport() *Report {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := &Report{RunID: "run-1", DryRun: true, StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}
	r.add(&StatuteReport{
		ID: "penal", Name: "刑法", Articles: 3, Changed: 1, Edges: 2,
		Counts: extract.Counts{Links: 2, UnresolvedExternal: 1},
		Results: []ArticleResult{
			{Identity: "JPLAW:penal#main#20", Before: "前文\n第十九条\n", After: "前文\n[[laws/刑法/本文/第19条.md|第十九条]]\n"},
			{Identity: "JPLAW:penal#main#21", Before: "本文\n", After: "本文\n"},
		},
	})
	r.add(&StatuteReport{
		ID: "civil", Name: "民法", Articles: 2,
		Counts: extract.Counts{NoLink: 1},
		Failed: []Failure{{Identity: "JPLAW:civil#main#91", Error: "corrupt document"}},
		Error:  "writing edges: disk full",
	})
	return r
}

func TestReportTotals(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 5, r.Totals.Articles)
	assert.Equal(t, 1, r.Totals.Changed)
	assert.Equal(t, extract.Counts{Links: 2, UnresolvedExternal: 1, NoLink: 1}, r.Totals.Counts)
	require.Len(t, r.Failed, 2)
	assert.Equal(t, "JPLAW:civil", r.Failed[1].Identity)
}

func TestFormatReport(t *testing.T) {
	var buf bytes.Buffer
	FormatReport(&buf, sampleReport())
	out := buf.String()

	assert.Contains(t, out, "Link Report (dry run)")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "刑法")
	assert.Contains(t, out, "Redirected")
	assert.Contains(t, out, "[FAIL] JPLAW:civil#main#91: corrupt document")
	// Rows are sorted by statute name.
	assert.Less(t, strings.Index(out, "刑法"), strings.Index(out, "民法"))
}

func TestFormatReportJSON(t *testing.T) {
	out := FormatReportJSON(sampleReport())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	totals := decoded["totals"].(map[string]any)
	assert.Equal(t, float64(2), totals["links"])
	assert.Equal(t, float64(5), totals["articles"])
}

func TestFormatDiff(t *testing.T) {
	var buf bytes.Buffer
	FormatDiff(&buf, sampleReport())

	assert.Equal(t, "--- JPLAW:penal#main#20\n+++ JPLAW:penal#main#20\n"+
		"-第十九条\n+[[laws/刑法/本文/第19条.md|第十九条]]\n", buf.String())
}
