// Package bulk runs the citation linker over whole statutes, in parallel
// across statutes and sequentially within one.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/lawlink/pkg/extract"
	"github.com/coolbeans/lawlink/pkg/library"
	"github.com/coolbeans/lawlink/pkg/numeral"
	"github.com/coolbeans/lawlink/pkg/store"
	"github.com/coolbeans/lawlink/pkg/types"
)

// DefaultWorkers is the statute concurrency used when none is configured.
const DefaultWorkers = 4

// DocumentStore is the part of the library a run reads and writes.
type DocumentStore interface {
	Statute(id string) (library.StatuteEntry, bool)
	List(statuteID string) (*library.Listing, error)
	Read(id types.ArticleIdentity) (*library.Document, error)
	Write(id types.ArticleIdentity, doc *library.Document) error
}

// PendingWriter replaces a statute's pending log.
type PendingWriter interface {
	Replace(statuteID string, entries []store.PendingEntry) error
}

// Options configures a Runner.
type Options struct {
	Workers int
	// DryRun performs no writes. The report then carries every article's
	// rewritten text and edges.
	DryRun bool
}

// Runner applies a Linker to statutes in a document store.
type Runner struct {
	docs    DocumentStore
	linker  *extract.Linker
	sink    store.EdgeSink
	pending PendingWriter
	logger  *slog.Logger
	opts    Options
	now     func() time.Time
}

// NewRunner creates a runner. A nil sink or pending writer disables that
// output.
func NewRunner(docs DocumentStore, linker *extract.Linker, sink store.EdgeSink, pending PendingWriter, logger *slog.Logger, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if sink == nil {
		sink = store.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		docs:    docs,
		linker:  linker,
		sink:    sink,
		pending: pending,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// Run processes every statute in statuteIDs. Failures of single articles or
// statutes are recorded in the report; only cancellation returns an error.
func (r *Runner) Run(ctx context.Context, statuteIDs []string) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		DryRun:    r.opts.DryRun,
		StartedAt: r.now(),
	}
	logger := r.logger.With("run_id", report.RunID)
	logger.Info("link run started", "statutes", len(statuteIDs), "workers", r.opts.Workers, "dry_run", r.opts.DryRun)

	results := make([]*StatuteReport, len(statuteIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.opts.Workers)
	for i, id := range statuteIDs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = r.runStatute(egCtx, logger.With("statute", id), id)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, sr := range results {
		report.add(sr)
	}
	report.FinishedAt = r.now()
	logger.Info("link run finished",
		"links", report.Totals.Links,
		"redirected", report.Totals.Redirected,
		"unresolved_external", report.Totals.UnresolvedExternal,
		"failed", len(report.Failed),
		"elapsed", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

func (r *Runner) runStatute(ctx context.Context, logger *slog.Logger, id string) *StatuteReport {
	sr := &StatuteReport{ID: id}
	entry, ok := r.docs.Statute(id)
	if !ok {
		sr.Error = fmt.Sprintf("statute %q: %v", id, library.ErrNotFound)
		return sr
	}
	sr.Name = entry.Name

	listing, err := r.docs.List(id)
	if err != nil {
		sr.Error = err.Error()
		logger.Error("listing statute failed", "error", err)
		return sr
	}

	var edges []types.Edge
	var pending []store.PendingEntry
	for _, ref := range listing.Articles {
		if ctx.Err() != nil {
			sr.Error = ctx.Err().Error()
			return sr
		}
		res, entries, err := r.runArticle(ref.Identity, sr)
		if err != nil {
			sr.fail(ref.Identity, err)
			logger.Warn("article failed", "article", ref.Identity.NodeID(), "error", err)
			continue
		}
		edges = append(edges, res.Edges...)
		pending = append(pending, entries...)
	}
	sr.Edges = len(edges)
	sr.edges = edges

	if r.opts.DryRun {
		return sr
	}
	if err := r.sink.ReplaceStatute(ctx, id, edges); err != nil {
		sr.Error = fmt.Sprintf("writing edges: %v", err)
		logger.Error("writing edges failed", "error", err)
		return sr
	}
	if r.pending != nil {
		if err := r.pending.Replace(id, pending); err != nil {
			sr.Error = fmt.Sprintf("writing pending links: %v", err)
			logger.Error("writing pending links failed", "error", err)
		}
	}
	logger.Debug("statute linked", "articles", sr.Articles, "changed", sr.Changed, "edges", sr.Edges)
	return sr
}

func (r *Runner) runArticle(id types.ArticleIdentity, sr *StatuteReport) (*extract.Result, []store.PendingEntry, error) {
	doc, err := r.docs.Read(id)
	if err != nil {
		return nil, nil, err
	}
	src := extract.Source{
		Identity: id,
		Fragment: id.Part == types.PartAmendment || doc.Frontmatter.IsAmendmentFragment(),
	}
	res := r.linker.Link(src, doc.Body)

	if res.Changed && !r.opts.DryRun {
		if err := r.docs.Write(id, doc.WithBody(res.Text)); err != nil {
			return nil, nil, fmt.Errorf("writing article: %w", err)
		}
	}

	sr.Articles++
	sr.Counts.Add(res.Counts)
	if res.Changed {
		sr.Changed++
	}
	if r.opts.DryRun {
		sr.Results = append(sr.Results, ArticleResult{
			Identity: id.NodeID(),
			Before:   doc.Body,
			After:    res.Text,
			Edges:    res.Edges,
		})
	}
	return res, r.pendingEntries(id, res.Decisions), nil
}

// pendingEntries lists the decisions worth retrying after the corpus grows.
func (r *Runner) pendingEntries(id types.ArticleIdentity, decisions []extract.Decision) []store.PendingEntry {
	var entries []store.PendingEntry
	for _, d := range decisions {
		if d.Outcome != extract.OutcomeExternalUnresolved && d.Reason != extract.ReasonMissingArticle {
			continue
		}
		c := d.Candidate
		// External statutes have no target; relative citations have no
		// candidate number.
		article := numeral.FormatArticleLabel(c.Number, c.Sub)
		if d.Target.Valid() {
			article = d.Target.Label()
		}
		entries = append(entries, store.PendingEntry{
			Source:      id.NodeID(),
			StatuteName: c.Governing.Name,
			Article:     article,
			Surface:     c.Raw,
			Reason:      d.Reason,
			RecordedAt:  r.now().UTC(),
		})
	}
	return entries
}
