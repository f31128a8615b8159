package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/coolbeans/lawlink/pkg/bulk"
	"github.com/coolbeans/lawlink/pkg/catalog"
	"github.com/coolbeans/lawlink/pkg/config"
	"github.com/coolbeans/lawlink/pkg/corpus"
	"github.com/coolbeans/lawlink/pkg/extract"
	"github.com/coolbeans/lawlink/pkg/library"
	"github.com/coolbeans/lawlink/pkg/linkcheck"
	"github.com/coolbeans/lawlink/pkg/numeral"
	"github.com/coolbeans/lawlink/pkg/store"
	"github.com/coolbeans/lawlink/pkg/types"
)

var version = "0.1.0"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lawlink",
		Short: "Cross-reference linker for Japanese statutes",
		Long: `Lawlink finds article citations in a markdown vault of Japanese statutes
and turns them into wikilinks and citation edges.

Citations are resolved against the articles that actually exist:
  - bare, qualified, self-referential and relative citations
  - enumerations and ranges, expanded member by member
  - repealed articles redirected to their deleted-range node
  - statutes outside the vault left as plain text`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "config file (default lawlink.yaml if present)")
	rootCmd.PersistentFlags().String("vault", "", "vault root directory")
	rootCmd.PersistentFlags().String("catalog", "", "catalog YAML file or directory merged over the built-in catalog")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(graphCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("error:"), err)
		os.Exit(1)
	}
}

// app is the state shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *library.Store
	catalog *catalog.Catalog
}

func setup(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("vault"); v != "" {
		cfg.Vault = v
	}
	if c, _ := cmd.Flags().GetString("catalog"); c != "" {
		cfg.Catalog = c
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.Log.Level = l
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}
	st, err := library.Open(cfg.Vault, cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: st, catalog: cat}, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	base := catalog.Default()
	if path == "" {
		return base, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	var extra *catalog.Catalog
	if info.IsDir() {
		extra, err = catalog.LoadDir(path)
	} else {
		extra, err = catalog.Load(path)
	}
	if err != nil {
		return nil, err
	}
	return base.Merge(extra)
}

// linker builds the corpus index and a linker over it.
func (a *app) linker(cat *catalog.Catalog) (*extract.Linker, *corpus.Index, error) {
	idx, err := corpus.Build(a.store, cat)
	if err != nil {
		return nil, nil, fmt.Errorf("building index: %w", err)
	}
	return extract.NewLinker(idx, cat), idx, nil
}

// statuteIDs maps --law values, given as names or ids, to statute ids.
// No values means every statute in the vault.
func (a *app) statuteIDs(laws []string) ([]string, error) {
	if len(laws) == 0 {
		return a.store.ListStatuteIDs(), nil
	}
	ids := make([]string, 0, len(laws))
	for _, law := range laws {
		if entry, ok := a.store.StatuteByName(law); ok {
			ids = append(ids, entry.ID)
			continue
		}
		if entry, ok := a.store.Statute(law); ok {
			ids = append(ids, entry.ID)
			continue
		}
		if s, ok := a.catalog.Lookup(law); ok {
			if entry, ok := a.store.Statute(s.ID); ok {
				ids = append(ids, entry.ID)
				continue
			}
		}
		return nil, fmt.Errorf("statute %q is not in the vault", law)
	}
	return ids, nil
}

// sinks opens the configured edge stores. JSONL files in the vault are
// always written.
func (a *app) sinks(ctx context.Context) (store.EdgeSink, error) {
	schema, err := store.ParseSchema(a.cfg.EdgeSchema)
	if err != nil {
		return nil, err
	}
	sinks := store.MultiSink{store.NewJSONLSink(a.store, schema)}
	if a.cfg.Neo4j.Enabled() {
		neo, err := store.NewNeo4jSink(ctx, store.Neo4jConfig{
			URI:      a.cfg.Neo4j.URI,
			User:     a.cfg.Neo4j.User,
			Password: a.cfg.Neo4j.Password,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, neo)
	}
	if a.cfg.Postgres.Enabled() {
		pg, err := store.NewPostgresSink(ctx, a.cfg.Postgres.URL)
		if err != nil {
			_ = sinks.Close(ctx)
			return nil, err
		}
		sinks = append(sinks, pg)
	}
	return sinks, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link citations in the vault and store citation edges",
		Long: `Rewrite article citations into wikilinks and replace each statute's
citation edges.

Example:
  lawlink link --vault ./vault
  lawlink link --law 刑法 --law 民法 --dry-run --diff
  lawlink link --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			laws, _ := cmd.Flags().GetStringArray("law")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			workers, _ := cmd.Flags().GetInt("workers")
			format, _ := cmd.Flags().GetString("format")
			diff, _ := cmd.Flags().GetBool("diff")

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = a.cfg.Workers
			}
			// A diff needs the unwritten text.
			dryRun = dryRun || diff

			ctx, stop := signalContext()
			defer stop()

			report, err := a.runLink(ctx, a.catalog, laws, bulk.Options{Workers: workers, DryRun: dryRun})
			if err != nil {
				return err
			}

			switch format {
			case "json":
				fmt.Println(bulk.FormatReportJSON(report))
			case "table", "":
				bulk.FormatReport(os.Stdout, report)
			default:
				return fmt.Errorf("unknown format %q (use table or json)", format)
			}
			if diff {
				bulk.FormatDiff(os.Stdout, report)
			}
			if n := len(report.Failed); n > 0 {
				return fmt.Errorf("%d failures", n)
			}
			return nil
		},
	}
	cmd.Flags().StringArray("law", nil, "statute name or id to link (repeatable, default all)")
	cmd.Flags().Bool("dry-run", false, "compute links and edges without writing anything")
	cmd.Flags().Int("workers", 0, "statutes processed in parallel (default from config)")
	cmd.Flags().String("format", "table", "output format: table or json")
	cmd.Flags().Bool("diff", false, "print changed lines (implies --dry-run)")
	return cmd
}

func (a *app) runLink(ctx context.Context, cat *catalog.Catalog, laws []string, opts bulk.Options) (*bulk.Report, error) {
	linker, _, err := a.linker(cat)
	if err != nil {
		return nil, err
	}
	ids, err := a.statuteIDs(laws)
	if err != nil {
		return nil, err
	}

	var sink store.EdgeSink = store.Discard{}
	if !opts.DryRun {
		sink, err = a.sinks(ctx)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := sink.Close(context.Background()); err != nil {
				a.logger.Warn("closing edge stores failed", "error", err)
			}
		}()
	}
	runner := bulk.NewRunner(a.store, linker, sink, store.NewPendingLog(a.store), a.logger, opts)
	return runner.Run(ctx, ids)
}

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Show how a text's citations are read and resolved",
		Long: `Scan a text as if it were the body of an article and print every
citation candidate with its resolution. Nothing is written.

Example:
  lawlink scan --law 刑法 --article 第二十条 --text "前条及び民法第九十条"
  lawlink scan --law 刑法 --file body.txt --fragment`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			file, _ := cmd.Flags().GetString("file")
			law, _ := cmd.Flags().GetString("law")
			article, _ := cmd.Flags().GetString("article")
			fragment, _ := cmd.Flags().GetBool("fragment")

			if (text == "") == (file == "") {
				return errors.New("exactly one of --text or --file is required")
			}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				text = string(data)
			}

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ids, err := a.statuteIDs([]string{law})
			if err != nil {
				return err
			}
			src := extract.Source{
				Identity: types.ArticleIdentity{StatuteID: ids[0], Part: types.PartMain},
				Fragment: fragment,
			}
			if article != "" {
				n, sub, ok := numeral.ParseArticleLabel(article)
				if !ok {
					return fmt.Errorf("invalid article label %q", article)
				}
				src.Identity.Number, src.Identity.Sub = n, sub
			}

			linker, _, err := a.linker(a.catalog)
			if err != nil {
				return err
			}
			analysis := linker.Analyze(src, text)
			printDecisions(analysis)

			res := linker.Link(src, text)
			fmt.Println()
			fmt.Println(headerStyle.Render("Rewritten"))
			fmt.Println(res.Text)
			return nil
		},
	}
	cmd.Flags().String("text", "", "text to scan")
	cmd.Flags().String("file", "", "file containing the text to scan")
	cmd.Flags().String("law", "", "statute the text belongs to")
	cmd.Flags().String("article", "", "article the text belongs to, such as 第二十条 or 第19条の2")
	cmd.Flags().Bool("fragment", false, "treat the text as an amendment fragment")
	_ = cmd.MarkFlagRequired("law")
	return cmd
}

func printDecisions(analysis *extract.Analysis) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Citation", "Kind", "Scope", "Outcome", "Target", "Reason"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, d := range analysis.Decisions {
		c := d.Candidate
		target := "-"
		switch d.Outcome {
		case extract.OutcomeLink:
			target = d.Target.NodeID()
		case extract.OutcomeRedirect:
			target = d.Range.NodeID()
		}
		scope := c.Governing.Name
		if scope == "" {
			scope = "-"
		}
		outcome := string(d.Outcome)
		if d.Linked() {
			outcome = okStyle.Render(outcome)
		}
		table.Append([]string{c.Raw, string(c.Kind), scope, outcome, target, d.Reason})
	}
	table.Render()
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Show what the corpus index knows about the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			_, idx, err := a.linker(a.catalog)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Statute", "ID", "Articles", "Ranges"})
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetAutoFormatHeaders(false)
			for _, entry := range a.store.Statutes() {
				listing, err := a.store.List(entry.ID)
				if err != nil {
					return err
				}
				table.Append([]string{entry.Name, entry.ID,
					strconv.Itoa(len(listing.Articles)), strconv.Itoa(len(listing.Ranges))})
			}
			stats := idx.Stats()
			table.SetFooter([]string{"Total", strconv.Itoa(stats.Statutes),
				strconv.Itoa(stats.Articles), strconv.Itoa(stats.Ranges)})

			fmt.Println(headerStyle.Render("Corpus Index"))
			table.Render()
			return nil
		},
	}
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the effective statute catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			namesOnly, _ := cmd.Flags().GetBool("names")
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			if namesOnly {
				for _, name := range a.catalog.Names() {
					fmt.Println(name)
				}
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Aliases", "External-prone", "In vault"})
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetAutoFormatHeaders(false)
			for _, s := range a.catalog.Statutes() {
				prone, inVault := "", ""
				if s.ExternalProne {
					prone = "yes"
				}
				if _, ok := a.store.Statute(s.ID); ok {
					inVault = "yes"
				} else if _, ok := a.store.StatuteByName(s.Name); ok {
					inVault = "yes"
				}
				table.Append([]string{s.ID, s.Name, strings.Join(s.Aliases, ", "), prone, inVault})
			}
			fmt.Println(headerStyle.Render(fmt.Sprintf("Catalog (%d statutes)", a.catalog.Len())))
			table.Render()
			return nil
		},
	}
	cmd.Flags().Bool("names", false, "print only the recognized names, longest first")
	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report wikilinks whose target file does not exist",
		Long: `Check every wikilink in the vault.

Example:
  lawlink check --prefix laws/
  lawlink check --format markdown > linkcheck.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, _ := cmd.Flags().GetString("prefix")
			format, _ := cmd.Flags().GetString("format")

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			cfg := linkcheck.DefaultConfig()
			cfg.Prefix = prefix
			cfg.Concurrency = a.cfg.Workers * 2
			report, err := linkcheck.NewChecker(a.cfg.Vault, cfg, a.logger).Check(ctx)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				data, err := report.ToJSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			case "markdown":
				fmt.Print(report.ToMarkdown())
			default:
				fmt.Print(report.String())
			}
			if !report.OK() {
				return fmt.Errorf("%d broken links", report.BrokenLinks)
			}
			return nil
		},
	}
	cmd.Flags().String("prefix", "", "only check targets under this vault path, such as laws/")
	cmd.Flags().String("format", "text", "output format: text, json or markdown")
	return cmd
}

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the stored citation edges as a graph",
		Long: `Read the edges.jsonl files of the vault and export them.

Example:
  lawlink graph --format dot | dot -Tsvg > citations.svg
  lawlink graph --law 刑法 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			laws, _ := cmd.Flags().GetStringArray("law")
			format, _ := cmd.Flags().GetString("format")

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ids, err := a.statuteIDs(laws)
			if err != nil {
				return err
			}
			var records []store.EdgeRecord
			for _, id := range ids {
				path, err := a.store.StatuteFilePath(id, store.EdgesFile)
				if err != nil {
					return err
				}
				recs, err := store.ReadEdges(path)
				if err != nil {
					return err
				}
				records = append(records, recs...)
			}

			graph := store.ExportGraph(records)
			switch format {
			case "dot":
				fmt.Print(graph.ToDOT())
			case "json", "":
				data, err := graph.ToJSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			default:
				return fmt.Errorf("unknown format %q (use json or dot)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringArray("law", nil, "statute name or id to export (repeatable, default all)")
	cmd.Flags().String("format", "json", "output format: json or dot")
	return cmd
}

// statuteNameOf returns the statute directory of a vault path, or "" when
// the path is not inside laws/<name>/.
func statuteNameOf(root, path string) string {
	rel, err := filepath.Rel(filepath.Join(root, library.LawsDir), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	name, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return name
}
