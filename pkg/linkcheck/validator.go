package linkcheck

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var wikilinkPattern = regexp.MustCompile(`!?\[\[([^\[\]\n]+?)\]\]`)

// Link is a wikilink found in a document.
type Link struct {
	Raw    string
	Target string
	Line   int
}

// ParseLinks extracts the wikilinks of text. Targets lose their alias and
// their heading or block suffix.
func ParseLinks(text string) []Link {
	var links []Link
	for _, loc := range wikilinkPattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		links = append(links, Link{
			Raw:    raw,
			Target: cleanTarget(text[loc[2]:loc[3]]),
			Line:   strings.Count(text[:loc[0]], "\n") + 1,
		})
	}
	return links
}

func cleanTarget(inner string) string {
	if i := strings.IndexByte(inner, '|'); i >= 0 {
		inner = inner[:i]
	}
	// Links inside tables escape the alias pipe.
	inner = strings.TrimSuffix(inner, `\`)
	if i := strings.IndexAny(inner, "#^"); i >= 0 {
		inner = inner[:i]
	}
	return strings.TrimSpace(inner)
}

// Checker validates every wikilink in a vault.
type Checker struct {
	root   string
	config *Config
	cache  *ExistenceCache
	logger *slog.Logger
}

// NewChecker creates a checker for the vault at root.
func NewChecker(root string, config *Config, logger *slog.Logger) *Checker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultConfig().CacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		root:   root,
		config: config,
		cache:  NewExistenceCache(config.CacheSize, config.CacheTTL),
		logger: logger,
	}
}

// Check walks the vault and validates the links of every markdown file.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	report := NewReport()
	report.StartedAt = time.Now()

	files, byName, err := c.walk()
	if err != nil {
		return nil, err
	}
	report.Files = len(files)

	results := make([][]*LinkResult, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.config.Concurrency)
	for i, rel := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res, err := c.checkFile(rel, byName)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, fileResults := range results {
		for _, r := range fileResults {
			report.AddResult(r)
		}
	}
	report.Finalize()
	c.logger.Info("link check finished",
		"files", report.Files, "links", report.TotalLinks, "broken", report.BrokenLinks)
	return report, nil
}

// walk lists the vault's markdown files and indexes them by base name,
// which is how links without a folder resolve.
func (c *Checker) walk() ([]string, map[string]bool, error) {
	var files []string
	byName := make(map[string]bool)
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != c.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		byName[path.Base(rel)] = true
		if strings.HasSuffix(rel, ".md") {
			files = append(files, rel)
			byName[strings.TrimSuffix(path.Base(rel), ".md")] = true
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking vault: %w", err)
	}
	return files, byName, nil
}

func (c *Checker) checkFile(rel string, byName map[string]bool) ([]*LinkResult, error) {
	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	var results []*LinkResult
	for _, l := range ParseLinks(string(data)) {
		r := &LinkResult{Target: l.Target, Raw: l.Raw, Source: rel, Line: l.Line, Statute: statuteOf(l.Target)}
		switch {
		case l.Target == "":
			// [[#heading]] points into the same file.
			r.Status = StatusSkipped
		case c.config.Prefix != "" && !strings.HasPrefix(l.Target, c.config.Prefix):
			r.Status = StatusSkipped
		default:
			if resolved, ok := c.resolve(l.Target, rel, byName); ok {
				r.Status, r.ResolveTo = StatusValid, resolved
			} else {
				r.Status = StatusBroken
				c.logger.Debug("broken link", "source", rel, "line", l.Line, "target", l.Target)
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func (c *Checker) resolve(target, source string, byName map[string]bool) (string, bool) {
	if !strings.Contains(target, "/") {
		return target, byName[target]
	}
	if strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		target = path.Join(path.Dir(source), target)
	}
	candidates := []string{target}
	if path.Ext(target) == "" {
		candidates = append(candidates, target+".md")
	}
	for _, p := range candidates {
		if c.exists(p) {
			return p, true
		}
	}
	return "", false
}

func (c *Checker) exists(rel string) bool {
	if exists, found := c.cache.Get(rel); found {
		return exists
	}
	info, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(rel)))
	exists := err == nil && !info.IsDir()
	c.cache.Set(rel, exists)
	return exists
}

// Invalidate drops cached existence checks, for example after the vault
// changed.
func (c *Checker) Invalidate() {
	c.cache.Clear()
}
