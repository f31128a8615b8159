package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/lawlink/pkg/bulk"
	"github.com/coolbeans/lawlink/pkg/catalog"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-link statutes whenever their files or the catalog change",
		Long: `Watch the vault and re-run link for the statutes whose files changed.
A changed catalog directory re-links every statute.

Changes are debounced; see watch.debounce in lawlink.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return a.watch(ctx)
		},
	}
}

// watchState collects pending work between debounced runs.
type watchState struct {
	mu       sync.Mutex
	statutes map[string]bool
	all      bool
	catalog  *catalog.Catalog
}

func (s *watchState) take() ([]string, bool, *catalog.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.statutes))
	for name := range s.statutes {
		names = append(names, name)
	}
	sort.Strings(names)
	all := s.all
	s.statutes = make(map[string]bool)
	s.all = false
	return names, all, s.catalog
}

func (a *app) watch(ctx context.Context) error {
	state := &watchState{statutes: make(map[string]bool), catalog: a.catalog}
	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	if info, err := os.Stat(a.cfg.Catalog); err == nil && info.IsDir() {
		cw, err := catalog.NewWatcher(a.cfg.Catalog, catalog.Default(), a.logger)
		if err != nil {
			return err
		}
		cw.SetOnChange(func(c *catalog.Catalog) {
			state.mu.Lock()
			state.catalog = c
			state.all = true
			state.mu.Unlock()
			notify()
		})
		if err := cw.Start(); err != nil {
			return err
		}
		defer cw.Stop()
		state.catalog = cw.Current()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := addDirs(watcher, filepath.Join(a.cfg.Vault, "laws")); err != nil {
		return err
	}
	a.logger.Info("watching vault", "vault", a.cfg.Vault, "debounce", a.cfg.Watch.Debounce)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := addDirs(watcher, event.Name); err != nil {
							a.logger.Warn("watching new directory failed", "dir", event.Name, "error", err)
						}
					}
				}
				if !relevantChange(event) {
					continue
				}
				name := statuteNameOf(a.cfg.Vault, event.Name)
				if name == "" {
					continue
				}
				state.mu.Lock()
				state.statutes[name] = true
				state.mu.Unlock()
				notify()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				a.logger.Warn("vault watcher error", "error", err)
			}
		}
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			if timer == nil {
				timer = time.NewTimer(a.cfg.Watch.Debounce)
			} else {
				timer.Reset(a.cfg.Watch.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			names, all, cat := state.take()
			if !all && len(names) == 0 {
				continue
			}
			if all {
				names = nil
			}
			a.relink(ctx, cat, names)
		}
	}
}

func (a *app) relink(ctx context.Context, cat *catalog.Catalog, names []string) {
	// New statute directories and articles only appear after a rescan.
	if err := a.store.Refresh(); err != nil {
		a.logger.Error("rescanning vault failed", "error", err)
		return
	}
	report, err := a.runLink(ctx, cat, names, bulk.Options{Workers: a.cfg.Workers})
	if err != nil {
		a.logger.Error("relink failed", "statutes", names, "error", err)
		return
	}
	a.logger.Info("relinked",
		"run_id", report.RunID,
		"statutes", len(report.Statutes),
		"changed", report.Totals.Changed,
		"failed", len(report.Failed))
}

// relevantChange filters out the files a link run writes itself.
func relevantChange(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".jsonl") {
		return false
	}
	return strings.HasSuffix(base, ".md") || !strings.Contains(base, ".")
}

func addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
