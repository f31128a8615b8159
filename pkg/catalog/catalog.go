// Package catalog holds the known-statute catalog: statute ids, canonical
// names, aliases and the external-prone flag that keeps frequently cited
// statutes from being linked before they are materialized.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/lawlink/pkg/types"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is an immutable set of statutes indexed by id and by every name.
type Catalog struct {
	statutes []types.Statute
	byID     map[string]int
	byName   map[string]int
	names    []string
}

type catalogFile struct {
	Statutes []types.Statute `yaml:"statutes"`
}

// New builds a catalog. Entries without an id are keyed by their name. Two
// entries claiming the same name or id are an error.
func New(statutes []types.Statute) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]int, len(statutes)),
		byName: make(map[string]int, len(statutes)),
	}

	for _, s := range statutes {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("statute %q has no name", s.ID)
		}
		if s.ID == "" {
			s.ID = s.Name
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("statute id %q declared twice", s.ID)
		}

		idx := len(c.statutes)
		for _, name := range s.Names() {
			if prev, dup := c.byName[name]; dup {
				return nil, fmt.Errorf("name %q claimed by both %q and %q", name, c.statutes[prev].ID, s.ID)
			}
			c.byName[name] = idx
			c.names = append(c.names, name)
		}
		c.byID[s.ID] = idx
		c.statutes = append(c.statutes, s)
	}

	sortLongestFirst(c.names)
	return c, nil
}

// Empty returns a catalog with no statutes.
func Empty() *Catalog {
	c, _ := New(nil)
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in catalog is invalid: %v", err))
	}
	return c
}

// Parse reads a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	return New(f.Statutes)
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadDir merges every YAML file in dir, in file-name order. A missing
// directory yields an empty catalog.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	merged := Empty()
	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		c, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			loadErrors = append(loadErrors, err)
			continue
		}
		if merged, err = merged.Merge(c); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return nil, fmt.Errorf("errors loading catalog: %w", errors.Join(loadErrors...))
	}
	return merged, nil
}

// Merge returns a new catalog where entries of other replace entries of c
// that share their id or canonical name.
func (c *Catalog) Merge(other *Catalog) (*Catalog, error) {
	replaced := make(map[string]bool)
	for _, s := range other.statutes {
		replaced[s.ID] = true
		if idx, ok := c.byName[s.Name]; ok {
			replaced[c.statutes[idx].ID] = true
		}
	}

	statutes := make([]types.Statute, 0, len(c.statutes)+len(other.statutes))
	for _, s := range c.statutes {
		if !replaced[s.ID] {
			statutes = append(statutes, s)
		}
	}
	statutes = append(statutes, other.statutes...)
	return New(statutes)
}

// Lookup finds a statute by canonical name or alias.
func (c *Catalog) Lookup(name string) (types.Statute, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return types.Statute{}, false
	}
	return c.statutes[idx], true
}

// ByID finds a statute by id.
func (c *Catalog) ByID(id string) (types.Statute, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return types.Statute{}, false
	}
	return c.statutes[idx], true
}

// Statutes returns a copy of the entries in declaration order.
func (c *Catalog) Statutes() []types.Statute {
	return append([]types.Statute(nil), c.statutes...)
}

// Names returns every canonical name and alias, longest first.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Len returns the number of statutes.
func (c *Catalog) Len() int {
	return len(c.statutes)
}

// sortLongestFirst orders names by rune length, longest first, so that a
// short name never shadows a longer one sharing its suffix.
func sortLongestFirst(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(names[i]), utf8.RuneCountInString(names[j])
		if li != lj {
			return li > lj
		}
		return names[i] < names[j]
	})
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
