// Package librarytest builds throwaway vaults for tests.
package librarytest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/coolbeans/lawlink/pkg/library"
	"github.com/coolbeans/lawlink/pkg/numeral"
	"github.com/coolbeans/lawlink/pkg/types"
)

// Vault is a vault rooted in a test's temporary directory.
type Vault struct {
	Root string

	t      testing.TB
	lawIDs map[string]string
}

// New creates an empty vault.
func New(t testing.TB) *Vault {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, library.LawsDir), 0755); err != nil {
		t.Fatalf("creating vault: %v", err)
	}
	return &Vault{Root: root, t: t, lawIDs: make(map[string]string)}
}

// Statute writes a statute node. An empty lawID leaves law_id out so the
// directory name becomes the id.
func (v *Vault) Statute(name, lawID string) *Vault {
	v.t.Helper()
	v.lawIDs[name] = lawID
	fm := fmt.Sprintf("id: JPLAW:%s\ntype: law\ntitle: %s\n", lawID, name)
	if lawID != "" {
		fm += "law_id: " + lawID + "\n"
	}
	v.WriteFile(filepath.Join(library.LawsDir, name, name+".md"), "---\n"+fm+"---\n\n# "+name+"\n")
	return v
}

// ID returns the statute id the store will assign to name.
func (v *Vault) ID(name string) string {
	if id := v.lawIDs[name]; id != "" {
		return id
	}
	return name
}

// Article writes a main or supplementary article with the given body.
func (v *Vault) Article(name string, part types.Part, number, sub int, body string) *Vault {
	v.t.Helper()
	id := types.ArticleIdentity{StatuteID: v.ID(name), Part: part, Number: number, Sub: sub}
	heading := "第" + numeral.FormatKanji(number) + "条"
	if sub > 0 {
		heading += "の" + numeral.FormatKanji(sub)
	}
	fm := fmt.Sprintf("id: %s\ntype: article\nlaw_id: %s\nlaw_name: %s\npart: %s\narticle_num: '%d'\nheading: %s\n",
		id.NodeID(), v.ID(name), name, part, number, heading)
	v.WriteFile(library.ArticlePath(name, id), "---\n"+fm+"---\n\n# "+heading+"\n"+body)
	return v
}

// Fragment writes an amendment-fragment article under 附則/改正法/<key>.
func (v *Vault) Fragment(name, key string, number int, body string) *Vault {
	v.t.Helper()
	id := types.ArticleIdentity{StatuteID: v.ID(name), Part: types.PartAmendment, Number: number, AmendmentKey: key}
	heading := "附則第" + numeral.FormatKanji(number) + "条"
	fm := fmt.Sprintf("id: %s\ntype: amendment_fragment\nlaw_id: %s\nlaw_name: %s\npart: suppl\nsuppl_kind: amendment\namendment_law_id: %s\narticle_num: '%d'\n",
		id.NodeID(), v.ID(name), name, key, number)
	v.WriteFile(library.ArticlePath(name, id), "---\n"+fm+"---\n\n# "+heading+"\n"+body)
	return v
}

// Range writes a deleted-range node in the main body.
func (v *Vault) Range(name string, from, to int) *Vault {
	v.t.Helper()
	r := types.RangeIdentity{StatuteID: v.ID(name), Part: types.PartMain, From: from, To: to}
	v.WriteFile(library.RangePath(name, r), "---\ntype: deleted_range\n---\n\n# "+r.Label()+"\n削除\n")
	return v
}

// WriteFile writes a vault-relative file.
func (v *Vault) WriteFile(rel, content string) {
	v.t.Helper()
	full := filepath.Join(v.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		v.t.Fatalf("creating %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		v.t.Fatalf("writing %s: %v", rel, err)
	}
}

// ReadFile reads a vault-relative file.
func (v *Vault) ReadFile(rel string) string {
	v.t.Helper()
	data, err := os.ReadFile(filepath.Join(v.Root, filepath.FromSlash(rel)))
	if err != nil {
		v.t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

// Open opens the vault as a store.
func (v *Vault) Open() *library.Store {
	v.t.Helper()
	s, err := library.Open(v.Root, 64)
	if err != nil {
		v.t.Fatalf("opening vault: %v", err)
	}
	return s
}
