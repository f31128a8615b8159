package library

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrCorruptDocument marks a document whose frontmatter or layout cannot be
// parsed. It is fatal for that document only.
var ErrCorruptDocument = errors.New("corrupt document")

// ErrNotFound is returned for identities with no document.
var ErrNotFound = errors.New("document not found")

const frontmatterDelimiter = "---"

// Frontmatter holds the YAML fields lawlink reads from article and statute
// documents. Unknown fields are preserved on write because the raw YAML is
// written back verbatim.
type Frontmatter struct {
	ID                string `yaml:"id"`
	Type              string `yaml:"type"`
	LawID             string `yaml:"law_id"`
	LawName           string `yaml:"law_name"`
	Part              string `yaml:"part"`
	ArticleNum        string `yaml:"article_num"`
	Heading           string `yaml:"heading"`
	SupplKind         string `yaml:"suppl_kind"`
	AmendmentLawID    string `yaml:"amendment_law_id"`
	AmendmentLawTitle string `yaml:"amendment_law_title"`
}

// IsAmendmentFragment reports whether the frontmatter marks an amendment
// fragment.
func (f Frontmatter) IsAmendmentFragment() bool {
	return f.SupplKind == "amendment" || f.Type == "amendment_fragment"
}

// Document is a parsed markdown document: frontmatter, an optional "# "
// heading line and the body text that citations are linked in.
type Document struct {
	Frontmatter Frontmatter

	rawFrontmatter string
	lead           string // blank lines and heading line before the body
	Heading        string
	Body           string
}

// ParseDocument splits data into frontmatter, heading and body. Documents
// without a closed frontmatter block or with invalid YAML are corrupt.
func ParseDocument(data []byte) (*Document, error) {
	text := string(data)
	if !strings.HasPrefix(text, frontmatterDelimiter+"\n") {
		return nil, fmt.Errorf("%w: missing frontmatter", ErrCorruptDocument)
	}
	rest := text[len(frontmatterDelimiter)+1:]

	var raw string
	switch {
	case strings.HasPrefix(rest, frontmatterDelimiter+"\n"):
		rest = rest[len(frontmatterDelimiter)+1:]
	default:
		end := strings.Index(rest, "\n"+frontmatterDelimiter+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+frontmatterDelimiter) {
				return nil, fmt.Errorf("%w: unterminated frontmatter", ErrCorruptDocument)
			}
			end = len(rest) - len(frontmatterDelimiter) - 1
			raw = rest[:end+1]
			rest = ""
		} else {
			raw = rest[:end+1]
			rest = rest[end+len(frontmatterDelimiter)+2:]
		}
	}

	doc := &Document{rawFrontmatter: raw}
	if err := yaml.Unmarshal([]byte(raw), &doc.Frontmatter); err != nil {
		return nil, fmt.Errorf("%w: frontmatter: %v", ErrCorruptDocument, err)
	}

	doc.lead, doc.Heading, doc.Body = splitHeading(rest)
	return doc, nil
}

// splitHeading separates leading blank lines and a "# " heading line from
// the body.
func splitHeading(text string) (lead, heading, body string) {
	pos := 0
	for pos < len(text) {
		end := strings.IndexByte(text[pos:], '\n')
		line := text[pos:]
		next := len(text)
		if end >= 0 {
			line = text[pos : pos+end]
			next = pos + end + 1
		}
		if strings.TrimSpace(line) == "" {
			pos = next
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return text[:next], strings.TrimSpace(strings.TrimPrefix(line, "# ")), text[next:]
		}
		break
	}
	return text[:pos], "", text[pos:]
}

// WithBody returns a copy of d with the body replaced.
func (d *Document) WithBody(body string) *Document {
	cp := *d
	cp.Body = body
	return &cp
}

// Bytes serializes the document. The frontmatter and heading bytes are
// written back exactly as they were read.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")
	buf.WriteString(d.rawFrontmatter)
	buf.WriteString(frontmatterDelimiter + "\n")
	buf.WriteString(d.lead)
	buf.WriteString(d.Body)
	return buf.Bytes()
}

// NewDocument builds a document from frontmatter, a heading and a body.
func NewDocument(fm Frontmatter, heading, body string) (*Document, error) {
	raw, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	doc := &Document{Frontmatter: fm, rawFrontmatter: string(raw), Body: body}
	if heading != "" {
		doc.Heading = heading
		doc.lead = "\n# " + heading + "\n"
	}
	return doc, nil
}
