package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/coolbeans/lawlink/pkg/library"
	"github.com/coolbeans/lawlink/pkg/types"
)

// File names written next to each statute node.
const (
	EdgesFile   = "edges.jsonl"
	PendingFile = "pending_links.jsonl"
)

// Schema selects the edges.jsonl record layout.
type Schema string

const (
	// SchemaV1 is the legacy layout: from, to, type, evidence, confidence,
	// source, plus kind for cross-statute edges.
	SchemaV1 Schema = "v1"
	// SchemaV2 is source, target, type, evidence, confidence,
	// extractorVersion.
	SchemaV2 Schema = "v2"
)

// ParseSchema validates a schema name. The empty string selects v2.
func ParseSchema(s string) (Schema, error) {
	switch Schema(s) {
	case "", SchemaV2:
		return SchemaV2, nil
	case SchemaV1:
		return SchemaV1, nil
	}
	return "", fmt.Errorf("unknown edge schema %q (want v1 or v2)", s)
}

// PathResolver locates per-statute files. *library.Store implements it.
type PathResolver interface {
	StatuteFilePath(statuteID, fileName string) (string, error)
}

type recordV1 struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Type       string  `json:"type"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Kind       string  `json:"kind,omitempty"`
}

type recordV2 struct {
	Source           string  `json:"source"`
	Target           string  `json:"target"`
	Type             string  `json:"type"`
	Evidence         string  `json:"evidence"`
	Confidence       float64 `json:"confidence"`
	ExtractorVersion string  `json:"extractorVersion"`
}

// EdgeRecord is one stored edge read back from either schema.
type EdgeRecord struct {
	Source     string
	Target     string
	Type       string
	Evidence   string
	Confidence float64
}

// JSONLSink writes edges.jsonl next to each statute node.
type JSONLSink struct {
	paths  PathResolver
	schema Schema
}

// NewJSONLSink creates a sink writing the given schema.
func NewJSONLSink(paths PathResolver, schema Schema) *JSONLSink {
	if schema == "" {
		schema = SchemaV2
	}
	return &JSONLSink{paths: paths, schema: schema}
}

// ReplaceStatute rewrites the statute's edges.jsonl. An empty edge set
// leaves an empty file.
func (s *JSONLSink) ReplaceStatute(_ context.Context, statuteID string, edges []types.Edge) error {
	if err := sourcesBelongTo(statuteID, edges); err != nil {
		return err
	}
	path, err := s.paths.StatuteFilePath(statuteID, EdgesFile)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, e := range edges {
		if err := enc.Encode(s.record(e)); err != nil {
			return fmt.Errorf("encoding edge: %w", err)
		}
	}
	if err := library.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (s *JSONLSink) record(e types.Edge) any {
	if s.schema == SchemaV1 {
		r := recordV1{
			From:       e.Source.NodeID(),
			To:         e.TargetID(),
			Type:       e.Relation,
			Evidence:   e.Evidence,
			Confidence: e.Confidence,
			Source:     e.ExtractorVersion,
		}
		if e.TargetStatuteID() != e.Source.StatuteID {
			r.Kind = "external_ref"
		}
		return r
	}
	return recordV2{
		Source:           e.Source.NodeID(),
		Target:           e.TargetID(),
		Type:             e.Relation,
		Evidence:         e.Evidence,
		Confidence:       e.Confidence,
		ExtractorVersion: e.ExtractorVersion,
	}
}

// Close implements EdgeSink.
func (s *JSONLSink) Close(context.Context) error { return nil }

// ReadEdges reads an edges.jsonl file in either schema. A missing file
// yields no records.
func ReadEdges(path string) ([]EdgeRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []EdgeRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var raw struct {
			recordV2
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := json.Unmarshal(sc.Bytes(), &raw); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		r := EdgeRecord{
			Source:     raw.recordV2.Source,
			Target:     raw.Target,
			Type:       raw.Type,
			Evidence:   raw.Evidence,
			Confidence: raw.Confidence,
		}
		if raw.From != "" {
			r.Source, r.Target = raw.From, raw.To
		}
		records = append(records, r)
	}
	return records, sc.Err()
}

// PendingEntry records a citation that could not be linked and is worth
// retrying once the corpus grows.
type PendingEntry struct {
	Source      string    `json:"source"`
	StatuteName string    `json:"statute_name,omitempty"`
	Article     string    `json:"article"`
	Surface     string    `json:"surface"`
	Reason      string    `json:"reason"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// PendingLog writes pending_links.jsonl next to each statute node.
type PendingLog struct {
	paths PathResolver
}

// NewPendingLog creates a pending log.
func NewPendingLog(paths PathResolver) *PendingLog {
	return &PendingLog{paths: paths}
}

// Replace rewrites the statute's pending log. An empty entry list removes
// the file.
func (p *PendingLog) Replace(statuteID string, entries []PendingEntry) error {
	path, err := p.paths.StatuteFilePath(statuteID, PendingFile)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding pending entry: %w", err)
		}
	}
	return library.WriteFileAtomic(path, buf.Bytes())
}
