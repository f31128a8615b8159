// Package store persists the edge sets produced by a link run. Every sink
// replaces a statute's edges wholesale so the stored set always matches the
// current article text.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/coolbeans/lawlink/pkg/types"
)

// EdgeSink receives the regenerated edge set of one statute at a time.
type EdgeSink interface {
	ReplaceStatute(ctx context.Context, statuteID string, edges []types.Edge) error
	Close(ctx context.Context) error
}

// MultiSink fans a statute's edges out to several sinks. Every sink is
// attempted; failures are joined.
type MultiSink []EdgeSink

// ReplaceStatute implements EdgeSink.
func (m MultiSink) ReplaceStatute(ctx context.Context, statuteID string, edges []types.Edge) error {
	var errs []error
	for _, s := range m {
		if err := s.ReplaceStatute(ctx, statuteID, edges); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements EdgeSink.
func (m MultiSink) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a sink that drops every edge set, used for dry runs.
type Discard struct{}

func (Discard) ReplaceStatute(context.Context, string, []types.Edge) error { return nil }
func (Discard) Close(context.Context) error                              { return nil }

// sourcesBelongTo checks that every edge originates in statuteID. Sinks
// delete by source statute, so a stray edge would never be cleaned up.
func sourcesBelongTo(statuteID string, edges []types.Edge) error {
	for _, e := range edges {
		if e.Source.StatuteID != statuteID {
			return fmt.Errorf("edge %s -> %s does not originate in statute %s", e.Source.NodeID(), e.TargetID(), statuteID)
		}
	}
	return nil
}
