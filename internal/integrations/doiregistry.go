// Package integrations holds the shared DoiRegistry contract implemented
// by both internal/integrations/pidclient and internal/integrations/
// dataciteclient (spec.md §4.2).
package integrations

import "context"

// DoiRegistry is the interface the publication orchestrator programs
// against regardless of which concrete DOI minting service is wired in.
type DoiRegistry interface {
	CreateDraftDoi(ctx context.Context) (string, error)
	Publish(ctx context.Context, doi string, metadata map[string]interface{}, discoveryURL string, requireFieldOfScience, publish bool) error
	Get(ctx context.Context, doi string) (string, error)
	Delete(ctx context.Context, doi string) error
}
