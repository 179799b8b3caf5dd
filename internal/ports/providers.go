// Package ports defines the interfaces the daily wisdom workflow depends on.
// Adapters implement them; the application layer only sees these contracts
// and domain types.
//
// Every method takes a context first and reports failures as domain errors:
// providers return domain.ProviderError, stores return domain.ErrNotFound for
// absent keys.
package ports

import (
	"context"

	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

// WisdomProvider generates the base daily content.
type WisdomProvider interface {
	// Generate returns a fully populated wisdom entry.
	Generate(ctx context.Context) (*domain.WisdomEntry, error)
}

// ExplanationProvider produces a long-form explanation for a wisdom entry.
type ExplanationProvider interface {
	// Explain returns non-empty explanation text.
	Explain(ctx context.Context, wisdom domain.WisdomEntry) (string, error)
}

// IllustrationProvider produces an image for a wisdom entry.
type IllustrationProvider interface {
	// Illustrate returns an image reference (URL or data URI). An empty string
	// with a nil error means the provider had no image to offer.
	Illustrate(ctx context.Context, wisdom domain.WisdomEntry) (string, error)
}

// Providers groups the three generative collaborators of the workflow.
type Providers struct {
	Wisdom       WisdomProvider
	Explanation  ExplanationProvider
	Illustration IllustrationProvider
}
