// Package dynrules fetches externally managed correction state (glossary
// terms and replacement rules) and caches it with a TTL so that hot-path
// corrections never wait on or fail with the backing store.
package dynrules

import (
	"context"
	"time"

	"github.com/cliniscribe/cliniscribe/internal/correction/safety"
)

// Snapshot is one consistent view of the externally managed correction state.
type Snapshot struct {
	// GlossaryTerms are site-specific terms (clinician names, local drug
	// brands, study names) used by downstream matching stages.
	GlossaryTerms []string

	// Rules are candidate replacement rules. They have NOT been through
	// safety validation; callers partition them before use.
	Rules []safety.Rule

	// FetchedAt is when the snapshot was read from the provider.
	FetchedAt time.Time
}

// Provider fetches the current correction state from its backing store.
// Implementations include the PostgreSQL store in this package and the
// test double under mock/.
type Provider interface {
	FetchState(ctx context.Context) (Snapshot, error)
}
