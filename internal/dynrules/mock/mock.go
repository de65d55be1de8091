// Package mock provides a test double for the dynrules.Provider interface.
//
// Use Provider in unit tests to feed controlled snapshots and inject fetch
// failures without a live database.
package mock

import (
	"context"
	"sync"

	"github.com/cliniscribe/cliniscribe/internal/dynrules"
)

// Provider is a mock implementation of dynrules.Provider.
// Zero values cause FetchState to return an empty snapshot and nil error.
type Provider struct {
	mu sync.Mutex

	// Snapshot is returned by FetchState when Err is nil.
	Snapshot dynrules.Snapshot

	// Err, if non-nil, is returned by FetchState instead of Snapshot.
	Err error

	// FetchFunc, if set, overrides the Snapshot/Err fields entirely.
	FetchFunc func(ctx context.Context) (dynrules.Snapshot, error)

	// FetchCalls counts invocations of FetchState.
	FetchCalls int
}

var _ dynrules.Provider = (*Provider)(nil)

// FetchState implements dynrules.Provider.
func (p *Provider) FetchState(ctx context.Context) (dynrules.Snapshot, error) {
	p.mu.Lock()
	p.FetchCalls++
	fetchFunc := p.FetchFunc
	snap, err := p.Snapshot, p.Err
	p.mu.Unlock()

	if fetchFunc != nil {
		return fetchFunc(ctx)
	}
	if err != nil {
		return dynrules.Snapshot{}, err
	}
	return snap, nil
}

// Calls returns the number of FetchState invocations so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.FetchCalls
}
