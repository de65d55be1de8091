package dynrules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cliniscribe/cliniscribe/internal/correction/safety"
)

// clock is a manually advanced time source for cache tests.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingProvider counts fetches and serves a configurable snapshot or error.
type countingProvider struct {
	mu    sync.Mutex
	snap  Snapshot
	err   error
	calls int
}

func (p *countingProvider) FetchState(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return Snapshot{}, p.err
	}
	return p.snap, nil
}

func (p *countingProvider) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestCacheServesWithinTTL(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	provider := &countingProvider{snap: Snapshot{
		GlossaryTerms: []string{"sacubitril"},
		Rules:         []safety.Rule{{Raw: "metro prolol", Fix: "metoprolol"}},
	}}
	cache := NewCache(provider, withNow(clk.Now))

	snap, ok := cache.Snapshot(context.Background())
	if !ok {
		t.Fatal("Snapshot() ok = false, want true")
	}
	if len(snap.GlossaryTerms) != 1 || snap.GlossaryTerms[0] != "sacubitril" {
		t.Errorf("GlossaryTerms = %v, want [sacubitril]", snap.GlossaryTerms)
	}

	clk.Advance(14 * time.Minute)
	if _, ok := cache.Snapshot(context.Background()); !ok {
		t.Fatal("Snapshot() within TTL ok = false, want true")
	}
	if got := provider.callCount(); got != 1 {
		t.Errorf("provider fetched %d times within TTL, want 1", got)
	}
}

func TestCacheRefreshesAfterTTL(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	provider := &countingProvider{snap: Snapshot{GlossaryTerms: []string{"entresto"}}}
	cache := NewCache(provider, withNow(clk.Now))

	cache.Snapshot(context.Background())
	clk.Advance(DefaultTTL + time.Second)
	cache.Snapshot(context.Background())

	if got := provider.callCount(); got != 2 {
		t.Errorf("provider fetched %d times across TTL boundary, want 2", got)
	}
}

func TestCacheServesStaleOnRefreshFailure(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	provider := &countingProvider{snap: Snapshot{GlossaryTerms: []string{"perhexiline"}}}
	cache := NewCache(provider, withNow(clk.Now))

	if _, ok := cache.Snapshot(context.Background()); !ok {
		t.Fatal("initial Snapshot() ok = false, want true")
	}

	provider.setErr(errors.New("connection refused"))
	clk.Advance(DefaultTTL + time.Second)

	snap, ok := cache.Snapshot(context.Background())
	if !ok {
		t.Fatal("Snapshot() after failed refresh ok = false, want stale snapshot")
	}
	if len(snap.GlossaryTerms) != 1 || snap.GlossaryTerms[0] != "perhexiline" {
		t.Errorf("stale GlossaryTerms = %v, want [perhexiline]", snap.GlossaryTerms)
	}
}

func TestCacheReportsUnavailableWhenNeverFetched(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{err: errors.New("connection refused")}
	cache := NewCache(provider)

	if _, ok := cache.Snapshot(context.Background()); ok {
		t.Error("Snapshot() with no prior success ok = true, want false")
	}
}

func TestCacheInvalidateForcesRefresh(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{snap: Snapshot{GlossaryTerms: []string{"a"}}}
	cache := NewCache(provider)

	cache.Snapshot(context.Background())
	cache.Invalidate()
	cache.Snapshot(context.Background())

	if got := provider.callCount(); got != 2 {
		t.Errorf("provider fetched %d times across Invalidate, want 2", got)
	}
}

func TestCachePrimeReportsError(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("relation does not exist")
	provider := &countingProvider{err: fetchErr}
	cache := NewCache(provider)

	if err := cache.Prime(context.Background()); !errors.Is(err, fetchErr) {
		t.Errorf("Prime() error = %v, want %v", err, fetchErr)
	}
}

func TestCacheConcurrentFetchCollapses(t *testing.T) {
	t.Parallel()

	fetched := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	provider := &fnProvider{fn: func(ctx context.Context) (Snapshot, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(fetched)
			<-release
		}
		return Snapshot{GlossaryTerms: []string{"x"}}, nil
	}}
	cache := NewCache(provider)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Snapshot(context.Background())
		}()
	}
	<-fetched
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("concurrent Snapshot() calls fetched %d times, want 1", calls)
	}
}

type fnProvider struct {
	fn func(ctx context.Context) (Snapshot, error)
}

func (p *fnProvider) FetchState(ctx context.Context) (Snapshot, error) {
	return p.fn(ctx)
}
