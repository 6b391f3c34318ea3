// Package singleflight provides duplicate suppression for keyed loads.
package singleflight

import (
	"context"
	"sync"
)

// flight is one in-progress load. ready is closed after val/err are
// published, so a receive from ready happens-after the publish.
type flight[V any] struct {
	ready chan struct{}
	val   V
	err   error
}

// Group coalesces concurrent calls for the same key so the supplied fn runs
// at most once; every caller receives the one shared result.
//
// The first caller for a key is the leader and runs fn. Later callers are
// followers and wait. A follower whose ctx is cancelled gives up alone: the
// leader keeps running, and its result still serves the remaining waiters.
// Cancelling the work itself is fn's business (thread a ctx into it).
type Group[K comparable, V any] struct {
	mu       sync.Mutex
	inflight map[K]*flight[V]
}

// Do returns the result of fn for key, running fn only if no flight for key
// is already in progress. On ctx cancellation a waiting caller returns
// ctx.Err() immediately.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = make(map[K]*flight[V])
	}
	if f, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		return g.wait(ctx, f)
	}
	f := &flight[V]{ready: make(chan struct{})}
	g.inflight[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()
	close(f.ready)

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()

	return f.val, f.err
}

// wait blocks a follower until the flight publishes or ctx is cancelled.
func (g *Group[K, V]) wait(ctx context.Context, f *flight[V]) (V, error) {
	select {
	case <-f.ready:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
