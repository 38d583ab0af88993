package distance

import (
	"context"
	"sync"
)

type pairKey struct {
	aLat, aLng, bLat, bLng float64
}

// Memo caches answers for identical coordinate pairs. Build one per route
// computation; it is not meant to outlive a request.
type Memo struct {
	next  Provider
	mu    sync.Mutex
	cache map[pairKey]Result
}

// NewMemo wraps next with a request-scoped cache.
func NewMemo(next Provider) *Memo {
	return &Memo{next: next, cache: make(map[pairKey]Result)}
}

// Distance implements Provider.
func (m *Memo) Distance(ctx context.Context, a, b *Point) Result {
	if a == nil || b == nil {
		return Unavailable
	}
	key := pairKey{aLat: a.Lat, aLng: a.Lng, bLat: b.Lat, bLng: b.Lng}

	m.mu.Lock()
	if cached, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return cached
	}
	m.mu.Unlock()

	res := m.next.Distance(ctx, a, b)

	m.mu.Lock()
	m.cache[key] = res
	m.mu.Unlock()
	return res
}
