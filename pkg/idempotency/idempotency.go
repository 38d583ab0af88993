// Package idempotency stores the outcome of requests carrying an
// Idempotency-Key so retries replay the first response instead of repeating
// side effects.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/fulfillment-backend/pkg/redis"
)

// DefaultPendingTTL bounds how long a crashed request can block its key.
const DefaultPendingTTL = 2 * time.Minute

// ErrRecordMissing means the key was taken but its record expired before it
// could be read.
var ErrRecordMissing = errors.New("idempotency record missing")

// Record is what is kept per key. Pending records mark a request that is
// still running.
type Record struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Manager claims and settles idempotency keys in Redis.
type Manager struct {
	store      redis.IdempotencyStore
	pendingTTL time.Duration
}

// NewManager builds a manager. A zero pendingTTL uses DefaultPendingTTL.
func NewManager(store redis.IdempotencyStore, pendingTTL time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if pendingTTL < 0 {
		return nil, errors.New("pending ttl must be non-negative")
	}
	if pendingTTL == 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &Manager{store: store, pendingTTL: pendingTTL}, nil
}

// Claim reserves key for a request with the given body hash. When claimed is
// false the existing record is returned instead and the caller must not run
// the request.
func (m *Manager) Claim(ctx context.Context, scope, key, requestHash string) (existing *Record, claimed bool, err error) {
	fullKey, err := m.key(scope, key)
	if err != nil {
		return nil, false, err
	}
	pending, err := json.Marshal(Record{Pending: true, RequestHash: requestHash})
	if err != nil {
		return nil, false, err
	}
	ok, err := m.store.SetNX(ctx, fullKey, string(pending), m.pendingTTL)
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := m.store.Get(ctx, fullKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, ErrRecordMissing
		}
		return nil, false, fmt.Errorf("read idempotency record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, false, nil
}

// Complete replaces the pending marker with the final response.
func (m *Manager) Complete(ctx context.Context, scope, key string, rec Record, ttl time.Duration) error {
	fullKey, err := m.key(scope, key)
	if err != nil {
		return err
	}
	rec.Pending = false
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, fullKey, string(payload), ttl)
}

// Release drops the claim so the request can be retried with the same key.
func (m *Manager) Release(ctx context.Context, scope, key string) error {
	fullKey, err := m.key(scope, key)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, fullKey)
}

func (m *Manager) key(scope, key string) (string, error) {
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if key == "" {
		return "", errors.New("idempotency key is required")
	}
	return m.store.IdempotencyKey(scope, key), nil
}
