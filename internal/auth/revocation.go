package auth

import (
	"sync"
	"time"
)

// Registry is the process-wide set of tokens revoked before their natural
// expiry. Every call prunes entries whose revocation window has closed, so
// the set only holds recently revoked tokens.
type Registry struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewRegistry creates an empty revocation registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]time.Time)}
}

// Revoke blocks token until now+ttl. Revoking an already revoked token
// replaces its window.
func (r *Registry) Revoke(token string, now time.Time, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[token] = now.Add(ttl)
	r.pruneLocked(now)
}

// IsRevoked reports whether token is blocked at now.
func (r *Registry) IsRevoked(token string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(now)
	_, ok := r.entries[token]
	return ok
}

// Prune drops expired entries and returns how many were removed.
func (r *Registry) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked(now)
}

// Len returns the number of entries currently held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) pruneLocked(now time.Time) int {
	removed := 0
	for token, expiresAt := range r.entries {
		if !now.Before(expiresAt) {
			delete(r.entries, token)
			removed++
		}
	}
	return removed
}
