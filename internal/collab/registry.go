package collab

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/bequest/internal/plan"
)

// Registry answers IsRegistered from a fixed member set.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	open    bool
	members map[plan.Identity]struct{}
}

// NewRegistry creates a registry admitting exactly members.
func NewRegistry(members ...plan.Identity) *Registry {
	r := &Registry{members: make(map[plan.Identity]struct{}, len(members))}
	for _, m := range members {
		r.members[m] = struct{}{}
	}
	return r
}

// NewOpenRegistry creates a registry that admits every non-empty identity.
func NewOpenRegistry() *Registry {
	return &Registry{open: true, members: map[plan.Identity]struct{}{}}
}

// Add registers identities.
func (r *Registry) Add(ids ...plan.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.members[id] = struct{}{}
	}
}

// Members returns the registered identities in sorted order.
func (r *Registry) Members() []plan.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]plan.Identity, 0, len(r.members))
	for m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) IsRegistered(_ context.Context, who plan.Identity) (bool, error) {
	if who == "" {
		return false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.open {
		return true, nil
	}
	_, ok := r.members[who]
	return ok, nil
}
