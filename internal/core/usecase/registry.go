package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

// ClientRegistry caches one validated profile per client. A profile is
// replaced wholesale on reload and never mutated while requests hold it.
type ClientRegistry struct {
	store         ports.ProfileStore
	defaultClient string

	loads singleflight.Group

	mu       sync.RWMutex
	profiles map[string]*domain.ClientProfile
	// generation bumps on every invalidation so a load that started before
	// it is not cached after it.
	generation map[string]uint64
}

func NewClientRegistry(store ports.ProfileStore, defaultClient string) *ClientRegistry {
	return &ClientRegistry{
		store:         store,
		defaultClient: strings.TrimSpace(defaultClient),
		profiles:      make(map[string]*domain.ClientProfile),
		generation:    make(map[string]uint64),
	}
}

// Profile resolves clientID, or the default client when it is blank.
func (r *ClientRegistry) Profile(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	id := strings.TrimSpace(clientID)
	if id == "" {
		id = r.defaultClient
	}
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve client", fmt.Errorf("client id is required"))
	}

	r.mu.RLock()
	profile, ok := r.profiles[id]
	r.mu.RUnlock()
	if ok {
		return profile, nil
	}

	// Concurrent misses for one client share a load; other clients are
	// never blocked by it.
	v, err, _ := r.loads.Do(id, func() (any, error) {
		return r.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ClientProfile), nil
}

func (r *ClientRegistry) load(ctx context.Context, id string) (*domain.ClientProfile, error) {
	r.mu.RLock()
	generation := r.generation[id]
	r.mu.RUnlock()

	profile, err := r.store.LoadProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", id, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.generation[id] == generation {
		r.profiles[id] = profile
	}
	r.mu.Unlock()

	slog.Info("client_profile_loaded",
		"client", id,
		"filterable_fields", len(profile.FilterableFields),
		"templates", len(profile.Templates),
	)
	return profile, nil
}

func (r *ClientRegistry) Invalidate(clientID string) {
	id := strings.TrimSpace(clientID)
	r.mu.Lock()
	delete(r.profiles, id)
	r.generation[id]++
	r.mu.Unlock()
	r.loads.Forget(id)
	slog.Info("client_profile_invalidated", "client", id)
}
