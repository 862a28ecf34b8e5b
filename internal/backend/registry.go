package backend

import (
	"context"
	"strings"
	"sync"

	"github.com/kataria/backend/internal/config"
	"github.com/kataria/backend/internal/storage"
	"github.com/kataria/backend/internal/writer"
)

// Registry builds each named backend once, so the primary tier and the
// read backend share one connection pool.
type Registry struct {
	cfg *config.Config

	mu       sync.Mutex
	built    map[string]writer.Backend
	cleanups []func()
}

func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg, built: make(map[string]writer.Backend)}
}

// Get returns the named backend, building it on first use.
func (r *Registry) Get(ctx context.Context, name string) writer.Backend {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.built[name]; ok {
		return b
	}
	b, cleanup := Build(ctx, name, r.cfg)
	r.built[name] = b
	r.cleanups = append(r.cleanups, cleanup)
	return b
}

// Reader returns the named backend as a Lister when it is configured and can
// list. Otherwise it returns fallback.
func (r *Registry) Reader(ctx context.Context, name string, fallback storage.Lister) storage.Lister {
	b := r.Get(ctx, name)
	if l, ok := b.(storage.Lister); ok && b.Configured() {
		return l
	}
	return fallback
}

// Close runs every cleanup in reverse build order.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
	r.cleanups = nil
}
