package session

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/playperu/tvekamp/internal/tvekamp"
)

// Registry holds the live sessions of this process.
type Registry struct {
	catalog Catalog
	logger  *slog.Logger
	opts    []Option

	mu       sync.RWMutex
	sessions map[string]*Manager
}

// NewRegistry returns a registry whose sessions are built with opts.
func NewRegistry(catalog Catalog, logger *slog.Logger, opts ...Option) *Registry {
	return &Registry{
		catalog:  catalog,
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*Manager),
	}
}

func (r *Registry) Create() *Manager {
	id := uuid.NewString()
	m := NewManager(id, r.catalog, r.logger, r.opts...)

	r.mu.Lock()
	r.sessions[id] = m
	r.mu.Unlock()

	r.logger.Info("session created", "session", id)
	return m
}

func (r *Registry) Get(id string) (*Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.sessions[id]
	if !ok {
		return nil, tvekamp.ErrNotFound
	}
	return m, nil
}

func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	managers := make([]*Manager, 0, len(r.sessions))
	for _, m := range r.sessions {
		managers = append(managers, m)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(managers))
	for _, m := range managers {
		out = append(out, m.Snapshot())
	}
	slices.SortFunc(out, func(a, b Snapshot) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	m, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return tvekamp.ErrNotFound
	}
	m.Close()
	r.logger.Info("session deleted", "session", id)
	return nil
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.sessions {
		m.Close()
		delete(r.sessions, id)
	}
}
