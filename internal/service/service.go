// Package service implements the games, participants and results
// collections on top of a store.Store.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/tvekamp/internal/store"
)

const (
	keyGames        = "games"
	keyParticipants = "participants"
	keyResults      = "results"
)

type Options struct {
	// DefaultVisible is the visibility given to games created without an
	// explicit "visible" field.
	DefaultVisible bool
}

// Service serialises its own read-modify-write cycles with a mutex. Other
// processes sharing the same backend are not coordinated with: the last
// write wins.
type Service struct {
	store  store.Store
	logger *slog.Logger
	opts   Options

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

func New(s store.Store, logger *slog.Logger, opts Options) *Service {
	return &Service{
		store:  s,
		logger: logger,
		opts:   opts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// removeByID drops the element whose id matches and reports whether one did.
func removeByID[T any](items []T, id string, idOf func(T) string) ([]T, bool) {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if idOf(it) == id {
			continue
		}
		out = append(out, it)
	}
	return out, len(out) != len(items)
}

func loadCollection[T any](ctx context.Context, s store.Store, key string) ([]T, error) {
	items, err := store.Load[T](ctx, s, key)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
