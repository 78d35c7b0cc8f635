package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FallbackEvent describes one call the primary tier could not serve.
type FallbackEvent struct {
	Op      string    `json:"op"`
	Key     string    `json:"key"`
	Primary string    `json:"primary"`
	Err     string    `json:"error"`
	At      time.Time `json:"at"`
}

// Stats summarises how the tiered store has behaved since start.
type Stats struct {
	Primary      string         `json:"primary,omitempty"`
	Local        string         `json:"local"`
	Fallbacks    int            `json:"fallbacks"`
	Seeded       []string       `json:"seeded"`
	LastFallback *FallbackEvent `json:"lastFallback,omitempty"`
}

// Tiered tries an optional primary backend first and drops to the local
// backend for any single call the primary fails. There is no retry and no
// circuit breaker: the next call tries the primary again.
type Tiered struct {
	primary Backend
	local   Backend
	logger  *slog.Logger
	observe func(FallbackEvent)
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

type TieredOption func(*Tiered)

// WithObserver registers fn to be called synchronously for every fallback.
func WithObserver(fn func(FallbackEvent)) TieredOption {
	return func(t *Tiered) { t.observe = fn }
}

// NewTiered builds the store. primary may be nil, in which case every call
// goes straight to local.
func NewTiered(logger *slog.Logger, primary, local Backend, opts ...TieredOption) *Tiered {
	t := &Tiered{
		primary: primary,
		local:   local,
		logger:  logger,
		now:     time.Now,
	}
	t.stats.Local = local.Name()
	t.stats.Seeded = []string{}
	if primary != nil {
		t.stats.Primary = primary.Name()
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tiered) Get(ctx context.Context, key string) ([]Record, error) {
	if t.primary != nil {
		records, found, err := t.primary.Read(ctx, key)
		if err == nil && found {
			return records, nil
		}
		if err == nil {
			return t.seed(ctx, key)
		}
		t.fallback("get", key, err)
	}
	return t.readLocal(ctx, key)
}

func (t *Tiered) Set(ctx context.Context, key string, records []Record) error {
	if t.primary != nil {
		err := t.primary.Write(ctx, key, records)
		if err == nil {
			return nil
		}
		t.fallback("set", key, err)
	}
	if err := t.local.Write(ctx, key, records); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Stats returns a copy of the fallback counters.
func (t *Tiered) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Seeded = append([]string{}, t.stats.Seeded...)
	if t.stats.LastFallback != nil {
		last := *t.stats.LastFallback
		s.LastFallback = &last
	}
	return s
}

// seed copies the local data into a primary that has never seen key. An
// empty local collection is not copied, so the primary is seeded on the
// first read that has something to give it.
func (t *Tiered) seed(ctx context.Context, key string) ([]Record, error) {
	records, err := t.readLocal(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}
	if err := t.primary.Write(ctx, key, records); err != nil {
		t.fallback("seed", key, err)
		return records, nil
	}

	t.mu.Lock()
	t.stats.Seeded = append(t.stats.Seeded, key)
	t.mu.Unlock()
	t.logger.Info("seeded primary store", "primary", t.primary.Name(), "key", key, "records", len(records))
	return records, nil
}

func (t *Tiered) readLocal(ctx context.Context, key string) ([]Record, error) {
	records, _, err := t.local.Read(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (t *Tiered) fallback(op, key string, err error) {
	ev := FallbackEvent{
		Op:      op,
		Key:     key,
		Primary: t.primary.Name(),
		Err:     err.Error(),
		At:      t.now().UTC(),
	}

	t.mu.Lock()
	t.stats.Fallbacks++
	t.stats.LastFallback = &ev
	t.mu.Unlock()

	t.logger.Warn("primary store failed, using local",
		"op", op,
		"key", key,
		"primary", ev.Primary,
		"local", t.local.Name(),
		"error", err,
	)
	if t.observe != nil {
		t.observe(ev)
	}
}
