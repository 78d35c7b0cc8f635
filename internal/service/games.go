package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/playperu/tvekamp/internal/store"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

// GameRequest is the input for creating a game. Pointer fields distinguish
// "omitted" from zero so playersPerTeam=0 survives while a missing value
// gets the default.
type GameRequest struct {
	Name           string `json:"name"`
	Rules          string `json:"rules"`
	Time           *int   `json:"time,omitempty"`
	PlayersPerTeam *int   `json:"playersPerTeam,omitempty"`
	Points         *int   `json:"points,omitempty"`
	Visible        *bool  `json:"visible,omitempty"`
}

const (
	defaultGameTime       = 5
	defaultPlayersPerTeam = 1
	defaultPoints         = 1
)

func (req *GameRequest) validate(defaultVisible bool) (tvekamp.Game, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Rules = strings.TrimSpace(req.Rules)
	if req.Name == "" {
		return tvekamp.Game{}, tvekamp.Required("name")
	}
	if req.Rules == "" {
		return tvekamp.Game{}, tvekamp.Required("rules")
	}

	g := tvekamp.Game{
		Name:           req.Name,
		Rules:          req.Rules,
		Time:           defaultGameTime,
		PlayersPerTeam: defaultPlayersPerTeam,
		Points:         defaultPoints,
		Visible:        defaultVisible,
	}
	// A zero time or points means "not set", as it always has for these
	// fields; playersPerTeam keeps an explicit zero.
	if req.Time != nil && *req.Time != 0 {
		if *req.Time < 1 {
			return tvekamp.Game{}, tvekamp.Invalid("time", "must be at least 1 minute")
		}
		g.Time = *req.Time
	}
	if req.Points != nil && *req.Points != 0 {
		if *req.Points < 1 {
			return tvekamp.Game{}, tvekamp.Invalid("points", "must be at least 1")
		}
		g.Points = *req.Points
	}
	if req.PlayersPerTeam != nil {
		if *req.PlayersPerTeam < 0 {
			return tvekamp.Game{}, tvekamp.Invalid("playersPerTeam", "must not be negative")
		}
		g.PlayersPerTeam = *req.PlayersPerTeam
	}
	if req.Visible != nil {
		g.Visible = *req.Visible
	}
	return g, nil
}

func (s *Service) ListGames(ctx context.Context) ([]tvekamp.Game, error) {
	return loadCollection[tvekamp.Game](ctx, s.store, keyGames)
}

// VisibleGames returns the games that may appear on the wheel.
func (s *Service) VisibleGames(ctx context.Context) ([]tvekamp.Game, error) {
	games, err := s.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]tvekamp.Game, 0, len(games))
	for _, g := range games {
		if g.Visible {
			visible = append(visible, g)
		}
	}
	return visible, nil
}

func (s *Service) GetGame(ctx context.Context, id string) (tvekamp.Game, error) {
	games, err := s.ListGames(ctx)
	if err != nil {
		return tvekamp.Game{}, err
	}
	for _, g := range games {
		if g.ID == id {
			return g, nil
		}
	}
	return tvekamp.Game{}, tvekamp.ErrNotFound
}

func (s *Service) CreateGame(ctx context.Context, req GameRequest) (tvekamp.Game, error) {
	g, err := req.validate(s.opts.DefaultVisible)
	if err != nil {
		return tvekamp.Game{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.ListGames(ctx)
	if err != nil {
		return tvekamp.Game{}, fmt.Errorf("loading games: %w", err)
	}

	g.ID = s.newID()
	g.CreatedAt = s.timestamp()
	games = append(games, g)

	if err := store.Save(ctx, s.store, keyGames, games); err != nil {
		return tvekamp.Game{}, fmt.Errorf("saving games: %w", err)
	}
	s.logger.Info("game created", "id", g.ID, "name", g.Name, "visible", g.Visible)
	return g, nil
}

// SetGameVisibility puts a game on or takes it off the wheel.
func (s *Service) SetGameVisibility(ctx context.Context, id string, visible bool) (tvekamp.Game, error) {
	if strings.TrimSpace(id) == "" {
		return tvekamp.Game{}, tvekamp.Required("id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.ListGames(ctx)
	if err != nil {
		return tvekamp.Game{}, fmt.Errorf("loading games: %w", err)
	}

	idx := -1
	for i := range games {
		if games[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return tvekamp.Game{}, tvekamp.ErrNotFound
	}
	games[idx].Visible = visible

	if err := store.Save(ctx, s.store, keyGames, games); err != nil {
		return tvekamp.Game{}, fmt.Errorf("saving games: %w", err)
	}
	return games[idx], nil
}

func (s *Service) DeleteGame(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return tvekamp.Required("id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.ListGames(ctx)
	if err != nil {
		return fmt.Errorf("loading games: %w", err)
	}
	remaining, ok := removeByID(games, id, func(g tvekamp.Game) string { return g.ID })
	if !ok {
		return tvekamp.ErrNotFound
	}
	if err := store.Save(ctx, s.store, keyGames, remaining); err != nil {
		return fmt.Errorf("saving games: %w", err)
	}
	s.logger.Info("game deleted", "id", id)
	return nil
}
