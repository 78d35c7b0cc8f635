package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playperu/tvekamp/internal/store"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

type ResultRequest struct {
	GameID        string         `json:"gameId"`
	GameName      string         `json:"gameName"`
	Winner        tvekamp.Team   `json:"winner"`
	WebPlayers    tvekamp.Roster `json:"webPlayers"`
	DevopsPlayers tvekamp.Roster `json:"devopsPlayers"`
	Points        int            `json:"points,omitempty"`
}

func (req *ResultRequest) validate() error {
	req.GameID = strings.TrimSpace(req.GameID)
	req.GameName = strings.TrimSpace(req.GameName)
	if req.GameID == "" {
		return tvekamp.Required("gameId")
	}
	if req.GameName == "" {
		return tvekamp.Required("gameName")
	}
	if req.Winner == "" {
		return tvekamp.Required("winner")
	}
	if !req.Winner.Valid() {
		return tvekamp.Invalid("winner", "must be web or devops")
	}
	if len(req.WebPlayers) == 0 {
		return tvekamp.Required("webPlayers")
	}
	if len(req.DevopsPlayers) == 0 {
		return tvekamp.Required("devopsPlayers")
	}
	if req.Points < 0 {
		return tvekamp.Invalid("points", "must be at least 1")
	}
	if req.Points == 0 {
		req.Points = defaultPoints
	}
	return nil
}

func (s *Service) ListResults(ctx context.Context) ([]tvekamp.GameResult, error) {
	return loadCollection[tvekamp.GameResult](ctx, s.store, keyResults)
}

// CreateResult stores a result and credits the winners' aura points.
//
// Participants are written first and the result second; if the result write
// fails the participants written a moment ago are put back. Another process
// writing in between can still be overwritten.
func (s *Service) CreateResult(ctx context.Context, req ResultRequest) (tvekamp.GameResult, error) {
	if err := req.validate(); err != nil {
		return tvekamp.GameResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.ListResults(ctx)
	if err != nil {
		return tvekamp.GameResult{}, fmt.Errorf("loading results: %w", err)
	}
	participants, err := s.ListParticipants(ctx)
	if err != nil {
		return tvekamp.GameResult{}, fmt.Errorf("loading participants: %w", err)
	}

	r := tvekamp.GameResult{
		ID:            s.newID(),
		GameID:        req.GameID,
		GameName:      req.GameName,
		Winner:        req.Winner,
		WebPlayers:    req.WebPlayers,
		DevopsPlayers: req.DevopsPlayers,
		Points:        req.Points,
		Timestamp:     s.timestamp(),
	}

	credited, credits := creditAura(participants, r)
	if credits > 0 {
		if err := store.Save(ctx, s.store, keyParticipants, credited); err != nil {
			return tvekamp.GameResult{}, fmt.Errorf("saving participants: %w", err)
		}
	}

	if err := store.Save(ctx, s.store, keyResults, append(results, r)); err != nil {
		if credits > 0 {
			if rerr := store.Save(ctx, s.store, keyParticipants, participants); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restoring participants: %w", rerr))
			}
		}
		return tvekamp.GameResult{}, fmt.Errorf("saving results: %w", err)
	}

	s.logger.Info("result recorded",
		"id", r.ID,
		"game", r.GameName,
		"winner", r.Winner,
		"points", r.Points,
		"credited", credits,
	)
	return r, nil
}

// creditAura returns a copy of participants where every member of the
// winning team named on the winning roster has gained the result's points.
func creditAura(participants []tvekamp.Participant, r tvekamp.GameResult) ([]tvekamp.Participant, int) {
	winners := r.Players(r.Winner)
	out := make([]tvekamp.Participant, len(participants))
	copy(out, participants)

	credits := 0
	for i := range out {
		if out[i].Team != r.Winner || !winners.Contains(out[i].Name) {
			continue
		}
		out[i].AuraPoints += r.Points
		credits++
	}
	return out, credits
}

// ClearResults wipes the history. Aura points already credited stay.
func (s *Service) ClearResults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := store.Save(ctx, s.store, keyResults, []tvekamp.GameResult{}); err != nil {
		return fmt.Errorf("clearing results: %w", err)
	}
	s.logger.Info("results cleared")
	return nil
}

func (s *Service) Scoreboard(ctx context.Context) (tvekamp.Scoreboard, error) {
	results, err := s.ListResults(ctx)
	if err != nil {
		return tvekamp.Scoreboard{}, fmt.Errorf("loading results: %w", err)
	}
	participants, err := s.ListParticipants(ctx)
	if err != nil {
		return tvekamp.Scoreboard{}, fmt.Errorf("loading participants: %w", err)
	}
	return tvekamp.NewScoreboard(results, participants), nil
}
