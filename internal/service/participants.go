package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/playperu/tvekamp/internal/store"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

type ParticipantRequest struct {
	Name       string       `json:"name"`
	Team       tvekamp.Team `json:"team"`
	FunFact    string       `json:"funFact,omitempty"`
	Superpower string       `json:"superpower,omitempty"`
	ImageURL   string       `json:"imageUrl,omitempty"`
}

func (req *ParticipantRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.FunFact = strings.TrimSpace(req.FunFact)
	req.Superpower = strings.TrimSpace(req.Superpower)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.Name == "" {
		return tvekamp.Required("name")
	}
	if req.Team == "" {
		return tvekamp.Required("team")
	}
	if !req.Team.Valid() {
		return tvekamp.Invalid("team", "must be web or devops")
	}
	return nil
}

func (s *Service) ListParticipants(ctx context.Context) ([]tvekamp.Participant, error) {
	return loadCollection[tvekamp.Participant](ctx, s.store, keyParticipants)
}

func (s *Service) CreateParticipant(ctx context.Context, req ParticipantRequest) (tvekamp.Participant, error) {
	if err := req.validate(); err != nil {
		return tvekamp.Participant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.ListParticipants(ctx)
	if err != nil {
		return tvekamp.Participant{}, fmt.Errorf("loading participants: %w", err)
	}

	p := tvekamp.Participant{
		ID:         s.newID(),
		Name:       req.Name,
		Team:       req.Team,
		FunFact:    req.FunFact,
		Superpower: req.Superpower,
		ImageURL:   req.ImageURL,
		CreatedAt:  s.timestamp(),
	}
	participants = append(participants, p)

	if err := store.Save(ctx, s.store, keyParticipants, participants); err != nil {
		return tvekamp.Participant{}, fmt.Errorf("saving participants: %w", err)
	}
	s.logger.Info("participant created", "id", p.ID, "team", p.Team)
	return p, nil
}

func (s *Service) DeleteParticipant(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return tvekamp.Required("id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.ListParticipants(ctx)
	if err != nil {
		return fmt.Errorf("loading participants: %w", err)
	}
	remaining, ok := removeByID(participants, id, func(p tvekamp.Participant) string { return p.ID })
	if !ok {
		return tvekamp.ErrNotFound
	}
	if err := store.Save(ctx, s.store, keyParticipants, remaining); err != nil {
		return fmt.Errorf("saving participants: %w", err)
	}
	s.logger.Info("participant deleted", "id", id)
	return nil
}
