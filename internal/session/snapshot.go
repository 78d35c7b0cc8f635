package session

import (
	"time"

	"github.com/playperu/tvekamp/internal/tvekamp"
)

// Snapshot is the read-only view of a session sent to clients.
type Snapshot struct {
	ID string `json:"id"`
	// Version grows with every published change. Clients drop events older
	// than the state they already hold.
	Version          uint64               `json:"version"`
	Phase            Phase                `json:"phase"`
	Wheel            []WheelSlot          `json:"wheel,omitempty"`
	TargetIndex      *int                 `json:"targetIndex,omitempty"`
	CurrentGame      *tvekamp.Game        `json:"currentGame,omitempty"`
	Web              *Side                `json:"web,omitempty"`
	Devops           *Side                `json:"devops,omitempty"`
	RemainingSeconds int                  `json:"remainingSeconds"`
	EndsAt           *time.Time           `json:"endsAt,omitempty"`
	PlayedGames      []string             `json:"playedGames"`
	UsedPlayers      []string             `json:"usedPlayers"`
	Score            map[tvekamp.Team]int `json:"score"`
	LastWinner       tvekamp.Team         `json:"lastWinner,omitempty"`
	LastResult       *tvekamp.GameResult  `json:"lastResult,omitempty"`
	Celebrating      bool                 `json:"celebrating"`
	Recording        bool                 `json:"recording,omitempty"`
	Animation        bool                 `json:"animation"`
}

type WheelSlot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Side is one team's selection state during a round.
type Side struct {
	Picked    []string `json:"picked"`
	Available []string `json:"available"`
	// Labels maps each roster name to its short display label.
	Labels  map[string]string `json:"labels"`
	Needed  int               `json:"needed"`
	Missing int               `json:"missing"`
	// Blocked is set when the unused players left cannot fill the team.
	Blocked bool `json:"blocked"`
}

func (m *Manager) side(team tvekamp.Team) Side {
	s := Side{
		Picked:    append([]string{}, m.picks[team]...),
		Available: []string{},
		Labels:    map[string]string{},
	}
	for _, name := range m.roster[team] {
		s.Labels[name] = m.labels[team][name]
		if contains(m.used, name) || contains(m.picks[tvekamp.TeamWeb], name) || contains(m.picks[tvekamp.TeamDevops], name) {
			continue
		}
		s.Available = append(s.Available, name)
	}
	if m.current == nil {
		return s
	}
	s.Needed = m.current.PlayersPerTeam
	if m.current.EveryonePlays() {
		s.Needed = len(m.roster[team])
	}
	s.Missing = max(s.Needed-len(s.Picked), 0)
	s.Blocked = len(s.Available) < s.Missing
	return s
}

// snapshot must be called with the lock held.
func (m *Manager) snapshot() Snapshot {
	now := m.now()
	s := Snapshot{
		ID:          m.id,
		Version:     m.version,
		Phase:       m.phase,
		PlayedGames: append([]string{}, m.played...),
		UsedPlayers: append([]string{}, m.used...),
		Score:       map[tvekamp.Team]int{},
		LastWinner:  m.lastWinner,
		Celebrating: m.phase == PhaseVictory && now.Before(m.celebrate),
		Recording:   m.recording,
		Animation:   m.animation,
	}
	for _, team := range tvekamp.Teams {
		s.Score[team] = m.score[team]
	}

	if m.phase == PhaseSpinning {
		for _, g := range m.wheel {
			s.Wheel = append(s.Wheel, WheelSlot{ID: g.ID, Name: g.Name})
		}
		target := m.target
		s.TargetIndex = &target
	}
	if m.current != nil {
		g := *m.current
		s.CurrentGame = &g
	}
	switch m.phase {
	case PhasePlayerSelect, PhaseActive, PhaseResult, PhaseVictory:
		web, devops := m.side(tvekamp.TeamWeb), m.side(tvekamp.TeamDevops)
		s.Web, s.Devops = &web, &devops
	}
	if m.phase == PhaseActive {
		s.RemainingSeconds = int(m.countdown.Remaining(now).Round(time.Second) / time.Second)
		ends := m.countdown.EndsAt()
		s.EndsAt = &ends
	}
	if m.lastResult != nil {
		r := *m.lastResult
		s.LastResult = &r
	}
	return s
}
