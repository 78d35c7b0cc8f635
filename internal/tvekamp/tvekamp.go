// Package tvekamp defines the event's record types and the rules that hold
// for them regardless of where they are stored.
package tvekamp

import (
	"encoding/json"
	"strings"
	"time"
)

type Team string

const (
	TeamWeb    Team = "web"
	TeamDevops Team = "devops"
)

// Teams lists both sides in display order.
var Teams = []Team{TeamWeb, TeamDevops}

func (t Team) Valid() bool {
	return t == TeamWeb || t == TeamDevops
}

type Game struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Rules          string    `json:"rules"`
	Time           int       `json:"time"`
	PlayersPerTeam int       `json:"playersPerTeam"`
	Points         int       `json:"points"`
	Visible        bool      `json:"visible"`
	CreatedAt      time.Time `json:"createdAt"`
}

// EveryonePlays reports whether the whole roster of each team takes part.
func (g Game) EveryonePlays() bool {
	return g.PlayersPerTeam == 0
}

// Duration is the match length.
func (g Game) Duration() time.Duration {
	return time.Duration(g.Time) * time.Minute
}

type Participant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Team       Team      `json:"team"`
	FunFact    string    `json:"funFact"`
	Superpower string    `json:"superpower"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	AuraPoints int       `json:"auraPoints"`
	CreatedAt  time.Time `json:"createdAt"`
}

type GameResult struct {
	ID            string    `json:"id"`
	GameID        string    `json:"gameId"`
	GameName      string    `json:"gameName"`
	Winner        Team      `json:"winner"`
	WebPlayers    Roster    `json:"webPlayers"`
	DevopsPlayers Roster    `json:"devopsPlayers"`
	Points        int       `json:"points"`
	Timestamp     time.Time `json:"timestamp"`
}

// Players returns the roster that played for team.
func (r GameResult) Players(team Team) Roster {
	if team == TeamWeb {
		return r.WebPlayers
	}
	return r.DevopsPlayers
}

// Roster is an ordered list of participant names.
//
// Older data files stored rosters as a single comma-joined string; those
// still decode, but rosters are always written back as arrays.
type Roster []string

func (r *Roster) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		*r = Roster(names).clean()
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*r = Roster(strings.Split(joined, ",")).clean()
	return nil
}

func (r Roster) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(r))
}

// Contains reports whether name is on the roster.
func (r Roster) Contains(name string) bool {
	for _, n := range r {
		if n == name {
			return true
		}
	}
	return false
}

func (r Roster) String() string {
	return strings.Join(r, ", ")
}

func (r Roster) clean() Roster {
	out := make(Roster, 0, len(r))
	for _, n := range r {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
