package tvekamp

import (
	"sort"
	"strings"
)

// TeamScore is one side of the scoreboard.
type TeamScore struct {
	Wins       int `json:"wins"`
	Points     int `json:"points"`
	AuraPoints int `json:"auraPoints"`
}

type Scoreboard struct {
	Web    TeamScore `json:"web"`
	Devops TeamScore `json:"devops"`
	Played int       `json:"played"`
}

// NewScoreboard reduces the result history and the current participant list
// into per-team totals. Points come from the results, aura from participants.
func NewScoreboard(results []GameResult, participants []Participant) Scoreboard {
	var sb Scoreboard
	for _, r := range results {
		if s := sb.side(r.Winner); s != nil {
			s.Wins++
			s.Points += r.Points
		}
		sb.Played++
	}
	for _, p := range participants {
		if s := sb.side(p.Team); s != nil {
			s.AuraPoints += p.AuraPoints
		}
	}
	return sb
}

func (sb *Scoreboard) side(t Team) *TeamScore {
	switch t {
	case TeamWeb:
		return &sb.Web
	case TeamDevops:
		return &sb.Devops
	}
	return nil
}

// DisplayNames maps participant ids to a short label. First names are used
// on their own unless two participants share one, in which case the last
// name's initial is appended ("Kari N."). Participants with identical full
// names keep identical labels.
func DisplayNames(participants []Participant) map[string]string {
	byFirst := make(map[string][]Participant)
	for _, p := range participants {
		first, _ := splitName(p.Name)
		byFirst[first] = append(byFirst[first], p)
	}

	labels := make(map[string]string, len(participants))
	for first, group := range byFirst {
		if len(group) == 1 {
			labels[group[0].ID] = first
			continue
		}
		for _, p := range group {
			_, last := splitName(p.Name)
			if last == "" {
				labels[p.ID] = first
				continue
			}
			labels[p.ID] = first + " " + string([]rune(last)[:1]) + "."
		}
	}
	return labels
}

// OnTeam filters participants down to one team, sorted by name.
func OnTeam(participants []Participant, team Team) []Participant {
	var out []Participant
	for _, p := range participants {
		if p.Team == team {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[len(fields)-1]
}
