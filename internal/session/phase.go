// Package session runs the wheel-driven match flow for one client. Sessions
// live in memory only; the durable score is the results collection.
package session

import (
	"errors"
	"fmt"
)

// Phase is the stage of the current round.
type Phase string

const (
	PhaseIdle         Phase = "idle"          // Waiting for a spin
	PhaseSpinning     Phase = "spinning"      // Wheel turning, target already drawn
	PhaseReveal       Phase = "reveal"        // Game shown with its rules
	PhasePlayerSelect Phase = "player-select" // Drawing or choosing players
	PhaseActive       Phase = "active"        // Countdown running
	PhaseResult       Phase = "result"        // Waiting for the winner
	PhaseVictory      Phase = "victory"       // Winner celebrated
)

var transitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseSpinning},
	PhaseSpinning:     {PhaseReveal},
	PhaseReveal:       {PhasePlayerSelect, PhaseActive, PhaseIdle},
	PhasePlayerSelect: {PhaseActive, PhaseReveal},
	PhaseActive:       {PhaseResult},
	PhaseResult:       {PhaseVictory},
	PhaseVictory:      {PhaseIdle},
}

func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo reports whether the flow allows moving from p to target.
// Reset is handled separately and may return to idle from anywhere.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range transitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

var (
	ErrInvalidTransition  = errors.New("invalid phase transition")
	ErrNoEligibleGames    = errors.New("no eligible games left on the wheel")
	ErrNoPlayersAvailable = errors.New("no players available")
	ErrTeamFull           = errors.New("team already has enough players")
	ErrRoundInProgress    = errors.New("round in progress")
	ErrNameOnBothTeams    = errors.New("same name on both teams")
)

// TransitionError is returned when an operation is not allowed in the
// current phase.
type TransitionError struct {
	From Phase
	To   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot go from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
