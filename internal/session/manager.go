package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/playperu/tvekamp/internal/service"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

// Catalog is the part of the CRUD service a session reads from and reports
// results to.
type Catalog interface {
	VisibleGames(ctx context.Context) ([]tvekamp.Game, error)
	ListParticipants(ctx context.Context) ([]tvekamp.Participant, error)
	CreateResult(ctx context.Context, req service.ResultRequest) (tvekamp.GameResult, error)
}

// Rand picks the wheel target and drawn players.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type stopper interface {
	Stop() bool
}

const DefaultCelebration = 3 * time.Second

type Option func(*Manager)

func WithRand(r Rand) Option {
	return func(m *Manager) { m.rand = r }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCelebration sets how long the victory animation flag stays on.
func WithCelebration(d time.Duration) Option {
	return func(m *Manager) { m.celebration = d }
}

// WithNotify registers fn to receive a snapshot after every change. It is
// called with the session lock held, in Version order, and must not call
// back into the Manager.
func WithNotify(fn func(Snapshot)) Option {
	return func(m *Manager) { m.notify = fn }
}

// WithOnClose registers fn to run once when the session is closed.
func WithOnClose(fn func(id string)) Option {
	return func(m *Manager) { m.onClose = fn }
}

func withAfterFunc(fn func(time.Duration, func()) stopper) Option {
	return func(m *Manager) { m.afterFunc = fn }
}

// Manager owns the state of one session. All methods are safe for
// concurrent use.
type Manager struct {
	id          string
	catalog     Catalog
	logger      *slog.Logger
	rand        Rand
	now         func() time.Time
	celebration time.Duration
	notify      func(Snapshot)
	onClose     func(string)
	afterFunc   func(time.Duration, func()) stopper

	mu        sync.Mutex
	version   uint64
	closed    bool
	phase     Phase
	wheel     []tvekamp.Game
	target    int
	current   *tvekamp.Game
	roster    map[tvekamp.Team][]string
	labels    map[tvekamp.Team]map[string]string
	picks     map[tvekamp.Team][]string
	countdown Countdown
	timer     stopper
	matchSeq  int
	recording bool

	played     []string
	used       []string
	score      map[tvekamp.Team]int
	lastWinner tvekamp.Team
	lastResult *tvekamp.GameResult
	celebrate  time.Time
	animation  bool
}

func NewManager(id string, catalog Catalog, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		id:          id,
		catalog:     catalog,
		logger:      logger.With("session", id),
		rand:        globalRand{},
		now:         time.Now,
		celebration: DefaultCelebration,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		phase:     PhaseIdle,
		score:     map[tvekamp.Team]int{},
		animation: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) ID() string {
	return m.id
}

// mutate runs fn under the lock and publishes the resulting snapshot when
// fn succeeded or moved the phase.
func (m *Manager) mutate(fn func() error) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.advance()
	before := m.phase
	err := fn()
	if err == nil || m.phase != before {
		return m.publish(), err
	}
	return m.snapshot(), err
}

// publish bumps the version and hands the new state to the notify hook. The
// lock must be held so subscribers see versions in order.
func (m *Manager) publish() Snapshot {
	m.version++
	snap := m.snapshot()
	if m.notify != nil {
		m.notify(snap)
	}
	return snap
}

// advance applies changes that are due purely to time passing.
func (m *Manager) advance() {
	if m.phase == PhaseActive && m.countdown.Expired(m.now()) {
		m.stopTimer()
		m.phase = PhaseResult
	}
}

func (m *Manager) transition(to Phase) error {
	if !m.phase.CanTransitionTo(to) {
		return &TransitionError{From: m.phase, To: to}
	}
	m.phase = to
	return nil
}

func (m *Manager) require(want Phase, to Phase) error {
	if m.phase != want {
		return &TransitionError{From: m.phase, To: to}
	}
	return nil
}

// Wheel returns the games the next spin can land on.
func (m *Manager) Wheel(ctx context.Context) ([]tvekamp.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eligible(ctx)
}

func (m *Manager) eligible(ctx context.Context) ([]tvekamp.Game, error) {
	games, err := m.catalog.VisibleGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading games: %w", err)
	}
	out := games[:0:0]
	for _, g := range games {
		if !contains(m.played, g.ID) {
			out = append(out, g)
		}
	}
	return out, nil
}

// Spin draws the wheel target up front and takes a snapshot of the
// participants for the round.
func (m *Manager) Spin(ctx context.Context) (Snapshot, error) {
	return m.mutate(func() error {
		if !m.phase.CanTransitionTo(PhaseSpinning) {
			return &TransitionError{From: m.phase, To: PhaseSpinning}
		}
		wheel, err := m.eligible(ctx)
		if err != nil {
			return err
		}
		if len(wheel) == 0 {
			return ErrNoEligibleGames
		}
		participants, err := m.catalog.ListParticipants(ctx)
		if err != nil {
			return fmt.Errorf("loading participants: %w", err)
		}

		m.wheel = wheel
		m.target = m.rand.IntN(len(wheel))
		m.roster, m.labels = rosterByTeam(participants)
		m.picks = nil
		m.lastWinner = ""
		m.lastResult = nil
		m.phase = PhaseSpinning
		m.logger.Info("wheel spinning", "eligible", len(wheel), "target", wheel[m.target].Name)
		return nil
	})
}

// Land stops the wheel on the game drawn by Spin.
func (m *Manager) Land() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.transition(PhaseReveal); err != nil {
			return err
		}
		g := m.wheel[m.target]
		m.current = &g
		return nil
	})
}

// Continue leaves the reveal screen. Games where everyone plays start right
// away with both full rosters.
func (m *Manager) Continue() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.require(PhaseReveal, PhasePlayerSelect); err != nil {
			return err
		}
		if !m.current.EveryonePlays() {
			m.picks = map[tvekamp.Team][]string{}
			return m.transition(PhasePlayerSelect)
		}
		for _, team := range tvekamp.Teams {
			if len(m.roster[team]) == 0 {
				return fmt.Errorf("%s: %w", team, ErrNoPlayersAvailable)
			}
		}
		for _, name := range m.roster[tvekamp.TeamWeb] {
			if contains(m.roster[tvekamp.TeamDevops], name) {
				return fmt.Errorf("%q: %w", name, ErrNameOnBothTeams)
			}
		}
		m.picks = map[tvekamp.Team][]string{
			tvekamp.TeamWeb:    slices.Clone(m.roster[tvekamp.TeamWeb]),
			tvekamp.TeamDevops: slices.Clone(m.roster[tvekamp.TeamDevops]),
		}
		return m.startMatch()
	})
}

// Skip abandons the revealed game without marking it played.
func (m *Manager) Skip() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.require(PhaseReveal, PhaseIdle); err != nil {
			return err
		}
		m.clearRound()
		m.phase = PhaseIdle
		return nil
	})
}

// Back returns from player selection to the reveal, dropping any picks.
func (m *Manager) Back() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.require(PhasePlayerSelect, PhaseReveal); err != nil {
			return err
		}
		m.picks = nil
		return m.transition(PhaseReveal)
	})
}

// Draw picks one random available player for team.
func (m *Manager) Draw(team tvekamp.Team) (string, Snapshot, error) {
	var name string
	snap, err := m.mutate(func() error {
		if err := m.checkSelecting(team); err != nil {
			return err
		}
		side := m.side(team)
		if side.Blocked {
			return fmt.Errorf("%s: %w", team, ErrNoPlayersAvailable)
		}
		if side.Missing == 0 {
			return fmt.Errorf("%s: %w", team, ErrTeamFull)
		}
		name = side.Available[m.rand.IntN(len(side.Available))]
		m.picks[team] = append(m.picks[team], name)
		return nil
	})
	return name, snap, err
}

// Pick adds a named player to team.
func (m *Manager) Pick(team tvekamp.Team, name string) (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.checkSelecting(team); err != nil {
			return err
		}
		side := m.side(team)
		if side.Missing == 0 {
			return fmt.Errorf("%s: %w", team, ErrTeamFull)
		}
		if !contains(side.Available, name) {
			return tvekamp.Invalid("name", "is not available for "+string(team))
		}
		m.picks[team] = append(m.picks[team], name)
		return nil
	})
}

func (m *Manager) Unpick(team tvekamp.Team, name string) (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.checkSelecting(team); err != nil {
			return err
		}
		picked, ok := without(m.picks[team], name)
		if !ok {
			return tvekamp.Invalid("name", "is not picked for "+string(team))
		}
		m.picks[team] = picked
		return nil
	})
}

// Confirm starts the match once both sides are full.
func (m *Manager) Confirm() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.require(PhasePlayerSelect, PhaseActive); err != nil {
			return err
		}
		for _, team := range tvekamp.Teams {
			if n := len(m.picks[team]); n != m.current.PlayersPerTeam {
				return tvekamp.Invalid(string(team), fmt.Sprintf("needs %d players, has %d", m.current.PlayersPerTeam, n))
			}
		}
		return m.startMatch()
	})
}

// SelectPlayers replaces both sides at once and starts the match. Nothing
// changes unless every name is valid.
func (m *Manager) SelectPlayers(web, devops []string) (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.require(PhasePlayerSelect, PhaseActive); err != nil {
			return err
		}
		want := map[tvekamp.Team][]string{tvekamp.TeamWeb: web, tvekamp.TeamDevops: devops}
		var seen []string
		for _, team := range tvekamp.Teams {
			names := want[team]
			field := string(team) + "Players"
			if len(names) != m.current.PlayersPerTeam {
				return tvekamp.Invalid(field, fmt.Sprintf("needs %d players, has %d", m.current.PlayersPerTeam, len(names)))
			}
			for _, name := range names {
				switch {
				case contains(seen, name):
					return tvekamp.Invalid(field, name+" is selected twice")
				case !contains(m.roster[team], name):
					return tvekamp.Invalid(field, name+" is not on "+string(team))
				case contains(m.used, name):
					return tvekamp.Invalid(field, name+" has already played")
				}
				seen = append(seen, name)
			}
		}
		m.picks = map[tvekamp.Team][]string{
			tvekamp.TeamWeb:    append([]string(nil), web...),
			tvekamp.TeamDevops: append([]string(nil), devops...),
		}
		return m.startMatch()
	})
}

func (m *Manager) checkSelecting(team tvekamp.Team) error {
	if m.phase != PhasePlayerSelect {
		return &TransitionError{From: m.phase, To: PhasePlayerSelect}
	}
	if !team.Valid() {
		return tvekamp.Invalid("team", "must be web or devops")
	}
	return nil
}

func (m *Manager) startMatch() error {
	if err := m.transition(PhaseActive); err != nil {
		return err
	}
	m.countdown = Countdown{Duration: m.current.Duration(), StartedAt: m.now()}
	m.matchSeq++
	seq := m.matchSeq
	m.timer = m.afterFunc(m.countdown.Duration, func() { m.expire(seq) })
	m.logger.Info("match started",
		"game", m.current.Name,
		"web", len(m.picks[tvekamp.TeamWeb]),
		"devops", len(m.picks[tvekamp.TeamDevops]),
		"duration", m.countdown.Duration,
	)
	return nil
}

// expire is the timer callback. A stale timer from an earlier match does
// nothing.
func (m *Manager) expire(seq int) {
	m.mu.Lock()
	if seq != m.matchSeq || m.phase != PhaseActive {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.phase = PhaseResult
	m.publish()
	m.mu.Unlock()

	m.logger.Info("countdown ended")
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Finish ends the match before the countdown runs out.
func (m *Manager) Finish() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.transition(PhaseResult); err != nil {
			return err
		}
		m.stopTimer()
		return nil
	})
}

// DeclareWinner records the result. The write happens outside the session
// lock; while it runs the round stays in result and other attempts to
// declare or reset fail with ErrRoundInProgress. If recording fails the round
// is abandoned and the session goes back to idle with nothing marked played.
func (m *Manager) DeclareWinner(ctx context.Context, team tvekamp.Team) (Snapshot, error) {
	var req service.ResultRequest
	snap, err := m.mutate(func() error {
		if err := m.require(PhaseResult, PhaseVictory); err != nil {
			return err
		}
		if m.recording {
			return fmt.Errorf("%w: result is being recorded", ErrRoundInProgress)
		}
		if !team.Valid() {
			return tvekamp.Invalid("winner", "must be web or devops")
		}
		req = service.ResultRequest{
			GameID:        m.current.ID,
			GameName:      m.current.Name,
			Winner:        team,
			WebPlayers:    slices.Clone(m.picks[tvekamp.TeamWeb]),
			DevopsPlayers: slices.Clone(m.picks[tvekamp.TeamDevops]),
			Points:        m.current.Points,
		}
		m.recording = true
		return nil
	})
	if err != nil {
		return snap, err
	}

	r, recErr := m.catalog.CreateResult(ctx, req)

	return m.mutate(func() error {
		m.recording = false
		g := m.current
		if recErr != nil {
			m.logger.Error("recording result failed", "game", g.Name, "error", recErr)
			m.clearRound()
			m.phase = PhaseIdle
			return fmt.Errorf("recording result: %w", recErr)
		}

		m.played = append(m.played, g.ID)
		if !g.EveryonePlays() {
			for _, t := range tvekamp.Teams {
				m.used = append(m.used, m.picks[t]...)
			}
		}
		m.score[team] += r.Points
		m.lastWinner = team
		m.lastResult = &r
		m.celebrate = m.now().Add(m.celebration)
		m.phase = PhaseVictory
		m.logger.Info("winner declared", "game", g.Name, "winner", team, "points", r.Points)
		return nil
	})
}

// Dismiss leaves the victory screen.
func (m *Manager) Dismiss() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.transition(PhaseIdle); err != nil {
			return err
		}
		m.clearRound()
		return nil
	})
}

// Reset abandons whatever round is in progress. Played games, used players
// and the score are kept.
func (m *Manager) Reset() (Snapshot, error) {
	return m.mutate(func() error {
		if m.recording {
			return fmt.Errorf("%w: result is being recorded", ErrRoundInProgress)
		}
		m.stopTimer()
		m.clearRound()
		m.phase = PhaseIdle
		return nil
	})
}

func (m *Manager) clearRound() {
	m.stopTimer()
	m.wheel = nil
	m.target = 0
	m.current = nil
	m.roster = nil
	m.labels = nil
	m.picks = nil
	m.countdown = Countdown{}
	m.lastWinner = ""
	m.lastResult = nil
	m.celebrate = time.Time{}
}

func (m *Manager) checkPoolsEditable() error {
	if m.phase != PhaseIdle && m.phase != PhaseVictory {
		return fmt.Errorf("%w: session is %s", ErrRoundInProgress, m.phase)
	}
	return nil
}

// ReturnGame puts a played game back on the wheel.
func (m *Manager) ReturnGame(id string) (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.checkPoolsEditable(); err != nil {
			return err
		}
		played, ok := without(m.played, id)
		if !ok {
			return tvekamp.ErrNotFound
		}
		m.played = played
		return nil
	})
}

func (m *Manager) ResetGames() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.checkPoolsEditable(); err != nil {
			return err
		}
		m.played = nil
		return nil
	})
}

// ReturnPlayer makes a used player selectable again.
func (m *Manager) ReturnPlayer(name string) (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.checkPoolsEditable(); err != nil {
			return err
		}
		used, ok := without(m.used, name)
		if !ok {
			return tvekamp.ErrNotFound
		}
		m.used = used
		return nil
	})
}

func (m *Manager) ResetPlayers() (Snapshot, error) {
	return m.mutate(func() error {
		if err := m.checkPoolsEditable(); err != nil {
			return err
		}
		m.used = nil
		return nil
	})
}

// ToggleAnimation flips the wheel animation preference.
func (m *Manager) ToggleAnimation() (Snapshot, error) {
	return m.mutate(func() error {
		m.animation = !m.animation
		return nil
	})
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	return m.snapshot()
}

// Close stops the countdown timer and runs the close hook. Later calls do
// nothing.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopTimer()
	first := !m.closed
	m.closed = true
	m.mu.Unlock()

	if first && m.onClose != nil {
		m.onClose(m.id)
	}
}

// rosterByTeam returns the distinct participant names per team and the
// display label of each name.
func rosterByTeam(participants []tvekamp.Participant) (map[tvekamp.Team][]string, map[tvekamp.Team]map[string]string) {
	display := tvekamp.DisplayNames(participants)
	names := map[tvekamp.Team][]string{}
	labels := map[tvekamp.Team]map[string]string{}
	for _, team := range tvekamp.Teams {
		labels[team] = map[string]string{}
		for _, p := range tvekamp.OnTeam(participants, team) {
			if contains(names[team], p.Name) {
				continue
			}
			names[team] = append(names[team], p.Name)
			labels[team][p.Name] = display[p.ID]
		}
	}
	return names, labels
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// without returns list with the first occurrence of s removed.
func without(list []string, s string) ([]string, bool) {
	for i, v := range list {
		if v == s {
			out := make([]string, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}
