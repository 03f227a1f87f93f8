// Package ludo implements the rule engine: move legality, the turn state
// machine, capture and win detection, and single-step undo.
package ludo

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/ludo/internal/game/board"
)

// Setup selects the seating for a new game.
type Setup struct {
	// Players is the number of active teams: 2, 3, or 4.
	Players int
	// PairMode pits red+green against blue+yellow. It always seats 4 teams.
	PairMode bool
}

// DefaultSetup is a four-player solo game.
func DefaultSetup() Setup {
	return Setup{Players: 4}
}

// GameSession is the mutable game aggregate.
//
// It is not safe for concurrent use; Engine serializes access to it.
type GameSession struct {
	Layout *board.Layout
	Board  *board.Board

	CurrentTurn board.Team
	TurnIndex   int
	ActiveTeams []board.Team

	Finished    map[board.Team]bool
	TeamsToSkip map[board.Team]bool
	HasKilled   map[board.Team]bool

	Winners         []board.Team
	PairWinnerOrder []string

	PairMode bool
	GameOver bool
	Reversed bool

	PendingRolls int
	MoveBank     []int
	SelectedBank int

	// Counter is the next arrival stamp to hand out.
	Counter int
}

// NewGameSession creates a session on layout l seated according to setup.
//
// Precondition: l must be non-nil.
// Postcondition: Returns a session with every active pawn at its home cell,
// or an error for an invalid setup.
func NewGameSession(l *board.Layout, setup Setup) (*GameSession, error) {
	s := &GameSession{Layout: l}
	if err := s.Reset(setup); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset re-initializes the whole aggregate for a new game.
//
// Postcondition: An invalid setup leaves the session unchanged.
func (s *GameSession) Reset(setup Setup) error {
	players := setup.Players
	if setup.PairMode {
		players = len(board.TurnOrder)
	}
	teams, err := board.ActiveTeamsFor(players)
	if err != nil {
		return fmt.Errorf("resetting game: %w", err)
	}

	s.Board = board.NewBoard(s.Layout)
	s.ActiveTeams = teams
	s.TurnIndex = 0
	s.CurrentTurn = teams[0]
	s.Finished = make(map[board.Team]bool)
	s.TeamsToSkip = make(map[board.Team]bool)
	s.HasKilled = make(map[board.Team]bool)
	s.Winners = nil
	s.PairWinnerOrder = nil
	s.PairMode = setup.PairMode
	s.GameOver = false
	s.Reversed = false
	s.PendingRolls = 1
	s.MoveBank = nil
	s.SelectedBank = -1
	s.Counter = 0

	for _, team := range teams {
		home := s.Layout.Home(team)
		for i := range board.PawnsPerTeam {
			p := board.Pawn{ID: board.PawnID(team, i), Team: team, Arrival: s.nextArrival()}
			if err := s.Board.Place(home, p); err != nil {
				return fmt.Errorf("placing %s: %w", p.ID, err)
			}
		}
	}
	return nil
}

// Setup returns the seating the session was last reset with.
func (s *GameSession) Setup() Setup {
	return Setup{Players: len(s.ActiveTeams), PairMode: s.PairMode}
}

func (s *GameSession) nextArrival() int {
	n := s.Counter
	s.Counter++
	return n
}

// EffectiveTeam returns the team whose pawns team moves. In Pair mode a
// finished team plays its partner's pawns.
func (s *GameSession) EffectiveTeam(team board.Team) board.Team {
	if s.PairMode && s.Finished[team] {
		return board.Partner(team)
	}
	return team
}

// Standings returns the finishing order as display names: team names in
// solo mode, pair names in Pair mode.
func (s *GameSession) Standings() []string {
	if s.PairMode {
		return slices.Clone(s.PairWinnerOrder)
	}
	out := make([]string, len(s.Winners))
	for i, t := range s.Winners {
		out[i] = string(t)
	}
	return out
}

// IsActive reports whether team is seated in this game.
func (s *GameSession) IsActive(team board.Team) bool {
	return slices.Contains(s.ActiveTeams, team)
}

// advanceTurn moves the turn to the next eligible team and resets the roll
// state for it. It is a no-op once the game is over.
func (s *GameSession) advanceTurn() {
	if s.GameOver {
		return
	}
	n := len(s.ActiveTeams)
	// Every pass either consumes a skip flag or passes a finished team, so
	// two laps are always enough.
	for range 2*n + 1 {
		if s.Reversed {
			s.TurnIndex = (s.TurnIndex - 1 + n) % n
		} else {
			s.TurnIndex = (s.TurnIndex + 1) % n
		}
		next := s.ActiveTeams[s.TurnIndex]
		if s.PairMode && s.TeamsToSkip[next] {
			s.TeamsToSkip[next] = false
			continue
		}
		if !s.PairMode && s.Finished[next] {
			continue
		}
		break
	}
	s.CurrentTurn = s.ActiveTeams[s.TurnIndex]
	s.resetRolls()
}

// manualTurnChange moves the turn by offset, skipping finished teams in solo
// mode only.
func (s *GameSession) manualTurnChange(offset int) {
	n := len(s.ActiveTeams)
	idx := s.TurnIndex
	for skipped := 0; ; skipped++ {
		idx = ((idx+offset)%n + n) % n
		if s.PairMode || !s.Finished[s.ActiveTeams[idx]] || skipped >= n {
			break
		}
	}
	s.TurnIndex = idx
	s.CurrentTurn = s.ActiveTeams[idx]
	s.resetRolls()
}

func (s *GameSession) resetRolls() {
	s.MoveBank = nil
	s.PendingRolls = 1
	s.SelectedBank = -1
}

// consumeSelected removes the selected bank entry and selects the first
// remaining one, if any.
func (s *GameSession) consumeSelected() {
	if s.SelectedBank < 0 || s.SelectedBank >= len(s.MoveBank) {
		return
	}
	s.MoveBank = slices.Delete(s.MoveBank, s.SelectedBank, s.SelectedBank+1)
	s.SelectedBank = -1
	if len(s.MoveBank) > 0 {
		s.SelectedBank = 0
	}
}

// finishTeam records team reaching the off-board area with all of its pawns.
//
// Postcondition: Returns true when the game ended as a result.
func (s *GameSession) finishTeam(team board.Team) bool {
	s.Finished[team] = true
	if s.PairMode {
		s.TeamsToSkip[team] = true
		if !s.Finished[board.Partner(team)] {
			return false
		}
		s.GameOver = true
		winner := board.PairName(team)
		other := board.PairName(board.Blue)
		if winner == other {
			other = board.PairName(board.Red)
		}
		for _, name := range []string{winner, other} {
			if !slices.Contains(s.PairWinnerOrder, name) {
				s.PairWinnerOrder = append(s.PairWinnerOrder, name)
			}
		}
		return true
	}

	s.Winners = append(s.Winners, team)
	if len(s.Winners) < len(s.ActiveTeams)-1 {
		return false
	}
	s.GameOver = true
	for _, t := range s.ActiveTeams {
		if !s.Finished[t] {
			s.Finished[t] = true
			s.Winners = append(s.Winners, t)
			break
		}
	}
	return true
}
