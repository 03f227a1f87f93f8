package ludo

import (
	"maps"
	"slices"

	"github.com/cory-johannsen/ludo/internal/game/board"
)

// Phase is the externally visible state of the turn state machine.
type Phase int

const (
	// PhaseAwaitingRoll waits for the current team to roll.
	PhaseAwaitingRoll Phase = iota
	// PhaseAwaitingMoveSelection waits for a choice among several moves.
	PhaseAwaitingMoveSelection
	// PhaseAnimating covers a roll or move in flight.
	PhaseAnimating
	// PhaseGameOver is terminal until reset.
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingRoll:
		return "awaiting roll"
	case PhaseAwaitingMoveSelection:
		return "awaiting move"
	case PhaseAnimating:
		return "animating"
	case PhaseGameOver:
		return "game over"
	default:
		return "unknown"
	}
}

// View is a read-only copy of the game for rendering.
type View struct {
	Layout *board.Layout
	Board  *board.Board

	CurrentTurn board.Team
	// Playing is the team whose pawns CurrentTurn moves.
	Playing     board.Team
	ActiveTeams []board.Team

	Finished  map[board.Team]bool
	HasKilled map[board.Team]bool

	Winners         []board.Team
	PairWinnerOrder []string
	// Standings is the finishing order as display names.
	Standings []string

	PairMode bool
	GameOver bool
	Reversed bool

	PendingRolls int
	MoveBank     []int
	SelectedBank int

	Phase Phase
	// Moves are the legal moves for the selected bank entry.
	Moves []Move
	// Undoable is the depth of the undo stack.
	Undoable int
}

func newView(s *GameSession, phase Phase, undoable int) View {
	v := View{
		Layout:          s.Layout,
		Board:           s.Board.Clone(),
		CurrentTurn:     s.CurrentTurn,
		Playing:         s.EffectiveTeam(s.CurrentTurn),
		ActiveTeams:     slices.Clone(s.ActiveTeams),
		Finished:        maps.Clone(s.Finished),
		HasKilled:       maps.Clone(s.HasKilled),
		Winners:         slices.Clone(s.Winners),
		PairWinnerOrder: slices.Clone(s.PairWinnerOrder),
		Standings:       s.Standings(),
		PairMode:        s.PairMode,
		GameOver:        s.GameOver,
		Reversed:        s.Reversed,
		PendingRolls:    s.PendingRolls,
		MoveBank:        slices.Clone(s.MoveBank),
		SelectedBank:    s.SelectedBank,
		Phase:           phase,
		Undoable:        undoable,
	}
	if !s.GameOver && s.SelectedBank >= 0 && s.SelectedBank < len(s.MoveBank) {
		v.Moves = ValidMoves(s, s.CurrentTurn, s.MoveBank[s.SelectedBank])
	}
	return v
}
