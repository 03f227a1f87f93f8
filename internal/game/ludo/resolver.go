package ludo

import (
	"fmt"

	"github.com/cory-johannsen/ludo/internal/game/board"
)

// Move is one legal way to spend a dice value.
type Move struct {
	From board.CellID
	To   board.CellID
	// Pawn is the oldest pawn of the moving team on From.
	Pawn board.Pawn
	// FromIndex and ToIndex are positions on Pawn.Team's path.
	FromIndex int
	ToIndex   int
	// Wrapped is set when the capture gate turned the pawn back onto the
	// start of its path instead of letting it enter the inner rings.
	Wrapped bool
	// Dice is the value that authorizes the move.
	Dice int
}

// String renders the move as "r0 cell-0-3 → cell-3-0".
func (m Move) String() string {
	return fmt.Sprintf("%s %s → %s", m.Pawn.ID, m.From, m.To)
}

// ValidMoves enumerates every legal move for team with dice value dice, in
// board cell order.
//
// Rules applied per occupied cell of the effective team:
//   - only the oldest arrival on the cell may move;
//   - the anchor rule keeps the last home pawn in place until the team has
//     finished a pawn;
//   - the capture gate folds a move past the gate index back to the start of
//     the path until the team has captured;
//   - the destination must lie on the path.
//
// Precondition: s must be non-nil.
func ValidMoves(s *GameSession, team board.Team, dice int) []Move {
	team = s.EffectiveTeam(team)
	if s.Finished[team] {
		return nil
	}
	path := s.Layout.Path(team)
	gate := s.Layout.GateIndex(team)
	home := s.Layout.Home(team)
	anchored := s.Board.CountTeam(home, team) == 1 && s.Board.CountTeam(board.OffBoard, team) == 0

	var moves []Move
	for _, cell := range s.Board.Cells() {
		if cell == board.OffBoard {
			continue
		}
		pawn, ok := s.Board.Oldest(cell, team)
		if !ok {
			continue
		}
		from := s.Layout.PathIndex(team, cell)
		if from < 0 {
			continue
		}
		if cell == home && anchored {
			continue
		}

		to := from + dice
		wrapped := false
		if !s.HasKilled[team] && from <= gate && to > gate {
			to -= gate + 1
			wrapped = true
		}
		if to >= len(path) {
			continue
		}
		moves = append(moves, Move{
			From:      cell,
			To:        path[to],
			Pawn:      pawn,
			FromIndex: from,
			ToIndex:   to,
			Wrapped:   wrapped,
			Dice:      dice,
		})
	}
	return moves
}
