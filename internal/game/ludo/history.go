package ludo

import (
	"maps"
	"slices"

	"github.com/cory-johannsen/ludo/internal/game/board"
)

// Snapshot is an immutable deep copy of everything a committed move can
// change.
type Snapshot struct {
	board           *board.Board
	finished        map[board.Team]bool
	teamsToSkip     map[board.Team]bool
	hasKilled       map[board.Team]bool
	winners         []board.Team
	pairWinnerOrder []string
	counter         int
	turnIndex       int
	currentTurn     board.Team
	gameOver        bool
	moveBank        []int
	pendingRolls    int
	selectedBank    int
	activeTeams     []board.Team
}

// TakeSnapshot deep-copies the mutable parts of s.
func TakeSnapshot(s *GameSession) Snapshot {
	return Snapshot{
		board:           s.Board.Clone(),
		finished:        maps.Clone(s.Finished),
		teamsToSkip:     maps.Clone(s.TeamsToSkip),
		hasKilled:       maps.Clone(s.HasKilled),
		winners:         slices.Clone(s.Winners),
		pairWinnerOrder: slices.Clone(s.PairWinnerOrder),
		counter:         s.Counter,
		turnIndex:       s.TurnIndex,
		currentTurn:     s.CurrentTurn,
		gameOver:        s.GameOver,
		moveBank:        slices.Clone(s.MoveBank),
		pendingRolls:    s.PendingRolls,
		selectedBank:    s.SelectedBank,
		activeTeams:     slices.Clone(s.ActiveTeams),
	}
}

// Restore replaces the snapshotted parts of s wholesale. The snapshot itself
// stays untouched and may be restored again.
func (snap Snapshot) Restore(s *GameSession) {
	s.Board = snap.board.Clone()
	s.Finished = cloneFlags(snap.finished)
	s.TeamsToSkip = cloneFlags(snap.teamsToSkip)
	s.HasKilled = cloneFlags(snap.hasKilled)
	s.Winners = slices.Clone(snap.winners)
	s.PairWinnerOrder = slices.Clone(snap.pairWinnerOrder)
	s.Counter = snap.counter
	s.TurnIndex = snap.turnIndex
	s.CurrentTurn = snap.currentTurn
	s.GameOver = snap.gameOver
	s.MoveBank = slices.Clone(snap.moveBank)
	s.PendingRolls = snap.pendingRolls
	s.SelectedBank = snap.selectedBank
	s.ActiveTeams = slices.Clone(snap.activeTeams)
}

// cloneFlags copies m, never returning nil so restored maps stay writable.
func cloneFlags(m map[board.Team]bool) map[board.Team]bool {
	out := make(map[board.Team]bool, len(m))
	maps.Copy(out, m)
	return out
}

// History is the undo stack.
type History struct {
	stack []Snapshot
}

// Save pushes a snapshot of s.
func (h *History) Save(s *GameSession) {
	h.stack = append(h.stack, TakeSnapshot(s))
}

// Undo pops the newest snapshot and restores it into s.
//
// Postcondition: Returns false, leaving s untouched, when the stack is empty.
func (h *History) Undo(s *GameSession) bool {
	if len(h.stack) == 0 {
		return false
	}
	top := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	top.Restore(s)
	return true
}

// Clear drops every snapshot.
func (h *History) Clear() {
	h.stack = nil
}

// Len returns the number of snapshots on the stack.
func (h *History) Len() int {
	return len(h.stack)
}
