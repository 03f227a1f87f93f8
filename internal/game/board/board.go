package board

import (
	"fmt"
	"slices"
)

// Board maps each cell to the ordered list of pawns resident there.
//
// Invariant: every pawn appears in exactly one cell's list.
// Board is not safe for concurrent use; the owning game session serializes
// access to it.
type Board struct {
	order []CellID
	cells map[CellID][]Pawn
}

// NewBoard returns an empty board with one (empty) list per layout cell.
func NewBoard(l *Layout) *Board {
	order := l.Cells()
	b := &Board{
		order: order,
		cells: make(map[CellID][]Pawn, len(order)),
	}
	for _, id := range order {
		b.cells[id] = nil
	}
	return b
}

// Cells returns all cell identifiers in board order.
func (b *Board) Cells() []CellID {
	return slices.Clone(b.order)
}

// Pawns returns a copy of the pawns in id, oldest arrival first in placement
// order.
func (b *Board) Pawns(id CellID) []Pawn {
	return slices.Clone(b.cells[id])
}

// Place appends p to cell id.
//
// Precondition: id must be a board cell; p must not already be on the board.
func (b *Board) Place(id CellID, p Pawn) error {
	if _, ok := b.cells[id]; !ok {
		return fmt.Errorf("board: unknown cell %q", id)
	}
	b.cells[id] = append(b.cells[id], p)
	return nil
}

// Remove takes the pawn with pawnID out of cell id.
//
// Postcondition: Returns the removed pawn, or an error if it was not there.
func (b *Board) Remove(id CellID, pawnID string) (Pawn, error) {
	pawns := b.cells[id]
	i := slices.IndexFunc(pawns, func(p Pawn) bool { return p.ID == pawnID })
	if i < 0 {
		return Pawn{}, fmt.Errorf("board: pawn %q is not on %q", pawnID, id)
	}
	p := pawns[i]
	b.cells[id] = slices.Delete(slices.Clone(pawns), i, i+1)
	return p, nil
}

// Oldest returns team's earliest-arrived pawn on id.
func (b *Board) Oldest(id CellID, team Team) (Pawn, bool) {
	var best Pawn
	found := false
	for _, p := range b.cells[id] {
		if p.Team != team {
			continue
		}
		if !found || p.Arrival < best.Arrival {
			best = p
			found = true
		}
	}
	return best, found
}

// CountTeam returns the number of team's pawns on id.
func (b *Board) CountTeam(id CellID, team Team) int {
	n := 0
	for _, p := range b.cells[id] {
		if p.Team == team {
			n++
		}
	}
	return n
}

// Locate returns the cell holding the pawn with pawnID.
func (b *Board) Locate(pawnID string) (CellID, bool) {
	for _, id := range b.order {
		for _, p := range b.cells[id] {
			if p.ID == pawnID {
				return id, true
			}
		}
	}
	return "", false
}

// Total returns the number of pawns on the board, off-board area included.
func (b *Board) Total() int {
	n := 0
	for _, pawns := range b.cells {
		n += len(pawns)
	}
	return n
}

// All returns every pawn on the board in cell order.
func (b *Board) All() []Pawn {
	out := make([]Pawn, 0, b.Total())
	for _, id := range b.order {
		out = append(out, b.cells[id]...)
	}
	return out
}

// Clone returns a deep copy of b.
func (b *Board) Clone() *Board {
	c := &Board{
		order: slices.Clone(b.order),
		cells: make(map[CellID][]Pawn, len(b.cells)),
	}
	for id, pawns := range b.cells {
		c.cells[id] = slices.Clone(pawns)
	}
	return c
}

// Equal reports whether b and o hold the same pawns in the same cells and
// order.
func (b *Board) Equal(o *Board) bool {
	if len(b.cells) != len(o.cells) {
		return false
	}
	for id, pawns := range b.cells {
		other, ok := o.cells[id]
		if !ok || !slices.Equal(pawns, other) {
			return false
		}
	}
	return true
}
