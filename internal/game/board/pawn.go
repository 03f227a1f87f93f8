package board

import "fmt"

// Pawn is a single movable token.
//
// Arrival is a board-wide counter value stamped on the pawn each time it is
// placed into a cell. Lower values arrived earlier; it orders selection and
// capture victims and carries no other meaning.
type Pawn struct {
	ID      string
	Team    Team
	Arrival int
}

// PawnID returns the identifier of team's index-th pawn, e.g. "r0".
func PawnID(team Team, index int) string {
	return fmt.Sprintf("%s%d", team.Initial(), index)
}
