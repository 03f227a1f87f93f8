package dice

import (
	"fmt"
	"strings"
)

// ParseFaces parses a forced set of die faces. Both "101100" and
// "1 0 1 1 0 0" are accepted.
//
// Postcondition: Returns exactly NumDice faces, each 0 or 1, or an error.
func ParseFaces(s string) ([]int, error) {
	compact := strings.Join(strings.Fields(s), "")
	if len(compact) != NumDice {
		return nil, fmt.Errorf("dice: need %d faces, got %q", NumDice, s)
	}
	faces := make([]int, 0, NumDice)
	for _, r := range compact {
		switch r {
		case '0':
			faces = append(faces, 0)
		case '1':
			faces = append(faces, 1)
		default:
			return nil, fmt.Errorf("dice: face %q in %q must be 0 or 1", r, s)
		}
	}
	return faces, nil
}
