// Package dice provides the randomness abstraction and the six binary dice
// that drive pawn movement.
package dice

import "fmt"

// NumDice is the number of binary dice thrown per roll.
const NumDice = 6

// MaxScore is the score awarded when every die shows a blank face.
const MaxScore = 12

// Finalize converts the raw sum of the binary dice into the playable score.
// A sum of zero is the celebrated maximum roll and scores MaxScore; any other
// sum scores itself.
//
// Postcondition: Returns MaxScore when sum == 0, otherwise sum.
func Finalize(sum int) int {
	if sum == 0 {
		return MaxScore
	}
	return sum
}

// IsBonus reports whether score grants an extra roll.
func IsBonus(score int) bool {
	return score == 6 || score == MaxScore
}

// Throw holds the full audit trail of a single roll of the binary dice.
//
// Postcondition: Score == Finalize(Sum()) unless TimedOut is set.
type Throw struct {
	// Dice holds each landed die's face (0 or 1) in landing order.
	Dice []int
	// Score is the final normalized score handed to the game.
	Score int
	// TimedOut is set when the safety timeout fired before every die landed
	// and Score was fabricated from the dice that did land.
	TimedOut bool
}

// Sum returns the raw total of the landed dice.
func (t Throw) Sum() int {
	total := 0
	for _, d := range t.Dice {
		total += d
	}
	return total
}

// String returns a human-readable audit string in the format:
//
//	"6d2 → [1 0 1 1 0 0] = 3"
func (t Throw) String() string {
	s := fmt.Sprintf("%dd2 → %v = %d", NumDice, t.Dice, t.Score)
	if t.TimedOut {
		s += " (timed out)"
	}
	return s
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
