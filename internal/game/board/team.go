// Package board holds the static board geometry (cells, team paths, safe
// cells) and the mutable board state mapping cells to resident pawns.
package board

import (
	"fmt"
	"strings"
)

// Team identifies one of the four fixed player colors.
type Team string

// The four teams, in canonical turn order.
const (
	Red    Team = "red"
	Blue   Team = "blue"
	Green  Team = "green"
	Yellow Team = "yellow"
)

// PawnsPerTeam is the number of pawns each active team owns.
const PawnsPerTeam = 4

// TurnOrder is the canonical seating order of all four teams.
var TurnOrder = []Team{Red, Blue, Green, Yellow}

// partners is the fixed pairing used in Pair mode.
var partners = map[Team]Team{
	Red:    Green,
	Green:  Red,
	Blue:   Yellow,
	Yellow: Blue,
}

// pairNames names each pairing for the winners list.
var pairNames = map[Team]string{
	Red:    "Red/Green",
	Green:  "Red/Green",
	Blue:   "Blue/Yellow",
	Yellow: "Blue/Yellow",
}

// Partner returns the team paired with t in Pair mode.
//
// Precondition: t must be a valid Team.
func Partner(t Team) Team {
	return partners[t]
}

// PairName returns the display name of the pairing t belongs to.
func PairName(t Team) string {
	return pairNames[t]
}

// IsTeammate reports whether a and b are partners. Only Pair mode has
// teammates; a team is never its own teammate.
func IsTeammate(a, b Team, pairMode bool) bool {
	if !pairMode || a == b {
		return false
	}
	return partners[a] == b
}

// Initial returns the single-letter pawn ID prefix for t.
func (t Team) Initial() string {
	if t == "" {
		return ""
	}
	return string(t[0])
}

// Valid reports whether t is one of the four known teams.
func (t Team) Valid() bool {
	_, ok := partners[t]
	return ok
}

// ParseTeam converts a user-supplied name into a Team.
//
// Postcondition: Returns a valid Team or a non-nil error.
func ParseTeam(s string) (Team, error) {
	t := Team(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown team %q", s)
	}
	return t, nil
}

// ActiveTeamsFor returns the teams seated for the given player count, in
// turn order. Two players use the red/green diagonal.
//
// Postcondition: Returns 2, 3, or 4 teams, or an error for any other count.
func ActiveTeamsFor(players int) ([]Team, error) {
	switch players {
	case 2:
		return []Team{Red, Green}, nil
	case 3:
		return []Team{Red, Blue, Green}, nil
	case 4:
		return []Team{Red, Blue, Green, Yellow}, nil
	default:
		return nil, fmt.Errorf("player count must be 2, 3, or 4, got %d", players)
	}
}
