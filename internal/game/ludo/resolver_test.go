package ludo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/ludo/internal/game/board"
)

func TestValidMoves_SixFromHomeIsTheOnlyMove(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	path := s.Layout.Path(board.Red)

	moves := ValidMoves(s, board.Red, 6)
	require.Len(t, moves, 1)
	assert.Equal(t, path[0], moves[0].From)
	assert.Equal(t, path[6], moves[0].To)
	assert.Equal(t, "r0", moves[0].Pawn.ID, "the oldest pawn at home moves")
	assert.False(t, moves[0].Wrapped)
}

func TestValidMoves_AnchorKeepsLastHomePawn(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	for i := range 3 {
		relocate(t, s, board.Red, i, 2)
	}

	moves := ValidMoves(s, board.Red, 1)
	require.Len(t, moves, 1)
	assert.Equal(t, s.Layout.Path(board.Red)[2], moves[0].From)
}

func TestValidMoves_AnchorLiftsOnceAPawnFinished(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	relocate(t, s, board.Red, 0, 49)
	relocate(t, s, board.Red, 1, 4)
	relocate(t, s, board.Red, 2, 4)

	moves := ValidMoves(s, board.Red, 1)
	require.Len(t, moves, 2)
	assert.Equal(t, s.Layout.Home(board.Red), moves[0].From)
}

func TestValidMoves_GateFoldsBackUntilFirstCapture(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	path := s.Layout.Path(board.Red)
	for i := range 4 {
		relocate(t, s, board.Red, i, 20)
	}

	moves := ValidMoves(s, board.Red, 6)
	require.Len(t, moves, 1)
	assert.True(t, moves[0].Wrapped)
	assert.Equal(t, 2, moves[0].ToIndex)
	assert.Equal(t, path[2], moves[0].To)

	s.HasKilled[board.Red] = true
	moves = ValidMoves(s, board.Red, 6)
	require.Len(t, moves, 1)
	assert.False(t, moves[0].Wrapped)
	assert.Equal(t, path[26], moves[0].To)
}

func TestValidMoves_LandingOnGateDoesNotWrap(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	for i := range 4 {
		relocate(t, s, board.Red, i, 20)
	}
	moves := ValidMoves(s, board.Red, 3)
	require.Len(t, moves, 1)
	assert.Equal(t, 23, moves[0].ToIndex)
	assert.False(t, moves[0].Wrapped)
}

func TestValidMoves_BoundsCheck(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	s.HasKilled[board.Red] = true
	for i := range 4 {
		relocate(t, s, board.Red, i, 45)
	}

	assert.Empty(t, ValidMoves(s, board.Red, 6))

	moves := ValidMoves(s, board.Red, 4)
	require.Len(t, moves, 1)
	assert.Equal(t, board.OffBoard, moves[0].To)
}

func TestValidMoves_OffBoardPawnsNeverMove(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	for i := range 4 {
		relocate(t, s, board.Red, i, 49)
	}
	assert.Empty(t, ValidMoves(s, board.Red, 1))
}

func TestValidMoves_OldestPawnOnCellMoves(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	relocate(t, s, board.Red, 3, 7)
	relocate(t, s, board.Red, 1, 7)

	moves := ValidMoves(s, board.Red, 2)
	require.Len(t, moves, 2)
	for _, m := range moves {
		if m.From == s.Layout.Path(board.Red)[7] {
			assert.Equal(t, "r3", m.Pawn.ID)
		}
	}
}

func TestValidMoves_PairModeDelegatesToPartner(t *testing.T) {
	s := newSession(t, Setup{PairMode: true})
	s.Finished[board.Red] = true

	moves := ValidMoves(s, board.Red, 6)
	require.Len(t, moves, 1)
	assert.Equal(t, board.Green, moves[0].Pawn.Team)
	assert.Equal(t, s.Layout.Path(board.Green)[6], moves[0].To)
}

func TestValidMoves_FinishedTeamHasNoMoves(t *testing.T) {
	s := newSession(t, Setup{Players: 2})
	s.Finished[board.Red] = true
	assert.Nil(t, ValidMoves(s, board.Red, 6))

	pair := newSession(t, Setup{PairMode: true})
	pair.Finished[board.Red] = true
	pair.Finished[board.Green] = true
	assert.Nil(t, ValidMoves(pair, board.Red, 6))
}

func TestPropertyAnchoredPawnNeverMoves(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := newSession(t, Setup{Players: 4})
		team := rapid.SampledFrom(board.TurnOrder).Draw(rt, "team")
		for i := 1; i < board.PawnsPerTeam; i++ {
			relocate(t, s, team, i, rapid.IntRange(1, 48).Draw(rt, "index"))
		}
		v := rapid.IntRange(1, 12).Draw(rt, "dice")

		for _, m := range ValidMoves(s, team, v) {
			if m.Pawn.ID == board.PawnID(team, 0) {
				rt.Fatalf("anchored pawn %s offered as mover: %s", m.Pawn.ID, m)
			}
		}
	})
}

func TestPropertyGateFoldsOvershoot(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := newSession(t, Setup{Players: 2})
		team := board.Red
		from := rapid.IntRange(1, 23).Draw(rt, "from")
		v := rapid.IntRange(1, 12).Draw(rt, "dice")
		for i := range board.PawnsPerTeam {
			relocate(t, s, team, i, from)
		}

		moves := ValidMoves(s, team, v)
		if len(moves) != 1 {
			rt.Fatalf("expected one mover, got %d", len(moves))
		}
		want := from + v
		if want > 23 {
			want -= 24
		}
		if moves[0].ToIndex != want {
			rt.Fatalf("from %d with %d: got index %d, want %d", from, v, moves[0].ToIndex, want)
		}
	})
}
