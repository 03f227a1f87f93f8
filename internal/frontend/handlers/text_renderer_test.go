package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/ludo/internal/frontend/telnet"
	"github.com/cory-johannsen/ludo/internal/game/command"
	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/game/ludo"
	"github.com/cory-johannsen/ludo/internal/game/session"
)

// instantRoller lands every die immediately.
func instantRoller(faces ...int) *dice.Roller {
	if len(faces) == 0 {
		faces = []int{1}
	}
	return dice.NewRoller(dice.NewFixedSource(faces...), dice.Timing{SafetyTimeout: time.Second}, zap.NewNop(),
		dice.WithScheduler(func(_ time.Duration, f func()) { f() }))
}

func newView(t *testing.T, setup ludo.Setup) ludo.View {
	t.Helper()
	eng, err := ludo.NewEngine(board.DefaultLayout(), setup, instantRoller(), ludo.NopPresenter{}, zap.NewNop())
	require.NoError(t, err)
	return eng.View()
}

func TestParseCell(t *testing.T) {
	for in, want := range map[string]board.CellID{
		"3-4":            board.CellAt(3, 4),
		" 0,6 ":          board.CellAt(0, 6),
		"cell-6-3":       board.CellAt(6, 3),
		"OFF":            board.OffBoard,
		"off-board-area": board.OffBoard,
	} {
		got, err := ParseCell(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "3", "a-b", "3-", "-1-2"} {
		_, err := ParseCell(bad)
		assert.Error(t, err, bad)
	}
}

func TestPropertyCellLabelRoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := board.CellAt(rapid.IntRange(0, 20).Draw(rt, "r"), rapid.IntRange(0, 20).Draw(rt, "c"))
		got, err := ParseCell(CellLabel(id))
		if err != nil {
			rt.Fatalf("parse %q: %v", CellLabel(id), err)
		}
		if got != id {
			rt.Fatalf("got %s, want %s", got, id)
		}
	})
}

func TestTeamName(t *testing.T) {
	assert.Equal(t, "Red", TeamName(board.Red))
	assert.Equal(t, "Yellow", TeamName(board.Yellow))
	assert.Equal(t, "", TeamName(""))
	assert.Equal(t, "Blue", telnet.StripANSI(TeamLabel(board.Blue)))
}

func TestRenderGrid_StartingPosition(t *testing.T) {
	v := newView(t, ludo.Setup{Players: 4})
	rows := strings.Split(telnet.StripANSI(RenderGrid(v)), "\r\n")
	require.GreaterOrEqual(t, len(rows), 8)

	assert.Contains(t, rows[1], "R4", "red's home is on row 0")
	assert.Contains(t, rows[4], "B4")
	assert.Contains(t, rows[4], "Y4")
	assert.Contains(t, rows[4], "*", "centre cell is safe")
	assert.Contains(t, rows[7], "G4")
	assert.NotContains(t, RenderGrid(v), "Off the board")
}

func TestRenderGrid_TwoPlayersLeaveOtherHomesEmpty(t *testing.T) {
	v := newView(t, ludo.Setup{Players: 2})
	stripped := telnet.StripANSI(RenderGrid(v))
	assert.Contains(t, stripped, "R4")
	assert.Contains(t, stripped, "G4")
	assert.NotContains(t, stripped, "B4")
	assert.Contains(t, stripped, "<b>")
}

func TestCellTokens(t *testing.T) {
	pawns := []board.Pawn{
		{ID: "g0", Team: board.Green},
		{ID: "r0", Team: board.Red},
		{ID: "r1", Team: board.Red},
	}
	assert.Equal(t, "R2G", telnet.StripANSI(cellTokens(pawns)))
	assert.Equal(t, "", cellTokens(nil))
}

func TestRenderStatus(t *testing.T) {
	v := newView(t, ludo.Setup{PairMode: true})
	v.MoveBank = []int{6, 3}
	v.SelectedBank = 1
	v.HasKilled = map[board.Team]bool{board.Blue: true}
	v.Standings = []string{"Red/Green"}

	s := telnet.StripANSI(RenderStatus(v, map[board.Team]string{board.Red: "alice"}))
	assert.Contains(t, s, "Turn: Red")
	assert.Contains(t, s, "awaiting roll")
	assert.Contains(t, s, "Bank: 6 [3]")
	assert.Contains(t, s, "Red(alice) > Blue†")
	assert.Contains(t, s, "pairs")
	assert.Contains(t, s, "1. Red/Green")

	v.Reversed = true
	assert.Contains(t, telnet.StripANSI(RenderStatus(v, nil)), "Red < Blue")
}

func TestRenderStatus_GameOver(t *testing.T) {
	v := newView(t, ludo.Setup{Players: 2})
	v.GameOver = true
	s := telnet.StripANSI(RenderStatus(v, nil))
	assert.Contains(t, s, "game over")
	assert.NotContains(t, s, "Rolls pending")
}

func TestRenderMoves(t *testing.T) {
	assert.Empty(t, RenderMoves(nil))
	moves := []ludo.Move{
		{From: board.CellAt(0, 3), To: board.CellAt(0, 6), Pawn: board.Pawn{ID: "r0"}, Dice: 3},
		{From: board.CellAt(1, 1), To: board.CellAt(0, 2), Pawn: board.Pawn{ID: "r1"}, Dice: 3, Wrapped: true},
	}
	s := telnet.StripANSI(RenderMoves(moves))
	assert.Contains(t, s, "Moves for 3:")
	assert.Contains(t, s, " 1) r0 0-3 → 0-6")
	assert.Contains(t, s, " 2) r1 1-1 → 0-2 (turned back at the gate)")
}

func TestRenderDice(t *testing.T) {
	assert.Equal(t, "■ □ · ■", RenderDice([]int{1, 0, -1, 1}))
}

func TestRenderEvent(t *testing.T) {
	captured := ludo.Event{
		Kind:   ludo.EventCaptured,
		Team:   board.Red,
		Move:   ludo.Move{To: board.CellAt(3, 4), Pawn: board.Pawn{ID: "r0", Team: board.Red}},
		Victim: board.Pawn{ID: "g1", Team: board.Green},
	}
	cases := []struct {
		event ludo.Event
		want  string
	}{
		{ludo.Event{Kind: ludo.EventRolled, Team: board.Red, Score: 3, Dice: []int{1, 1, 1, 0, 0, 0}}, "Red rolls ■ ■ ■ □ □ □ = 3"},
		{ludo.Event{Kind: ludo.EventRolled, Team: board.Red, Score: 6, Dice: []int{1, 1, 1, 1, 1, 1}}, "roll again!"},
		{ludo.Event{Kind: ludo.EventSkipped, Team: board.Blue, Score: 4}, "Blue cannot use the 4."},
		{ludo.Event{Kind: ludo.EventSkipped, Team: board.Blue}, "Blue has no playable roll left."},
		{ludo.Event{Kind: ludo.EventChoose, Team: board.Red, Score: 2, Moves: []ludo.Move{{Pawn: board.Pawn{ID: "r2"}, From: board.CellAt(0, 3), To: board.CellAt(0, 5)}}}, " 1) r2 0-3 → 0-5"},
		{captured, "Red's r0 captures Green's g1 on 3-4!"},
		{ludo.Event{Kind: ludo.EventFinished, Team: board.Yellow}, "Yellow has brought every pawn home!"},
		{ludo.Event{Kind: ludo.EventGameOver, Winners: []string{"red", "green"}}, "Game over! 1. red  2. green"},
		{ludo.Event{Kind: ludo.EventTurnChanged, Team: board.Green}, "It is Green's turn."},
		{ludo.Event{Kind: ludo.EventUndone, Team: board.Red}, "taken back. Red to play."},
		{ludo.Event{Kind: ludo.EventReset, Team: board.Red}, "New game! Red starts."},
	}
	for _, tc := range cases {
		got := telnet.StripANSI(strings.Join(RenderEvent(tc.event), "\n"))
		assert.Contains(t, got, tc.want, string(tc.event.Kind))
	}
	assert.Nil(t, RenderEvent(ludo.Event{Kind: "unknown"}))
}

func TestRenderTables(t *testing.T) {
	assert.Contains(t, RenderTables(nil), "No open tables")

	s := telnet.StripANSI(RenderTables([]session.TableInfo{
		{ShortID: "abcd1234", Name: "duel", Players: 2, Setup: ludo.Setup{Players: 2}, Phase: ludo.PhaseAwaitingRoll},
		{ShortID: "ffff0000", Name: "team night", Players: 4, Setup: ludo.Setup{Players: 4, PairMode: true}, Phase: ludo.PhaseGameOver},
	}))
	assert.Contains(t, s, "abcd1234")
	assert.Contains(t, s, "2 players")
	assert.Contains(t, s, "awaiting roll")
	assert.Contains(t, s, "pairs")
	assert.Contains(t, s, "game over")
}

func TestRenderHelp_GroupsByCategory(t *testing.T) {
	s := telnet.StripANSI(RenderHelp(command.DefaultRegistry().Available(command.ScopeTable)))
	play := strings.Index(s, "Play:")
	system := strings.Index(s, "System:")
	require.GreaterOrEqual(t, play, 0)
	require.Greater(t, system, play)
	assert.Less(t, strings.Index(s, "roll [faces]"), system)
	assert.Contains(t, s, "(mv, go)")
	assert.NotContains(t, s, "Lobby:")
}
