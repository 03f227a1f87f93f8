package ludo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/dice"
)

func newSession(t testing.TB, setup Setup) *GameSession {
	t.Helper()
	s, err := NewGameSession(board.DefaultLayout(), setup)
	require.NoError(t, err)
	return s
}

// relocate moves pawn team/index to the cell at path index idx of its own
// team, stamping a fresh arrival.
func relocate(t testing.TB, s *GameSession, team board.Team, index, idx int) {
	t.Helper()
	id := board.PawnID(team, index)
	from, ok := s.Board.Locate(id)
	require.True(t, ok, "pawn %s not on board", id)
	p, err := s.Board.Remove(from, id)
	require.NoError(t, err)
	p.Arrival = s.nextArrival()
	require.NoError(t, s.Board.Place(s.Layout.Path(team)[idx], p))
}

// recorder is a Presenter that remembers what it was asked to do.
type recorder struct {
	mu      sync.Mutex
	events  []Event
	sounds  []Sound
	landed  int
	renders int
	animate func(ctx context.Context, team board.Team, from board.CellID, steps []board.CellID) error
}

func (r *recorder) RenderBoard(View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
}

func (r *recorder) RenderCell(board.CellID, []board.Pawn) {}

func (r *recorder) PlaySound(s Sound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, s)
}

func (r *recorder) AnimatePawn(ctx context.Context, team board.Team, from board.CellID, steps []board.CellID) error {
	if r.animate != nil {
		return r.animate(ctx, team, from, steps)
	}
	return nil
}

func (r *recorder) DieLanded(int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.landed++
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) soundList() []Sound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sound(nil), r.sounds...)
}

func instantRoller(t testing.TB, faces ...int) *dice.Roller {
	if len(faces) == 0 {
		faces = []int{0}
	}
	timing := dice.Timing{MinLand: time.Millisecond, MaxLand: time.Millisecond, SafetyTimeout: time.Second}
	return dice.NewRoller(dice.NewFixedSource(faces...), timing, zaptest.NewLogger(t),
		dice.WithScheduler(func(_ time.Duration, f func()) { f() }))
}

func newEngine(t *testing.T, setup Setup, p Presenter) *Engine {
	t.Helper()
	e, err := NewEngine(board.DefaultLayout(), setup, instantRoller(t), p, zaptest.NewLogger(t), WithSkipDelay(0))
	require.NoError(t, err)
	return e
}
