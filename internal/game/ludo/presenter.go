package ludo

import (
	"context"

	"github.com/cory-johannsen/ludo/internal/game/board"
)

// Sound names a sound cue.
type Sound string

const (
	SoundMoveStep   Sound = "move-step"
	SoundCapture    Sound = "capture"
	SoundReturnHome Sound = "return-home"
	SoundTeamFinish Sound = "team-finish"
	SoundGameOver   Sound = "game-over"
	SoundReset      Sound = "reset"
)

// EventKind classifies an Event.
type EventKind string

const (
	EventRolled      EventKind = "rolled"
	EventSkipped     EventKind = "skipped"
	EventChoose      EventKind = "choose"
	EventMoved       EventKind = "moved"
	EventCaptured    EventKind = "captured"
	EventFinished    EventKind = "finished"
	EventGameOver    EventKind = "game-over"
	EventTurnChanged EventKind = "turn-changed"
	EventUndone      EventKind = "undone"
	EventReset       EventKind = "reset"
)

// Event describes something that happened in the game. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind EventKind
	// Team is the team whose turn it is, or the finishing team for
	// EventFinished.
	Team  board.Team
	Score int
	Dice  []int
	Move  Move
	// Victim is the captured pawn for EventCaptured.
	Victim board.Pawn
	// Moves lists the candidates for EventChoose.
	Moves []Move
	// Winners holds the final standings for EventGameOver.
	Winners []string
}

// Presenter is everything the engine needs from the user interface.
//
// The engine calls every method except AnimatePawn and DieLanded while
// holding its lock, so implementations must not call back into the Engine
// from them.
type Presenter interface {
	// RenderBoard redraws everything from v.
	RenderBoard(v View)
	// RenderCell redraws a single cell.
	RenderCell(id board.CellID, pawns []board.Pawn)
	PlaySound(s Sound)
	// AnimatePawn walks a pawn of team from its start cell through steps and
	// returns once the walk is complete. The moving pawn is not on the board
	// while it runs.
	AnimatePawn(ctx context.Context, team board.Team, from board.CellID, steps []board.CellID) error
	// DieLanded reports a single die coming to rest.
	DieLanded(index, value int)
	Notify(e Event)
}

// NopPresenter ignores everything and animates instantly.
type NopPresenter struct{}

func (NopPresenter) RenderBoard(View) {}
func (NopPresenter) RenderCell(board.CellID, []board.Pawn) {}
func (NopPresenter) PlaySound(Sound) {}
func (NopPresenter) DieLanded(int, int) {}
func (NopPresenter) Notify(Event) {}

func (NopPresenter) AnimatePawn(context.Context, board.Team, board.CellID, []board.CellID) error {
	return nil
}
