package ludo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/dice"
)

// Rejections. None of them changes game state.
var (
	ErrBusy           = errors.New("a roll or move is in progress")
	ErrNoPendingRolls = errors.New("no rolls pending")
	ErrGameOver       = errors.New("the game is over")
	ErrNoSelection    = errors.New("no banked dice value is selected")
	ErrIllegalMove    = errors.New("that move is not legal")
	ErrAmbiguousMove  = errors.New("more than one pawn can make that move")
	ErrBankIndex      = errors.New("no such banked dice value")
	ErrInvalidScore   = errors.New("dice score out of range")
)

// ErrMoveAborted wraps a failure inside a move commit. The game has been
// rolled back to its state before the move.
var ErrMoveAborted = errors.New("move aborted")

// DefaultSkipDelay is the pause between an unusable roll and the next turn.
const DefaultSkipDelay = time.Second

// Option configures an Engine.
type Option func(*Engine)

// WithSkipDelay sets the pause between an unusable roll and the next turn.
func WithSkipDelay(d time.Duration) Option {
	return func(e *Engine) { e.skipDelay = d }
}

// Engine is the turn state machine. It is safe for concurrent use: every
// entry point locks the session, and a busy flag turns away state changes
// while a roll, move animation or skip pause is in flight.
type Engine struct {
	mu        sync.Mutex
	session   *GameSession
	history   History
	roller    *dice.Roller
	presenter Presenter
	logger    *zap.Logger
	skipDelay time.Duration
	busy      bool
}

// NewEngine creates an engine for a new game on layout.
//
// Precondition: layout, roller, presenter and logger must be non-nil.
// Postcondition: Returns an engine awaiting the first roll, or an error for
// an invalid setup.
func NewEngine(layout *board.Layout, setup Setup, roller *dice.Roller, presenter Presenter, logger *zap.Logger, opts ...Option) (*Engine, error) {
	s, err := NewGameSession(layout, setup)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		session:   s,
		roller:    roller,
		presenter: presenter,
		logger:    logger,
		skipDelay: DefaultSkipDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Roll throws the dice for the current team and resolves the score.
//
// Postcondition: Returns ErrBusy, ErrGameOver or ErrNoPendingRolls without
// rolling, or the throw together with any error from an automatic move.
func (e *Engine) Roll(ctx context.Context) (dice.Throw, error) {
	return e.roll(ctx, e.roller)
}

// RollForced is Roll with predetermined die faces.
//
// Precondition: faces must come from dice.ParseFaces.
func (e *Engine) RollForced(ctx context.Context, faces []int) (dice.Throw, error) {
	return e.roll(ctx, e.roller.Forced(faces))
}

func (e *Engine) roll(ctx context.Context, r *dice.Roller) (dice.Throw, error) {
	if err := e.begin(e.requirePending); err != nil {
		return dice.Throw{}, err
	}
	defer e.end()
	throw := r.Roll(e.presenter.DieLanded)
	return throw, e.resolve(ctx, throw)
}

// OnDiceRolled banks a score produced elsewhere and resolves it exactly as
// Roll does.
//
// Precondition: score is in [1, dice.MaxScore].
func (e *Engine) OnDiceRolled(ctx context.Context, score int) error {
	if score < 1 || score > dice.MaxScore {
		return fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}
	if err := e.begin(e.requirePending); err != nil {
		return err
	}
	defer e.end()
	return e.resolve(ctx, dice.Throw{Score: score})
}

// resolve banks a score and acts on the number of legal moves for it.
//
// Precondition: busy is held by the caller; e.mu is not.
func (e *Engine) resolve(ctx context.Context, throw dice.Throw) error {
	e.mu.Lock()
	s := e.session
	team := s.CurrentTurn
	s.MoveBank = append(s.MoveBank, throw.Score)
	s.PendingRolls--
	if dice.IsBonus(throw.Score) {
		s.PendingRolls++
	}
	e.presenter.Notify(Event{Kind: EventRolled, Team: team, Score: throw.Score, Dice: throw.Dice})

	moves := ValidMoves(s, team, throw.Score)
	e.logger.Debug("resolving roll",
		zap.String("team", string(team)),
		zap.Int("score", throw.Score),
		zap.Int("moves", len(moves)),
		zap.Int("pending", s.PendingRolls),
	)

	switch len(moves) {
	case 0:
		s.PendingRolls = 0
		s.MoveBank = nil
		s.SelectedBank = -1
		e.presenter.Notify(Event{Kind: EventSkipped, Team: team, Score: throw.Score})
		e.renderLocked()
		e.mu.Unlock()

		wait(ctx, e.skipDelay)

		e.mu.Lock()
		e.advanceLocked()
		e.mu.Unlock()
		return nil
	case 1:
		s.SelectedBank = len(s.MoveBank) - 1
		e.mu.Unlock()
		return e.commit(ctx, moves[0])
	default:
		s.SelectedBank = len(s.MoveBank) - 1
		e.presenter.Notify(Event{Kind: EventChoose, Team: team, Score: throw.Score, Moves: moves})
		e.mu.Unlock()
		return nil
	}
}

// PerformMove commits m.
//
// This is the privileged commit path: it does not check m against
// ValidMoves. Callers must pass a move obtained from ValidMoves (or the View)
// for the selected bank entry; user input goes through Choose instead.
//
// Postcondition: On ErrMoveAborted the game is exactly as it was before the
// call.
func (e *Engine) PerformMove(ctx context.Context, m Move) error {
	if err := e.begin(nil); err != nil {
		return err
	}
	defer e.end()
	return e.commit(ctx, m)
}

// Choose validates a user's pick against the legal moves for the selected
// bank entry and commits it. from may be empty when only one pawn can reach
// to.
func (e *Engine) Choose(ctx context.Context, from, to board.CellID) error {
	var move Move
	err := e.begin(func() error {
		s := e.session
		if s.SelectedBank < 0 || s.SelectedBank >= len(s.MoveBank) {
			return ErrNoSelection
		}
		var matches []Move
		for _, m := range ValidMoves(s, s.CurrentTurn, s.MoveBank[s.SelectedBank]) {
			if m.To == to && (from == "" || m.From == from) {
				matches = append(matches, m)
			}
		}
		switch len(matches) {
		case 0:
			return ErrIllegalMove
		case 1:
			move = matches[0]
			return nil
		default:
			return ErrAmbiguousMove
		}
	})
	if err != nil {
		return err
	}
	defer e.end()
	return e.commit(ctx, move)
}

// commit runs a move through save, lift, animate and land. Any error or panic
// along the way rolls the game back to the saved snapshot.
//
// Precondition: busy is held by the caller; e.mu is not.
func (e *Engine) commit(ctx context.Context, m Move) error {
	saved := false
	steps, err := e.liftPawn(m, &saved)
	if err == nil {
		err = e.animate(ctx, m, steps)
	}
	if err == nil {
		err = e.landPawn(m)
	}
	if err != nil {
		return e.abort(m, saved, err)
	}
	return nil
}

func (e *Engine) liftPawn(m Move, saved *bool) (steps []board.CellID, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer recoverMove(&err)

	s := e.session
	e.history.Save(s)
	*saved = true
	if _, err := s.Board.Remove(m.From, m.Pawn.ID); err != nil {
		return nil, err
	}
	e.presenter.RenderCell(m.From, s.Board.Pawns(m.From))
	return s.Layout.Steps(m.Pawn.Team, m.FromIndex, m.ToIndex, m.Wrapped), nil
}

func (e *Engine) animate(ctx context.Context, m Move, steps []board.CellID) (err error) {
	defer recoverMove(&err)
	return e.presenter.AnimatePawn(ctx, m.Pawn.Team, m.From, steps)
}

func (e *Engine) landPawn(m Move) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer recoverMove(&err)

	s := e.session
	pawn := m.Pawn
	pawn.Arrival = s.nextArrival()
	if err := s.Board.Place(m.To, pawn); err != nil {
		return err
	}
	s.consumeSelected()
	m.Pawn = pawn
	e.presenter.Notify(Event{Kind: EventMoved, Team: s.CurrentTurn, Score: m.Dice, Move: m})
	e.logger.Info("pawn moved",
		zap.String("team", string(s.CurrentTurn)),
		zap.String("pawn", pawn.ID),
		zap.String("from", string(m.From)),
		zap.String("to", string(m.To)),
		zap.Bool("wrapped", m.Wrapped),
	)

	if err := e.captureLocked(m.To, pawn); err != nil {
		return err
	}
	if m.To == board.OffBoard {
		e.finishLocked(pawn.Team)
	}
	if s.GameOver {
		return nil
	}

	if s.PendingRolls == 0 && len(s.MoveBank) == 0 {
		e.advanceLocked()
		return nil
	}
	if s.PendingRolls == 0 && !e.bankPlayableLocked() {
		// Leftover dice that no pawn can use end the turn.
		e.presenter.Notify(Event{Kind: EventSkipped, Team: s.CurrentTurn})
		e.advanceLocked()
		return nil
	}
	if s.SelectedBank >= 0 {
		moves := ValidMoves(s, s.CurrentTurn, s.MoveBank[s.SelectedBank])
		e.presenter.Notify(Event{Kind: EventChoose, Team: s.CurrentTurn, Score: s.MoveBank[s.SelectedBank], Moves: moves})
	}
	return nil
}

// captureLocked sends the oldest opposing pawn on cell home.
func (e *Engine) captureLocked(cell board.CellID, mover board.Pawn) error {
	s := e.session
	if cell == board.OffBoard || s.Layout.IsSafe(cell) {
		return nil
	}
	var victim board.Pawn
	found := false
	for _, p := range s.Board.Pawns(cell) {
		if p.Team == mover.Team || board.IsTeammate(p.Team, mover.Team, s.PairMode) {
			continue
		}
		if !found || p.Arrival < victim.Arrival {
			victim = p
			found = true
		}
	}
	if !found {
		return nil
	}

	if _, err := s.Board.Remove(cell, victim.ID); err != nil {
		return err
	}
	victim.Arrival = s.nextArrival()
	home := s.Layout.Home(victim.Team)
	if err := s.Board.Place(home, victim); err != nil {
		return err
	}
	s.HasKilled[mover.Team] = true
	if s.PairMode {
		s.HasKilled[board.Partner(mover.Team)] = true
	}
	s.PendingRolls++

	e.presenter.PlaySound(SoundCapture)
	e.presenter.PlaySound(SoundReturnHome)
	e.presenter.Notify(Event{Kind: EventCaptured, Team: mover.Team, Move: Move{To: cell, Pawn: mover}, Victim: victim})
	e.logger.Info("pawn captured",
		zap.String("by", mover.ID),
		zap.String("victim", victim.ID),
		zap.String("cell", string(cell)),
	)
	return nil
}

// finishLocked checks whether team has just brought its last pawn off the
// board.
func (e *Engine) finishLocked(team board.Team) {
	s := e.session
	e.presenter.PlaySound(SoundTeamFinish)
	if s.Finished[team] || s.Board.CountTeam(board.OffBoard, team) < board.PawnsPerTeam {
		return
	}
	over := s.finishTeam(team)
	e.presenter.Notify(Event{Kind: EventFinished, Team: team})
	e.logger.Info("team finished", zap.String("team", string(team)), zap.Bool("game_over", over))
	if !over {
		return
	}
	standings := s.Standings()
	e.presenter.PlaySound(SoundGameOver)
	e.presenter.Notify(Event{Kind: EventGameOver, Team: team, Winners: standings})
	e.logger.Info("game over", zap.Strings("standings", standings))
}

func (e *Engine) bankPlayableLocked() bool {
	s := e.session
	for _, v := range s.MoveBank {
		if len(ValidMoves(s, s.CurrentTurn, v)) > 0 {
			return true
		}
	}
	return false
}

// abort rolls back a failed commit and re-renders the whole board.
func (e *Engine) abort(m Move, saved bool, cause error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if saved {
		e.history.Undo(e.session)
	}
	e.logger.Error("move aborted",
		zap.String("pawn", m.Pawn.ID),
		zap.String("from", string(m.From)),
		zap.String("to", string(m.To)),
		zap.Error(cause),
	)
	e.renderLocked()
	return fmt.Errorf("%w: %s: %w", ErrMoveAborted, m, cause)
}

func recoverMove(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}

// SelectBank chooses which banked dice value the next move spends.
func (e *Engine) SelectBank(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardLocked(); err != nil {
		return err
	}
	s := e.session
	if i < 0 || i >= len(s.MoveBank) {
		return fmt.Errorf("%w: %d", ErrBankIndex, i)
	}
	s.SelectedBank = i
	e.presenter.Notify(Event{Kind: EventChoose, Team: s.CurrentTurn, Score: s.MoveBank[i], Moves: ValidMoves(s, s.CurrentTurn, s.MoveBank[i])})
	e.renderLocked()
	return nil
}

// ManualTurnChange moves the turn by offset (normally +1 or -1), discarding
// the current team's rolls. Finished teams are skipped in solo mode; Pair
// mode skip flags are ignored.
func (e *Engine) ManualTurnChange(offset int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardLocked(); err != nil {
		return err
	}
	e.session.manualTurnChange(offset)
	e.presenter.Notify(Event{Kind: EventTurnChanged, Team: e.session.CurrentTurn})
	e.renderLocked()
	return nil
}

// ReverseTurnOrder flips the direction turns advance in and returns whether
// play now runs in reverse.
func (e *Engine) ReverseTurnOrder() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Reversed = !e.session.Reversed
	e.renderLocked()
	return e.session.Reversed
}

// Reset starts a new game and clears the undo history.
func (e *Engine) Reset(setup Setup) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return ErrBusy
	}
	if err := e.session.Reset(setup); err != nil {
		return err
	}
	e.history.Clear()
	e.presenter.PlaySound(SoundReset)
	e.presenter.Notify(Event{Kind: EventReset, Team: e.session.CurrentTurn})
	e.renderLocked()
	e.logger.Info("game reset", zap.Int("players", len(e.session.ActiveTeams)), zap.Bool("pair_mode", setup.PairMode))
	return nil
}

// Undo restores the game to just before the last committed move.
//
// Postcondition: Returns false, changing nothing, while busy or when there is
// nothing to undo.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy || !e.history.Undo(e.session) {
		return false
	}
	e.presenter.PlaySound(SoundReturnHome)
	e.presenter.Notify(Event{Kind: EventUndone, Team: e.session.CurrentTurn})
	e.renderLocked()
	return true
}

// View returns a snapshot for rendering.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Phase returns the state machine's current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phaseLocked()
}

// ValidMoves returns the current team's legal moves for dice value v.
func (e *Engine) ValidMoves(v int) []Move {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ValidMoves(e.session, e.session.CurrentTurn, v)
}

func (e *Engine) phaseLocked() Phase {
	s := e.session
	switch {
	case s.GameOver:
		return PhaseGameOver
	case e.busy:
		return PhaseAnimating
	case s.SelectedBank >= 0 && s.SelectedBank < len(s.MoveBank):
		return PhaseAwaitingMoveSelection
	default:
		return PhaseAwaitingRoll
	}
}

func (e *Engine) viewLocked() View {
	return newView(e.session, e.phaseLocked(), e.history.Len())
}

func (e *Engine) renderLocked() {
	e.presenter.RenderBoard(e.viewLocked())
}

func (e *Engine) advanceLocked() {
	e.session.advanceTurn()
	if !e.session.GameOver {
		e.presenter.Notify(Event{Kind: EventTurnChanged, Team: e.session.CurrentTurn})
	}
}

func (e *Engine) guardLocked() error {
	if e.busy {
		return ErrBusy
	}
	if e.session.GameOver {
		return ErrGameOver
	}
	return nil
}

func (e *Engine) requirePending() error {
	if e.session.PendingRolls <= 0 {
		return ErrNoPendingRolls
	}
	return nil
}

// begin claims the busy flag after check (run under the lock) passes.
func (e *Engine) begin(check func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardLocked(); err != nil {
		return err
	}
	if check != nil {
		if err := check(); err != nil {
			return err
		}
	}
	e.busy = true
	return nil
}

// end releases the busy flag and renders the settled board.
func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	e.renderLocked()
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
