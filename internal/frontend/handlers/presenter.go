package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/frontend/telnet"
	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/game/ludo"
	"github.com/cory-johannsen/ludo/internal/game/session"
	"github.com/cory-johannsen/ludo/internal/scripting"
)

// eraseLine returns the cursor to column 0 and clears the line, so frames
// overwrite each other in place.
const eraseLine = "\r\033[K"

var soundCues = map[ludo.Sound]string{
	ludo.SoundMoveStep:   "tap",
	ludo.SoundCapture:    "CRACK!",
	ludo.SoundReturnHome: "whoosh",
	ludo.SoundTeamFinish: "ding",
	ludo.SoundGameOver:   "fanfare",
	ludo.SoundReset:      "shuffle",
}

// Broadcaster delivers bytes to every member of a table.
type Broadcaster interface {
	Broadcast(tableID string, data []byte, skip ...string) int
	Seats(tableID string) map[board.Team]string
}

// Announcer produces commentary lines for game events.
type Announcer interface {
	Announce(tableID string, e ludo.Event) []string
}

// tablePresenter implements ludo.Presenter by writing text to everyone at
// one table.
//
// The engine holds its lock while calling most methods, so nothing here may
// call back into the engine.
type tablePresenter struct {
	tableID   string
	out       Broadcaster
	announcer Announcer
	stepDelay time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	lastBoard string
	// framing is set while a frame without a line ending is on screen.
	framing bool
	landed  []int
}

// newTablePresenter creates the presenter for tableID.
//
// Precondition: out and logger must be non-nil. announcer may be nil.
func newTablePresenter(tableID string, out Broadcaster, announcer Announcer, stepDelay time.Duration, logger *zap.Logger) *tablePresenter {
	return &tablePresenter{
		tableID:   tableID,
		out:       out,
		announcer: announcer,
		stepDelay: stepDelay,
		logger:    logger,
	}
}

func (p *tablePresenter) send(s string) {
	if failed := p.out.Broadcast(p.tableID, []byte(s)); failed > 0 {
		p.logger.Debug("broadcast incomplete", zap.Int("failed", failed))
	}
}

// lines sends complete lines, first clearing any frame in progress.
func (p *tablePresenter) lines(ls ...string) {
	if len(ls) == 0 {
		return
	}
	p.mu.Lock()
	prefix := ""
	if p.framing {
		prefix = eraseLine
		p.framing = false
	}
	p.mu.Unlock()
	p.send(prefix + strings.Join(ls, "\r\n") + "\r\n")
}

// frame replaces the current line with s without ending it.
func (p *tablePresenter) frame(s string) {
	p.mu.Lock()
	p.framing = true
	p.mu.Unlock()
	p.send(eraseLine + s)
}

// RenderBoard redraws the board for everyone unless it is unchanged since
// the last redraw.
func (p *tablePresenter) RenderBoard(v ludo.View) {
	text := RenderView(v, p.out.Seats(p.tableID))
	p.mu.Lock()
	if text == p.lastBoard {
		p.mu.Unlock()
		return
	}
	p.lastBoard = text
	p.mu.Unlock()
	p.lines(strings.TrimSuffix(text, "\r\n"))
}

// RenderCell shows what is left on the cell a pawn was lifted from.
func (p *tablePresenter) RenderCell(id board.CellID, pawns []board.Pawn) {
	rest := cellTokens(pawns)
	if rest == "" {
		rest = telnet.Colorize(telnet.Dim, "empty")
	}
	p.frame(fmt.Sprintf("%s: %s", CellLabel(id), rest))
}

// PlaySound prints the cue for s.
func (p *tablePresenter) PlaySound(s ludo.Sound) {
	cue, ok := soundCues[s]
	if !ok {
		return
	}
	p.lines(telnet.Colorize(telnet.Dim+telnet.Italic, "*"+cue+"*"))
}

// AnimatePawn walks a pawn token across steps, one frame per step.
//
// Postcondition: Returns ctx.Err() if ctx ends mid-walk; the final frame
// is then left unterminated.
func (p *tablePresenter) AnimatePawn(ctx context.Context, team board.Team, from board.CellID, steps []board.CellID) error {
	token := telnet.Colorize(teamColors[team], strings.ToUpper(team.Initial()))
	tap := telnet.Colorize(telnet.Dim, soundCues[ludo.SoundMoveStep])
	for i, step := range steps {
		if p.stepDelay > 0 {
			t := time.NewTimer(p.stepDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		p.frame(fmt.Sprintf("%s %s → %s  %d/%d %s", token, CellLabel(from), CellLabel(step), i+1, len(steps), tap))
	}
	p.mu.Lock()
	framing := p.framing
	p.framing = false
	p.mu.Unlock()
	if framing {
		p.send("\r\n")
	}
	return nil
}

// DieLanded redraws the dice as each one comes to rest.
func (p *tablePresenter) DieLanded(index, value int) {
	p.mu.Lock()
	if len(p.landed) != dice.NumDice {
		p.landed = make([]int, dice.NumDice)
		for i := range p.landed {
			p.landed[i] = -1
		}
	}
	if index >= 0 && index < len(p.landed) {
		p.landed[index] = value
	}
	faces := append([]int(nil), p.landed...)
	p.mu.Unlock()
	p.frame("dice: " + RenderDice(faces))
}

// Notify prints the event and any commentary the table's scripts add.
func (p *tablePresenter) Notify(e ludo.Event) {
	if e.Kind == ludo.EventRolled {
		p.mu.Lock()
		p.landed = nil
		p.mu.Unlock()
	}
	out := RenderEvent(e)
	if p.announcer != nil {
		for _, l := range p.announcer.Announce(p.tableID, e) {
			out = append(out, telnet.Colorize(telnet.Magenta, "» "+l))
		}
	}
	p.lines(out...)
}

var (
	_ ludo.Presenter = (*tablePresenter)(nil)
	_ Broadcaster    = (*session.Manager)(nil)
	_ Announcer      = (*scripting.Manager)(nil)
)
