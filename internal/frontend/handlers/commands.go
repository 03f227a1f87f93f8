package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/frontend/telnet"
	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/command"
	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/game/ludo"
	"github.com/cory-johannsen/ludo/internal/game/session"
)

// cmdContext carries all inputs a command handler needs.
type cmdContext struct {
	ctx    context.Context
	h      *LobbyHandler
	sess   *session.PlayerSession
	table  *session.Table
	cmd    *command.Command
	parsed command.ParseResult
	logger *zap.Logger
}

// cmdResult is returned by every command handler.
// quit is true when the player asked to disconnect.
type cmdResult struct {
	quit bool
}

// cmdHandlerFunc is the signature for all command dispatch functions. A
// returned error ends the session; rejected input is reported to the player
// and returns nil.
type cmdHandlerFunc func(c *cmdContext) (cmdResult, error)

// CommandHandlers returns the map from Handler constant to dispatch function.
// Exported so TestAllCommandHandlersAreWired can verify completeness.
func CommandHandlers() map[string]cmdHandlerFunc {
	return cmdHandlerMap
}

// cmdHandlerMap is the single source of truth for command dispatch.
// To add a new command: add a Handler constant to commands.go in the command
// package AND add an entry here.
var cmdHandlerMap = map[string]cmdHandlerFunc{
	command.HandlerTables:  cmdTables,
	command.HandlerNew:     cmdNew,
	command.HandlerJoin:    cmdJoin,
	command.HandlerRoll:    cmdRoll,
	command.HandlerMoves:   cmdMoves,
	command.HandlerMove:    cmdMove,
	command.HandlerBank:    cmdBank,
	command.HandlerUndo:    cmdUndo,
	command.HandlerBoard:   cmdBoard,
	command.HandlerStatus:  cmdStatus,
	command.HandlerNext:    cmdNext,
	command.HandlerPrev:    cmdPrev,
	command.HandlerReverse: cmdReverse,
	command.HandlerReset:   cmdReset,
	command.HandlerSit:     cmdSit,
	command.HandlerLeave:   cmdLeave,
	command.HandlerSay:     cmdSay,
	command.HandlerWho:     cmdWho,
	command.HandlerQuit:    cmdQuit,
	command.HandlerHelp:    cmdHelp,
}

// dispatch checks the command's scope and runs its handler.
func (h *LobbyHandler) dispatch(ctx context.Context, sess *session.PlayerSession, cmd *command.Command, parsed command.ParseResult, logger *zap.Logger) (cmdResult, error) {
	t := h.sessions.TableOf(sess.UID)
	where := command.ScopeLobby
	if t != nil {
		where = command.ScopeTable
	}
	if !cmd.Scope.Allows(where) {
		if where == command.ScopeLobby {
			h.reply(sess, errorLine("Join or open a table first ('tables', 'join <id>', 'new')."))
		} else {
			h.reply(sess, errorLine("Leave the table first."))
		}
		return cmdResult{}, nil
	}

	fn, ok := cmdHandlerMap[cmd.Handler]
	if !ok {
		logger.Error("command has no handler", zap.String("handler", cmd.Handler))
		h.reply(sess, errorLine("That command is not available."))
		return cmdResult{}, nil
	}
	return fn(&cmdContext{
		ctx:    ctx,
		h:      h,
		sess:   sess,
		table:  t,
		cmd:    cmd,
		parsed: parsed,
		logger: logger,
	})
}

func errorLine(msg string) string {
	return telnet.Colorize(telnet.Red, msg)
}

// say replies to the player only.
func (c *cmdContext) say(lines ...string) (cmdResult, error) {
	c.h.reply(c.sess, lines...)
	return cmdResult{}, nil
}

// fail reports err to the player as a friendly message.
func (c *cmdContext) fail(err error) (cmdResult, error) {
	return c.say(errorLine(describe(err)))
}

// usage reports the command's usage line.
func (c *cmdContext) usage() (cmdResult, error) {
	return c.say(errorLine("Usage: " + c.cmd.Usage))
}

// describe maps game and session errors to player-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, ludo.ErrBusy):
		return "Wait for the dice and pawns to settle."
	case errors.Is(err, ludo.ErrNoPendingRolls):
		return "There is no roll pending. Play a banked value with 'move'."
	case errors.Is(err, ludo.ErrGameOver):
		return "The game is over. Type 'reset' to play again."
	case errors.Is(err, ludo.ErrNoSelection):
		return "Pick a banked value first with 'bank <n>'."
	case errors.Is(err, ludo.ErrIllegalMove):
		return "That move is not legal. Type 'moves' to see the options."
	case errors.Is(err, ludo.ErrAmbiguousMove):
		return "More than one pawn can make that move; give the destination too."
	case errors.Is(err, ludo.ErrBankIndex):
		return "There is no such banked value."
	case errors.Is(err, ludo.ErrMoveAborted):
		return "The move was interrupted and has been taken back."
	case errors.Is(err, session.ErrTableLimit):
		return "Every table is in use. Join one with 'join <id>'."
	case errors.Is(err, session.ErrTableNotFound):
		return "No such table. Type 'tables' to list them."
	case errors.Is(err, session.ErrAmbiguousTable):
		return "Several tables match; type more of the id."
	case errors.Is(err, session.ErrAlreadyAtTable):
		return "Leave your table first."
	case errors.Is(err, session.ErrNotAtTable):
		return "You are not at a table."
	default:
		return err.Error()
	}
}

// mayAct rejects the command unless the player may play for the team whose
// turn it is.
func (c *cmdContext) mayAct() bool {
	v := c.table.Engine.View()
	if c.h.sessions.MayAct(c.sess.UID, v.CurrentTurn) {
		return true
	}
	holder := c.h.sessions.Seats(c.table.ID)[v.CurrentTurn]
	c.h.reply(c.sess, errorLine(fmt.Sprintf("%s is played by %s.", TeamName(v.CurrentTurn), holder)))
	return false
}

// ParseSetup reads an optional player count, "pair" or "solo", and a table
// name from args. Anything that is not a setup word becomes part of the name.
//
// Postcondition: Returns a Setup with Players in 2..4, or an error.
func ParseSetup(args []string, def ludo.Setup) (ludo.Setup, string, error) {
	setup := def
	var name []string
	for _, a := range args {
		switch strings.ToLower(a) {
		case "2", "3", "4":
			setup.Players, _ = strconv.Atoi(a)
			setup.PairMode = false
		case "pair", "pairs":
			setup.PairMode = true
			setup.Players = 4
		case "solo":
			setup.PairMode = false
		default:
			if _, err := strconv.Atoi(a); err == nil {
				return ludo.Setup{}, "", fmt.Errorf("%s players: choose 2, 3 or 4", a)
			}
			name = append(name, a)
		}
	}
	if setup.Players == 0 {
		setup.Players = 4
	}
	return setup, strings.Join(name, " "), nil
}

func cmdTables(c *cmdContext) (cmdResult, error) {
	return c.say(strings.TrimSuffix(RenderTables(c.h.sessions.Tables()), "\r\n"))
}

func cmdNew(c *cmdContext) (cmdResult, error) {
	setup, name, err := ParseSetup(c.parsed.Args, c.h.defaultSetup())
	if err != nil {
		return c.fail(err)
	}
	t, err := c.h.sessions.CreateTable(c.sess.UID, name, c.h.buildEngine(setup))
	if err != nil {
		return c.fail(err)
	}
	if err := c.h.scripts.Attach(t.ID); err != nil {
		c.logger.Warn("attaching table scripts", zap.String("table_id", t.ID), zap.Error(err))
	}
	c.logger.Info("table opened",
		zap.String("table_id", t.ID),
		zap.String("table", t.Name),
		zap.Int("players", setup.Players),
		zap.Bool("pair_mode", setup.PairMode),
	)
	return c.say(
		telnet.Colorf(telnet.BrightGreen, "You open %s (%s, id %s).", t.Name, SetupLabel(setup), t.ShortID()),
		strings.TrimSuffix(RenderView(t.Engine.View(), nil), "\r\n"),
	)
}

func cmdJoin(c *cmdContext) (cmdResult, error) {
	if len(c.parsed.Args) == 0 {
		return c.usage()
	}
	t, err := c.h.sessions.JoinTable(c.sess.UID, c.parsed.Arg(0))
	if err != nil {
		return c.fail(err)
	}
	c.h.announce(t.ID, telnet.Colorf(telnet.Yellow, "%s joins the table.", c.sess.Name), c.sess.UID)
	return c.say(
		telnet.Colorf(telnet.BrightGreen, "You join %s.", t.Name),
		strings.TrimSuffix(RenderView(t.Engine.View(), c.h.sessions.Seats(t.ID)), "\r\n"),
	)
}

func cmdRoll(c *cmdContext) (cmdResult, error) {
	if !c.mayAct() {
		return cmdResult{}, nil
	}
	var err error
	if c.parsed.RawArgs != "" {
		faces, perr := dice.ParseFaces(c.parsed.RawArgs)
		if perr != nil {
			return c.fail(perr)
		}
		_, err = c.table.Engine.RollForced(c.ctx, faces)
	} else {
		_, err = c.table.Engine.Roll(c.ctx)
	}
	if err != nil {
		return c.fail(err)
	}
	return cmdResult{}, nil
}

func cmdMoves(c *cmdContext) (cmdResult, error) {
	v := c.table.Engine.View()
	if len(v.Moves) == 0 {
		return c.say(telnet.Colorize(telnet.Dim, "No moves available."))
	}
	return c.say(strings.TrimSuffix(RenderMoves(v.Moves), "\r\n"))
}

// resolveMove turns "n", "cell" or "from to" into a move among moves.
func resolveMove(args []string, moves []ludo.Move) (ludo.Move, error) {
	if n, err := strconv.Atoi(args[0]); err == nil && len(args) == 1 {
		if n < 1 || n > len(moves) {
			return ludo.Move{}, fmt.Errorf("pick a move between 1 and %d", len(moves))
		}
		return moves[n-1], nil
	}
	from, err := ParseCell(args[0])
	if err != nil {
		return ludo.Move{}, err
	}
	var to board.CellID
	if len(args) > 1 {
		if to, err = ParseCell(args[1]); err != nil {
			return ludo.Move{}, err
		}
	}
	var found []ludo.Move
	for _, m := range moves {
		if m.From == from && (to == "" || m.To == to) {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return ludo.Move{}, ludo.ErrIllegalMove
	case 1:
		return found[0], nil
	default:
		return ludo.Move{}, ludo.ErrAmbiguousMove
	}
}

func cmdMove(c *cmdContext) (cmdResult, error) {
	if len(c.parsed.Args) == 0 {
		return c.usage()
	}
	if !c.mayAct() {
		return cmdResult{}, nil
	}
	v := c.table.Engine.View()
	if v.GameOver {
		return c.fail(ludo.ErrGameOver)
	}
	if len(v.Moves) == 0 {
		return c.say(errorLine("No moves available."))
	}
	m, err := resolveMove(c.parsed.Args, v.Moves)
	if err != nil {
		return c.fail(err)
	}
	if err := c.table.Engine.Choose(c.ctx, m.From, m.To); err != nil {
		return c.fail(err)
	}
	return cmdResult{}, nil
}

func cmdBank(c *cmdContext) (cmdResult, error) {
	if len(c.parsed.Args) == 0 {
		v := c.table.Engine.View()
		return c.say("Bank: " + RenderBank(v.MoveBank, v.SelectedBank))
	}
	n, err := strconv.Atoi(c.parsed.Arg(0))
	if err != nil {
		return c.usage()
	}
	if !c.mayAct() {
		return cmdResult{}, nil
	}
	if err := c.table.Engine.SelectBank(n - 1); err != nil {
		return c.fail(err)
	}
	return cmdResult{}, nil
}

func cmdUndo(c *cmdContext) (cmdResult, error) {
	if !c.mayAct() {
		return cmdResult{}, nil
	}
	if !c.table.Engine.Undo() {
		return c.say(errorLine("Nothing to undo right now."))
	}
	return cmdResult{}, nil
}

func cmdBoard(c *cmdContext) (cmdResult, error) {
	return c.say(strings.TrimSuffix(RenderView(c.table.Engine.View(), c.h.sessions.Seats(c.table.ID)), "\r\n"))
}

func cmdStatus(c *cmdContext) (cmdResult, error) {
	return c.say(strings.TrimSuffix(RenderStatus(c.table.Engine.View(), c.h.sessions.Seats(c.table.ID)), "\r\n"))
}

func turnChange(c *cmdContext, offset int) (cmdResult, error) {
	if !c.mayAct() {
		return cmdResult{}, nil
	}
	if err := c.table.Engine.ManualTurnChange(offset); err != nil {
		return c.fail(err)
	}
	return cmdResult{}, nil
}

func cmdNext(c *cmdContext) (cmdResult, error) {
	return turnChange(c, 1)
}

func cmdPrev(c *cmdContext) (cmdResult, error) {
	return turnChange(c, -1)
}

func cmdReverse(c *cmdContext) (cmdResult, error) {
	reversed := c.table.Engine.ReverseTurnOrder()
	dir := "forward"
	if reversed {
		dir = "in reverse"
	}
	c.h.announce(c.table.ID, telnet.Colorf(telnet.Yellow, "%s sets play to run %s.", c.sess.Name, dir))
	return cmdResult{}, nil
}

func cmdReset(c *cmdContext) (cmdResult, error) {
	v := c.table.Engine.View()
	current := ludo.Setup{Players: len(v.ActiveTeams), PairMode: v.PairMode}
	setup, rest, err := ParseSetup(c.parsed.Args, current)
	if err != nil {
		return c.fail(err)
	}
	if rest != "" {
		return c.usage()
	}
	if err := c.table.Engine.Reset(setup); err != nil {
		return c.fail(err)
	}
	c.h.announce(c.table.ID, telnet.Colorf(telnet.Yellow, "%s started a new game (%s).", c.sess.Name, SetupLabel(setup)))
	return cmdResult{}, nil
}

func cmdSit(c *cmdContext) (cmdResult, error) {
	if len(c.parsed.Args) == 0 {
		seats := c.h.sessions.Seats(c.table.ID)
		v := c.table.Engine.View()
		lines := make([]string, 0, len(v.ActiveTeams))
		for _, t := range v.ActiveTeams {
			holder, ok := seats[t]
			if !ok {
				holder = telnet.Colorize(telnet.Dim, "open")
			}
			lines = append(lines, fmt.Sprintf("  %s %s", telnet.PadRight(TeamLabel(t), 8), holder))
		}
		return c.say(lines...)
	}
	team, err := board.ParseTeam(c.parsed.Arg(0))
	if err != nil {
		return c.fail(err)
	}
	if !slices.Contains(c.table.Engine.View().ActiveTeams, team) {
		return c.say(errorLine(TeamName(team) + " is not playing this game."))
	}
	if err := c.h.sessions.Claim(c.sess.UID, team); err != nil {
		return c.fail(err)
	}
	c.h.announce(c.table.ID, fmt.Sprintf("%s plays %s.", c.sess.Name, TeamLabel(team)))
	return cmdResult{}, nil
}

func cmdLeave(c *cmdContext) (cmdResult, error) {
	t, closed, err := c.h.sessions.LeaveTable(c.sess.UID)
	if err != nil {
		return c.fail(err)
	}
	c.h.afterLeave(c.sess, t, closed, c.logger)
	return c.say(
		telnet.Colorize(telnet.BrightGreen, "Back in the lobby."),
		strings.TrimSuffix(RenderTables(c.h.sessions.Tables()), "\r\n"),
	)
}

func cmdSay(c *cmdContext) (cmdResult, error) {
	if c.parsed.RawArgs == "" {
		return c.usage()
	}
	c.h.announce(c.table.ID, fmt.Sprintf("%s says: %s", telnet.Colorize(telnet.BrightCyan, c.sess.Name), c.parsed.RawArgs))
	return cmdResult{}, nil
}

func cmdWho(c *cmdContext) (cmdResult, error) {
	if c.table == nil {
		names := c.h.sessions.PlayerNames()
		return c.say(fmt.Sprintf("%d online: %s", len(names), strings.Join(names, ", ")))
	}
	seats := c.h.sessions.Seats(c.table.ID)
	byName := make(map[string][]string)
	for team, name := range seats {
		byName[name] = append(byName[name], TeamName(team))
	}
	members := c.h.sessions.Members(c.table.ID)
	lines := []string{telnet.Colorf(telnet.BrightWhite, "At %s:", c.table.Name)}
	for _, m := range members {
		line := "  " + m.Name
		if teams := byName[m.Name]; len(teams) > 0 {
			slices.Sort(teams)
			line += telnet.Colorize(telnet.Dim, " ("+strings.Join(teams, ", ")+")")
		}
		lines = append(lines, line)
	}
	return c.say(lines...)
}

func cmdQuit(c *cmdContext) (cmdResult, error) {
	c.h.reply(c.sess, telnet.Colorize(telnet.Cyan, "Goodbye!"))
	return cmdResult{quit: true}, nil
}

func cmdHelp(c *cmdContext) (cmdResult, error) {
	where := command.ScopeLobby
	if c.table != nil {
		where = command.ScopeTable
	}
	return c.say(strings.TrimSuffix(RenderHelp(c.h.registry.Available(where)), "\r\n"))
}
