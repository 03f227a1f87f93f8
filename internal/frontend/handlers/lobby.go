// Package handlers runs Telnet sessions: naming the player, the lobby, and
// play at a Ludo table.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/config"
	"github.com/cory-johannsen/ludo/internal/frontend/telnet"
	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/command"
	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/game/ludo"
	"github.com/cory-johannsen/ludo/internal/game/session"
	"github.com/cory-johannsen/ludo/internal/observability"
	"github.com/cory-johannsen/ludo/internal/scripting"
)

const welcomeBanner = `
` + telnet.Bold + telnet.BrightRed + `  ██╗     ` + telnet.BrightBlue + `██╗   ██╗` + telnet.BrightGreen + `██████╗ ` + telnet.BrightYellow + ` ██████╗
` + telnet.BrightRed + `  ██║     ` + telnet.BrightBlue + `██║   ██║` + telnet.BrightGreen + `██╔══██╗` + telnet.BrightYellow + `██╔═══██╗
` + telnet.BrightRed + `  ██║     ` + telnet.BrightBlue + `██║   ██║` + telnet.BrightGreen + `██║  ██║` + telnet.BrightYellow + `██║   ██║
` + telnet.BrightRed + `  ██║     ` + telnet.BrightBlue + `██║   ██║` + telnet.BrightGreen + `██║  ██║` + telnet.BrightYellow + `██║   ██║
` + telnet.BrightRed + `  ███████╗` + telnet.BrightBlue + `╚██████╔╝` + telnet.BrightGreen + `██████╔╝` + telnet.BrightYellow + `╚██████╔╝
` + telnet.BrightRed + `  ╚══════╝` + telnet.BrightBlue + ` ╚═════╝ ` + telnet.BrightGreen + `╚═════╝ ` + telnet.BrightYellow + ` ╚═════╝` + telnet.Reset + `

  Six binary dice, four teams, one way home.

`

const maxNameLength = 16

var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// LobbyHandler implements telnet.SessionHandler. It names the player, then
// runs lobby and table commands until the player quits or disconnects.
type LobbyHandler struct {
	sessions *session.Manager
	scripts  *scripting.Manager
	registry *command.Registry
	layout   *board.Layout
	roller   *dice.Roller
	game     config.GameConfig
	logger   *zap.Logger
}

// NewLobbyHandler creates a LobbyHandler.
//
// Precondition: every argument must be non-nil.
// Postcondition: Returns a LobbyHandler ready to handle sessions.
func NewLobbyHandler(
	sessions *session.Manager,
	scripts *scripting.Manager,
	layout *board.Layout,
	roller *dice.Roller,
	game config.GameConfig,
	logger *zap.Logger,
) *LobbyHandler {
	return &LobbyHandler{
		sessions: sessions,
		scripts:  scripts,
		registry: command.DefaultRegistry(),
		layout:   layout,
		roller:   roller,
		game:     game,
		logger:   logger,
	}
}

// HandleSession implements telnet.SessionHandler.
//
// Postcondition: Returns nil on quit or a clean disconnect, otherwise the
// error that ended the session. The player is always removed on return.
func (h *LobbyHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	if err := conn.Write([]byte(strings.ReplaceAll(welcomeBanner, "\n", "\r\n"))); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	sess, err := h.register(ctx, conn)
	if err != nil || sess == nil {
		return err
	}
	logger := h.logger.With(zap.String("player", sess.Name), zap.String("remote_addr", addr))
	logger.Info("player entered lobby")

	writerDone := make(chan struct{})
	go h.writer(conn, sess, writerDone)
	defer func() {
		h.disconnect(sess, logger)
		<-writerDone
		logger.Info("player disconnected", zap.Duration("session_duration", time.Since(start)))
	}()

	h.reply(sess,
		telnet.Colorf(telnet.BrightWhite, "Welcome, %s! Type 'help' for commands.", sess.Name),
		strings.TrimSuffix(RenderTables(h.sessions.Tables()), "\r\n"),
	)
	return h.commandLoop(ctx, conn, sess, logger)
}

// register asks for a display name until a free one is given.
//
// Postcondition: Returns (nil, nil) when the player quits first.
func (h *LobbyHandler) register(ctx context.Context, conn *telnet.Conn) (*session.PlayerSession, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "Your name: ")); err != nil {
			return nil, fmt.Errorf("writing prompt: %w", err)
		}
		line, err := conn.ReadLine()
		if err != nil {
			return nil, endOfInput(err)
		}
		name := strings.TrimSpace(line)
		switch {
		case name == "":
			continue
		case strings.EqualFold(name, "quit"):
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			return nil, nil
		case len(name) > maxNameLength || !validName.MatchString(name):
			_ = conn.WriteLine(telnet.Colorf(telnet.Red,
				"Names are 1-%d letters, digits, '-' or '_', starting with a letter.", maxNameLength))
			continue
		}

		sess, err := h.sessions.AddPlayer(name)
		if errors.Is(err, session.ErrNameTaken) {
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "%s is already playing. Pick another name.", name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("adding player: %w", err)
		}
		return sess, nil
	}
}

func endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("reading input: %w", err)
}

// writer copies everything queued for the player to the connection and
// re-issues the prompt whenever the queue drains after a complete line.
func (h *LobbyHandler) writer(conn *telnet.Conn, sess *session.PlayerSession, done chan<- struct{}) {
	defer close(done)
	out := sess.Outbox
	broken := false
	for data := range out.Messages() {
		if broken {
			continue
		}
		if err := conn.Write(data); err != nil {
			broken = true
			continue
		}
		if out.Pending() == 0 && bytes.HasSuffix(data, []byte("\r\n")) {
			if err := conn.WritePrompt(h.prompt(sess.UID)); err != nil {
				broken = true
			}
		}
	}
}

func (h *LobbyHandler) prompt(uid string) string {
	t := h.sessions.TableOf(uid)
	if t == nil {
		return telnet.Colorize(telnet.BrightWhite, "lobby> ")
	}
	v := t.Engine.View()
	if v.GameOver {
		return telnet.Colorize(telnet.BrightMagenta, t.ShortID()+"> ")
	}
	return fmt.Sprintf("%s %s> ", telnet.Colorize(telnet.BrightWhite, t.ShortID()), TeamLabel(v.CurrentTurn))
}

// reply queues lines for this player only.
func (h *LobbyHandler) reply(sess *session.PlayerSession, lines ...string) {
	if len(lines) == 0 {
		return
	}
	_ = sess.Outbox.Push([]byte(strings.Join(lines, "\r\n") + "\r\n"))
}

// announce sends lines to everyone at tableID except skip.
func (h *LobbyHandler) announce(tableID string, line string, skip ...string) {
	h.sessions.Broadcast(tableID, []byte(line+"\r\n"), skip...)
}

// disconnect takes the player off their table and out of the server.
func (h *LobbyHandler) disconnect(sess *session.PlayerSession, logger *zap.Logger) {
	if t, closed, err := h.sessions.LeaveTable(sess.UID); err == nil {
		h.afterLeave(sess, t, closed, logger)
	}
	if err := h.sessions.RemovePlayer(sess.UID); err != nil {
		logger.Warn("removing player", zap.Error(err))
	}
}

func (h *LobbyHandler) afterLeave(sess *session.PlayerSession, t *session.Table, closed bool, logger *zap.Logger) {
	if t == nil {
		return
	}
	if closed {
		h.scripts.Detach(t.ID)
		logger.Info("table closed", zap.String("table_id", t.ID), zap.String("table", t.Name))
		return
	}
	h.announce(t.ID, telnet.Colorf(telnet.Yellow, "%s leaves the table.", sess.Name))
}

// commandLoop reads and dispatches commands.
func (h *LobbyHandler) commandLoop(ctx context.Context, conn *telnet.Conn, sess *session.PlayerSession, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			return endOfInput(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			_ = conn.WritePrompt(h.prompt(sess.UID))
			continue
		}

		parsed := command.Parse(line)
		cmd, ok := h.registry.Resolve(parsed.Command)
		if !ok {
			h.reply(sess, telnet.Colorf(telnet.Red, "Unknown command %q. Type 'help' for a list.", parsed.Command))
			continue
		}

		res, err := h.dispatch(ctx, sess, cmd, parsed, logger)
		if err != nil {
			return err
		}
		if res.quit {
			return nil
		}
	}
}

// buildEngine returns the builder that wires a new table's engine to its
// presenter and logger.
func (h *LobbyHandler) buildEngine(setup ludo.Setup) session.EngineBuilder {
	return func(t *session.Table) (*ludo.Engine, error) {
		logger := observability.TableLogger(h.logger, t.ID, t.Name)
		p := newTablePresenter(t.ID, h.sessions, h.scripts, h.game.StepDelay, logger)
		return ludo.NewEngine(h.layout, setup, h.roller, p, logger, ludo.WithSkipDelay(h.game.SkipDelay))
	}
}

// defaultSetup is the configured seating for new tables.
func (h *LobbyHandler) defaultSetup() ludo.Setup {
	s := ludo.Setup{Players: h.game.Players, PairMode: h.game.PairMode}
	if s.Players == 0 {
		s = ludo.DefaultSetup()
	}
	return s
}
