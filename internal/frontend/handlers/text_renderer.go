package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cory-johannsen/ludo/internal/frontend/telnet"
	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/command"
	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/game/ludo"
	"github.com/cory-johannsen/ludo/internal/game/session"
)

// cellWidth is the visible width of one board cell, separator included.
const cellWidth = 7

var teamColors = map[board.Team]string{
	board.Red:    telnet.BrightRed,
	board.Blue:   telnet.BrightBlue,
	board.Green:  telnet.BrightGreen,
	board.Yellow: telnet.BrightYellow,
}

// TeamName returns the capitalized display name of t.
func TeamName(t board.Team) string {
	s := string(t)
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// TeamLabel returns t's display name in its team color.
func TeamLabel(t board.Team) string {
	return telnet.Colorize(teamColors[t], TeamName(t))
}

// CellLabel returns the short "row-col" form of id, or "off" for the
// off-board area.
func CellLabel(id board.CellID) string {
	if id == board.OffBoard {
		return "off"
	}
	if r, c, ok := id.Coords(); ok {
		return fmt.Sprintf("%d-%d", r, c)
	}
	return string(id)
}

// ParseCell converts user input into a cell. It accepts "cell-3-4", "3-4",
// "3,4" and "off".
//
// Postcondition: Returns a grid cell or board.OffBoard, or a non-nil error.
func ParseCell(s string) (board.CellID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "off" || s == string(board.OffBoard) {
		return board.OffBoard, nil
	}
	s = strings.TrimPrefix(s, "cell-")
	row, col, ok := strings.Cut(s, "-")
	if !ok {
		row, col, ok = strings.Cut(s, ",")
	}
	if !ok {
		return "", fmt.Errorf("cell %q: want row-col", s)
	}
	r, err := strconv.Atoi(row)
	if err != nil || r < 0 {
		return "", fmt.Errorf("cell %q: bad row", s)
	}
	c, err := strconv.Atoi(col)
	if err != nil || c < 0 {
		return "", fmt.Errorf("cell %q: bad column", s)
	}
	return board.CellAt(r, c), nil
}

// cellTokens renders the pawns on one cell as colored team initials, each
// followed by a count when more than one pawn of that team is present.
func cellTokens(pawns []board.Pawn) string {
	counts := make(map[board.Team]int, len(board.TurnOrder))
	for _, p := range pawns {
		counts[p.Team]++
	}
	var b strings.Builder
	for _, t := range board.TurnOrder {
		n := counts[t]
		if n == 0 {
			continue
		}
		token := strings.ToUpper(t.Initial())
		if n > 1 {
			token += strconv.Itoa(n)
		}
		b.WriteString(telnet.Colorize(teamColors[t], token))
	}
	return b.String()
}

func emptyCell(l *board.Layout, id board.CellID) string {
	for _, t := range board.TurnOrder {
		if l.IsHome(t, id) {
			return telnet.Colorize(telnet.Dim+teamColors[t], "<"+t.Initial()+">")
		}
	}
	if l.IsSafe(id) {
		return telnet.Colorize(telnet.BrightWhite, "*")
	}
	return telnet.Colorize(telnet.BrightBlack, ".")
}

// RenderGrid draws the board as a labelled grid followed by the count of
// pawns that have left the board.
func RenderGrid(v ludo.View) string {
	var b strings.Builder
	b.WriteString("    ")
	for c := range v.Layout.Cols {
		b.WriteString(telnet.PadRight(telnet.Colorize(telnet.Dim, strconv.Itoa(c)), cellWidth))
	}
	b.WriteString("\r\n")

	for r := range v.Layout.Rows {
		b.WriteString(telnet.Colorf(telnet.Dim, "%-4d", r))
		for c := range v.Layout.Cols {
			id := board.CellAt(r, c)
			content := cellTokens(v.Board.Pawns(id))
			if content == "" {
				content = emptyCell(v.Layout, id)
			}
			b.WriteString(telnet.PadRight(content, cellWidth))
		}
		b.WriteString("\r\n")
	}

	if off := v.Board.Pawns(board.OffBoard); len(off) > 0 {
		b.WriteString("Off the board: ")
		b.WriteString(cellTokens(off))
		b.WriteString("\r\n")
	}
	return b.String()
}

// SetupLabel describes a seating such as "4 players" or "pairs".
func SetupLabel(s ludo.Setup) string {
	if s.PairMode {
		return "pairs"
	}
	return fmt.Sprintf("%d players", s.Players)
}

// RenderBank shows the banked dice values with the selected one bracketed.
func RenderBank(bank []int, selected int) string {
	if len(bank) == 0 {
		return "empty"
	}
	parts := make([]string, len(bank))
	for i, v := range bank {
		if i == selected {
			parts[i] = telnet.Colorf(telnet.BrightWhite, "[%d]", v)
		} else {
			parts[i] = strconv.Itoa(v)
		}
	}
	return strings.Join(parts, " ")
}

// RenderStatus formats the turn, dice and standings. seats maps claimed
// teams to player names and may be nil.
func RenderStatus(v ludo.View, seats map[board.Team]string) string {
	var b strings.Builder

	turn := TeamLabel(v.CurrentTurn)
	if v.Playing != v.CurrentTurn {
		turn += " (playing " + TeamLabel(v.Playing) + ")"
	}
	if v.GameOver {
		turn = telnet.Colorize(telnet.BrightMagenta, "game over")
	}
	b.WriteString(fmt.Sprintf("Turn: %s  %s\r\n", turn, telnet.Colorize(telnet.Dim, v.Phase.String())))

	if !v.GameOver {
		b.WriteString(fmt.Sprintf("Rolls pending: %d  Bank: %s\r\n", v.PendingRolls, RenderBank(v.MoveBank, v.SelectedBank)))
	}

	order := make([]string, 0, len(v.ActiveTeams))
	for _, t := range v.ActiveTeams {
		label := TeamLabel(t)
		if v.HasKilled[t] {
			label += telnet.Colorize(telnet.Dim, "†")
		}
		if v.Finished[t] {
			label = telnet.Colorize(telnet.Dim, TeamName(t)+"✓")
		}
		if name, ok := seats[t]; ok {
			label += telnet.Colorize(telnet.Cyan, "("+name+")")
		}
		order = append(order, label)
	}
	sep := " > "
	if v.Reversed {
		sep = " < "
	}
	b.WriteString("Order: " + strings.Join(order, sep))
	if v.PairMode {
		b.WriteString(telnet.Colorize(telnet.Dim, "  pairs: Red/Green vs Blue/Yellow"))
	}
	b.WriteString("\r\n")

	if len(v.Standings) > 0 {
		b.WriteString("Standings: " + RenderStandings(v.Standings) + "\r\n")
	}
	return b.String()
}

// RenderStandings numbers the finishing order.
func RenderStandings(standings []string) string {
	parts := make([]string, len(standings))
	for i, s := range standings {
		parts[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(parts, "  ")
}

// RenderView draws the grid and the status block.
func RenderView(v ludo.View, seats map[board.Team]string) string {
	return GridDivider + "\r\n" + RenderGrid(v) + RenderStatus(v, seats) + RenderMoves(v.Moves)
}

// GridDivider separates consecutive board renders.
var GridDivider = telnet.Colorize(telnet.Dim, strings.Repeat("─", 4+7*cellWidth))

// FormatMove renders m with short cell labels.
func FormatMove(m ludo.Move) string {
	s := fmt.Sprintf("%s %s → %s", m.Pawn.ID, CellLabel(m.From), CellLabel(m.To))
	if m.Wrapped {
		s += telnet.Colorize(telnet.Dim, " (turned back at the gate)")
	}
	return s
}

// RenderMoves lists moves numbered from 1, or nothing when there are none.
func RenderMoves(moves []ludo.Move) string {
	if len(moves) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(telnet.Colorf(telnet.Cyan, "Moves for %d:", moves[0].Dice))
	b.WriteString("\r\n")
	for i, m := range moves {
		b.WriteString(fmt.Sprintf("  %s%2d)%s %s\r\n", telnet.BrightCyan, i+1, telnet.Reset, FormatMove(m)))
	}
	return b.String()
}

// RenderDice shows binary dice faces, with blanks for dice still in the air.
func RenderDice(faces []int) string {
	parts := make([]string, len(faces))
	for i, f := range faces {
		switch f {
		case 1:
			parts[i] = "■"
		case 0:
			parts[i] = "□"
		default:
			parts[i] = "·"
		}
	}
	return strings.Join(parts, " ")
}

// RenderEvent turns an engine event into display lines.
func RenderEvent(e ludo.Event) []string {
	who := TeamLabel(e.Team)
	switch e.Kind {
	case ludo.EventRolled:
		line := fmt.Sprintf("%s rolls %s = %s", who, RenderDice(e.Dice), telnet.Colorf(telnet.BrightWhite, "%d", e.Score))
		if dice.IsBonus(e.Score) {
			line += telnet.Colorize(telnet.BrightYellow, "  roll again!")
		}
		return []string{line}
	case ludo.EventSkipped:
		if e.Score > 0 {
			return []string{fmt.Sprintf("%s cannot use the %d.", who, e.Score)}
		}
		return []string{fmt.Sprintf("%s has no playable roll left.", who)}
	case ludo.EventChoose:
		lines := []string{fmt.Sprintf("%s, choose a move for %d:", who, e.Score)}
		for i, m := range e.Moves {
			lines = append(lines, fmt.Sprintf("  %s%2d)%s %s", telnet.BrightCyan, i+1, telnet.Reset, FormatMove(m)))
		}
		return lines
	case ludo.EventMoved:
		return []string{fmt.Sprintf("%s moves %s.", who, FormatMove(e.Move))}
	case ludo.EventCaptured:
		return []string{telnet.Colorf(telnet.Bold, "%s's %s captures %s's %s on %s!",
			TeamName(e.Move.Pawn.Team), e.Move.Pawn.ID, TeamName(e.Victim.Team), e.Victim.ID, CellLabel(e.Move.To))}
	case ludo.EventFinished:
		return []string{fmt.Sprintf("%s has brought every pawn home!", who)}
	case ludo.EventGameOver:
		return []string{telnet.Colorize(telnet.BrightMagenta, "Game over! ") + RenderStandings(e.Winners)}
	case ludo.EventTurnChanged:
		return []string{fmt.Sprintf("It is %s's turn.", who)}
	case ludo.EventUndone:
		return []string{fmt.Sprintf("Last move taken back. %s to play.", who)}
	case ludo.EventReset:
		return []string{fmt.Sprintf("New game! %s starts.", who)}
	default:
		return nil
	}
}

// RenderTables lists open tables for the lobby.
func RenderTables(infos []session.TableInfo) string {
	if len(infos) == 0 {
		return telnet.Colorize(telnet.Dim, "No open tables. Type 'new' to start one.") + "\r\n"
	}
	var b strings.Builder
	b.WriteString(telnet.Colorf(telnet.BrightWhite, "%-9s %-20s %-8s %-10s %s", "ID", "NAME", "SEATED", "SETUP", "STATE"))
	b.WriteString("\r\n")
	for _, t := range infos {
		b.WriteString(fmt.Sprintf("%s%-9s%s %-20s %-8d %-10s %s\r\n",
			telnet.BrightCyan, t.ShortID, telnet.Reset,
			t.Name, t.Players, SetupLabel(t.Setup), t.Phase))
	}
	return b.String()
}

// RenderHelp lists cmds under a heading per category, with usage and aliases.
func RenderHelp(cmds []*command.Command) string {
	var b strings.Builder
	category := ""
	for _, c := range cmds {
		if c.Category != category {
			category = c.Category
			b.WriteString(telnet.Colorize(telnet.BrightWhite, strings.ToUpper(category[:1])+category[1:]+":"))
			b.WriteString("\r\n")
		}
		line := fmt.Sprintf("  %s%-16s%s %s", telnet.Green, c.Usage, telnet.Reset, c.Help)
		if len(c.Aliases) > 0 {
			line += telnet.Colorize(telnet.Dim, " ("+strings.Join(c.Aliases, ", ")+")")
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return b.String()
}
