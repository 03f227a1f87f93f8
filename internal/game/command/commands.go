// Package command provides the command registry, parser, and built-in command definitions.
package command

// Categories for organizing commands.
const (
	CategoryLobby         = "lobby"
	CategoryPlay          = "play"
	CategoryTable         = "table"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
)

// Categories lists the command categories in help order.
var Categories = []string{CategoryLobby, CategoryPlay, CategoryTable, CategoryCommunication, CategorySystem}

// Scope controls where a command may be used.
type Scope int

const (
	// ScopeAny commands work both in the lobby and at a table.
	ScopeAny Scope = iota
	// ScopeLobby commands only work before joining a table.
	ScopeLobby
	// ScopeTable commands only work while seated at a table.
	ScopeTable
)

// Allows reports whether a command with scope s may run in context where.
func (s Scope) Allows(where Scope) bool {
	return s == ScopeAny || s == where
}

// Handler identifiers mapping commands to frontend handlers.
const (
	HandlerTables  = "tables"
	HandlerNew     = "new"
	HandlerJoin    = "join"
	HandlerRoll    = "roll"
	HandlerMoves   = "moves"
	HandlerMove    = "move"
	HandlerBank    = "bank"
	HandlerUndo    = "undo"
	HandlerBoard   = "board"
	HandlerStatus  = "status"
	HandlerNext    = "next"
	HandlerPrev    = "prev"
	HandlerReverse = "reverse"
	HandlerReset   = "reset"
	HandlerSit     = "sit"
	HandlerSay     = "say"
	HandlerWho     = "who"
	HandlerLeave   = "leave"
	HandlerHelp    = "help"
	HandlerQuit    = "quit"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form, e.g. "move <n|cell>".
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command for the help listing.
	Category string
	// Scope restricts the command to the lobby or a table.
	Scope Scope
	// Handler maps to the frontend handler.
	Handler string
}

// BuiltinCommands returns all built-in commands for the game.
func BuiltinCommands() []Command {
	return []Command{
		// Lobby commands
		{Name: "tables", Aliases: []string{"ls"}, Usage: "tables", Help: "List open tables", Category: CategoryLobby, Scope: ScopeLobby, Handler: HandlerTables},
		{Name: "new", Aliases: []string{"create"}, Usage: "new [2|3|4] [solo|pair]", Help: "Open a new table and sit at it", Category: CategoryLobby, Scope: ScopeLobby, Handler: HandlerNew},
		{Name: "join", Aliases: []string{"j"}, Usage: "join <id>", Help: "Join a table by id or id prefix", Category: CategoryLobby, Scope: ScopeLobby, Handler: HandlerJoin},

		// Play commands
		{Name: "roll", Aliases: []string{"r"}, Usage: "roll [faces]", Help: "Throw the six dice (faces like 101100 force a result)", Category: CategoryPlay, Scope: ScopeTable, Handler: HandlerRoll},
		{Name: "moves", Aliases: []string{"m"}, Usage: "moves", Help: "List legal moves for the selected roll", Category: CategoryPlay, Scope: ScopeTable, Handler: HandlerMoves},
		{Name: "move", Aliases: []string{"mv", "go"}, Usage: "move <n|cell>", Help: "Play move number n, or the move starting on cell", Category: CategoryPlay, Scope: ScopeTable, Handler: HandlerMove},
		{Name: "bank", Aliases: []string{"b"}, Usage: "bank <n>", Help: "Select which banked roll to play", Category: CategoryPlay, Scope: ScopeTable, Handler: HandlerBank},
		{Name: "undo", Aliases: []string{"u"}, Usage: "undo", Help: "Take back the last move", Category: CategoryPlay, Scope: ScopeTable, Handler: HandlerUndo},

		// Table commands
		{Name: "board", Aliases: []string{"look", "l"}, Usage: "board", Help: "Show the board", Category: CategoryTable, Scope: ScopeTable, Handler: HandlerBoard},
		{Name: "status", Aliases: []string{"st"}, Usage: "status", Help: "Show turn, bank and standings", Category: CategoryTable, Scope: ScopeTable, Handler: HandlerStatus},
		{Name: "next", Aliases: nil, Usage: "next", Help: "Pass the turn to the next team", Category: CategoryTable, Scope: ScopeTable, Handler: HandlerNext},
		{Name: "prev", Aliases: nil, Usage: "prev", Help: "Give the turn back to the previous team", Category: CategoryTable, Scope: ScopeTable, Handler: HandlerPrev},
		{Name: "reverse", Aliases: nil, Usage: "reverse", Help: "Reverse the turn order", Category: CategoryTable, Scope: ScopeTable, Handler: HandlerReverse},
		{Name: "reset", Aliases: nil, Usage: "reset [2|3|4] [solo|pair]", Help: "Start a new game at this table", Category: CategoryTable, Scope: ScopeTable, Handler: HandlerReset},
		{Name: "sit", Aliases: []string{"claim"}, Usage: "sit <team>", Help: "Claim a team so only you may play it", Category: CategoryTable, Scope: ScopeTable, Handler: HandlerSit},
		{Name: "leave", Aliases: nil, Usage: "leave", Help: "Leave the table and return to the lobby", Category: CategoryTable, Scope: ScopeTable, Handler: HandlerLeave},

		// Communication commands
		{Name: "say", Aliases: []string{"chat"}, Usage: "say <text>", Help: "Say something to the table", Category: CategoryCommunication, Scope: ScopeTable, Handler: HandlerSay},

		// System commands
		{Name: "who", Aliases: nil, Usage: "who", Help: "List connected players", Category: CategorySystem, Scope: ScopeAny, Handler: HandlerWho},
		{Name: "quit", Aliases: []string{"exit"}, Usage: "quit", Help: "Disconnect from the server", Category: CategorySystem, Scope: ScopeAny, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Usage: "help", Help: "Show available commands", Category: CategorySystem, Scope: ScopeAny, Handler: HandlerHelp},
	}
}
