package scripting

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/dice"
)

// RegisterModules registers the ludo.* helper table into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: ludo global is defined in L.
func RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"team_name": luaTeamName,
		"partner":   luaPartner,
		"pair_name": luaPairName,
		"is_bonus":  luaIsBonus,
	})
	mod.RawSetString("max_score", lua.LNumber(dice.MaxScore))
	mod.RawSetString("num_dice", lua.LNumber(dice.NumDice))
	L.SetGlobal("ludo", mod)
}

// luaTeamName capitalizes a team name: ludo.team_name("red") == "Red".
func luaTeamName(L *lua.LState) int {
	s := L.CheckString(1)
	if s == "" {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(strings.ToUpper(s[:1]) + s[1:]))
	return 1
}

func luaPartner(L *lua.LState) int {
	t, err := board.ParseTeam(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	L.Push(lua.LString(board.Partner(t)))
	return 1
}

func luaPairName(L *lua.LState) int {
	t, err := board.ParseTeam(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	L.Push(lua.LString(board.PairName(t)))
	return 1
}

func luaIsBonus(L *lua.LState) int {
	L.Push(lua.LBool(dice.IsBonus(L.CheckInt(1))))
	return 1
}
