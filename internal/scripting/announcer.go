package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/game/ludo"
)

// Hook names called by Announce.
const (
	HookRoll     = "on_roll"
	HookSkip     = "on_skip"
	HookCapture  = "on_capture"
	HookFinish   = "on_finish"
	HookGameOver = "on_game_over"
)

// Announce runs the hook matching e in tableID's VM and returns the lines it
// produced. A hook may return a string, an array of strings, or nothing.
//
// Hook signatures:
//
//	on_roll(team, score, dice, bonus)
//	on_skip(team, score)
//	on_capture(team, victim_team, cell)
//	on_finish(team)
//	on_game_over(standings)
//
// Postcondition: Returns nil for events without a hook or when no script
// answers.
func (m *Manager) Announce(tableID string, e ludo.Event) []string {
	var (
		hook  string
		build func(L *lua.LState) []lua.LValue
	)
	switch e.Kind {
	case ludo.EventRolled:
		hook = HookRoll
		build = func(L *lua.LState) []lua.LValue {
			faces := L.NewTable()
			for _, f := range e.Dice {
				faces.Append(lua.LNumber(f))
			}
			return []lua.LValue{lua.LString(e.Team), lua.LNumber(e.Score), faces, lua.LBool(dice.IsBonus(e.Score))}
		}
	case ludo.EventSkipped:
		hook = HookSkip
		build = func(*lua.LState) []lua.LValue {
			return []lua.LValue{lua.LString(e.Team), lua.LNumber(e.Score)}
		}
	case ludo.EventCaptured:
		hook = HookCapture
		build = func(*lua.LState) []lua.LValue {
			return []lua.LValue{lua.LString(e.Move.Pawn.Team), lua.LString(e.Victim.Team), lua.LString(e.Move.To)}
		}
	case ludo.EventFinished:
		hook = HookFinish
		build = func(*lua.LState) []lua.LValue {
			return []lua.LValue{lua.LString(e.Team)}
		}
	case ludo.EventGameOver:
		hook = HookGameOver
		build = func(L *lua.LState) []lua.LValue {
			standings := L.NewTable()
			for _, w := range e.Winners {
				standings.Append(lua.LString(w))
			}
			return []lua.LValue{standings}
		}
	default:
		return nil
	}

	ret, err := m.CallHookWith(tableID, hook, build)
	if err != nil {
		return nil
	}
	return lines(ret)
}

// lines flattens a hook's return value into output lines.
func lines(v lua.LValue) []string {
	switch val := v.(type) {
	case lua.LString:
		if val == "" {
			return nil
		}
		return []string{string(val)}
	case *lua.LTable:
		var out []string
		val.ForEach(func(_, item lua.LValue) {
			if s, ok := item.(lua.LString); ok && s != "" {
				out = append(out, string(s))
			}
		})
		return out
	default:
		return nil
	}
}
