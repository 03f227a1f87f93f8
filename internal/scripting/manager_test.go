package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/ludo"
	"github.com/cory-johannsen/ludo/internal/scripting"
)

func newTestManager(t testing.TB, dir string) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(dir, 0, zap.New(core))
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

// repoRoot walks up from the test's working directory to find the module root.
func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root
		}
		parent := filepath.Dir(root)
		if parent == root {
			t.Fatalf("could not find repo root from %s", wd)
		}
		root = parent
	}
}

func TestManager_Attach_CallsHook(t *testing.T) {
	dir := writeTempLua(t, "hooks.lua", `
		function test_hook(a, b)
			return a + b
		end
	`)
	mgr, _ := newTestManager(t, dir)
	require.NoError(t, mgr.Attach("t1"))
	ret, err := mgr.CallHook("t1", "test_hook", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_Attach_DisabledIsNoOp(t *testing.T) {
	mgr, _ := newTestManager(t, "")
	assert.False(t, mgr.Enabled())
	require.NoError(t, mgr.Attach("t1"))
	ret, err := mgr.CallHook("t1", "anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_TablesKeepSeparateGlobals(t *testing.T) {
	dir := writeTempLua(t, "counter.lua", `
		n = 0
		function bump() n = n + 1 return n end
	`)
	mgr, _ := newTestManager(t, dir)
	require.NoError(t, mgr.Attach("a"))
	require.NoError(t, mgr.Attach("b"))

	_, _ = mgr.CallHook("a", "bump")
	ret, _ := mgr.CallHook("a", "bump")
	assert.Equal(t, lua.LNumber(2), ret)
	ret, _ = mgr.CallHook("b", "bump")
	assert.Equal(t, lua.LNumber(1), ret)
}

func TestManager_Detach(t *testing.T) {
	dir := writeTempLua(t, "hooks.lua", `function get_x() return 1 end`)
	mgr, _ := newTestManager(t, dir)
	require.NoError(t, mgr.Attach("t1"))
	mgr.Detach("t1")
	mgr.Detach("t1")
	ret, err := mgr.CallHook("t1", "get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t, writeTempLua(t, "empty.lua", `-- no functions`))
	require.NoError(t, mgr.Attach("t1"))
	ret, err := mgr.CallHook("t1", "nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t, writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`))
	require.NoError(t, mgr.Attach("t1"))
	ret, err := mgr.CallHook("t1", "bad_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestManager_CallHook_RunawayHookIsStopped(t *testing.T) {
	dir := writeTempLua(t, "spin.lua", `function spin() while true do end end`)
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(dir, 500, zap.New(core))
	defer mgr.Close()
	require.NoError(t, mgr.Attach("t1"))

	ret, err := mgr.CallHook("t1", "spin")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestManager_LoadGlobal_CallHookFallback(t *testing.T) {
	mgr, _ := newTestManager(t, "")
	require.NoError(t, mgr.LoadGlobal(writeTempLua(t, "global.lua", `
		function global_hook()
			return 42
		end
	`)))
	ret, err := mgr.CallHook("unknown-table", "global_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(42), ret)
}

func TestManager_Load_InvalidLua_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t, writeTempLua(t, "bad.lua", `this is not valid lua @@@@`))
	assert.Error(t, mgr.Attach("t1"))
}

func TestManager_Load_MissingDir_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t, filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, mgr.Attach("t1"))
}

func TestManager_Load_MultipleFiles_OrderedByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0644))
	mgr, _ := newTestManager(t, dir)
	require.NoError(t, mgr.Attach("ordered"))
	ret, err := mgr.CallHook("ordered", "get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() {
		scripting.NewManager("", 0, nil)
	})
}

func TestManager_Close_ReleasesTables(t *testing.T) {
	mgr, _ := newTestManager(t, writeTempLua(t, "init.lua", `function get_x() return x end`))
	require.NoError(t, mgr.Attach("t1"))
	mgr.Close()
	ret, err := mgr.CallHook("t1", "get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestProperty_CallHookConcurrentSameTable_NoRace(t *testing.T) {
	mgr, _ := newTestManager(t, writeTempLua(t, "hooks.lua", `
		function concurrent_hook(a, b)
			return a + b
		end
	`))
	require.NoError(t, mgr.Attach("conc"))

	const goroutines = 10
	const callsEach = 5
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				ret, err := mgr.CallHook("conc", "concurrent_hook", lua.LNumber(1), lua.LNumber(2))
				assert.NoError(t, err)
				assert.Equal(t, lua.LNumber(3), ret)
			}
		}()
	}
	wg.Wait()
}

func TestProperty_CallHookMissingTableNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t, "")
	rapid.Check(t, func(rt *rapid.T) {
		table := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "table")
		hook := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "hook")
		ret, err := mgr.CallHook(table, hook)
		if err != nil || ret != lua.LNil {
			rt.Fatalf("expected (nil, nil), got (%v, %v)", ret, err)
		}
	})
}

func TestAnnounce_BundledScript(t *testing.T) {
	mgr, _ := newTestManager(t, filepath.Join(repoRoot(t), "content", "scripts"))
	require.NoError(t, mgr.Attach("t1"))

	lines := mgr.Announce("t1", ludo.Event{Kind: ludo.EventRolled, Team: board.Red, Score: 12, Dice: []int{0, 0, 0, 0, 0, 0}})
	assert.Equal(t, []string{"Red throws all blanks: twelve, and another throw!"}, lines)

	assert.Empty(t, mgr.Announce("t1", ludo.Event{Kind: ludo.EventRolled, Team: board.Red, Score: 3, Dice: []int{1, 1, 1, 0, 0, 0}}))

	capture := ludo.Event{
		Kind:   ludo.EventCaptured,
		Team:   board.Blue,
		Move:   ludo.Move{To: board.CellAt(6, 2), Pawn: board.Pawn{ID: "b0", Team: board.Blue}},
		Victim: board.Pawn{ID: "g1", Team: board.Green},
	}
	assert.Equal(t, []string{"Blue sends Green home!", "First blood for Blue: the inner track is open."}, mgr.Announce("t1", capture))
	assert.Equal(t, []string{"Blue sends Green home!"}, mgr.Announce("t1", capture))

	assert.Equal(t, []string{"Game over.", "1. green", "2. red"},
		mgr.Announce("t1", ludo.Event{Kind: ludo.EventGameOver, Winners: []string{"green", "red"}}))

	assert.Nil(t, mgr.Announce("t1", ludo.Event{Kind: ludo.EventTurnChanged, Team: board.Red}))
}

func TestAnnounce_ReturnShapes(t *testing.T) {
	mgr, _ := newTestManager(t, writeTempLua(t, "shapes.lua", `
		function on_finish(team)
			if team == "red" then return "" end
			if team == "blue" then return 7 end
			return { "a", 1, "b" }
		end
	`))
	require.NoError(t, mgr.Attach("t1"))

	assert.Nil(t, mgr.Announce("t1", ludo.Event{Kind: ludo.EventFinished, Team: board.Red}))
	assert.Nil(t, mgr.Announce("t1", ludo.Event{Kind: ludo.EventFinished, Team: board.Blue}))
	assert.Equal(t, []string{"a", "b"}, mgr.Announce("t1", ludo.Event{Kind: ludo.EventFinished, Team: board.Green}))
}
