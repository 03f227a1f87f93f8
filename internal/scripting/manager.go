package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// globalKey is the reserved key for the shared VM loaded via LoadGlobal.
// CallHook falls back to this VM when no table VM is found.
const globalKey = "__global__"

// vm is a single LState. LStates are not goroutine-safe, so every use holds mu.
type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		v.L.Close()
	}
}

// Manager owns one sandboxed LState per table plus an optional shared VM,
// and exposes hook dispatch.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	states    map[string]*vm
	dir       string
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager that loads scripts from dir.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs. An empty dir disables
// Attach; instLimit <= 0 uses DefaultInstructionLimit.
func NewManager(dir string, instLimit int, logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	return &Manager{
		states:    make(map[string]*vm),
		dir:       dir,
		instLimit: instLimit,
		logger:    logger,
	}
}

// Enabled reports whether a script directory is configured.
func (m *Manager) Enabled() bool {
	return m.dir != ""
}

// Attach creates a VM for tableID from the configured script directory so the
// table's scripts keep their own globals. A disabled Manager attaches nothing.
//
// Postcondition: Returns an error on Lua load failure; the table then falls
// back to the global VM.
func (m *Manager) Attach(tableID string) error {
	if !m.Enabled() {
		return nil
	}
	return m.loadInto(tableID, m.dir)
}

// Detach closes tableID's VM if it has one.
func (m *Manager) Detach(tableID string) {
	m.mu.Lock()
	v, ok := m.states[tableID]
	delete(m.states, tableID)
	m.mu.Unlock()
	if ok {
		v.close()
	}
}

// LoadGlobal creates the shared VM used by tables without their own.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string) error {
	return m.loadInto(globalKey, scriptDir)
}

func (m *Manager) loadInto(key, scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState()
	RegisterModules(L)
	for _, path := range luaFiles {
		release := Budget(L, m.instLimit)
		err := L.DoFile(path)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old, ok := m.states[key]
	m.states[key] = &vm{L: L}
	m.mu.Unlock()
	if ok {
		old.close()
	}
	m.logger.Debug("scripting: loaded scripts",
		zap.String("key", key),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// CallHook calls the named Lua global function in tableID's VM, falling back
// to the global VM. Returns (LNil, nil) if the hook is not defined or no VM
// exists. Lua runtime errors, including an exhausted instruction budget, are
// logged at Warn level and never propagated.
//
// Precondition: args must be scalar lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(tableID, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.CallHookWith(tableID, hook, func(*lua.LState) []lua.LValue { return args })
}

// CallHookWith is CallHook with arguments built by build on the VM that will
// run the hook, which is required for table arguments.
func (m *Manager) CallHookWith(tableID, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.states[tableID]
	if !ok {
		v = m.states[globalKey]
	}
	m.mu.RUnlock()

	if v == nil {
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return lua.LNil, nil
	}

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	release := Budget(v.L, m.instLimit)
	err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, build(v.L)...)
	release()
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("table", tableID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	states := m.states
	m.states = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range states {
		v.close()
	}
}
