package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/ludo"
)

// Errors returned by Manager.
var (
	ErrNameTaken      = errors.New("name already in use")
	ErrPlayerNotFound = errors.New("player not found")
	ErrTableLimit     = errors.New("table limit reached")
	ErrTableNotFound  = errors.New("table not found")
	ErrAmbiguousTable = errors.New("table id prefix is ambiguous")
	ErrNotAtTable     = errors.New("not seated at a table")
	ErrAlreadyAtTable = errors.New("already seated at a table")
	ErrSeatTaken      = errors.New("team already claimed")
)

// PlayerSession tracks a connected player's state.
type PlayerSession struct {
	// UID is the unique player identifier.
	UID string
	// Name is the display name shown at tables.
	Name string
	// TableID is the table the player sits at, empty in the lobby.
	TableID string
	// Outbox carries everything written to the player.
	Outbox *Outbox
}

// Table is one running game and the players watching it.
type Table struct {
	// ID is the table's UUID.
	ID string
	// Name is the display name chosen at creation.
	Name string
	// Created is when the table was opened.
	Created time.Time
	// Engine drives the game.
	Engine *ludo.Engine

	members map[string]bool       // uid set
	seats   map[board.Team]string // team → uid
}

// ShortID returns the first eight characters of the table ID.
func (t *Table) ShortID() string {
	if len(t.ID) > 8 {
		return t.ID[:8]
	}
	return t.ID
}

// TableInfo is a read-only summary used for lobby listings.
type TableInfo struct {
	ID      string
	ShortID string
	Name    string
	Players int
	Setup   ludo.Setup
	Phase   ludo.Phase
}

// EngineBuilder constructs the engine for a freshly created table.
type EngineBuilder func(t *Table) (*ludo.Engine, error)

// Manager tracks all connected players and open tables.
// All methods are safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	players    map[string]*PlayerSession // uid → session
	tables     map[string]*Table         // id → table
	maxTables  int
	outboxSize int
}

// NewManager creates an empty session Manager.
//
// Precondition: maxTables must be >= 1.
func NewManager(maxTables int) *Manager {
	if maxTables < 1 {
		maxTables = 1
	}
	return &Manager{
		players:    make(map[string]*PlayerSession),
		tables:     make(map[string]*Table),
		maxTables:  maxTables,
		outboxSize: DefaultOutboxSize,
	}
}

// AddPlayer registers a new player in the lobby.
//
// Precondition: name must be non-empty.
// Postcondition: Returns the created PlayerSession, or ErrNameTaken if a connected
// player already uses name (case-insensitive).
func (m *Manager) AddPlayer(name string) (*PlayerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.players {
		if strings.EqualFold(p.Name, name) {
			return nil, fmt.Errorf("%q: %w", name, ErrNameTaken)
		}
	}

	uid := uuid.NewString()
	sess := &PlayerSession{
		UID:    uid,
		Name:   name,
		Outbox: NewOutbox(uid, m.outboxSize),
	}
	m.players[uid] = sess
	return sess, nil
}

// RemovePlayer removes a player, vacating any table seat and closing its outbox.
//
// Postcondition: The player is removed from all tracking. Returns ErrPlayerNotFound if absent.
func (m *Manager) RemovePlayer(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.players[uid]
	if !exists {
		return fmt.Errorf("player %q: %w", uid, ErrPlayerNotFound)
	}
	m.leaveLocked(sess)
	sess.Outbox.Close()
	delete(m.players, uid)
	return nil
}

// GetPlayer returns the session for the given UID.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (m *Manager) GetPlayer(uid string) (*PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.players[uid]
	return sess, ok
}

// TableOf returns the table uid sits at, or nil in the lobby.
func (m *Manager) TableOf(uid string) *Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.players[uid]
	if !ok {
		return nil
	}
	return m.tables[sess.TableID]
}

// PlayerCount returns the total number of connected players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}

// PlayerNames returns every connected player's name, sorted.
func (m *Manager) PlayerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.players))
	for _, p := range m.players {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// CreateTable opens a new table and seats uid at it.
//
// Precondition: uid must be a connected player in the lobby; build must be non-nil.
// Postcondition: Returns the new table, or an error when the player is unknown or
// already seated, the table limit is reached, or build fails.
func (m *Manager) CreateTable(uid, name string, build EngineBuilder) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.players[uid]
	if !ok {
		return nil, fmt.Errorf("player %q: %w", uid, ErrPlayerNotFound)
	}
	if sess.TableID != "" {
		return nil, ErrAlreadyAtTable
	}
	if len(m.tables) >= m.maxTables {
		return nil, fmt.Errorf("%d open: %w", len(m.tables), ErrTableLimit)
	}

	t := &Table{
		ID:      uuid.NewString(),
		Name:    name,
		Created: time.Now(),
		members: make(map[string]bool),
		seats:   make(map[board.Team]string),
	}
	if t.Name == "" {
		t.Name = "table " + t.ShortID()
	}
	eng, err := build(t)
	if err != nil {
		return nil, fmt.Errorf("building engine for table %s: %w", t.ShortID(), err)
	}
	t.Engine = eng

	m.tables[t.ID] = t
	t.members[uid] = true
	sess.TableID = t.ID
	return t, nil
}

// FindTable resolves a full table ID or a unique ID prefix.
//
// Postcondition: Returns the table, or ErrTableNotFound / ErrAmbiguousTable.
func (m *Manager) FindTable(idOrPrefix string) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(idOrPrefix)
}

func (m *Manager) findLocked(idOrPrefix string) (*Table, error) {
	key := strings.ToLower(strings.TrimSpace(idOrPrefix))
	if key == "" {
		return nil, ErrTableNotFound
	}
	if t, ok := m.tables[key]; ok {
		return t, nil
	}
	var found *Table
	for id, t := range m.tables {
		if !strings.HasPrefix(id, key) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%q: %w", idOrPrefix, ErrAmbiguousTable)
		}
		found = t
	}
	if found == nil {
		return nil, fmt.Errorf("%q: %w", idOrPrefix, ErrTableNotFound)
	}
	return found, nil
}

// JoinTable seats uid at the table identified by idOrPrefix.
//
// Precondition: uid must be a connected player in the lobby.
// Postcondition: Returns the joined table or an error; on error nothing changes.
func (m *Manager) JoinTable(uid, idOrPrefix string) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.players[uid]
	if !ok {
		return nil, fmt.Errorf("player %q: %w", uid, ErrPlayerNotFound)
	}
	if sess.TableID != "" {
		return nil, ErrAlreadyAtTable
	}
	t, err := m.findLocked(idOrPrefix)
	if err != nil {
		return nil, err
	}
	t.members[uid] = true
	sess.TableID = t.ID
	return t, nil
}

// LeaveTable returns uid to the lobby, releasing any claimed seats. The table is
// closed once its last member leaves.
//
// Postcondition: Returns the table left and whether it was closed.
func (m *Manager) LeaveTable(uid string) (*Table, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.players[uid]
	if !ok {
		return nil, false, fmt.Errorf("player %q: %w", uid, ErrPlayerNotFound)
	}
	if sess.TableID == "" {
		return nil, false, ErrNotAtTable
	}
	t, closed := m.leaveLocked(sess)
	return t, closed, nil
}

func (m *Manager) leaveLocked(sess *PlayerSession) (*Table, bool) {
	t, ok := m.tables[sess.TableID]
	sess.TableID = ""
	if !ok {
		return nil, false
	}
	delete(t.members, sess.UID)
	for team, holder := range t.seats {
		if holder == sess.UID {
			delete(t.seats, team)
		}
	}
	if len(t.members) == 0 {
		delete(m.tables, t.ID)
		return t, true
	}
	return t, false
}

// Tables returns a summary of every open table, oldest first.
func (m *Manager) Tables() []TableInfo {
	m.mu.RLock()
	tables := make([]*Table, 0, len(m.tables))
	counts := make(map[string]int, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
		counts[t.ID] = len(t.members)
	}
	m.mu.RUnlock()

	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Created.Equal(tables[j].Created) {
			return tables[i].ID < tables[j].ID
		}
		return tables[i].Created.Before(tables[j].Created)
	})

	// engine state is read outside the manager lock
	out := make([]TableInfo, len(tables))
	for i, t := range tables {
		v := t.Engine.View()
		out[i] = TableInfo{
			ID:      t.ID,
			ShortID: t.ShortID(),
			Name:    t.Name,
			Players: counts[t.ID],
			Setup:   ludo.Setup{Players: len(v.ActiveTeams), PairMode: v.PairMode},
			Phase:   v.Phase,
		}
	}
	return out
}

// TableCount returns the number of open tables.
func (m *Manager) TableCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables)
}

// Members returns the sessions seated at tableID, sorted by name.
func (m *Manager) Members(tableID string) []*PlayerSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[tableID]
	if !ok {
		return nil
	}
	out := make([]*PlayerSession, 0, len(t.members))
	for uid := range t.members {
		if sess, ok := m.players[uid]; ok {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Broadcast pushes data to every member of tableID except the UIDs in skip.
//
// Postcondition: Returns the number of members the push failed for.
func (m *Manager) Broadcast(tableID string, data []byte, skip ...string) int {
	failed := 0
	for _, sess := range m.Members(tableID) {
		if contains(skip, sess.UID) {
			continue
		}
		if err := sess.Outbox.Push(data); err != nil {
			failed++
		}
	}
	return failed
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Claim reserves team at uid's table for uid alone.
//
// Precondition: uid must be seated; team must be valid.
// Postcondition: Returns ErrSeatTaken if another member holds team. Claiming a team
// already held by uid is a no-op.
func (m *Manager) Claim(uid string, team board.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.players[uid]
	if !ok {
		return fmt.Errorf("player %q: %w", uid, ErrPlayerNotFound)
	}
	t, ok := m.tables[sess.TableID]
	if !ok {
		return ErrNotAtTable
	}
	if holder, taken := t.seats[team]; taken && holder != uid {
		name := holder
		if p, ok := m.players[holder]; ok {
			name = p.Name
		}
		return fmt.Errorf("%s held by %s: %w", team, name, ErrSeatTaken)
	}
	t.seats[team] = uid
	return nil
}

// Seats returns team → player name for every claimed team at tableID.
func (m *Manager) Seats(tableID string) map[board.Team]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[tableID]
	if !ok {
		return nil
	}
	out := make(map[board.Team]string, len(t.seats))
	for team, uid := range t.seats {
		if p, ok := m.players[uid]; ok {
			out[team] = p.Name
		}
	}
	return out
}

// MayAct reports whether uid may act for team at its table. Unclaimed teams are
// open to every member.
func (m *Manager) MayAct(uid string, team board.Team) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.players[uid]
	if !ok {
		return false
	}
	t, ok := m.tables[sess.TableID]
	if !ok {
		return false
	}
	holder, claimed := t.seats[team]
	return !claimed || holder == uid
}
