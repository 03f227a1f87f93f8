package board

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// CellID addresses a grid cell ("cell-<row>-<col>") or the off-board sentinel.
type CellID string

// OffBoard is the sentinel cell that finished pawns move into.
const OffBoard CellID = "off-board-area"

// CellAt returns the identifier of the grid cell at row r, column c.
func CellAt(r, c int) CellID {
	return CellID(fmt.Sprintf("cell-%d-%d", r, c))
}

// Coords parses a grid cell identifier into its row and column.
//
// Postcondition: ok is false for OffBoard and for malformed identifiers.
func (id CellID) Coords() (r, c int, ok bool) {
	if !strings.HasPrefix(string(id), "cell-") {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(string(id), "cell-%d-%d", &r, &c); err != nil {
		return 0, 0, false
	}
	return r, c, true
}

//go:embed default_layout.yaml
var defaultLayoutYAML []byte

// Layout is the immutable board geometry: grid size, team homes, safe cells,
// and each team's ordered path from home to OffBoard.
type Layout struct {
	Rows      int               `yaml:"rows"`
	Cols      int               `yaml:"cols"`
	Homes     map[Team]CellID   `yaml:"homes"`
	SafeCells []CellID          `yaml:"safe_cells"`
	Paths     map[Team][]CellID `yaml:"paths"`

	index map[Team]map[CellID]int
	gates map[Team]int
	safe  map[CellID]bool
}

// DefaultLayout returns the standard 7x7 board.
//
// Postcondition: Returns a validated Layout; panics only if the embedded
// layout is corrupt.
func DefaultLayout() *Layout {
	l, err := ParseLayout(defaultLayoutYAML)
	if err != nil {
		panic("board: embedded default layout is invalid: " + err.Error())
	}
	return l
}

// LoadLayout reads a YAML layout file from path.
//
// Postcondition: Returns a validated Layout or a non-nil error.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout %s: %w", path, err)
	}
	l, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("parsing layout %s: %w", path, err)
	}
	return l, nil
}

// ParseLayout decodes and validates a YAML layout document.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding layout: %w", err)
	}
	if err := l.build(); err != nil {
		return nil, err
	}
	return &l, nil
}

// build validates the decoded layout and derives lookup tables.
func (l *Layout) build() error {
	if l.Rows < 3 || l.Cols < 3 || l.Rows != l.Cols || l.Rows%2 == 0 {
		return fmt.Errorf("layout grid must be square with an odd side >= 3, got %dx%d", l.Rows, l.Cols)
	}
	l.safe = make(map[CellID]bool, len(l.SafeCells))
	for _, id := range l.SafeCells {
		if !l.onGrid(id) {
			return fmt.Errorf("safe cell %q is not on the grid", id)
		}
		l.safe[id] = true
	}

	l.index = make(map[Team]map[CellID]int, len(TurnOrder))
	l.gates = make(map[Team]int, len(TurnOrder))
	for _, team := range TurnOrder {
		home, ok := l.Homes[team]
		if !ok {
			return fmt.Errorf("layout has no home for %s", team)
		}
		path := l.Paths[team]
		if len(path) < 2 {
			return fmt.Errorf("path for %s is too short", team)
		}
		if path[0] != home {
			return fmt.Errorf("path for %s must start at its home %q, starts at %q", team, home, path[0])
		}
		if path[len(path)-1] != OffBoard {
			return fmt.Errorf("path for %s must end at %q", team, OffBoard)
		}
		idx := make(map[CellID]int, len(path))
		for i, id := range path {
			if id != OffBoard && !l.onGrid(id) {
				return fmt.Errorf("path for %s: cell %q is not on the grid", team, id)
			}
			if prev, dup := idx[id]; dup {
				return fmt.Errorf("path for %s visits %q twice (index %d and %d)", team, id, prev, i)
			}
			idx[id] = i
		}
		l.index[team] = idx

		outer := l.Rows / 2
		n := 0
		for _, id := range path {
			if l.Ring(id) != outer {
				break
			}
			n++
		}
		l.gates[team] = n - 1
	}
	return nil
}

func (l *Layout) onGrid(id CellID) bool {
	r, c, ok := id.Coords()
	return ok && r >= 0 && r < l.Rows && c >= 0 && c < l.Cols
}

// Ring returns the Chebyshev distance of id from the center cell: 0 for the
// center, Rows/2 for the outer ring, -1 for OffBoard or unknown cells.
func (l *Layout) Ring(id CellID) int {
	r, c, ok := id.Coords()
	if !ok {
		return -1
	}
	mid := l.Rows / 2
	return max(abs(r-mid), abs(c-mid))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Path returns team's path. The returned slice must not be modified.
func (l *Layout) Path(team Team) []CellID {
	return l.Paths[team]
}

// PathIndex returns the position of id on team's path, or -1.
func (l *Layout) PathIndex(team Team, id CellID) int {
	if i, ok := l.index[team][id]; ok {
		return i
	}
	return -1
}

// Home returns team's home cell.
func (l *Layout) Home(team Team) CellID {
	return l.Homes[team]
}

// IsHome reports whether id is team's home cell.
func (l *Layout) IsHome(team Team, id CellID) bool {
	return l.Homes[team] == id
}

// IsSafe reports whether captures are forbidden on id.
func (l *Layout) IsSafe(id CellID) bool {
	return l.safe[id]
}

// GateIndex returns the last outer-ring index on team's path. A team that has
// not captured yet may not advance past it.
func (l *Layout) GateIndex(team Team) int {
	return l.gates[team]
}

// Cells returns every cell identifier in row-major order followed by OffBoard.
func (l *Layout) Cells() []CellID {
	out := make([]CellID, 0, l.Rows*l.Cols+1)
	for r := range l.Rows {
		for c := range l.Cols {
			out = append(out, CellAt(r, c))
		}
	}
	return append(out, OffBoard)
}

// Steps returns the cells a pawn traverses moving from index from to index to
// on team's path, excluding the start cell and including the destination.
// When wrapped is true the walk passes the gate index and continues from the
// start of the path.
//
// Precondition: from and to are valid indices on team's path.
func (l *Layout) Steps(team Team, from, to int, wrapped bool) []CellID {
	path := l.Paths[team]
	if !wrapped {
		if to <= from {
			return nil
		}
		return slices.Clone(path[from+1 : to+1])
	}
	gate := l.gates[team]
	steps := slices.Clone(path[from+1 : gate+1])
	return append(steps, path[:to+1]...)
}
