package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoard_HasEveryCellEmpty(t *testing.T) {
	l := DefaultLayout()
	b := NewBoard(l)
	assert.Len(t, b.Cells(), 50)
	assert.Equal(t, 0, b.Total())
	assert.Equal(t, OffBoard, b.Cells()[49])
}

func TestBoard_PlaceRemove(t *testing.T) {
	b := NewBoard(DefaultLayout())
	home := CellAt(0, 3)
	require.NoError(t, b.Place(home, Pawn{ID: "r0", Team: Red, Arrival: 0}))
	require.NoError(t, b.Place(home, Pawn{ID: "r1", Team: Red, Arrival: 1}))
	assert.Equal(t, 2, b.CountTeam(home, Red))

	p, err := b.Remove(home, "r0")
	require.NoError(t, err)
	assert.Equal(t, "r0", p.ID)
	assert.Equal(t, 1, b.CountTeam(home, Red))

	_, err = b.Remove(home, "r0")
	assert.Error(t, err)
}

func TestBoard_PlaceUnknownCell(t *testing.T) {
	b := NewBoard(DefaultLayout())
	assert.Error(t, b.Place("cell-42-42", Pawn{ID: "r0", Team: Red}))
}

func TestBoard_OldestPicksLowestArrival(t *testing.T) {
	b := NewBoard(DefaultLayout())
	id := CellAt(1, 1)
	require.NoError(t, b.Place(id, Pawn{ID: "r2", Team: Red, Arrival: 9}))
	require.NoError(t, b.Place(id, Pawn{ID: "b0", Team: Blue, Arrival: 1}))
	require.NoError(t, b.Place(id, Pawn{ID: "r1", Team: Red, Arrival: 4}))

	p, ok := b.Oldest(id, Red)
	require.True(t, ok)
	assert.Equal(t, "r1", p.ID)

	_, ok = b.Oldest(id, Green)
	assert.False(t, ok)
}

func TestBoard_CloneIsIndependent(t *testing.T) {
	b := NewBoard(DefaultLayout())
	id := CellAt(2, 2)
	require.NoError(t, b.Place(id, Pawn{ID: "g0", Team: Green, Arrival: 3}))

	c := b.Clone()
	assert.True(t, b.Equal(c))

	_, err := c.Remove(id, "g0")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Total(), "removing from the clone must not touch the source board")
	assert.False(t, b.Equal(c))
}

func TestBoard_Locate(t *testing.T) {
	b := NewBoard(DefaultLayout())
	require.NoError(t, b.Place(OffBoard, Pawn{ID: "y3", Team: Yellow}))
	id, ok := b.Locate("y3")
	require.True(t, ok)
	assert.Equal(t, OffBoard, id)

	_, ok = b.Locate("y2")
	assert.False(t, ok)
}

func TestTeams(t *testing.T) {
	assert.Equal(t, Green, Partner(Red))
	assert.Equal(t, Yellow, Partner(Blue))
	assert.True(t, IsTeammate(Red, Green, true))
	assert.False(t, IsTeammate(Red, Green, false))
	assert.False(t, IsTeammate(Red, Red, true))
	assert.False(t, IsTeammate(Red, Blue, true))
	assert.Equal(t, "Blue/Yellow", PairName(Yellow))
	assert.Equal(t, "r3", PawnID(Red, 3))

	_, err := ParseTeam("purple")
	assert.Error(t, err)
	team, err := ParseTeam("blue")
	require.NoError(t, err)
	assert.Equal(t, Blue, team)
}

func TestActiveTeamsFor(t *testing.T) {
	two, err := ActiveTeamsFor(2)
	require.NoError(t, err)
	assert.Equal(t, []Team{Red, Green}, two)

	three, err := ActiveTeamsFor(3)
	require.NoError(t, err)
	assert.Equal(t, []Team{Red, Blue, Green}, three)

	_, err = ActiveTeamsFor(5)
	assert.Error(t, err)
}
