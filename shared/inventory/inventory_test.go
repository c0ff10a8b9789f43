package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
)

func TestDefaultInventory(t *testing.T) {
	inv := Default()

	assert.Equal(t, []Floor{"G", "1", "2", "3", "4", "5", "6", "7"}, inv.Floors())
	assert.Equal(t, []string{"G1", "G2", "G3", "G4"}, inv.Rooms(GroundFloor))
	assert.Equal(t, []string{"701", "702"}, inv.Rooms("7"))
	assert.Len(t, inv.Rooms("3"), 10)
	assert.Equal(t, "310", inv.Rooms("3")[9])
	assert.Equal(t, 66, inv.TotalRooms())

	f, ok := inv.FloorOf("205")
	assert.True(t, ok)
	assert.Equal(t, Floor("2"), f)

	_, ok = inv.FloorOf("999")
	assert.False(t, ok)
	assert.Nil(t, inv.Rooms("9"))
}

func TestCapacity(t *testing.T) {
	inv := Default()

	for typ, want := range map[ShareType]int{ShareSingle: 1, ShareDouble: 2, ShareTriple: 3, ShareShared: 4} {
		got, err := inv.Capacity(typ)
		require.NoError(t, err)
		assert.Equal(t, want, got, typ)
	}

	_, err := inv.Capacity("quad")
	assert.ErrorIs(t, err, apperr.ErrInvalidShareType)
}

func TestParseShareType(t *testing.T) {
	typ, err := ParseShareType(" Double ")
	require.NoError(t, err)
	assert.Equal(t, ShareDouble, typ)

	_, err = ParseShareType("penthouse")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseFloor(t *testing.T) {
	inv := Default()

	f, err := inv.ParseFloor("g")
	require.NoError(t, err)
	assert.Equal(t, GroundFloor, f)

	_, err = inv.ParseFloor("8")
	assert.ErrorIs(t, err, apperr.ErrInvalidFloor)
}

func TestNewRejectsInvalidLayouts(t *testing.T) {
	caps := DefaultLayout().Capacities

	tests := []struct {
		name   string
		layout Layout
	}{
		{"no floors", Layout{Capacities: caps}},
		{"duplicate room", Layout{
			Floors:     []FloorLayout{{ID: "1", Rooms: []string{"101"}}, {ID: "2", Rooms: []string{"101"}}},
			Capacities: caps,
		}},
		{"duplicate floor", Layout{
			Floors:     []FloorLayout{{ID: "1", Rooms: []string{"101"}}, {ID: "1", Rooms: []string{"102"}}},
			Capacities: caps,
		}},
		{"missing capacity", Layout{
			Floors:     []FloorLayout{{ID: "1", Rooms: []string{"101"}}},
			Capacities: map[ShareType]int{ShareSingle: 1},
		}},
		{"zero capacity", Layout{
			Floors:     []FloorLayout{{ID: "1", Rooms: []string{"101"}}},
			Capacities: map[ShareType]int{ShareSingle: 1, ShareDouble: 0, ShareTriple: 3, ShareShared: 4},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.layout)
			assert.Error(t, err)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "building.yaml")
	content := `
floors:
  - id: G
    rooms: [G1]
  - id: "1"
    rooms: ["101", "102"]
capacities:
  single: 1
  double: 2
  triple: 3
  shared: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	inv, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Floor{"G", "1"}, inv.Floors())
	assert.Equal(t, []string{"101", "102"}, inv.Rooms("1"))
	assert.Equal(t, 3, inv.TotalRooms())
}

func TestFloorLabel(t *testing.T) {
	assert.Equal(t, "Ground Floor", FloorLabel(GroundFloor))
	assert.Equal(t, "1st Floor", FloorLabel("1"))
	assert.Equal(t, "2nd Floor", FloorLabel("2"))
	assert.Equal(t, "3rd Floor", FloorLabel("3"))
	assert.Equal(t, "4th Floor", FloorLabel("4"))
	assert.Equal(t, "11th Floor", FloorLabel("11"))
	assert.Equal(t, "Floor M", FloorLabel("M"))
}
