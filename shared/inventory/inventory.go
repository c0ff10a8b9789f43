package inventory

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
)

// ShareType is the sharing category that governs bed capacity
type ShareType string

const (
	ShareSingle ShareType = "single"
	ShareDouble ShareType = "double"
	ShareTriple ShareType = "triple"
	ShareShared ShareType = "shared"
)

// ShareTypes lists every sharing type in capacity order
var ShareTypes = []ShareType{ShareSingle, ShareDouble, ShareTriple, ShareShared}

// ParseShareType accepts a sharing type name case-insensitively
func ParseShareType(s string) (ShareType, error) {
	t := ShareType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ShareTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperr.ErrInvalidShareType, s)
}

// Floor identifies a floor; GroundFloor is "G", the rest are small integers
type Floor string

const GroundFloor Floor = "G"

// FloorLabel returns the display name used by exports
func FloorLabel(f Floor) string {
	if f == GroundFloor {
		return "Ground Floor"
	}
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return "Floor " + string(f)
	}
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return string(f) + suffix + " Floor"
}

// Layout is the on-disk form of a building
type Layout struct {
	Floors     []FloorLayout     `yaml:"floors"`
	Capacities map[ShareType]int `yaml:"capacities"`
}

// FloorLayout lists the rooms of one floor in display order
type FloorLayout struct {
	ID    Floor    `yaml:"id"`
	Rooms []string `yaml:"rooms"`
}

// Inventory is the immutable physical room layout of the building
type Inventory struct {
	floors    []Floor
	rooms     map[Floor][]string
	roomFloor map[string]Floor
	capacity  map[ShareType]int
}

// New validates a layout and builds an Inventory from it
func New(layout Layout) (*Inventory, error) {
	if len(layout.Floors) == 0 {
		return nil, fmt.Errorf("inventory: at least one floor is required")
	}

	inv := &Inventory{
		rooms:     make(map[Floor][]string, len(layout.Floors)),
		roomFloor: make(map[string]Floor),
		capacity:  make(map[ShareType]int, len(ShareTypes)),
	}

	for _, fl := range layout.Floors {
		id := Floor(strings.TrimSpace(string(fl.ID)))
		if id == "" {
			return nil, fmt.Errorf("inventory: floor id must not be empty")
		}
		if _, dup := inv.rooms[id]; dup {
			return nil, fmt.Errorf("inventory: duplicate floor %q", id)
		}

		rooms := make([]string, 0, len(fl.Rooms))
		for _, r := range fl.Rooms {
			r = strings.TrimSpace(r)
			if r == "" {
				return nil, fmt.Errorf("inventory: empty room number on floor %q", id)
			}
			if prev, dup := inv.roomFloor[r]; dup {
				return nil, fmt.Errorf("inventory: room %q listed on floors %q and %q", r, prev, id)
			}
			inv.roomFloor[r] = id
			rooms = append(rooms, r)
		}

		inv.floors = append(inv.floors, id)
		inv.rooms[id] = rooms
	}

	for _, t := range ShareTypes {
		c, ok := layout.Capacities[t]
		if !ok {
			return nil, fmt.Errorf("inventory: missing capacity for %q", t)
		}
		if c <= 0 {
			return nil, fmt.Errorf("inventory: capacity for %q must be positive, got %d", t, c)
		}
		inv.capacity[t] = c
	}
	for t := range layout.Capacities {
		if _, err := ParseShareType(string(t)); err != nil {
			return nil, fmt.Errorf("inventory: unknown sharing type %q in capacities", t)
		}
	}

	return inv, nil
}

// Load reads a YAML layout file
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inventory: failed to read %s: %w", path, err)
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("inventory: failed to parse %s: %w", path, err)
	}
	return New(layout)
}

// DefaultLayout is the building the admin tool was built for
func DefaultLayout() Layout {
	layout := Layout{
		Floors: []FloorLayout{{ID: GroundFloor, Rooms: []string{"G1", "G2", "G3", "G4"}}},
		Capacities: map[ShareType]int{
			ShareSingle: 1,
			ShareDouble: 2,
			ShareTriple: 3,
			ShareShared: 4,
		},
	}
	for floor := 1; floor <= 6; floor++ {
		rooms := make([]string, 0, 10)
		for n := 1; n <= 10; n++ {
			rooms = append(rooms, fmt.Sprintf("%d%02d", floor, n))
		}
		layout.Floors = append(layout.Floors, FloorLayout{ID: Floor(fmt.Sprint(floor)), Rooms: rooms})
	}
	layout.Floors = append(layout.Floors, FloorLayout{ID: "7", Rooms: []string{"701", "702"}})
	return layout
}

// Default returns the built-in building inventory
func Default() *Inventory {
	inv, err := New(DefaultLayout())
	if err != nil {
		panic("inventory: built-in layout is invalid: " + err.Error())
	}
	return inv
}

// Floors returns floor ids in layout order
func (inv *Inventory) Floors() []Floor {
	out := make([]Floor, len(inv.floors))
	copy(out, inv.floors)
	return out
}

// Rooms returns the rooms of a floor in layout order, nil for unknown floors
func (inv *Inventory) Rooms(floor Floor) []string {
	rooms, ok := inv.rooms[floor]
	if !ok {
		return nil
	}
	out := make([]string, len(rooms))
	copy(out, rooms)
	return out
}

// HasFloor reports whether the floor exists
func (inv *Inventory) HasFloor(floor Floor) bool {
	_, ok := inv.rooms[floor]
	return ok
}

// ParseFloor resolves a floor identifier, accepting "g" for the ground floor
func (inv *Inventory) ParseFloor(s string) (Floor, error) {
	f := Floor(strings.TrimSpace(s))
	if strings.EqualFold(string(f), string(GroundFloor)) {
		f = GroundFloor
	}
	if !inv.HasFloor(f) {
		return "", fmt.Errorf("%w: %q", apperr.ErrInvalidFloor, s)
	}
	return f, nil
}

// FloorOf returns the floor a room belongs to
func (inv *Inventory) FloorOf(room string) (Floor, bool) {
	f, ok := inv.roomFloor[room]
	return f, ok
}

// HasRoom reports whether the room exists anywhere in the building
func (inv *Inventory) HasRoom(room string) bool {
	_, ok := inv.roomFloor[room]
	return ok
}

// Capacity returns the bed count for a sharing type
func (inv *Inventory) Capacity(t ShareType) (int, error) {
	c, ok := inv.capacity[t]
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperr.ErrInvalidShareType, t)
	}
	return c, nil
}

// TotalRooms counts rooms across all floors
func (inv *Inventory) TotalRooms() int {
	return len(inv.roomFloor)
}
