package occupancy

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/models"
)

// Occupant is a member listed in a room
type Occupant struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Room is the occupancy of a room that has at least one active member.
// A room missing from a Snapshot has no type yet.
type Room struct {
	Count    int                 `json:"count"`
	RoomType inventory.ShareType `json:"room_type"`
	Members  []Occupant          `json:"members"`
}

// Snapshot is a point-in-time view of occupancy derived from active members.
// It is never a source of truth.
type Snapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Rooms       map[string]Room `json:"rooms"`
}

// Room returns the occupancy of a room, false when nobody lives there
func (s *Snapshot) Room(number string) (Room, bool) {
	if s == nil {
		return Room{}, false
	}
	r, ok := s.Rooms[number]
	return r, ok && r.Count > 0
}

// TypeOf returns the sharing type fixed by the room's occupants
func (s *Snapshot) TypeOf(number string) (inventory.ShareType, bool) {
	r, ok := s.Room(number)
	if !ok {
		return "", false
	}
	return r.RoomType, true
}

// Reason explains a rejected assignment
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonFull             Reason = "full"
	ReasonTypeMismatch     Reason = "type-mismatch"
	ReasonUnknownRoom      Reason = "unknown-room"
	ReasonInvalidShareType Reason = "invalid-share-type"
)

// Decision is the outcome of CanAssign
type Decision struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
	// ExistingType is set on a type mismatch
	ExistingType inventory.ShareType `json:"existing_type,omitempty"`
}

// Err converts a rejected decision into the error taxonomy
func (d Decision) Err(room string, t inventory.ShareType) error {
	switch d.Reason {
	case ReasonNone:
		if d.OK {
			return nil
		}
	case ReasonFull:
		return fmt.Errorf("%w: room %s for %s sharing", apperr.ErrRoomFull, room, t)
	case ReasonTypeMismatch:
		return fmt.Errorf("%w: room %s is already occupied as %s sharing", apperr.ErrRoomTypeMismatch, room, d.ExistingType)
	case ReasonUnknownRoom:
		return fmt.Errorf("%w: %s", apperr.ErrUnknownRoom, room)
	case ReasonInvalidShareType:
		return fmt.Errorf("%w: %q", apperr.ErrInvalidShareType, t)
	}
	return fmt.Errorf("%w: room %s rejected", apperr.ErrRoomFull, room)
}

// Resolver answers occupancy questions against a fixed inventory
type Resolver struct {
	inv *inventory.Inventory
	now func() time.Time
}

// NewResolver creates a resolver for inv
func NewResolver(inv *inventory.Inventory) *Resolver {
	return &Resolver{inv: inv, now: time.Now}
}

// Inventory returns the inventory the resolver was built with
func (r *Resolver) Inventory() *inventory.Inventory {
	return r.inv
}

// Compute groups active members by room. The first member seen in a room
// fixes its type. Inactive members are skipped.
func (r *Resolver) Compute(members []models.Member) *Snapshot {
	snap := &Snapshot{
		GeneratedAt: r.now(),
		Rooms:       make(map[string]Room),
	}
	for i := range members {
		m := &members[i]
		if !m.IsActive() {
			continue
		}
		room, ok := snap.Rooms[m.RoomNumber]
		if !ok {
			room = Room{RoomType: m.RoomType}
		}
		room.Count++
		room.Members = append(room.Members, Occupant{ID: m.ID, Name: m.FullName})
		snap.Rooms[m.RoomNumber] = room
	}
	return snap
}

// CapacityFor returns the bed count of a sharing type
func (r *Resolver) CapacityFor(t inventory.ShareType) (int, error) {
	return r.inv.Capacity(t)
}

// CanAssign decides whether one more member of type t fits into room.
// Empty rooms accept any type; unknown rooms and types are rejected.
func (r *Resolver) CanAssign(room string, t inventory.ShareType, snap *Snapshot) Decision {
	capacity, err := r.inv.Capacity(t)
	if err != nil {
		return Decision{Reason: ReasonInvalidShareType}
	}
	if !r.inv.HasRoom(room) {
		return Decision{Reason: ReasonUnknownRoom}
	}

	occ, occupied := snap.Room(room)
	if !occupied {
		return Decision{OK: true}
	}
	if occ.RoomType != t {
		return Decision{Reason: ReasonTypeMismatch, ExistingType: occ.RoomType}
	}
	if occ.Count >= capacity {
		return Decision{Reason: ReasonFull}
	}
	return Decision{OK: true}
}

// AvailableRoomsFor lists rooms on floor that can take a member of type t,
// in inventory order
func (r *Resolver) AvailableRoomsFor(floor inventory.Floor, t inventory.ShareType, snap *Snapshot) ([]string, error) {
	if _, err := r.inv.Capacity(t); err != nil {
		return nil, err
	}
	if !r.inv.HasFloor(floor) {
		return nil, fmt.Errorf("%w: %q", apperr.ErrInvalidFloor, floor)
	}

	available := []string{}
	for _, room := range r.inv.Rooms(floor) {
		if r.CanAssign(room, t, snap).OK {
			available = append(available, room)
		}
	}
	return available, nil
}

// AvailableBeds returns free beds in a room; zero for empty rooms since
// their type is not fixed yet
func (r *Resolver) AvailableBeds(room string, snap *Snapshot) int {
	occ, ok := snap.Room(room)
	if !ok {
		return 0
	}
	capacity, err := r.inv.Capacity(occ.RoomType)
	if err != nil {
		return 0
	}
	if free := capacity - occ.Count; free > 0 {
		return free
	}
	return 0
}
