package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/occupancy"
)

// FloorStats summarizes one floor. Beds are only counted for occupied
// rooms because an empty room has no sharing type yet.
type FloorStats struct {
	Floor          inventory.Floor `json:"floor"`
	Label          string          `json:"label"`
	TotalRooms     int             `json:"total_rooms"`
	FilledRooms    int             `json:"filled_rooms"`
	AvailableRooms int             `json:"available_rooms"`
	TotalBeds      int             `json:"total_beds"`
	AvailableBeds  int             `json:"available_beds"`
}

// BuildingStats sums FloorStats across the building
type BuildingStats struct {
	TotalRooms     int `json:"total_rooms"`
	FilledRooms    int `json:"filled_rooms"`
	AvailableRooms int `json:"available_rooms"`
}

// Row is one room in a tabular export
type Row struct {
	Floor         inventory.Floor     `json:"floor"`
	FloorLabel    string              `json:"floor_label"`
	Room          string              `json:"room"`
	RoomType      inventory.ShareType `json:"room_type"`
	Capacity      int                 `json:"capacity"`
	Occupied      int                 `json:"occupied"`
	AvailableBeds int                 `json:"available_beds"`
	Members       []string            `json:"members"`
}

// MemberList joins member names the way exports print them
func (r Row) MemberList() string {
	if len(r.Members) == 0 {
		return "None"
	}
	return strings.Join(r.Members, ", ")
}

// FloorSummary computes stats for every floor of inv
func FloorSummary(inv *inventory.Inventory, snap *occupancy.Snapshot) map[inventory.Floor]FloorStats {
	out := make(map[inventory.Floor]FloorStats, len(inv.Floors()))
	for _, floor := range inv.Floors() {
		stats := FloorStats{Floor: floor, Label: inventory.FloorLabel(floor)}
		for _, room := range inv.Rooms(floor) {
			stats.TotalRooms++

			occ, ok := snap.Room(room)
			if !ok {
				continue
			}
			capacity, err := inv.Capacity(occ.RoomType)
			if err != nil {
				continue
			}
			stats.TotalBeds += capacity
			if free := capacity - occ.Count; free > 0 {
				stats.AvailableBeds += free
			}
			if occ.Count >= capacity {
				stats.FilledRooms++
			}
		}
		stats.AvailableRooms = stats.TotalRooms - stats.FilledRooms
		out[floor] = stats
	}
	return out
}

// OrderedFloorSummary returns FloorSummary in inventory floor order
func OrderedFloorSummary(inv *inventory.Inventory, snap *occupancy.Snapshot) []FloorStats {
	summary := FloorSummary(inv, snap)
	out := make([]FloorStats, 0, len(summary))
	for _, floor := range inv.Floors() {
		out = append(out, summary[floor])
	}
	return out
}

// BuildingSummary sums the floor summaries
func BuildingSummary(inv *inventory.Inventory, snap *occupancy.Snapshot) BuildingStats {
	var b BuildingStats
	for _, f := range FloorSummary(inv, snap) {
		b.TotalRooms += f.TotalRooms
		b.FilledRooms += f.FilledRooms
		b.AvailableRooms += f.AvailableRooms
	}
	return b
}

// ExportRows projects every room of the building into a row, floors and
// rooms in inventory order
func ExportRows(inv *inventory.Inventory, snap *occupancy.Snapshot) []Row {
	rows := make([]Row, 0, inv.TotalRooms())
	for _, floor := range inv.Floors() {
		for _, room := range inv.Rooms(floor) {
			row := Row{
				Floor:      floor,
				FloorLabel: inventory.FloorLabel(floor),
				Room:       room,
				Members:    []string{},
			}
			if occ, ok := snap.Room(room); ok {
				row.RoomType = occ.RoomType
				row.Occupied = occ.Count
				if capacity, err := inv.Capacity(occ.RoomType); err == nil {
					row.Capacity = capacity
					if free := capacity - occ.Count; free > 0 {
						row.AvailableBeds = free
					}
				}
				for _, m := range occ.Members {
					row.Members = append(row.Members, m.Name)
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// CSVHeader is the column order of WriteCSV
var CSVHeader = []string{"Floor", "Room Number", "Room Type", "Capacity", "Occupied", "Available Beds", "Members"}

// WriteCSV writes rows as CSV. Rooms without occupants show "Empty" as
// their type.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		roomType := string(r.RoomType)
		if roomType == "" {
			roomType = "Empty"
		}
		record := []string{
			r.FloorLabel,
			r.Room,
			roomType,
			strconv.Itoa(r.Capacity),
			strconv.Itoa(r.Occupied),
			strconv.Itoa(r.AvailableBeds),
			r.MemberList(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
