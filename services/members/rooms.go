package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/occupancy"
	"github.com/pavitra93/go-coliving-admin/shared/reporting"
	"github.com/pavitra93/go-coliving-admin/shared/store"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

// RoomView is a room in the occupancy response
type RoomView struct {
	Count         int                  `json:"count"`
	RoomType      inventory.ShareType  `json:"room_type"`
	Capacity      int                  `json:"capacity"`
	AvailableBeds int                  `json:"available_beds"`
	Members       []occupancy.Occupant `json:"members"`
}

// OccupancyView labels the room map with when it was computed; it is a
// snapshot, not stored state
type OccupancyView struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Rooms       map[string]RoomView `json:"rooms"`
}

func handleOccupancy(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := members.Snapshot(c.Request.Context())
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		resolver := members.Resolver()
		view := OccupancyView{GeneratedAt: snap.GeneratedAt, Rooms: make(map[string]RoomView, len(snap.Rooms))}
		for number, room := range snap.Rooms {
			capacity, _ := resolver.CapacityFor(room.RoomType)
			view.Rooms[number] = RoomView{
				Count:         room.Count,
				RoomType:      room.RoomType,
				Capacity:      capacity,
				AvailableBeds: resolver.AvailableBeds(number, snap),
				Members:       room.Members,
			}
		}

		utils.OKResponse(c, "Room occupancy retrieved successfully", view)
	}
}

func handleAvailableRooms(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		floor, err := members.Resolver().Inventory().ParseFloor(c.Query("floor"))
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		shareType, ok := parseShareType(c, "type")
		if !ok {
			return
		}

		rooms, err := members.AvailableRooms(c.Request.Context(), floor, shareType)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Available rooms retrieved successfully", gin.H{
			"floor":     floor,
			"room_type": shareType,
			"rooms":     rooms,
		})
	}
}

func handleRoomSummary(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := members.Snapshot(c.Request.Context())
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		inv := members.Resolver().Inventory()
		utils.OKResponse(c, "Room summary retrieved successfully", gin.H{
			"generated_at": snap.GeneratedAt,
			"building":     reporting.BuildingSummary(inv, snap),
			"floors":       reporting.OrderedFloorSummary(inv, snap),
		})
	}
}

// handleExport streams the room table as CSV, or JSON with format=json
func handleExport(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := members.Snapshot(c.Request.Context())
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		rows := reporting.ExportRows(members.Resolver().Inventory(), snap)

		if c.Query("format") == "json" {
			utils.OKResponse(c, "Room export generated successfully", rows)
			return
		}

		filename := fmt.Sprintf("room-occupancy-%s.csv", snap.GeneratedAt.Format("2006-01-02"))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Status(http.StatusOK)
		if err := reporting.WriteCSV(c.Writer, rows); err != nil {
			c.Error(err)
		}
	}
}

// FloorView is one floor of the inventory response
type FloorView struct {
	ID    inventory.Floor `json:"id"`
	Label string          `json:"label"`
	Rooms []string        `json:"rooms"`
}

func handleInventory(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		inv := members.Resolver().Inventory()

		floors := make([]FloorView, 0, len(inv.Floors()))
		for _, f := range inv.Floors() {
			floors = append(floors, FloorView{ID: f, Label: inventory.FloorLabel(f), Rooms: inv.Rooms(f)})
		}
		capacities := make(map[inventory.ShareType]int, len(inventory.ShareTypes))
		for _, t := range inventory.ShareTypes {
			capacities[t], _ = inv.Capacity(t)
		}

		utils.OKResponse(c, "Inventory retrieved successfully", gin.H{
			"floors":      floors,
			"capacities":  capacities,
			"total_rooms": inv.TotalRooms(),
		})
	}
}
