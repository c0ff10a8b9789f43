package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/ledger"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/occupancy"
	"github.com/pavitra93/go-coliving-admin/shared/store"
)

func setupTestDB(t *testing.T) *store.GormRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := store.NewGormRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func seedMembers(t *testing.T, repo *store.GormRepository) []*models.Member {
	t.Helper()
	members := store.NewMemberStore(repo, occupancy.NewResolver(inventory.Default()), nil, nil, quietLog())

	inputs := []struct {
		phone, room string
		t           inventory.ShareType
		amount      int64
	}{
		{"9700000001", "101", inventory.ShareSingle, 9000},
		{"9700000002", "102", inventory.ShareDouble, 7000},
		{"9700000003", "102", inventory.ShareDouble, 7000},
	}
	var out []*models.Member
	for _, in := range inputs {
		m, err := members.Create(context.Background(), store.CreateInput{
			FullName:      "Member " + in.phone,
			Gender:        models.GenderMale,
			Age:           30,
			PhoneNumber:   in.phone,
			Email:         in.phone + "@example.com",
			ParentsNumber: "9123456789",
			Address:       "Indiranagar",
			Occupation:    "Analyst",
			Amount:        in.amount,
			RoomNumber:    in.room,
			RoomType:      in.t,
		})
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func TestInventoryCommand(t *testing.T) {
	t.Setenv("INVENTORY_FILE", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inventory"})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "Ground Floor")
	assert.Contains(t, text, "Total rooms: 66")
}

func TestInventoryJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printInventory(&out, inventory.Default(), &options{format: "json"}))

	var body struct {
		Floors     map[string][]string `json:"floors"`
		Capacities map[string]int      `json:"capacities"`
		TotalRooms int                 `json:"total_rooms"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, 66, body.TotalRooms)
	assert.Len(t, body.Floors, 8)
	assert.Equal(t, 4, body.Capacities["shared"])
}

func TestStatsRejectsBadMonth(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats", "--month", "2024-13"})
	assert.Error(t, cmd.Execute())
}

func TestRunReport(t *testing.T) {
	repo := setupTestDB(t)
	seedMembers(t, repo)

	var out bytes.Buffer
	require.NoError(t, runReport(context.Background(), &out, repo, inventory.Default(), &options{format: "json"}))

	var body struct {
		Building struct {
			TotalRooms  int `json:"total_rooms"`
			FilledRooms int `json:"filled_rooms"`
		} `json:"building"`
		Floors []struct {
			Floor       string `json:"floor"`
			FilledRooms int    `json:"filled_rooms"`
		} `json:"floors"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, 66, body.Building.TotalRooms)
	assert.Equal(t, 2, body.Building.FilledRooms)
	require.Len(t, body.Floors, 8)
	assert.Equal(t, "G", body.Floors[0].Floor)

	out.Reset()
	require.NoError(t, runReport(context.Background(), &out, repo, inventory.Default(), &options{format: "text"}))
	assert.Contains(t, out.String(), "1st Floor")
	assert.Contains(t, out.String(), "Building")
}

func TestRunStats(t *testing.T) {
	repo := setupTestDB(t)
	members := seedMembers(t, repo)

	key, err := models.NewMonthKey(2024, 3)
	require.NoError(t, err)
	svc := ledger.NewService(repo, nil, quietLog())
	_, err = svc.SetPaid(context.Background(), members[0].ID, key, true, "cli-test")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runStats(context.Background(), &out, repo, key, &options{format: "json"}))

	var stats ledger.Stats
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalMembers)
	assert.Equal(t, int64(23000), stats.TotalAmount)
	assert.Equal(t, int64(9000), stats.PaidAmount)
	assert.Equal(t, 2, stats.RoomTypeStats[inventory.ShareDouble].Total)

	out.Reset()
	require.NoError(t, runStats(context.Background(), &out, repo, key, &options{format: "text"}))
	assert.Contains(t, out.String(), "March 2024")
	assert.Contains(t, out.String(), "Collected:  Rs.9000")
}

func TestRunExport(t *testing.T) {
	repo := setupTestDB(t)
	seedMembers(t, repo)

	var out bytes.Buffer
	require.NoError(t, runExport(context.Background(), &out, repo, inventory.Default(), &options{format: "text"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 67)
	assert.Contains(t, out.String(), "Member 9700000002")
	assert.Contains(t, out.String(), "Member 9700000003")
}
