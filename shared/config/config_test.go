package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("COLIVING_TEST_STR", "value")
	t.Setenv("COLIVING_TEST_INT", "42")
	t.Setenv("COLIVING_TEST_BAD_INT", "forty")
	t.Setenv("COLIVING_TEST_DUR", "90s")

	assert.Equal(t, "value", GetEnv("COLIVING_TEST_STR", "x"))
	assert.Equal(t, "x", GetEnv("COLIVING_TEST_MISSING", "x"))
	assert.Equal(t, 42, GetEnvInt("COLIVING_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("COLIVING_TEST_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, GetEnvDuration("COLIVING_TEST_DUR", time.Second))
}

func TestDatabaseConfigDefaults(t *testing.T) {
	cfg := GetDatabaseConfig()
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Contains(t, cfg.GetDSN(), "dbname=coliving_db")

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "test.db"))
	cfg = GetDatabaseConfig()
	db, err := ConnectDatabase(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Close())

	cfg.Driver = DriverMongo
	_, err = ConnectDatabase(cfg)
	assert.Error(t, err)
}

func TestLoadInventory(t *testing.T) {
	inv, err := LoadInventory()
	require.NoError(t, err)
	assert.Equal(t, 66, inv.TotalRooms())

	path := filepath.Join(t.TempDir(), "building.yaml")
	layout := `floors:
  - id: G
    rooms: [G1, G2]
  - id: "1"
    rooms: ["101"]
capacities:
  single: 1
  double: 2
  triple: 3
  shared: 4
`
	require.NoError(t, os.WriteFile(path, []byte(layout), 0o644))
	t.Setenv("INVENTORY_FILE", path)

	inv, err = LoadInventory()
	require.NoError(t, err)
	assert.Equal(t, 3, inv.TotalRooms())
}

func TestConfigureLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	logger := logrus.New()
	configureLogger(logger, "debug", "json", path, 1, 1, 1)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.Info("hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	configureLogger(logger, "nonsense", "text", "", 1, 1, 1)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
