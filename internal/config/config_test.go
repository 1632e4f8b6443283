package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/fitetl/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Warehouse.Driver)
	assert.Equal(t, 10.0, cfg.Quality.NullPercentageThreshold)
	assert.Equal(t, 5.0, cfg.Quality.DuplicatePercentageThreshold)
	assert.Equal(t, 10, cfg.Quality.MinRecordCount)
	assert.Equal(t, 1000, cfg.ETL.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.ETL.RetryDelay())
	assert.True(t, cfg.ETL.EnableDataQualityChecks)
	assert.Equal(t, "append", cfg.ETL.LoadMode)
	assert.Equal(t, 30*time.Second, cfg.Warehouse.ConnectTimeout)
	assert.False(t, cfg.Warehouse.AutoMigrate)

	for _, kind := range domain.AllKinds {
		d, ok := cfg.Dataset(kind)
		require.True(t, ok, kind)
		assert.NotEmpty(t, d.File)
		assert.NotEmpty(t, d.Table)
	}
	assert.Equal(t, domain.TableRef{Database: "RAW_FITNESS_DB", Schema: "STAGING", Table: "RAW_WORKOUT_LOGS"},
		cfg.RawTable(domain.KindWorkoutLogs))
	assert.Len(t, cfg.DatasetFiles(), len(domain.AllKinds))
	assert.Equal(t, "members_sample.csv", cfg.DatasetFiles()[domain.KindMembers])
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("../../configs/config.yaml")
	require.NoError(t, err)

	assert.False(t, cfg.Warehouse.AutoMigrate)
	for _, kind := range domain.AllKinds {
		d, ok := cfg.Dataset(kind)
		require.True(t, ok, kind)
		assert.Empty(t, d.DuplicateKeys, kind)
	}
}

func TestLoadOverridesAndEnv(t *testing.T) {
	t.Setenv("WAREHOUSE_PASSWORD", "from-env")
	t.Setenv("API_NINJAS_KEY", "key-123")

	path := writeConfig(t, `
warehouse:
  driver: postgres
  host: warehouse.internal
  user: etl
  database: RAW_FITNESS_DB
etl:
  load_mode: replace
datasets:
  members:
    file: members.xlsx
    table: RAW_MEMBERS
    duplicate_keys: [member_id]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Warehouse.Driver)
	assert.Equal(t, "from-env", cfg.Warehouse.Password)
	assert.Equal(t, "key-123", cfg.API.APIKey)
	assert.Equal(t, "replace", cfg.ETL.LoadMode)

	members, ok := cfg.Dataset(domain.KindMembers)
	require.True(t, ok)
	assert.Equal(t, "members.xlsx", members.File)
	assert.Equal(t, []string{"member_id"}, members.DuplicateKeys)

	// untouched kinds keep their defaults
	exercises, _ := cfg.Dataset(domain.KindExercises)
	assert.Equal(t, "RAW_EXERCISES", exercises.Table)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null threshold above 100", "quality:\n  null_percentage_threshold: 150\n"},
		{"negative duplicate threshold", "quality:\n  duplicate_percentage_threshold: -1\n"},
		{"unknown load mode", "etl:\n  load_mode: merge\n"},
		{"unknown driver", "warehouse:\n  driver: oracle\n"},
		{"postgres without host", "warehouse:\n  driver: postgres\n  user: etl\n"},
		{"unknown source", "source:\n  type: ftp\n"},
		{"zero batch size", "etl:\n  batch_size: 0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestWarehouseDSN(t *testing.T) {
	cfg := WarehouseConfig{
		Driver:         "postgres",
		Account:        "acme.example.com",
		User:           "etl",
		Password:       "p ss'word",
		Warehouse:      "COMPUTE_WH",
		Port:           5432,
		Database:       "RAW_FITNESS_DB",
		SSLMode:        "disable",
		ConnectTimeout: 30 * time.Second,
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t,
		`host=acme.example.com port=5432 user=etl dbname=RAW_FITNESS_DB password='p ss\'word' sslmode=disable application_name=COMPUTE_WH connect_timeout=30`,
		cfg.DSN())

	redacted := cfg.Redacted()
	assert.Equal(t, "postgres://etl@acme.example.com:5432/RAW_FITNESS_DB", redacted)
	assert.NotContains(t, redacted, "word")

	cfg.Host = "db.internal"
	assert.Contains(t, cfg.DSN(), "host=db.internal ")
}

func TestWarehouseSQLite(t *testing.T) {
	cfg := WarehouseConfig{Driver: "sqlite", Path: "/tmp/wh.db"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/tmp/wh.db", cfg.DSN())
	assert.Equal(t, "/tmp/wh.db", cfg.Redacted())

	cfg.Path = ""
	assert.Error(t, cfg.Validate())
}
