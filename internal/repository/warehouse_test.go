package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
)

func newTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()
	wh := NewWarehouse(config.WarehouseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "warehouse.db"),
		Database: "RAW_FITNESS_DB",
		Schema:   "STAGING",
		LogLevel: "silent",
	}, 2)
	require.NoError(t, wh.Connect(context.Background()))
	t.Cleanup(func() { wh.Close() })
	return wh
}

func createVisits(t *testing.T, wh *Warehouse) {
	t.Helper()
	_, err := wh.Execute(context.Background(), `CREATE TABLE "VISITS" (id TEXT NOT NULL, qty INTEGER, day DATE, at TEXT)`)
	require.NoError(t, err)
}

func visits(n int) *domain.Dataset {
	ds := domain.NewDataset(domain.KindMemberEngagement, []string{"id", "qty", "day", "at"})
	day, _ := domain.ParseDate("2024-06-01")
	for i := 0; i < n; i++ {
		ds.Append([]any{"V" + string(rune('a'+i)), int64(i), day, domain.TimeOfDay{Hour: 9, Minute: i}})
	}
	return ds
}

func countRows(t *testing.T, wh *Warehouse, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, wh.DB().Table(table).Count(&n).Error)
	return n
}

func TestConnectIsIdempotent(t *testing.T) {
	wh := newTestWarehouse(t)
	db := wh.DB()
	require.NoError(t, wh.Connect(context.Background()))
	assert.Same(t, db, wh.DB())
	assert.True(t, wh.Connected())

	require.NoError(t, wh.Close())
	require.NoError(t, wh.Close())
	assert.False(t, wh.Connected())
}

func TestNotConnected(t *testing.T) {
	wh := NewWarehouse(config.WarehouseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "x.db")}, 10)

	_, err := wh.BulkLoad(context.Background(), visits(1), domain.TableRef{Table: "VISITS"}, domain.LoadModeAppend)
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.ErrorIs(t, wh.UseContext(context.Background(), "RAW", "STAGING"), domain.ErrConnection)
	assert.False(t, IsStorageError(err))
}

func TestConnectFailure(t *testing.T) {
	wh := NewWarehouse(config.WarehouseConfig{Driver: "oracle"}, 10)
	err := wh.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.False(t, wh.Connected())
}

func TestBulkLoadAppend(t *testing.T) {
	wh := newTestWarehouse(t)
	createVisits(t, wh)
	ref := domain.TableRef{Table: "VISITS"}

	n, err := wh.BulkLoad(context.Background(), visits(5), ref, domain.LoadModeAppend)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = wh.BulkLoad(context.Background(), visits(3), ref, domain.LoadModeAppend)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(8), countRows(t, wh, "VISITS"))

	var at string
	require.NoError(t, wh.DB().Table("VISITS").Select("at").Where("id = ?", "Vc").Limit(1).Scan(&at).Error)
	assert.Equal(t, "09:02:00", at)
}

func TestBulkLoadReplace(t *testing.T) {
	wh := newTestWarehouse(t)
	createVisits(t, wh)
	ref := domain.TableRef{Table: "VISITS"}

	_, err := wh.BulkLoad(context.Background(), visits(5), ref, domain.LoadModeAppend)
	require.NoError(t, err)

	n, err := wh.BulkLoad(context.Background(), visits(2), ref, domain.LoadModeReplace)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(2), countRows(t, wh, "VISITS"))
}

func TestBulkLoadFailMode(t *testing.T) {
	wh := newTestWarehouse(t)
	createVisits(t, wh)
	ref := domain.TableRef{Table: "VISITS"}

	_, err := wh.BulkLoad(context.Background(), visits(2), ref, domain.LoadModeFail)
	require.NoError(t, err)

	_, err = wh.BulkLoad(context.Background(), visits(2), ref, domain.LoadModeFail)
	assert.ErrorIs(t, err, domain.ErrTableNotEmpty)
	assert.True(t, IsStorageError(err))
	assert.Equal(t, int64(2), countRows(t, wh, "VISITS"))
}

func TestBulkLoadMissingTable(t *testing.T) {
	wh := newTestWarehouse(t)
	_, err := wh.BulkLoad(context.Background(), visits(1), domain.TableRef{Schema: "STAGING", Table: "NOPE"}, domain.LoadModeAppend)
	assert.ErrorIs(t, err, domain.ErrTableMissing)
	assert.True(t, IsStorageError(err))
}

func TestBulkLoadRollsBack(t *testing.T) {
	wh := newTestWarehouse(t)
	createVisits(t, wh)

	ds := visits(4)
	ds.Rows[3][0] = nil // violates NOT NULL in the second batch

	_, err := wh.BulkLoad(context.Background(), ds, domain.TableRef{Table: "VISITS"}, domain.LoadModeAppend)
	require.Error(t, err)
	assert.Zero(t, countRows(t, wh, "VISITS"))
}

func TestUseContextSQLite(t *testing.T) {
	wh := newTestWarehouse(t)
	require.NoError(t, wh.UseContext(context.Background(), "OTHER_DB", "OTHER"))
	assert.Equal(t, "VISITS", wh.tableName(domain.TableRef{Schema: "OTHER", Table: "VISITS"}))
}

func TestUseContextPostgresDatabase(t *testing.T) {
	wh := newTestWarehouse(t)
	wh.cfg.Driver = "postgres"

	tests := []struct {
		name     string
		database string
		wantErr  bool
	}{
		{"same database", "RAW_FITNESS_DB", false},
		{"keep current", "", false},
		{"other database", "CURATED_FITNESS_DB", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wh.UseContext(context.Background(), tt.database, "STAGING")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "CURATED_FITNESS_DB")
				return
			}
			require.NoError(t, err)
		})
	}
	assert.Equal(t, "STAGING.VISITS", wh.tableName(domain.TableRef{Schema: "STAGING", Table: "VISITS"}))
}

func TestPgValues(t *testing.T) {
	day, err := domain.ParseDate("2024-06-01")
	require.NoError(t, err)
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	got := pgValues([]any{"V1", int64(3), nil, 1.5, day, domain.TimeOfDay{Hour: 1, Minute: 2, Second: 3}, ts})

	require.Len(t, got, 7)
	assert.Equal(t, "V1", got[0])
	assert.Equal(t, int64(3), got[1])
	assert.Nil(t, got[2])
	assert.Equal(t, 1.5, got[3])
	assert.Equal(t, pgtype.Date{Time: day.Time, Valid: true}, got[4])
	assert.Equal(t, pgtype.Time{Microseconds: 3723000000, Valid: true}, got[5])
	assert.Equal(t, pgtype.Timestamp{Time: ts, Valid: true}, got[6])
}

func TestStagingTableDDL(t *testing.T) {
	schema, _ := domain.SchemaFor(domain.KindWorkoutLogs)
	ref := domain.TableRef{Database: "RAW_FITNESS_DB", Schema: "STAGING", Table: "RAW_WORKOUT_LOGS"}

	pg := StagingTableDDL("postgres", ref, schema)
	assert.True(t, strings.HasPrefix(pg, `CREATE TABLE IF NOT EXISTS "STAGING"."RAW_WORKOUT_LOGS" (`))
	assert.Contains(t, pg, `"workout_log_id" TEXT NOT NULL`)
	assert.Contains(t, pg, `"workout_time" TIME`)
	assert.Contains(t, pg, `"sets" BIGINT`)
	assert.Contains(t, pg, `"weight_kg" DOUBLE PRECISION`)
	assert.Contains(t, pg, `"load_timestamp" TIMESTAMP`)
	assert.Contains(t, pg, `"record_hash" TEXT`)

	lite := StagingTableDDL("sqlite", ref, schema)
	assert.True(t, strings.HasPrefix(lite, `CREATE TABLE IF NOT EXISTS "RAW_WORKOUT_LOGS" (`))
	assert.Contains(t, lite, `"sets" INTEGER`)
	assert.Contains(t, lite, `"workout_time" TEXT`)
}

func TestBootstrap(t *testing.T) {
	wh := newTestWarehouse(t)
	tables := map[domain.Kind]domain.TableRef{}
	for _, kind := range domain.AllKinds {
		tables[kind] = domain.TableRef{Schema: "STAGING", Table: "RAW_" + strings.ToUpper(string(kind))}
	}

	require.NoError(t, wh.Bootstrap(context.Background(), "etl_job_log", tables))
	// rerunning is harmless
	require.NoError(t, wh.Bootstrap(context.Background(), "etl_job_log", tables))

	m := wh.DB().Migrator()
	assert.True(t, m.HasTable("etl_job_log"))
	for _, ref := range tables {
		assert.True(t, m.HasTable(ref.Table), ref.Table)
	}
	assert.True(t, m.HasColumn("RAW_MEMBERS", "record_hash"))
}
