package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Warehouse is the connection to the data warehouse used for staging loads.
// It is opened lazily by Connect and reused for every load of a batch.
type Warehouse struct {
	cfg       config.WarehouseConfig
	batchSize int

	mu       sync.Mutex
	db       *gorm.DB
	database string
	schema   string
}

// NewWarehouse creates an unconnected Warehouse.
// Parameters:
//   - cfg: warehouse connection settings.
//   - batchSize: rows per INSERT statement on drivers without a bulk path.
// Returns:
//   - *Warehouse: warehouse handle; call Connect before use.
func NewWarehouse(cfg config.WarehouseConfig, batchSize int) *Warehouse {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Warehouse{cfg: cfg, batchSize: batchSize}
}

// Driver returns the configured driver name.
func (w *Warehouse) Driver() string {
	return w.cfg.Driver
}

// Connect opens the connection if it is not open yet and verifies it with a ping.
// Any failure is reported as domain.ErrConnection.
func (w *Warehouse) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		return nil
	}

	db, err := OpenDB(w.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}

	w.db = db
	w.database = w.cfg.Database
	w.schema = w.cfg.Schema
	logger.CtxInfo(ctx, "Connected to warehouse %s", w.cfg.Redacted())
	return nil
}

// Connected reports whether Connect succeeded and Close was not called since.
func (w *Warehouse) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.db != nil
}

// DB returns the underlying handle, or nil before Connect.
func (w *Warehouse) DB() *gorm.DB {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.db
}

func (w *Warehouse) handle() (*gorm.DB, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return nil, fmt.Errorf("%w: not connected", domain.ErrConnection)
	}
	return w.db, nil
}

// UseContext selects the database and schema that following loads resolve against.
// PostgreSQL sessions cannot change database, so a database other than the connected
// one is rejected. SQLite has a single schema and only records the selection.
func (w *Warehouse) UseContext(ctx context.Context, database, schema string) error {
	if _, err := w.handle(); err != nil {
		return err
	}
	if w.cfg.Driver == "postgres" && database != "" && database != w.cfg.Database {
		return fmt.Errorf("cannot use database %q: connected to %q", database, w.cfg.Database)
	}

	w.mu.Lock()
	if database != "" {
		w.database = database
	}
	w.schema = schema
	w.mu.Unlock()

	logger.CtxDebug(ctx, "Using warehouse context %s", domain.TableRef{Database: database, Schema: schema})
	return nil
}

// Execute runs a statement and returns the number of affected rows.
func (w *Warehouse) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	db, err := w.handle()
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close releases the connection. Safe to call more than once.
func (w *Warehouse) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return nil
	}
	sqlDB, err := w.db.DB()
	w.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BulkLoad writes every row of ds into an existing table.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ds: load-ready dataset; its column names must exist in the table.
//   - ref: target table; empty Database/Schema fall back to the selected context.
//   - mode: append, replace (truncate first) or fail (refuse a non-empty table).
// Returns:
//   - int64: rows written.
//   - error: domain.ErrTableMissing, domain.ErrTableNotEmpty or the driver error.
func (w *Warehouse) BulkLoad(ctx context.Context, ds *domain.Dataset, ref domain.TableRef, mode domain.LoadMode) (int64, error) {
	db, err := w.handle()
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	if ref.Schema == "" {
		ref.Schema = w.schema
	}
	if ref.Database == "" {
		ref.Database = w.database
	}
	w.mu.Unlock()

	name := w.tableName(ref)
	if !db.WithContext(ctx).Migrator().HasTable(name) {
		return 0, fmt.Errorf("%w: %s", domain.ErrTableMissing, ref)
	}

	if mode == domain.LoadModeFail {
		var existing int64
		if err := db.WithContext(ctx).Table(name).Count(&existing).Error; err != nil {
			return 0, fmt.Errorf("failed to count rows in %s: %w", ref, err)
		}
		if existing > 0 {
			return 0, fmt.Errorf("%w: %s holds %d rows", domain.ErrTableNotEmpty, ref, existing)
		}
	}

	if w.cfg.Driver == "postgres" {
		return w.copyFrom(ctx, db, ds, ref, mode)
	}
	return w.insertBatches(ctx, db, ds, name, mode)
}

// tableName returns the name gorm resolves for ref on the current driver.
func (w *Warehouse) tableName(ref domain.TableRef) string {
	if w.cfg.Driver == "postgres" && ref.Schema != "" {
		return ref.Schema + "." + ref.Table
	}
	return ref.Table
}

func (w *Warehouse) insertBatches(ctx context.Context, db *gorm.DB, ds *domain.Dataset, table string, mode domain.LoadMode) (int64, error) {
	if ds.Len() == 0 && mode != domain.LoadModeReplace {
		return 0, nil
	}

	rows := make([]map[string]interface{}, ds.Len())
	for i := range ds.Rows {
		rows[i] = ds.Record(i)
	}

	var inserted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if mode == domain.LoadModeReplace {
			if err := tx.Exec("DELETE FROM ?", clause.Table{Name: table}).Error; err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		if len(rows) == 0 {
			return nil
		}
		res := tx.Table(table).CreateInBatches(rows, w.batchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return inserted, nil
}

// copyFrom streams the dataset through COPY on a dedicated session. The search
// path of that session is set to the selected schema before loading.
func (w *Warehouse) copyFrom(ctx context.Context, db *gorm.DB, ds *domain.Dataset, ref domain.TableRef, mode domain.LoadMode) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	defer conn.Close()

	ident := pgx.Identifier{ref.Table}
	if ref.Schema != "" {
		ident = pgx.Identifier{ref.Schema, ref.Table}
	}

	var copied int64
	err = conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		pc := sc.Conn()

		if ref.Schema != "" {
			if _, err := pc.Exec(ctx, "SET search_path TO "+pgx.Identifier{ref.Schema}.Sanitize()); err != nil {
				return fmt.Errorf("failed to set search_path: %w", err)
			}
		}

		tx, err := pc.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if mode == domain.LoadModeReplace {
			if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+ident.Sanitize()); err != nil {
				return fmt.Errorf("failed to truncate %s: %w", ref, err)
			}
		}

		rows := make([][]any, ds.Len())
		for i, row := range ds.Rows {
			rows[i] = pgValues(row)
		}
		copied, err = tx.CopyFrom(ctx, ident, ds.Columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", ref, err)
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return 0, err
	}
	return copied, nil
}

// pgValues converts domain cell values into types pgx encodes natively.
func pgValues(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch val := v.(type) {
		case domain.Date:
			out[i] = pgtype.Date{Time: val.Time, Valid: true}
		case domain.TimeOfDay:
			out[i] = pgtype.Time{Microseconds: val.Microseconds(), Valid: true}
		case time.Time:
			out[i] = pgtype.Timestamp{Time: val, Valid: true}
		default:
			out[i] = v
		}
	}
	return out
}

// IsStorageError reports whether err came from the warehouse rather than the connection.
func IsStorageError(err error) bool {
	return err != nil && !errors.Is(err, domain.ErrConnection)
}
