package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
	"gorm.io/gorm"
)

// WarehouseStore is the storage surface the loader drives.
// *repository.Warehouse implements it.
type WarehouseStore interface {
	Connect(ctx context.Context) error
	UseContext(ctx context.Context, database, schema string) error
	BulkLoad(ctx context.Context, ds *domain.Dataset, ref domain.TableRef, mode domain.LoadMode) (int64, error)
	Close() error
	DB() *gorm.DB
	Driver() string
}

// LoadResult is the outcome of a single bulk load.
type LoadResult struct {
	Table domain.TableRef
	Rows  int
	// Cause is the storage-reported failure; nil on success.
	Cause error
}

// Success reports whether the load committed.
func (r LoadResult) Success() bool {
	return r.Cause == nil
}

// WarehouseLoader loads datasets into existing warehouse tables.
type WarehouseLoader struct {
	store  WarehouseStore
	logger *logger.Logger
}

// NewWarehouseLoader creates a loader over store.
func NewWarehouseLoader(store WarehouseStore, log *logger.Logger) *WarehouseLoader {
	return &WarehouseLoader{store: store, logger: log}
}

func (l *WarehouseLoader) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, l.logger)
}

// LoadDataset connects if needed, selects database and schema, and bulk loads ds into table.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ds: load-ready dataset.
//   - table, database, schema: target table and its context.
//   - mode: append, replace or fail.
// Returns:
//   - bool: true when the rows were committed.
//   - int: rows loaded.
//   - error: wraps domain.ErrConnection when the warehouse is unreachable; storage
//     failures are reported through the bool only.
func (l *WarehouseLoader) LoadDataset(ctx context.Context, ds *domain.Dataset, table, database, schema string, mode domain.LoadMode) (bool, int, error) {
	res, err := l.Load(ctx, ds, domain.TableRef{Database: database, Schema: schema, Table: table}, mode)
	if err != nil {
		return false, 0, err
	}
	return res.Success(), res.Rows, nil
}

// Load is LoadDataset returning the storage failure cause as well.
func (l *WarehouseLoader) Load(ctx context.Context, ds *domain.Dataset, ref domain.TableRef, mode domain.LoadMode) (LoadResult, error) {
	res := LoadResult{Table: ref}
	start := time.Now()

	if err := l.store.Connect(ctx); err != nil {
		return res, err
	}

	if err := l.store.UseContext(ctx, ref.Database, ref.Schema); err != nil {
		if errors.Is(err, domain.ErrConnection) {
			return res, err
		}
		res.Cause = fmt.Errorf("failed to select %s.%s: %w", ref.Database, ref.Schema, err)
		l.log(ctx).WithError(err).Errorf("Failed to load data to %s", ref.Table)
		return res, nil
	}

	l.log(ctx).Infof("Loading %d rows to %s", ds.Len(), ref)

	n, err := l.store.BulkLoad(ctx, ds, ref, mode)
	if err != nil {
		if errors.Is(err, domain.ErrConnection) {
			return res, err
		}
		res.Cause = err
		l.log(ctx).WithError(err).Errorf("Failed to load data to %s", ref.Table)
		return res, nil
	}

	res.Rows = int(n)
	logger.With(logger.Fields{logger.FieldTable: ref.String()}).
		WithRows(res.Rows).
		WithDuration(start).
		Info(ctx, "Successfully loaded %d rows to %s", res.Rows, ref.Table)
	return res, nil
}
