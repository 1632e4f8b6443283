package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/timmy/fitetl/internal/domain"
)

// StagingTableDDL renders CREATE TABLE IF NOT EXISTS for a kind's staging table:
// the descriptor's target columns followed by the lineage columns.
func StagingTableDDL(driver string, ref domain.TableRef, schema domain.Schema) string {
	var name string
	if driver == "postgres" && ref.Schema != "" {
		name = pgx.Identifier{ref.Schema, ref.Table}.Sanitize()
	} else {
		name = pgx.Identifier{ref.Table}.Sanitize()
	}

	defs := make([]string, 0, len(schema.Columns)+len(domain.MetadataColumns))
	for _, c := range schema.Columns {
		def := pgx.Identifier{c.Target}.Sanitize() + " " + sqlType(driver, c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	for _, c := range domain.MetadataColumns {
		t := "TEXT"
		if c == domain.ColumnLoadTimestamp {
			t = "TIMESTAMP"
		}
		defs = append(defs, pgx.Identifier{c}.Sanitize()+" "+t)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", name, strings.Join(defs, ",\n  "))
}

func sqlType(driver string, t domain.ColumnType) string {
	switch t {
	case domain.TypeInteger:
		if driver == "sqlite" {
			return "INTEGER"
		}
		return "BIGINT"
	case domain.TypeFloat:
		if driver == "sqlite" {
			return "REAL"
		}
		return "DOUBLE PRECISION"
	case domain.TypeDate:
		return "DATE"
	case domain.TypeTime:
		if driver == "sqlite" {
			return "TEXT"
		}
		return "TIME"
	default:
		return "TEXT"
	}
}

// Bootstrap creates the audit table and the staging tables of the given kinds.
// Loads never create tables themselves; this is run once per environment when
// warehouse.auto_migrate is enabled.
func (w *Warehouse) Bootstrap(ctx context.Context, auditTable string, tables map[domain.Kind]domain.TableRef) error {
	db, err := w.handle()
	if err != nil {
		return err
	}

	if w.cfg.Driver == "postgres" {
		schemas := map[string]bool{}
		for _, ref := range tables {
			if ref.Schema != "" {
				schemas[ref.Schema] = true
			}
		}
		if i := strings.Index(auditTable, "."); i > 0 {
			schemas[auditTable[:i]] = true
		}
		for s := range schemas {
			if err := db.WithContext(ctx).Exec("CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{s}.Sanitize()).Error; err != nil {
				return fmt.Errorf("failed to create schema %s: %w", s, err)
			}
		}
	}

	if err := NewJobLogRepository(db, auditTable).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate audit table: %w", err)
	}

	for _, kind := range domain.AllKinds {
		ref, ok := tables[kind]
		if !ok {
			continue
		}
		schema, ok := domain.SchemaFor(kind)
		if !ok {
			return fmt.Errorf("no schema for %s", kind)
		}
		if err := db.WithContext(ctx).Exec(StagingTableDDL(w.cfg.Driver, ref, schema)).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", ref, err)
		}
	}
	return nil
}
