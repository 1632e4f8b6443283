// Package bootstrap wires configuration into the pipeline's collaborators.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/repository"
	"github.com/timmy/fitetl/internal/service"
	"github.com/timmy/fitetl/internal/source"
	"github.com/timmy/fitetl/internal/source/local"
	"github.com/timmy/fitetl/internal/source/objectstore"
	"github.com/timmy/fitetl/internal/storage"
)

// NeedsStorage reports whether the configuration reads from or archives to object storage.
func NeedsStorage(cfg *config.Config) bool {
	return cfg.Source.Type == "s3" || cfg.Archive.Enabled
}

// NewSource builds the tabular source selected by source.type.
func NewSource(cfg *config.Config, store storage.ObjectStorage) (source.TabularSource, error) {
	switch cfg.Source.Type {
	case "local":
		return local.NewAdapter(cfg.Source.DataDir, cfg.DatasetFiles()), nil
	case "s3":
		if store == nil {
			return nil, fmt.Errorf("source.type s3 requires storage configuration")
		}
		return objectstore.NewAdapter(store, cfg.Source.Prefix, cfg.DatasetFiles()), nil
	}
	return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
}

// NewPipelineFactory returns a factory building one pipeline per run, each
// with its own warehouse connection.
func NewPipelineFactory(ctx context.Context, cfg *config.Config, log *logger.Logger) (service.PipelineFactory, error) {
	var store storage.ObjectStorage
	if NeedsStorage(cfg) {
		s3, err := storage.NewStorage(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		if cfg.Archive.Enabled {
			if err := s3.EnsureBucket(ctx); err != nil {
				return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
			}
		}
		store = s3
	}

	src, err := NewSource(cfg, store)
	if err != nil {
		return nil, err
	}

	var opts []service.PipelineOption
	if cfg.Archive.Enabled {
		opts = append(opts, service.WithArchiver(service.NewArchiver(store, cfg.Archive.Prefix)))
	}

	return func() (*service.Pipeline, error) {
		wh := repository.NewWarehouse(cfg.Warehouse, cfg.ETL.BatchSize)
		return service.NewPipeline(cfg, wh, src, log, opts...), nil
	}, nil
}

// Migrate creates the audit table and staging tables when warehouse.auto_migrate is set.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if !cfg.Warehouse.AutoMigrate {
		return nil
	}
	wh := repository.NewWarehouse(cfg.Warehouse, cfg.ETL.BatchSize)
	if err := wh.Connect(ctx); err != nil {
		return err
	}
	defer wh.Close()

	auditTable := repository.JobLogTable(cfg.Warehouse.Driver, cfg.Layers.Metadata.Schema)
	if err := wh.Bootstrap(ctx, auditTable, cfg.RawTables()); err != nil {
		return err
	}
	logger.CtxInfo(ctx, "Warehouse tables are in place")
	return nil
}
