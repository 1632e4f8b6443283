package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/fitetl/internal/bootstrap"
	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	configPath := flag.String("config", "", "Path to config file")
	dryRun := flag.Bool("dry-run", false, "Print configuration and datasets without connecting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Error("Failed to load config")
		return 1
	}

	if *dryRun {
		printPlan(cfg)
		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	if err := bootstrap.Migrate(ctx, cfg); err != nil {
		appLogger.WithError(err).Error("Failed to prepare warehouse tables")
		return 1
	}

	factory, err := bootstrap.NewPipelineFactory(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Error("Failed to initialize pipeline")
		return 1
	}
	pipeline, err := factory()
	if err != nil {
		appLogger.WithError(err).Error("Failed to initialize pipeline")
		return 1
	}

	summary, err := pipeline.Run(ctx)
	if err != nil {
		appLogger.WithError(err).Error("Pipeline aborted")
		return 1
	}
	if !summary.Succeeded() {
		appLogger.WithFields(logger.Fields{
			logger.FieldBatchID: summary.BatchID,
			"failed":            summary.FailCount,
		}).Error("ETL pipeline completed with errors")
		return 1
	}

	appLogger.WithField(logger.FieldBatchID, summary.BatchID).Info("ETL pipeline completed successfully")
	return 0
}

type planEntry struct {
	Kind          domain.Kind `json:"kind"`
	File          string      `json:"file"`
	Table         string      `json:"table"`
	SourceSystem  string      `json:"source_system"`
	DuplicateKeys []string    `json:"duplicate_keys,omitempty"`
}

func printPlan(cfg *config.Config) {
	plan := struct {
		Warehouse string      `json:"warehouse"`
		Source    string      `json:"source"`
		LoadMode  string      `json:"load_mode"`
		Quality   bool        `json:"quality_checks"`
		Archive   bool        `json:"archive"`
		Datasets  []planEntry `json:"datasets"`
	}{
		Warehouse: cfg.Warehouse.Redacted(),
		Source:    cfg.Source.Type + ":" + cfg.Source.DataDir,
		LoadMode:  cfg.ETL.LoadMode,
		Quality:   cfg.ETL.EnableDataQualityChecks,
		Archive:   cfg.Archive.Enabled,
	}
	for _, kind := range domain.AllKinds {
		d, _ := cfg.Dataset(kind)
		plan.Datasets = append(plan.Datasets, planEntry{
			Kind:          kind,
			File:          d.File,
			Table:         cfg.RawTable(kind).String(),
			SourceSystem:  kind.SourceSystem(),
			DuplicateKeys: d.DuplicateKeys,
		})
	}

	out, _ := json.MarshalIndent(plan, "", "  ")
	fmt.Println(string(out))
}
