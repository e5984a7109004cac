package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lendflow/config"
	"lendflow/logger"
	"lendflow/models"
	"lendflow/pipeline"
	"lendflow/reader"
	"lendflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	schemasPath := flag.String("schemas", "config/schemas.yml", "Path to entity schema file")
	batchDateArg := flag.String("batch-date", "", "Batch date to process (YYYY-MM-DD, default today UTC)")
	inboxDir := flag.String("inbox", "", "Override inbox directory from configuration")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if *inboxDir != "" {
		cfg.Reader.InboxDir = *inboxDir
	}

	schemas, err := config.LoadSchemas(*schemasPath)
	if err != nil {
		log.WithError(err).Error("Failed to load entity schemas")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	batchDate := time.Now().UTC().Truncate(24 * time.Hour)
	if *batchDateArg != "" {
		batchDate, err = time.Parse(models.DateLayout, *batchDateArg)
		if err != nil {
			log.WithError(err).Error("Invalid -batch-date, expected YYYY-MM-DD")
			os.Exit(1)
		}
	}

	log.WithFields(logger.Fields{
		"service":    cfg.Lendflow.Name,
		"version":    cfg.Lendflow.Version,
		"batch_date": batchDate.Format(models.DateLayout),
	}).Info("starting lendflow")

	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "Lendflow", "lendflow-pipeline")
	}

	if env := config.AppEnvironment(); config.IsProductionLike(env) && !cfg.Storage.S3.Enabled {
		log.WithFields(logger.Fields{"environment": env}).Warn("S3 export disabled in a production-like environment")
	}

	var exporter pipeline.Exporter
	if cfg.Storage.S3.Enabled {
		martExporter, err := writer.NewMartExporter(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create mart exporter")
			os.Exit(1)
		}
		exporter = martExporter
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping mart export")
	}

	p, err := pipeline.New(cfg, schemas, reader.NewInboxReader(cfg), exporter)
	if err != nil {
		log.WithError(err).Error("invalid pipeline configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := p.Run(ctx, batchDate)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"run_id": summary.RunID,
		}).Error("batch run failed")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"run_id":      summary.RunID,
		"duration_ms": summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	}).Info("lendflow finished")
}
