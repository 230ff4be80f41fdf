package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/repflow/internal/config"
	"github.com/claude/repflow/internal/importer"
	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	archivePath := flag.String("path", "", "path to session archive directory (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *archivePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: repflow-import -config config.yaml -path /path/to/archive [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Verify archive directory exists
	info, err := os.Stat(*archivePath)
	if err != nil || !info.IsDir() {
		log.Error("archive path does not exist or is not a directory", "path", *archivePath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode — no data will be written to the database")
	}

	// Open the session store
	var store importer.Store
	switch cfg.Database.Driver {
	case "postgres":
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected", "driver", "postgres")
		store = db

	case "sqlite":
		db, err := localstore.Open(cfg.Database.Path)
		if err != nil {
			log.Error("failed to open local store", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected", "driver", "sqlite", "path", cfg.Database.Path)
		store = db
	}

	// Run import
	imp := importer.New(store, log, *dryRun)
	stats, err := imp.Import(ctx, *archivePath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sessions_imported", stats.SessionsImported,
		"sessions_duplicated", stats.SessionsDuplicated,
		"sessions_invalid", stats.SessionsInvalid,
	)
}
