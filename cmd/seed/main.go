// Package main loads a catalog fixture into the database.
//
// The fixture is a YAML tree (categories → subcategories → services). Rows go
// through the same transfer validation and repository transactions as the
// HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"servicecatalog.io/catalog/internal/config"
	"servicecatalog.io/catalog/internal/infrastructure"
	"servicecatalog.io/catalog/internal/pkg/logger"
	"servicecatalog.io/catalog/internal/pkg/worker"
	"servicecatalog.io/catalog/internal/repository"
)

type options struct {
	file    string
	dryRun  bool
	append  bool
	workers int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a catalog fixture into the database",
		Long: `Load categories, subcategories and services from a YAML fixture.

Database settings come from config.yaml and the environment (DATABASE_URL, ...).
Seeding is skipped when the catalog already holds categories, unless --append is set.

Examples:
  seed --file catalog.yaml
  seed --file catalog.yaml --dry-run`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := loadFixture(opts.file)
			if err != nil {
				return err
			}
			if err := f.validate(); err != nil {
				return err
			}
			if opts.dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), f.counts())
				return nil
			}
			return run(cmd, f, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "catalog.yaml", "Fixture file to load")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate the fixture and print counts without writing")
	cmd.Flags().BoolVar(&opts.append, "append", false, "Seed even when categories already exist")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "Categories written concurrently")
	return cmd
}

func run(cmd *cobra.Command, f *fixture, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			return err
		}
	}

	repo := repository.NewCatalogRepository(db.Gorm)
	if !opts.append {
		existing, err := repo.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("check existing categories: %w", err)
		}
		if len(existing) > 0 {
			logger.Info("Catalog already seeded, skipping", zap.Int("categories", len(existing)))
			return nil
		}
	}

	pool, err := worker.New("seed", opts.workers)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Release(30 * time.Second) }()

	logger.Info("Starting data seeding...",
		zap.String("file", opts.file),
		zap.Int("workers", opts.workers),
	)
	got, err := seed(ctx, repo, f, pool)
	if err != nil {
		return fmt.Errorf("seed catalog (%s written): %w", got, err)
	}
	logger.Info("Data seeding completed successfully",
		zap.Int("categories", got.Categories),
		zap.Int("subcategories", got.SubCategories),
		zap.Int("services", got.Services),
	)
	fmt.Fprintln(cmd.OutOrStdout(), got)
	return nil
}
