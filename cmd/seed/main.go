package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/tiles-dev/pfm-sim/internal/app"
	"github.com/tiles-dev/pfm-sim/internal/database"
	"github.com/tiles-dev/pfm-sim/internal/seed"
	"github.com/tiles-dev/pfm-sim/pkg/logger"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pfm-sim-seed", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var (
		configPath string
		opts       seed.Options
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory")
	fs.StringVar(&opts.PCID, "pcid", "demo-user", "Partner customer id for the demo user")
	fs.StringVar(&opts.Email, "email", "demo@example.com", "Email for the demo user")
	fs.StringVar(&opts.Password, "password", "demo-password", "Password for the demo user")
	fs.IntVar(&opts.Months, "months", 3, "Months of transaction history to generate")
	fs.Int64Var(&opts.Seed, "seed", 1, "Random seed for reproducible datasets")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg *app.Config
	var err error
	if strings.TrimSpace(configPath) == "" {
		cfg, err = app.LoadConfig()
	} else {
		cfg, err = app.LoadConfig(configPath)
	}
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	db, err := database.Open(database.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return fmt.Errorf("auto-migrate database: %w", err)
	}

	generator, err := seed.NewGenerator(db)
	if err != nil {
		return err
	}

	user, err := generator.Run(ctx, opts)
	if err != nil {
		return err
	}

	logger.WithModule("seed").Info("done",
		zap.Uint("user_id", user.ID),
		zap.String("pcid", user.PartnerCustomerID),
		zap.String("email", user.Email))
	return nil
}
