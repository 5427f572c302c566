package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tom2tomtomtom/refer-ify-sub003/config"
	"github.com/tom2tomtomtom/refer-ify-sub003/migrations"
	"github.com/tom2tomtomtom/refer-ify-sub003/seed"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
	"gorm.io/gorm"
)

func main() {
	root := &cobra.Command{
		Use:           "refer-ify",
		Short:         "Referral-based executive recruitment API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP API", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Apply database migrations", RunE: runMigrate},
		&cobra.Command{Use: "seed", Short: "Seed the job tiers", RunE: runSeed},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the database shared by every command.
func bootstrap() (config.App, *logrus.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.Production())

	db, err := utils.ConnectDatabase(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return cfg, log, nil, err
	}
	return cfg, log, db, nil
}

func runMigrate(*cobra.Command, []string) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	if err := migrations.Migrate(db); err != nil {
		return err
	}
	log.Info("Migrations applied")
	return nil
}

func runSeed(*cobra.Command, []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	return seed.SeedTiers(db, cfg.Currency, log)
}
