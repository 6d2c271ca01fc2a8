package main

import (
	"fmt"
	"os"

	"github.com/deppfellow/formula-lab/internal/bootstrap"
	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/deppfellow/formula-lab/internal/seed"
	"github.com/spf13/cobra"
)

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema to the latest version",
		Args:  cobra.NoArgs,
		RunE:  app.handleMigrate,
	}
}

func newSeedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Migrate the database and insert the demo users and sample ingredients into empty tables",
		Args:  cobra.NoArgs,
		RunE:  app.handleSeed,
	}
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the project layout and report the database state without changing it",
		Args:  cobra.NoArgs,
		RunE:  app.handleCheck,
	}
}

func (a *App) handleMigrate(cmd *cobra.Command, _ []string) error {
	db, err := database.Open(cmd.Context(), a.cfg, &a.logger, a.loggerService)
	if err != nil {
		return err
	}
	defer db.Close()

	return database.Migrate(cmd.Context(), db, &a.logger)
}

func (a *App) handleSeed(cmd *cobra.Command, _ []string) error {
	db, err := database.Open(cmd.Context(), a.cfg, &a.logger, a.loggerService)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := seed.New(db, &a.logger, a.cfg.Auth.BcryptCost).Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d ingredients\n", result.Users, result.Ingredients)
	return nil
}

func (a *App) handleCheck(cmd *cobra.Command, _ []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	layout, err := bootstrap.NewLayout(root, a.cfg.Bootstrap.Manifest, &a.logger).Check()
	if err != nil {
		return err
	}

	state, err := database.Inspect(cmd.Context(), a.cfg.Database.URL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "layout: restored %d directories and %d files\n", len(layout.CreatedDirs), len(layout.CreatedFiles))
	fmt.Fprintf(out, "database: %s, schema %d/%d, %d users, %d ingredients\n",
		state.Dialect, state.SchemaVersion, state.LatestVersion, state.Users, state.Ingredients)
	if state.NeedsSeed() {
		fmt.Fprintf(out, "seed needed: %s\n", state.Reason())
	}
	return nil
}
