package main

import (
	"fmt"
	"os"

	"github.com/deppfellow/formula-lab/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newBootstrapCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Prepare the environment, seed the database if needed and launch the server (default)",
		Args:  cobra.NoArgs,
		RunE:  app.handleBootstrap,
	}
}

func (a *App) handleBootstrap(cmd *cobra.Command, _ []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	b, err := bootstrap.New(a.cfg, root, &a.logger, bootstrap.WithEnvFile(a.envFile))
	if err != nil {
		return err
	}

	report, err := b.Run(cmd.Context())
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("state", string(report.Last())).
			Msg("bootstrap failed")
		return err
	}
	return nil
}
