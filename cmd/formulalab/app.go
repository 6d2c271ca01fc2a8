package main

import (
	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/deppfellow/formula-lab/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// App carries what every subcommand needs once the flags are parsed.
type App struct {
	envFile string

	cfg           *config.Config
	logger        zerolog.Logger
	loggerService *logger.LoggerService
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "formulalab",
		Short:        "Bootstrap and run the Formula Lab API",
		SilenceUsage: true,
		RunE:         app.handleBootstrap,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.load()
		},
	}
	cmd.PersistentFlags().StringVar(&app.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before the environment")

	cmd.AddCommand(
		newBootstrapCmd(app),
		newServeCmd(app),
		newMigrateCmd(app),
		newSeedCmd(app),
		newCheckCmd(app),
	)
	return cmd
}

func (a *App) load() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.loggerService = logger.NewLoggerService(cfg.Observability)
	a.logger = logger.NewLoggerWithService(cfg.Observability, a.loggerService)
	return nil
}
