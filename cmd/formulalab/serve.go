package main

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/deppfellow/formula-lab/internal/handler"
	"github.com/deppfellow/formula-lab/internal/middleware"
	"github.com/deppfellow/formula-lab/internal/repository"
	"github.com/deppfellow/formula-lab/internal/router"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/deppfellow/formula-lab/internal/service"
	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  app.handleServe,
	}
}

func (a *App) handleServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	srv, err := server.New(ctx, a.cfg, &a.logger, a.loggerService)
	if err != nil {
		return err
	}

	if err := database.Migrate(ctx, srv.DB, &a.logger); err != nil {
		srv.DB.Close()
		return fmt.Errorf("migrating database: %w", err)
	}

	repos := repository.NewRepositories(srv)
	services := service.NewServices(srv, repos)
	handlers := handler.NewHandlers(srv, services)
	middlewares := middleware.NewMiddlewares(srv, repos.Users)

	srv.SetupHTTPServer(router.NewRouter(srv, handlers, middlewares))
	srv.StartHealthMonitor()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.logger.Error().Err(err).Msg("server stopped")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Error().Err(shutdownErr).Msg("shutdown failed")
		}
		return err

	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil {
		return err
	}

	a.logger.Info().Msg("server exited properly")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	return time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
}
