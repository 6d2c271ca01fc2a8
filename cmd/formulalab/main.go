// Command formulalab prepares a development checkout of the Formula Lab API
// and runs it.
//
// Without a subcommand it bootstraps: it creates the isolated toolchain
// environment, installs the module's dependencies, builds the server,
// seeds the data store when needed and launches the server with reload.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{}
	err := newRootCmd(app).ExecuteContext(ctx)
	app.loggerService.Shutdown()
	if err != nil {
		stop()
		os.Exit(1)
	}
}
