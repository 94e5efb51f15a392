// Command sheetctl verifies, issues and submits cheat sheets.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kwarc/cheatsheets/internal/client/cli"
	"github.com/kwarc/cheatsheets/internal/server/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg := config.LoadEnvConfig()
	app := cli.NewApp(cfg, os.Stdout, os.Stderr)

	code := app.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)

}
