package main

import (
	"fmt"
	"io"
	"os"

	"github.com/akeren/mehfil-api/config"
	"github.com/akeren/mehfil-api/internal/log"
	"github.com/alecthomas/kong"
)

// CLI holds the operator commands. Each command loads .env before running.
type CLI struct {
	Migrate       MigrateCmd       `cmd:"" help:"Apply SQL migrations to the configured SQL store and exit."`
	EnsureIndexes EnsureIndexesCmd `cmd:"" name:"ensure-indexes" help:"Create the waitlist unique indexes in the document store."`
	Stats         StatsCmd         `cmd:"" help:"Print active waitlist counts."`
}

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger)

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cli"),
		kong.Description("Mehfil API operator tooling."),
		kong.UsageOnError(),
		kong.Bind(logger),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
