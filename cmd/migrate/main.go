package main

import (
	"flag"
	"fmt"
	"os"

	"wallet-ledger/config"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	"wallet-ledger/pkg/logger"
)

const usage = `usage: migrate [-config path] [-n N] <command>

commands:
  up       apply all pending migrations
  down     roll back N migrations (default 1)
  version  print the applied schema version
`

func main() {
	configPath := flag.String("config", os.Getenv("WLG_CONFIG"), "path to config file")
	steps := flag.Int("n", 1, "number of migrations to roll back")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	url := cfg.Database.MigrateURL()

	switch flag.Arg(0) {
	case "up":
		err = pgStorage.MigrateUp(url, log)
	case "down":
		err = pgStorage.MigrateDown(url, *steps, log)
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = pgStorage.MigrationVersion(url)
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("migration failed")
	}
}
