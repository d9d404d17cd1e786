package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/wolfman30/leadcapture/cmd/mainconfig"
	appconfig "github.com/wolfman30/leadcapture/internal/config"
	"github.com/wolfman30/leadcapture/internal/database"
	"github.com/wolfman30/leadcapture/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	driver, dsn, ok, err := mainconfig.MigrationTarget(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if !ok {
		fmt.Println("LEAD_STORE=memory has no schema; nothing to migrate")
		return
	}

	m, err := database.NewMigrator(driver, dsn, logger)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	defer func() { _ = m.Close() }()

	cmd := "up"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal(err)
		}
		fmt.Println("migrations complete")
	case "down":
		if err := m.Down(); err != nil {
			log.Fatal(err)
		}
		fmt.Println("migrations reverted")
	// /bin/migrate force <version>
	case "force":
		if len(os.Args) < 3 {
			log.Fatal("usage: migrate force <version>")
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("invalid version: %v", err)
		}
		if err := m.Force(version); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("forced version to %d\n", version)
	case "version":
		version, dirty, ok, err := m.Version()
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			fmt.Println("no migrations applied")
			return
		}
		fmt.Printf("version %d (dirty=%t)\n", version, dirty)
	default:
		log.Fatalf("unknown command %q (want up, down, force, version)", cmd)
	}
}
