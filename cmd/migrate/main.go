package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"driftbox/internal/config"
)

const usage = `Usage: migrate [-dir path] <command>

Commands:
  up          apply all pending migrations
  down        revert all migrations
  steps <n>   apply n migrations (negative to revert)
  version     print current schema version
  force <v>   mark version v as applied without running it (clears dirty state)
`

func main() {
	dir := flag.String("dir", "db/migrations", "migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("migrate: loading config: %v", err)
	}

	m, err := migrate.New("file://"+*dir, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("migrate: opening %s: %v", *dir, err)
	}
	defer m.Close()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Print(usage)
		os.Exit(1)
	}

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate: up: %v", err)
		}
		log.Println("migrate: schema is up to date")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate: down: %v", err)
		}
		log.Println("migrate: all migrations reverted")

	case "steps":
		if len(args) < 2 {
			log.Fatal("migrate: steps needs a count")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("migrate: steps count %q is not a number", args[1])
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate: steps: %v", err)
		}
		log.Printf("migrate: moved %d step(s)", n)

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("migrate: version: %v", err)
		}
		fmt.Printf("schema version %d (dirty=%v)\n", version, dirty)

	case "force":
		if len(args) < 2 {
			log.Fatal("migrate: force needs a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("migrate: force version %q is not a number", args[1])
		}
		if err := m.Force(v); err != nil {
			log.Fatalf("migrate: force: %v", err)
		}
		log.Printf("migrate: forced schema version to %d", v)

	default:
		fmt.Printf("migrate: unknown command %q\n", args[0])
		fmt.Print(usage)
		os.Exit(1)
	}
}
