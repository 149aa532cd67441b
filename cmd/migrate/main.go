package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/repository/postgres"
	"github.com/mindspero/mindspero/migrations"
)

const usage = "usage: migrate [up|status]"

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	switch cmd {
	case "up":
		applied, err := postgres.RunMigrations(ctx, db, migrations.GetFS())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		if len(applied) == 0 {
			fmt.Println("Database is up to date")
			return
		}
		for _, name := range applied {
			fmt.Printf("✓ Migration %s completed successfully\n", name)
		}
		fmt.Println("\nAll migrations completed successfully!")

	case "status":
		status, err := postgres.MigrationStatus(ctx, db, migrations.GetFS())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read migration status: %v\n", err)
			os.Exit(1)
		}
		names := make([]string, 0, len(status))
		for name := range status {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			state := "pending"
			if status[name] {
				state = "applied"
			}
			fmt.Printf("%-30s %s\n", name, state)
		}

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
