// Package main loads a YAML roster seed file into the postgres roster table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cory-johannsen/pokedo/internal/config"
	"github.com/cory-johannsen/pokedo/internal/storage/memory"
	"github.com/cory-johannsen/pokedo/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	rosterPath := flag.String("roster", "", "path to roster seed YAML (defaults to server.roster_file)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}
	path := *rosterPath
	if path == "" {
		path = cfg.Server.RosterFile
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: seed-roster -config <file> [-roster <file>]")
		os.Exit(1)
	}

	start := time.Now()
	seed, err := memory.LoadRosterFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := postgres.NewRosterRepository(db.DB())
	total := 0
	for _, player := range seed.Players() {
		entries, err := seed.Roster(ctx, player)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading %s: %v\n", player, err)
			os.Exit(1)
		}
		if err := repo.Replace(ctx, player, entries); err != nil {
			fmt.Fprintf(os.Stderr, "error: seeding %s: %v\n", player, err)
			os.Exit(1)
		}
		total += len(entries)
	}
	fmt.Printf("seeded %d players (%d pokemon) in %s\n",
		len(seed.Players()), total, time.Since(start).Round(time.Millisecond))
}
