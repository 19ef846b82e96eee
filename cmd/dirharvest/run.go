package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pevans/dirharvest"
	"github.com/pevans/dirharvest/config"
	"github.com/pevans/dirharvest/fetch"
	"github.com/pevans/dirharvest/links"
)

// handleRun executes the full pipeline end to end.
func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", getEnv("DIRHARVEST_CONFIG", "dirharvest.yaml"), "Path to the run configuration file")
	linksDB := fs.String("links-db", getEnv("DIRHARVEST_LINKS_DB", ""), "Path to the links database (overrides config)")
	outPath := fs.String("out", getEnv("DIRHARVEST_OUTPUT", ""), "Path to the output CSV (overrides config)")
	noStore := fs.Bool("no-store", false, "Do not persist or resume collected links")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *linksDB != "" {
		cfg.LinksDB = *linksDB
	}
	if *outPath != "" {
		cfg.OutputCSV = *outPath
	}

	var store *links.Store
	if !*noStore {
		store, err = links.NewStore(cfg.LinksDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open links database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	harvester, err := dirharvest.New(cfg, fetch.New(cfg.FetchOptions()), store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(cfg.OutputCSV)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create output file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	stats, err := harvester.Run(context.Background(), out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Harvest complete\n")
	fmt.Printf("  Pages:   %d (%s)\n", stats.TotalPages, stats.DetectionMethod)
	fmt.Printf("  Passes:  %d\n", stats.Passes)
	fmt.Printf("  Links:   %d\n", stats.LinksFound)
	fmt.Printf("  Rows:    %d written to %s\n", stats.RowsWritten, cfg.OutputCSV)
	if stats.FailedProfiles > 0 {
		fmt.Printf("  Failed:  %d profile(s) unreachable\n", stats.FailedProfiles)
	}
}
