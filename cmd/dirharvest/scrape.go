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

// handleScrape extracts the configured fields from every stored link and
// writes the CSV. It requires a prior collect (or run) to have populated
// the links database.
func handleScrape(args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configPath := fs.String("config", getEnv("DIRHARVEST_CONFIG", "dirharvest.yaml"), "Path to the run configuration file")
	linksDB := fs.String("links-db", getEnv("DIRHARVEST_LINKS_DB", ""), "Path to the links database (overrides config)")
	outPath := fs.String("out", getEnv("DIRHARVEST_OUTPUT", ""), "Path to the output CSV (overrides config)")
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

	store, err := links.NewStore(cfg.LinksDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open links database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	urls, err := store.ListURLs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list stored links: %v\n", err)
		os.Exit(1)
	}
	if len(urls) == 0 {
		fmt.Println("No links collected yet. Run 'dirharvest collect' first.")
		return
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

	stats := &dirharvest.Stats{}
	if err := harvester.Scrape(context.Background(), urls, out, stats); err != nil {
		fmt.Fprintf(os.Stderr, "Error: scrape failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Wrote %d row(s) to %s (%d profile(s) unreachable)\n",
		stats.RowsWritten, cfg.OutputCSV, stats.FailedProfiles)
}
