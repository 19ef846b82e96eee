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

// handleCollect runs detection and multi-pass link collection, persists
// the links, and prints them to stdout. The listing can be described
// directly with flags or loaded from a configuration file.
func handleCollect(args []string) {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	url := fs.String("url", "", "First listing page URL")
	template := fs.String("template", "", "Page URL template containing {page}")
	pattern := fs.String("pattern", "", "Regexp classifying profile URLs")
	passes := fs.Int("passes", 0, "Maximum number of collection passes")
	stagnation := fs.Int("stagnation", 0, "Consecutive no-growth passes before stopping")
	configPath := fs.String("config", getEnv("DIRHARVEST_CONFIG", ""), "Path to the run configuration file (used when --url is not set)")
	linksDB := fs.String("links-db", getEnv("DIRHARVEST_LINKS_DB", ""), "Path to the links database (overrides config)")
	noStore := fs.Bool("no-store", false, "Do not persist or resume collected links")
	fs.Parse(args)

	var cfg *config.Config
	var err error
	switch {
	case *url != "":
		cfg = &config.Config{
			StartURL:        *url,
			PageTemplate:    *template,
			ProfilePattern:  *pattern,
			MaxPasses:       *passes,
			StagnationLimit: *stagnation,
		}
		cfg.ApplyDefaults()
		if err = cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *configPath != "":
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: --url or --config is required\n")
		fs.Usage()
		os.Exit(1)
	}
	if *linksDB != "" {
		cfg.LinksDB = *linksDB
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

	stats := &dirharvest.Stats{}
	urls, err := harvester.Collect(context.Background(), stats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: collection failed: %v\n", err)
		os.Exit(1)
	}

	for _, u := range urls {
		fmt.Println(u)
	}
	fmt.Fprintf(os.Stderr, "✓ Collected %d links across %d pass(es) from %d page(s)\n",
		stats.LinksFound, stats.Passes, stats.TotalPages)
}
