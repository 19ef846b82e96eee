package main

import (
	"fmt"
	"os"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "detect":
		handleDetect(args)
	case "collect":
		handleCollect(args)
	case "scrape":
		handleScrape(args)
	case "run":
		handleRun(args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("dirharvest - paginated directory record harvester")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dirharvest <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  detect     Report how many listing pages a directory has")
	fmt.Println("  collect    Collect unique profile links across the listing pages")
	fmt.Println("  scrape     Extract configured fields from collected links into CSV")
	fmt.Println("  run        Full pipeline: detect, collect, scrape")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DIRHARVEST_CONFIG    Path to the run configuration file (default: dirharvest.yaml)")
	fmt.Println("  DIRHARVEST_LINKS_DB  Path to the links database (overrides config)")
	fmt.Println("  DIRHARVEST_OUTPUT    Path to the output CSV (overrides config)")
}
