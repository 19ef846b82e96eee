package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pevans/dirharvest/collect"
	"github.com/pevans/dirharvest/fetch"
	"github.com/pevans/dirharvest/pagination"
)

// handleDetect fetches a single listing page and reports the pagination
// extent without touching any configuration or storage.
func handleDetect(args []string) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	url := fs.String("url", "", "Listing page URL to inspect")
	userAgent := fs.String("user-agent", "", "User-Agent header to send")
	timeout := fs.Duration("timeout", 20*time.Second, "Request timeout")
	fs.Parse(args)

	if *url == "" {
		fmt.Fprintf(os.Stderr, "Error: --url is required\n")
		fs.Usage()
		os.Exit(1)
	}

	client := fetch.New(fetch.Options{
		UserAgent: *userAgent,
		Timeout:   *timeout,
	})

	body, err := client.Fetch(context.Background(), *url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to fetch %s: %v\n", *url, err)
		os.Exit(1)
	}

	result := pagination.Detect(body, *url)
	fmt.Printf("Pages:    %d\n", result.TotalPages)
	fmt.Printf("Method:   %s\n", result.Method)
	if result.Evidence != "" {
		fmt.Printf("Evidence: %s\n", result.Evidence)
	}
	if template, ok := collect.DeriveTemplate(body, *url); ok {
		fmt.Printf("Template: %s\n", template)
	}
}
