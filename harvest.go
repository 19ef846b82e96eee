// Package dirharvest harvests structured records from a paginated web
// directory: it detects how many listing pages exist, collects the unique
// detail-page URLs across them over repeated passes, extracts configured
// fields from each detail page, and writes one CSV row per URL.
package dirharvest

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pevans/dirharvest/collect"
	"github.com/pevans/dirharvest/config"
	"github.com/pevans/dirharvest/extract"
	"github.com/pevans/dirharvest/links"
	"github.com/pevans/dirharvest/output"
	"github.com/pevans/dirharvest/pagination"
)

// Fetcher is the transport capability the harvester consumes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Stats summarizes a completed run.
type Stats struct {
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     time.Time         `json:"completed_at"`
	TotalPages      int               `json:"total_pages"`
	DetectionMethod pagination.Method `json:"detection_method"`
	Passes          int               `json:"passes"`
	LinksFound      int               `json:"links_found"`
	RowsWritten     int               `json:"rows_written"`
	FailedProfiles  int               `json:"failed_profiles"`
}

// Harvester ties the stages together for one directory.
type Harvester struct {
	cfg      *config.Config
	fetcher  Fetcher
	store    *links.Store
	pipeline *extract.Pipeline
}

// New validates the configuration into a ready harvester. The store is
// optional; without it, runs neither resume nor persist their link sets.
func New(cfg *config.Config, fetcher Fetcher, store *links.Store) (*Harvester, error) {
	pipeline, err := cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	return &Harvester{
		cfg:      cfg,
		fetcher:  fetcher,
		store:    store,
		pipeline: pipeline,
	}, nil
}

// Run executes the full pipeline and writes CSV to out. The run always
// completes and produces a row for every URL it discovered: fetch and
// extraction failures degrade data completeness, they never abort.
func (h *Harvester) Run(ctx context.Context, out io.Writer) (*Stats, error) {
	stats := &Stats{StartedAt: time.Now()}

	urls, err := h.Collect(ctx, stats)
	if err != nil {
		return stats, err
	}

	if err := h.Scrape(ctx, urls, out, stats); err != nil {
		return stats, err
	}

	stats.CompletedAt = time.Now()
	log.Printf("INFO: Harvest complete: %d links, %d rows, %d failed profiles in %v",
		stats.LinksFound, stats.RowsWritten, stats.FailedProfiles,
		stats.CompletedAt.Sub(stats.StartedAt).Round(time.Millisecond))
	return stats, nil
}

// Collect runs pagination detection and multi-pass link collection,
// returning the sorted unique profile URLs. Only a configuration-level
// problem or context cancellation returns an error.
func (h *Harvester) Collect(ctx context.Context, stats *Stats) ([]string, error) {
	matcher, err := h.cfg.Matcher()
	if err != nil {
		return nil, err
	}
	norm := collect.Normalizer{StripParams: h.cfg.StripParams}

	// The first page drives detection. If it cannot be fetched the run
	// continues with the conservative default: the collector will retry
	// the page on every pass anyway.
	firstPage, err := h.fetcher.Fetch(ctx, h.cfg.StartURL)
	det := pagination.Result{TotalPages: 1, Method: pagination.MethodDefault}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("WARN: First page fetch failed, assuming a single page: %v", err)
	} else {
		det = pagination.Detect(firstPage, h.cfg.StartURL)
	}
	log.Printf("INFO: Detected %d page(s) (method=%s evidence=%q)",
		det.TotalPages, det.Method, det.Evidence)

	template := h.cfg.PageTemplate
	if template == "" && firstPage != "" {
		if derived, ok := collect.DeriveTemplate(firstPage, h.cfg.StartURL); ok {
			template = derived
			log.Printf("INFO: Derived page template %s", template)
		}
	}

	totalPages := det.TotalPages
	if det.Method == pagination.MethodDefault && template != "" {
		totalPages = h.probePageCount(ctx, template, firstPage, matcher, norm)
		if totalPages > det.TotalPages {
			log.Printf("INFO: Probe extended page count to %d", totalPages)
		}
	}
	stats.TotalPages = totalPages
	stats.DetectionMethod = det.Method

	var source collect.PageSource
	if template != "" && totalPages > 1 {
		ts, err := collect.NewTemplateSource(template, h.cfg.StartURL, totalPages)
		if err != nil {
			return nil, err
		}
		source = ts
	} else {
		if totalPages > 1 {
			log.Printf("WARN: %d pages detected but no page template could be derived; sweeping the start page only", totalPages)
		}
		source = &collect.SinglePageSource{URL: h.cfg.StartURL}
	}

	var seed []string
	runID := uuid.Nil
	if h.store != nil {
		if seed, err = h.store.ListURLs(); err != nil {
			return nil, fmt.Errorf("failed to load stored links: %w", err)
		}
		if len(seed) > 0 {
			log.Printf("INFO: Resuming with %d stored links", len(seed))
		}
		if runID, err = h.store.BeginRun(h.cfg.StartURL); err != nil {
			return nil, err
		}
	}

	collector := collect.New(h.fetcher, matcher, h.cfg.CollectOptions())
	collector.Norm = norm
	collector.OnPass = func(pass int, added []string) {
		if h.store == nil || len(added) == 0 {
			return
		}
		if _, err := h.store.AddLinks(runID, added); err != nil {
			log.Printf("WARN: Failed to persist pass %d links: %v", pass, err)
		}
	}

	res, err := collector.Collect(ctx, source, seed)
	if err != nil {
		return nil, err
	}
	stats.Passes = res.Passes
	stats.LinksFound = len(res.URLs)

	log.Printf("INFO: Collected %d unique profile links in %d pass(es)",
		len(res.URLs), res.Passes)
	return res.URLs, nil
}

// Scrape extracts every URL into a CSV row on out. A detail page that
// cannot be fetched still gets its row, with every field absent, so the
// output always has one row per discovered URL.
func (h *Harvester) Scrape(ctx context.Context, urls []string, out io.Writer, stats *Stats) error {
	schema := output.NewSchema(h.pipeline.FieldNames(), h.pipeline.ListSpecs())
	writer, err := output.NewWriter(out, schema)
	if err != nil {
		return err
	}

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("INFO: (%d/%d) GET %s", i+1, len(urls), u)

		var rec extract.Record
		body, err := h.fetcher.Fetch(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("WARN: Profile fetch failed, writing empty row: %v", err)
			rec = h.pipeline.AbsentRecord()
			stats.FailedProfiles++
		} else {
			rec = h.pipeline.Extract(body)
		}

		if err := writer.WriteRecord(rec); err != nil {
			return err
		}
		stats.RowsWritten++
	}

	return writer.Flush()
}
