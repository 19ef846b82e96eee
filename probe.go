package dirharvest

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/pevans/dirharvest/collect"
)

// probePageCount confirms a low-confidence page count by walking
// successive page indices and checking whether each contributes profile
// links not seen on earlier pages. The walk stops at the first page that
// adds nothing (or cannot be fetched), bounded by the configured cap.
// Returns the last index that contributed, at least 1.
func (h *Harvester) probePageCount(ctx context.Context, template, firstPage string, matcher *regexp.Regexp, norm collect.Normalizer) int {
	seen := make(map[string]struct{})
	for _, u := range collect.ExtractProfileURLs(firstPage, h.cfg.StartURL, matcher, norm) {
		seen[u] = struct{}{}
	}

	limit := h.cfg.ProbeCap
	total := 1
	for i := 2; i <= limit; i++ {
		if ctx.Err() != nil {
			break
		}

		pageURL := strings.ReplaceAll(template, collect.PagePlaceholder, strconv.Itoa(i))
		body, err := h.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			log.Printf("WARN: Probe stopped at page %d: %v", i, err)
			break
		}

		added := 0
		for _, u := range collect.ExtractProfileURLs(body, pageURL, matcher, norm) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			added++
		}
		if added == 0 {
			break
		}
		total = i
	}

	return total
}
