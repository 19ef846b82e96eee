// Package collect gathers unique detail-page URLs from a paginated
// listing. Listings shuffle or rotate their contents between loads, so a
// single sweep over the pages can miss entries; the collector keeps
// sweeping until the configured pass cap runs out or the set stops
// growing.
package collect

import (
	"context"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher is the transport capability the collector consumes. A failure
// must be reported distinctly from a 200 with an empty body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options bound a collection run.
type Options struct {
	// MaxPasses is the upper bound on complete sweeps over all pages.
	MaxPasses int
	// StagnationLimit is the number of consecutive passes contributing
	// zero new URLs after which collection stops early. "New" means
	// added to the cumulative set during the pass; re-seeing a known URL
	// does not count.
	StagnationLimit int
}

// DefaultOptions matches the historical run parameters: four sweeps,
// stopping after one pass with no growth.
func DefaultOptions() Options {
	return Options{MaxPasses: 4, StagnationLimit: 1}
}

// Result is the outcome of a collection run.
type Result struct {
	// URLs is the deduplicated union of every matched, normalized URL
	// seen across all passes, sorted for stable output.
	URLs []string
	// Passes is how many sweeps actually ran.
	Passes int
	// Stagnated reports whether the run stopped early on the
	// stagnation condition rather than exhausting MaxPasses.
	Stagnated bool
}

// Collector performs repeated passes over listing pages, accumulating
// profile URLs into one set. The set is owned exclusively by a single
// Collect invocation.
type Collector struct {
	fetcher Fetcher
	matcher *regexp.Regexp
	opts    Options

	// Norm canonicalizes candidate URLs. The zero value applies the
	// default tracking-parameter strip list.
	Norm Normalizer
	// OnPass, when set, is invoked after each pass with the pass number
	// and the URLs that pass added. Used for per-pass persistence.
	OnPass func(pass int, added []string)
}

// New creates a collector. The matcher classifies a candidate as a
// profile URL; it is tested against the absolute normalized URL and,
// separately, against its path.
func New(fetcher Fetcher, matcher *regexp.Regexp, opts Options) *Collector {
	if opts.MaxPasses < 1 {
		opts.MaxPasses = 1
	}
	if opts.StagnationLimit < 1 {
		opts.StagnationLimit = 1
	}
	return &Collector{fetcher: fetcher, matcher: matcher, opts: opts}
}

// Collect sweeps the source's pages up to MaxPasses times and returns the
// union of matched URLs. seed pre-populates the set (resuming an earlier
// run); seeded URLs do not count as growth. A fetch failure for one page
// is logged and contributes nothing for that pass; only context
// cancellation aborts the run.
func (c *Collector) Collect(ctx context.Context, source PageSource, seed []string) (*Result, error) {
	seen := make(map[string]struct{}, len(seed))
	for _, u := range seed {
		seen[c.Norm.Normalize(u)] = struct{}{}
	}

	conv := newConvergence(c.opts.StagnationLimit)
	res := &Result{}

	for pass := 1; pass <= c.opts.MaxPasses; pass++ {
		added, err := c.sweep(ctx, source, seen, pass)
		if err != nil {
			return nil, err
		}
		res.Passes = pass

		if c.OnPass != nil {
			c.OnPass(pass, added)
		}
		log.Printf("INFO: Pass %d/%d added %d new links (total %d)",
			pass, c.opts.MaxPasses, len(added), len(seen))

		conv.record(len(added))
		if conv.done() {
			res.Stagnated = pass < c.opts.MaxPasses
			break
		}
	}

	res.URLs = make([]string, 0, len(seen))
	for u := range seen {
		res.URLs = append(res.URLs, u)
	}
	sort.Strings(res.URLs)
	return res, nil
}

// sweep performs one complete pass over all pages, mutating seen and
// returning the URLs this pass contributed.
func (c *Collector) sweep(ctx context.Context, source PageSource, seen map[string]struct{}, pass int) ([]string, error) {
	var added []string

	for _, page := range source.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := c.fetcher.Fetch(ctx, page.URL)
		if err != nil {
			log.Printf("WARN: Pass %d: page %d (%s): %v", pass, page.Index, page.URL, err)
			continue
		}

		for _, u := range ExtractProfileURLs(body, page.URL, c.matcher, c.Norm) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			added = append(added, u)
		}
	}

	sort.Strings(added)
	return added, nil
}

// ExtractProfileURLs parses every anchor href out of a page body,
// resolves it against the page URL, normalizes it, and keeps the ones the
// matcher classifies as profile URLs. The matcher is tested against the
// absolute normalized URL and, separately, against its path, so callers
// can write patterns either way.
func ExtractProfileURLs(body, pageURL string, matcher *regexp.Regexp, norm Normalizer) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	base, baseErr := url.Parse(pageURL)

	var urls []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !isFollowableLink(href) {
			return
		}

		abs := href
		if baseErr == nil {
			if ref, err := url.Parse(href); err == nil {
				abs = base.ResolveReference(ref).String()
			}
		}

		normalized := norm.Normalize(abs)
		if !matchesProfile(matcher, normalized) {
			return
		}
		urls = append(urls, normalized)
	})
	return urls
}

func matchesProfile(matcher *regexp.Regexp, absURL string) bool {
	if matcher.MatchString(absURL) {
		return true
	}
	if u, err := url.Parse(absURL); err == nil && matcher.MatchString(u.Path) {
		return true
	}
	return false
}

func isFollowableLink(href string) bool {
	if href == "" {
		return false
	}
	return !strings.HasPrefix(href, "#") &&
		!strings.HasPrefix(href, "javascript:") &&
		!strings.HasPrefix(href, "mailto:")
}

// convergence tracks consecutive zero-growth passes. Kept as its own type
// so the termination condition is testable apart from the sweep loop.
type convergence struct {
	limit    int
	stagnant int
}

func newConvergence(limit int) *convergence {
	return &convergence{limit: limit}
}

// record notes the number of URLs a pass added to the cumulative set.
func (cv *convergence) record(added int) {
	if added == 0 {
		cv.stagnant++
	} else {
		cv.stagnant = 0
	}
}

// done reports whether the stagnation limit has been reached.
func (cv *convergence) done() bool {
	return cv.stagnant >= cv.limit
}
