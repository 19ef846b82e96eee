// Package pagination determines how many listing pages a paginated web
// directory exposes, using a prioritized chain of structural heuristics.
package pagination

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Method identifies which heuristic produced a detection result. Methods
// are ordered by confidence: a rel="last" link is an explicit declaration
// by the site, numbered pagination links are strong circumstantial
// evidence, visible "page X of Y" text is weaker, and MethodDefault means
// no heuristic matched at all.
type Method string

const (
	MethodRelLast       Method = "rel-last"
	MethodNumberedLinks Method = "numbered-links"
	MethodTextPattern   Method = "text-pattern"
	MethodDefault       Method = "default"
)

// Result describes the outcome of page-count detection.
type Result struct {
	// TotalPages is always >= 1. When Method is MethodDefault it is a
	// conservative guess of 1, not a verified count, and callers should
	// confirm it some other way (e.g. by probing page 2).
	TotalPages int
	Method     Method
	// Evidence is a short human-readable hint: the href or text that
	// produced the count.
	Evidence string
}

// Plausibility bound for a page count parsed out of a link. Anything
// larger is more likely a year, an ID, or a phone number fragment.
const maxPlausiblePages = 10000

// Selectors that usually wrap pagination controls. Anchors outside these
// containers are not considered by the numbered-links heuristic.
var paginationContainers = []string{
	"nav",
	".pagination",
	".pager",
	".paginations",
	".page-numbers",
	`[role="navigation"]`,
	`[aria-label*="agination"]`,
}

// Text templates expressing "page X of Y" in a small fixed set of locales.
// The capture group is Y.
var pageOfPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bPage\s+\d+\s+of\s+(\d{1,5})\b`),
	regexp.MustCompile(`(?i)\bSeite\s+\d+\s+von\s+(\d{1,5})\b`),
	regexp.MustCompile(`(?i)\bP[áa]gina\s+\d+\s+de\s+(\d{1,5})\b`),
	regexp.MustCompile(`(?i)\bPagina\s+\d+\s+di\s+(\d{1,5})\b`),
	regexp.MustCompile(`(?i)\bPage\s+\d{1,5}\s*/\s*(\d{1,5})\b`),
}

// URL patterns a page index commonly hides in: ?page=N, ?p=N, /page/N,
// /page:N, /p/N.
var (
	pageQueryKeys = []string{"page", "p"}
	pagePathRE    = regexp.MustCompile(`/(?:page|p)[:/](\d{1,5})(?:/|$)`)
)

// Detect inspects the first listing page and returns the total page count
// plus the heuristic that produced it. It never fails: when nothing
// matches it returns {1, MethodDefault}, which callers must treat as a
// low-confidence guess rather than a verified count.
func Detect(html, baseURL string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{TotalPages: 1, Method: MethodDefault}
	}
	return DetectDocument(doc, baseURL)
}

// DetectDocument is Detect for an already-parsed document.
func DetectDocument(doc *goquery.Document, baseURL string) Result {
	if res, ok := detectRelLast(doc, baseURL); ok {
		return res
	}
	if res, ok := detectNumberedLinks(doc); ok {
		return res
	}
	if res, ok := detectPageOfText(doc); ok {
		return res
	}
	return Result{TotalPages: 1, Method: MethodDefault}
}

// detectRelLast looks for <link rel="last"> in the head or <a rel="last">
// in the body and parses the page index out of its URL.
func detectRelLast(doc *goquery.Document, baseURL string) (Result, bool) {
	var found Result
	var ok bool

	doc.Find("link[rel], a[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "last") {
			return true
		}
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return true
		}
		resolved := resolveURL(baseURL, href)
		if n := PageIndexFromURL(resolved); n >= 1 && n <= maxPlausiblePages {
			found = Result{TotalPages: n, Method: MethodRelLast, Evidence: resolved}
			ok = true
			return false
		}
		return true
	})

	return found, ok
}

// detectNumberedLinks scans anchors inside recognizable pagination
// containers and takes the maximum integer found in link text or link
// URLs. At least two distinct numeric links are required so a single
// stray number cannot fabricate a page count.
func detectNumberedLinks(doc *goquery.Document) (Result, bool) {
	maxNum := 0
	evidence := ""
	distinct := make(map[int]struct{})

	for _, container := range paginationContainers {
		doc.Find(container + " a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			text := strings.TrimSpace(a.Text())

			n := 0
			if isAllDigits(text) {
				n, _ = strconv.Atoi(text)
			} else if href != "" {
				n = PageIndexFromURL(href)
			}
			if n < 1 || n > maxPlausiblePages {
				return
			}

			distinct[n] = struct{}{}
			if n > maxNum {
				maxNum = n
				if href != "" {
					evidence = href
				} else {
					evidence = text
				}
			}
		})
	}

	if maxNum == 0 || len(distinct) < 2 {
		return Result{}, false
	}
	return Result{TotalPages: maxNum, Method: MethodNumberedLinks, Evidence: evidence}, true
}

// detectPageOfText searches the document's visible text for "page X of Y"
// style templates.
func detectPageOfText(doc *goquery.Document) (Result, bool) {
	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	for _, re := range pageOfPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > maxPlausiblePages {
			continue
		}
		return Result{TotalPages: n, Method: MethodTextPattern, Evidence: m[0]}, true
	}
	return Result{}, false
}

// PageIndexFromURL parses a page index out of a URL using the common
// patterns: ?page=N, ?p=N, /page/N, /page:N, /p/N. Returns 0 when no
// pattern matches.
func PageIndexFromURL(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err == nil {
		q := u.Query()
		for _, key := range pageQueryKeys {
			if v := q.Get(key); v != "" {
				if n, err := strconv.Atoi(v); err == nil && n > 0 {
					return n
				}
			}
		}
	}

	if m := pagePathRE.FindStringSubmatch(rawURL); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func resolveURL(base, href string) string {
	baseU, err := url.Parse(base)
	if err != nil {
		return href
	}
	hrefU, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseU.ResolveReference(hrefU).String()
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
