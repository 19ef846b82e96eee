package collect

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PagePlaceholder is the token a page URL template must contain; it is
// replaced by the 1-based page index.
const PagePlaceholder = "{page}"

// PageRef is one listing page to visit: its 1-based sequence index and the
// resolved URL for that index.
type PageRef struct {
	Index int
	URL   string
}

// PageSource yields the listing pages to sweep. Pages is called once per
// pass so a source may re-derive its refs each time.
type PageSource interface {
	Pages() []PageRef
}

// TemplateSource generates page refs by substituting indices 1..TotalPages
// into a URL template containing the {page} placeholder. Page 1 uses
// StartURL when set, since many sites serve the first page at the bare
// listing URL rather than the templated one.
type TemplateSource struct {
	Template   string
	StartURL   string
	TotalPages int
}

// NewTemplateSource validates the template and returns a source for pages
// 1..totalPages.
func NewTemplateSource(template, startURL string, totalPages int) (*TemplateSource, error) {
	if !strings.Contains(template, PagePlaceholder) {
		return nil, fmt.Errorf("page template %q does not contain %s", template, PagePlaceholder)
	}
	if totalPages < 1 {
		totalPages = 1
	}
	return &TemplateSource{Template: template, StartURL: startURL, TotalPages: totalPages}, nil
}

// Pages returns refs for indices 1..TotalPages.
func (ts *TemplateSource) Pages() []PageRef {
	refs := make([]PageRef, 0, ts.TotalPages)
	for i := 1; i <= ts.TotalPages; i++ {
		refs = append(refs, PageRef{Index: i, URL: ts.PageURL(i)})
	}
	return refs
}

// PageURL resolves the URL for one page index.
func (ts *TemplateSource) PageURL(index int) string {
	if index == 1 && ts.StartURL != "" {
		return ts.StartURL
	}
	return strings.ReplaceAll(ts.Template, PagePlaceholder, strconv.Itoa(index))
}

var (
	queryPageRE = regexp.MustCompile(`[?&](page|p)=\d`)
	pathPageRE  = regexp.MustCompile(`(/(?:page|p)[:/])\d{1,5}`)
)

// DeriveTemplate infers a page URL template from the pagination link
// shapes observed on the first listing page: a ?page=/?p= query style
// when any anchor uses one, otherwise a /page/N, /page:N, or /p/N path
// style, keeping the key and separator the site itself uses. Returns
// false when neither shape appears, meaning pages beyond the first
// cannot be addressed without an explicit template.
func DeriveTemplate(html, startURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	queryStyle := false
	queryKey := "page"
	pathHref := ""

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := queryPageRE.FindStringSubmatch(href); m != nil {
			queryStyle = true
			queryKey = m[1]
		} else if pathHref == "" && pathPageRE.MatchString(href) {
			pathHref = href
		}
	})

	switch {
	case queryStyle:
		sep := "?"
		if strings.Contains(startURL, "?") {
			sep = "&"
		}
		return startURL + sep + queryKey + "=" + PagePlaceholder, true
	case pathHref != "":
		return templateFromHref(pathHref, startURL)
	default:
		return "", false
	}
}

// templateFromHref turns an observed paginated href into a template:
// resolve it against the listing URL first, then swap its page number
// for the placeholder. Substitution happens after resolving because the
// placeholder braces would not survive URL parsing.
func templateFromHref(href, startURL string) (string, bool) {
	abs := href
	if base, err := url.Parse(startURL); err == nil {
		if ref, err := url.Parse(href); err == nil {
			abs = base.ResolveReference(ref).String()
		}
	}
	if !pathPageRE.MatchString(abs) {
		return "", false
	}
	return pathPageRE.ReplaceAllString(abs, "${1}"+PagePlaceholder), true
}

// SinglePageSource is the degenerate source for listings with no known
// pagination: one page, swept repeatedly like any other.
type SinglePageSource struct {
	URL string
}

// Pages returns the single page ref.
func (sp *SinglePageSource) Pages() []PageRef {
	return []PageRef{{Index: 1, URL: sp.URL}}
}
