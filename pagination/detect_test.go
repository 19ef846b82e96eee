package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDetect_RelLastLink verifies that a <link rel="last"> in the head wins
// over everything else
func TestDetect_RelLastLink(t *testing.T) {
	html := `<html><head>
		<link rel="last" href="/members/?page=42">
	</head><body>
		<nav class="pagination">
			<a href="/members/?page=2">2</a>
			<a href="/members/?page=3">3</a>
		</nav>
	</body></html>`

	res := Detect(html, "https://example.com/members/")

	assert.Equal(t, 42, res.TotalPages)
	assert.Equal(t, MethodRelLast, res.Method)
	assert.Equal(t, "https://example.com/members/?page=42", res.Evidence)
}

// TestDetect_RelLastAnchor verifies the scenario of numbered links for
// pages 1-5 plus a rel="last" anchor to page 5: the explicit declaration
// wins
func TestDetect_RelLastAnchor(t *testing.T) {
	html := `<html><body>
		<ul class="pagination">
			<li><a href="/list?page=1">1</a></li>
			<li><a href="/list?page=2">2</a></li>
			<li><a href="/list?page=3">3</a></li>
			<li><a href="/list?page=4">4</a></li>
			<li><a href="/list?page=5">5</a></li>
			<li><a rel="last" href="/list?page=5">Last</a></li>
		</ul>
	</body></html>`

	res := Detect(html, "https://example.com/list")

	assert.Equal(t, 5, res.TotalPages)
	assert.Equal(t, MethodRelLast, res.Method)
}

// TestDetect_RelLastPathPattern verifies page index parsing from a
// path-style pagination URL
func TestDetect_RelLastPathPattern(t *testing.T) {
	html := `<html><body><a rel="last" href="/directory/page/17/">last</a></body></html>`

	res := Detect(html, "https://example.com/directory/")

	assert.Equal(t, 17, res.TotalPages)
	assert.Equal(t, MethodRelLast, res.Method)
}

// TestDetect_NumberedLinks verifies the numbered-links heuristic takes the
// maximum integer seen in a pagination container
func TestDetect_NumberedLinks(t *testing.T) {
	html := `<html><body>
		<div class="pagination">
			<a href="/p?page=1">1</a>
			<a href="/p?page=2">2</a>
			<a href="/p?page=9">9</a>
			<a href="/p?page=2">Next</a>
		</div>
	</body></html>`

	res := Detect(html, "https://example.com/p")

	assert.Equal(t, 9, res.TotalPages)
	assert.Equal(t, MethodNumberedLinks, res.Method)
	assert.NotEmpty(t, res.Evidence)
}

// TestDetect_NumberedLinksFromText verifies page numbers in link text are
// used when hrefs carry no recognizable pattern
func TestDetect_NumberedLinksFromText(t *testing.T) {
	html := `<html><body>
		<nav>
			<a href="/list/b">2</a>
			<a href="/list/c">3</a>
			<a href="/list/g">7</a>
		</nav>
	</body></html>`

	res := Detect(html, "https://example.com/list/")

	assert.Equal(t, 7, res.TotalPages)
	assert.Equal(t, MethodNumberedLinks, res.Method)
}

// TestDetect_SingleNumberRejected verifies that one stray numeric link is
// not enough evidence for a page count
func TestDetect_SingleNumberRejected(t *testing.T) {
	html := `<html><body>
		<nav><a href="/list?page=7">7</a></nav>
	</body></html>`

	res := Detect(html, "https://example.com/list")

	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, MethodDefault, res.Method)
}

// TestDetect_ImplausibleNumbersRejected verifies that year-sized integers
// are bounded out of the candidate set
func TestDetect_ImplausibleNumbersRejected(t *testing.T) {
	html := `<html><body>
		<nav class="pagination">
			<a href="/archive/2024">2024</a>
			<a href="/archive/19087">19087</a>
			<a href="/list?page=3">3</a>
			<a href="/list?page=4">4</a>
		</nav>
	</body></html>`

	res := Detect(html, "https://example.com/list")

	require.Equal(t, MethodNumberedLinks, res.Method)
	assert.Equal(t, 2024, res.TotalPages, "2024 is inside the plausibility bound and must win over 3 and 4")
}

// TestDetect_TextPattern verifies the "page X of Y" fallback in English
func TestDetect_TextPattern(t *testing.T) {
	html := `<html><body><p>Showing results. Page 1 of 25.</p></body></html>`

	res := Detect(html, "https://example.com/")

	assert.Equal(t, 25, res.TotalPages)
	assert.Equal(t, MethodTextPattern, res.Method)
	assert.Contains(t, res.Evidence, "of 25")
}

// TestDetect_TextPatternGerman verifies the German locale variant
func TestDetect_TextPatternGerman(t *testing.T) {
	html := `<html><body><span>Seite 2 von 14</span></body></html>`

	res := Detect(html, "https://example.com/")

	assert.Equal(t, 14, res.TotalPages)
	assert.Equal(t, MethodTextPattern, res.Method)
}

// TestDetect_NoMarkers verifies the default fallback when nothing matches
func TestDetect_NoMarkers(t *testing.T) {
	html := `<html><body><h1>Directory</h1><a href="/profile/alice">Alice</a></body></html>`

	res := Detect(html, "https://example.com/")

	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, MethodDefault, res.Method)
	assert.Empty(t, res.Evidence)
}

// TestDetect_EmptyInput verifies Detect never fails, even on garbage
func TestDetect_EmptyInput(t *testing.T) {
	res := Detect("", "https://example.com/")

	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, MethodDefault, res.Method)
}

// TestPageIndexFromURL covers the shared URL page-index patterns
func TestPageIndexFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"https://example.com/list?page=12", 12},
		{"https://example.com/list?p=4", 4},
		{"https://example.com/list/page/9/", 9},
		{"https://example.com/list/page:31/", 31},
		{"https://example.com/list/p/6", 6},
		{"https://example.com/list", 0},
		{"https://example.com/profile/123", 0},
		{"https://example.com/list?page=zero", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PageIndexFromURL(tt.url), "url %s", tt.url)
	}
}
