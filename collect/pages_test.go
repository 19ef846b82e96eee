package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTemplateSource verifies index substitution and the StartURL override
// for page 1
func TestTemplateSource(t *testing.T) {
	source, err := NewTemplateSource("https://example.com/list/page:{page}/", "https://example.com/list/", 3)
	require.NoError(t, err)

	pages := source.Pages()

	require.Len(t, pages, 3)
	assert.Equal(t, PageRef{Index: 1, URL: "https://example.com/list/"}, pages[0])
	assert.Equal(t, PageRef{Index: 2, URL: "https://example.com/list/page:2/"}, pages[1])
	assert.Equal(t, PageRef{Index: 3, URL: "https://example.com/list/page:3/"}, pages[2])
}

// TestTemplateSource_NoStartURL verifies page 1 falls back to the template
func TestTemplateSource_NoStartURL(t *testing.T) {
	source, err := NewTemplateSource("https://example.com/list?page={page}", "", 2)
	require.NoError(t, err)

	pages := source.Pages()

	require.Len(t, pages, 2)
	assert.Equal(t, "https://example.com/list?page=1", pages[0].URL)
}

// TestTemplateSource_MissingPlaceholder verifies the configuration error
func TestTemplateSource_MissingPlaceholder(t *testing.T) {
	_, err := NewTemplateSource("https://example.com/list", "", 2)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "{page}")
}

// TestDeriveTemplate_QueryStyle verifies query-parameter pagination is
// recognized and the observed key reused
func TestDeriveTemplate_QueryStyle(t *testing.T) {
	html := `<html><body>
		<a href="/list?p=2">2</a>
		<a href="/list?p=3">3</a>
	</body></html>`

	template, ok := DeriveTemplate(html, "https://example.com/list")

	require.True(t, ok)
	assert.Equal(t, "https://example.com/list?p={page}", template)
}

// TestDeriveTemplate_PathStyle verifies path-segment pagination
func TestDeriveTemplate_PathStyle(t *testing.T) {
	html := `<html><body><a href="/list/page/2/">2</a></body></html>`

	template, ok := DeriveTemplate(html, "https://example.com/list")

	require.True(t, ok)
	assert.Equal(t, "https://example.com/list/page/{page}/", template)
}

// TestDeriveTemplate_ShortPathStyle verifies the abbreviated /p/N
// segment is recognized like /page/N
func TestDeriveTemplate_ShortPathStyle(t *testing.T) {
	html := `<html><body>
		<a href="/list/p/2">2</a>
		<a rel="last" href="/list/p/3">Last</a>
	</body></html>`

	template, ok := DeriveTemplate(html, "https://example.com/list")

	require.True(t, ok)
	assert.Equal(t, "https://example.com/list/p/{page}", template)
}

// TestDeriveTemplate_ColonPathStyle verifies the /page:N separator variant
func TestDeriveTemplate_ColonPathStyle(t *testing.T) {
	html := `<html><body><a href="/list/page:2/">2</a></body></html>`

	template, ok := DeriveTemplate(html, "https://example.com/list")

	require.True(t, ok)
	assert.Equal(t, "https://example.com/list/page:{page}/", template)
}

// TestDeriveTemplate_NoPagination verifies the negative case
func TestDeriveTemplate_NoPagination(t *testing.T) {
	html := `<html><body><a href="/profile/a">Alice</a></body></html>`

	_, ok := DeriveTemplate(html, "https://example.com/list")

	assert.False(t, ok)
}

// TestSinglePageSource verifies the degenerate one-page source
func TestSinglePageSource(t *testing.T) {
	source := &SinglePageSource{URL: "https://example.com/list"}

	pages := source.Pages()

	require.Len(t, pages, 1)
	assert.Equal(t, PageRef{Index: 1, URL: "https://example.com/list"}, pages[0])
}
