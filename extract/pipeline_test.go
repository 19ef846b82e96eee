package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFields() []FieldSpec {
	return []FieldSpec{
		{
			Name: "name",
			Steps: []Step{
				{JSONLD: []string{"name"}},
				{CSS: &CSSStep{Selector: "h1"}},
				{Meta: &MetaStep{Property: "og:title", StripSuffix: " | "}},
			},
		},
		{
			Name: "rating",
			Steps: []Step{
				{CSS: &CSSStep{Selector: "span.average-rating", TextPattern: `(\d+(?:\.\d+)?)`}},
				{JSONLDPath: []string{"aggregateRating", "ratingValue"}},
			},
		},
		{
			Name: "phone",
			Steps: []Step{
				{JSONLD: []string{"telephone"}},
				{CSS: &CSSStep{Selector: ".contact .phone"}},
			},
		},
		{
			Name: "online_booking",
			Steps: []Step{
				{Label: &LabelStep{Selector: "span.action-button-text", Label: "Book", MissValue: "false"}},
			},
		},
	}
}

func testLists() []ListSpec {
	return []ListSpec{
		{Name: "locations", Container: "ul.office-wrapper", Selector: "li.office h3", MaxColumns: 5},
	}
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(testFields(), testLists())
	require.NoError(t, err)
	return p
}

// TestExtract_JSONLDBeatsDOM verifies strategy priority: structured data
// wins over a conflicting DOM value
func TestExtract_JSONLDBeatsDOM(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{"@type":"Person","name":"Dr. Alice Amber"}</script>
	</head><body>
		<h1>Completely Different Heading</h1>
	</body></html>`

	rec := newTestPipeline(t).Extract(html)

	require.True(t, rec["name"].Present)
	assert.Equal(t, "Dr. Alice Amber", rec["name"].Scalar)
}

// TestExtract_FallsBackToSelector verifies the DOM fallback when no
// structured data is present
func TestExtract_FallsBackToSelector(t *testing.T) {
	html := `<html><body><h1>
		Bob   Breeze
	</h1></body></html>`

	rec := newTestPipeline(t).Extract(html)

	require.True(t, rec["name"].Present)
	assert.Equal(t, "Bob Breeze", rec["name"].Scalar, "whitespace is collapsed")
}

// TestExtract_MetaFallback verifies the last-resort meta step with suffix
// stripping
func TestExtract_MetaFallback(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="Carol Crane | Top Profiles">
	</head><body></body></html>`

	rec := newTestPipeline(t).Extract(html)

	require.True(t, rec["name"].Present)
	assert.Equal(t, "Carol Crane", rec["name"].Scalar)
}

// TestExtract_MissingFieldIsolated verifies one missing field does not
// affect correctly-extracted siblings
func TestExtract_MissingFieldIsolated(t *testing.T) {
	html := `<html><body>
		<h1>Dana Dell</h1>
		<span class="average-rating">4.8 | reviews</span>
	</body></html>`

	rec := newTestPipeline(t).Extract(html)

	assert.False(t, rec["phone"].Present, "no source for phone anywhere")
	assert.Empty(t, rec["phone"].Scalar)

	require.True(t, rec["name"].Present)
	assert.Equal(t, "Dana Dell", rec["name"].Scalar)
	require.True(t, rec["rating"].Present)
	assert.Equal(t, "4.8", rec["rating"].Scalar)
}

// TestExtract_MalformedJSONLDFallsThrough verifies a broken structured
// data block is skipped, not fatal
func TestExtract_MalformedJSONLDFallsThrough(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{not valid json</script>
	</head><body><h1>Eve Early</h1></body></html>`

	rec := newTestPipeline(t).Extract(html)

	require.True(t, rec["name"].Present)
	assert.Equal(t, "Eve Early", rec["name"].Scalar)
}

// TestExtract_JSONLDPath verifies nested key path resolution, including
// numeric coercion
func TestExtract_JSONLDPath(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
			{"@type":"Person","aggregateRating":{"ratingValue":4.5,"reviewCount":37}}
		</script>
	</head><body></body></html>`

	rec := newTestPipeline(t).Extract(html)

	require.True(t, rec["rating"].Present)
	assert.Equal(t, "4.5", rec["rating"].Scalar)
}

// TestExtract_JSONLDGraph verifies objects inside @graph are searched
func TestExtract_JSONLDGraph(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
			{"@context":"https://schema.org","@graph":[
				{"@type":"WebSite","url":"https://example.com"},
				{"@type":"Person","name":"Frank Field","telephone":"+44 20 1234 5678"}
			]}
		</script>
	</head><body></body></html>`

	rec := newTestPipeline(t).Extract(html)

	assert.Equal(t, "Frank Field", rec["name"].Scalar)
	assert.Equal(t, "+44 20 1234 5678", rec["phone"].Scalar)
}

// TestExtract_LabelMatch verifies presence fields: a matching label emits
// the configured value, absence emits the miss value
func TestExtract_LabelMatch(t *testing.T) {
	withButton := `<html><body>
		<button class="is-clickable"><span class="action-button-text">Book</span></button>
	</body></html>`
	without := `<html><body>
		<span class="action-button-text">Call</span>
	</body></html>`

	p := newTestPipeline(t)

	rec := p.Extract(withButton)
	require.True(t, rec["online_booking"].Present)
	assert.Equal(t, "true", rec["online_booking"].Scalar)

	rec = p.Extract(without)
	require.True(t, rec["online_booking"].Present)
	assert.Equal(t, "false", rec["online_booking"].Scalar)
}

// TestExtract_LabelCaseInsensitive verifies label comparison ignores case
func TestExtract_LabelCaseInsensitive(t *testing.T) {
	html := `<html><body><span class="action-button-text">BOOK</span></body></html>`

	rec := newTestPipeline(t).Extract(html)

	assert.Equal(t, "true", rec["online_booking"].Scalar)
}

// TestExtract_List verifies ordered, de-duplicated list extraction scoped
// to a container
func TestExtract_List(t *testing.T) {
	html := `<html><body>
		<ul class="office-wrapper">
			<li class="office"><h3>Central Clinic</h3></li>
			<li class="office"><h3>North Branch</h3></li>
			<li class="office"><h3>Central Clinic</h3></li>
			<li class="office"><h3>East Office</h3></li>
		</ul>
		<ul><li class="office"><h3>Outside Container</h3></li></ul>
	</body></html>`

	rec := newTestPipeline(t).Extract(html)

	loc := rec["locations"]
	require.True(t, loc.Present)
	require.True(t, loc.List)
	assert.Equal(t, []string{"Central Clinic", "North Branch", "East Office"}, loc.Items)
}

// TestExtract_EmptyListAbsent verifies a missing container yields an
// absent list value without error
func TestExtract_EmptyListAbsent(t *testing.T) {
	rec := newTestPipeline(t).Extract(`<html><body><h1>No Offices</h1></body></html>`)

	loc := rec["locations"]
	assert.False(t, loc.Present)
	assert.True(t, loc.List)
	assert.Empty(t, loc.Items)
}

// TestAbsentRecord verifies the all-absent record used for failed detail
// fetches
func TestAbsentRecord(t *testing.T) {
	rec := newTestPipeline(t).AbsentRecord()

	require.Len(t, rec, 5)
	for name, val := range rec {
		assert.False(t, val.Present, "field %s must be absent", name)
	}
	assert.True(t, rec["locations"].List)
}

// TestNewPipeline_InvalidPattern verifies pattern compilation fails at
// construction, not per page
func TestNewPipeline_InvalidPattern(t *testing.T) {
	fields := []FieldSpec{
		{Name: "bad", Steps: []Step{{RegexText: `([`}}},
	}

	_, err := NewPipeline(fields, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

// TestNewPipeline_UnnamedListRejected verifies list validation
func TestNewPipeline_UnnamedListRejected(t *testing.T) {
	_, err := NewPipeline(nil, []ListSpec{{Selector: "li"}})

	assert.Error(t, err)
}

// TestExtract_RegexText verifies the visible-text regex strategy
func TestExtract_RegexText(t *testing.T) {
	fields := []FieldSpec{
		{Name: "registration", Steps: []Step{{RegexText: `registration\s+number[:\s]*([0-9]{5,8})`}}},
	}
	p, err := NewPipeline(fields, nil)
	require.NoError(t, err)

	rec := p.Extract(`<html><body><p>Registration Number: 7203941</p></body></html>`)

	require.True(t, rec["registration"].Present)
	assert.Equal(t, "7203941", rec["registration"].Scalar)
}
