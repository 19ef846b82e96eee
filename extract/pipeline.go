// Package extract turns a detail page into a record of configured fields.
// Every field is attempted independently through an ordered chain of
// extraction strategies, so one broken selector degrades a single field
// rather than blanking the whole record.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FieldSpec configures one scalar output field: an ordered list of
// extraction steps tried until one yields a non-empty value.
type FieldSpec struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is a single extraction strategy. Exactly one of its members should
// be set; a step whose strategy finds nothing falls through to the next.
type Step struct {
	// JSONLD tries these key names on every embedded JSON-LD object.
	JSONLD []string `yaml:"jsonld,omitempty"`
	// JSONLDPath resolves a nested key path inside JSON-LD objects.
	JSONLDPath []string `yaml:"jsonld_path,omitempty"`
	// CSS selects a node and takes its text or an attribute.
	CSS *CSSStep `yaml:"css,omitempty"`
	// Meta reads a <meta property=...> content attribute.
	Meta *MetaStep `yaml:"meta,omitempty"`
	// Label tests candidate nodes' text against a label (presence
	// fields such as badges and action buttons).
	Label *LabelStep `yaml:"label,omitempty"`
	// RegexText applies a capturing regex to the page's visible text.
	RegexText string `yaml:"regex_text,omitempty"`
}

// CSSStep extracts from the first node matching Selector: a named
// attribute when Attr is set, otherwise whitespace-normalized text,
// optionally narrowed by a capturing TextPattern.
type CSSStep struct {
	Selector    string `yaml:"selector"`
	Attr        string `yaml:"attr,omitempty"`
	TextPattern string `yaml:"text_pattern,omitempty"`
}

// MetaStep reads document metadata, e.g. og:title, with an optional
// suffix cut (sites append " | SiteName" style decorations).
type MetaStep struct {
	Property    string `yaml:"property"`
	StripSuffix string `yaml:"strip_suffix,omitempty"`
}

// LabelStep emits Value (default "true") when any node matching Selector
// has text equal to Label, case-insensitively; Substring relaxes the
// comparison. When no node matches, MissValue is emitted if set,
// otherwise the step falls through.
type LabelStep struct {
	Selector  string `yaml:"selector"`
	Label     string `yaml:"label"`
	Substring bool   `yaml:"substring,omitempty"`
	Value     string `yaml:"value,omitempty"`
	MissValue string `yaml:"miss_value,omitempty"`
}

// ListSpec configures one repeated field: the items matched by Selector
// (scoped under Container when set) become an ordered, de-duplicated list
// of strings, one per item, from the item's text or a named attribute.
type ListSpec struct {
	Name         string `yaml:"name"`
	Container    string `yaml:"container,omitempty"`
	Selector     string `yaml:"selector"`
	Attr         string `yaml:"attr,omitempty"`
	MaxColumns   int    `yaml:"max_columns,omitempty"`
	ColumnPrefix string `yaml:"column_prefix,omitempty"`
}

// Value is one extracted field value: absent, a scalar, or an ordered
// list.
type Value struct {
	Present bool
	List    bool
	Scalar  string
	Items   []string
}

// Record maps field names to extracted values. One record per detail
// page; records are never merged across pages.
type Record map[string]Value

// Pipeline extracts configured fields from detail pages. Construct with
// NewPipeline so strategy patterns are validated up front: an unparseable
// pattern is a configuration error, not a per-page one.
type Pipeline struct {
	fields []FieldSpec
	lists  []ListSpec
	// compiled regexps keyed by pattern source
	patterns map[string]*regexp.Regexp
}

// NewPipeline validates the field table and compiles its patterns.
func NewPipeline(fields []FieldSpec, lists []ListSpec) (*Pipeline, error) {
	p := &Pipeline{
		fields:   fields,
		lists:    lists,
		patterns: make(map[string]*regexp.Regexp),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field with empty name")
		}
		for _, s := range f.Steps {
			for _, pat := range []string{s.RegexText, cssPattern(s.CSS)} {
				if pat == "" {
					continue
				}
				re, err := regexp.Compile("(?i)" + pat)
				if err != nil {
					return nil, fmt.Errorf("field %q: invalid pattern %q: %w", f.Name, pat, err)
				}
				p.patterns[pat] = re
			}
		}
	}
	for _, l := range lists {
		if l.Name == "" || l.Selector == "" {
			return nil, fmt.Errorf("list field needs a name and a selector")
		}
	}

	return p, nil
}

func cssPattern(css *CSSStep) string {
	if css == nil {
		return ""
	}
	return css.TextPattern
}

// Extract produces a record for one detail page. It never fails as a
// whole: fields whose strategies all miss come back absent, and sibling
// fields are unaffected.
func (p *Pipeline) Extract(html string) Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return p.AbsentRecord()
	}
	return p.ExtractDocument(doc)
}

// ExtractDocument is Extract for an already-parsed document.
func (p *Pipeline) ExtractDocument(doc *goquery.Document) Record {
	pg := &page{doc: doc}
	rec := make(Record, len(p.fields)+len(p.lists))

	for _, f := range p.fields {
		if val, ok := p.extractScalar(pg, f); ok {
			rec[f.Name] = Value{Present: true, Scalar: val}
		} else {
			rec[f.Name] = Value{}
		}
	}

	for _, l := range p.lists {
		items := extractList(pg, l)
		rec[l.Name] = Value{Present: len(items) > 0, List: true, Items: items}
	}

	return rec
}

// AbsentRecord returns a record with every configured field absent. Used
// when a detail page could not be fetched at all, preserving the
// row-per-URL invariant.
func (p *Pipeline) AbsentRecord() Record {
	rec := make(Record, len(p.fields)+len(p.lists))
	for _, f := range p.fields {
		rec[f.Name] = Value{}
	}
	for _, l := range p.lists {
		rec[l.Name] = Value{List: true}
	}
	return rec
}

// FieldNames returns the scalar field names in specification order.
func (p *Pipeline) FieldNames() []string {
	names := make([]string, 0, len(p.fields))
	for _, f := range p.fields {
		names = append(names, f.Name)
	}
	return names
}

// ListSpecs returns the list field specifications in order.
func (p *Pipeline) ListSpecs() []ListSpec {
	return p.lists
}

// page caches per-page parse products shared across field extractions.
type page struct {
	doc *goquery.Document

	jsonld       []map[string]any
	jsonldParsed bool

	text       string
	textParsed bool
}

func (pg *page) jsonLD() []map[string]any {
	if !pg.jsonldParsed {
		pg.jsonld = jsonLDObjects(pg.doc)
		pg.jsonldParsed = true
	}
	return pg.jsonld
}

func (pg *page) visibleText() string {
	if !pg.textParsed {
		pg.text = strings.Join(strings.Fields(pg.doc.Text()), " ")
		pg.textParsed = true
	}
	return pg.text
}

// extractScalar tries the field's steps in order and returns the first
// non-empty value.
func (p *Pipeline) extractScalar(pg *page, f FieldSpec) (string, bool) {
	for _, step := range f.Steps {
		if val, ok := p.attempt(pg, step); ok {
			return val, true
		}
	}
	return "", false
}

// attempt runs one strategy. No match is not an error, just a fall
// through to the next step.
func (p *Pipeline) attempt(pg *page, s Step) (string, bool) {
	switch {
	case len(s.JSONLD) > 0:
		for _, obj := range pg.jsonLD() {
			if val, ok := jsonLDKey(obj, s.JSONLD); ok {
				return val, true
			}
		}
	case len(s.JSONLDPath) > 0:
		for _, obj := range pg.jsonLD() {
			if val, ok := jsonLDPath(obj, s.JSONLDPath); ok {
				return val, true
			}
		}
	case s.CSS != nil:
		return p.attemptCSS(pg, s.CSS)
	case s.Meta != nil:
		return attemptMeta(pg, s.Meta)
	case s.Label != nil:
		return attemptLabel(pg, s.Label)
	case s.RegexText != "":
		if re, ok := p.patterns[s.RegexText]; ok {
			if m := re.FindStringSubmatch(pg.visibleText()); m != nil {
				return captureOf(m), true
			}
		}
	}
	return "", false
}

func (p *Pipeline) attemptCSS(pg *page, css *CSSStep) (string, bool) {
	node := pg.doc.Find(css.Selector).First()
	if node.Length() == 0 {
		return "", false
	}

	if css.Attr != "" {
		val, exists := node.Attr(css.Attr)
		val = strings.TrimSpace(val)
		return val, exists && val != ""
	}

	text := strings.Join(strings.Fields(node.Text()), " ")
	if text == "" {
		return "", false
	}
	if css.TextPattern != "" {
		re, ok := p.patterns[css.TextPattern]
		if !ok {
			return "", false
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return captureOf(m), true
	}
	return text, true
}

func attemptMeta(pg *page, meta *MetaStep) (string, bool) {
	sel := fmt.Sprintf(`meta[property=%q]`, meta.Property)
	content, exists := pg.doc.Find(sel).First().Attr("content")
	if !exists {
		return "", false
	}
	if meta.StripSuffix != "" {
		if i := strings.Index(content, meta.StripSuffix); i >= 0 {
			content = content[:i]
		}
	}
	content = strings.TrimSpace(content)
	return content, content != ""
}

func attemptLabel(pg *page, label *LabelStep) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(label.Label))
	matched := false

	pg.doc.Find(label.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(strings.Join(strings.Fields(s.Text()), " "))
		if label.Substring {
			matched = strings.Contains(text, want)
		} else {
			matched = text == want
		}
		return !matched
	})

	if matched {
		if label.Value != "" {
			return label.Value, true
		}
		return "true", true
	}
	if label.MissValue != "" {
		return label.MissValue, true
	}
	return "", false
}

// extractList collects one value per repeated element, preserving order
// and dropping duplicates after the first occurrence.
func extractList(pg *page, l ListSpec) []string {
	scope := pg.doc.Selection
	if l.Container != "" {
		scope = pg.doc.Find(l.Container).First()
		if scope.Length() == 0 {
			return nil
		}
	}

	var items []string
	seen := make(map[string]struct{})

	scope.Find(l.Selector).Each(func(_ int, s *goquery.Selection) {
		var val string
		if l.Attr != "" {
			val, _ = s.Attr(l.Attr)
			val = strings.TrimSpace(val)
		} else {
			val = strings.Join(strings.Fields(s.Text()), " ")
		}
		if val == "" {
			return
		}
		if _, dup := seen[val]; dup {
			return
		}
		seen[val] = struct{}{}
		items = append(items, val)
	})

	return items
}

func captureOf(m []string) string {
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}
