package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDObjects parses every embedded JSON-LD block in the document and
// returns the contained objects. Top-level arrays and @graph collections
// are flattened; malformed blocks are skipped.
func jsonLDObjects(doc *goquery.Document) []map[string]any {
	var objs []map[string]any

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}

		switch v := data.(type) {
		case map[string]any:
			objs = append(objs, v)
			if graph, ok := v["@graph"].([]any); ok {
				objs = append(objs, objectsOf(graph)...)
			}
		case []any:
			objs = append(objs, objectsOf(v)...)
		}
	})

	return objs
}

func objectsOf(items []any) []map[string]any {
	var objs []map[string]any
	for _, it := range items {
		if obj, ok := it.(map[string]any); ok {
			objs = append(objs, obj)
		}
	}
	return objs
}

// jsonLDKey tries each key name on the object and coerces the first
// present value to a string.
func jsonLDKey(obj map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			if s, ok := coerceJSONValue(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// jsonLDPath resolves a nested key path inside the object.
func jsonLDPath(obj map[string]any, path []string) (string, bool) {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[key]
		if !ok {
			return "", false
		}
	}
	return coerceJSONValue(cur)
}

// coerceJSONValue turns a JSON-LD value into a flat string: scalars
// directly, entity objects via their name, lists joined with ", ".
func coerceJSONValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case float64:
		// encoding/json's number type. Render integers without a
		// trailing .0 so counts stay spreadsheet-friendly.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case map[string]any:
		if name, ok := val["name"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name), true
		}
		return "", false
	case []any:
		var parts []string
		for _, it := range val {
			if s, ok := coerceJSONValue(it); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		return "", false
	}
}
