// Package extract pulls article and product records out of individual pages,
// preferring JSON-LD structured data and falling back to HTML heuristics.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDBlocks returns every JSON-LD object embedded in the document, with
// @graph arrays and top-level arrays flattened. Malformed blocks are skipped.
func jsonLDBlocks(doc *goquery.Document) []map[string]any {
	var blocks []map[string]any

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}
		blocks = append(blocks, flattenJSONLD(data)...)
	})

	return blocks
}

func flattenJSONLD(data any) []map[string]any {
	switch v := data.(type) {
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			var out []map[string]any
			for _, item := range graph {
				if m, ok := item.(map[string]any); ok {
					out = append(out, m)
				}
			}
			return out
		}
		return []map[string]any{v}
	case []any:
		var out []map[string]any
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// schemaType returns the @type of a JSON-LD object, taking the first element
// when the type is an array.
func schemaType(block map[string]any) string {
	switch t := block["@type"].(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// stringField returns a top-level string field, or "" when absent or not a string.
func stringField(block map[string]any, key string) string {
	if s, ok := block[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// nameOf extracts a name from a value that may be a string, an object with a
// name field, or an array of either.
func nameOf(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return stringField(v, "name")
	case []any:
		if len(v) > 0 {
			return nameOf(v[0])
		}
	}
	return ""
}

// urlOf extracts a URL from a value that may be a string, an ImageObject, or
// an array of either.
func urlOf(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return stringField(v, "url")
	case []any:
		if len(v) > 0 {
			return urlOf(v[0])
		}
	}
	return ""
}

// firstObject unwraps a value that may be an object or an array of objects.
func firstObject(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}
