package seo

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// schemaBlocks returns every JSON-LD object in the document, flattening
// @graph arrays and top-level arrays. Malformed blocks are skipped.
func schemaBlocks(doc *goquery.Document) []map[string]any {
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

		switch v := data.(type) {
		case map[string]any:
			if graph, ok := v["@graph"].([]any); ok {
				for _, item := range graph {
					if m, ok := item.(map[string]any); ok {
						blocks = append(blocks, m)
					}
				}
				return
			}
			blocks = append(blocks, v)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					blocks = append(blocks, m)
				}
			}
		}
	})

	return blocks
}
