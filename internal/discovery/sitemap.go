// Package discovery locates the content inventory a site publishes on
// purpose: XML sitemaps and RSS/Atom feeds.
package discovery

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

// Default limits for sitemap processing.
const (
	DefaultMaxSitemapURLs = 1000
	DefaultMaxSitemaps    = 20
)

// commonSitemapPaths are conventional sitemap locations checked in addition
// to robots.txt hints.
var commonSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemaps.xml",
	"/sitemap1.xml",
	"/sitemap-posts.xml",
	"/sitemap-pages.xml",
	"/post-sitemap.xml",
	"/page-sitemap.xml",
	"/wp-sitemap.xml",
}

// SitemapURL is one <url> entry from a urlset document.
type SitemapURL struct {
	Loc        string   `json:"url"`
	LastMod    string   `json:"lastmod,omitempty"`
	ChangeFreq string   `json:"changefreq,omitempty"`
	Priority   *float64 `json:"priority,omitempty"`
}

// SitemapResult is the outcome of sitemap discovery for one site.
type SitemapResult struct {
	Found       bool         `json:"found"`
	SitemapURLs []string     `json:"sitemap_urls"`
	URLs        []SitemapURL `json:"urls"`
	TotalURLs   int          `json:"total_urls"`
	Errors      []string     `json:"errors,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// SitemapDiscovery fetches and expands sitemaps, recursing through sitemap
// index documents up to a processing cap.
type SitemapDiscovery struct {
	client      *httpclient.Client
	maxURLs     int
	maxSitemaps int
}

// NewSitemapDiscovery builds a SitemapDiscovery. Zero or negative limits fall
// back to the defaults.
func NewSitemapDiscovery(client *httpclient.Client, maxURLs, maxSitemaps int) *SitemapDiscovery {
	if client == nil {
		client = httpclient.New(15 * time.Second)
	}
	if maxURLs <= 0 {
		maxURLs = DefaultMaxSitemapURLs
	}
	if maxSitemaps <= 0 {
		maxSitemaps = DefaultMaxSitemaps
	}
	return &SitemapDiscovery{client: client, maxURLs: maxURLs, maxSitemaps: maxSitemaps}
}

type sitemapIndexXML struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlsetXML struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc        string `xml:"loc"`
		LastMod    string `xml:"lastmod"`
		ChangeFreq string `xml:"changefreq"`
		Priority   string `xml:"priority"`
	} `xml:"url"`
}

// Discover collects page URLs from the site's sitemaps. Candidate sitemaps
// come from robots.txt Sitemap: directives plus conventional paths; index
// documents enqueue their children. Fetch and parse failures skip the
// candidate without retrying.
func (d *SitemapDiscovery) Discover(ctx context.Context, baseURL string) SitemapResult {
	result := SitemapResult{}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		result.Warnings = append(result.Warnings, "invalid base URL")
		return result
	}
	base := parsed.Scheme + "://" + parsed.Host

	queue := d.sitemapsFromRobots(ctx, base)
	for _, path := range commonSitemapPaths {
		candidate := base + path
		if !contains(queue, candidate) {
			queue = append(queue, candidate)
		}
	}

	processed := make(map[string]struct{})
	for len(queue) > 0 && len(processed) < d.maxSitemaps {
		sitemapURL := queue[0]
		queue = queue[1:]

		if _, ok := processed[sitemapURL]; ok {
			continue
		}
		processed[sitemapURL] = struct{}{}

		body := d.fetchSitemap(ctx, sitemapURL)
		if body == nil {
			continue
		}

		if children, ok := parseSitemapIndex(body); ok {
			result.Found = true
			result.SitemapURLs = append(result.SitemapURLs, sitemapURL)
			for _, child := range children {
				if _, seen := processed[child]; !seen {
					queue = append(queue, child)
				}
			}
			continue
		}

		urls, ok := parseURLSet(body)
		if !ok {
			continue
		}
		result.Found = true
		result.SitemapURLs = append(result.SitemapURLs, sitemapURL)
		for _, u := range urls {
			if len(result.URLs) >= d.maxURLs {
				break
			}
			result.URLs = append(result.URLs, u)
		}
	}

	result.TotalURLs = len(result.URLs)
	if !result.Found {
		result.Warnings = append(result.Warnings, "No sitemap found at common locations")
	}
	return result
}

// sitemapsFromRobots extracts Sitemap: directive values from robots.txt.
func (d *SitemapDiscovery) sitemapsFromRobots(ctx context.Context, base string) []string {
	var sitemaps []string

	resp, err := d.client.Get(ctx, base+"/robots.txt")
	if err != nil || resp.StatusCode != 200 {
		return sitemaps
	}

	for _, line := range strings.Split(resp.Text(), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if value := strings.TrimSpace(parts[1]); value != "" {
			sitemaps = append(sitemaps, value)
		}
	}
	return sitemaps
}

// fetchSitemap returns the sitemap body, transparently gunzipping compressed
// documents, or nil when the fetch fails.
func (d *SitemapDiscovery) fetchSitemap(ctx context.Context, sitemapURL string) []byte {
	resp, err := d.client.Get(ctx, sitemapURL)
	if err != nil || resp.StatusCode != 200 {
		return nil
	}

	body := resp.Body
	if len(body) > 2 && body[0] == 0x1f && body[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil
		}
		defer gz.Close()
		decompressed, err := io.ReadAll(io.LimitReader(gz, 16*1024*1024))
		if err != nil {
			return nil
		}
		body = decompressed
	}
	return body
}

func parseSitemapIndex(body []byte) ([]string, bool) {
	var index sitemapIndexXML
	if err := xml.Unmarshal(body, &index); err != nil {
		return nil, false
	}
	children := make([]string, 0, len(index.Sitemaps))
	for _, sm := range index.Sitemaps {
		if loc := strings.TrimSpace(sm.Loc); loc != "" {
			children = append(children, loc)
		}
	}
	return children, true
}

func parseURLSet(body []byte) ([]SitemapURL, bool) {
	var urlset urlsetXML
	if err := xml.Unmarshal(body, &urlset); err != nil {
		return nil, false
	}
	urls := make([]SitemapURL, 0, len(urlset.URLs))
	for _, entry := range urlset.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		u := SitemapURL{
			Loc:        loc,
			LastMod:    strings.TrimSpace(entry.LastMod),
			ChangeFreq: strings.TrimSpace(entry.ChangeFreq),
		}
		if p := strings.TrimSpace(entry.Priority); p != "" {
			if value, err := strconv.ParseFloat(p, 64); err == nil {
				u.Priority = &value
			}
		}
		urls = append(urls, u)
	}
	return urls, true
}

// URLsMatching filters discovered URLs by a regular expression.
func URLsMatching(result SitemapResult, pattern string) ([]SitemapURL, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	var matched []SitemapURL
	for _, u := range result.URLs {
		if re.MatchString(u.Loc) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
