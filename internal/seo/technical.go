package seo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

// Finding is one scored issue or warning with its impact and suggested fix.
type Finding struct {
	Issue  string `json:"issue"`
	Impact string `json:"impact"`
	Fix    string `json:"fix"`
}

// Impact levels used for score deductions.
const (
	ImpactCritical = "CRITICAL"
	ImpactHigh     = "HIGH"
	ImpactMedium   = "MEDIUM"
	ImpactLow      = "LOW"
)

// HreflangTag is one alternate-language link on a page.
type HreflangTag struct {
	Hreflang string `json:"hreflang"`
	Href     string `json:"href"`
}

// TechnicalResult is the outcome of technical analysis for one URL.
type TechnicalResult struct {
	URL              string        `json:"url"`
	StatusCode       int           `json:"status_code"`
	RedirectChain    []string      `json:"redirect_chain"`
	RedirectCount    int           `json:"redirect_count"`
	IsHTTPS          bool          `json:"is_https"`
	CanonicalURL     string        `json:"canonical_url,omitempty"`
	CanonicalMatches bool          `json:"canonical_matches"`
	RobotsTxtExists  bool          `json:"robots_txt_exists"`
	RobotsTxtIssues  []string      `json:"robots_txt_issues,omitempty"`
	SitemapExists    bool          `json:"sitemap_exists"`
	SitemapInRobots  bool          `json:"sitemap_in_robots"`
	MetaRobots       string        `json:"meta_robots,omitempty"`
	IsIndexable      bool          `json:"is_indexable"`
	HreflangPresent  bool          `json:"hreflang_present"`
	HreflangTags     []HreflangTag `json:"hreflang_tags,omitempty"`
	PageSizeBytes    int           `json:"page_size_bytes"`
	PageSizeKB       float64       `json:"page_size_kb"`
	TTFBMs           float64       `json:"ttfb_ms"`
	LoadTimeMs       float64       `json:"load_time_ms"`
	MobileViewport   bool          `json:"mobile_viewport"`
	Issues           []Finding     `json:"issues"`
	Warnings         []Finding     `json:"warnings"`
	Passed           []string      `json:"passed"`
	Score            float64       `json:"score"`
}

// TechnicalAnalyzer checks status codes, redirects, HTTPS, canonicals,
// robots.txt, sitemap presence, page weight, and TTFB for a URL.
type TechnicalAnalyzer struct {
	client *httpclient.Client
}

// NewTechnicalAnalyzer builds a TechnicalAnalyzer sharing the given client.
func NewTechnicalAnalyzer(client *httpclient.Client) *TechnicalAnalyzer {
	if client == nil {
		client = httpclient.New(15 * time.Second)
	}
	return &TechnicalAnalyzer{client: client}
}

// Analyze runs the full technical audit against one URL. The redirect chain
// is followed manually, capped at 10 hops.
func (a *TechnicalAnalyzer) Analyze(ctx context.Context, pageURL string) TechnicalResult {
	result := TechnicalResult{
		URL:              pageURL,
		CanonicalMatches: true,
		IsIndexable:      true,
		RedirectChain:    []string{},
		Issues:           []Finding{},
		Warnings:         []Finding{},
		Passed:           []string{},
	}

	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		result.Issues = append(result.Issues, Finding{
			Issue:  "Failed to fetch page",
			Impact: ImpactCritical,
			Fix:    "Check if site is accessible",
		})
		result.Score = impactScore(result.Issues, result.Warnings)
		return result
	}
	base := parsed.Scheme + "://" + parsed.Host

	result.IsHTTPS = parsed.Scheme == "https"
	if result.IsHTTPS {
		result.Passed = append(result.Passed, "Site uses HTTPS")
	} else {
		result.Issues = append(result.Issues, Finding{
			Issue:  "Site not using HTTPS",
			Impact: ImpactHigh,
			Fix:    "Install SSL certificate and redirect HTTP to HTTPS",
		})
	}

	start := time.Now()
	resp, err := a.client.GetNoRedirect(ctx, pageURL)
	result.TTFBMs = float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		result.Issues = append(result.Issues, Finding{
			Issue:  "Failed to fetch page",
			Impact: ImpactCritical,
			Fix:    "Check if site is accessible",
		})
		result.Score = impactScore(result.Issues, result.Warnings)
		return result
	}

	resp = a.followRedirects(ctx, pageURL, resp, &result)

	result.StatusCode = resp.StatusCode
	result.LoadTimeMs = float64(time.Since(start).Microseconds()) / 1000
	result.PageSizeBytes = len(resp.Body)
	result.PageSizeKB = float64(result.PageSizeBytes) / 1024

	if result.RedirectCount > 2 {
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Long redirect chain (%d redirects)", result.RedirectCount),
			Impact: ImpactMedium,
			Fix:    "Reduce redirect chain to 1-2 hops maximum",
		})
	} else if result.RedirectCount == 0 {
		result.Passed = append(result.Passed, "No unnecessary redirects")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err == nil {
		a.checkPage(doc, pageURL, &result)
	}

	a.checkRobotsTxt(ctx, base, &result)
	a.checkSitemap(ctx, base, &result)

	switch {
	case result.PageSizeBytes > 3*1024*1024:
		result.Issues = append(result.Issues, Finding{
			Issue:  fmt.Sprintf("Page size too large (%.0f KB)", result.PageSizeKB),
			Impact: ImpactHigh,
			Fix:    "Optimize images and reduce page size",
		})
	case result.PageSizeBytes > 1024*1024:
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Page size is large (%.0f KB)", result.PageSizeKB),
			Impact: ImpactMedium,
			Fix:    "Consider optimizing page resources",
		})
	default:
		result.Passed = append(result.Passed, fmt.Sprintf("Page size OK (%.0f KB)", result.PageSizeKB))
	}

	switch {
	case result.TTFBMs > 1000:
		result.Issues = append(result.Issues, Finding{
			Issue:  fmt.Sprintf("Slow TTFB (%.0fms)", result.TTFBMs),
			Impact: ImpactHigh,
			Fix:    "Optimize server response time, use caching",
		})
	case result.TTFBMs > 500:
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("TTFB could be better (%.0fms)", result.TTFBMs),
			Impact: ImpactMedium,
			Fix:    "Consider server-side caching",
		})
	default:
		result.Passed = append(result.Passed, fmt.Sprintf("Good TTFB (%.0fms)", result.TTFBMs))
	}

	result.Score = impactScore(result.Issues, result.Warnings)
	return result
}

// followRedirects walks the redirect chain manually so each hop is recorded,
// then refetches the original URL with redirects enabled for the final body.
func (a *TechnicalAnalyzer) followRedirects(ctx context.Context, pageURL string, resp *httpclient.Response, result *TechnicalResult) *httpclient.Response {
	current := resp
	currentURL := pageURL

	for current.IsRedirect() && len(result.RedirectChain) < 10 {
		result.RedirectChain = append(result.RedirectChain, currentURL)
		location := current.Header.Get("Location")
		if location == "" {
			break
		}

		base, err := url.Parse(currentURL)
		if err != nil {
			break
		}
		ref, err := url.Parse(location)
		if err != nil {
			break
		}
		currentURL = base.ResolveReference(ref).String()

		next, err := a.client.GetNoRedirect(ctx, currentURL)
		if err != nil {
			break
		}
		current = next
	}

	result.RedirectCount = len(result.RedirectChain)
	if result.RedirectCount > 0 {
		if final, err := a.client.Get(ctx, pageURL); err == nil {
			return final
		}
	}
	return current
}

func (a *TechnicalAnalyzer) checkPage(doc *goquery.Document, pageURL string, result *TechnicalResult) {
	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && canonical != "" {
		result.CanonicalURL = canonical
		result.CanonicalMatches = urlsMatch(pageURL, canonical)
		if result.CanonicalMatches {
			result.Passed = append(result.Passed, "Canonical URL properly set")
		} else {
			result.Warnings = append(result.Warnings, Finding{
				Issue:  "Canonical URL differs from page URL",
				Impact: ImpactMedium,
				Fix:    "Canonical points to: " + canonical,
			})
		}
	} else {
		result.Warnings = append(result.Warnings, Finding{
			Issue:  "No canonical URL specified",
			Impact: ImpactMedium,
			Fix:    `Add <link rel="canonical" href="..."> tag`,
		})
	}

	if robots, ok := doc.Find(`meta[name="robots"]`).Attr("content"); ok {
		result.MetaRobots = robots
		if strings.Contains(strings.ToLower(robots), "noindex") {
			result.IsIndexable = false
			result.Warnings = append(result.Warnings, Finding{
				Issue:  "Page has noindex directive",
				Impact: ImpactHigh,
				Fix:    "Remove noindex if page should be indexed",
			})
		}
	} else {
		result.Passed = append(result.Passed, "No blocking meta robots")
	}

	doc.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, s *goquery.Selection) {
		result.HreflangTags = append(result.HreflangTags, HreflangTag{
			Hreflang: s.AttrOr("hreflang", ""),
			Href:     s.AttrOr("href", ""),
		})
	})
	if len(result.HreflangTags) > 0 {
		result.HreflangPresent = true
		result.Passed = append(result.Passed, fmt.Sprintf("Hreflang tags present (%d languages)", len(result.HreflangTags)))
	}

	if doc.Find(`meta[name="viewport"]`).Length() > 0 {
		result.MobileViewport = true
		result.Passed = append(result.Passed, "Mobile viewport meta tag present")
	} else {
		result.Issues = append(result.Issues, Finding{
			Issue:  "Missing viewport meta tag",
			Impact: ImpactHigh,
			Fix:    `Add <meta name="viewport" content="width=device-width, initial-scale=1">`,
		})
	}
}

func (a *TechnicalAnalyzer) checkRobotsTxt(ctx context.Context, base string, result *TechnicalResult) {
	resp, err := a.client.Get(ctx, base+"/robots.txt")
	if err != nil || resp.StatusCode != 200 {
		result.Warnings = append(result.Warnings, Finding{
			Issue:  "robots.txt not found",
			Impact: ImpactLow,
			Fix:    "Create robots.txt file",
		})
		return
	}

	result.RobotsTxtExists = true
	content := resp.Text()

	if strings.Contains(content, "Disallow: /") && !strings.Contains(content, "Allow:") {
		result.RobotsTxtIssues = append(result.RobotsTxtIssues, "robots.txt may be blocking entire site")
		result.Warnings = append(result.Warnings, Finding{
			Issue:  "robots.txt may be blocking entire site",
			Impact: ImpactCritical,
			Fix:    "Review Disallow directives in robots.txt",
		})
	}
	if strings.Contains(strings.ToLower(content), "sitemap:") {
		result.SitemapInRobots = true
	}
	result.Passed = append(result.Passed, "robots.txt exists")
}

func (a *TechnicalAnalyzer) checkSitemap(ctx context.Context, base string, result *TechnicalResult) {
	resp, err := a.client.Get(ctx, base+"/sitemap.xml")
	if err != nil || resp.StatusCode != 200 {
		result.Warnings = append(result.Warnings, Finding{
			Issue:  "sitemap.xml not found",
			Impact: ImpactMedium,
			Fix:    "Create XML sitemap and submit to search engines",
		})
		return
	}

	result.SitemapExists = true
	result.Passed = append(result.Passed, "sitemap.xml exists")
	if !result.SitemapInRobots {
		result.Warnings = append(result.Warnings, Finding{
			Issue:  "Sitemap not referenced in robots.txt",
			Impact: ImpactLow,
			Fix:    "Add Sitemap: directive to robots.txt",
		})
	}
}

// urlsMatch reports whether two URLs point at the same host and path,
// ignoring trailing slashes.
func urlsMatch(a, b string) bool {
	ua, err1 := url.Parse(a)
	ub, err2 := url.Parse(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return ua.Host == ub.Host && strings.TrimRight(ua.Path, "/") == strings.TrimRight(ub.Path, "/")
}

// impactScore converts findings into a 0-100 score. Issues cost 25/15/10/5
// points by impact, warnings 10/5/2.
func impactScore(issues, warnings []Finding) float64 {
	score := 100.0

	for _, issue := range issues {
		switch issue.Impact {
		case ImpactCritical:
			score -= 25
		case ImpactHigh:
			score -= 15
		case ImpactMedium:
			score -= 10
		default:
			score -= 5
		}
	}
	for _, warning := range warnings {
		switch warning.Impact {
		case ImpactHigh:
			score -= 10
		case ImpactMedium:
			score -= 5
		default:
			score -= 2
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// DuplicatePage is one fetched page's title and description, used for
// duplicate detection across a site sample.
type DuplicatePage struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DuplicateGroup is a title or description shared by more than one URL.
type DuplicateGroup struct {
	Value string   `json:"value"`
	URLs  []string `json:"urls"`
	Count int      `json:"count"`
}

// DuplicateResult reports duplicate titles and meta descriptions across URLs.
type DuplicateResult struct {
	Pages                 []DuplicatePage  `json:"pages"`
	DuplicateTitles       []DuplicateGroup `json:"duplicate_titles"`
	DuplicateDescriptions []DuplicateGroup `json:"duplicate_descriptions"`
	Issues                []Finding        `json:"issues"`
}

// AnalyzeDuplicates fetches up to 20 URLs and reports duplicated titles and
// meta descriptions. Group order follows first appearance.
func (a *TechnicalAnalyzer) AnalyzeDuplicates(ctx context.Context, urls []string) DuplicateResult {
	result := DuplicateResult{
		Pages:                 []DuplicatePage{},
		DuplicateTitles:       []DuplicateGroup{},
		DuplicateDescriptions: []DuplicateGroup{},
		Issues:                []Finding{},
	}

	if len(urls) > 20 {
		urls = urls[:20]
	}

	titles := make(map[string][]string)
	descriptions := make(map[string][]string)
	var titleOrder, descOrder []string

	for _, u := range urls {
		resp, err := a.client.Get(ctx, u)
		if err != nil || resp.StatusCode != 200 {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
		if err != nil {
			continue
		}

		title := strings.TrimSpace(doc.Find("title").First().Text())
		description := strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))

		result.Pages = append(result.Pages, DuplicatePage{URL: u, Title: title, Description: description})

		if title != "" {
			if _, ok := titles[title]; !ok {
				titleOrder = append(titleOrder, title)
			}
			titles[title] = append(titles[title], u)
		}
		if description != "" {
			if _, ok := descriptions[description]; !ok {
				descOrder = append(descOrder, description)
			}
			descriptions[description] = append(descriptions[description], u)
		}
	}

	for _, title := range titleOrder {
		if group := titles[title]; len(group) > 1 {
			result.DuplicateTitles = append(result.DuplicateTitles, DuplicateGroup{
				Value: title,
				URLs:  group,
				Count: len(group),
			})
		}
	}
	for _, desc := range descOrder {
		if group := descriptions[desc]; len(group) > 1 {
			value := desc
			if len(value) > 100 {
				value = value[:100] + "..."
			}
			result.DuplicateDescriptions = append(result.DuplicateDescriptions, DuplicateGroup{
				Value: value,
				URLs:  group,
				Count: len(group),
			})
		}
	}

	if len(result.DuplicateTitles) > 0 {
		result.Issues = append(result.Issues, Finding{
			Issue:  fmt.Sprintf("%d duplicate title(s) found", len(result.DuplicateTitles)),
			Impact: ImpactMedium,
			Fix:    "Create unique titles for each page",
		})
	}
	if len(result.DuplicateDescriptions) > 0 {
		result.Issues = append(result.Issues, Finding{
			Issue:  fmt.Sprintf("%d duplicate description(s) found", len(result.DuplicateDescriptions)),
			Impact: ImpactMedium,
			Fix:    "Create unique meta descriptions for each page",
		})
	}

	return result
}
