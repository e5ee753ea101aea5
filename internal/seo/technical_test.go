package seo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

func newTechnicalAnalyzer() *TechnicalAnalyzer {
	return NewTechnicalAnalyzer(httpclient.New(5 * time.Second))
}

const healthyPage = `<html><head>
	<title>Healthy Page</title>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<link rel="canonical" href="%s/">
	<link rel="alternate" hreflang="en" href="%s/">
	<link rel="alternate" hreflang="de" href="%s/de/">
</head><body><p>ok</p></body></html>`

func TestAnalyzeHealthySite(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprintf(w, healthyPage, server.URL, server.URL, server.URL)
		case "/robots.txt":
			fmt.Fprintf(w, "User-agent: *\nAllow: /\nSitemap: %s/sitemap.xml\n", server.URL)
		case "/sitemap.xml":
			fmt.Fprint(w, `<?xml version="1.0"?><urlset></urlset>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	result := newTechnicalAnalyzer().Analyze(context.Background(), server.URL+"/")

	// httptest serves plain HTTP, so that issue is always present.
	if result.IsHTTPS {
		t.Error("expected non-HTTPS for httptest server")
	}
	if !findingPresent(result.Issues, "Site not using HTTPS") {
		t.Errorf("expected HTTPS issue, got %+v", result.Issues)
	}
	if result.StatusCode != 200 {
		t.Errorf("status %d", result.StatusCode)
	}
	if result.RedirectCount != 0 {
		t.Errorf("redirects %d", result.RedirectCount)
	}
	if !result.CanonicalMatches {
		t.Error("expected matching canonical")
	}
	if !result.RobotsTxtExists || !result.SitemapExists || !result.SitemapInRobots {
		t.Errorf("robots=%v sitemap=%v inRobots=%v", result.RobotsTxtExists, result.SitemapExists, result.SitemapInRobots)
	}
	if !result.MobileViewport {
		t.Error("expected viewport meta to be detected")
	}
	if !result.HreflangPresent || len(result.HreflangTags) != 2 {
		t.Errorf("hreflang tags %+v", result.HreflangTags)
	}
	if !result.IsIndexable {
		t.Error("expected indexable")
	}
}

func TestAnalyzeRedirectChain(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/hop-1", http.StatusMovedPermanently)
		case "/hop-1":
			http.Redirect(w, r, "/hop-2", http.StatusFound)
		case "/hop-2":
			http.Redirect(w, r, "/final", http.StatusFound)
		case "/final":
			fmt.Fprint(w, `<html><head><title>Final</title><meta name="viewport" content="w"></head><body>done</body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	result := newTechnicalAnalyzer().Analyze(context.Background(), server.URL+"/start")

	if result.RedirectCount != 3 {
		t.Fatalf("redirect count %d, want 3", result.RedirectCount)
	}
	if result.RedirectChain[0] != server.URL+"/start" {
		t.Errorf("chain start %q", result.RedirectChain[0])
	}
	if result.StatusCode != 200 {
		t.Errorf("final status %d", result.StatusCode)
	}
	if !findingPresent(result.Warnings, "Long redirect chain (3 redirects)") {
		t.Errorf("expected chain warning, got %+v", result.Warnings)
	}
}

func TestAnalyzeNoindexAndBlockingRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><head><title>T</title><meta name="robots" content="noindex"></head><body></body></html>`)
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	result := newTechnicalAnalyzer().Analyze(context.Background(), server.URL+"/")

	if result.IsIndexable {
		t.Error("expected noindex to flip indexability")
	}
	if result.MetaRobots != "noindex" {
		t.Errorf("meta robots %q", result.MetaRobots)
	}
	if len(result.RobotsTxtIssues) != 1 || result.RobotsTxtIssues[0] != "robots.txt may be blocking entire site" {
		t.Errorf("robots issues %v", result.RobotsTxtIssues)
	}
	if !findingPresent(result.Warnings, "robots.txt may be blocking entire site") {
		t.Errorf("expected blocking-robots warning, got %+v", result.Warnings)
	}
}

func TestAnalyzeUnreachable(t *testing.T) {
	result := newTechnicalAnalyzer().Analyze(context.Background(), "https://test.invalid/page")

	if !findingPresent(result.Issues, "Failed to fetch page") {
		t.Errorf("expected fetch issue, got %+v", result.Issues)
	}
	if result.Score >= 100 {
		t.Errorf("score %v", result.Score)
	}
}

func TestURLsMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"https://example.com/page", "https://example.com/page/", true},
		{"https://example.com/page", "http://example.com/page", true},
		{"https://example.com/page", "https://example.com/other", false},
		{"https://example.com/page", "https://other.example/page", false},
	}
	for _, tt := range tests {
		if got := urlsMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("urlsMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestImpactScore(t *testing.T) {
	tests := []struct {
		name     string
		issues   []Finding
		warnings []Finding
		want     float64
	}{
		{"clean", nil, nil, 100},
		{"critical issue", []Finding{{Impact: ImpactCritical}}, nil, 75},
		{"high issue", []Finding{{Impact: ImpactHigh}}, nil, 85},
		{"medium issue", []Finding{{Impact: ImpactMedium}}, nil, 90},
		{"low issue", []Finding{{Impact: ImpactLow}}, nil, 95},
		{"high warning", nil, []Finding{{Impact: ImpactHigh}}, 90},
		{"medium warning", nil, []Finding{{Impact: ImpactMedium}}, 95},
		{"low warning", nil, []Finding{{Impact: ImpactLow}}, 98},
		{"floor at zero", []Finding{
			{Impact: ImpactCritical}, {Impact: ImpactCritical},
			{Impact: ImpactCritical}, {Impact: ImpactCritical},
			{Impact: ImpactCritical},
		}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := impactScore(tt.issues, tt.warnings); got != tt.want {
				t.Errorf("impactScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeDuplicates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a", "/b":
			fmt.Fprint(w, `<html><head><title>Shared Title</title><meta name="description" content="shared description"></head><body></body></html>`)
		case "/c":
			fmt.Fprint(w, `<html><head><title>Unique Title</title><meta name="description" content="unique description"></head><body></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	result := newTechnicalAnalyzer().AnalyzeDuplicates(context.Background(),
		[]string{server.URL + "/a", server.URL + "/b", server.URL + "/c"})

	if len(result.Pages) != 3 {
		t.Fatalf("pages %d", len(result.Pages))
	}
	if len(result.DuplicateTitles) != 1 || result.DuplicateTitles[0].Count != 2 {
		t.Fatalf("duplicate titles %+v", result.DuplicateTitles)
	}
	if result.DuplicateTitles[0].Value != "Shared Title" {
		t.Errorf("duplicate value %q", result.DuplicateTitles[0].Value)
	}
	if len(result.DuplicateDescriptions) != 1 {
		t.Errorf("duplicate descriptions %+v", result.DuplicateDescriptions)
	}
	if !findingPresent(result.Issues, "1 duplicate title(s) found") {
		t.Errorf("expected duplicate-title issue, got %+v", result.Issues)
	}
}

func findingPresent(findings []Finding, issue string) bool {
	for _, f := range findings {
		if f.Issue == issue {
			return true
		}
	}
	return false
}
