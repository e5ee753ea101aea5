package discovery

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

func newSitemapServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *SitemapDiscovery) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, NewSitemapDiscovery(httpclient.New(5*time.Second), 0, 0)
}

func TestDiscoverSitemapFromRobots(t *testing.T) {
	var server *httptest.Server
	server, d := newSitemapServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprintf(w, "User-agent: *\nSitemap: %s/custom-sitemap.xml\n", server.URL)
		case "/custom-sitemap.xml":
			fmt.Fprint(w, `<?xml version="1.0"?>
				<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
					<url><loc>https://example.com/page-1</loc><lastmod>2024-01-15</lastmod><priority>0.8</priority></url>
					<url><loc>https://example.com/page-2</loc></url>
				</urlset>`)
		default:
			http.NotFound(w, r)
		}
	})

	result := d.Discover(context.Background(), server.URL)

	if !result.Found {
		t.Fatal("expected sitemap to be found")
	}
	if result.TotalURLs != 2 {
		t.Fatalf("expected 2 URLs, got %d", result.TotalURLs)
	}
	if result.URLs[0].Loc != "https://example.com/page-1" {
		t.Errorf("unexpected first URL %q", result.URLs[0].Loc)
	}
	if result.URLs[0].LastMod != "2024-01-15" {
		t.Errorf("unexpected lastmod %q", result.URLs[0].LastMod)
	}
	if result.URLs[0].Priority == nil || *result.URLs[0].Priority != 0.8 {
		t.Errorf("unexpected priority %v", result.URLs[0].Priority)
	}
}

func TestDiscoverSitemapIndexRecursion(t *testing.T) {
	var server *httptest.Server
	server, d := newSitemapServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
				<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
					<sitemap><loc>%[1]s/sitemap-a.xml</loc></sitemap>
					<sitemap><loc>%[1]s/sitemap-b.xml</loc></sitemap>
					<sitemap><loc>%[1]s/sitemap-c.xml</loc></sitemap>
				</sitemapindex>`, server.URL)
		case "/sitemap-a.xml", "/sitemap-b.xml", "/sitemap-c.xml":
			name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/sitemap-"), ".xml")
			fmt.Fprint(w, `<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
			for i := 0; i < 10; i++ {
				fmt.Fprintf(w, "<url><loc>https://example.com/%s/page-%d</loc></url>", name, i)
			}
			fmt.Fprint(w, `</urlset>`)
		default:
			http.NotFound(w, r)
		}
	})

	result := d.Discover(context.Background(), server.URL)

	if !result.Found {
		t.Fatal("expected sitemaps to be found")
	}
	if result.TotalURLs != 30 {
		t.Errorf("expected 30 URLs from 3 child sitemaps, got %d", result.TotalURLs)
	}
	// index + 3 children
	if len(result.SitemapURLs) != 4 {
		t.Errorf("expected 4 processed sitemaps, got %d", len(result.SitemapURLs))
	}
}

func TestDiscoverGzippedSitemap(t *testing.T) {
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	gz.Write([]byte(`<?xml version="1.0"?>
		<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
			<url><loc>https://example.com/zipped</loc></url>
		</urlset>`))
	gz.Close()

	d := NewSitemapDiscovery(httpclient.New(5*time.Second), 0, 0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap.xml" {
			w.Write(compressed.Bytes())
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	result := d.Discover(context.Background(), server.URL)

	if !result.Found {
		t.Fatal("expected gzipped sitemap to be found")
	}
	if result.TotalURLs != 1 || result.URLs[0].Loc != "https://example.com/zipped" {
		t.Errorf("unexpected URLs %+v", result.URLs)
	}
}

func TestDiscoverNoSitemap(t *testing.T) {
	server, d := newSitemapServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	result := d.Discover(context.Background(), server.URL)

	if result.Found {
		t.Error("expected no sitemap")
	}
	if len(result.Warnings) == 0 || result.Warnings[0] != "No sitemap found at common locations" {
		t.Errorf("expected missing-sitemap warning, got %v", result.Warnings)
	}
}

func TestDiscoverURLCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
		for i := 0; i < 20; i++ {
			fmt.Fprintf(w, "<url><loc>https://example.com/page-%d</loc></url>", i)
		}
		fmt.Fprint(w, `</urlset>`)
	}))
	defer server.Close()

	d := NewSitemapDiscovery(httpclient.New(5*time.Second), 5, 0)
	result := d.Discover(context.Background(), server.URL)

	if result.TotalURLs != 5 {
		t.Errorf("expected URL cap of 5, got %d", result.TotalURLs)
	}
}

func TestURLsMatching(t *testing.T) {
	result := SitemapResult{URLs: []SitemapURL{
		{Loc: "https://example.com/blog/one"},
		{Loc: "https://example.com/shop/two"},
		{Loc: "https://example.com/BLOG/three"},
	}}

	matched, err := URLsMatching(result, "/blog/")
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 2 {
		t.Errorf("expected 2 case-insensitive matches, got %d", len(matched))
	}

	if _, err := URLsMatching(result, "("); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
