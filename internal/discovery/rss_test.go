package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Example Blog</title>
    <description>Posts about things</description>
    <item>
      <title>First Post</title>
      <link>https://example.com/blog/first</link>
      <description>The first post</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
      <dc:creator>Jo Writer</dc:creator>
      <category>go</category>
      <category>testing</category>
    </item>
    <item>
      <title>Second Post</title>
      <link>https://example.com/blog/second</link>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <subtitle>Atom posts</subtitle>
  <entry>
    <title>Atom Entry</title>
    <link rel="alternate" href="https://example.com/atom/entry"/>
    <link rel="self" href="https://example.com/atom/entry.xml"/>
    <published>2024-03-10T08:00:00Z</published>
    <author><name>Sam Author</name></author>
    <summary>An entry</summary>
    <category term="news"/>
  </entry>
</feed>`

func TestDiscoverRSSFromLinkTag(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><head>
				<link rel="alternate" type="application/rss+xml" href="%s/custom-feed"/>
			</head><body></body></html>`, server.URL)
		case "/custom-feed":
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, sampleRSS)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	d := NewRSSDiscovery(httpclient.New(5*time.Second), 0)
	result := d.Discover(context.Background(), server.URL, "")

	if !result.Found {
		t.Fatal("expected feed to be found")
	}
	if result.FeedType != "rss" {
		t.Errorf("feed type %q, want rss", result.FeedType)
	}
	if result.Title != "Example Blog" {
		t.Errorf("feed title %q", result.Title)
	}
	if result.TotalItems != 2 {
		t.Fatalf("expected 2 items, got %d", result.TotalItems)
	}

	first := result.Items[0]
	if first.Title != "First Post" {
		t.Errorf("item title %q", first.Title)
	}
	if first.Author != "Jo Writer" {
		t.Errorf("expected dc:creator author, got %q", first.Author)
	}
	if first.Published != "2006-01-02T15:04:05Z" {
		t.Errorf("expected normalized RFC 3339 date, got %q", first.Published)
	}
	if len(first.Categories) != 2 {
		t.Errorf("expected 2 categories, got %v", first.Categories)
	}
}

func TestDiscoverAtomAtCommonPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/atom.xml" {
			w.Header().Set("Content-Type", "application/atom+xml")
			fmt.Fprint(w, sampleAtom)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewRSSDiscovery(httpclient.New(5*time.Second), 0)
	result := d.Discover(context.Background(), server.URL, "<html></html>")

	if !result.Found {
		t.Fatal("expected atom feed to be found")
	}
	if result.FeedType != "atom" {
		t.Errorf("feed type %q, want atom", result.FeedType)
	}
	if result.TotalItems != 1 {
		t.Fatalf("expected 1 item, got %d", result.TotalItems)
	}
	item := result.Items[0]
	if item.URL != "https://example.com/atom/entry" {
		t.Errorf("expected alternate link, got %q", item.URL)
	}
	if item.Author != "Sam Author" {
		t.Errorf("item author %q", item.Author)
	}
}

func TestDiscoverFeedItemCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Big</title>`)
		for i := 0; i < 20; i++ {
			fmt.Fprintf(w, "<item><title>Post %d</title><link>https://example.com/p-%d</link></item>", i, i)
		}
		fmt.Fprint(w, `</channel></rss>`)
	}))
	defer server.Close()

	d := NewRSSDiscovery(httpclient.New(5*time.Second), 5)
	result := d.Discover(context.Background(), server.URL, "<html></html>")

	if result.TotalItems != 5 {
		t.Errorf("expected item cap of 5, got %d", result.TotalItems)
	}
}

func TestDiscoverNoFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewRSSDiscovery(httpclient.New(5*time.Second), 0)
	result := d.Discover(context.Background(), server.URL, "<html></html>")

	if result.Found {
		t.Error("expected no feed")
	}
	if len(result.Warnings) == 0 || result.Warnings[0] != "No RSS or Atom feed found at common locations" {
		t.Errorf("expected missing-feed warning, got %v", result.Warnings)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mon, 02 Jan 2006 15:04:05 GMT", "2006-01-02T15:04:05Z"},
		{"2024-03-10T08:00:00Z", "2024-03-10T08:00:00Z"},
		{"not a date at all !!!", "not a date at all !!!"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeDate(tt.in); got != tt.want {
			t.Errorf("normalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"ascii at limit", "hello", 5, "hello"},
		{"ascii cut", "hello world", 5, "hello"},
		{"multibyte mid-rune", "café", 4, "caf"},
		{"multibyte whole rune kept", "café", 5, "café"},
		{"cjk mid-rune", "日本語", 4, "日"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
		})
	}
}
