package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

// DefaultMaxFeedItems caps how many items accumulate across discovered feeds.
const DefaultMaxFeedItems = 100

// commonFeedPaths are conventional feed locations checked in addition to
// <link rel=alternate> hints from the homepage.
var commonFeedPaths = []string{
	"/feed",
	"/feed/",
	"/rss",
	"/rss/",
	"/rss.xml",
	"/atom.xml",
	"/feed.xml",
	"/index.xml",
	"/feeds/posts/default",
	"/blog/feed",
	"/blog/rss",
	"/?feed=rss2",
	"/feed/rss/",
	"/feed/atom/",
}

// feedLinkTypes are MIME types on <link rel=alternate> tags that indicate a feed.
var feedLinkTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/rdf+xml",
	"application/xml",
	"text/xml",
}

// FeedItem is one entry parsed from an RSS or Atom feed.
type FeedItem struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Published  string   `json:"published,omitempty"`
	Author     string   `json:"author,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// FeedResult is the outcome of feed discovery for one site.
type FeedResult struct {
	Found       bool       `json:"found"`
	FeedURLs    []string   `json:"feed_urls"`
	FeedType    string     `json:"feed_type,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Items       []FeedItem `json:"items"`
	TotalItems  int        `json:"total_items"`
	Errors      []string   `json:"errors,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
}

// RSSDiscovery finds feed URLs from homepage link tags and common paths and
// parses RSS 2.0 and Atom documents.
type RSSDiscovery struct {
	client   *httpclient.Client
	maxItems int
}

// NewRSSDiscovery builds an RSSDiscovery. A non-positive maxItems falls back
// to the default.
func NewRSSDiscovery(client *httpclient.Client, maxItems int) *RSSDiscovery {
	if client == nil {
		client = httpclient.New(15 * time.Second)
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxFeedItems
	}
	return &RSSDiscovery{client: client, maxItems: maxItems}
}

// Discover finds and parses the site's feeds. html may carry already-fetched
// homepage HTML; when empty the homepage is fetched. Items accumulate across
// feeds until the cap is reached.
func (d *RSSDiscovery) Discover(ctx context.Context, baseURL, html string) FeedResult {
	result := FeedResult{}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		result.Warnings = append(result.Warnings, "invalid base URL")
		return result
	}
	base := parsed.Scheme + "://" + parsed.Host

	var candidates []string
	if html == "" {
		if resp, err := d.client.Get(ctx, baseURL); err == nil && resp.StatusCode == 200 {
			html = resp.Text()
		}
	}
	if html != "" {
		candidates = feedURLsFromHTML(html, base)
	}
	for _, path := range commonFeedPaths {
		candidate := base + path
		if !contains(candidates, candidate) {
			candidates = append(candidates, candidate)
		}
	}

	for _, feedURL := range candidates {
		if result.Found && len(result.Items) >= d.maxItems {
			break
		}

		feed := d.fetchAndParse(ctx, feedURL)
		if feed == nil {
			continue
		}

		result.Found = true
		result.FeedURLs = append(result.FeedURLs, feedURL)
		if result.Title == "" {
			result.Title = feed.title
		}
		if result.Description == "" {
			result.Description = feed.description
		}
		if result.FeedType == "" {
			result.FeedType = feed.feedType
		}
		for _, item := range feed.items {
			if len(result.Items) >= d.maxItems {
				break
			}
			result.Items = append(result.Items, item)
		}
	}

	result.TotalItems = len(result.Items)
	if !result.Found {
		result.Warnings = append(result.Warnings, "No RSS or Atom feed found at common locations")
	}
	return result
}

// feedURLsFromHTML extracts feed candidates from <link rel=alternate> tags.
func feedURLsFromHTML(html, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var feeds []string
	doc.Find("link[rel~='alternate']").Each(func(_ int, s *goquery.Selection) {
		linkType := strings.ToLower(s.AttrOr("type", ""))
		href := s.AttrOr("href", "")
		if href == "" {
			return
		}
		for _, ft := range feedLinkTypes {
			if strings.Contains(linkType, ft) {
				if ref, err := url.Parse(href); err == nil {
					resolved := baseURL.ResolveReference(ref).String()
					if !contains(feeds, resolved) {
						feeds = append(feeds, resolved)
					}
				}
				return
			}
		}
	})
	return feeds
}

type parsedFeed struct {
	feedType    string
	title       string
	description string
	items       []FeedItem
}

// fetchAndParse fetches a candidate URL, sniffs that it looks like a feed,
// and tries RSS then Atom parsing. Returns nil when the candidate is not a
// parseable feed.
func (d *RSSDiscovery) fetchAndParse(ctx context.Context, feedURL string) *parsedFeed {
	resp, err := d.client.Get(ctx, feedURL)
	if err != nil || resp.StatusCode != 200 {
		return nil
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "xml") && !strings.Contains(contentType, "rss") &&
		!strings.Contains(contentType, "atom") && !strings.Contains(contentType, "feed") {
		head := strings.ToLower(string(resp.Body[:min(len(resp.Body), 500)]))
		if !strings.Contains(head, "<rss") && !strings.Contains(head, "<feed") &&
			!strings.Contains(head, "<?xml") {
			return nil
		}
	}

	body := bytes.TrimPrefix(resp.Body, []byte{0xef, 0xbb, 0xbf})
	if feed := parseRSSFeed(body); feed != nil {
		return feed
	}
	return parseAtomFeed(body)
}

// RSS 2.0 document structure.
type rssXML struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title       string `xml:"title"`
		Description string `xml:"description"`
		Items       []struct {
			Title       string   `xml:"title"`
			Link        string   `xml:"link"`
			Description string   `xml:"description"`
			PubDate     string   `xml:"pubDate"`
			Author      string   `xml:"author"`
			Creator     string   `xml:"http://purl.org/dc/elements/1.1/ creator"`
			Categories  []string `xml:"category"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Atom document structure.
type atomXML struct {
	XMLName  xml.Name `xml:"feed"`
	Title    string   `xml:"title"`
	Subtitle string   `xml:"subtitle"`
	Entries  []struct {
		Title string `xml:"title"`
		Links []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
		Published string `xml:"published"`
		Updated   string `xml:"updated"`
		Author    struct {
			Name string `xml:"name"`
		} `xml:"author"`
		Summary    string   `xml:"summary"`
		Content    string   `xml:"content"`
		Categories []struct {
			Term string `xml:"term,attr"`
		} `xml:"category"`
	} `xml:"entry"`
}

func parseRSSFeed(body []byte) *parsedFeed {
	var root rssXML
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil
	}
	if root.Channel.Title == "" && len(root.Channel.Items) == 0 {
		return nil
	}

	feed := &parsedFeed{
		feedType:    "rss",
		title:       strings.TrimSpace(root.Channel.Title),
		description: strings.TrimSpace(root.Channel.Description),
	}
	for _, entry := range root.Channel.Items {
		item := FeedItem{
			Title:     firstNonEmpty(strings.TrimSpace(entry.Title), "No Title"),
			URL:       strings.TrimSpace(entry.Link),
			Published: normalizeDate(entry.PubDate),
			Author:    firstNonEmpty(strings.TrimSpace(entry.Author), strings.TrimSpace(entry.Creator)),
			Summary:   truncate(strings.TrimSpace(entry.Description), 500),
		}
		for _, cat := range entry.Categories {
			if cat = strings.TrimSpace(cat); cat != "" {
				item.Categories = append(item.Categories, cat)
			}
		}
		feed.items = append(feed.items, item)
	}
	return feed
}

func parseAtomFeed(body []byte) *parsedFeed {
	var root atomXML
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil
	}
	if root.Title == "" && len(root.Entries) == 0 {
		return nil
	}

	feed := &parsedFeed{
		feedType:    "atom",
		title:       strings.TrimSpace(root.Title),
		description: strings.TrimSpace(root.Subtitle),
	}
	for _, entry := range root.Entries {
		link := ""
		for _, l := range entry.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0].Href
		}

		item := FeedItem{
			Title:     firstNonEmpty(strings.TrimSpace(entry.Title), "No Title"),
			URL:       strings.TrimSpace(link),
			Published: normalizeDate(firstNonEmpty(entry.Published, entry.Updated)),
			Author:    strings.TrimSpace(entry.Author.Name),
			Summary:   truncate(strings.TrimSpace(firstNonEmpty(entry.Summary, entry.Content)), 500),
		}
		for _, cat := range entry.Categories {
			if term := strings.TrimSpace(cat.Term); term != "" {
				item.Categories = append(item.Categories, term)
			}
		}
		feed.items = append(feed.items, item)
	}
	return feed
}

// normalizeDate converts recognizable date strings to RFC 3339 and leaves
// everything else untouched.
func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := dateparse.ParseAny(value); err == nil {
		return t.Format(time.RFC3339)
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
