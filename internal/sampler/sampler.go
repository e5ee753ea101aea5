// Package sampler classifies discovered URLs by content type and picks a
// bounded sample per type so downstream extractors never crawl a whole site.
package sampler

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

// URLType is the content classification of a URL.
type URLType string

const (
	TypeHomepage URLType = "homepage"
	TypeArticle  URLType = "article"
	TypeProduct  URLType = "product"
	TypeCategory URLType = "category"
	TypePage     URLType = "page"
	TypeOther    URLType = "other"
)

// Default sampling limits.
const (
	DefaultMaxPerType = 10
	DefaultMaxCrawl   = 50
)

var articlePatterns = compilePatterns([]string{
	`/blog/`,
	`/news/`,
	`/article/`,
	`/post/`,
	`/\d{4}/\d{2}/`,
	`/\d{4}/\d{2}/\d{2}/`,
	`-news`,
	`-article`,
	`/p/`,
})

var productPatterns = compilePatterns([]string{
	`/product/`,
	`/products/`,
	`/shop/`,
	`/store/`,
	`/item/`,
	`/p/`,
	`/pd/`,
	`/buy/`,
	`/goods/`,
	`-p-\d+`,
	`/catalog/`,
})

var categoryPatterns = compilePatterns([]string{
	`/category/`,
	`/categories/`,
	`/cat/`,
	`/c/`,
	`/collection/`,
	`/collections/`,
	`/tag/`,
	`/tags/`,
	`/topic/`,
	`/archive/`,
})

var pagePatterns = compilePatterns([]string{
	`/about`,
	`/contact`,
	`/faq`,
	`/help`,
	`/terms`,
	`/privacy`,
	`/policy`,
	`/page/`,
})

// skipPatterns force a URL to TypeOther regardless of any other match.
var skipPatterns = compilePatterns([]string{
	`/cdn-cgi/`,
	`/wp-content/`,
	`/wp-includes/`,
	`/wp-admin/`,
	`/admin/`,
	`/login`,
	`/logout`,
	`/register`,
	`/cart`,
	`/checkout`,
	`/account`,
	`\.(jpg|jpeg|png|gif|svg|css|js|pdf|zip|woff|woff2)$`,
	`/feed/`,
	`/rss`,
	`/sitemap`,
	`#`,
	`\?`,
})

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile("(?i)" + p)
	}
	return compiled
}

// SampledURL is one classified URL chosen for analysis.
type SampledURL struct {
	URL      string  `json:"url"`
	Type     URLType `json:"type"`
	Depth    int     `json:"depth"`
	Source   string  `json:"source"` // sitemap, rss, crawl
	Priority float64 `json:"priority"`
}

// Result groups sampled URLs by type, each list capped at the per-type limit.
type Result struct {
	Homepage   string       `json:"homepage"`
	Articles   []SampledURL `json:"articles"`
	Products   []SampledURL `json:"products"`
	Categories []SampledURL `json:"categories"`
	Pages      []SampledURL `json:"pages"`
	AllURLs    []SampledURL `json:"-"`
	TotalURLs  int          `json:"total_urls"`
}

// Sampler classifies and samples URLs. Classification is a pure function of
// the URL string; skip patterns win over everything, then product > article >
// category > page.
type Sampler struct {
	client     *httpclient.Client
	maxPerType int
}

// New builds a Sampler. A non-positive maxPerType falls back to the default.
func New(client *httpclient.Client, maxPerType int) *Sampler {
	if client == nil {
		client = httpclient.New(10 * time.Second)
	}
	if maxPerType <= 0 {
		maxPerType = DefaultMaxPerType
	}
	return &Sampler{client: client, maxPerType: maxPerType}
}

// Classify returns the content type for a URL based on the pattern tables.
func Classify(rawURL string) URLType {
	for _, re := range skipPatterns {
		if re.MatchString(rawURL) {
			return TypeOther
		}
	}
	for _, re := range productPatterns {
		if re.MatchString(rawURL) {
			return TypeProduct
		}
	}
	for _, re := range articlePatterns {
		if re.MatchString(rawURL) {
			return TypeArticle
		}
	}
	for _, re := range categoryPatterns {
		if re.MatchString(rawURL) {
			return TypeCategory
		}
	}
	for _, re := range pagePatterns {
		if re.MatchString(rawURL) {
			return TypePage
		}
	}
	return TypeOther
}

// Sample merges sitemap and RSS URLs, tops up from a shallow homepage crawl
// when quotas are unmet, and returns at most maxPerType URLs per type.
// Sitemap URLs are classified by pattern; RSS URLs are always articles.
func (s *Sampler) Sample(ctx context.Context, baseURL string, sitemapURLs, rssURLs []string) Result {
	result := Result{Homepage: baseURL}
	seen := make(map[string]struct{})

	for _, u := range sitemapURLs {
		if len(result.AllURLs) >= s.maxPerType*5 {
			break
		}
		s.classifyAndAdd(u, &result, seen, "sitemap", "")
	}

	for _, u := range rssURLs {
		if len(result.Articles) >= s.maxPerType {
			break
		}
		s.classifyAndAdd(u, &result, seen, "rss", TypeArticle)
	}

	if len(result.Articles) < s.maxPerType || len(result.Products) < s.maxPerType {
		for _, u := range s.crawlForURLs(ctx, baseURL, DefaultMaxCrawl, seen) {
			s.classifyAndAdd(u, &result, seen, "crawl", "")
		}
	}

	sortByPriority(result.Articles)
	sortByPriority(result.Products)
	sortByPriority(result.Categories)
	sortByPriority(result.Pages)

	result.Articles = capList(result.Articles, s.maxPerType)
	result.Products = capList(result.Products, s.maxPerType)
	result.Categories = capList(result.Categories, s.maxPerType)
	result.Pages = capList(result.Pages, s.maxPerType)
	result.TotalURLs = len(result.AllURLs)

	return result
}

func (s *Sampler) classifyAndAdd(rawURL string, result *Result, seen map[string]struct{}, source string, forced URLType) {
	if _, ok := seen[rawURL]; ok {
		return
	}
	seen[rawURL] = struct{}{}

	urlType := forced
	if urlType == "" {
		urlType = Classify(rawURL)
	}
	if urlType == TypeOther {
		return
	}

	sampled := SampledURL{
		URL:      rawURL,
		Type:     urlType,
		Source:   source,
		Priority: 0.5,
	}
	result.AllURLs = append(result.AllURLs, sampled)

	switch urlType {
	case TypeArticle:
		result.Articles = append(result.Articles, sampled)
	case TypeProduct:
		result.Products = append(result.Products, sampled)
	case TypeCategory:
		result.Categories = append(result.Categories, sampled)
	case TypePage:
		result.Pages = append(result.Pages, sampled)
	}
}

// crawlForURLs does a one-hop crawl of the homepage's outbound links,
// keeping same-domain URLs normalized to scheme://host/path.
func (s *Sampler) crawlForURLs(ctx context.Context, baseURL string, maxURLs int, seen map[string]struct{}) []string {
	var discovered []string

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return discovered
	}

	resp, err := s.client.Get(ctx, baseURL)
	if err != nil || resp.StatusCode != 200 {
		return discovered
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err != nil {
		return discovered
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(discovered) >= maxURLs {
			return false
		}

		href := sel.AttrOr("href", "")
		if href == "" || strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "#") {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			return true
		}

		normalized := strings.TrimRight(resolved.Scheme+"://"+resolved.Host+resolved.Path, "/")
		if _, ok := seen[normalized]; ok {
			return true
		}
		if contains(discovered, normalized) {
			return true
		}
		discovered = append(discovered, normalized)
		return true
	})

	return discovered
}

// ByType returns the sampled list for a type, optionally truncated.
func ByType(result Result, urlType URLType, count int) []SampledURL {
	var urls []SampledURL
	switch urlType {
	case TypeArticle:
		urls = result.Articles
	case TypeProduct:
		urls = result.Products
	case TypeCategory:
		urls = result.Categories
	case TypePage:
		urls = result.Pages
	default:
		urls = result.AllURLs
	}
	if count > 0 && count < len(urls) {
		return urls[:count]
	}
	return urls
}

// sortByPriority is stable so equal-priority URLs keep source order.
func sortByPriority(urls []SampledURL) {
	sort.SliceStable(urls, func(i, j int) bool {
		return urls[i].Priority > urls[j].Priority
	})
}

func capList(urls []SampledURL, max int) []SampledURL {
	if len(urls) > max {
		return urls[:max]
	}
	return urls
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
