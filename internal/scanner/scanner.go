// Package scanner orchestrates discovery, sampling, extraction, and scoring
// into a single site scan.
package scanner

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vuminhngo/sitescout-cli/internal/discovery"
	"github.com/vuminhngo/sitescout-cli/internal/extract"
	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
	"github.com/vuminhngo/sitescout-cli/internal/sampler"
	"github.com/vuminhngo/sitescout-cli/internal/seo"
	sharedErrors "github.com/vuminhngo/sitescout-cli/internal/shared/errors"
)

// Default per-scan extraction limits.
const (
	DefaultMaxArticles = 20
	DefaultMaxProducts = 20
)

// Options configure a Scanner.
type Options struct {
	MaxArticles int
	MaxProducts int
	Timeout     time.Duration
	Concurrency int
	RateLimit   int
}

// DiscoveryResult groups the content sources found for a site.
type DiscoveryResult struct {
	Sitemap discovery.SitemapResult `json:"sitemap"`
	RSS     discovery.FeedResult    `json:"rss"`
	Sampled sampler.Result          `json:"sampled_urls"`
}

// ContentSummary counts what discovery turned up.
type ContentSummary struct {
	Sitemaps    int `json:"sitemaps"`
	SitemapURLs int `json:"sitemap_urls"`
	RSSFeeds    int `json:"rss_feeds"`
	RSSItems    int `json:"rss_items"`
}

// ArticleSummary condenses the article extraction result.
type ArticleSummary struct {
	Total       int `json:"total"`
	WithSchema  int `json:"with_schema"`
	Indexable   int `json:"indexable"`
	ThinContent int `json:"thin_content"`
}

// ProductSummary condenses the product extraction result.
type ProductSummary struct {
	Total            int `json:"total"`
	WithSchema       int `json:"with_schema"`
	WithPrice        int `json:"with_price"`
	WithAvailability int `json:"with_availability"`
}

// Scores carries the three component scores.
type Scores struct {
	TechnicalSEO   float64 `json:"technical_seo"`
	OnPageSEO      float64 `json:"onpage_seo"`
	SchemaCoverage float64 `json:"schema_coverage"`
}

// IssueCounts carries per-area issue totals.
type IssueCounts struct {
	Technical int `json:"technical"`
	OnPage    int `json:"onpage"`
	Schema    int `json:"schema"`
}

// Summary is the condensed view of a full scan, including the weighted
// overall score.
type Summary struct {
	ContentFound ContentSummary `json:"content_found"`
	Articles     ArticleSummary `json:"articles"`
	Products     ProductSummary `json:"products"`
	Scores       Scores         `json:"scores"`
	IssuesCount  IssueCounts    `json:"issues_count"`
	OverallScore int            `json:"overall_score"`
}

// Result is the complete output of a full scan.
type Result struct {
	URL              string                     `json:"url"`
	ScannedAt        time.Time                  `json:"scanned_at"`
	Discovery        DiscoveryResult            `json:"discovery"`
	Articles         extract.ArticleResult      `json:"articles"`
	Products         extract.ProductResult      `json:"products"`
	SchemaValidation seo.SchemaValidationResult `json:"schema_validation"`
	TechnicalSEO     seo.TechnicalResult        `json:"technical_seo"`
	OnPageSEO        seo.OnPageResult           `json:"onpage_seo"`
	Summary          Summary                    `json:"summary"`
}

// QuickResult is the output of a homepage-only scan.
type QuickResult struct {
	URL       string                     `json:"url"`
	ScannedAt time.Time                  `json:"scanned_at"`
	Schema    seo.SchemaValidationResult `json:"schema"`
	Technical seo.TechnicalResult        `json:"technical"`
	OnPage    seo.OnPageResult           `json:"onpage"`
	Summary   QuickSummary               `json:"summary"`
}

// QuickSummary carries the scores from a quick scan.
type QuickSummary struct {
	TechnicalScore float64 `json:"technical_score"`
	OnPageScore    float64 `json:"onpage_score"`
	SchemaScore    float64 `json:"schema_score"`
	TotalIssues    int     `json:"total_issues"`
}

// Scanner runs the six scan phases against a site: sitemap discovery, feed
// discovery, URL sampling, extraction, schema validation, and SEO scoring.
type Scanner struct {
	logger *zap.SugaredLogger

	client           *httpclient.Client
	sitemapDiscovery *discovery.SitemapDiscovery
	rssDiscovery     *discovery.RSSDiscovery
	urlSampler       *sampler.Sampler
	articleExtractor *extract.ArticleExtractor
	productExtractor *extract.ProductExtractor
	schemaValidator  *seo.SchemaValidator
	technical        *seo.TechnicalAnalyzer
	onpage           *seo.OnPageAnalyzer

	maxArticles int
	maxProducts int
}

// New builds a Scanner with all sub-scanners sharing one HTTP client.
func New(logger *zap.SugaredLogger, opts Options) *Scanner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = DefaultMaxArticles
	}
	if opts.MaxProducts <= 0 {
		opts.MaxProducts = DefaultMaxProducts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	client := httpclient.New(opts.Timeout)
	runner := extract.DefaultRunner()
	if opts.Concurrency > 0 {
		runner.Concurrency = opts.Concurrency
	}
	if opts.RateLimit > 0 {
		runner.RateLimit = opts.RateLimit
	}

	return &Scanner{
		logger:           logger,
		client:           client,
		sitemapDiscovery: discovery.NewSitemapDiscovery(client, 0, 0),
		rssDiscovery:     discovery.NewRSSDiscovery(client, 0),
		urlSampler:       sampler.New(client, 0),
		articleExtractor: extract.NewArticleExtractor(client, runner),
		productExtractor: extract.NewProductExtractor(client, runner),
		schemaValidator:  seo.NewSchemaValidator(),
		technical:        seo.NewTechnicalAnalyzer(client),
		onpage:           seo.NewOnPageAnalyzer(client),
		maxArticles:      opts.MaxArticles,
		maxProducts:      opts.MaxProducts,
	}
}

// Scan runs the full content and SEO scan against a site.
func (s *Scanner) Scan(ctx context.Context, url string) (*Result, error) {
	result := &Result{URL: url, ScannedAt: time.Now().UTC()}

	s.logger.Infow("starting content scan", "url", url)

	homepageHTML := ""
	if resp, err := s.client.Get(ctx, url); err == nil && resp.StatusCode == 200 {
		homepageHTML = resp.Text()
	}

	s.logger.Infow("phase 1: content discovery", "url", url)
	result.Discovery.Sitemap = s.sitemapDiscovery.Discover(ctx, url)
	result.Discovery.RSS = s.rssDiscovery.Discover(ctx, url, homepageHTML)

	var sitemapURLs, rssURLs []string
	if result.Discovery.Sitemap.Found {
		for _, u := range result.Discovery.Sitemap.URLs {
			sitemapURLs = append(sitemapURLs, u.Loc)
		}
	}
	if result.Discovery.RSS.Found {
		for _, item := range result.Discovery.RSS.Items {
			rssURLs = append(rssURLs, item.URL)
		}
	}
	result.Discovery.Sampled = s.urlSampler.Sample(ctx, url, sitemapURLs, rssURLs)

	s.logger.Infow("phase 2: article extraction",
		"candidates", len(result.Discovery.Sampled.Articles))
	articleURLs := sampledURLs(result.Discovery.Sampled.Articles, s.maxArticles)
	if len(articleURLs) > 0 {
		result.Articles = s.articleExtractor.ExtractFromURLs(ctx, articleURLs, s.maxArticles)
	} else {
		s.logger.Debugw("no article URLs found to analyze", "url", url)
	}

	s.logger.Infow("phase 3: product extraction",
		"candidates", len(result.Discovery.Sampled.Products))
	productURLs := sampledURLs(result.Discovery.Sampled.Products, s.maxProducts)
	if len(productURLs) > 0 {
		result.Products = s.productExtractor.ExtractFromURLs(ctx, productURLs, s.maxProducts)
	} else {
		s.logger.Debugw("no product URLs found to analyze", "url", url)
	}

	s.logger.Infow("phase 4: schema validation", "url", url)
	if homepageHTML != "" {
		result.SchemaValidation = s.schemaValidator.Validate(homepageHTML)
	}

	s.logger.Infow("phase 5: technical analysis", "url", url)
	result.TechnicalSEO = s.technical.Analyze(ctx, url)

	s.logger.Infow("phase 6: on-page analysis", "url", url)
	result.OnPageSEO = s.onpage.Analyze(ctx, url, homepageHTML)

	result.Summary = buildSummary(result)

	s.logger.Infow("content scan completed",
		"url", url, "overall_score", result.Summary.OverallScore)
	return result, nil
}

// QuickScan analyzes the homepage only: schema, technical, and on-page.
func (s *Scanner) QuickScan(ctx context.Context, url string) (*QuickResult, error) {
	s.logger.Infow("quick scan", "url", url)

	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, sharedErrors.ErrFetchFailed
	}
	html := resp.Text()

	result := &QuickResult{URL: url, ScannedAt: time.Now().UTC()}
	result.Schema = s.schemaValidator.Validate(html)
	result.Technical = s.technical.Analyze(ctx, url)
	result.OnPage = s.onpage.Analyze(ctx, url, html)

	result.Summary = QuickSummary{
		TechnicalScore: result.Technical.Score,
		OnPageScore:    result.OnPage.Score,
		SchemaScore:    result.Schema.CoverageScore,
		TotalIssues:    len(result.Technical.Issues) + len(result.OnPage.Issues) + len(result.Schema.Errors),
	}
	return result, nil
}

// ScanArticles discovers content sources and extracts articles only.
func (s *Scanner) ScanArticles(ctx context.Context, url string) (extract.ArticleResult, error) {
	s.logger.Infow("scanning articles", "url", url)

	homepageHTML := ""
	if resp, err := s.client.Get(ctx, url); err == nil && resp.StatusCode == 200 {
		homepageHTML = resp.Text()
	}

	sitemapResult := s.sitemapDiscovery.Discover(ctx, url)
	rssResult := s.rssDiscovery.Discover(ctx, url, homepageHTML)

	var sitemapURLs, rssURLs []string
	if sitemapResult.Found {
		for _, u := range sitemapResult.URLs {
			sitemapURLs = append(sitemapURLs, u.Loc)
		}
	}
	if rssResult.Found {
		for _, item := range rssResult.Items {
			rssURLs = append(rssURLs, item.URL)
		}
	}

	sampled := s.urlSampler.Sample(ctx, url, sitemapURLs, rssURLs)
	articleURLs := sampledURLs(sampled.Articles, s.maxArticles)
	if len(articleURLs) == 0 {
		return extract.ArticleResult{Articles: []extract.ArticleData{}}, nil
	}
	return s.articleExtractor.ExtractFromURLs(ctx, articleURLs, s.maxArticles), nil
}

// ScanProducts discovers sitemap URLs and extracts products only.
func (s *Scanner) ScanProducts(ctx context.Context, url string) (extract.ProductResult, error) {
	s.logger.Infow("scanning products", "url", url)

	sitemapResult := s.sitemapDiscovery.Discover(ctx, url)

	var sitemapURLs []string
	if sitemapResult.Found {
		for _, u := range sitemapResult.URLs {
			sitemapURLs = append(sitemapURLs, u.Loc)
		}
	}

	sampled := s.urlSampler.Sample(ctx, url, sitemapURLs, nil)
	productURLs := sampledURLs(sampled.Products, s.maxProducts)
	if len(productURLs) == 0 {
		return extract.ProductResult{Products: []extract.ProductData{}}, nil
	}
	return s.productExtractor.ExtractFromURLs(ctx, productURLs, s.maxProducts), nil
}

// buildSummary condenses a full scan and computes the weighted overall score:
// technical 35%, on-page 35%, schema coverage 30%.
func buildSummary(result *Result) Summary {
	summary := Summary{
		ContentFound: ContentSummary{
			Sitemaps:    len(result.Discovery.Sitemap.SitemapURLs),
			SitemapURLs: result.Discovery.Sitemap.TotalURLs,
			RSSFeeds:    len(result.Discovery.RSS.FeedURLs),
			RSSItems:    result.Discovery.RSS.TotalItems,
		},
		Articles: ArticleSummary{
			Total:       result.Articles.TotalFound,
			WithSchema:  result.Articles.WithSchema,
			Indexable:   result.Articles.IndexableCount,
			ThinContent: result.Articles.ThinContentCount,
		},
		Products: ProductSummary{
			Total:            result.Products.TotalFound,
			WithSchema:       result.Products.WithSchema,
			WithPrice:        result.Products.WithPrice,
			WithAvailability: result.Products.WithAvailability,
		},
		Scores: Scores{
			TechnicalSEO:   result.TechnicalSEO.Score,
			OnPageSEO:      result.OnPageSEO.Score,
			SchemaCoverage: result.SchemaValidation.CoverageScore,
		},
		IssuesCount: IssueCounts{
			Technical: len(result.TechnicalSEO.Issues),
			OnPage:    len(result.OnPageSEO.Issues),
			Schema:    len(result.SchemaValidation.Errors),
		},
	}

	summary.OverallScore = int(math.Round(
		summary.Scores.TechnicalSEO*0.35 +
			summary.Scores.OnPageSEO*0.35 +
			summary.Scores.SchemaCoverage*0.30))
	return summary
}

func sampledURLs(urls []sampler.SampledURL, limit int) []string {
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, u.URL)
	}
	return out
}
