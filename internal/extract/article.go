package extract

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

// articleTypes are the JSON-LD @type values accepted as article schema.
var articleTypes = map[string]struct{}{
	"Article":            {},
	"NewsArticle":        {},
	"BlogPosting":        {},
	"TechArticle":        {},
	"ScholarlyArticle":   {},
	"SocialMediaPosting": {},
	"Report":             {},
	"WebPage":            {},
}

// MinWordCount is the thin-content threshold.
const MinWordCount = 300

var contentClassRe = regexp.MustCompile(`(?i)content|article|post|entry`)
var dateClassRe = regexp.MustCompile(`(?i)date|time|published`)

// ArticleData is the extraction record for one article URL. Built in a
// single pass and never mutated afterwards.
type ArticleData struct {
	Title                 string   `json:"title"`
	URL                   string   `json:"url"`
	DatePublished         string   `json:"date_published,omitempty"`
	DateModified          string   `json:"date_modified,omitempty"`
	Author                string   `json:"author,omitempty"`
	Summary               string   `json:"summary,omitempty"`
	Categories            []string `json:"categories,omitempty"`
	Tags                  []string `json:"tags,omitempty"`
	WordCount             int      `json:"word_count"`
	H1Count               int      `json:"h1_count"`
	H2Count               int      `json:"h2_count"`
	MetaTitle             string   `json:"meta_title,omitempty"`
	MetaDescription       string   `json:"meta_description,omitempty"`
	MetaDescriptionLength int      `json:"meta_description_length"`
	Canonical             string   `json:"canonical,omitempty"`
	Indexable             bool     `json:"indexable"`
	StatusCode            int      `json:"status_code"`
	HasSchema             bool     `json:"has_schema"`
	SchemaType            string   `json:"schema_type,omitempty"`
	ImageURL              string   `json:"image_url,omitempty"`
	ReadingTimeMinutes    int      `json:"reading_time_minutes"`
	Issues                []string `json:"issues"`
	Warnings              []string `json:"warnings"`
}

// ArticleResult aggregates article extraction across URLs.
type ArticleResult struct {
	TotalFound        int           `json:"total_found"`
	Articles          []ArticleData `json:"articles"`
	WithSchema        int           `json:"with_schema"`
	WithSchemaPercent float64       `json:"with_schema_percent"`
	IndexableCount    int           `json:"indexable_count"`
	IndexablePercent  float64       `json:"indexable_percent"`
	ThinContentCount  int           `json:"thin_content_count"`
	ThinPercent       float64       `json:"thin_content_percent"`
	MissingMetaCount  int           `json:"missing_meta_count"`
	Errors            []string      `json:"errors,omitempty"`
}

// ArticleExtractor extracts article records from URLs, trying JSON-LD first
// and filling gaps from HTML.
type ArticleExtractor struct {
	client *httpclient.Client
	runner Runner
}

// NewArticleExtractor builds an ArticleExtractor sharing the given client.
func NewArticleExtractor(client *httpclient.Client, runner Runner) *ArticleExtractor {
	if client == nil {
		client = httpclient.New(15 * time.Second)
	}
	return &ArticleExtractor{client: client, runner: runner}
}

// ExtractFromURLs extracts up to maxArticles records. Fetches fan out across
// the runner's worker pool; results keep input order. A URL whose extraction
// fails is dropped and recorded in Errors.
func (e *ArticleExtractor) ExtractFromURLs(ctx context.Context, urls []string, maxArticles int) ArticleResult {
	result := ArticleResult{}
	if maxArticles > 0 && len(urls) > maxArticles {
		urls = urls[:maxArticles]
	}

	slots := make([]*ArticleData, len(urls))
	errs := make([]string, len(urls))

	e.runner.Run(ctx, urls, func(ctx context.Context, i int, u string) {
		article, err := e.ExtractSingle(ctx, u)
		if err != nil {
			errs[i] = fmt.Sprintf("%s: %v", u, err)
			return
		}
		slots[i] = article
	})

	for i, article := range slots {
		if article == nil {
			if errs[i] != "" {
				result.Errors = append(result.Errors, errs[i])
			}
			continue
		}
		result.Articles = append(result.Articles, *article)
		if article.HasSchema {
			result.WithSchema++
		}
		if article.Indexable {
			result.IndexableCount++
		}
		if article.WordCount < MinWordCount {
			result.ThinContentCount++
		}
		if article.MetaDescription == "" {
			result.MissingMetaCount++
		}
	}

	result.TotalFound = len(result.Articles)
	if result.TotalFound > 0 {
		result.WithSchemaPercent = percent(result.WithSchema, result.TotalFound)
		result.IndexablePercent = percent(result.IndexableCount, result.TotalFound)
		result.ThinPercent = percent(result.ThinContentCount, result.TotalFound)
	}
	return result
}

// ExtractSingle extracts one article record. A non-200 response yields a
// non-indexable record; fetch or parse failures return an error.
func (e *ArticleExtractor) ExtractSingle(ctx context.Context, pageURL string) (*ArticleData, error) {
	resp, err := e.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	article := &ArticleData{
		URL:        pageURL,
		Indexable:  true,
		StatusCode: resp.StatusCode,
		Issues:     []string{},
		Warnings:   []string{},
	}

	if resp.StatusCode != 200 {
		article.Indexable = false
		article.Issues = append(article.Issues, fmt.Sprintf("Non-200 status code: %d", resp.StatusCode))
		return article, nil
	}

	html := resp.Text()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	if schema := articleFromJSONLD(doc); schema != nil {
		article.HasSchema = true
		article.SchemaType = schema.schemaType
		article.Title = schema.title
		article.DatePublished = schema.datePublished
		article.DateModified = schema.dateModified
		article.Author = schema.author
		article.ImageURL = schema.image
	}

	e.fillFromHTML(doc, article)
	e.fillFromReadability(html, pageURL, article)
	checkIndexability(doc, article)

	// Content analysis strips tags out of the document, so it runs last.
	article.H1Count = doc.Find("h1").Length()
	article.H2Count = doc.Find("h2").Length()
	article.WordCount = contentWordCount(doc)
	if article.WordCount == 0 && article.Summary != "" {
		article.WordCount = len(strings.Fields(article.Summary))
	}
	if article.WordCount > 0 {
		article.ReadingTimeMinutes = article.WordCount / 200
		if article.ReadingTimeMinutes < 1 {
			article.ReadingTimeMinutes = 1
		}
	}

	e.generateIssues(article)
	return article, nil
}

type articleSchema struct {
	schemaType    string
	title         string
	datePublished string
	dateModified  string
	author        string
	image         string
}

// articleFromJSONLD returns the first JSON-LD block with an article type.
// Blocks are not merged.
func articleFromJSONLD(doc *goquery.Document) *articleSchema {
	for _, block := range jsonLDBlocks(doc) {
		t := schemaType(block)
		if _, ok := articleTypes[t]; !ok {
			continue
		}
		title := stringField(block, "headline")
		if title == "" {
			title = stringField(block, "name")
		}
		return &articleSchema{
			schemaType:    t,
			title:         title,
			datePublished: stringField(block, "datePublished"),
			dateModified:  stringField(block, "dateModified"),
			author:        nameOf(block["author"]),
			image:         urlOf(block["image"]),
		}
	}
	return nil
}

// fillFromHTML fills any field JSON-LD left empty.
func (e *ArticleExtractor) fillFromHTML(doc *goquery.Document, article *ArticleData) {
	article.MetaTitle = strings.TrimSpace(doc.Find("title").First().Text())

	if article.Title == "" {
		article.Title = article.MetaTitle
		if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
			article.Title = h1
		}
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		article.MetaDescription = desc
		article.MetaDescriptionLength = len(desc)
	}

	article.Canonical = strings.TrimSpace(doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))

	if article.Author == "" {
		article.Author = strings.TrimSpace(doc.Find(`meta[name="author"]`).AttrOr("content", ""))
	}

	if keywords := doc.Find(`meta[name="keywords"]`).AttrOr("content", ""); keywords != "" {
		for _, k := range strings.Split(keywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				article.Tags = append(article.Tags, k)
			}
		}
	}

	if article.DatePublished == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			article.DatePublished = dt
		} else {
			doc.Find("span,p,div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if !dateClassRe.MatchString(s.AttrOr("class", "")) {
					return true
				}
				if text := strings.TrimSpace(s.Text()); text != "" {
					article.DatePublished = text
					return false
				}
				return true
			})
		}
	}
}

// fillFromReadability uses the readability distiller for byline and excerpt
// when the page exposes neither structured data nor meta tags.
func (e *ArticleExtractor) fillFromReadability(html, pageURL string, article *ArticleData) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	parser := readability.NewParser()
	distilled, err := parser.Parse(strings.NewReader(html), parsedURL)
	if err != nil {
		return
	}
	if article.Author == "" {
		article.Author = strings.TrimSpace(distilled.Byline)
	}
	if article.Summary == "" {
		article.Summary = strings.TrimSpace(distilled.Excerpt)
	}
	if article.ImageURL == "" {
		article.ImageURL = distilled.Image
	}
}

// contentWordCount counts words in the main content container, searched in
// the order article > main > content-class div > body, after stripping
// script/style/nav/footer/header/aside.
func contentWordCount(doc *goquery.Document) int {
	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find("main").First()
	}
	if container.Length() == 0 {
		doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if contentClassRe.MatchString(s.AttrOr("class", "")) {
				container = s
				return false
			}
			return true
		})
	}
	if container.Length() == 0 {
		container = doc.Find("body").First()
	}
	if container.Length() == 0 {
		return 0
	}

	container.Find("script,style,nav,footer,header,aside").Remove()
	return len(strings.Fields(container.Text()))
}

// checkIndexability flags noindex directives and mismatched canonicals.
func checkIndexability(doc *goquery.Document, article *ArticleData) {
	robots := strings.ToLower(doc.Find(`meta[name="robots"]`).AttrOr("content", ""))
	if strings.Contains(robots, "noindex") {
		article.Indexable = false
		article.Issues = append(article.Issues, "Page has noindex directive")
	}

	if article.Canonical != "" && article.Canonical != article.URL {
		canonical, err1 := url.Parse(article.Canonical)
		page, err2 := url.Parse(article.URL)
		if err1 == nil && err2 == nil && canonical.Path != page.Path {
			article.Warnings = append(article.Warnings, "Canonical points to different URL")
		}
	}
}

func (e *ArticleExtractor) generateIssues(article *ArticleData) {
	switch {
	case article.Title == "":
		article.Issues = append(article.Issues, "Missing title")
	case len(article.Title) < 30:
		article.Warnings = append(article.Warnings, "Title too short (< 30 chars)")
	case len(article.Title) > 60:
		article.Warnings = append(article.Warnings, "Title too long (> 60 chars)")
	}

	switch {
	case article.MetaDescription == "":
		article.Issues = append(article.Issues, "Missing meta description")
	case article.MetaDescriptionLength < 120:
		article.Warnings = append(article.Warnings, "Meta description too short (< 120 chars)")
	case article.MetaDescriptionLength > 160:
		article.Warnings = append(article.Warnings, "Meta description too long (> 160 chars)")
	}

	switch {
	case article.H1Count == 0:
		article.Issues = append(article.Issues, "Missing H1 tag")
	case article.H1Count > 1:
		article.Warnings = append(article.Warnings, fmt.Sprintf("Multiple H1 tags (%d)", article.H1Count))
	}

	if article.WordCount < MinWordCount {
		article.Warnings = append(article.Warnings, fmt.Sprintf("Thin content (%d words)", article.WordCount))
	}
	if !article.HasSchema {
		article.Warnings = append(article.Warnings, "No Article schema markup")
	}
	if article.DatePublished == "" {
		article.Warnings = append(article.Warnings, "Missing published date")
	}
	if article.Author == "" {
		article.Warnings = append(article.Warnings, "Missing author information")
	}
}

// ArticlesFromFeed builds partial article records from feed items without
// fetching the pages.
func ArticlesFromFeed(items []FeedItemRef) []ArticleData {
	articles := make([]ArticleData, 0, len(items))
	for _, item := range items {
		articles = append(articles, ArticleData{
			Title:         item.Title,
			URL:           item.URL,
			DatePublished: item.Published,
			Author:        item.Author,
			Categories:    item.Categories,
			Indexable:     true,
			Issues:        []string{},
			Warnings:      []string{},
		})
	}
	return articles
}

// FeedItemRef is the subset of a feed item the extractor consumes, kept
// local to avoid a dependency on the discovery package.
type FeedItemRef struct {
	Title      string
	URL        string
	Published  string
	Author     string
	Categories []string
}

func percent(part, total int) float64 {
	return float64(int(float64(part)/float64(total)*1000+0.5)) / 10
}
