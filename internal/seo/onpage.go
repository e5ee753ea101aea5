package seo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

// Optimal ranges for on-page elements.
const (
	TitleMin     = 30
	TitleMax     = 60
	DescMin      = 120
	DescMax      = 160
	MinWordCount = 300
)

// stopWords are dropped before comparing title and H1 overlap.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"is": {}, "are": {},
}

// OnPageResult is the outcome of on-page analysis for one URL.
type OnPageResult struct {
	URL string `json:"url"`

	Title        string `json:"title"`
	TitleLength  int    `json:"title_length"`
	TitleOptimal bool   `json:"title_optimal"`

	MetaDescription        string `json:"meta_description"`
	MetaDescriptionLength  int    `json:"meta_description_length"`
	MetaDescriptionOptimal bool   `json:"meta_description_optimal"`

	H1Count               int      `json:"h1_count"`
	H1Content             []string `json:"h1_content"`
	H1Optimal             bool     `json:"h1_optimal"`
	H2Count               int      `json:"h2_count"`
	H3Count               int      `json:"h3_count"`
	HeadingHierarchyValid bool     `json:"heading_hierarchy_valid"`

	WordCount          int     `json:"word_count"`
	ParagraphCount     int     `json:"paragraph_count"`
	AvgParagraphLength float64 `json:"avg_paragraph_length"`
	IsThinContent      bool    `json:"is_thin_content"`

	InternalLinksCount int `json:"internal_links_count"`
	ExternalLinksCount int `json:"external_links_count"`
	NofollowLinksCount int `json:"nofollow_links_count"`

	TotalImages        int     `json:"total_images"`
	ImagesWithAlt      int     `json:"images_with_alt"`
	ImagesMissingAlt   int     `json:"images_missing_alt"`
	AltCoveragePercent float64 `json:"alt_coverage_percent"`

	TitleInH1 bool `json:"title_in_h1"`

	Issues   []Finding `json:"issues"`
	Warnings []Finding `json:"warnings"`
	Passed   []string  `json:"passed"`
	Score    float64   `json:"score"`
}

// OnPageAnalyzer checks titles, meta descriptions, headings, content depth,
// links, and image alt coverage for a page.
type OnPageAnalyzer struct {
	client *httpclient.Client
}

// NewOnPageAnalyzer builds an OnPageAnalyzer sharing the given client.
func NewOnPageAnalyzer(client *httpclient.Client) *OnPageAnalyzer {
	if client == nil {
		client = httpclient.New(15 * time.Second)
	}
	return &OnPageAnalyzer{client: client}
}

// Analyze runs on-page analysis for one URL. html may carry already-fetched
// content; when empty the page is fetched.
func (a *OnPageAnalyzer) Analyze(ctx context.Context, pageURL, html string) OnPageResult {
	result := OnPageResult{
		URL:                   pageURL,
		HeadingHierarchyValid: true,
		H1Content:             []string{},
		Issues:                []Finding{},
		Warnings:              []Finding{},
		Passed:                []string{},
	}

	if html == "" {
		resp, err := a.client.Get(ctx, pageURL)
		if err != nil || resp.StatusCode != 200 {
			result.Issues = append(result.Issues, Finding{
				Issue:  "Failed to fetch page",
				Impact: ImpactCritical,
				Fix:    "Check if page is accessible",
			})
			result.Score = impactScore(result.Issues, result.Warnings)
			return result
		}
		html = resp.Text()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		result.Issues = append(result.Issues, Finding{
			Issue:  "Failed to fetch page",
			Impact: ImpactCritical,
			Fix:    "Check if page is accessible",
		})
		result.Score = impactScore(result.Issues, result.Warnings)
		return result
	}

	host := ""
	if parsed, err := url.Parse(pageURL); err == nil {
		host = parsed.Host
	}

	a.analyzeTitle(doc, &result)
	a.analyzeMetaDescription(doc, &result)
	a.analyzeHeadings(doc, &result)
	a.analyzeLinks(doc, &result, host)
	a.analyzeImages(doc, &result)
	checkTitleH1Match(&result)

	// Content analysis strips tags out of the document, so it runs last.
	a.analyzeContent(doc, &result)

	result.Score = impactScore(result.Issues, result.Warnings)
	return result
}

func (a *OnPageAnalyzer) analyzeTitle(doc *goquery.Document, result *OnPageResult) {
	titleTag := doc.Find("title").First()
	if titleTag.Length() == 0 {
		result.Issues = append(result.Issues, Finding{
			Issue:  "Missing title tag",
			Impact: ImpactHigh,
			Fix:    "Add <title> tag in the <head> section",
		})
		return
	}

	result.Title = strings.TrimSpace(titleTag.Text())
	result.TitleLength = len(result.Title)
	result.TitleOptimal = result.TitleLength >= TitleMin && result.TitleLength <= TitleMax

	switch {
	case result.TitleLength == 0:
		result.Issues = append(result.Issues, Finding{
			Issue:  "Empty title tag",
			Impact: ImpactHigh,
			Fix:    "Add descriptive title for the page",
		})
	case result.TitleLength < TitleMin:
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Title too short (%d chars)", result.TitleLength),
			Impact: ImpactMedium,
			Fix:    fmt.Sprintf("Aim for %d-%d characters", TitleMin, TitleMax),
		})
	case result.TitleLength > TitleMax:
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Title too long (%d chars)", result.TitleLength),
			Impact: ImpactMedium,
			Fix:    fmt.Sprintf("Aim for %d-%d characters", TitleMin, TitleMax),
		})
	default:
		result.Passed = append(result.Passed, fmt.Sprintf("Title length optimal (%d chars)", result.TitleLength))
	}
}

func (a *OnPageAnalyzer) analyzeMetaDescription(doc *goquery.Document, result *OnPageResult) {
	desc, ok := doc.Find(`meta[name="description"]`).Attr("content")
	if !ok {
		result.Issues = append(result.Issues, Finding{
			Issue:  "Missing meta description",
			Impact: ImpactMedium,
			Fix:    `Add <meta name="description" content="..."> tag`,
		})
		return
	}

	result.MetaDescription = strings.TrimSpace(desc)
	result.MetaDescriptionLength = len(result.MetaDescription)
	result.MetaDescriptionOptimal = result.MetaDescriptionLength >= DescMin && result.MetaDescriptionLength <= DescMax

	switch {
	case result.MetaDescriptionLength == 0:
		result.Issues = append(result.Issues, Finding{
			Issue:  "Empty meta description",
			Impact: ImpactMedium,
			Fix:    "Add descriptive meta description",
		})
	case result.MetaDescriptionLength < DescMin:
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Meta description too short (%d chars)", result.MetaDescriptionLength),
			Impact: ImpactLow,
			Fix:    fmt.Sprintf("Aim for %d-%d characters", DescMin, DescMax),
		})
	case result.MetaDescriptionLength > DescMax:
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Meta description too long (%d chars)", result.MetaDescriptionLength),
			Impact: ImpactLow,
			Fix:    fmt.Sprintf("Aim for %d-%d characters", DescMin, DescMax),
		})
	default:
		result.Passed = append(result.Passed, fmt.Sprintf("Meta description length optimal (%d chars)", result.MetaDescriptionLength))
	}
}

func (a *OnPageAnalyzer) analyzeHeadings(doc *goquery.Document, result *OnPageResult) {
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > 100 {
			text = text[:100]
		}
		result.H1Content = append(result.H1Content, text)
	})
	result.H1Count = len(result.H1Content)
	result.H2Count = doc.Find("h2").Length()
	result.H3Count = doc.Find("h3").Length()

	switch {
	case result.H1Count == 0:
		result.Issues = append(result.Issues, Finding{
			Issue:  "Missing H1 tag",
			Impact: ImpactHigh,
			Fix:    "Add one H1 tag as main heading",
		})
	case result.H1Count == 1:
		result.H1Optimal = true
		result.Passed = append(result.Passed, "Single H1 tag (optimal)")
	default:
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Multiple H1 tags (%d)", result.H1Count),
			Impact: ImpactMedium,
			Fix:    "Use only one H1 per page",
		})
	}

	var levels []int
	doc.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		if level, err := strconv.Atoi(goquery.NodeName(s)[1:]); err == nil {
			levels = append(levels, level)
		}
	})
	if len(levels) == 0 {
		return
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+1 {
			result.HeadingHierarchyValid = false
			result.Warnings = append(result.Warnings, Finding{
				Issue:  "Heading hierarchy has skipped levels",
				Impact: ImpactLow,
				Fix:    "Use sequential heading levels (H1 > H2 > H3)",
			})
			break
		}
	}
	if result.HeadingHierarchyValid && len(levels) > 1 {
		result.Passed = append(result.Passed, "Heading hierarchy is valid")
	}
}

// analyzeContent counts words and paragraphs in the main content container.
// Mutates the document by stripping non-content tags.
func (a *OnPageAnalyzer) analyzeContent(doc *goquery.Document, result *OnPageResult) {
	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find("main").First()
	}
	if container.Length() == 0 {
		doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			class := strings.ToLower(s.AttrOr("class", ""))
			if strings.Contains(class, "content") || strings.Contains(class, "article") ||
				strings.Contains(class, "post") || strings.Contains(class, "entry") {
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
		return
	}

	container.Find("script,style,nav,footer,header,aside,form").Remove()

	paragraphs := container.Find("p")
	result.ParagraphCount = paragraphs.Length()
	result.WordCount = len(strings.Fields(container.Text()))

	if result.ParagraphCount > 0 {
		paraWords := 0
		paragraphs.Each(func(_ int, s *goquery.Selection) {
			paraWords += len(strings.Fields(s.Text()))
		})
		result.AvgParagraphLength = float64(paraWords) / float64(result.ParagraphCount)
	}

	if result.WordCount < MinWordCount {
		result.IsThinContent = true
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Thin content (%d words)", result.WordCount),
			Impact: ImpactMedium,
			Fix:    fmt.Sprintf("Aim for at least %d words for in-depth content", MinWordCount),
		})
	} else {
		result.Passed = append(result.Passed, fmt.Sprintf("Good content length (%d words)", result.WordCount))
	}
}

func (a *OnPageAnalyzer) analyzeLinks(doc *goquery.Document, result *OnPageResult, host string) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if parsed.Host == "" || strings.Contains(parsed.Host, host) {
			result.InternalLinksCount++
		} else {
			result.ExternalLinksCount++
		}

		if strings.Contains(s.AttrOr("rel", ""), "nofollow") {
			result.NofollowLinksCount++
		}
	})

	if result.InternalLinksCount < 3 {
		result.Warnings = append(result.Warnings, Finding{
			Issue:  fmt.Sprintf("Few internal links (%d)", result.InternalLinksCount),
			Impact: ImpactLow,
			Fix:    "Add more internal links to related content",
		})
	} else {
		result.Passed = append(result.Passed, fmt.Sprintf("Good internal linking (%d links)", result.InternalLinksCount))
	}
}

func (a *OnPageAnalyzer) analyzeImages(doc *goquery.Document, result *OnPageResult) {
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.ToLower(s.AttrOr("src", ""))
		// Tracking pixels and chrome assets don't need alt text.
		if src != "" {
			for _, skip := range []string{"pixel", "tracking", ".gif", "icon", "logo"} {
				if strings.Contains(src, skip) {
					return
				}
			}
		}

		result.TotalImages++
		if strings.TrimSpace(s.AttrOr("alt", "")) != "" {
			result.ImagesWithAlt++
		} else {
			result.ImagesMissingAlt++
		}
	})

	if result.TotalImages > 0 {
		result.AltCoveragePercent = float64(result.ImagesWithAlt) / float64(result.TotalImages) * 100
		if result.ImagesMissingAlt > 0 {
			result.Warnings = append(result.Warnings, Finding{
				Issue:  fmt.Sprintf("%d image(s) missing alt text", result.ImagesMissingAlt),
				Impact: ImpactMedium,
				Fix:    "Add descriptive alt text to all images",
			})
		} else {
			result.Passed = append(result.Passed, "All images have alt text")
		}
	}
}

// checkTitleH1Match flags whether the title and first H1 share more than half
// of their significant words.
func checkTitleH1Match(result *OnPageResult) {
	if result.Title == "" || len(result.H1Content) == 0 {
		return
	}

	titleWords := significantWords(result.Title)
	h1Words := significantWords(result.H1Content[0])
	if len(titleWords) == 0 || len(h1Words) == 0 {
		return
	}

	overlap := 0
	for word := range titleWords {
		if _, ok := h1Words[word]; ok {
			overlap++
		}
	}
	smaller := len(titleWords)
	if len(h1Words) < smaller {
		smaller = len(h1Words)
	}
	result.TitleInH1 = float64(overlap)/float64(smaller) > 0.5
}

func significantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if _, stop := stopWords[word]; !stop {
			words[word] = struct{}{}
		}
	}
	return words
}

// BatchSummary aggregates on-page metrics across a batch of pages.
type BatchSummary struct {
	AvgTitleLength       float64 `json:"avg_title_length"`
	AvgDescriptionLength float64 `json:"avg_description_length"`
	AvgWordCount         float64 `json:"avg_word_count"`
	PagesWithH1Issues    int     `json:"pages_with_h1_issues"`
	ThinContentPages     int     `json:"thin_content_pages"`
	MissingAltImages     int     `json:"missing_alt_images"`
	AvgScore             float64 `json:"avg_score"`
}

// BatchResult holds per-page results plus an aggregated summary.
type BatchResult struct {
	Pages   []OnPageResult `json:"pages"`
	Summary BatchSummary   `json:"summary"`
}

// AnalyzeBatch runs on-page analysis across up to maxPages URLs sequentially.
func (a *OnPageAnalyzer) AnalyzeBatch(ctx context.Context, urls []string, maxPages int) BatchResult {
	result := BatchResult{Pages: []OnPageResult{}}
	if maxPages > 0 && len(urls) > maxPages {
		urls = urls[:maxPages]
	}

	var totalTitle, totalDesc, totalWords int
	var totalScore float64

	for _, u := range urls {
		page := a.Analyze(ctx, u, "")
		result.Pages = append(result.Pages, page)

		totalTitle += page.TitleLength
		totalDesc += page.MetaDescriptionLength
		totalWords += page.WordCount
		totalScore += page.Score

		if !page.H1Optimal {
			result.Summary.PagesWithH1Issues++
		}
		if page.IsThinContent {
			result.Summary.ThinContentPages++
		}
		result.Summary.MissingAltImages += page.ImagesMissingAlt
	}

	if n := len(result.Pages); n > 0 {
		result.Summary.AvgTitleLength = round1(float64(totalTitle) / float64(n))
		result.Summary.AvgDescriptionLength = round1(float64(totalDesc) / float64(n))
		result.Summary.AvgWordCount = round1(float64(totalWords) / float64(n))
		result.Summary.AvgScore = round1(totalScore / float64(n))
	}
	return result
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
