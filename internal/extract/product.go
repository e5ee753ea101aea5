package extract

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

// platformIndicators map e-commerce platforms to substrings that betray them
// in page markup or URLs. Detection never requires authenticated requests.
var platformIndicators = []struct {
	name       string
	indicators []string
}{
	{"woocommerce", []string{"/wp-content/plugins/woocommerce/", "woocommerce", "wc-", "add-to-cart"}},
	{"shopify", []string{"cdn.shopify.com", "shopify", "/collections/", "product-form"}},
	{"magento", []string{"/static/frontend/", "magento", "mage/", "catalog-product"}},
	{"prestashop", []string{"prestashop", "/modules/", "id_product"}},
	{"opencart", []string{"opencart", "route=product"}},
}

var priceClassRe = regexp.MustCompile(`(?i)price|amount|cost`)
var priceValueRe = regexp.MustCompile(`[\d,.]+`)
var productImgClassRe = regexp.MustCompile(`(?i)product|main|primary|featured`)
var productLinkClassRe = regexp.MustCompile(`(?i)product|item`)

// ProductData is the extraction record for one product URL.
type ProductData struct {
	Name              string   `json:"name"`
	URL               string   `json:"url"`
	Price             string   `json:"price,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	Availability      string   `json:"availability,omitempty"`
	SKU               string   `json:"sku,omitempty"`
	Brand             string   `json:"brand,omitempty"`
	Rating            float64  `json:"rating,omitempty"`
	ReviewCount       int      `json:"review_count"`
	DescriptionLength int      `json:"description_length"`
	ImageURL          string   `json:"image_url,omitempty"`
	ImageAltPresent   bool     `json:"image_alt_present"`
	Canonical         string   `json:"canonical,omitempty"`
	Indexable         bool     `json:"indexable"`
	StatusCode        int      `json:"status_code"`
	HasSchema         bool     `json:"has_schema"`
	Issues            []string `json:"issues"`
	Warnings          []string `json:"warnings"`
}

// ProductResult aggregates product extraction across URLs.
type ProductResult struct {
	TotalFound                  int           `json:"total_found"`
	Products                    []ProductData `json:"products"`
	WithSchema                  int           `json:"with_schema"`
	SchemaCoveragePercent       float64       `json:"schema_coverage_percent"`
	WithPrice                   int           `json:"with_price"`
	PriceCoveragePercent        float64       `json:"price_coverage_percent"`
	WithAvailability            int           `json:"with_availability"`
	AvailabilityCoveragePercent float64       `json:"availability_coverage_percent"`
	WithRating                  int           `json:"with_rating"`
	IndexableCount              int           `json:"indexable_count"`
	MissingImageAlt             int           `json:"missing_image_alt"`
	PlatformDetected            string        `json:"platform_detected,omitempty"`
	Errors                      []string      `json:"errors,omitempty"`
}

// ProductExtractor extracts product records from e-commerce pages. JSON-LD
// Product blocks win; HTML heuristics fill the gaps.
type ProductExtractor struct {
	client *httpclient.Client
	runner Runner
}

// NewProductExtractor builds a ProductExtractor sharing the given client.
func NewProductExtractor(client *httpclient.Client, runner Runner) *ProductExtractor {
	if client == nil {
		client = httpclient.New(15 * time.Second)
	}
	return &ProductExtractor{client: client, runner: runner}
}

// ExtractFromURLs extracts up to maxProducts records, fanning fetches out
// across the runner's worker pool while keeping input order. The platform is
// detected from the first product URL that carried schema markup.
func (e *ProductExtractor) ExtractFromURLs(ctx context.Context, urls []string, maxProducts int) ProductResult {
	result := ProductResult{}
	if maxProducts > 0 && len(urls) > maxProducts {
		urls = urls[:maxProducts]
	}

	slots := make([]*ProductData, len(urls))
	errs := make([]string, len(urls))

	e.runner.Run(ctx, urls, func(ctx context.Context, i int, u string) {
		product, err := e.ExtractSingle(ctx, u)
		if err != nil {
			errs[i] = fmt.Sprintf("%s: %v", u, err)
			return
		}
		slots[i] = product
	})

	for i, product := range slots {
		if product == nil {
			if errs[i] != "" {
				result.Errors = append(result.Errors, errs[i])
			}
			continue
		}
		result.Products = append(result.Products, *product)
		if product.HasSchema {
			result.WithSchema++
		}
		if product.Price != "" {
			result.WithPrice++
		}
		if product.Availability != "" {
			result.WithAvailability++
		}
		if product.Rating > 0 {
			result.WithRating++
		}
		if product.Indexable {
			result.IndexableCount++
		}
		if product.ImageURL != "" && !product.ImageAltPresent {
			result.MissingImageAlt++
		}
		if result.PlatformDetected == "" && product.HasSchema {
			result.PlatformDetected = detectPlatformFromURL(product.URL)
		}
	}

	result.TotalFound = len(result.Products)
	if result.TotalFound > 0 {
		result.SchemaCoveragePercent = percent(result.WithSchema, result.TotalFound)
		result.PriceCoveragePercent = percent(result.WithPrice, result.TotalFound)
		result.AvailabilityCoveragePercent = percent(result.WithAvailability, result.TotalFound)
	}
	return result
}

// ExtractSingle extracts one product record. A non-200 response yields a
// non-indexable record; fetch or parse failures return an error.
func (e *ProductExtractor) ExtractSingle(ctx context.Context, pageURL string) (*ProductData, error) {
	resp, err := e.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	product := &ProductData{
		URL:        pageURL,
		Indexable:  true,
		StatusCode: resp.StatusCode,
		Issues:     []string{},
		Warnings:   []string{},
	}

	if resp.StatusCode != 200 {
		product.Indexable = false
		product.Issues = append(product.Issues, fmt.Sprintf("Non-200 status code: %d", resp.StatusCode))
		return product, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err != nil {
		return nil, err
	}

	if schema := productFromJSONLD(doc); schema != nil {
		product.HasSchema = true
		product.Name = schema.name
		product.Price = schema.price
		product.Currency = schema.currency
		product.Availability = schema.availability
		product.SKU = schema.sku
		product.Brand = schema.brand
		product.Rating = schema.rating
		product.ReviewCount = schema.reviewCount
		product.ImageURL = schema.image
		product.DescriptionLength = schema.descriptionLength
	}

	e.fillFromHTML(doc, product)
	checkProductIndexability(doc, product)
	e.generateIssues(product)
	return product, nil
}

type productSchema struct {
	name              string
	price             string
	currency          string
	availability      string
	sku               string
	brand             string
	rating            float64
	reviewCount       int
	image             string
	descriptionLength int
}

// productFromJSONLD returns the first JSON-LD Product block.
func productFromJSONLD(doc *goquery.Document) *productSchema {
	for _, block := range jsonLDBlocks(doc) {
		if schemaType(block) != "Product" {
			continue
		}

		schema := &productSchema{
			name:  nameOf(block["name"]),
			sku:   anyString(block["sku"]),
			brand: nameOf(block["brand"]),
			image: urlOf(block["image"]),
		}
		if schema.sku == "" {
			schema.sku = anyString(block["productID"])
		}
		if desc := stringField(block, "description"); desc != "" {
			schema.descriptionLength = len(desc)
		}

		if offers := firstObject(block["offers"]); offers != nil {
			schema.price = anyString(offers["price"])
			schema.currency = stringField(offers, "priceCurrency")
			schema.availability = normalizeAvailability(anyString(offers["availability"]))
		}

		if rating := firstObject(block["aggregateRating"]); rating != nil {
			schema.rating = anyFloat(rating["ratingValue"])
			schema.reviewCount = int(anyFloat(rating["reviewCount"]))
		}
		return schema
	}
	return nil
}

// normalizeAvailability maps schema.org availability URLs to bare values.
func normalizeAvailability(value string) string {
	switch {
	case value == "":
		return ""
	case strings.Contains(value, "InStock"):
		return "InStock"
	case strings.Contains(value, "OutOfStock"):
		return "OutOfStock"
	case strings.Contains(value, "PreOrder"):
		return "PreOrder"
	}
	return value
}

// fillFromHTML fills any field JSON-LD left empty and checks image alt text.
func (e *ProductExtractor) fillFromHTML(doc *goquery.Document, product *ProductData) {
	if product.Name == "" {
		product.Name = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	product.Canonical = strings.TrimSpace(doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))

	if product.ImageURL != "" {
		filename := product.ImageURL
		if i := strings.LastIndex(filename, "/"); i >= 0 {
			filename = filename[i+1:]
		}
		doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !strings.Contains(s.AttrOr("src", ""), filename) {
				return true
			}
			if strings.TrimSpace(s.AttrOr("alt", "")) != "" {
				product.ImageAltPresent = true
			}
			return false
		})
	} else {
		doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !productImgClassRe.MatchString(s.AttrOr("class", "")) {
				return true
			}
			product.ImageURL = s.AttrOr("src", "")
			if strings.TrimSpace(s.AttrOr("alt", "")) != "" {
				product.ImageAltPresent = true
			}
			return false
		})
	}

	if product.Price == "" {
		doc.Find("span,div,p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !priceClassRe.MatchString(s.AttrOr("class", "")) {
				return true
			}
			if match := priceValueRe.FindString(strings.TrimSpace(s.Text())); match != "" {
				product.Price = match
				return false
			}
			return true
		})
	}
}

func checkProductIndexability(doc *goquery.Document, product *ProductData) {
	robots := strings.ToLower(doc.Find(`meta[name="robots"]`).AttrOr("content", ""))
	if strings.Contains(robots, "noindex") {
		product.Indexable = false
		product.Issues = append(product.Issues, "Page has noindex directive")
	}
}

func (e *ProductExtractor) generateIssues(product *ProductData) {
	switch {
	case product.Name == "":
		product.Issues = append(product.Issues, "Missing product name")
	case len(product.Name) < 10:
		product.Warnings = append(product.Warnings, "Product name too short")
	}

	if product.Price == "" {
		product.Issues = append(product.Issues, "Missing price")
	}
	if product.Availability == "" {
		product.Issues = append(product.Issues, "Missing availability")
	}
	if !product.HasSchema {
		product.Issues = append(product.Issues, "No Product schema markup")
	}

	switch {
	case product.ImageURL == "":
		product.Warnings = append(product.Warnings, "No product image found")
	case !product.ImageAltPresent:
		product.Warnings = append(product.Warnings, "Product image missing alt text")
	}

	switch {
	case product.DescriptionLength == 0:
		product.Warnings = append(product.Warnings, "No product description in schema")
	case product.DescriptionLength < 50:
		product.Warnings = append(product.Warnings, "Product description too short")
	}
}

// DetectPlatform identifies the e-commerce platform from page markup or the
// URL itself.
func DetectPlatform(html, pageURL string) string {
	content := strings.ToLower(html)
	lowered := strings.ToLower(pageURL)
	for _, platform := range platformIndicators {
		for _, indicator := range platform.indicators {
			if strings.Contains(content, indicator) || strings.Contains(lowered, indicator) {
				return platform.name
			}
		}
	}
	return ""
}

func detectPlatformFromURL(pageURL string) string {
	lowered := strings.ToLower(pageURL)
	for _, platform := range platformIndicators {
		for _, indicator := range platform.indicators {
			if strings.Contains(lowered, indicator) {
				return platform.name
			}
		}
	}
	return ""
}

// ExtractFromCategoryPage harvests product URLs from a listing page by
// following common product link patterns.
func (e *ProductExtractor) ExtractFromCategoryPage(ctx context.Context, categoryURL string, maxProducts int) []string {
	var productURLs []string

	resp, err := e.client.Get(ctx, categoryURL)
	if err != nil || resp.StatusCode != 200 {
		return productURLs
	}
	base, err := url.Parse(categoryURL)
	if err != nil {
		return productURLs
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err != nil {
		return productURLs
	}

	add := func(href string) bool {
		ref, err := url.Parse(href)
		if err != nil {
			return len(productURLs) < maxProducts
		}
		resolved := base.ResolveReference(ref).String()
		for _, existing := range productURLs {
			if existing == resolved {
				return true
			}
		}
		productURLs = append(productURLs, resolved)
		return len(productURLs) < maxProducts
	}

	hrefPatterns := []string{"/product/", "/products/", "/p/"}
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if href == "" {
			return true
		}
		lowered := strings.ToLower(href)
		matched := false
		for _, p := range hrefPatterns {
			if strings.Contains(lowered, p) {
				matched = true
				break
			}
		}
		if !matched && !productLinkClassRe.MatchString(s.AttrOr("class", "")) {
			if _, ok := s.Attr("data-product-id"); !ok {
				return true
			}
		}
		return add(href)
	})

	return productURLs
}

// anyString renders a JSON scalar as a string. Numbers keep a compact form so
// prices like 19.99 survive the round trip.
func anyString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func anyFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}
