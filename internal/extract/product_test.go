package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vuminhngo/sitescout-cli/internal/httpclient"
)

func newProductExtractor() *ProductExtractor {
	return NewProductExtractor(httpclient.New(5*time.Second), DefaultRunner())
}

const productPage = `<html><head>
	<title>Widget Deluxe 3000 - Example Shop</title>
	<link rel="canonical" href="https://shop.example.com/product/widget-deluxe">
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Product",
		"name": "Widget Deluxe 3000",
		"sku": "WD-3000",
		"brand": {"@type": "Brand", "name": "Widgetry"},
		"description": "A deluxe widget with every feature you could want in a widget.",
		"image": "https://shop.example.com/img/widget.jpg",
		"offers": {
			"@type": "Offer",
			"price": 19.99,
			"priceCurrency": "USD",
			"availability": "https://schema.org/InStock"
		},
		"aggregateRating": {"@type": "AggregateRating", "ratingValue": "4.5", "reviewCount": 37}
	}
	</script>
</head><body>
	<h1>Widget Deluxe 3000</h1>
	<img src="/img/widget.jpg" alt="Widget Deluxe 3000 front view">
</body></html>`

func TestProductExtractSingleSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage)
	}))
	defer server.Close()

	product, err := newProductExtractor().ExtractSingle(context.Background(), server.URL+"/product/widget-deluxe")
	if err != nil {
		t.Fatal(err)
	}

	if !product.HasSchema {
		t.Fatal("expected Product schema")
	}
	if product.Name != "Widget Deluxe 3000" {
		t.Errorf("name %q", product.Name)
	}
	// Numeric JSON price keeps its compact form.
	if product.Price != "19.99" {
		t.Errorf("price %q, want 19.99", product.Price)
	}
	if product.Currency != "USD" {
		t.Errorf("currency %q", product.Currency)
	}
	if product.Availability != "InStock" {
		t.Errorf("availability %q, want bare InStock", product.Availability)
	}
	if product.SKU != "WD-3000" {
		t.Errorf("sku %q", product.SKU)
	}
	if product.Brand != "Widgetry" {
		t.Errorf("brand %q", product.Brand)
	}
	if product.Rating != 4.5 {
		t.Errorf("rating %v", product.Rating)
	}
	if product.ReviewCount != 37 {
		t.Errorf("review count %d", product.ReviewCount)
	}
	if !product.ImageAltPresent {
		t.Error("expected image alt to be detected")
	}
	if len(product.Issues) != 0 {
		t.Errorf("unexpected issues %v", product.Issues)
	}
}

func TestProductExtractSingleHTMLFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Gadget</title></head><body>
			<h1>Pocket Gadget Mini</h1>
			<img class="product-image" src="/img/gadget.jpg">
			<span class="price">$24.50</span>
		</body></html>`)
	}))
	defer server.Close()

	product, err := newProductExtractor().ExtractSingle(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}

	if product.HasSchema {
		t.Error("expected no schema")
	}
	if product.Name != "Pocket Gadget Mini" {
		t.Errorf("name %q", product.Name)
	}
	if product.Price != "24.50" {
		t.Errorf("price %q, want digits from price class", product.Price)
	}
	if !containsString(product.Issues, "No Product schema markup") {
		t.Errorf("expected schema issue, got %v", product.Issues)
	}
	if !containsString(product.Issues, "Missing availability") {
		t.Errorf("expected availability issue, got %v", product.Issues)
	}
	if !containsString(product.Warnings, "Product image missing alt text") {
		t.Errorf("expected alt warning, got %v", product.Warnings)
	}
}

func TestProductMissingPriceIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Bare Product Listing</h1></body></html>`)
	}))
	defer server.Close()

	product, err := newProductExtractor().ExtractSingle(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !containsString(product.Issues, "Missing price") {
		t.Errorf("expected price issue, got %v", product.Issues)
	}
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://schema.org/InStock", "InStock"},
		{"http://schema.org/OutOfStock", "OutOfStock"},
		{"https://schema.org/PreOrder", "PreOrder"},
		{"Discontinued", "Discontinued"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeAvailability(tt.in); got != tt.want {
			t.Errorf("normalizeAvailability(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name string
		html string
		url  string
		want string
	}{
		{"woocommerce markup", `<link href="/wp-content/plugins/woocommerce/style.css">`, "https://example.com", "woocommerce"},
		{"shopify cdn", `<img src="https://cdn.shopify.com/s/img.jpg">`, "https://example.com", "shopify"},
		{"shopify url", "", "https://example.com/collections/summer", "shopify"},
		{"magento markup", `<script src="/static/frontend/theme/js"></script>`, "https://example.com", "magento"},
		{"opencart url", "", "https://example.com/index.php?route=product/product", "opencart"},
		{"unknown", "<html></html>", "https://example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectPlatform(tt.html, tt.url); got != tt.want {
				t.Errorf("DetectPlatform = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractFromCategoryPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/product/one">One</a>
			<a href="/product/one">One again</a>
			<a href="/products/two">Two</a>
			<a class="product-card" href="/item-three">Three</a>
			<a href="/about">About</a>
			<a href="/product/four">Four</a>
		</body></html>`)
	}))
	defer server.Close()

	urls := newProductExtractor().ExtractFromCategoryPage(context.Background(), server.URL+"/shop", 3)

	if len(urls) != 3 {
		t.Fatalf("expected 3 product URLs (deduped, capped), got %d: %v", len(urls), urls)
	}
	if urls[0] != server.URL+"/product/one" {
		t.Errorf("first URL %q", urls[0])
	}
}

func TestAnyString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"  19.99 ", "19.99"},
		{float64(19.99), "19.99"},
		{float64(20), "20"},
		{true, "true"},
		{nil, ""},
		{[]any{"x"}, ""},
	}
	for _, tt := range tests {
		if got := anyString(tt.in); got != tt.want {
			t.Errorf("anyString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
