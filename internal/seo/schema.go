// Package seo scores pages against technical, on-page, and structured-data
// checks. Each analyzer produces issues and warnings plus a 0-100 score.
package seo

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Severity levels for schema validation issues.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Required and recommended fields per schema type.
var (
	articleRequired    = []string{"headline", "datePublished", "author"}
	articleRecommended = []string{"mainEntityOfPage", "dateModified", "image", "publisher"}

	productRequired      = []string{"name"}
	productOfferRequired = []string{"price", "priceCurrency", "availability"}
	productRecommended   = []string{"description", "image", "sku", "brand"}

	organizationRequired    = []string{"name"}
	organizationRecommended = []string{"url", "logo", "contactPoint", "sameAs"}

	websiteRequired = []string{"name", "url"}
)

// validatedArticleTypes are the @type values checked as Article schema.
var validatedArticleTypes = map[string]struct{}{
	"Article":          {},
	"NewsArticle":      {},
	"BlogPosting":      {},
	"TechArticle":      {},
	"ScholarlyArticle": {},
}

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}(:\d{2})?(([+-]\d{2}:\d{2})|Z)?)?$`)

// SchemaIssue is one finding from structured-data validation.
type SchemaIssue struct {
	Severity   string `json:"severity"`
	SchemaType string `json:"schema_type"`
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// SchemaValidationResult is the outcome of validating one page's JSON-LD.
type SchemaValidationResult struct {
	SchemasFound        []string      `json:"schemas_found"`
	TotalSchemas        int           `json:"total_schemas"`
	Errors              []SchemaIssue `json:"errors"`
	Warnings            []SchemaIssue `json:"warnings"`
	Info                []SchemaIssue `json:"info"`
	CoverageScore       float64       `json:"coverage_score"`
	ArticleSchemaValid  bool          `json:"article_schema_valid"`
	ProductSchemaValid  bool          `json:"product_schema_valid"`
	BreadcrumbPresent   bool          `json:"breadcrumb_present"`
	OrganizationPresent bool          `json:"organization_present"`
	WebsitePresent      bool          `json:"website_present"`
	ErrorCount          int           `json:"error_count"`
	WarningCount        int           `json:"warning_count"`
}

// SchemaValidator validates JSON-LD structured data against the field sets
// search engines reward.
type SchemaValidator struct{}

// NewSchemaValidator builds a SchemaValidator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

// Validate checks every JSON-LD block in the HTML and scores overall coverage.
func (v *SchemaValidator) Validate(html string) SchemaValidationResult {
	result := SchemaValidationResult{
		SchemasFound: []string{},
		Errors:       []SchemaIssue{},
		Warnings:     []SchemaIssue{},
		Info:         []SchemaIssue{},
	}

	schemas := extractSchemas(html)
	if len(schemas) == 0 {
		result.Warnings = append(result.Warnings, SchemaIssue{
			Severity:   SeverityWarning,
			SchemaType: "General",
			Field:      "JSON-LD",
			Message:    "No JSON-LD structured data found",
			Suggestion: "Add JSON-LD schema markup for better search visibility",
		})
		result.WarningCount = len(result.Warnings)
		return result
	}

	result.TotalSchemas = len(schemas)
	for _, schema := range schemas {
		schemaType := typeOf(schema)
		result.SchemasFound = append(result.SchemasFound, schemaType)

		if _, ok := validatedArticleTypes[schemaType]; ok {
			v.validateArticle(schema, schemaType, &result)
			continue
		}
		switch schemaType {
		case "Product":
			v.validateProduct(schema, &result)
		case "BreadcrumbList":
			v.validateBreadcrumb(schema, &result)
		case "Organization":
			v.validateOrganization(schema, &result)
		case "WebSite":
			v.validateWebsite(schema, &result)
		}
	}

	result.CoverageScore = coverageScore(result)
	result.ErrorCount = len(result.Errors)
	result.WarningCount = len(result.Warnings)
	return result
}

func (v *SchemaValidator) validateArticle(schema map[string]any, schemaType string, result *SchemaValidationResult) {
	valid := true

	for _, field := range articleRequired {
		if !hasValue(schema, field) {
			valid = false
			result.Errors = append(result.Errors, SchemaIssue{
				Severity:   SeverityError,
				SchemaType: schemaType,
				Field:      field,
				Message:    "Missing required field: " + field,
				Suggestion: "Add " + field + " to your " + schemaType + " schema",
			})
		}
	}
	for _, field := range articleRecommended {
		if !hasValue(schema, field) {
			result.Warnings = append(result.Warnings, SchemaIssue{
				Severity:   SeverityWarning,
				SchemaType: schemaType,
				Field:      field,
				Message:    "Missing recommended field: " + field,
				Suggestion: "Consider adding " + field + " for better search visibility",
			})
		}
	}

	switch author := schema["author"].(type) {
	case string:
		result.Warnings = append(result.Warnings, SchemaIssue{
			Severity:   SeverityWarning,
			SchemaType: schemaType,
			Field:      "author",
			Message:    "Author should be an object with @type and name",
			Suggestion: `Use {"@type": "Person", "name": "Author Name"}`,
		})
	case map[string]any:
		if !hasValue(author, "name") {
			result.Errors = append(result.Errors, SchemaIssue{
				Severity:   SeverityError,
				SchemaType: schemaType,
				Field:      "author.name",
				Message:    "Author object missing name",
				Suggestion: "Add name property to author object",
			})
		}
	}

	if publisher, ok := schema["publisher"].(map[string]any); ok {
		if !hasValue(publisher, "name") {
			result.Errors = append(result.Errors, SchemaIssue{
				Severity:   SeverityError,
				SchemaType: schemaType,
				Field:      "publisher.name",
				Message:    "Publisher missing name",
				Suggestion: "Add name to publisher object",
			})
		}
		if !hasValue(publisher, "logo") {
			result.Warnings = append(result.Warnings, SchemaIssue{
				Severity:   SeverityWarning,
				SchemaType: schemaType,
				Field:      "publisher.logo",
				Message:    "Publisher missing logo",
				Suggestion: "Add logo ImageObject to publisher",
			})
		}
	}

	if datePublished, ok := schema["datePublished"].(string); ok && datePublished != "" {
		if !isoDateRe.MatchString(datePublished) {
			result.Warnings = append(result.Warnings, SchemaIssue{
				Severity:   SeverityWarning,
				SchemaType: schemaType,
				Field:      "datePublished",
				Message:    "Date format may not be optimal",
				Suggestion: "Use ISO 8601 format: YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS+TZ",
			})
		}
	}

	result.ArticleSchemaValid = valid
}

func (v *SchemaValidator) validateProduct(schema map[string]any, result *SchemaValidationResult) {
	valid := true

	for _, field := range productRequired {
		if !hasValue(schema, field) {
			valid = false
			result.Errors = append(result.Errors, SchemaIssue{
				Severity:   SeverityError,
				SchemaType: "Product",
				Field:      field,
				Message:    "Missing required field: " + field,
				Suggestion: "Add " + field + " to your Product schema",
			})
		}
	}

	offers := unwrapObject(schema["offers"])
	if offers == nil {
		valid = false
		result.Errors = append(result.Errors, SchemaIssue{
			Severity:   SeverityError,
			SchemaType: "Product",
			Field:      "offers",
			Message:    "Missing offers object",
			Suggestion: "Add offers with price, currency, and availability",
		})
	} else {
		for _, field := range productOfferRequired {
			if !hasValue(offers, field) {
				valid = false
				result.Errors = append(result.Errors, SchemaIssue{
					Severity:   SeverityError,
					SchemaType: "Product",
					Field:      "offers." + field,
					Message:    "Missing required field in offers: " + field,
					Suggestion: "Add " + field + " to offers object",
				})
			}
		}
		if availability, ok := offers["availability"].(string); ok && availability != "" {
			if !strings.Contains(availability, "schema.org") {
				result.Warnings = append(result.Warnings, SchemaIssue{
					Severity:   SeverityWarning,
					SchemaType: "Product",
					Field:      "offers.availability",
					Message:    "Availability should use schema.org URL format",
					Suggestion: "Use https://schema.org/InStock or https://schema.org/OutOfStock",
				})
			}
		}
	}

	for _, field := range productRecommended {
		if !hasValue(schema, field) {
			result.Warnings = append(result.Warnings, SchemaIssue{
				Severity:   SeverityWarning,
				SchemaType: "Product",
				Field:      field,
				Message:    "Missing recommended field: " + field,
				Suggestion: "Consider adding " + field + " for better product visibility",
			})
		}
	}

	if rating, ok := schema["aggregateRating"].(map[string]any); ok {
		if !hasValue(rating, "ratingValue") {
			result.Warnings = append(result.Warnings, SchemaIssue{
				Severity:   SeverityWarning,
				SchemaType: "Product",
				Field:      "aggregateRating.ratingValue",
				Message:    "Missing ratingValue in aggregateRating",
				Suggestion: "Add ratingValue to show star ratings in search results",
			})
		}
	}

	result.ProductSchemaValid = valid
}

func (v *SchemaValidator) validateBreadcrumb(schema map[string]any, result *SchemaValidationResult) {
	result.BreadcrumbPresent = true

	items, _ := schema["itemListElement"].([]any)
	if len(items) == 0 {
		result.Errors = append(result.Errors, SchemaIssue{
			Severity:   SeverityError,
			SchemaType: "BreadcrumbList",
			Field:      "itemListElement",
			Message:    "BreadcrumbList has no items",
			Suggestion: "Add ListItem elements with position, name, and item",
		})
		return
	}

	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		index := strconv.Itoa(i)

		if !hasValue(item, "position") {
			result.Errors = append(result.Errors, SchemaIssue{
				Severity:   SeverityError,
				SchemaType: "BreadcrumbList",
				Field:      "itemListElement[" + index + "].position",
				Message:    "Breadcrumb item " + index + " missing position",
				Suggestion: "Add position number to each ListItem",
			})
		}

		named := hasValue(item, "name")
		if !named {
			if inner, ok := item["item"].(map[string]any); ok {
				named = hasValue(inner, "name")
			}
		}
		if !named {
			result.Warnings = append(result.Warnings, SchemaIssue{
				Severity:   SeverityWarning,
				SchemaType: "BreadcrumbList",
				Field:      "itemListElement[" + index + "].name",
				Message:    "Breadcrumb item " + index + " missing name",
				Suggestion: "Add name to each ListItem",
			})
		}
	}
}

func (v *SchemaValidator) validateOrganization(schema map[string]any, result *SchemaValidationResult) {
	result.OrganizationPresent = true

	for _, field := range organizationRequired {
		if !hasValue(schema, field) {
			result.Errors = append(result.Errors, SchemaIssue{
				Severity:   SeverityError,
				SchemaType: "Organization",
				Field:      field,
				Message:    "Missing required field: " + field,
				Suggestion: "Add " + field + " to your Organization schema",
			})
		}
	}
	for _, field := range organizationRecommended {
		if !hasValue(schema, field) {
			result.Warnings = append(result.Warnings, SchemaIssue{
				Severity:   SeverityWarning,
				SchemaType: "Organization",
				Field:      field,
				Message:    "Missing recommended field: " + field,
				Suggestion: "Consider adding " + field + " for richer organization display",
			})
		}
	}
}

func (v *SchemaValidator) validateWebsite(schema map[string]any, result *SchemaValidationResult) {
	result.WebsitePresent = true

	for _, field := range websiteRequired {
		if !hasValue(schema, field) {
			result.Errors = append(result.Errors, SchemaIssue{
				Severity:   SeverityError,
				SchemaType: "WebSite",
				Field:      field,
				Message:    "Missing required field: " + field,
				Suggestion: "Add " + field + " to your WebSite schema",
			})
		}
	}

	action := unwrapObject(schema["potentialAction"])
	if action == nil {
		result.Info = append(result.Info, SchemaIssue{
			Severity:   SeverityInfo,
			SchemaType: "WebSite",
			Field:      "potentialAction",
			Message:    "No SearchAction defined",
			Suggestion: "Add SearchAction to enable sitelinks search box in Google",
		})
		return
	}
	if actionType, _ := action["@type"].(string); actionType == "SearchAction" {
		if !hasValue(action, "query-input") {
			result.Warnings = append(result.Warnings, SchemaIssue{
				Severity:   SeverityWarning,
				SchemaType: "WebSite",
				Field:      "potentialAction.query-input",
				Message:    "SearchAction missing query-input",
				Suggestion: "Add query-input to define search parameter",
			})
		}
	}
}

// coverageScore scores structured-data coverage 0-100: points for schema
// presence and valid key types, deductions per error and warning.
func coverageScore(result SchemaValidationResult) float64 {
	score := 0.0
	if result.TotalSchemas > 0 {
		score += 20
	}
	if result.BreadcrumbPresent {
		score += 15
	}
	if result.OrganizationPresent {
		score += 15
	}
	if result.WebsitePresent {
		score += 10
	}
	if result.ArticleSchemaValid {
		score += 20
	}
	if result.ProductSchemaValid {
		score += 20
	}

	score -= float64(len(result.Errors) * 5)
	score -= float64(len(result.Warnings) * 2)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// extractSchemas pulls every JSON-LD object out of the HTML, flattening
// @graph structures and top-level arrays.
func extractSchemas(html string) []map[string]any {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return schemaBlocks(doc)
}

// hasValue reports whether a field is present and truthy: non-empty string,
// non-zero number, non-empty container, or true.
func hasValue(schema map[string]any, field string) bool {
	value, ok := schema[field]
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case string:
		return v != ""
	case float64:
		return v != 0
	case bool:
		return v
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

func unwrapObject(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func typeOf(schema map[string]any) string {
	switch t := schema["@type"].(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return "Unknown"
}
