package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	"github.com/vuminhngo/sitescout-cli/internal/history"
	"github.com/vuminhngo/sitescout-cli/internal/scanner"
	sharedErrors "github.com/vuminhngo/sitescout-cli/internal/shared/errors"
)

const markdownReportTemplate = `# SEO Scan Report

- **Site:** {{ .URL }}
- **Scanned:** {{ formatTime .ScannedAt }}
- **Overall score:** {{ .Summary.OverallScore }}/100

## Scores

| Area | Score |
|------|-------|
| Technical SEO | {{ printf "%.0f" .Summary.Scores.TechnicalSEO }} |
| On-page SEO | {{ printf "%.0f" .Summary.Scores.OnPageSEO }} |
| Schema coverage | {{ printf "%.0f" .Summary.Scores.SchemaCoverage }} |

## Content Discovery

- Sitemaps found: {{ .Summary.ContentFound.Sitemaps }} ({{ .Summary.ContentFound.SitemapURLs }} URLs)
- RSS feeds found: {{ .Summary.ContentFound.RSSFeeds }} ({{ .Summary.ContentFound.RSSItems }} items)

## Articles ({{ .Summary.Articles.Total }})

- With schema markup: {{ .Summary.Articles.WithSchema }}
- Indexable: {{ .Summary.Articles.Indexable }}
- Thin content: {{ .Summary.Articles.ThinContent }}
{{ range .Articles.Articles }}
### {{ if .Title }}{{ .Title }}{{ else }}(untitled){{ end }}

- URL: {{ .URL }}
- Words: {{ .WordCount }} ({{ .ReadingTimeMinutes }} min read)
- Schema: {{ if .HasSchema }}{{ .SchemaType }}{{ else }}none{{ end }}
{{- range .Issues }}
- **Issue:** {{ . }}
{{- end }}
{{- range .Warnings }}
- Warning: {{ . }}
{{- end }}
{{ end }}
## Products ({{ .Summary.Products.Total }})

- With schema markup: {{ .Summary.Products.WithSchema }}
- With price: {{ .Summary.Products.WithPrice }}
- With availability: {{ .Summary.Products.WithAvailability }}
{{- if .Products.PlatformDetected }}
- Platform: {{ .Products.PlatformDetected }}
{{- end }}
{{ range .Products.Products }}
### {{ if .Name }}{{ .Name }}{{ else }}(unnamed){{ end }}

- URL: {{ .URL }}
{{- if .Price }}
- Price: {{ .Price }}{{ if .Currency }} {{ .Currency }}{{ end }}
{{- end }}
{{- if .Availability }}
- Availability: {{ .Availability }}
{{- end }}
{{- range .Issues }}
- **Issue:** {{ . }}
{{- end }}
{{ end }}
## Technical SEO ({{ printf "%.0f" .TechnicalSEO.Score }}/100)
{{ range .TechnicalSEO.Issues }}
- **[{{ .Impact }}]** {{ .Issue }} - {{ .Fix }}
{{- end }}
{{- range .TechnicalSEO.Warnings }}
- [{{ .Impact }}] {{ .Issue }} - {{ .Fix }}
{{- end }}
{{- range .TechnicalSEO.Passed }}
- OK: {{ . }}
{{- end }}

## On-Page SEO ({{ printf "%.0f" .OnPageSEO.Score }}/100)
{{ range .OnPageSEO.Issues }}
- **[{{ .Impact }}]** {{ .Issue }} - {{ .Fix }}
{{- end }}
{{- range .OnPageSEO.Warnings }}
- [{{ .Impact }}] {{ .Issue }} - {{ .Fix }}
{{- end }}

## Structured Data ({{ printf "%.0f" .SchemaValidation.CoverageScore }}/100)

Schemas found: {{ join .SchemaValidation.SchemasFound ", " }}
{{ range .SchemaValidation.Errors }}
- **Error** ({{ .SchemaType }}.{{ .Field }}): {{ .Message }}
{{- end }}
{{- range .SchemaValidation.Warnings }}
- Warning ({{ .SchemaType }}.{{ .Field }}): {{ .Message }}
{{- end }}
`

var markdownTemplateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05 UTC")
	},
	"join": strings.Join,
}

var markdownReport = template.Must(
	template.New("report.md").Funcs(markdownTemplateFuncs).Parse(markdownReportTemplate),
)

var (
	reportFormat string
	reportOutput string
	reportScanID int64
)

var reportCmd = &cobra.Command{
	Use:   "report [results.json]",
	Short: "Render a scan result as Markdown, PDF, or JSON",
	Long: `Report renders a full scan result, either from a results JSON file or
from a recorded scan in the history database (--scan-id).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadResultPayload(args)
		if err != nil {
			return err
		}

		var result scanner.Result
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("failed to decode scan result: %w", err)
		}

		var rendered []byte
		switch reportFormat {
		case "markdown", "md":
			text, err := renderMarkdownReport(&result)
			if err != nil {
				return err
			}
			rendered = []byte(text)
		case "pdf":
			rendered, err = renderPDFReport(&result)
			if err != nil {
				return err
			}
		case "json":
			rendered, err = json.MarshalIndent(&result, "", "  ")
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s (use markdown, pdf, or json)", sharedErrors.ErrUnsupportedFormat, reportFormat)
		}

		output := reportOutput
		if output == "" {
			ext := reportFormat
			if ext == "markdown" {
				ext = "md"
			}
			output = filepath.Join(resultsDir, fmt.Sprintf("report-%s.%s",
				time.Now().UTC().Format("20060102-150405"), ext))
		}
		if err := os.WriteFile(output, rendered, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		fmt.Printf("%s report written to %s\n", colorSuccess("[+]"), output)
		return nil
	},
}

func loadResultPayload(args []string) ([]byte, error) {
	if reportScanID > 0 {
		store, err := history.Open(historyDBPath())
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Result(context.Background(), reportScanID)
	}
	if len(args) == 0 {
		return nil, sharedErrors.ErrNoResultSource
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	return data, nil
}

func renderMarkdownReport(result *scanner.Result) (string, error) {
	var sb strings.Builder
	if err := markdownReport.Execute(&sb, result); err != nil {
		return "", fmt.Errorf("failed to execute report.md template: %w", err)
	}
	return sb.String(), nil
}

func renderPDFReport(result *scanner.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("SEO Scan Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "SEO Scan Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, "Site: "+result.URL, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Scanned: "+result.ScannedAt.Format("2006-01-02 15:04:05 UTC"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, fmt.Sprintf("Overall score: %d/100", result.Summary.OverallScore), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Scores", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdfScoreRow(pdf, "Technical SEO", result.Summary.Scores.TechnicalSEO)
	pdfScoreRow(pdf, "On-page SEO", result.Summary.Scores.OnPageSEO)
	pdfScoreRow(pdf, "Schema coverage", result.Summary.Scores.SchemaCoverage)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Content", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Sitemaps: %d (%d URLs)   RSS feeds: %d (%d items)",
		result.Summary.ContentFound.Sitemaps, result.Summary.ContentFound.SitemapURLs,
		result.Summary.ContentFound.RSSFeeds, result.Summary.ContentFound.RSSItems), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Articles: %d (%d with schema, %d thin)",
		result.Summary.Articles.Total, result.Summary.Articles.WithSchema,
		result.Summary.Articles.ThinContent), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Products: %d (%d with schema, %d with price)",
		result.Summary.Products.Total, result.Summary.Products.WithSchema,
		result.Summary.Products.WithPrice), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Technical issues", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, issue := range result.TechnicalSEO.Issues {
		pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s - %s", issue.Impact, issue.Issue, issue.Fix), "", "L", false)
	}
	for _, warning := range result.TechnicalSEO.Warnings {
		pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s - %s", warning.Impact, warning.Issue, warning.Fix), "", "L", false)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "On-page issues", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, issue := range result.OnPageSEO.Issues {
		pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s - %s", issue.Impact, issue.Issue, issue.Fix), "", "L", false)
	}
	for _, warning := range result.OnPageSEO.Warnings {
		pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s - %s", warning.Impact, warning.Issue, warning.Fix), "", "L", false)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Structured data", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, "Schemas found: "+strings.Join(result.SchemaValidation.SchemasFound, ", "), "", "L", false)
	for _, issue := range result.SchemaValidation.Errors {
		pdf.MultiCell(0, 5, fmt.Sprintf("Error (%s.%s): %s", issue.SchemaType, issue.Field, issue.Message), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func pdfScoreRow(pdf *gofpdf.Fpdf, label string, score float64) {
	pdf.CellFormat(60, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, strconv.FormatFloat(score, 'f', 0, 64), "", 1, "L", false, 0, "")
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "markdown", "report format: markdown, pdf, or json")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "O", "", "output file path")
	reportCmd.Flags().Int64Var(&reportScanID, "scan-id", 0, "render a recorded scan from the history database")
}
