package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vuminhngo/sitescout-cli/internal/history"
	"github.com/vuminhngo/sitescout-cli/internal/scanner"
	sharedErrors "github.com/vuminhngo/sitescout-cli/internal/shared/errors"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a website's content and SEO",
	Long: `Scan discovers content sources, samples URLs, extracts articles and
products, validates structured data, and scores technical and on-page SEO.`,
}

var scanFullCmd = &cobra.Command{
	Use:   "full <url>",
	Short: "Run the complete content and SEO scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := normalizeTarget(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := scanContext(cmd)
		defer cancel()

		result, err := newScanner().Scan(ctx, target)
		if err != nil {
			return err
		}

		printFullSummary(result)

		path, err := writeResultFile(target, "full", result)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s results written to %s\n", colorInfo("[i]"), path)

		saveHistory(ctx, history.Record{
			URL:            target,
			Mode:           "full",
			ScannedAt:      result.ScannedAt,
			OverallScore:   result.Summary.OverallScore,
			TechnicalScore: result.Summary.Scores.TechnicalSEO,
			OnPageScore:    result.Summary.Scores.OnPageSEO,
			SchemaScore:    result.Summary.Scores.SchemaCoverage,
			SitemapURLs:    result.Summary.ContentFound.SitemapURLs,
			RSSItems:       result.Summary.ContentFound.RSSItems,
			ArticlesFound:  result.Summary.Articles.Total,
			ProductsFound:  result.Summary.Products.Total,
			IssuesCount:    result.Summary.IssuesCount.Technical + result.Summary.IssuesCount.OnPage + result.Summary.IssuesCount.Schema,
			Result:         result,
		})
		return nil
	},
}

var scanQuickCmd = &cobra.Command{
	Use:   "quick <url>",
	Short: "Analyze the homepage only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := normalizeTarget(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := scanContext(cmd)
		defer cancel()

		result, err := newScanner().QuickScan(ctx, target)
		if err != nil {
			return err
		}

		fmt.Printf("\nQuick scan: %s\n", colorInfo(target))
		fmt.Printf("  Technical score: %s\n", formatScoreWithColor(result.Summary.TechnicalScore))
		fmt.Printf("  On-page score:   %s\n", formatScoreWithColor(result.Summary.OnPageScore))
		fmt.Printf("  Schema score:    %s\n", formatScoreWithColor(result.Summary.SchemaScore))
		fmt.Printf("  Total issues:    %d\n", result.Summary.TotalIssues)

		path, err := writeResultFile(target, "quick", result)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s results written to %s\n", colorInfo("[i]"), path)

		saveHistory(ctx, history.Record{
			URL:            target,
			Mode:           "quick",
			ScannedAt:      result.ScannedAt,
			TechnicalScore: result.Summary.TechnicalScore,
			OnPageScore:    result.Summary.OnPageScore,
			SchemaScore:    result.Summary.SchemaScore,
			IssuesCount:    result.Summary.TotalIssues,
			Result:         result,
		})
		return nil
	},
}

var scanArticlesCmd = &cobra.Command{
	Use:   "articles <url>",
	Short: "Discover and extract articles only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := normalizeTarget(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := scanContext(cmd)
		defer cancel()

		result, err := newScanner().ScanArticles(ctx, target)
		if err != nil {
			return err
		}

		fmt.Printf("\nArticles found: %s\n", colorInfo(fmt.Sprintf("%d", result.TotalFound)))
		fmt.Printf("  With schema:  %d (%.1f%%)\n", result.WithSchema, result.WithSchemaPercent)
		fmt.Printf("  Indexable:    %d (%.1f%%)\n", result.IndexableCount, result.IndexablePercent)
		fmt.Printf("  Thin content: %d (%.1f%%)\n", result.ThinContentCount, result.ThinPercent)

		path, err := writeResultFile(target, "articles", result)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s results written to %s\n", colorInfo("[i]"), path)

		saveHistory(ctx, history.Record{
			URL:           target,
			Mode:          "articles",
			ArticlesFound: result.TotalFound,
			Result:        result,
		})
		return nil
	},
}

var scanProductsCmd = &cobra.Command{
	Use:   "products <url>",
	Short: "Discover and extract products only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := normalizeTarget(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := scanContext(cmd)
		defer cancel()

		result, err := newScanner().ScanProducts(ctx, target)
		if err != nil {
			return err
		}

		fmt.Printf("\nProducts found: %s\n", colorInfo(fmt.Sprintf("%d", result.TotalFound)))
		fmt.Printf("  With schema:       %d (%.1f%%)\n", result.WithSchema, result.SchemaCoveragePercent)
		fmt.Printf("  With price:        %d (%.1f%%)\n", result.WithPrice, result.PriceCoveragePercent)
		fmt.Printf("  With availability: %d (%.1f%%)\n", result.WithAvailability, result.AvailabilityCoveragePercent)
		if result.PlatformDetected != "" {
			fmt.Printf("  Platform:          %s\n", result.PlatformDetected)
		}

		path, err := writeResultFile(target, "products", result)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s results written to %s\n", colorInfo("[i]"), path)

		saveHistory(ctx, history.Record{
			URL:           target,
			Mode:          "products",
			ProductsFound: result.TotalFound,
			Result:        result,
		})
		return nil
	},
}

func newScanner() *scanner.Scanner {
	return scanner.New(logger, scanner.Options{
		MaxArticles: scanConfig.MaxArticles,
		MaxProducts: scanConfig.MaxProducts,
		Timeout:     time.Duration(scanConfig.TimeoutSecs) * time.Second,
		Concurrency: scanConfig.Concurrency,
		RateLimit:   scanConfig.RateLimit,
	})
}

// scanContext derives a context honoring the per-command deadline flag. A
// zero deadline means no overall limit.
func scanContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	deadline, _ := cmd.Flags().GetInt("deadline")
	if deadline > 0 {
		return context.WithTimeout(context.Background(), time.Duration(deadline)*time.Second)
	}
	return context.WithCancel(context.Background())
}

// normalizeTarget validates a target URL and defaults the scheme to https.
func normalizeTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: target is required", sharedErrors.ErrInvalidTarget)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: %s", sharedErrors.ErrInvalidTarget, raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %s", sharedErrors.ErrInvalidTarget, parsed.Scheme)
	}
	return strings.TrimRight(parsed.Scheme+"://"+parsed.Host+parsed.Path, "/"), nil
}

func printFullSummary(result *scanner.Result) {
	s := result.Summary

	fmt.Printf("\nScan summary: %s\n", colorInfo(result.URL))
	fmt.Printf("  Content found:\n")
	fmt.Printf("    Sitemaps:     %d (%d URLs)\n", s.ContentFound.Sitemaps, s.ContentFound.SitemapURLs)
	fmt.Printf("    RSS feeds:    %d (%d items)\n", s.ContentFound.RSSFeeds, s.ContentFound.RSSItems)
	fmt.Printf("  Articles: %d total, %d with schema, %d thin\n",
		s.Articles.Total, s.Articles.WithSchema, s.Articles.ThinContent)
	fmt.Printf("  Products: %d total, %d with schema, %d with price\n",
		s.Products.Total, s.Products.WithSchema, s.Products.WithPrice)
	fmt.Printf("  Scores:\n")
	fmt.Printf("    Technical: %s\n", formatScoreWithColor(s.Scores.TechnicalSEO))
	fmt.Printf("    On-page:   %s\n", formatScoreWithColor(s.Scores.OnPageSEO))
	fmt.Printf("    Schema:    %s\n", formatScoreWithColor(s.Scores.SchemaCoverage))
	fmt.Printf("  Overall score: %s\n", formatScoreWithColor(float64(s.OverallScore)))
}

// writeResultFile writes a scan result as indented JSON under the results
// directory and returns the path.
func writeResultFile(target, mode string, result any) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	host := strings.ReplaceAll(parsed.Host, ":", "-")
	name := fmt.Sprintf("scan-%s-%s-%s.json", host, mode, time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(resultsDir, name)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}

// saveHistory records the scan in the local database. Failures are logged,
// not fatal.
func saveHistory(ctx context.Context, rec history.Record) {
	store, err := history.Open(historyDBPath())
	if err != nil {
		logger.Warnw("failed to open scan history", "error", err)
		return
	}
	defer store.Close()

	if _, err := store.Save(ctx, rec); err != nil {
		logger.Warnw("failed to record scan history", "error", err)
	}
}

func historyDBPath() string {
	if scanConfig.DBPath != "" {
		return scanConfig.DBPath
	}
	return filepath.Join(resultsDir, history.DefaultDBName)
}

func init() {
	scanCmd.PersistentFlags().Int("deadline", 0, "overall scan deadline in seconds (0 = no limit)")
	scanCmd.PersistentFlags().IntVar(&scanConfig.TimeoutSecs, "timeout", defaultScanTimeoutSeconds, "per-request timeout in seconds")
	scanCmd.PersistentFlags().IntVar(&scanConfig.Concurrency, "concurrency", defaultScanConcurrency, "concurrent page fetches during extraction")
	scanCmd.PersistentFlags().IntVar(&scanConfig.RateLimit, "rate-limit", defaultScanRateLimit, "requests per second (global)")
	scanCmd.PersistentFlags().IntVar(&scanConfig.MaxArticles, "max-articles", defaultMaxArticles, "maximum articles to extract")
	scanCmd.PersistentFlags().IntVar(&scanConfig.MaxProducts, "max-products", defaultMaxProducts, "maximum products to extract")
	scanCmd.PersistentFlags().StringVar(&scanConfig.DBPath, "db", "", "scan history database path (default <results_dir>/sitescout.db)")

	scanCmd.AddCommand(scanFullCmd)
	scanCmd.AddCommand(scanQuickCmd)
	scanCmd.AddCommand(scanArticlesCmd)
	scanCmd.AddCommand(scanProductsCmd)
}
