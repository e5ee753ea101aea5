package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vuminhngo/sitescout-cli/internal/history"
)

var (
	historyURL   string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyDBPath())
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(context.Background(), historyURL, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No recorded scans.")
			return nil
		}

		fmt.Printf("%-5s %-40s %-9s %-20s %-8s %-9s %-9s\n",
			"ID", "URL", "MODE", "SCANNED", "SCORE", "ARTICLES", "PRODUCTS")
		for _, e := range entries {
			url := e.URL
			if len(url) > 40 {
				url = url[:37] + "..."
			}
			fmt.Printf("%-5d %-40s %-9s %-20s %-8s %-9d %-9d\n",
				e.ID, url, e.Mode, e.ScannedAt.Format("2006-01-02 15:04:05"),
				formatScoreWithColor(float64(e.OverallScore)),
				e.ArticlesFound, e.ProductsFound)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyURL, "url", "", "filter scans by site URL")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum scans to list")
}
