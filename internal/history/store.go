// Package history persists completed scans in a local SQLite database so
// runs can be compared over time.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	sharedErrors "github.com/vuminhngo/sitescout-cli/internal/shared/errors"
)

// DefaultDBName is the database filename used when none is configured.
const DefaultDBName = "sitescout.db"

// Store wraps the scans database.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one recorded scan.
type Entry struct {
	ID             int64     `json:"id"`
	URL            string    `json:"url"`
	Mode           string    `json:"mode"`
	ScannedAt      time.Time `json:"scanned_at"`
	OverallScore   int       `json:"overall_score"`
	TechnicalScore float64   `json:"technical_score"`
	OnPageScore    float64   `json:"onpage_score"`
	SchemaScore    float64   `json:"schema_score"`
	SitemapURLs    int       `json:"sitemap_urls"`
	RSSItems       int       `json:"rss_items"`
	ArticlesFound  int       `json:"articles_found"`
	ProductsFound  int       `json:"products_found"`
	IssuesCount    int       `json:"issues_count"`
}

// Record is an Entry plus the metrics to store; the full result payload is
// serialized to JSON alongside it.
type Record struct {
	URL            string
	Mode           string
	ScannedAt      time.Time
	OverallScore   int
	TechnicalScore float64
	OnPageScore    float64
	SchemaScore    float64
	SitemapURLs    int
	RSSItems       int
	ArticlesFound  int
	ProductsFound  int
	IssuesCount    int
	Result         any
}

// Open opens or creates the scans database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultDBName
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save records a completed scan.
func (s *Store) Save(ctx context.Context, rec Record) (int64, error) {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return 0, fmt.Errorf("failed to encode result: %w", err)
	}
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (
			url, mode, scanned_at,
			overall_score, technical_score, onpage_score, schema_score,
			sitemap_urls, rss_items, articles_found, products_found, issues_count,
			result
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.URL, rec.Mode, rec.ScannedAt.Format(time.RFC3339),
		rec.OverallScore, rec.TechnicalScore, rec.OnPageScore, rec.SchemaScore,
		rec.SitemapURLs, rec.RSSItems, rec.ArticlesFound, rec.ProductsFound, rec.IssuesCount,
		string(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to save scan: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent scans, newest first. A non-empty url filters
// to that site.
func (s *Store) List(ctx context.Context, url string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT scan_id, url, mode, scanned_at,
		       overall_score, technical_score, onpage_score, schema_score,
		       sitemap_urls, rss_items, articles_found, products_found, issues_count
		FROM scans`
	args := []any{}
	if url != "" {
		query += ` WHERE url = ?`
		args = append(args, url)
	}
	query += ` ORDER BY scanned_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var scannedAt string
		if err := rows.Scan(&e.ID, &e.URL, &e.Mode, &scannedAt,
			&e.OverallScore, &e.TechnicalScore, &e.OnPageScore, &e.SchemaScore,
			&e.SitemapURLs, &e.RSSItems, &e.ArticlesFound, &e.ProductsFound, &e.IssuesCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, scannedAt); err == nil {
			e.ScannedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Result returns the stored JSON payload for one scan.
func (s *Store) Result(ctx context.Context, id int64) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM scans WHERE scan_id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scan %d: %w", id, sharedErrors.ErrScanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan: %w", err)
	}
	return []byte(payload), nil
}
