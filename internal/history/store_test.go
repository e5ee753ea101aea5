package history

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "scans.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, Record{
		URL:            "https://example.com",
		Mode:           "full",
		ScannedAt:      time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
		OverallScore:   72,
		TechnicalScore: 80,
		OnPageScore:    70,
		SchemaScore:    65,
		SitemapURLs:    40,
		ArticlesFound:  12,
		IssuesCount:    3,
		Result:         map[string]any{"ok": true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if first <= 0 {
		t.Fatalf("id %d", first)
	}

	second, err := store.Save(ctx, Record{
		URL:          "https://example.com",
		Mode:         "quick",
		ScannedAt:    time.Date(2025, 1, 11, 12, 0, 0, 0, time.UTC),
		OverallScore: 75,
		Result:       map[string]any{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, Record{
		URL:          "https://other.example",
		Mode:         "full",
		ScannedAt:    time.Date(2025, 1, 12, 12, 0, 0, 0, time.UTC),
		OverallScore: 40,
		Result:       map[string]any{},
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries %d", len(entries))
	}
	// Newest first.
	if entries[0].URL != "https://other.example" {
		t.Errorf("first entry %q", entries[0].URL)
	}
	if entries[2].ID != first {
		t.Errorf("oldest entry id %d, want %d", entries[2].ID, first)
	}
	if entries[2].OverallScore != 72 || entries[2].TechnicalScore != 80 {
		t.Errorf("scores %d/%v", entries[2].OverallScore, entries[2].TechnicalScore)
	}
	if !entries[1].ScannedAt.Equal(time.Date(2025, 1, 11, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("scanned_at %v", entries[1].ScannedAt)
	}
	_ = second
}

func TestListFilterAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.Save(ctx, Record{
			URL:       "https://example.com",
			Mode:      "full",
			ScannedAt: time.Date(2025, 2, 1+i, 0, 0, 0, 0, time.UTC),
			Result:    map[string]any{},
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Save(ctx, Record{
		URL:    "https://other.example",
		Mode:   "full",
		Result: map[string]any{},
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(ctx, "https://example.com", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries %d, want limit of 3", len(entries))
	}
	for _, e := range entries {
		if e.URL != "https://example.com" {
			t.Errorf("unexpected URL %q", e.URL)
		}
	}
}

func TestResultRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payload := map[string]any{
		"url":           "https://example.com",
		"overall_score": float64(88),
	}
	id, err := store.Save(ctx, Record{URL: "https://example.com", Mode: "full", Result: payload})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := store.Result(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["overall_score"] != float64(88) {
		t.Errorf("payload %v", decoded)
	}
}

func TestResultNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Result(context.Background(), 999); err == nil {
		t.Error("expected error for missing scan")
	}
}

func TestOpenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "custom.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if store.Path() != filepath.Join(dir, "custom.db") {
		t.Errorf("path %q", store.Path())
	}
}
