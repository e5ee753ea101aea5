package cmd

import (
	"strings"
	"testing"
)

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare host", "example.com", "https://example.com", false},
		{"https kept", "https://example.com", "https://example.com", false},
		{"http kept", "http://example.com", "http://example.com", false},
		{"trailing slash trimmed", "https://example.com/blog/", "https://example.com/blog", false},
		{"path kept", "example.com/blog", "https://example.com/blog", false},
		{"whitespace trimmed", "  example.com  ", "https://example.com", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"ftp rejected", "ftp://example.com", "", true},
		{"scheme only", "https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeTarget(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("normalizeTarget(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeTarget(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("normalizeTarget(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHistoryDBPathPrecedence(t *testing.T) {
	origDB := scanConfig.DBPath
	origDir := resultsDir
	defer func() {
		scanConfig.DBPath = origDB
		resultsDir = origDir
	}()

	scanConfig.DBPath = "/tmp/explicit.db"
	if got := historyDBPath(); got != "/tmp/explicit.db" {
		t.Errorf("explicit path ignored: %q", got)
	}

	scanConfig.DBPath = ""
	resultsDir = "/tmp/results"
	if got := historyDBPath(); !strings.HasPrefix(got, "/tmp/results") {
		t.Errorf("expected results-dir fallback, got %q", got)
	}
}
