package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGetSetsBrowserHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	client := New(5 * time.Second)
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatal(err)
	}

	ua := got.Get("User-Agent")
	inPool := false
	for _, candidate := range userAgents {
		if ua == candidate {
			inPool = true
			break
		}
	}
	if !inPool {
		t.Errorf("User-Agent %q not from rotation pool", ua)
	}
	if !strings.Contains(got.Get("Accept"), "text/html") {
		t.Errorf("Accept header %q", got.Get("Accept"))
	}
	if got.Get("Accept-Language") == "" {
		t.Error("missing Accept-Language header")
	}
}

func TestGetNoRedirectStopsAtFirstHop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusMovedPermanently)
			return
		}
		w.Write([]byte("final"))
	}))
	defer server.Close()

	client := New(5 * time.Second)

	resp, err := client.GetNoRedirect(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("status %d, want 301", resp.StatusCode)
	}
	if !resp.IsRedirect() {
		t.Error("expected IsRedirect")
	}
	if resp.Header.Get("Location") != "/end" {
		t.Errorf("location %q", resp.Header.Get("Location"))
	}

	followed, err := client.Get(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatal(err)
	}
	if followed.StatusCode != 200 || string(followed.Body) != "final" {
		t.Errorf("followed status %d body %q", followed.StatusCode, followed.Body)
	}
}

func TestTextDecodesCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" with a Latin-1 encoded é.
		w.Write([]byte{'c', 'a', 'f', 0xE9})
	}))
	defer server.Close()

	client := New(5 * time.Second)
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}

	if resp.Text() != "café" {
		t.Errorf("decoded text %q, want café", resp.Text())
	}
}

func TestIsRedirect(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		location string
		want     bool
	}{
		{"301 with location", 301, "/x", true},
		{"302 with location", 302, "/x", true},
		{"308 with location", 308, "/x", true},
		{"301 without location", 301, "", false},
		{"200", 200, "", false},
		{"404", 404, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.location != "" {
				header.Set("Location", tt.location)
			}
			resp := &Response{StatusCode: tt.status, Header: header}
			if got := resp.IsRedirect(); got != tt.want {
				t.Errorf("IsRedirect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method %s", r.Method)
		}
		w.Header().Set("X-Probe", "yes")
	}))
	defer server.Close()

	client := New(5 * time.Second)
	resp, err := client.Head(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get("X-Probe") != "yes" {
		t.Error("missing probe header")
	}
	if len(resp.Body) != 0 {
		t.Errorf("HEAD body %q", resp.Body)
	}
}

func TestConcurrentGets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := New(5 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				resp, err := client.Get(context.Background(), server.URL)
				if err != nil {
					t.Errorf("concurrent Get: %v", err)
					return
				}
				if resp.StatusCode != http.StatusOK {
					t.Errorf("status %d", resp.StatusCode)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client := New(5 * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Get(ctx, server.URL); err == nil {
		t.Error("expected context deadline error")
	}
}
