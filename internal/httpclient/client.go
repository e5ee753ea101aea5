// Package httpclient provides the shared HTTP client used by all scanners.
// It rotates browser-like User-Agent headers, enforces a per-request timeout,
// and caps how much of a response body is read into memory.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
)

// userAgents is the pool of User-Agent strings rotated per request.
var userAgents = []string{
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Fedora; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
}

// maxBodyBytes caps how much of a response body is kept in memory.
// Large enough that the technical analyzer can still flag oversized pages.
const maxBodyBytes = 8 * 1024 * 1024

// Response is the minimal response surface the scanners depend on.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// Text returns the body decoded to UTF-8, falling back to the raw bytes
// when the charset cannot be determined.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	enc, _, _ := charset.DetermineEncoding(r.Body, r.Header.Get("Content-Type"))
	if enc != nil {
		if decoded, err := enc.NewDecoder().Bytes(r.Body); err == nil {
			return string(decoded)
		}
	}
	return string(r.Body)
}

// IsRedirect reports whether the response is a redirect with a Location header.
func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return r.Header.Get("Location") != ""
	}
	return false
}

// Client wraps http.Client with rotating User-Agent headers. It is safe
// for concurrent use.
type Client struct {
	httpClient *http.Client
	noRedirect *http.Client

	mu  sync.Mutex // guards rng, which is not goroutine-safe
	rng *rand.Rand
}

// New creates a Client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
			MinVersion:         tls.VersionTLS12,
		},
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		noRedirect: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// UserAgent returns a User-Agent string from the rotation pool.
func (c *Client) UserAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return userAgents[c.rng.Intn(len(userAgents))]
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func (c *Client) do(ctx context.Context, client *http.Client, method, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		// A partial body is still usable for analysis.
		body = bytes.TrimSpace(body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    elapsed,
	}, nil
}

// Get performs a GET request following redirects.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, c.httpClient, http.MethodGet, url)
}

// GetNoRedirect performs a GET request without following redirects, so the
// caller can observe each hop of a redirect chain.
func (c *Client) GetNoRedirect(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, c.noRedirect, http.MethodGet, url)
}

// Head performs a HEAD request.
func (c *Client) Head(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, c.httpClient, http.MethodHead, url)
}
