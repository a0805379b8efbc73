package corpus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const feedJSON = `{"articles": [
  {"title": "Chipmaker expands fab", "source": "Wire", "summary": "<p>Capacity doubles.</p>", "published_at": "2025-01-15T08:00:00Z"}
]}`

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestLoadURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, feedJSON)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	p, err := fetcher.LoadURL(context.Background(), server.URL+"/feed")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Expected 1 article, got %d", p.Len())
	}
	a := p.Articles()[0]
	if a.ID != "article-1" || a.Summary != "Capacity doubles." {
		t.Errorf("Article not cleaned: %+v", a)
	}
}

func TestLoadURL_YAMLByContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = fmt.Fprint(w, "- title: Rates hold\n  source: Wire\n")
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	p, err := fetcher.LoadURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Len() != 1 || p.Articles()[0].Title != "Rates hold" {
		t.Errorf("Unexpected articles: %+v", p.Articles())
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	body, _, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(body) != "[]" {
		t.Errorf("Unexpected body: %s", body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	_, _, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	if _, _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != fetchAttempts {
		t.Errorf("Expected %d attempts, got %d", fetchAttempts, attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		desc      string
		err       error
		retryable bool
	}{
		{"503", &errStatus{code: 503, status: "503 Service Unavailable"}, true},
		{"500", &errStatus{code: 500, status: "500 Internal Server Error"}, true},
		{"429", &errStatus{code: 429, status: "429 Too Many Requests"}, true},
		{"404", &errStatus{code: 404, status: "404 Not Found"}, false},
		{"403", &errStatus{code: 403, status: "403 Forbidden"}, false},
		{"wrapped status", fmt.Errorf("load: %w", &errStatus{code: 502, status: "502 Bad Gateway"}), true},
		{"connection refused", errors.New("fetch: connection refused"), true},
		{"canceled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"bad request", errors.New("create request: invalid URL"), false},
		{"read body", errors.New("read body: unexpected EOF"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	for in, want := range map[string]bool{
		"https://example.com/feed.json": true,
		"http://localhost:8080":         true,
		"articles.json":                 false,
		"/tmp/https.json":               false,
	} {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}
