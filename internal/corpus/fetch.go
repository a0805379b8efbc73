package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ppiankov/newsbrief/internal/util"
)

const fetchAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// errStatus marks a non-2xx response
type errStatus struct {
	code   int
	status string
}

func (e *errStatus) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

// Fetcher downloads corpus feeds over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a Fetcher. Proxies fall back to the environment when empty.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, httpProxy, httpsProxy, noProxy string) *Fetcher {
	client := util.NewHTTPClient(int(timeout/time.Second), httpProxy, httpsProxy, noProxy)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	return &Fetcher{
		httpClient: client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
}

// IsURL reports whether s names an http(s) corpus feed rather than a file
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// LoadURL fetches a corpus feed and decodes it like LoadFile. YAML is
// chosen by content type or by the URL's extension.
func (f *Fetcher) LoadURL(ctx context.Context, rawURL string) (*FileProvider, error) {
	body, contentType, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	ext := ".json"
	if strings.Contains(contentType, "yaml") {
		ext = ".yaml"
	} else if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e == ".yaml" || e == ".yml" {
			ext = e
		}
	}

	articles, err := decode(body, ext)
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", rawURL, err)
	}
	return newCleaned(articles), nil
}

// FetchWithRetry fetches rawURL, retrying transient failures with backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) ([]byte, string, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(1<<(attempt-1)) * time.Second)
			if err := ctx.Err(); err != nil {
				return nil, "", err
			}
		}
		body, contentType, err := f.fetch(ctx, rawURL)
		if err == nil {
			return body, contentType, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			break
		}
	}
	return nil, "", lastErr
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &errStatus{code: resp.StatusCode, status: resp.Status}
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// isRetryableFetchError retries 5xx, 429 and transport failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var se *errStatus
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return strings.HasPrefix(err.Error(), "fetch: ")
}
