package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/spell"
	"github.com/ppiankov/sentiscope/internal/util"
)

const (
	// DefaultDictionaryMaxBytes bounds a dictionary download
	DefaultDictionaryMaxBytes = 32 << 20

	fetchAttempts = 3
	maxRedirects  = 3

	// maxRetryAfter caps how long a server may ask us to back off
	maxRetryAfter = time.Minute
)

// ErrDictionaryTooLarge is returned when a download exceeds the size limit
var ErrDictionaryTooLarge = errors.New("dictionary exceeds size limit")

// StatusError is a non-2xx reply from the dictionary host
type StatusError struct {
	Code       int
	RetryAfter time.Duration // From the Retry-After header, zero when absent
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, http.StatusText(e.Code))
}

// Temporary reports whether the host may answer differently later
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// DictionaryFetcher downloads frequency dictionaries over HTTP
type DictionaryFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // Nil skips robots.txt

	// sleep waits between attempts; it returns early with ctx's error
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDictionaryFetcher creates a fetcher. Empty proxy settings fall back to the environment.
func NewDictionaryFetcher(timeout time.Duration, userAgent string, maxBytes int64, httpProxy, httpsProxy, noProxy string) *DictionaryFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultDictionaryMaxBytes
	}

	return &DictionaryFetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy)},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RespectRobots makes every fetch consult robots.txt on the dictionary host first
func (f *DictionaryFetcher) RespectRobots() {
	f.robots = util.NewRobotsChecker(f.httpClient, f.userAgent, f.httpClient.Timeout)
}

// Fetch makes one attempt at retrieving the raw dictionary body from rawURL
func (f *DictionaryFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		// Not wrapped: a malformed URL is a *url.Error too, and must not be retried
		return nil, fmt.Errorf("create request: %v", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	// One byte past the limit tells an oversized body from an exact fit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDictionaryTooLarge, f.maxBytes)
	}
	return body, nil
}

// FetchWithRetry checks robots.txt when enabled, then retries transient
// failures with linear backoff or the server's Retry-After
func (f *DictionaryFetcher) FetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	if f.robots != nil {
		delay, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if delay > 0 {
			if err := f.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	var wait time.Duration
	for attempt := 1; ; attempt++ {
		if wait > 0 {
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		body, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if attempt == fetchAttempts || !retryable(err) || ctx.Err() != nil {
			return nil, err
		}

		wait = time.Duration(attempt) * time.Second
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
			wait = statusErr.RetryAfter
		}
		logger.Debug("Dictionary fetch attempt %d failed (%v), retrying in %s", attempt, err, wait)
	}
}

// Download fetches a dictionary, checks that it parses, and writes it to path.
// Returns the number of distinct terms.
func (f *DictionaryFetcher) Download(ctx context.Context, rawURL, path string, termIndex, countIndex int) (int, error) {
	body, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	terms, err := spell.CountTerms(bytes.NewReader(body), termIndex, countIndex)
	if err != nil {
		return 0, fmt.Errorf("parse dictionary: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create dictionary dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return 0, fmt.Errorf("write dictionary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("write dictionary: %w", err)
	}

	return terms, nil
}

// retryable reports whether an error from Fetch is worth another attempt
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	// Transport failures surface from http.Client as *url.Error
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// parseRetryAfter understands the delay-seconds and HTTP-date forms
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}

	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = time.Until(at)
	}
	return min(max(d, 0), maxRetryAfter)
}
