package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"steamscraper/internal/config"
	"steamscraper/pkg/utils"
)

// Fetch errors.
var (
	ErrFetch    = errors.New("fetch failed")
	ErrBlocked  = errors.New("page blocked")
	ErrAgeGated = errors.New("page still age gated")
)

// FetchRequest asks for one store page. AgeVerified attaches the
// age-verification cookies to this request only.
type FetchRequest struct {
	AppID       int
	AgeVerified bool
}

// FetchResult is the markup of one store page together with how it was reached.
type FetchResult struct {
	AppID           int
	URL             string
	HTML            string
	StatusCode      int
	Duration        time.Duration
	AgeGateBypassed bool
}

// Fetcher retrieves store pages.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// Scraper fetches store pages over HTTP with config-driven retry logic and a
// politeness delay between requests.
type Scraper struct {
	client      *resty.Client
	retryPolicy *config.RetryPolicy
	ageGate     config.AgeGateConfig
	baseURL     string
}

// NewScraper creates a scraper from the crawler section of the config.
func NewScraper(cfg *config.CrawlerConfig) *Scraper {
	client := resty.New()
	client.SetTimeout(cfg.Retry.GetTimeout())
	client.Header = utils.BuildHeaders(cfg.UserAgent, cfg.Headers)

	limiter := rate.NewLimiter(rate.Every(cfg.Delay()), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	retry := cfg.Retry

	return &Scraper{
		client:      client,
		retryPolicy: &retry,
		ageGate:     cfg.AgeGate,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// AppURL returns the store page URL of appID.
func (s *Scraper) AppURL(appID int) string {
	return s.baseURL + "/app/" + strconv.Itoa(appID) + "/"
}

// Fetch implements Fetcher. Transport errors and retryable statuses are
// retried with exponential backoff; any other non-200 status fails at once.
func (s *Scraper) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	url := s.AppURL(req.AppID)

	var (
		lastErr        error
		lastStatusCode int
	)

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= s.retryPolicy.MaxAttempts; attempt++ {
		if err := sleepContext(ctx, s.retryPolicy.GetRetryDelay(attempt)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
		}

		r := s.client.R().SetContext(ctx)
		if req.AgeVerified {
			r.SetCookies(s.ageCookies())
		}

		startTime := time.Now()
		resp, err := r.Get(url)
		totalDuration += time.Since(startTime)

		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, ctx.Err())
			}

			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, s.retryPolicy.MaxAttempts, err)

			continue
		}

		lastStatusCode = resp.StatusCode()

		if lastStatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code %d (attempt %d/%d)", lastStatusCode, attempt, s.retryPolicy.MaxAttempts)

			if !isRetryableStatus(lastStatusCode) {
				break
			}

			continue
		}

		return &FetchResult{
			AppID:           req.AppID,
			URL:             url,
			HTML:            resp.String(),
			StatusCode:      lastStatusCode,
			Duration:        totalDuration,
			AgeGateBypassed: req.AgeVerified,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s (status %d): %w", ErrFetch, url, lastStatusCode, lastErr)
}

func (s *Scraper) ageCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: "birthtime", Value: s.ageGate.Birthtime},
		{Name: "lastagecheckage", Value: s.ageGate.LastAgeCheckAge},
		{Name: "wants_mature_content", Value: "1"},
		{Name: "mature_content", Value: "1"},
	}
}

// ReadLocalFile reads a saved store page from disk.
func ReadLocalFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read local file %s: %w", filePath, err)
	}

	return string(content), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusRequestTimeout: // 408
		return true
	}

	return false
}
