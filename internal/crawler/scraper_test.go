package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"steamscraper/internal/config"
)

func newTestScraper(t *testing.T, handler http.HandlerFunc) (*Scraper, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default().Crawler
	cfg.BaseURL = server.URL
	cfg.DelayMs = new(int)
	cfg.Retry = config.RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    1,
		MaxDelayMs:        5,
		BackoffMultiplier: 2.0,
		TimeoutSec:        5,
	}

	return NewScraper(&cfg), server
}

func TestScraper_Fetch(t *testing.T) {
	var gotPath, gotAgent string

	var gotCookies []*http.Cookie

	s, server := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		gotCookies = r.Cookies()
		_, _ = w.Write([]byte("<html><div class=\"apphub_AppName\">Portal 2</div></html>"))
	})

	res, err := s.Fetch(context.Background(), FetchRequest{AppID: 620})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/app/620/" {
		t.Errorf("path = %q, want /app/620/", gotPath)
	}

	if gotAgent == "" {
		t.Error("expected a browser user agent")
	}

	if len(gotCookies) != 0 {
		t.Errorf("expected no cookies on a plain request, got %v", gotCookies)
	}

	if res.URL != server.URL+"/app/620/" {
		t.Errorf("URL = %q", res.URL)
	}

	if res.AgeGateBypassed {
		t.Error("AgeGateBypassed should be false")
	}

	if res.HTML == "" || res.StatusCode != http.StatusOK {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestScraper_Fetch_Headers(t *testing.T) {
	var got http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().Crawler
	cfg.BaseURL = server.URL
	cfg.DelayMs = new(int)
	cfg.UserAgent = "steamscraper-test/1.0"
	cfg.Headers = map[string]string{"X-Archive": "games"}

	if _, err := NewScraper(&cfg).Fetch(context.Background(), FetchRequest{AppID: 10}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if ua := got.Get("User-Agent"); ua != "steamscraper-test/1.0" {
		t.Errorf("User-Agent = %q", ua)
	}

	if v := got.Get("X-Archive"); v != "games" {
		t.Errorf("X-Archive = %q", v)
	}

	if v := got.Get("Accept-Language"); v != "en-US,en;q=0.9" {
		t.Errorf("Accept-Language = %q", v)
	}
}

func TestScraper_Fetch_AgeVerifiedCookies(t *testing.T) {
	cookies := map[string]string{}

	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		for _, c := range r.Cookies() {
			cookies[c.Name] = c.Value
		}
		_, _ = w.Write([]byte("<html></html>"))
	})

	res, err := s.Fetch(context.Background(), FetchRequest{AppID: 1, AgeVerified: true})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !res.AgeGateBypassed {
		t.Error("AgeGateBypassed should be true")
	}

	want := map[string]string{
		"birthtime":            "568022401",
		"lastagecheckage":      "1-0-1988",
		"wants_mature_content": "1",
		"mature_content":       "1",
	}
	for name, value := range want {
		if cookies[name] != value {
			t.Errorf("cookie %s = %q, want %q", name, cookies[name], value)
		}
	}
}

func TestScraper_Fetch_RetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32

	s, _ := newTestScraper(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	})

	if _, err := s.Fetch(context.Background(), FetchRequest{AppID: 2}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestScraper_Fetch_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "not found fails at once", status: http.StatusNotFound, wantCalls: 1},
		{name: "rate limited exhausts attempts", status: http.StatusTooManyRequests, wantCalls: 3},
		{name: "server error fails at once", status: http.StatusInternalServerError, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			s, _ := newTestScraper(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			})

			_, err := s.Fetch(context.Background(), FetchRequest{AppID: 3})
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("Fetch() error = %v, want ErrFetch", err)
			}

			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestScraper_Fetch_Cancelled(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Fetch(ctx, FetchRequest{AppID: 4}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch() error = %v, want context.Canceled", err)
	}
}

func TestReadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	content, err := ReadLocalFile(path)
	if err != nil || content != "<html></html>" {
		t.Fatalf("ReadLocalFile() = %q, %v", content, err)
	}

	if _, err := ReadLocalFile(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
		http.StatusNotFound:            false,
		http.StatusInternalServerError: false,
	} {
		if got := isRetryableStatus(status); got != want {
			t.Errorf("isRetryableStatus(%d) = %v, want %v", status, got, want)
		}
	}
}
