package util

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/domain"
)

func testClient(ttl int) *HTTPClient {
	cfg := config.DefaultConfig().HTTP
	cfg.RetryDelay = 0
	cfg.MaxRetries = 2
	cfg.CacheTTL = ttl
	return NewHTTPClient(cfg, zap.NewNop())
}

func TestGetBytesRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	got, err := testClient(0).GetString(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetString failed: %v", err)
	}
	if got != "ok" || calls.Load() != 3 {
		t.Errorf("got %q after %d calls", got, calls.Load())
	}
}

func TestGetBytesDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testClient(0).GetBytes(context.Background(), srv.URL)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestGetBytesCachesResponses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("manifest"))
	}))
	defer srv.Close()

	c := testClient(60)
	for i := 0; i < 3; i++ {
		if _, err := c.GetBytes(context.Background(), srv.URL); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls.Load())
	}

	c.Invalidate(srv.URL)
	if _, err := c.GetBytes(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected refetch after Invalidate, got %d calls", calls.Load())
	}
}

func TestOpenSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "custom/2" || r.Header.Get("Accept") != "application/xml" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := testClient(0).Open(context.Background(), srv.URL,
		WithHeader("User-Agent", "custom/2"), WithHeader("Accept", "application/xml"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	CloseResponseBodySilent(resp.Body)
}
