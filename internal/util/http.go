// Package util provides shared utilities for the craftinstall application.
//
//nolint:revive // util is a common package name for shared utilities
package util

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/domain"
)

// RequestOption mutates an outgoing request
type RequestOption func(*http.Request)

// WithHeader sets a request header, overriding defaults such as User-Agent
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// HTTPClient is the shared upstream client. It is safe for concurrent use by
// catalog loads and in-flight downloads.
type HTTPClient struct {
	*http.Client
	logger    *zap.Logger
	userAgent string
	timeout   time.Duration
	retry     RetryConfig
	cache     *responseCache
}

// NewHTTPClient creates the shared client from HTTP settings. Whole-request
// timeouts apply to manifest reads only; artifact downloads are bounded by
// their context.
func NewHTTPClient(cfg config.HTTPConfig, logger *zap.Logger) *HTTPClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &HTTPClient{
		Client:    &http.Client{Transport: transport},
		logger:    logger,
		userAgent: cfg.UserAgent,
		timeout:   timeout,
		retry:     RetryConfig{MaxRetries: cfg.MaxRetries, RetryDelay: cfg.RetryDelay},
		cache:     newResponseCache(time.Duration(cfg.CacheTTL) * time.Second),
	}
}

// Do performs an HTTP request. Callers must close the response body.
// Use CloseResponseBody for safe cleanup.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// Open issues a GET and returns the response when the status is 200.
// Callers own the body.
func (c *HTTPClient) Open(ctx context.Context, url string, opts ...RequestOption) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.CloseResponseBody(resp.Body)
		return nil, &domain.APIError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

// GetBytes downloads a small document, retrying transient failures and
// serving repeated reads from the response cache.
func (c *HTTPClient) GetBytes(ctx context.Context, url string, opts ...RequestOption) ([]byte, error) {
	if data, ok := c.cache.get(url); ok {
		return data, nil
	}

	var data []byte
	err := WithRetry(ctx, c.retry, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.Open(reqCtx, url, opts...)
		if err != nil {
			c.logger.Debug("Upstream request failed", zap.String("url", url), zap.Error(err))
			return err
		}
		defer c.CloseResponseBody(resp.Body)

		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	c.cache.set(url, data)
	return data, nil
}

// GetString is GetBytes for text documents
func (c *HTTPClient) GetString(ctx context.Context, url string, opts ...RequestOption) (string, error) {
	data, err := c.GetBytes(ctx, url, opts...)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Invalidate drops cached responses so the next read goes upstream
func (c *HTTPClient) Invalidate(urls ...string) {
	c.cache.drop(urls...)
}

// CloseResponseBody safely closes a response body, logging any errors
func (c *HTTPClient) CloseResponseBody(body io.Closer) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil {
		c.logger.Warn("Failed to close response body", zap.Error(err))
	}
}

// CloseResponseBodySilent closes a response body without logging (for health checks)
func CloseResponseBodySilent(body io.Closer) {
	if body != nil {
		_ = body.Close()
	}
}

type cachedResponse struct {
	data       []byte
	expiration time.Time
}

// responseCache is a TTL cache of manifest bodies keyed by URL.
// A zero TTL disables it.
type responseCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cachedResponse
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{ttl: ttl, entries: make(map[string]cachedResponse)}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiration) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

func (c *responseCache) set(key string, data []byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedResponse{data: data, expiration: time.Now().Add(c.ttl)}
}

func (c *responseCache) drop(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.entries = make(map[string]cachedResponse)
		return
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
}
