// Package yandex implements search.Provider against the Yandex Images HTML results pages.
package yandex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/search"
)

// Client is a Yandex Images client
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	baseURL      string
	maxPages     int
	maxFileSize  int64
	fetchTimeout time.Duration
	limiter      ratelimit.Limiter
	retry        *retry.Config
	logger       logger.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter gates every results page request
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets the retry policy for results pages
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxFileSize caps the bytes read by FetchImage; zero means unlimited
func WithMaxFileSize(n int64) Option {
	return func(c *Client) { c.maxFileSize = n }
}

// WithFetchTimeout bounds each FetchImage call; zero leaves only the client timeout
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) { c.fetchTimeout = d }
}

// NewClient creates a client from the search settings
func NewClient(cfg config.SearchConfig, opts ...Option) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		},
		baseURL:  baseURL,
		maxPages: cfg.MaxPages,
		limiter:  ratelimit.NewRequestLimiter(cfg.RequestsPerMinute),
		retry:    retry.DefaultConfig(),
		logger:   logger.NewNopLogger(),
	}
	if cfg.Cookie != "" {
		c.headers["Cookie"] = cfg.Cookie
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search yields results page by page. Pagination stops at the first page
// that adds nothing new, or after the configured page limit.
func (c *Client) Search(ctx context.Context, query string, size search.Size) iter.Seq2[search.ImageResult, error] {
	return func(yield func(search.ImageResult, error) bool) {
		seen := make(map[string]struct{})

		for pageIndex := 0; c.maxPages <= 0 || pageIndex < c.maxPages; pageIndex++ {
			results, err := retry.DoWithResult(ctx, c.retry, func(ctx context.Context) ([]search.ImageResult, error) {
				return c.fetchPage(ctx, query, size, pageIndex)
			})
			if err != nil {
				yield(search.ImageResult{}, err)
				return
			}

			fresh := 0
			for _, result := range results {
				if _, dup := seen[result.PreviewURL]; dup {
					continue
				}
				seen[result.PreviewURL] = struct{}{}
				fresh++
				if !yield(result, nil) {
					return
				}
			}

			if fresh == 0 {
				c.logger.DebugWithFields("no new results, ending pagination", map[string]interface{}{
					"query": query,
					"page":  pageIndex,
				})
				return
			}
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, query string, size search.Size, pageIndex int) ([]search.ImageResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	pageURL := SearchURL(c.baseURL, query, size, pageIndex)
	body, finalURL, err := c.get(ctx, pageURL, 0)
	if err != nil {
		return nil, err
	}

	if strings.Contains(finalURL.Path, "captcha") {
		logger.LogRateLimit(c.logger, finalURL.String(), 0)
		return nil, errs.New(errs.ErrorTypeRateLimit, "captcha challenge", nil)
	}

	parsed, err := parsePage(bytes.NewReader(body), finalURL)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, "failed to parse results page", err)
	}
	if parsed.Captcha && len(parsed.Results) == 0 {
		logger.LogRateLimit(c.logger, pageURL, 0)
		return nil, errs.New(errs.ErrorTypeRateLimit, "captcha challenge", nil)
	}

	c.logger.DebugWithFields("results page parsed", map[string]interface{}{
		"query":   query,
		"page":    pageIndex,
		"results": len(parsed.Results),
		"skipped": parsed.Skipped,
	})
	return parsed.Results, nil
}

// FetchImage downloads the bytes at imageURL in a single attempt
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	fetchCtx := ctx
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}
	data, _, err := c.get(fetchCtx, imageURL, c.maxFileSize)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.New(errs.ErrorTypeNetwork, "image fetch timed out", err)
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, "empty image body", nil)
	}
	return data, nil
}

// get performs a GET request and returns the body and the final URL after redirects
func (c *Client) get(ctx context.Context, rawURL string, limit int64) ([]byte, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, errs.New(errs.ErrorTypeUnknown, "failed to create request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, nil, err
	}

	reader := io.Reader(resp.Body)
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, errs.New(errs.ErrorTypeNetwork, "failed to read response body", err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, nil, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("response exceeds %d bytes", limit), nil)
	}

	return body, resp.Request.URL, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, "request failed", err)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus maps HTTP status codes to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "access denied", Code: code}
	case code == http.StatusNotFound || code == http.StatusGone:
		return &errs.Error{Type: errs.ErrorTypeNotFound, Message: "resource not found", Code: code}
	case code == http.StatusTooManyRequests:
		logger.LogRateLimit(c.logger, resp.Request.URL.String(), retryAfter(resp))
		return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "rate limit exceeded", Code: code}
	case code >= 500:
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "server error", Code: code}
	case errs.IsRetryableStatusCode(code):
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: fmt.Sprintf("transient status code: %d", code), Code: code}
	default:
		return &errs.Error{Type: errs.ErrorTypeUnknown, Message: fmt.Sprintf("unexpected status code: %d", code), Code: code}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v + "s"); err == nil {
		return d
	}
	return 0
}
