// Package portal is the outbound adapter for the INMET historical-data
// portal: a timeout-bounded HTTP client plus the HTML link discovery that
// turns index and listing pages into archive URLs.
package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// RequestError reports a non-success HTTP status for a single URL. It is
// always handled at the failing item's boundary; one bad archive or year
// never aborts the run.
type RequestError struct {
	URL    string
	Status int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: status %d", e.URL, e.Status)
}

// Response is a completed download: the body plus the declared content type,
// which callers use to tell direct archive responses from listing pages.
type Response struct {
	Body        []byte
	ContentType string
}

// IsHTML reports whether the server declared an HTML media type.
func (r Response) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "text/html")
}

// Client wraps http.Client with the portal's fixed timeout and a browser
// User-Agent (the portal serves some paths differently to unknown agents).
// No retries: a failed request surfaces immediately to its caller.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a portal client with the given per-request timeout.
func NewClient(timeout time.Duration, userAgent string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Get downloads a URL. Any status outside 2xx is a *RequestError.
func (c *Client) Get(ctx context.Context, url string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &RequestError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read body of %s: %w", url, err)
	}

	c.logger.Debug("downloaded",
		"url", url,
		"bytes", len(body),
		"content_type", resp.Header.Get("Content-Type"),
		"duration", time.Since(start),
	)

	return Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
