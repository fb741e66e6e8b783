// Package wiki is a small client for the MediaWiki Action API: search, page
// extracts, external links and disambiguation detection.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Spanish Wikipedia API endpoint.
	DefaultBaseURL   = "https://es.wikipedia.org/w/api.php"
	DefaultUserAgent = "wikireader/1.0 (https://github.com/japaniel/wikireader)"

	maxResponseSize = 32 * 1024 * 1024
)

// ErrPageNotFound is returned when a title does not resolve to a page.
var ErrPageNotFound = errors.New("wiki: page not found")

// DisambiguationError is returned when a title resolves to a disambiguation page.
type DisambiguationError struct {
	Title   string
	Options []string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("wiki: %q is a disambiguation page (%d options)", e.Title, len(e.Options))
}

// APIError is an error object reported by the API itself.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wiki api error %s: %s", e.Code, e.Info)
}

// Page is a resolved article.
type Page struct {
	PageID     int
	Title      string
	URL        string
	Summary    string
	Content    string
	References []string
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond throttles outbound calls; 0 disables throttling.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// Client talks to one MediaWiki installation.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *log.Logger
}

// NewClient creates a new API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	c := &Client{
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		http:      hc,
		logger:    opts.Logger,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// get performs one API call and decodes the response into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wiki: rate limit wait: %w", err)
		}
	}

	params.Set("format", "json")
	params.Set("formatversion", "2")
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	endpoint := c.baseURL + sep + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("wiki: creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("wiki: %s: %w", params.Get("action"), err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug("wiki request", "action", params.Get("action"), "status", resp.StatusCode, "took", time.Since(start))
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wiki: %s returned status %d", params.Get("action"), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("wiki: reading response: %w", err)
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("wiki: decoding response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("wiki: decoding response: %w", err)
	}
	return nil
}
