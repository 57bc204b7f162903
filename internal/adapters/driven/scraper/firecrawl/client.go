// Package firecrawl implements the scraper port against the Firecrawl
// scraping API.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.Scraper = (*Client)(nil)

// ClientOptions configures the Firecrawl client.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client scrapes entity pages through the Firecrawl HTTP API and parses
// the returned HTML into structured content.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewClient creates a Firecrawl client with sane retry defaults.
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		HTML     string `json:"html"`
		Metadata struct {
			Title      string `json:"title"`
			StatusCode int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
}

// Scrape fetches pageURL via Firecrawl and extracts its structured body.
func (c *Client) Scrape(ctx context.Context, pageURL string) (*domain.ScrapeResult, error) {
	body, err := json.Marshal(scrapeRequest{
		URL:             pageURL,
		Formats:         []string{"html"},
		OnlyMainContent: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrScrapeFailed, err)
	}

	endpoint := c.baseURL + "/v2/scrape"
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: build request: %v", domain.ErrScrapeFailed, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				logger.Debug("firecrawl: request failed, retrying: %v", err)
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrScrapeFailed, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("%w: read response: %v", domain.ErrScrapeFailed, readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
			if attempt < c.maxRetries {
				logger.Debug("firecrawl: status %d, retrying", resp.StatusCode)
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrScrapeFailed, resp.StatusCode, apiError(respBody))
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrScrapeInvalid, resp.StatusCode, apiError(respBody))
		}

		var parsed scrapeResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", domain.ErrScrapeFailed, err)
		}
		if !parsed.Success {
			return nil, fmt.Errorf("%w: %s", domain.ErrScrapeFailed, parsed.Error)
		}
		// A 404 from the target site means the page is gone, not that the
		// scrape transport failed.
		if parsed.Data.Metadata.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: target returned %d for %s", domain.ErrScrapeInvalid, parsed.Data.Metadata.StatusCode, pageURL)
		}

		result, err := parsePage(parsed.Data.HTML)
		if err != nil {
			return nil, err
		}
		if result.Title == "" {
			result.Title = strings.TrimSpace(parsed.Data.Metadata.Title)
		}
		return result, nil
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func apiError(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
