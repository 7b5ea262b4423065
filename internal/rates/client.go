// Package rates acquires the USD to INR exchange rate from a remote endpoint
// and keeps a cached snapshot in the KV store.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://v6.exchangerate-api.com"

var (
	ErrInvalidResponse = errors.New("invalid API response format")
	ErrMissingAPIKey   = errors.New("exchange rate API key not configured")
)

// Quote is the result of one successful fetch.
type Quote struct {
	INR         decimal.Decimal
	LastUpdated time.Time
}

// Fetcher retrieves the latest quote.
type Fetcher interface {
	Fetch(ctx context.Context) (Quote, error)
}

// Client fetches quotes from an exchangerate-api v6 compatible endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

var _ Fetcher = (*Client)(nil)

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(timeout),
		now:        time.Now,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

type latestResponse struct {
	Result            string                     `json:"result"`
	ErrorType         string                     `json:"error-type"`
	TimeLastUpdateUTC string                     `json:"time_last_update_utc"`
	ConversionRates   map[string]decimal.Decimal `json:"conversion_rates"`
	Rates             map[string]decimal.Decimal `json:"rates"`
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v6/%s/latest/USD", c.baseURL, url.PathEscape(c.apiKey))
}

// Fetch performs GET {base}/v6/{key}/latest/USD and extracts the INR rate.
func (c *Client) Fetch(ctx context.Context) (Quote, error) {
	if c.apiKey == "" {
		return Quote{}, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("request exchange rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Quote{}, fmt.Errorf("API error: %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return c.quoteFrom(body)
}

func (c *Client) quoteFrom(body latestResponse) (Quote, error) {
	if body.Result == "error" {
		if body.ErrorType != "" {
			return Quote{}, errors.New(body.ErrorType)
		}
		return Quote{}, errors.New("API error")
	}

	rates := body.ConversionRates
	if rates == nil {
		rates = body.Rates
	}
	inr, ok := rates["INR"]
	if !ok || !inr.IsPositive() {
		return Quote{}, ErrInvalidResponse
	}

	updated := c.now()
	if body.TimeLastUpdateUTC != "" {
		if t, err := time.Parse(time.RFC1123Z, body.TimeLastUpdateUTC); err == nil {
			updated = t
		}
	}
	return Quote{INR: inr, LastUpdated: updated.UTC()}, nil
}
