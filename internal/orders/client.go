// Package orders provides a client for the order service used in GMV analytics.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"streamlens/internal/models"
	"streamlens/internal/observability"
)

// Order is one order row as reported by the order service. Amount is the
// decimal string the upstream returns; it is parsed downstream so a single
// malformed row cannot fail a whole fetch.
type Order struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusCancelled marks orders excluded from GMV.
const StatusCancelled = "cancelled"

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxPages caps how many pages a single ListOrders call will fetch.
func WithMaxPages(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithPageDelay sets the pause between page fetches. The order service rate
// limits aggressively, so the default keeps well under its budget.
func WithPageDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.pageDelay = d
	}
}

// Client is an order service API client.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
	maxPages   int
	pageDelay  time.Duration
}

// NewClient creates a new order service client.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxPages:   20,
		pageDelay:  200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type ordersResponse struct {
	Orders  []Order `json:"orders"`
	HasMore bool    `json:"has_more"`
}

// ListOrders fetches all orders created in [from, to], following pagination
// up to the page cap. Hitting the cap returns what was gathered so far with
// no error; the series is simply truncated.
func (c *Client) ListOrders(ctx context.Context, from, to time.Time) ([]Order, error) {
	var all []Order

	for page := 1; page <= c.maxPages; page++ {
		resp, err := c.fetchPage(ctx, from, to, page)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Orders...)
		if !resp.HasMore {
			return all, nil
		}

		if c.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}
	}

	observability.GlobalLogger.WarnContext(ctx, "order fetch hit page cap, series truncated",
		"max_pages", c.maxPages, "orders", len(all))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, from, to time.Time, page int) (*ordersResponse, error) {
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))
	query.Set("page", fmt.Sprintf("%d", page))

	reqURL := fmt.Sprintf("%s/api/orders?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.OrderAPICallsTotal.WithLabelValues("error").Inc()
		return nil, models.NewUpstreamError("order service", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.OrderAPICallsTotal.WithLabelValues("error").Inc()
		return nil, models.NewUpstreamError("order service", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		observability.OrderAPICallsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil, c.handleAPIError(resp.StatusCode)
	}
	observability.OrderAPICallsTotal.WithLabelValues("200").Inc()

	var parsed ordersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, models.NewUpstreamError("order service", fmt.Errorf("failed to parse orders response: %w", err))
	}
	return &parsed, nil
}

func (c *Client) handleAPIError(statusCode int) error {
	switch statusCode {
	case http.StatusTooManyRequests:
		return models.NewRateLimitedError("order service")
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewUpstreamError("order service", fmt.Errorf("authentication failed (status %d)", statusCode))
	default:
		return models.NewUpstreamError("order service", fmt.Errorf("unexpected status %d", statusCode))
	}
}
