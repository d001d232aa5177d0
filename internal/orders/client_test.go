package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"streamlens/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHTTPClient struct {
	responses []*http.Response
	requests  []*http.Request
	err       error
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(b)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestClient_ListOrders(t *testing.T) {
	from := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)

	t.Run("follows pagination until has_more is false", func(t *testing.T) {
		fake := &fakeHTTPClient{responses: []*http.Response{
			jsonResponse(t, http.StatusOK, ordersResponse{
				Orders:  []Order{{ID: "o1", Status: "paid", Amount: "10.00", CreatedAt: from}},
				HasMore: true,
			}),
			jsonResponse(t, http.StatusOK, ordersResponse{
				Orders:  []Order{{ID: "o2", Status: "paid", Amount: "5.50", CreatedAt: from.Add(time.Hour)}},
				HasMore: false,
			}),
		}}
		client := NewClient("http://orders.local", "tok", WithHTTPClient(fake), WithPageDelay(0))

		orders, err := client.ListOrders(context.Background(), from, to)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "o1", orders[0].ID)
		assert.Equal(t, "o2", orders[1].ID)

		require.Len(t, fake.requests, 2)
		assert.Equal(t, "Bearer tok", fake.requests[0].Header.Get("Authorization"))
		assert.Contains(t, fake.requests[1].URL.RawQuery, "page=2")
	})

	t.Run("stops at the page cap with truncated results", func(t *testing.T) {
		// One response per request since the body reader is consumed.
		fake := &fakeHTTPClient{}
		for i := 0; i < 3; i++ {
			fake.responses = append(fake.responses, jsonResponse(t, http.StatusOK, ordersResponse{
				Orders:  []Order{{ID: fmt.Sprintf("o%d", i), Status: "paid", Amount: "1.00", CreatedAt: from}},
				HasMore: true,
			}))
		}

		client := NewClient("http://orders.local", "tok",
			WithHTTPClient(fake), WithMaxPages(3), WithPageDelay(0))

		orders, err := client.ListOrders(context.Background(), from, to)
		require.NoError(t, err)
		assert.Len(t, orders, 3)
		assert.Len(t, fake.requests, 3)
	})

	t.Run("maps 429 to rate limited error", func(t *testing.T) {
		fake := &fakeHTTPClient{responses: []*http.Response{
			jsonResponse(t, http.StatusTooManyRequests, map[string]string{"error": "slow down"}),
		}}
		client := NewClient("http://orders.local", "tok", WithHTTPClient(fake), WithPageDelay(0))

		_, err := client.ListOrders(context.Background(), from, to)
		require.Error(t, err)
		assert.True(t, models.IsCode(err, "RATE_LIMITED"))
	})

	t.Run("wraps transport errors as upstream errors", func(t *testing.T) {
		fake := &fakeHTTPClient{err: fmt.Errorf("connection refused")}
		client := NewClient("http://orders.local", "tok", WithHTTPClient(fake), WithPageDelay(0))

		_, err := client.ListOrders(context.Background(), from, to)
		require.Error(t, err)
		assert.True(t, models.IsCode(err, "UPSTREAM_ERROR"))
	})
}
