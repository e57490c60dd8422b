// Package remote implements order.Creator and catalog.Remote against the
// backoffice HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fieldflow/pkg/catalog"
	"fieldflow/pkg/order"
)

// Client talks to the backoffice order service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Create submits a draft order. Transport failures and 5xx responses map to
// order.ErrUnavailable so callers can distinguish "queue it" from "reject it".
func (c *Client) Create(ctx context.Context, draft order.Draft, idempotencyKey string) (order.Order, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return order.Order{}, fmt.Errorf("encode draft: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return order.Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return order.Order{}, fmt.Errorf("%w: %v", order.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		var o order.Order
		if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
			return order.Order{}, fmt.Errorf("decode order: %w", err)
		}
		return o, nil
	case resp.StatusCode >= 500:
		return order.Order{}, fmt.Errorf("%w: status %d", order.ErrUnavailable, resp.StatusCode)
	default:
		return order.Order{}, fmt.Errorf("create order: status %d", resp.StatusCode)
	}
}

// Products fetches the product catalog.
func (c *Client) Products(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Customers fetches the customer list.
func (c *Client) Customers(ctx context.Context) ([]catalog.Customer, error) {
	var customers []catalog.Customer
	if err := c.getJSON(ctx, "/customers", &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", order.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
