// Package marketplace implements the seller API client the apply step uses
// to push accepted prices to the marketplace.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// Config holds the connection settings for the seller API.
type Config struct {
	BaseURL  string
	SellerID string
	Token    string
}

// Client talks to the marketplace seller API.
type Client struct {
	baseURL  string
	sellerID string
	token    string
	client   *http.Client
}

// New creates a Client. It uses a default HTTP client with a 15-second
// timeout.
func New(cfg Config) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		sellerID: cfg.SellerID,
		token:    cfg.Token,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type priceUpdate struct {
	SellerID  string  `json:"seller_id,omitempty"`
	ProductID string  `json:"product_id"`
	Price     float64 `json:"price"`
}

// PushPrice submits the new price for one product. A non-2xx response is an
// error; the marketplace either accepted the price or it didn't.
func (c *Client) PushPrice(ctx context.Context, productID string, price float64) error {
	body, err := json.Marshal([]priceUpdate{{
		SellerID:  c.sellerID,
		ProductID: productID,
		Price:     price,
	}})
	if err != nil {
		return fmt.Errorf("marketplace: marshal price update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/prices", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("marketplace: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace: push price for %s: %w", productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("marketplace: push price for %s: unexpected status %d: %s",
			productID, resp.StatusCode, string(respBody))
	}
	return nil
}

var _ domain.PriceUpdater = (*Client)(nil)
