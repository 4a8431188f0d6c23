package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopmesh/fulfillment/internal/discovery"
	"github.com/shopmesh/fulfillment/internal/models"
)

// OrderClient calls the order-service status callback. The target URL is
// resolved through Consul per call, falling back to a static URL when
// discovery is unavailable.
type OrderClient struct {
	consul      *discovery.ConsulClient
	fallbackURL string
	httpClient  *http.Client
}

func NewOrderClient(consul *discovery.ConsulClient, fallbackURL string) *OrderClient {
	return &OrderClient{
		consul:      consul,
		fallbackURL: fallbackURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *OrderClient) baseURL() string {
	if c.consul != nil {
		if url, err := c.consul.GetServiceURL("order-service"); err == nil {
			return url
		}
	}
	return c.fallbackURL
}

// UpdateStatus posts the new status for an order.
func (c *OrderClient) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	body, err := json.Marshal(models.UpdateStatusRequest{Status: string(status)})
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}

	url := fmt.Sprintf("%s/orders/%s/status", c.baseURL(), orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("order %s: %w", orderID, models.ErrOrderNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	return nil
}
