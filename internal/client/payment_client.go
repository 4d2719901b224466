package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Payment transaction statuses as reported by the gateway.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusExpired   = "expired"
)

// Transaction is a QR-payable transaction created at the gateway.
type Transaction struct {
	Reference string    `json:"reference"`
	QRPayload string    `json:"qr_string"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PaymentClient polls the payment gateway. The gateway owns transaction
// semantics; we only create transactions and ask for their status.
type PaymentClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewPaymentClient creates a payment gateway client.
func NewPaymentClient(baseURL, apiKey string) *PaymentClient {
	return &PaymentClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateTransaction registers a payable transaction for (amount, orderID)
// and returns its QR descriptor.
func (c *PaymentClient) CreateTransaction(ctx context.Context, amount int64, orderID string) (*Transaction, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"order_id": orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, truncate(respBody, 512))
	}

	var tx Transaction
	if err := json.Unmarshal(respBody, &tx); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &tx, nil
}

// CheckStatus returns the gateway's status for (amount, orderID).
func (c *PaymentClient) CheckStatus(ctx context.Context, amount int64, orderID string) (string, error) {
	q := url.Values{}
	q.Set("order_id", orderID)
	q.Set("amount", strconv.FormatInt(amount, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions/status?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, truncate(respBody, 512))
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.Status, nil
}
