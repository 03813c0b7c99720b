// Package notify delivers outbound vendor-dispatch requests over a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrMissingURL signals a notifier constructed without a webhook URL.
	ErrMissingURL = errors.New("notify: webhook url is required")
	// ErrUpstream signals a non-success response from the webhook endpoint.
	ErrUpstream = errors.New("notify: vendor webhook request failed")
)

// Config holds webhook delivery settings.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// Request is the payload delivered to the vendor-dispatch webhook.
type Request struct {
	VendorEmail     string `json:"vendor_email"`
	PropertyAddress string `json:"property_address"`
	LandlordName    string `json:"landlord_name"`
	IssueID         string `json:"issue_id"`
}

// Notifier posts vendor requests to a configured webhook with a bounded
// timeout. Failures are surfaced, never retried.
type Notifier struct {
	httpClient *http.Client
	webhookURL string
}

// New creates a Notifier. The webhook URL is required.
func New(cfg Config) (*Notifier, error) {
	if cfg.WebhookURL == "" {
		return nil, ErrMissingURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		httpClient: &http.Client{Timeout: timeout},
		webhookURL: cfg.WebhookURL,
	}, nil
}

// Send delivers one vendor request. A response status of 400 or above is
// reported as an upstream failure carrying the response body when present.
func (n *Notifier) Send(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("notify: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(detail))
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	return nil
}
