// Package facilitator talks to an external x402 facilitator that verifies
// payment claims on the gate's behalf.
package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/x402pay/paygate/types"
)

// DefaultTimeout bounds a single facilitator call.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 1 << 20

// Client handles communication with facilitator services. One client serves
// every network; the base URL is chosen per call.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a facilitator client. A nil httpClient gets DefaultTimeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{httpClient: httpClient}
}

// Verify posts the request to <baseURL>/verify.
//
// Transport failures, non-2xx statuses and undecodable bodies are returned as
// ErrFacilitatorUnavailable. A decoded response is returned as-is; callers
// decide whether it is an acceptance.
func (c *Client) Verify(ctx context.Context, baseURL string, req *VerifyRequest) (*VerifyResponse, error) {
	if baseURL == "" {
		return nil, types.NewError(types.ErrFacilitatorUnavailable, "no facilitator configured", nil)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/verify"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrFacilitatorUnavailable, "failed to create verify request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrFacilitatorUnavailable, "failed to call facilitator verify endpoint", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.NewError(types.ErrFacilitatorUnavailable, "failed to read verify response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.NewError(types.ErrFacilitatorUnavailable,
			fmt.Sprintf("facilitator verify returned status %d: %s", resp.StatusCode, truncate(string(payload), 256)), nil)
	}

	var verifyResp VerifyResponse
	if err := json.Unmarshal(payload, &verifyResp); err != nil {
		return nil, types.NewError(types.ErrFacilitatorUnavailable, "failed to decode verify response", err)
	}

	return &verifyResp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
