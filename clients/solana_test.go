package clients

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402pay/paygate/types"
)

func testSignature(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, 64))
}

func solanaRequest(sig string) *VerifyRequest {
	return &VerifyRequest{
		TransactionHash:   sig,
		Network:           types.NetworkSolanaMainnet,
		ExpectedRecipient: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		Asset:             "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		ExpectedAmount:    1_000_000,
		ClaimedFrom:       "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
	}
}

func TestSolanaClient_Heuristic(t *testing.T) {
	c := NewSolanaClient()
	defer c.Close()

	payment, err := c.VerifyPayment(context.Background(), solanaRequest(strings.Repeat("a", 81)))
	require.NoError(t, err)
	assert.Equal(t, types.VerifiedByFallback, payment.VerifiedBy)
	assert.Equal(t, types.NetworkSolanaMainnet, payment.Network)
	assert.Equal(t, "1000000", payment.Amount)
	assert.Equal(t, "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", payment.From)
	assert.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", payment.To)

	for _, n := range []int{0, 10, 80} {
		_, err := c.VerifyPayment(context.Background(), solanaRequest(strings.Repeat("a", n)))
		assert.ErrorIs(t, err, types.ErrMismatch, "length %d", n)
	}
}

func TestSolanaClient_Supports(t *testing.T) {
	c := NewSolanaClient()
	assert.True(t, c.Supports(types.NetworkSolanaMainnet))
	assert.True(t, c.Supports(types.NetworkSolanaDevnet))
	assert.False(t, c.Supports(types.NetworkBase))
}

func signatureStatuses(status any) map[string]any {
	return map[string]any{
		"getSignatureStatuses": map[string]any{
			"context": map[string]any{"slot": 100},
			"value":   []any{status},
		},
	}
}

func TestSolanaClient_SignatureStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   any
		wantCode string
	}{
		{
			name:   "finalized",
			status: map[string]any{"slot": 99, "confirmations": nil, "err": nil, "confirmationStatus": "finalized"},
		},
		{
			name:   "confirmed",
			status: map[string]any{"slot": 99, "confirmations": 3, "err": nil, "confirmationStatus": "confirmed"},
		},
		{
			name:     "processed",
			status:   map[string]any{"slot": 99, "confirmations": 0, "err": nil, "confirmationStatus": "processed"},
			wantCode: types.ErrOnChainMismatch,
		},
		{
			name: "failed",
			status: map[string]any{
				"slot": 99, "confirmations": nil, "confirmationStatus": "finalized",
				"err": map[string]any{"InstructionError": []any{0, "Custom"}},
			},
			wantCode: types.ErrOnChainMismatch,
		},
		{
			name:     "unknown",
			status:   nil,
			wantCode: types.ErrOnChainMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRPCServer(t, signatureStatuses(tt.status))
			c := NewSolanaClient(WithSignatureStatus(srv.URL))
			defer c.Close()

			_, err := c.VerifyPayment(context.Background(), solanaRequest(testSignature(7)))
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantCode, types.ErrorCode(err))
			}
			assert.Equal(t, []string{"getSignatureStatuses"}, srv.methods())
		})
	}
}

func TestSolanaClient_SignatureStatusRejectsBadShape(t *testing.T) {
	srv := newRPCServer(t, nil)
	c := NewSolanaClient(WithSignatureStatus(srv.URL))
	defer c.Close()

	// long enough for the heuristic but not base58
	_, err := c.VerifyPayment(context.Background(), solanaRequest(strings.Repeat("0", 88)))
	assert.ErrorIs(t, err, types.ErrMismatch)
	assert.Empty(t, srv.methods())
}

func TestSolanaClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewSolanaClient(WithSignatureStatus(srv.URL))
	defer c.Close()

	_, err := c.VerifyPayment(context.Background(), solanaRequest(testSignature(7)))
	assert.Equal(t, types.ErrOnChainUnreachable, types.ErrorCode(err))
}
