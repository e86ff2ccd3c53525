package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402pay/paygate/facilitator"
	"github.com/x402pay/paygate/types"
)

func facilitatorServer(t *testing.T, status int, body string) (*httptest.Server, *facilitator.VerifyRequest) {
	t.Helper()
	got := &facilitator.VerifyRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(got)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestFacilitatorStrategy_Accepts(t *testing.T) {
	srv, got := facilitatorServer(t, http.StatusOK, `{"success":true,"data":{"valid":true,"tx":{"from":"0xpayer"}}}`)

	req := testRequest()
	req.Chain.FacilitatorURL = srv.URL

	payment, err := NewFacilitatorStrategy(facilitator.NewClient(nil)).Verify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "0xpayer", payment.From)
	assert.Equal(t, "1000000", payment.Amount)
	assert.Equal(t, req.Chain.PayTo, payment.To)
	assert.Equal(t, types.VerifiedByFacilitator, payment.VerifiedBy)

	assert.Equal(t, "0xfeed", got.PaymentPayload.Payload.TransactionHash)
	assert.Equal(t, types.NetworkBase, got.PaymentPayload.Network)
	assert.Equal(t, types.SchemeEIP712, got.PaymentPayload.Scheme)
	assert.Equal(t, req.Chain.Asset, got.PaymentRequirements.Asset)
	assert.Equal(t, req.Chain.PayTo, got.PaymentRequirements.PayTo)
	assert.Equal(t, "1000000", got.PaymentRequirements.MaxAmountRequired)
}

func TestFacilitatorStrategy_PayerFallsBackToClaim(t *testing.T) {
	srv, _ := facilitatorServer(t, http.StatusOK, `{"success":true,"data":{"valid":true}}`)

	req := testRequest()
	req.Chain.FacilitatorURL = srv.URL

	payment, err := NewFacilitatorStrategy(facilitator.NewClient(nil)).Verify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "0xclaimed", payment.From)
}

func TestFacilitatorStrategy_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "rejected", status: http.StatusOK, body: `{"success":false,"error":"unknown tx"}`, want: types.ErrRejected},
		{name: "invalid", status: http.StatusOK, body: `{"success":true,"data":{"valid":false}}`, want: types.ErrRejected},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, want: types.ErrUnavailable},
		{name: "malformed", status: http.StatusOK, body: `<html>`, want: types.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := facilitatorServer(t, tt.status, tt.body)
			req := testRequest()
			req.Chain.FacilitatorURL = srv.URL

			payment, err := NewFacilitatorStrategy(facilitator.NewClient(nil)).Verify(context.Background(), req)
			assert.Nil(t, payment)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFacilitatorStrategy_NotConfigured(t *testing.T) {
	_, err := NewFacilitatorStrategy(facilitator.NewClient(nil)).Verify(context.Background(), testRequest())
	assert.ErrorIs(t, err, types.ErrUnavailable)
}
