// Package challenge writes HTTP 402 Payment Required responses that tell a
// client how it may pay for a resource.
package challenge

import (
	"encoding/json"
	"net/http"

	"github.com/x402pay/paygate/config"
	"github.com/x402pay/paygate/types"
	"github.com/x402pay/paygate/utils"
)

// DefaultMessage is the error text of a challenge without a specific reason.
const DefaultMessage = "Payment required"

// Header names used by the x402 exchange.
const (
	HeaderPayment         = "x-payment"
	HeaderPaymentRequired = "x-payment-required"
	HeaderPaymentResponse = "x-payment-response"
)

// DefaultMaxTimeoutSeconds is advertised on every requirement.
const DefaultMaxTimeoutSeconds = 300

// Response is the 402 body.
type Response struct {
	Error           string                     `json:"error"`
	PaymentRequired bool                       `json:"paymentRequired"`
	Accepts         []types.PaymentRequirement `json:"accepts"`
}

// Build returns one requirement per allow-listed network that has chain
// configuration, priced at price (an empty price uses the configured default).
func Build(cfg *config.Config, price, resource string) []types.PaymentRequirement {
	if price == "" {
		price = cfg.DefaultPrice
	}
	amount := utils.MinorUnitsString(utils.NormalizePrice(price))

	accepts := make([]types.PaymentRequirement, 0, len(cfg.Networks))
	for _, n := range cfg.Networks {
		chain, ok := cfg.Chain(n)
		if !ok {
			continue
		}
		accepts = append(accepts, types.PaymentRequirement{
			Asset:             chain.Asset,
			PayTo:             chain.PayTo,
			Network:           n,
			MaxAmountRequired: amount,
			Scheme:            chain.Scheme,
			MimeType:          types.MimeTypeJSON,
			Resource:          resource,
			Description:       cfg.ServiceLabel,
			MaxTimeoutSeconds: DefaultMaxTimeoutSeconds,
		})
	}
	return accepts
}

// Write sends a 402 with accepts in both the body and the
// x-payment-required header.
func Write(w http.ResponseWriter, message string, accepts []types.PaymentRequirement) error {
	if message == "" {
		message = DefaultMessage
	}
	if accepts == nil {
		accepts = []types.PaymentRequirement{}
	}

	header, err := json.Marshal(accepts)
	if err != nil {
		return err
	}
	body, err := json.Marshal(Response{
		Error:           message,
		PaymentRequired: true,
		Accepts:         accepts,
	})
	if err != nil {
		return err
	}

	h := w.Header()
	SetCORS(h)
	h.Set("Content-Type", "application/json")
	h.Set(HeaderPaymentRequired, string(header))
	w.WriteHeader(http.StatusPaymentRequired)
	_, err = w.Write(body)
	return err
}

// SetCORS allows any origin to send the payment header. Callers are often
// programmatic agents without a same-origin session.
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderPayment)
	h.Set("Access-Control-Expose-Headers", HeaderPaymentRequired+", "+HeaderPaymentResponse)
}

// Preflight answers a CORS OPTIONS request.
func Preflight(w http.ResponseWriter) {
	h := w.Header()
	SetCORS(h)
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.WriteHeader(http.StatusNoContent)
}
