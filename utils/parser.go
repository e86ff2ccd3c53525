package utils

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/x402pay/paygate/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validator exposes the shared validator so other packages register against
// the same instance.
func Validator() *validator.Validate {
	return validate
}

// paymentHeader accepts both the flat claim shape and the x402 envelope
// {x402Version, scheme, network, payload:{transactionHash}}.
type paymentHeader struct {
	types.PaymentClaim

	X402Version int    `json:"x402Version,omitempty"`
	Scheme      string `json:"scheme,omitempty"`
	Payload     *struct {
		TransactionHash string `json:"transactionHash"`
		Signature       string `json:"signature"`
		From            string `json:"from"`
		Amount          string `json:"amount"`
	} `json:"payload,omitempty"`
}

// ParsePaymentHeader decodes the x-payment header value into a PaymentClaim.
//
// The value may be raw JSON or base64 (standard or URL alphabet, padded or
// not) of JSON. An absent value or a claim without transactionHash yields
// ErrMissingPayment; anything undecodable yields ErrMalformedPayment.
func ParsePaymentHeader(raw string) (*types.PaymentClaim, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, types.NewError(types.ErrMissingPayment, "payment header is missing", nil)
	}

	data, err := headerBytes(raw)
	if err != nil {
		return nil, types.NewError(types.ErrMalformedPayment, "payment header is not valid base64 or JSON", err)
	}

	var header paymentHeader
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&header); err != nil {
		return nil, types.NewError(types.ErrMalformedPayment, "payment header is not valid JSON", err)
	}

	claim := header.PaymentClaim
	if p := header.Payload; p != nil {
		if claim.TransactionHash == "" {
			claim.TransactionHash = p.TransactionHash
		}
		if claim.TransactionHash == "" {
			claim.TransactionHash = p.Signature
		}
		if claim.From == "" {
			claim.From = p.From
		}
		if claim.Amount == "" {
			claim.Amount = p.Amount
		}
	}
	claim.TransactionHash = strings.TrimSpace(claim.TransactionHash)
	if n, ok := types.ParseNetwork(string(claim.Network)); ok {
		claim.Network = n
	}

	if err := validate.Struct(&claim); err != nil {
		return nil, types.NewError(types.ErrMissingPayment, "payment header has no transactionHash", err)
	}

	return &claim, nil
}

func headerBytes(raw string) ([]byte, error) {
	if strings.HasPrefix(raw, "{") {
		return []byte(raw), nil
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		decoded, err := enc.DecodeString(raw)
		if err == nil {
			return decoded, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("decode base64: %w", lastErr)
}

// EncodePaymentHeader serializes a claim for the x-payment header, either as
// raw JSON or as standard base64 of the JSON.
func EncodePaymentHeader(claim *types.PaymentClaim, useBase64 bool) (string, error) {
	data, err := json.Marshal(claim)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment claim: %w", err)
	}
	if !useBase64 {
		return string(data), nil
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
