package types

import (
	"errors"
	"fmt"
	"time"
)

// X402Version represents the version of the x402 protocol
type X402Version int

const (
	X402Version1 X402Version = 1
)

// MimeTypeJSON is the only resource MIME type the gate advertises.
const MimeTypeJSON = "application/json"

// VerifiedBy names the verifier that accepted a payment.
type VerifiedBy string

const (
	VerifiedByFacilitator VerifiedBy = "facilitator"
	VerifiedByFallback    VerifiedBy = "fallback"
)

// PaymentClaim is the client-asserted, unverified payment evidence carried
// in the x-payment header. It lives for a single request.
type PaymentClaim struct {
	// EVM transaction hash or Solana signature.
	TransactionHash string `json:"transactionHash" validate:"required"`

	Network Network `json:"network,omitempty"`

	// Amount in minor units as reported by the client. Never trusted.
	Amount string `json:"amount,omitempty"`

	// Payer address, if the client reports one.
	From string `json:"from,omitempty"`
}

// PaymentRequirement describes one acceptable way to pay for a resource.
type PaymentRequirement struct {
	// Token contract address (EVM) or mint (Solana).
	Asset string `json:"asset"`

	// Address to which the payment must be sent.
	PayTo string `json:"payTo"`

	Network Network `json:"network"`

	// Amount in minor units, always the decimal string of a non-negative integer.
	MaxAmountRequired string `json:"maxAmountRequired"`

	Scheme string `json:"scheme"`

	MimeType string `json:"mimeType"`

	// URL path of the resource being purchased.
	Resource string `json:"resource,omitempty"`

	Description string `json:"description,omitempty"`

	MaxTimeoutSeconds int `json:"maxTimeoutSeconds,omitempty"`
}

// VerifiedPayment is the payment detail attached to a successful verification.
type VerifiedPayment struct {
	TransactionHash string     `json:"transactionHash"`
	Network         Network    `json:"network"`
	Amount          string     `json:"amount"`
	From            string     `json:"from"`
	To              string     `json:"to"`
	Verified        bool       `json:"verified"`
	VerifiedBy      VerifiedBy `json:"verifiedBy"`
}

// VerificationResult contains the result of payment verification.
// Error is set iff Valid is false, Payment is set iff Valid is true.
type VerificationResult struct {
	Valid   bool             `json:"valid"`
	Error   string           `json:"error,omitempty"`
	Payment *VerifiedPayment `json:"payment,omitempty"`
}

// Valid builds a successful result.
func Valid(p *VerifiedPayment) *VerificationResult {
	p.Verified = true
	return &VerificationResult{Valid: true, Payment: p}
}

// Invalid builds a failed result. An empty reason is replaced by a generic one.
func Invalid(reason string) *VerificationResult {
	if reason == "" {
		reason = ErrMsgVerificationFailed
	}
	return &VerificationResult{Valid: false, Error: reason}
}

// PaymentRecord is the audit row written once per successful verification.
type PaymentRecord struct {
	TxHash       string         `json:"txHash"`
	Payer        string         `json:"payer"`
	Recipient    string         `json:"recipient"`
	Network      Network        `json:"network"`
	Amount       int64          `json:"amount"`
	Currency     string         `json:"currency"`
	Category     string         `json:"category"`
	ServiceLabel string         `json:"serviceLabel"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// ErrMsgVerificationFailed is the client-visible message when no verifier
// could confirm the transaction.
const ErrMsgVerificationFailed = "Payment verification failed - unable to verify transaction"

// Error types
type X402Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *X402Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *X402Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an X402Error with the same code.
func (e *X402Error) Is(target error) bool {
	t, ok := target.(*X402Error)
	return ok && t.Code == e.Code
}

// NewError creates an X402Error.
func NewError(code, message string, cause error) *X402Error {
	return &X402Error{Code: code, Message: message, Cause: cause}
}

// ErrorCode extracts the code of an X402Error anywhere in err's chain.
func ErrorCode(err error) string {
	var xe *X402Error
	if errors.As(err, &xe) {
		return xe.Code
	}
	return ""
}

// Common error codes
const (
	ErrMissingPayment         = "MISSING_PAYMENT"
	ErrMalformedPayment       = "MALFORMED_PAYMENT"
	ErrFacilitatorUnavailable = "FACILITATOR_UNAVAILABLE"
	ErrFacilitatorRejected    = "FACILITATOR_REJECTED"
	ErrOnChainMismatch        = "ONCHAIN_MISMATCH"
	ErrOnChainUnreachable     = "ONCHAIN_UNREACHABLE"
	ErrAuditWriteFailure      = "AUDIT_WRITE_FAILURE"
	ErrUnsupportedNetwork     = "UNSUPPORTED_NETWORK"
	ErrConfigError            = "CONFIG_ERROR"
)

// Sentinels for errors.Is matching by code.
var (
	ErrMissing     = &X402Error{Code: ErrMissingPayment}
	ErrMalformed   = &X402Error{Code: ErrMalformedPayment}
	ErrUnavailable = &X402Error{Code: ErrFacilitatorUnavailable}
	ErrRejected    = &X402Error{Code: ErrFacilitatorRejected}
	ErrMismatch    = &X402Error{Code: ErrOnChainMismatch}
	ErrUnreachable = &X402Error{Code: ErrOnChainUnreachable}
	ErrUnsupported = &X402Error{Code: ErrUnsupportedNetwork}
)
