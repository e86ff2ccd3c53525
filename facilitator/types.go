package facilitator

import "github.com/x402pay/paygate/types"

// VerifyRequest is the body POSTed to <facilitator>/verify.
type VerifyRequest struct {
	X402Version         int                      `json:"x402Version"`
	PaymentPayload      PaymentPayload           `json:"paymentPayload"`
	PaymentRequirements types.PaymentRequirement `json:"paymentRequirements"`
}

// PaymentPayload identifies the transaction the client claims to have sent.
type PaymentPayload struct {
	X402Version int           `json:"x402Version"`
	Scheme      string        `json:"scheme"`
	Network     types.Network `json:"network"`
	Payload     TxPayload     `json:"payload"`
}

// TxPayload carries the on-chain reference of a payment.
type TxPayload struct {
	TransactionHash string `json:"transactionHash"`
	From            string `json:"from,omitempty"`
}

// VerifyResponse is the facilitator's verdict.
type VerifyResponse struct {
	Success bool        `json:"success"`
	Data    *VerifyData `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// VerifyData is present when the facilitator processed the request.
type VerifyData struct {
	Valid  bool    `json:"valid"`
	Reason string  `json:"reason,omitempty"`
	Tx     *TxInfo `json:"tx,omitempty"`
}

// TxInfo holds what the facilitator learned about the transaction.
type TxInfo struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Accepted reports whether the facilitator confirmed the payment.
func (r *VerifyResponse) Accepted() bool {
	return r != nil && r.Success && r.Data != nil && r.Data.Valid
}

// Payer returns the payer address reported by the facilitator, if any.
func (r *VerifyResponse) Payer() string {
	if r == nil || r.Data == nil || r.Data.Tx == nil {
		return ""
	}
	return r.Data.Tx.From
}

// RejectionReason summarizes why a processed request was not accepted.
func (r *VerifyResponse) RejectionReason() string {
	switch {
	case r == nil:
		return "empty facilitator response"
	case r.Error != "":
		return r.Error
	case r.Data != nil && r.Data.Reason != "":
		return r.Data.Reason
	case !r.Success:
		return "facilitator reported failure"
	default:
		return "facilitator reported payment invalid"
	}
}
