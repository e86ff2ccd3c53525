// Package clients verifies payment claims directly against a chain, without
// a facilitator.
package clients

import (
	"context"

	"github.com/x402pay/paygate/types"
)

// VerifyRequest is everything a chain client needs to check one claim.
type VerifyRequest struct {
	TransactionHash string
	Network         types.Network

	// ExpectedRecipient is the configured payTo address.
	ExpectedRecipient string

	// Asset is the token contract (EVM) or mint (Solana).
	Asset string

	// ExpectedAmount in minor units. Reported, not enforced.
	ExpectedAmount int64

	// ClaimedFrom is the payer the client reported, used when the chain
	// does not expose one.
	ClaimedFrom string
}

// Client checks a claim against one chain family.
//
// A nil error means the transaction matches the request. Failures are
// *types.X402Error values with code ONCHAIN_MISMATCH or ONCHAIN_UNREACHABLE.
type Client interface {
	VerifyPayment(ctx context.Context, req *VerifyRequest) (*types.VerifiedPayment, error)
	Supports(network types.Network) bool
	Close()
}

func mismatch(msg string, cause error) error {
	return types.NewError(types.ErrOnChainMismatch, msg, cause)
}

func unreachable(msg string, cause error) error {
	return types.NewError(types.ErrOnChainUnreachable, msg, cause)
}
