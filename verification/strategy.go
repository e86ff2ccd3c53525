// Package verification runs payment claims through an ordered chain of
// verifiers. The first strategy that accepts a claim decides the result;
// any strategy error hands the same request to the next one.
package verification

import (
	"context"

	"github.com/x402pay/paygate/config"
	"github.com/x402pay/paygate/types"
)

// Request is a single verification attempt.
type Request struct {
	Claim   *types.PaymentClaim
	Network types.Network
	Chain   config.ChainConfig

	// ExpectedAmount in minor units.
	ExpectedAmount int64

	// Resource and Method describe the protected request, for the facilitator
	// and the audit record.
	Resource string
	Method   string
}

// Strategy is one verifier in the chain.
//
// Verify returns the verified payment, or an error that makes the chain move
// on. Errors should be *types.X402Error values so they can be logged by code.
type Strategy interface {
	Name() types.VerifiedBy
	Verify(ctx context.Context, req *Request) (*types.VerifiedPayment, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	ID types.VerifiedBy
	Fn func(ctx context.Context, req *Request) (*types.VerifiedPayment, error)
}

func (s StrategyFunc) Name() types.VerifiedBy { return s.ID }

func (s StrategyFunc) Verify(ctx context.Context, req *Request) (*types.VerifiedPayment, error) {
	return s.Fn(ctx, req)
}
