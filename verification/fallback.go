package verification

import (
	"context"

	"github.com/x402pay/paygate/clients"
	"github.com/x402pay/paygate/types"
)

var _ Strategy = (*FallbackStrategy)(nil)

// FallbackStrategy verifies claims directly on-chain with the first client
// that supports the network.
type FallbackStrategy struct {
	clients []clients.Client
}

func NewFallbackStrategy(chainClients ...clients.Client) *FallbackStrategy {
	return &FallbackStrategy{clients: chainClients}
}

func (s *FallbackStrategy) Name() types.VerifiedBy {
	return types.VerifiedByFallback
}

// Verify implements Strategy.
func (s *FallbackStrategy) Verify(ctx context.Context, req *Request) (*types.VerifiedPayment, error) {
	for _, c := range s.clients {
		if !c.Supports(req.Network) {
			continue
		}
		return c.VerifyPayment(ctx, &clients.VerifyRequest{
			TransactionHash:   req.Claim.TransactionHash,
			Network:           req.Network,
			ExpectedRecipient: req.Chain.PayTo,
			Asset:             req.Chain.Asset,
			ExpectedAmount:    req.ExpectedAmount,
			ClaimedFrom:       req.Claim.From,
		})
	}
	return nil, types.NewError(types.ErrUnsupportedNetwork, types.ErrMsgVerificationFailed, nil)
}

// Close releases every chain client.
func (s *FallbackStrategy) Close() {
	for _, c := range s.clients {
		c.Close()
	}
}
