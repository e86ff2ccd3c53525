package verification

import (
	"context"

	"github.com/x402pay/paygate/facilitator"
	"github.com/x402pay/paygate/types"
	"github.com/x402pay/paygate/utils"
)

var _ Strategy = (*FacilitatorStrategy)(nil)

// FacilitatorStrategy delegates verification to the network's facilitator.
type FacilitatorStrategy struct {
	client *facilitator.Client
}

func NewFacilitatorStrategy(client *facilitator.Client) *FacilitatorStrategy {
	return &FacilitatorStrategy{client: client}
}

func (s *FacilitatorStrategy) Name() types.VerifiedBy {
	return types.VerifiedByFacilitator
}

// Verify implements Strategy. A network without a facilitator URL fails with
// FACILITATOR_UNAVAILABLE, a processed but negative answer with
// FACILITATOR_REJECTED.
func (s *FacilitatorStrategy) Verify(ctx context.Context, req *Request) (*types.VerifiedPayment, error) {
	resp, err := s.client.Verify(ctx, req.Chain.FacilitatorURL, BuildFacilitatorRequest(req))
	if err != nil {
		return nil, err
	}
	if !resp.Accepted() {
		return nil, types.NewError(types.ErrFacilitatorRejected, resp.RejectionReason(), nil)
	}

	payer := resp.Payer()
	if payer == "" {
		payer = req.Claim.From
	}

	return &types.VerifiedPayment{
		TransactionHash: req.Claim.TransactionHash,
		Network:         req.Network,
		Amount:          utils.MinorUnitsString(req.ExpectedAmount),
		From:            payer,
		To:              req.Chain.PayTo,
		VerifiedBy:      types.VerifiedByFacilitator,
	}, nil
}

// BuildFacilitatorRequest maps a verification request onto the facilitator
// wire format.
func BuildFacilitatorRequest(req *Request) *facilitator.VerifyRequest {
	version := int(types.X402Version1)
	return &facilitator.VerifyRequest{
		X402Version: version,
		PaymentPayload: facilitator.PaymentPayload{
			X402Version: version,
			Scheme:      req.Chain.Scheme,
			Network:     req.Network,
			Payload: facilitator.TxPayload{
				TransactionHash: req.Claim.TransactionHash,
				From:            req.Claim.From,
			},
		},
		PaymentRequirements: types.PaymentRequirement{
			Asset:             req.Chain.Asset,
			PayTo:             req.Chain.PayTo,
			Network:           req.Network,
			MaxAmountRequired: utils.MinorUnitsString(req.ExpectedAmount),
			Scheme:            req.Chain.Scheme,
			MimeType:          types.MimeTypeJSON,
			Resource:          req.Resource,
		},
	}
}
