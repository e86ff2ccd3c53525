package clients

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/x402pay/paygate/types"
	"github.com/x402pay/paygate/utils"
)

// MinSignatureLength is the length a signature string must exceed to pass
// the shape heuristic.
const MinSignatureLength = 80

var _ Client = (*SolanaClient)(nil)

// SolanaClient accepts Solana signatures.
//
// Without an RPC client it only checks that the signature string is longer
// than MinSignatureLength; no chain lookup happens. With WithSignatureStatus
// the signature must also decode to 64 bytes and be confirmed on-chain.
type SolanaClient struct {
	rpcURL string
	client *rpc.Client
}

// SolanaOption configures a SolanaClient.
type SolanaOption func(*SolanaClient)

// WithSignatureStatus enables getSignatureStatuses lookups against rpcURL.
func WithSignatureStatus(rpcURL string) SolanaOption {
	return func(c *SolanaClient) {
		c.rpcURL = rpcURL
		c.client = rpc.New(rpcURL)
	}
}

// NewSolanaClient creates a client for every Solana network.
func NewSolanaClient(opts ...SolanaOption) *SolanaClient {
	c := &SolanaClient{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Supports implements Client.
func (c *SolanaClient) Supports(network types.Network) bool {
	return network.IsSolana()
}

// Close implements Client.
func (c *SolanaClient) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

// VerifyPayment implements Client.
func (c *SolanaClient) VerifyPayment(ctx context.Context, req *VerifyRequest) (*types.VerifiedPayment, error) {
	if len(req.TransactionHash) <= MinSignatureLength {
		return nil, mismatch("transaction signature is too short", nil)
	}

	if c.client != nil {
		if err := c.confirm(ctx, req.Network, req.TransactionHash); err != nil {
			return nil, err
		}
	}

	return &types.VerifiedPayment{
		TransactionHash: req.TransactionHash,
		Network:         req.Network,
		Amount:          utils.MinorUnitsString(req.ExpectedAmount),
		From:            req.ClaimedFrom,
		To:              req.ExpectedRecipient,
		VerifiedBy:      types.VerifiedByFallback,
	}, nil
}

func (c *SolanaClient) confirm(ctx context.Context, network types.Network, signature string) error {
	if err := utils.ValidateTransactionHash(signature, network); err != nil {
		return mismatch("invalid transaction signature", err)
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return mismatch("invalid transaction signature", err)
	}

	out, err := c.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return unreachable("getSignatureStatuses failed", err)
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return mismatch("transaction signature not found", nil)
	}

	status := out.Value[0]
	if status.Err != nil {
		return mismatch(fmt.Sprintf("transaction failed: %v", status.Err), nil)
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return nil
	default:
		return mismatch(fmt.Sprintf("transaction is %s, not confirmed", status.ConfirmationStatus), nil)
	}
}
