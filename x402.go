// Package x402 gates HTTP resources behind blockchain micropayments.
//
// A Gate decodes the x-payment header, asks the network's facilitator to
// verify the claimed transaction and, when the facilitator is unavailable or
// says no, re-checks the transaction directly against the chain. Requests
// without a verified payment receive a 402 challenge listing how to pay.
package x402

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/x402pay/paygate/clients"
	"github.com/x402pay/paygate/config"
	"github.com/x402pay/paygate/facilitator"
	"github.com/x402pay/paygate/logger"
	"github.com/x402pay/paygate/metrics"
	"github.com/x402pay/paygate/storage"
	"github.com/x402pay/paygate/storage/memory"
	"github.com/x402pay/paygate/types"
	"github.com/x402pay/paygate/utils"
	"github.com/x402pay/paygate/verification"
)

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = types.X402Version1
)

// Gate verifies payments for protected resources.
type Gate struct {
	cfg     *config.Config
	service *verification.Service

	// chain clients owned by the default fallback strategy
	clients []clients.Client

	logger     logger.Logger
	metrics    metrics.Recorder
	timeout    time.Duration
	store      storage.PaymentRecordStore
	httpClient *http.Client
	strategies []verification.Strategy
}

// RequestMeta describes the protected request being paid for.
type RequestMeta struct {
	Resource string
	Method   string
}

// New creates a Gate from a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Gate, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrConfigError, "configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gate{
		cfg:     cfg,
		timeout: cfg.Timeout,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = logger.NoopLogger{}
	}
	if g.metrics == nil {
		g.metrics = metrics.NoopRecorder{}
	}
	if g.timeout <= 0 {
		g.timeout = verification.DefaultTimeout
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: g.timeout}
	}
	if g.store == nil {
		g.store = memory.NewPaymentRecordStore()
	}

	strategies := g.strategies
	if len(strategies) == 0 {
		var err error
		strategies, err = g.defaultStrategies()
		if err != nil {
			return nil, err
		}
	}

	auditor := verification.NewAuditRecorder(g.store, cfg.Category, cfg.ServiceLabel, g.logger, g.metrics)
	g.service = verification.NewService(strategies,
		verification.WithLogger(g.logger),
		verification.WithMetrics(g.metrics),
		verification.WithTimeout(g.timeout),
		verification.WithAuditor(auditor),
	)

	return g, nil
}

// defaultStrategies builds facilitator → on-chain fallback for the allowed networks.
func (g *Gate) defaultStrategies() ([]verification.Strategy, error) {
	var evm, solana bool
	for _, n := range g.cfg.Networks {
		evm = evm || n.IsEVM()
		solana = solana || n.IsSolana()
	}

	if evm {
		client, err := clients.NewEVMClient(context.Background(), types.NetworkBase, g.cfg.EVMRPCURL, g.httpClient,
			clients.WithRequireReceipt(g.cfg.RequireEVMReceipt))
		if err != nil {
			return nil, fmt.Errorf("failed to create EVM client for %s: %w", types.NetworkBase, err)
		}
		g.clients = append(g.clients, client)
	}

	if solana {
		var opts []clients.SolanaOption
		if g.cfg.RequireSolanaRPC {
			opts = append(opts, clients.WithSignatureStatus(g.cfg.SolanaRPCURL))
		} else {
			g.logger.Warn("solana fallback accepts signatures by length only", map[string]any{
				"min_length": clients.MinSignatureLength,
			})
		}
		g.clients = append(g.clients, clients.NewSolanaClient(opts...))
	}

	return []verification.Strategy{
		verification.NewFacilitatorStrategy(facilitator.NewClient(g.httpClient)),
		verification.NewFallbackStrategy(g.clients...),
	}, nil
}

// Config returns the gate configuration.
func (g *Gate) Config() *config.Config {
	return g.cfg
}

// Verify decides whether header carries a valid payment of price for the
// resource described by meta. It never returns an error: every failure is a
// result with Valid=false and a client-facing reason.
func (g *Gate) Verify(ctx context.Context, header, price string, meta RequestMeta) *types.VerificationResult {
	claim, err := utils.ParsePaymentHeader(header)
	if err != nil {
		g.logger.Info("payment header rejected", map[string]any{
			"code":     types.ErrorCode(err),
			"resource": meta.Resource,
			"error":    err,
		})
		g.metrics.IncCounter(metrics.EventVerification, map[string]string{
			metrics.LabelOutcome: types.ErrorCode(err),
		})
		return types.Invalid(reason(err))
	}

	network := claim.Network
	if network == "" {
		network = g.cfg.Networks[0]
	}
	chain, ok := g.cfg.Chain(network)
	if !ok {
		g.logger.Warn("payment on unsupported network", map[string]any{
			"network": network.String(),
			"tx_hash": claim.TransactionHash,
			"code":    types.ErrUnsupportedNetwork,
		})
		g.metrics.IncCounter(metrics.EventVerification, map[string]string{
			metrics.LabelNetwork: network.String(),
			metrics.LabelOutcome: types.ErrUnsupportedNetwork,
		})
		return types.Invalid(types.ErrMsgVerificationFailed)
	}

	return g.service.Verify(ctx, &verification.Request{
		Claim:          claim,
		Network:        network,
		Chain:          chain,
		ExpectedAmount: utils.NormalizePrice(g.price(price)),
		Resource:       meta.Resource,
		Method:         meta.Method,
	})
}

func (g *Gate) price(price string) string {
	if price == "" {
		return g.cfg.DefaultPrice
	}
	return price
}

// Close releases the chain clients.
func (g *Gate) Close() {
	for _, c := range g.clients {
		c.Close()
	}
}

func reason(err error) string {
	var xe *types.X402Error
	if errors.As(err, &xe) && xe.Message != "" {
		return xe.Message
	}
	return err.Error()
}
