package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/x402pay/paygate/logger"
	"github.com/x402pay/paygate/metrics"
	"github.com/x402pay/paygate/types"
)

// DefaultTimeout bounds each strategy.
const DefaultTimeout = 10 * time.Second

// Service runs the strategy chain.
type Service struct {
	strategies []Strategy
	auditor    Auditor
	timeout    time.Duration
	logger     logger.Logger
	metrics    metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTimeout sets the per-strategy deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithAuditor records every accepted payment.
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// NewService creates a chain that tries strategies in order.
func NewService(strategies []Strategy, opts ...Option) *Service {
	s := &Service{
		strategies: strategies,
		timeout:    DefaultTimeout,
		logger:     logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify runs req through the chain and always returns a result.
//
// The first strategy to return a payment wins. Otherwise the error of the
// last strategy becomes the client-visible message.
func (s *Service) Verify(ctx context.Context, req *Request) *types.VerificationResult {
	start := time.Now()
	var network string
	if req != nil {
		network = req.Network.String()
	}

	result := s.verify(ctx, req)

	outcome := "invalid"
	if result.Valid {
		outcome = "valid"
	}
	s.metrics.IncCounter(metrics.EventVerification, map[string]string{
		metrics.LabelNetwork: network,
		metrics.LabelOutcome: outcome,
	})
	s.metrics.ObserveLatency(metrics.OpVerificationTotal, time.Since(start), map[string]string{
		metrics.LabelNetwork: network,
	})

	return result
}

func (s *Service) verify(ctx context.Context, req *Request) *types.VerificationResult {
	if req == nil || req.Claim == nil || req.Claim.TransactionHash == "" {
		return types.Invalid("payment header has no transactionHash")
	}

	log := s.logger.With(map[string]any{
		"network": req.Network.String(),
		"tx_hash": req.Claim.TransactionHash,
	})

	var lastErr error
	for i, strategy := range s.strategies {
		payment, err := s.run(ctx, strategy, req)
		if err == nil {
			payment.VerifiedBy = strategy.Name()
			log.Info("payment verified", map[string]any{
				"verified_by": string(strategy.Name()),
				"payer":       payment.From,
				"amount":      payment.Amount,
			})
			if s.auditor != nil {
				s.auditor.Record(ctx, req, payment)
			}
			return types.Valid(payment)
		}

		lastErr = err
		fields := map[string]any{
			"strategy": string(strategy.Name()),
			"code":     types.ErrorCode(err),
			"error":    err,
		}
		if i < len(s.strategies)-1 {
			log.Warn("verification strategy failed, falling back", fields)
			s.metrics.IncCounter(metrics.EventFallback, map[string]string{
				metrics.LabelNetwork: req.Network.String(),
				metrics.LabelOutcome: types.ErrorCode(err),
			})
		} else {
			log.Warn("verification strategy failed", fields)
		}

		if ctx.Err() != nil {
			break
		}
	}

	return types.Invalid(clientMessage(lastErr))
}

// run calls one strategy under its own deadline. A panic becomes an error.
func (s *Service) run(ctx context.Context, strategy Strategy, req *Request) (payment *types.VerifiedPayment, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			payment = nil
			err = fmt.Errorf("%s: %v", types.ErrMsgVerificationFailed, r)
		}
		s.metrics.ObserveLatency(operation(strategy), time.Since(start), map[string]string{
			metrics.LabelNetwork: req.Network.String(),
		})
	}()

	payment, err = strategy.Verify(ctx, req)
	if err == nil && payment == nil {
		err = errors.New("strategy returned no payment")
	}
	return payment, err
}

func operation(s Strategy) string {
	if s.Name() == types.VerifiedByFacilitator {
		return metrics.OpFacilitatorVerify
	}
	return metrics.OpOnChainVerify
}

func clientMessage(err error) string {
	if err == nil {
		return types.ErrMsgVerificationFailed
	}
	var xe *types.X402Error
	if errors.As(err, &xe) && xe.Message != "" {
		return xe.Message
	}
	return err.Error()
}
