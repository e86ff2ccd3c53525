package x402

import (
	"net/http"
	"time"

	"github.com/x402pay/paygate/logger"
	"github.com/x402pay/paygate/metrics"
	"github.com/x402pay/paygate/storage"
	"github.com/x402pay/paygate/verification"
)

type Option func(*Gate)

func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		g.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gate) {
		g.metrics = r
	}
}

// WithTimeout overrides the configured per-call timeout.
func WithTimeout(t time.Duration) Option {
	return func(g *Gate) {
		g.timeout = t
	}
}

// WithStore sets the audit sink. The default is an in-memory store.
func WithStore(s storage.PaymentRecordStore) Option {
	return func(g *Gate) {
		g.store = s
	}
}

// WithHTTPClient sets the client used for facilitator and RPC calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gate) {
		g.httpClient = c
	}
}

// WithStrategies replaces the facilitator → on-chain chain.
func WithStrategies(s ...verification.Strategy) Option {
	return func(g *Gate) {
		g.strategies = s
	}
}
