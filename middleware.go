package x402

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/x402pay/paygate/challenge"
	"github.com/x402pay/paygate/metrics"
	"github.com/x402pay/paygate/types"
)

type contextKey struct{}

// WithPayment returns a context carrying a verified payment.
func WithPayment(ctx context.Context, p *types.VerifiedPayment) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PaymentFromContext extracts the payment verified by the middleware.
func PaymentFromContext(ctx context.Context) (*types.VerifiedPayment, bool) {
	p, ok := ctx.Value(contextKey{}).(*types.VerifiedPayment)
	return p, ok && p != nil
}

// Middleware requires a verified payment of price before calling next.
// An empty price uses the configured default.
func (g *Gate) Middleware(price string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				challenge.Preflight(w)
				return
			}

			header := r.Header.Get(challenge.HeaderPayment)
			if header == "" {
				g.Challenge(w, r, price, challenge.DefaultMessage)
				return
			}

			result := g.Verify(r.Context(), header, price, RequestMeta{
				Resource: r.URL.Path,
				Method:   r.Method,
			})
			if !result.Valid {
				g.Challenge(w, r, price, result.Error)
				return
			}

			g.Grant(w, result.Payment)
			next.ServeHTTP(w, r.WithContext(WithPayment(r.Context(), result.Payment)))
		})
	}
}

// Challenge writes a 402 for r listing every accepted way to pay price.
func (g *Gate) Challenge(w http.ResponseWriter, r *http.Request, price, message string) {
	accepts := challenge.Build(g.cfg, price, r.URL.Path)
	outcome := "rejected"
	if message == "" || message == challenge.DefaultMessage {
		outcome = "missing"
	}
	g.metrics.IncCounter(metrics.EventChallenge, map[string]string{
		metrics.LabelOutcome: outcome,
	})
	if err := challenge.Write(w, message, accepts); err != nil {
		g.logger.Error("failed to write payment challenge", map[string]any{
			"resource": r.URL.Path,
			"error":    err,
		})
	}
}

// Grant sets the response headers of a paid request.
func (g *Gate) Grant(w http.ResponseWriter, p *types.VerifiedPayment) {
	challenge.SetCORS(w.Header())
	if v, err := EncodePaymentResponse(p); err == nil {
		w.Header().Set(challenge.HeaderPaymentResponse, v)
	}
}

// EncodePaymentResponse renders a verified payment for the
// x-payment-response header as base64 JSON.
func EncodePaymentResponse(p *types.VerifiedPayment) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
