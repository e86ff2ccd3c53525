// Package ginx402 adapts the x402 gate to gin. Verification is delegated to
// the gate; this package only translates between gin.Context and net/http.
package ginx402

import (
	"net/http"

	"github.com/gin-gonic/gin"
	x402 "github.com/x402pay/paygate"
	"github.com/x402pay/paygate/challenge"
	"github.com/x402pay/paygate/types"
)

// PaymentContextKey is the gin context key holding the *types.VerifiedPayment.
const PaymentContextKey = "x402_payment"

// Middleware requires a verified payment of price. On failure it writes the
// 402 challenge and aborts the chain; on success the payment is available via
// c.Get(PaymentContextKey) and x402.PaymentFromContext(c.Request.Context()).
func Middleware(gate *x402.Gate, price string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			challenge.Preflight(c.Writer)
			c.Abort()
			return
		}

		header := c.GetHeader(challenge.HeaderPayment)
		if header == "" {
			gate.Challenge(c.Writer, c.Request, price, challenge.DefaultMessage)
			c.Abort()
			return
		}

		result := gate.Verify(c.Request.Context(), header, price, x402.RequestMeta{
			Resource: c.Request.URL.Path,
			Method:   c.Request.Method,
		})
		if !result.Valid {
			gate.Challenge(c.Writer, c.Request, price, result.Error)
			c.Abort()
			return
		}

		gate.Grant(c.Writer, result.Payment)
		c.Set(PaymentContextKey, result.Payment)
		c.Request = c.Request.WithContext(x402.WithPayment(c.Request.Context(), result.Payment))
		c.Next()
	}
}

// Payment returns the payment verified for this request.
func Payment(c *gin.Context) (*types.VerifiedPayment, bool) {
	v, ok := c.Get(PaymentContextKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*types.VerifiedPayment)
	return p, ok
}
