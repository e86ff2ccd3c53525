package challenge

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402pay/paygate/config"
	"github.com/x402pay/paygate/types"
	"github.com/x402pay/paygate/utils"
)

func testConfig(t *testing.T, networks string) *config.Config {
	t.Helper()
	env := map[string]string{
		"X402_NETWORKS":              networks,
		"X402_BASE_PAY_TO":           "0x384Aa214be0B279cbf211e9b2C992d8633F77848",
		"X402_SOLANA_MAINNET_PAY_TO": "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		"X402_SOLANA_DEVNET_PAY_TO":  "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
	}
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t, "base,solana-mainnet")

	accepts := Build(cfg, "", "/api/premium")
	require.Len(t, accepts, 2)

	assert.Equal(t, types.NetworkBase, accepts[0].Network)
	assert.Equal(t, types.SchemeEIP712, accepts[0].Scheme)
	assert.Equal(t, config.DefaultAssets[types.NetworkBase], accepts[0].Asset)
	assert.Equal(t, "0x384Aa214be0B279cbf211e9b2C992d8633F77848", accepts[0].PayTo)

	assert.Equal(t, types.NetworkSolanaMainnet, accepts[1].Network)
	assert.Equal(t, types.SchemeSolana, accepts[1].Scheme)

	for _, a := range accepts {
		assert.Equal(t, "1000000", a.MaxAmountRequired)
		assert.Equal(t, types.MimeTypeJSON, a.MimeType)
		assert.Equal(t, "/api/premium", a.Resource)
	}
}

func TestBuild_PriceMatchesNormalizer(t *testing.T) {
	cfg := testConfig(t, "base,solana-devnet")

	for _, price := range []string{"$0.25", "$1.00", "garbage", "12", "$0.000001"} {
		want := utils.MinorUnitsString(utils.NormalizePrice(price))
		accepts := Build(cfg, price, "")
		require.Len(t, accepts, 2, price)
		for _, a := range accepts {
			assert.Equal(t, want, a.MaxAmountRequired, price)
		}
	}
}

func TestWrite(t *testing.T) {
	cfg := testConfig(t, "base")
	accepts := Build(cfg, "$0.25", "/api/premium")

	w := httptest.NewRecorder()
	require.NoError(t, Write(w, "", accepts))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, x-payment", w.Header().Get("Access-Control-Allow-Headers"))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, DefaultMessage, body.Error)
	assert.True(t, body.PaymentRequired)
	assert.Equal(t, accepts, body.Accepts)

	var mirrored []types.PaymentRequirement
	require.NoError(t, json.Unmarshal([]byte(w.Header().Get(HeaderPaymentRequired)), &mirrored))
	assert.Equal(t, accepts, mirrored)
}

func TestWrite_MessageAndEmptyAccepts(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, Write(w, "verification failed", nil))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, "verification failed", raw["error"])
	assert.Equal(t, []any{}, raw["accepts"])
	assert.Equal(t, "[]", w.Header().Get(HeaderPaymentRequired))
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWrite_ReportsWriteError(t *testing.T) {
	err := Write(failingWriter{httptest.NewRecorder()}, "", nil)
	assert.Error(t, err)
}

func TestPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	Preflight(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "OPTIONS")
}
