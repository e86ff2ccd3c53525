package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	labels := map[string]string{LabelNetwork: "base", LabelOutcome: "fallback"}
	rec.IncCounter(EventVerification, labels)
	rec.IncCounter(EventVerification, labels)
	rec.ObserveLatency(OpFacilitatorVerify, 120*time.Millisecond, labels)

	got := testutil.ToFloat64(rec.counters.WithLabelValues(EventVerification, "base", "fallback"))
	assert.Equal(t, 2.0, got)
	assert.Equal(t, 1, testutil.CollectAndCount(rec.histogram))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPrometheusRecorder_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	_, err = NewPrometheusRecorder(reg)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "duplicate"))
}
