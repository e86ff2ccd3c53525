package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402pay/paygate/logger"
	"github.com/x402pay/paygate/metrics"
	"github.com/x402pay/paygate/storage"
	"github.com/x402pay/paygate/storage/memory"
	"github.com/x402pay/paygate/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingStore struct {
	err    error
	calls  int
	ctxErr error
}

func (f *failingStore) Insert(ctx context.Context, _ *types.PaymentRecord) error {
	f.calls++
	f.ctxErr = ctx.Err()
	return f.err
}

func TestAuditRecorder_Record(t *testing.T) {
	store := memory.NewPaymentRecordStore()
	a := NewAuditRecorder(store, "api", "premium report", nil, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	payment := okPayment()
	payment.VerifiedBy = types.VerifiedByFallback
	a.Record(context.Background(), testRequest(), payment)

	records := store.All()
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "0xfeed", r.TxHash)
	assert.Equal(t, "0xpayer", r.Payer)
	assert.Equal(t, payment.To, r.Recipient)
	assert.Equal(t, types.NetworkBase, r.Network)
	assert.Equal(t, int64(1_000_000), r.Amount)
	assert.Equal(t, Currency, r.Currency)
	assert.Equal(t, "api", r.Category)
	assert.Equal(t, "premium report", r.ServiceLabel)
	assert.Equal(t, fixed, r.CreatedAt)
	assert.Equal(t, "fallback", r.Metadata["verifiedBy"])
	assert.Equal(t, "/api/premium", r.Metadata["path"])
	assert.Equal(t, "GET", r.Metadata["method"])
}

func TestAuditRecorder_AmountDefaultsToExpected(t *testing.T) {
	store := memory.NewPaymentRecordStore()
	a := NewAuditRecorder(store, "api", "", nil, nil)

	payment := okPayment()
	payment.Amount = "not-a-number"
	a.Record(context.Background(), testRequest(), payment)

	assert.Equal(t, int64(1_000_000), store.All()[0].Amount)
}

func TestAuditRecorder_FailureIsSwallowed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rec := newFakeRecorder()
	store := &failingStore{err: errors.New("connection refused")}
	a := NewAuditRecorder(store, "api", "", logger.NewFromZap(zap.New(core)), rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Record(ctx, testRequest(), okPayment())

	assert.Equal(t, 1, store.calls)
	// the write is detached from caller cancellation
	assert.NoError(t, store.ctxErr)

	entries := logs.FilterMessage("failed to record payment").All()
	require.Len(t, entries, 1)
	assert.Equal(t, types.ErrAuditWriteFailure, entries[0].ContextMap()["code"])
	assert.Equal(t, 1, rec.counters[metrics.EventAuditFailure+"/error"])
}

func TestAuditRecorder_DuplicateIsNotAFailure(t *testing.T) {
	rec := newFakeRecorder()
	a := NewAuditRecorder(&failingStore{err: storage.ErrDuplicateKey}, "api", "", nil, rec)

	a.Record(context.Background(), testRequest(), okPayment())
	assert.Zero(t, rec.counters[metrics.EventAuditFailure+"/error"])
}

func TestService_AuditFailureKeepsResult(t *testing.T) {
	store := &failingStore{err: errors.New("disk full")}
	primary := &spyStrategy{name: types.VerifiedByFacilitator, payment: okPayment()}

	svc := NewService([]Strategy{primary}, WithAuditor(NewAuditRecorder(store, "api", "", nil, nil)))
	result := svc.Verify(context.Background(), testRequest())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Error)
	assert.Equal(t, 1, store.calls)
}
