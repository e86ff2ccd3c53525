package verification

import (
	"context"
	"errors"
	"time"

	"github.com/x402pay/paygate/logger"
	"github.com/x402pay/paygate/metrics"
	"github.com/x402pay/paygate/storage"
	"github.com/x402pay/paygate/types"
	"github.com/x402pay/paygate/utils"
)

// Currency recorded for every audit entry.
const Currency = "USDC"

// Auditor records successful verifications. Record never fails the caller.
type Auditor interface {
	Record(ctx context.Context, req *Request, payment *types.VerifiedPayment)
}

// AuditRecorder writes one PaymentRecord per successful verification.
// Write failures are logged and counted, never returned.
type AuditRecorder struct {
	store        storage.PaymentRecordStore
	category     string
	serviceLabel string
	timeout      time.Duration
	logger       logger.Logger
	metrics      metrics.Recorder
	now          func() time.Time
}

var _ Auditor = (*AuditRecorder)(nil)

// NewAuditRecorder creates a recorder writing to store.
func NewAuditRecorder(store storage.PaymentRecordStore, category, serviceLabel string, log logger.Logger, m metrics.Recorder) *AuditRecorder {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if m == nil {
		m = metrics.NoopRecorder{}
	}
	return &AuditRecorder{
		store:        store,
		category:     category,
		serviceLabel: serviceLabel,
		timeout:      5 * time.Second,
		logger:       log,
		metrics:      m,
		now:          time.Now,
	}
}

// Record implements Auditor. The write outlives caller cancellation but is
// bounded by its own timeout.
func (a *AuditRecorder) Record(ctx context.Context, req *Request, payment *types.VerifiedPayment) {
	record := a.buildRecord(req, payment)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	err := a.store.Insert(writeCtx, record)
	switch {
	case err == nil:
		a.logger.Debug("payment recorded", map[string]any{
			"tx_hash": record.TxHash,
			"network": record.Network.String(),
		})
	case errors.Is(err, storage.ErrDuplicateKey):
		a.logger.Info("payment already recorded", map[string]any{
			"tx_hash": record.TxHash,
			"network": record.Network.String(),
		})
	default:
		a.logger.Error("failed to record payment", map[string]any{
			"tx_hash": record.TxHash,
			"network": record.Network.String(),
			"code":    types.ErrAuditWriteFailure,
			"error":   err,
		})
		a.metrics.IncCounter(metrics.EventAuditFailure, map[string]string{
			metrics.LabelNetwork: record.Network.String(),
			metrics.LabelOutcome: "error",
		})
	}
}

func (a *AuditRecorder) buildRecord(req *Request, payment *types.VerifiedPayment) *types.PaymentRecord {
	amount, ok := utils.ParseMinorUnits(payment.Amount)
	if !ok {
		amount = req.ExpectedAmount
	}

	metadata := map[string]any{
		"verifiedBy":     string(payment.VerifiedBy),
		"expectedAmount": req.ExpectedAmount,
	}
	if req.Resource != "" {
		metadata["path"] = req.Resource
	}
	if req.Method != "" {
		metadata["method"] = req.Method
	}

	return &types.PaymentRecord{
		TxHash:       payment.TransactionHash,
		Payer:        payment.From,
		Recipient:    payment.To,
		Network:      payment.Network,
		Amount:       amount,
		Currency:     Currency,
		Category:     a.category,
		ServiceLabel: a.serviceLabel,
		Metadata:     metadata,
		CreatedAt:    a.now().UTC(),
	}
}
