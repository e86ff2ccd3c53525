package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/x402pay/paygate/storage"
	"github.com/x402pay/paygate/types"
)

// PaymentRecordStore implements storage.PaymentRecordStore using PostgreSQL.
type PaymentRecordStore struct {
	pool *Pool
}

// NewPaymentRecordStore creates a new PaymentRecordStore.
func NewPaymentRecordStore(pool *Pool) *PaymentRecordStore {
	return &PaymentRecordStore{pool: pool}
}

var _ storage.PaymentRecordStore = (*PaymentRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if tx_hash exists.
func (s *PaymentRecordStore) Insert(ctx context.Context, r *types.PaymentRecord) error {
	if err := storage.Validate(r); err != nil {
		return err
	}

	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal payment record metadata: %w", err)
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO payment_records (
			tx_hash, payer, recipient, network,
			amount, currency, category, service_label,
			metadata, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.TxHash, r.Payer, r.Recipient, string(r.Network),
		r.Amount, r.Currency, r.Category, r.ServiceLabel,
		string(meta), createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert payment record: %w", err)
	}
	return nil
}
