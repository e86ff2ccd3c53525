package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/x402pay/paygate/storage"
	"github.com/x402pay/paygate/types"
)

// PaymentRecordStore is an in-memory implementation of storage.PaymentRecordStore.
type PaymentRecordStore struct {
	mu   sync.RWMutex
	data map[string]*types.PaymentRecord // keyed by tx_hash
}

// NewPaymentRecordStore creates a new in-memory payment record store.
func NewPaymentRecordStore() *PaymentRecordStore {
	return &PaymentRecordStore{
		data: make(map[string]*types.PaymentRecord),
	}
}

var _ storage.PaymentRecordStore = (*PaymentRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if tx_hash exists.
func (s *PaymentRecordStore) Insert(_ context.Context, r *types.PaymentRecord) error {
	if err := storage.Validate(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.TxHash]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	if r.Metadata != nil {
		copy.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			copy.Metadata[k] = v
		}
	}
	s.data[r.TxHash] = &copy
	return nil
}

// All returns a snapshot of stored records ordered by creation time.
func (s *PaymentRecordStore) All() []types.PaymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.PaymentRecord, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TxHash < out[j].TxHash
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of stored records.
func (s *PaymentRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
