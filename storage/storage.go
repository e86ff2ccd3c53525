// Package storage defines the append-only audit sink for verified payments.
package storage

import (
	"context"
	"errors"

	"github.com/x402pay/paygate/types"
)

// Storage errors for append-only stores.
var (
	// ErrDuplicateKey is returned when a record for the same transaction hash
	// already exists. Records are never updated.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// PaymentRecordStore persists payment records. The gate only ever writes.
type PaymentRecordStore interface {
	// Insert appends a record. Returns ErrDuplicateKey if tx_hash exists.
	Insert(ctx context.Context, r *types.PaymentRecord) error
}

// Validate checks the fields every store requires.
func Validate(r *types.PaymentRecord) error {
	if r == nil || r.TxHash == "" || r.Network == "" || r.Amount < 0 {
		return ErrInvalidInput
	}
	return nil
}
