package memory

import (
	"context"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository on a Store.
type TransactionRepo struct {
	s *Store
}

func (r *TransactionRepo) RecordIfNew(ctx context.Context, tx pgx.Tx, t *domain.Transaction) (*domain.Transaction, bool, error) {
	var (
		stored  *domain.Transaction
		created bool
	)
	err := r.s.write(tx, func(onUndo func(func())) error {
		if t.IdempotencyKey != nil {
			k := idemKey{t.UserID, *t.IdempotencyKey}
			if idx, ok := r.s.idem[k]; ok {
				existing := r.s.txns[idx]
				stored = &existing
				return nil
			}
			r.s.idem[k] = len(r.s.txns)
			onUndo(func() { delete(r.s.idem, k) })
		}

		if t.Metadata == nil {
			t.Metadata = map[string]interface{}{}
		}
		n := len(r.s.txns)
		r.s.txns = append(r.s.txns, *t)
		onUndo(func() { r.s.txns = r.s.txns[:n] })

		stored, created = t, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	idx, ok := r.s.idem[idemKey{userID, key}]
	if !ok {
		return nil, nil
	}
	t := r.s.txns[idx]
	return &t, nil
}

// List returns matching transactions newest first. Appends happen under the
// write lock, so reverse insertion order is creation order descending.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.RLock()
	matched := []domain.Transaction{}
	for i := len(r.s.txns) - 1; i >= 0; i-- {
		t := r.s.txns[i]
		if t.UserID != params.UserID {
			continue
		}
		if params.CurrencyCode != nil && t.CurrencyCode != *params.CurrencyCode {
			continue
		}
		if params.Direction != nil && t.Direction != *params.Direction {
			continue
		}
		matched = append(matched, t)
	}
	r.s.mu.RUnlock()

	lo, hi := pageBounds(len(matched), params.Page, params.PageSize)
	return matched[lo:hi], int64(len(matched)), nil
}

// AuditRepo implements ports.AuditRepository on a Store.
type AuditRepo struct {
	s *Store
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *log)
	return nil
}

// Entries returns a copy of the recorded audit log.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.AuditLog, len(r.s.audit))
	copy(out, r.s.audit)
	return out
}
