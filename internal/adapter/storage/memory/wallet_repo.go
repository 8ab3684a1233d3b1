package memory

import (
	"context"
	"fmt"
	"sort"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository on a Store.
type WalletRepo struct {
	s *Store
}

func (r *WalletRepo) TryIncrement(ctx context.Context, tx pgx.Tx, userID uuid.UUID, code string, delta decimal.Decimal, requireFunds bool) (*domain.Wallet, error) {
	var result *domain.Wallet
	err := r.s.write(tx, func(onUndo func(func())) error {
		k := walletKey{userID, code}
		w, ok := r.s.wallets[k]
		if !ok {
			return nil
		}

		next := w.Balance.Add(delta)
		if next.IsNegative() {
			if requireFunds {
				return nil
			}
			return fmt.Errorf("wallet %s/%s: balance would become negative", userID, code)
		}

		prev := w
		w.Balance = next
		w.Version++
		w.UpdatedAt = r.s.now()
		r.s.wallets[k] = w
		onUndo(func() { r.s.wallets[k] = prev })

		result = &w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *WalletRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	return r.s.write(tx, func(onUndo func(func())) error {
		k := walletKey{w.UserID, w.CurrencyCode}
		if _, ok := r.s.wallets[k]; ok {
			return domain.ErrWalletExists
		}
		r.s.wallets[k] = *w
		onUndo(func() { delete(r.s.wallets, k) })
		return nil
	})
}

func (r *WalletRepo) GetByUserAndCode(ctx context.Context, userID uuid.UUID, code string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.wallets[walletKey{userID, code}]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	r.s.mu.RLock()
	wallets := []domain.Wallet{}
	for k, w := range r.s.wallets {
		if k.userID == userID {
			wallets = append(wallets, w)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].CurrencyType != wallets[j].CurrencyType {
			return wallets[i].CurrencyType < wallets[j].CurrencyType
		}
		return wallets[i].CurrencyCode < wallets[j].CurrencyCode
	})
	return wallets, nil
}

func (r *WalletRepo) List(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	r.s.mu.RLock()
	all := make([]domain.Wallet, 0, len(r.s.wallets))
	for _, w := range r.s.wallets {
		if params.CurrencyType != nil && w.CurrencyType != *params.CurrencyType {
			continue
		}
		all = append(all, w)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})

	lo, hi := pageBounds(len(all), params.Page, params.PageSize)
	return all[lo:hi], int64(len(all)), nil
}

// pageBounds converts a 1-based page into slice bounds clamped to n.
func pageBounds(n, page, pageSize int) (int, int) {
	if page < 1 || pageSize < 1 {
		return 0, 0
	}
	if page-1 > n/pageSize {
		return n, n
	}
	lo := (page - 1) * pageSize
	if lo > n {
		lo = n
	}
	hi := lo + pageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}
