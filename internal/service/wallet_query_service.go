package service

import (
	"context"
	"math"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize well inside int64 and a SQL OFFSET.
	MaxPage = math.MaxInt32
)

// NormalizePage applies the 1-based page default and clamps page and page size.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// walletQueryService implements ports.WalletQueryService.
type walletQueryService struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
}

// NewWalletQueryService creates a new read-side service.
func NewWalletQueryService(walletRepo ports.WalletRepository, txRepo ports.TransactionRepository) ports.WalletQueryService {
	return &walletQueryService{
		walletRepo: walletRepo,
		txRepo:     txRepo,
	}
}

// ListUserWallets returns all wallets of a user.
func (s *walletQueryService) ListUserWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return wallets, nil
}

// ListTransactions returns a page of a user's history, newest first.
func (s *walletQueryService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	params.Page, params.PageSize = NormalizePage(params.Page, params.PageSize)

	if params.CurrencyCode != nil {
		if !domain.ValidCurrencyCode(*params.CurrencyCode) {
			return nil, 0, apperror.ErrInvalidCurrencyCode()
		}
		code := domain.NormalizeCurrencyCode(*params.CurrencyCode)
		params.CurrencyCode = &code
	}
	if params.Direction != nil && !params.Direction.IsValid() {
		return nil, 0, apperror.Validation("direction must be credit or debit")
	}

	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

// ListAllWallets returns a page of every wallet in the system.
func (s *walletQueryService) ListAllWallets(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	params.Page, params.PageSize = NormalizePage(params.Page, params.PageSize)

	if params.CurrencyType != nil && !params.CurrencyType.IsValid() {
		return nil, 0, apperror.Validation("currency_type must be one of fiat, crypto, gold")
	}

	wallets, total, err := s.walletRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return wallets, total, nil
}
