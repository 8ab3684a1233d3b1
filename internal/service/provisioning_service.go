package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// provisioningService implements ports.ProvisioningService.
type provisioningService struct {
	walletRepo ports.WalletRepository
	defaults   []domain.DefaultWallet
	log        zerolog.Logger
}

// NewProvisioningService creates a provisioning service for the given default
// set. An empty set falls back to domain.DefaultWallets.
func NewProvisioningService(walletRepo ports.WalletRepository, defaults []domain.DefaultWallet, log zerolog.Logger) ports.ProvisioningService {
	if len(defaults) == 0 {
		defaults = domain.DefaultWallets
	}
	return &provisioningService{
		walletRepo: walletRepo,
		defaults:   defaults,
		log:        log,
	}
}

// ProvisionDefaults creates every missing default wallet with a zero balance.
// Existing wallets are left untouched, so repeated calls are harmless.
func (s *provisioningService) ProvisionDefaults(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	if userID == uuid.Nil {
		return nil, apperror.Validation("user_id is required")
	}

	created := 0
	for _, d := range s.defaults {
		w := domain.NewWallet(userID, d.CurrencyType, d.CurrencyCode, decimal.Zero)
		err := s.walletRepo.CreateIfAbsent(ctx, nil, w)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrWalletExists):
			s.log.Debug().
				Str("user_id", userID.String()).
				Str("currency", w.CurrencyCode).
				Msg("default wallet already exists")
		default:
			return nil, apperror.InternalError(fmt.Errorf("provision %s wallet: %w", w.CurrencyCode, err))
		}
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Int("created", created).
		Int("defaults", len(s.defaults)).
		Msg("default wallets provisioned")

	wallets, err := s.walletRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return wallets, nil
}

// DefaultWalletsFromConfig converts the ledger.default_wallets map (currency
// code to currency type) into a provisioning set ordered by type then code.
func DefaultWalletsFromConfig(m map[string]string) ([]domain.DefaultWallet, error) {
	if len(m) == 0 {
		return domain.DefaultWallets, nil
	}

	out := make([]domain.DefaultWallet, 0, len(m))
	for code, typ := range m {
		ct := domain.CurrencyType(typ)
		if !ct.IsValid() {
			return nil, fmt.Errorf("default wallet %s: unknown currency type %q", code, typ)
		}
		if !domain.ValidCurrencyCode(code) {
			return nil, fmt.Errorf("default wallet: invalid currency code %q", code)
		}
		out = append(out, domain.DefaultWallet{
			CurrencyType: ct,
			CurrencyCode: domain.NormalizeCurrencyCode(code),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CurrencyType != out[j].CurrencyType {
			return out[i].CurrencyType < out[j].CurrencyType
		}
		return out[i].CurrencyCode < out[j].CurrencyCode
	})
	return out, nil
}
