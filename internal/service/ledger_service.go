package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultIdempotencyTTL is used when no TTL is configured.
const DefaultIdempotencyTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService. It is the only code path
// that changes a wallet balance.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	idempTTL   time.Duration
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. idempCache may be nil.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	idempTTL time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if idempTTL <= 0 {
		idempTTL = DefaultIdempotencyTTL
	}
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		idempCache: idempCache,
		transactor: transactor,
		idempTTL:   idempTTL,
		log:        log,
	}
}

// adjustment is a validated AdjustRequest.
type adjustment struct {
	userID       uuid.UUID
	currencyType domain.CurrencyType
	code         string
	direction    domain.Direction
	amount       decimal.Decimal
	reason       domain.Reason
	requestID    *string
	idempKey     *string
	actorID      *uuid.UUID
	metadata     map[string]interface{}
}

func validateAdjust(req ports.AdjustRequest) (*adjustment, error) {
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.UserID == uuid.Nil {
		return nil, apperror.Validation("user_id is required")
	}
	if !req.CurrencyType.IsValid() {
		return nil, apperror.Validation("currency_type must be one of fiat, crypto, gold")
	}
	if !domain.ValidCurrencyCode(req.CurrencyCode) {
		return nil, apperror.ErrInvalidCurrencyCode()
	}
	if !req.Direction.IsValid() {
		return nil, apperror.Validation("direction must be credit or debit")
	}
	if !req.Reason.IsValid() {
		return nil, apperror.Validation("reason must be one of deposit, withdrawal, transfer, adjustment")
	}

	var idempKey *string
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		if !domain.ValidIdempotencyKey(*req.IdempotencyKey) {
			return nil, apperror.ErrInvalidIdempotencyKey()
		}
		idempKey = req.IdempotencyKey
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return &adjustment{
		userID:       req.UserID,
		currencyType: req.CurrencyType,
		code:         domain.NormalizeCurrencyCode(req.CurrencyCode),
		direction:    req.Direction,
		amount:       amount,
		reason:       req.Reason,
		requestID:    req.RequestID,
		idempKey:     idempKey,
		actorID:      req.ActorID,
		metadata:     metadata,
	}, nil
}

// Adjust applies one credit or debit and appends its transaction record.
// The wallet change and the record commit together or not at all.
func (s *LedgerServiceImpl) Adjust(ctx context.Context, req ports.AdjustRequest) (*domain.Transaction, error) {
	in, err := validateAdjust(req)
	if err != nil {
		return nil, err
	}

	if in.idempKey != nil {
		existing, err := s.findIdempotent(ctx, in.userID, *in.idempKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var wallet *domain.Wallet
	if in.direction == domain.DirectionDebit {
		wallet, err = s.walletRepo.TryIncrement(ctx, dbTx, in.userID, in.code, in.amount.Neg(), true)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("debit wallet: %w", err))
		}
		if wallet == nil {
			// Release the transaction before the follow-up read.
			_ = dbTx.Rollback(ctx)
			return nil, s.debitFailure(ctx, in)
		}
	} else {
		wallet, err = s.credit(ctx, dbTx, in)
		if err != nil {
			return nil, err
		}
	}

	txn := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         in.userID,
		CurrencyType:   wallet.CurrencyType,
		CurrencyCode:   wallet.CurrencyCode,
		Direction:      in.direction,
		Reason:         in.reason,
		Amount:         in.amount,
		BalanceAfter:   wallet.Balance,
		ActorID:        in.actorID,
		RequestID:      in.requestID,
		IdempotencyKey: in.idempKey,
		Metadata:       in.metadata,
		CreatedAt:      time.Now().UTC(),
	}

	stored, created, err := s.txRepo.RecordIfNew(ctx, dbTx, txn)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record transaction: %w", err))
	}
	if !created {
		// A concurrent call with the same key committed first; undo our mutation.
		_ = dbTx.Rollback(ctx)
		s.log.Info().
			Str("user_id", in.userID.String()).
			Str("idempotency_key", *in.idempKey).
			Str("tx_id", stored.ID.String()).
			Msg("concurrent duplicate adjustment resolved to existing transaction")
		s.cacheTransaction(ctx, stored)
		return stored, nil
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheTransaction(ctx, stored)

	s.log.Info().
		Str("tx_id", stored.ID.String()).
		Str("user_id", in.userID.String()).
		Str("currency", in.code).
		Str("direction", string(in.direction)).
		Str("amount", money.Format(in.amount)).
		Str("balance_after", money.Format(stored.BalanceAfter)).
		Msg("wallet balance adjusted")

	return stored, nil
}

// credit increments the wallet, creating it on first credit. A lost creation
// race is absorbed by exactly one retry of the increment.
func (s *LedgerServiceImpl) credit(ctx context.Context, dbTx pgx.Tx, in *adjustment) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.TryIncrement(ctx, dbTx, in.userID, in.code, in.amount, false)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	created := domain.NewWallet(in.userID, in.currencyType, in.code, in.amount)
	err = s.walletRepo.CreateIfAbsent(ctx, dbTx, created)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, domain.ErrWalletExists) {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	wallet, err = s.walletRepo.TryIncrement(ctx, dbTx, in.userID, in.code, in.amount, false)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit wallet after create conflict: %w", err))
	}
	if wallet == nil {
		s.log.Error().
			Str("user_id", in.userID.String()).
			Str("currency", in.code).
			Msg("wallet missing after uniqueness conflict")
		return nil, apperror.ErrLedgerInvariant(fmt.Errorf("wallet %s/%s not found after create conflict", in.userID, in.code))
	}
	return wallet, nil
}

// debitFailure tells a missing wallet apart from an underfunded one.
func (s *LedgerServiceImpl) debitFailure(ctx context.Context, in *adjustment) error {
	wallet, err := s.walletRepo.GetByUserAndCode(ctx, in.userID, in.code)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read wallet after failed debit: %w", err))
	}
	if wallet == nil {
		return apperror.ErrWalletNotFound()
	}

	s.log.Info().
		Str("user_id", in.userID.String()).
		Str("currency", in.code).
		Str("amount", money.Format(in.amount)).
		Str("balance", money.Format(wallet.Balance)).
		Msg("debit rejected: insufficient balance")
	return apperror.ErrInsufficientBalance()
}

// findIdempotent checks the Redis fast path, then the transactions table.
func (s *LedgerServiceImpl) findIdempotent(ctx context.Context, userID uuid.UUID, key string) (*domain.Transaction, error) {
	cacheKey := domain.BuildIdempotencyKey(userID, key)

	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, cacheKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			var txn domain.Transaction
			if err := json.Unmarshal(cached, &txn); err == nil {
				return &txn, nil
			}
			s.log.Warn().Str("key", cacheKey).Msg("discarding unreadable idempotency cache entry")
		}
	}

	txn, err := s.txRepo.GetByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if txn != nil {
		s.cacheTransaction(ctx, txn)
	}
	return txn, nil
}

// cacheTransaction is best-effort; a failure only costs a DB lookup later.
func (s *LedgerServiceImpl) cacheTransaction(ctx context.Context, txn *domain.Transaction) {
	if s.idempCache == nil || txn.IdempotencyKey == nil {
		return
	}
	cacheKey := domain.BuildIdempotencyKey(txn.UserID, *txn.IdempotencyKey)

	payload, err := json.Marshal(txn)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to marshal transaction for idempotency cache")
		return
	}
	if err := s.idempCache.Set(ctx, cacheKey, payload, s.idempTTL); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache idempotency in redis")
	}
}
