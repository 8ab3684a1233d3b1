package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type ledgerTestDeps struct {
	svc        *LedgerServiceImpl
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	idempCache *mocks.MockIdempotencyCache
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewLedgerService(d.walletRepo, d.txRepo, d.idempCache, d.transactor, time.Hour, newTestLogger())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (m *mockTx) Rollback(_ context.Context) error {
	if m.commits > 0 || m.rollbacks > 0 {
		return pgx.ErrTxClosed
	}
	m.rollbacks++
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.commits++
	return nil
}

// decimalEq matches a decimal.Decimal by value regardless of exponent.
type decimalEq struct{ want decimal.Decimal }

func decEq(s string) gomock.Matcher { return decimalEq{decimal.RequireFromString(s)} }

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string { return "decimal equal to " + m.want.String() }

func strPtr(s string) *string { return &s }

func creditRequest(userID uuid.UUID, amount string) ports.AdjustRequest {
	return ports.AdjustRequest{
		UserID:       userID,
		CurrencyType: domain.CurrencyTypeFiat,
		CurrencyCode: "usd",
		Direction:    domain.DirectionCredit,
		Amount:       amount,
		Reason:       domain.ReasonDeposit,
	}
}

func walletWithBalance(userID uuid.UUID, code, balance string) *domain.Wallet {
	w := domain.NewWallet(userID, domain.CurrencyTypeFiat, code, decimal.RequireFromString(balance))
	return w
}

// ==================== Validation ====================

func TestLedgerService_Adjust_Validation(t *testing.T) {
	userID := uuid.New()
	tests := []struct {
		name   string
		mutate func(r *ports.AdjustRequest)
	}{
		{"empty amount", func(r *ports.AdjustRequest) { r.Amount = "" }},
		{"negative amount", func(r *ports.AdjustRequest) { r.Amount = "-1" }},
		{"zero amount", func(r *ports.AdjustRequest) { r.Amount = "0.00000000" }},
		{"too many decimals", func(r *ports.AdjustRequest) { r.Amount = "1.123456789" }},
		{"exponent", func(r *ports.AdjustRequest) { r.Amount = "1e5" }},
		{"too long", func(r *ports.AdjustRequest) { r.Amount = "123456789012345678901" }},
		{"missing user", func(r *ports.AdjustRequest) { r.UserID = uuid.Nil }},
		{"bad currency type", func(r *ports.AdjustRequest) { r.CurrencyType = "stock" }},
		{"short currency code", func(r *ports.AdjustRequest) { r.CurrencyCode = "US" }},
		{"currency code symbols", func(r *ports.AdjustRequest) { r.CurrencyCode = "US$" }},
		{"currency code padded with spaces", func(r *ports.AdjustRequest) { r.CurrencyCode = " usd " }},
		{"bad direction", func(r *ports.AdjustRequest) { r.Direction = "refund" }},
		{"bad reason", func(r *ports.AdjustRequest) { r.Reason = "gift" }},
		{"bad idempotency key", func(r *ports.AdjustRequest) { r.IdempotencyKey = strPtr("has space") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupLedgerService(t)
			req := creditRequest(userID, "10")
			tt.mutate(&req)

			result, err := d.svc.Adjust(context.Background(), req)
			assert.Nil(t, result)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VAL_001", appErr.Code)
		})
	}
}

// ==================== Credit ====================

func TestLedgerService_Adjust_CreditExistingWallet(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	after := walletWithBalance(userID, "USD", "150")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", decEq("50"), false).Return(after, nil)
	d.txRepo.EXPECT().RecordIfNew(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) (*domain.Transaction, bool, error) {
			return txn, true, nil
		})

	result, err := d.svc.Adjust(ctx, creditRequest(userID, "50.00000000"))
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionCredit, result.Direction)
	assert.Equal(t, "USD", result.CurrencyCode)
	assert.True(t, result.BalanceAfter.Equal(decimal.RequireFromString("150")))
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("50")))
	assert.NotNil(t, result.Metadata)
	assert.Equal(t, 1, tx.commits)
}

func TestLedgerService_Adjust_CreditCreatesWallet(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", decEq("100"), false).Return(nil, nil)
	d.walletRepo.EXPECT().CreateIfAbsent(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, w *domain.Wallet) error {
			assert.Equal(t, userID, w.UserID)
			assert.Equal(t, "USD", w.CurrencyCode)
			assert.True(t, w.Balance.Equal(decimal.RequireFromString("100")))
			return nil
		})
	d.txRepo.EXPECT().RecordIfNew(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) (*domain.Transaction, bool, error) {
			return txn, true, nil
		})

	result, err := d.svc.Adjust(ctx, creditRequest(userID, "100.00000000"))
	require.NoError(t, err)
	assert.True(t, result.BalanceAfter.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, domain.CurrencyTypeFiat, result.CurrencyType)
}

func TestLedgerService_Adjust_CreditCreateRaceRetriesOnce(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	after := walletWithBalance(userID, "USD", "30")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	gomock.InOrder(
		d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", decEq("10"), false).Return(nil, nil),
		d.walletRepo.EXPECT().CreateIfAbsent(ctx, tx, gomock.Any()).Return(domain.ErrWalletExists),
		d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", decEq("10"), false).Return(after, nil),
	)
	d.txRepo.EXPECT().RecordIfNew(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) (*domain.Transaction, bool, error) {
			return txn, true, nil
		})

	result, err := d.svc.Adjust(ctx, creditRequest(userID, "10"))
	require.NoError(t, err)
	assert.True(t, result.BalanceAfter.Equal(decimal.RequireFromString("30")))
}

func TestLedgerService_Adjust_CreditRetryMissIsInvariantViolation(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", gomock.Any(), false).Return(nil, nil).Times(2)
	d.walletRepo.EXPECT().CreateIfAbsent(ctx, tx, gomock.Any()).Return(domain.ErrWalletExists)

	result, err := d.svc.Adjust(ctx, creditRequest(userID, "10"))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperror.ErrLedgerInvariant(nil))
	assert.Equal(t, 0, tx.commits)
	assert.Equal(t, 1, tx.rollbacks)
}

func TestLedgerService_Adjust_CreditCreateFails(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", gomock.Any(), false).Return(nil, nil)
	d.walletRepo.EXPECT().CreateIfAbsent(ctx, tx, gomock.Any()).Return(errors.New("disk full"))

	_, err := d.svc.Adjust(ctx, creditRequest(userID, "10"))
	assert.ErrorIs(t, err, apperror.InternalError(nil))
}

// ==================== Debit ====================

func debitRequest(userID uuid.UUID, amount string) ports.AdjustRequest {
	req := creditRequest(userID, amount)
	req.Direction = domain.DirectionDebit
	req.Reason = domain.ReasonWithdrawal
	return req
}

func TestLedgerService_Adjust_DebitSuccess(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	after := walletWithBalance(userID, "USD", "70")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", decEq("-30"), true).Return(after, nil)
	d.txRepo.EXPECT().RecordIfNew(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) (*domain.Transaction, bool, error) {
			assert.Equal(t, domain.DirectionDebit, txn.Direction)
			assert.True(t, txn.Amount.Equal(decimal.RequireFromString("30")))
			return txn, true, nil
		})

	result, err := d.svc.Adjust(ctx, debitRequest(userID, "30"))
	require.NoError(t, err)
	assert.True(t, result.BalanceAfter.Equal(decimal.RequireFromString("70")))
	assert.Equal(t, 1, tx.commits)
}

func TestLedgerService_Adjust_DebitInsufficientBalance(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", decEq("-150"), true).Return(nil, nil)
	d.walletRepo.EXPECT().GetByUserAndCode(ctx, userID, "USD").Return(walletWithBalance(userID, "USD", "100"), nil)

	result, err := d.svc.Adjust(ctx, debitRequest(userID, "150"))
	assert.Nil(t, result)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WAL_002", appErr.Code)
	assert.Equal(t, 403, appErr.HTTPStatus)
	assert.Equal(t, 1, tx.rollbacks)
}

func TestLedgerService_Adjust_DebitWalletNotFound(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", gomock.Any(), true).Return(nil, nil)
	d.walletRepo.EXPECT().GetByUserAndCode(ctx, userID, "USD").Return(nil, nil)

	_, err := d.svc.Adjust(ctx, debitRequest(userID, "1"))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WAL_001", appErr.Code)
	assert.Equal(t, 404, appErr.HTTPStatus)
}

func TestLedgerService_Adjust_DebitStoreError(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", gomock.Any(), true).Return(nil, errors.New("conn reset"))

	_, err := d.svc.Adjust(ctx, debitRequest(userID, "1"))
	assert.ErrorIs(t, err, apperror.InternalError(nil))
}

// ==================== Idempotency ====================

func TestLedgerService_Adjust_IdempotentCacheHit(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()

	original := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		CurrencyCode:   "USD",
		Direction:      domain.DirectionCredit,
		Amount:         decimal.RequireFromString("100"),
		BalanceAfter:   decimal.RequireFromString("100"),
		IdempotencyKey: strPtr("dep-1"),
	}
	payload, err := json.Marshal(original)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(ctx, domain.BuildIdempotencyKey(userID, "dep-1")).Return(payload, nil)

	req := creditRequest(userID, "999")
	req.IdempotencyKey = strPtr("dep-1")

	result, err := d.svc.Adjust(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, original.ID, result.ID)
	assert.True(t, result.BalanceAfter.Equal(decimal.RequireFromString("100")))
}

func TestLedgerService_Adjust_IdempotentDBHitAfterCacheError(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	cacheKey := domain.BuildIdempotencyKey(userID, "dep-1")

	original := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		IdempotencyKey: strPtr("dep-1"),
	}

	d.idempCache.EXPECT().Get(ctx, cacheKey).Return(nil, fmt.Errorf("redis down"))
	d.txRepo.EXPECT().GetByIdempotencyKey(ctx, userID, "dep-1").Return(original, nil)
	d.idempCache.EXPECT().Set(ctx, cacheKey, gomock.Any(), time.Hour).Return(fmt.Errorf("redis down"))

	req := creditRequest(userID, "100")
	req.IdempotencyKey = strPtr("dep-1")

	result, err := d.svc.Adjust(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, original.ID, result.ID)
}

func TestLedgerService_Adjust_IdempotencyDBError(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.txRepo.EXPECT().GetByIdempotencyKey(ctx, userID, "dep-1").Return(nil, errors.New("timeout"))

	req := creditRequest(userID, "100")
	req.IdempotencyKey = strPtr("dep-1")

	_, err := d.svc.Adjust(ctx, req)
	assert.ErrorIs(t, err, apperror.InternalError(nil))
}

func TestLedgerService_Adjust_ConcurrentDuplicateRollsBack(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	cacheKey := domain.BuildIdempotencyKey(userID, "dep-1")

	winner := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		BalanceAfter:   decimal.RequireFromString("100"),
		IdempotencyKey: strPtr("dep-1"),
	}

	d.idempCache.EXPECT().Get(ctx, cacheKey).Return(nil, nil)
	d.txRepo.EXPECT().GetByIdempotencyKey(ctx, userID, "dep-1").Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", gomock.Any(), false).
		Return(walletWithBalance(userID, "USD", "200"), nil)
	d.txRepo.EXPECT().RecordIfNew(ctx, tx, gomock.Any()).Return(winner, false, nil)
	d.idempCache.EXPECT().Set(ctx, cacheKey, gomock.Any(), time.Hour).Return(nil)

	req := creditRequest(userID, "100")
	req.IdempotencyKey = strPtr("dep-1")

	result, err := d.svc.Adjust(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, result.ID)
	assert.Equal(t, 0, tx.commits)
	assert.Equal(t, 1, tx.rollbacks)
}

func TestLedgerService_Adjust_SuccessCachesWithKey(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	cacheKey := domain.BuildIdempotencyKey(userID, "dep-2")

	d.idempCache.EXPECT().Get(ctx, cacheKey).Return(nil, nil)
	d.txRepo.EXPECT().GetByIdempotencyKey(ctx, userID, "dep-2").Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", gomock.Any(), false).
		Return(walletWithBalance(userID, "USD", "5"), nil)
	d.txRepo.EXPECT().RecordIfNew(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) (*domain.Transaction, bool, error) {
			require.NotNil(t, txn.IdempotencyKey)
			assert.Equal(t, "dep-2", *txn.IdempotencyKey)
			return txn, true, nil
		})
	d.idempCache.EXPECT().Set(ctx, cacheKey, gomock.Any(), time.Hour).DoAndReturn(
		func(_ context.Context, _ string, value []byte, _ time.Duration) error {
			var cached domain.Transaction
			require.NoError(t, json.Unmarshal(value, &cached))
			assert.True(t, cached.BalanceAfter.Equal(decimal.RequireFromString("5")))
			return nil
		})

	req := creditRequest(userID, "5")
	req.IdempotencyKey = strPtr("dep-2")

	_, err := d.svc.Adjust(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, tx.commits)
}

// ==================== Infrastructure failures ====================

func TestLedgerService_Adjust_BeginFails(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()

	d.transactor.EXPECT().Begin(ctx).Return(nil, errors.New("pool exhausted"))

	_, err := d.svc.Adjust(ctx, creditRequest(uuid.New(), "1"))
	assert.ErrorIs(t, err, apperror.InternalError(nil))
}

func TestLedgerService_Adjust_RecordFailsRollsBackMutation(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().TryIncrement(ctx, tx, userID, "USD", gomock.Any(), false).
		Return(walletWithBalance(userID, "USD", "1"), nil)
	d.txRepo.EXPECT().RecordIfNew(ctx, tx, gomock.Any()).Return(nil, false, errors.New("insert failed"))

	_, err := d.svc.Adjust(ctx, creditRequest(userID, "1"))
	assert.ErrorIs(t, err, apperror.InternalError(nil))
	assert.Equal(t, 0, tx.commits)
	assert.Equal(t, 1, tx.rollbacks)
}
