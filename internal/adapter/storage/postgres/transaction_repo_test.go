package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestTransaction(userID uuid.UUID, key *string) *domain.Transaction {
	actor := uuid.New()
	return &domain.Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		CurrencyType:   domain.CurrencyTypeCrypto,
		CurrencyCode:   "BTC",
		Direction:      domain.DirectionCredit,
		Reason:         domain.ReasonDeposit,
		Amount:         decimal.RequireFromString("0.5"),
		BalanceAfter:   decimal.RequireFromString("1.5"),
		ActorID:        &actor,
		RequestID:      strPtr("req-1"),
		IdempotencyKey: key,
		Metadata:       map[string]interface{}{"source": "test"},
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func txCols() []string {
	return []string{"id", "user_id", "currency_type", "currency_code", "direction", "reason", "amount",
		"balance_after", "actor_id", "request_id", "idempotency_key", "metadata", "created_at"}
}

func txRow(t *domain.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(txCols()).AddRow(
		t.ID, t.UserID, t.CurrencyType, t.CurrencyCode, t.Direction, t.Reason,
		t.Amount, t.BalanceAfter, t.ActorID, t.RequestID, t.IdempotencyKey,
		t.Metadata, t.CreatedAt,
	)
}

func insertArgs(t *domain.Transaction) []any {
	return []any{
		t.ID, t.UserID, t.CurrencyType, t.CurrencyCode, t.Direction, t.Reason,
		t.Amount, t.BalanceAfter, t.ActorID, t.RequestID, t.IdempotencyKey,
		t.Metadata, t.CreatedAt,
	}
}

func TestTransactionRepo_RecordIfNew_Created(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New(), strPtr("order-1"))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO transactions .+ ON CONFLICT \(user_id, idempotency_key\) WHERE idempotency_key IS NOT NULL DO NOTHING`).
		WithArgs(insertArgs(txn)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(txn.ID))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	stored, created, err := repo.RecordIfNew(context.Background(), tx, txn)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, txn.ID, stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_RecordIfNew_ReturnsExistingOnConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	userID := uuid.New()
	existing := newTestTransaction(userID, strPtr("order-1"))
	retry := newTestTransaction(userID, strPtr("order-1"))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(insertArgs(retry)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .+ FROM transactions WHERE user_id = \$1 AND idempotency_key = \$2`).
		WithArgs(userID, "order-1").
		WillReturnRows(txRow(existing))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	stored, created, err := repo.RecordIfNew(context.Background(), tx, retry)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_RecordIfNew_NilMetadataBecomesEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New(), nil)
	txn.Metadata = nil

	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(txn.ID, txn.UserID, txn.CurrencyType, txn.CurrencyCode, txn.Direction, txn.Reason,
			txn.Amount, txn.BalanceAfter, txn.ActorID, txn.RequestID, txn.IdempotencyKey,
			map[string]interface{}{}, txn.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(txn.ID))

	_, created, err := repo.RecordIfNew(context.Background(), nil, txn)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, txn.Metadata)
}

func TestTransactionRepo_GetByIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New(), strPtr("k1"))

	mock.ExpectQuery(`SELECT .+ FROM transactions WHERE user_id = \$1 AND idempotency_key = \$2`).
		WithArgs(txn.UserID, "k1").
		WillReturnRows(txRow(txn))

	result, err := repo.GetByIdempotencyKey(context.Background(), txn.UserID, "k1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.True(t, result.BalanceAfter.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "test", result.Metadata["source"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIdempotencyKey_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery(`SELECT .+ FROM transactions WHERE user_id`).
		WithArgs(pgxmock.AnyArg(), "missing").
		WillReturnRows(pgxmock.NewRows(txCols()))

	result, err := repo.GetByIdempotencyKey(context.Background(), uuid.New(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestTransactionRepo_List_WithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	userID := uuid.New()
	txn := newTestTransaction(userID, nil)
	code := "BTC"
	dir := domain.DirectionCredit

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions WHERE user_id = \$1 AND currency_code = \$2 AND direction = \$3`).
		WithArgs(userID, code, dir).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(`SELECT .+ FROM transactions WHERE .+ ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 20`).
		WithArgs(userID, code, dir).
		WillReturnRows(txRow(txn))

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		UserID:       userID,
		CurrencyCode: &code,
		Direction:    &dir,
		Page:         2,
		PageSize:     20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, txns, 1)
	assert.Equal(t, txn.ID, txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT .+ FROM transactions WHERE user_id = \$1 ORDER BY`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(txCols()))

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{UserID: userID, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, txns)
	assert.Empty(t, txns)
}
