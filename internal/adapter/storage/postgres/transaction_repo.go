package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, user_id, currency_type, currency_code, direction, reason, amount,
	balance_after, actor_id, request_id, idempotency_key, metadata, created_at`

// TransactionRepo implements ports.TransactionRepository. The table is
// append-only; there is no update or delete path.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// RecordIfNew appends t. A conflicting (user_id, idempotency_key) is resolved by
// the partial unique index: nothing is inserted and the stored row is returned.
func (r *TransactionRepo) RecordIfNew(ctx context.Context, tx pgx.Tx, t *domain.Transaction) (*domain.Transaction, bool, error) {
	if t.Metadata == nil {
		t.Metadata = map[string]interface{}{}
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING id`

	q := conn(r.pool, tx)
	var id uuid.UUID
	err := q.QueryRow(ctx, query,
		t.ID, t.UserID, t.CurrencyType, t.CurrencyCode, t.Direction, t.Reason,
		t.Amount, t.BalanceAfter, t.ActorID, t.RequestID, t.IdempotencyKey,
		t.Metadata, t.CreatedAt,
	).Scan(&id)
	if err == nil {
		return t, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || t.IdempotencyKey == nil {
		return nil, false, fmt.Errorf("insert transaction: %w", err)
	}

	existing, err := scanTransaction(q.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND idempotency_key = $2`,
		t.UserID, *t.IdempotencyKey,
	))
	if err != nil {
		return nil, false, fmt.Errorf("load conflicting transaction: %w", err)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("idempotency conflict without stored transaction for key %q", *t.IdempotencyKey)
	}
	return existing, false, nil
}

// GetByIdempotencyKey fetches the transaction a user recorded under key.
func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND idempotency_key = $2`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, userID, key))
	if err != nil {
		return nil, fmt.Errorf("get transaction by idempotency key: %w", err)
	}
	return t, nil
}

// List fetches a user's transactions newest first with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	countQ := psql.Select("COUNT(*)").From("transactions").Where("user_id = ?", params.UserID)
	dataQ := psql.Select(transactionColumns).From("transactions").Where("user_id = ?", params.UserID)
	if params.CurrencyCode != nil {
		countQ = countQ.Where("currency_code = ?", *params.CurrencyCode)
		dataQ = dataQ.Where("currency_code = ?", *params.CurrencyCode)
	}
	if params.Direction != nil {
		countQ = countQ.Where("direction = ?", *params.Direction)
		dataQ = dataQ.Where("direction = ?", *params.Direction)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build transaction count query: %w", err)
	}
	var total int64
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	dataSQL, dataArgs, err := dataQ.
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(params.PageSize)).
		Offset(pageOffset(params.Page, params.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build transaction list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(transactionDest(&t)...); err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

func transactionDest(t *domain.Transaction) []any {
	return []any{
		&t.ID, &t.UserID, &t.CurrencyType, &t.CurrencyCode, &t.Direction, &t.Reason,
		&t.Amount, &t.BalanceAfter, &t.ActorID, &t.RequestID, &t.IdempotencyKey,
		&t.Metadata, &t.CreatedAt,
	}
}

// scanTransaction is a helper to scan a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	if err := row.Scan(transactionDest(t)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}
