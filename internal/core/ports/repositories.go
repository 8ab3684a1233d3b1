package ports

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

import (
	"context"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside the caller's transaction; a nil tx runs
// the statement on its own.
type WalletRepository interface {
	// TryIncrement adds delta to the balance of the (userID, code) wallet in one
	// atomic step. With requireFunds set, the step only applies when the current
	// balance is at least -delta. A nil wallet means nothing was applied.
	TryIncrement(ctx context.Context, tx pgx.Tx, userID uuid.UUID, code string, delta decimal.Decimal, requireFunds bool) (*domain.Wallet, error)
	// CreateIfAbsent inserts w unless a wallet for the same (user, code) exists,
	// in which case it returns domain.ErrWalletExists.
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error
	GetByUserAndCode(ctx context.Context, userID uuid.UUID, code string) (*domain.Wallet, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	List(ctx context.Context, params WalletListParams) ([]domain.Wallet, int64, error)
}

// TransactionRepository defines the append-only transaction log.
type TransactionRepository interface {
	// RecordIfNew inserts t. When t carries an idempotency key already used by
	// the same user, the stored transaction is returned with created=false.
	RecordIfNew(ctx context.Context, tx pgx.Tx, t *domain.Transaction) (stored *domain.Transaction, created bool, err error)
	GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for a user's history.
type TransactionListParams struct {
	UserID       uuid.UUID
	CurrencyCode *string
	Direction    *domain.Direction
	Page         int
	PageSize     int
}

// WalletListParams holds pagination for the system-wide wallet list.
type WalletListParams struct {
	CurrencyType *domain.CurrencyType
	Page         int
	PageSize     int
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
