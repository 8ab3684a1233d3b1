package ports

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached transaction JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLimitResult is the outcome of one counted request.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}

// TokenService handles bearer token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role, ttl time.Duration) (string, time.Time, error)
	Validate(tokenString string) (*domain.Actor, error)
}

// --- Service Ports (Business Logic) ---

// LedgerService is the single entry point that mutates wallet balances.
type LedgerService interface {
	Adjust(ctx context.Context, req AdjustRequest) (*domain.Transaction, error)
}

// AdjustRequest holds unvalidated input for a balance adjustment.
type AdjustRequest struct {
	UserID         uuid.UUID
	CurrencyType   domain.CurrencyType
	CurrencyCode   string
	Direction      domain.Direction
	Amount         string
	Reason         domain.Reason
	RequestID      *string
	IdempotencyKey *string
	ActorID        *uuid.UUID
	Metadata       map[string]interface{}
}

// ProvisioningService creates the default zero-balance wallets of a user.
type ProvisioningService interface {
	ProvisionDefaults(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
}

// WalletQueryService defines the read side of the ledger.
type WalletQueryService interface {
	ListUserWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	ListAllWallets(ctx context.Context, params WalletListParams) ([]domain.Wallet, int64, error)
}

// AuditService records administrative actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
