package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction tells whether a transaction added to or removed from a balance.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// IsValid reports whether d is credit or debit.
func (d Direction) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Sign is +1 for credits and -1 for debits.
func (d Direction) Sign() int {
	if d == DirectionDebit {
		return -1
	}
	return 1
}

// Reason is the business reason recorded with a transaction.
type Reason string

const (
	ReasonDeposit    Reason = "deposit"
	ReasonWithdrawal Reason = "withdrawal"
	ReasonTransfer   Reason = "transfer"
	ReasonAdjustment Reason = "adjustment"
)

// IsValid reports whether r is a known reason.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonDeposit, ReasonWithdrawal, ReasonTransfer, ReasonAdjustment:
		return true
	}
	return false
}

// Transaction is an immutable record of one balance mutation. BalanceAfter is
// the wallet balance right after this mutation was applied.
type Transaction struct {
	ID             uuid.UUID              `json:"id"`
	UserID         uuid.UUID              `json:"user_id"`
	CurrencyType   CurrencyType           `json:"currency_type"`
	CurrencyCode   string                 `json:"currency_code"`
	Direction      Direction              `json:"direction"`
	Reason         Reason                 `json:"reason"`
	Amount         decimal.Decimal        `json:"amount"`
	BalanceAfter   decimal.Decimal        `json:"balance_after"`
	ActorID        *uuid.UUID             `json:"actor_id,omitempty"`
	RequestID      *string                `json:"request_id,omitempty"`
	IdempotencyKey *string                `json:"idempotency_key,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// SignedAmount is +Amount for credits and -Amount for debits.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(int64(t.Direction.Sign())))
}

var idempotencyKeyRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,100}$`)

// ValidIdempotencyKey reports whether key is 1-100 characters of
// a-z, A-Z, 0-9, '_' or '-'.
func ValidIdempotencyKey(key string) bool {
	return idempotencyKeyRe.MatchString(key)
}

// BuildIdempotencyKey scopes a client key to its wallet owner.
func BuildIdempotencyKey(userID uuid.UUID, key string) string {
	return userID.String() + ":" + key
}
