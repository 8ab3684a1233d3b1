package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/money"
)

// AdjustRequest is the request body for an administrative balance adjustment.
type AdjustRequest struct {
	UserID         string                 `json:"user_id" binding:"required,uuid"`
	CurrencyType   string                 `json:"currency_type" binding:"required,oneof=fiat crypto gold"`
	CurrencyCode   string                 `json:"currency_code" binding:"required,currency_code"`
	Direction      string                 `json:"direction" binding:"required,oneof=credit debit"`
	Amount         string                 `json:"amount" binding:"required,ledger_amount"`
	Reason         string                 `json:"reason" binding:"required,oneof=deposit withdrawal transfer adjustment"`
	RequestID      *string                `json:"request_id,omitempty" binding:"omitempty,max=100"`
	IdempotencyKey *string                `json:"idempotency_key,omitempty" binding:"omitempty,idem_key"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// WalletResponse is one wallet as returned to clients. Balance is the exact
// decimal string; BalanceFloat is for display only.
type WalletResponse struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	CurrencyType string  `json:"currency_type"`
	CurrencyCode string  `json:"currency_code"`
	Balance      string  `json:"balance"`
	BalanceFloat float64 `json:"balance_float"`
	Version      int64   `json:"version"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// TransactionResponse is one ledger entry as returned to clients.
type TransactionResponse struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	CurrencyType   string                 `json:"currency_type"`
	CurrencyCode   string                 `json:"currency_code"`
	Direction      string                 `json:"direction"`
	Reason         string                 `json:"reason"`
	Amount         string                 `json:"amount"`
	BalanceAfter   string                 `json:"balance_after"`
	ActorID        *string                `json:"actor_id,omitempty"`
	RequestID      *string                `json:"request_id,omitempty"`
	IdempotencyKey *string                `json:"idempotency_key,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      string                 `json:"created_at"`
}

func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:           w.ID.String(),
		UserID:       w.UserID.String(),
		CurrencyType: string(w.CurrencyType),
		CurrencyCode: w.CurrencyCode,
		Balance:      money.Format(w.Balance),
		BalanceFloat: money.Float(w.Balance),
		Version:      w.Version,
		CreatedAt:    w.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func NewWalletResponses(wallets []domain.Wallet) []WalletResponse {
	items := make([]WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, NewWalletResponse(&wallets[i]))
	}
	return items
}

func NewTransactionResponse(tx *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:             tx.ID.String(),
		UserID:         tx.UserID.String(),
		CurrencyType:   string(tx.CurrencyType),
		CurrencyCode:   tx.CurrencyCode,
		Direction:      string(tx.Direction),
		Reason:         string(tx.Reason),
		Amount:         money.Format(tx.Amount),
		BalanceAfter:   money.Format(tx.BalanceAfter),
		RequestID:      tx.RequestID,
		IdempotencyKey: tx.IdempotencyKey,
		Metadata:       tx.Metadata,
		CreatedAt:      tx.CreatedAt.UTC().Format(time.RFC3339),
	}
	if tx.ActorID != nil {
		s := tx.ActorID.String()
		resp.ActorID = &s
	}
	return resp
}

func NewTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	items := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, NewTransactionResponse(&txns[i]))
	}
	return items
}
