package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrWalletExists is returned by wallet stores when a wallet for the same
// (user, currency code) pair already exists.
var ErrWalletExists = errors.New("wallet already exists")

// CurrencyType classifies the asset a wallet holds.
type CurrencyType string

const (
	CurrencyTypeFiat   CurrencyType = "fiat"
	CurrencyTypeCrypto CurrencyType = "crypto"
	CurrencyTypeGold   CurrencyType = "gold"
)

// IsValid reports whether t is a known currency type.
func (t CurrencyType) IsValid() bool {
	switch t {
	case CurrencyTypeFiat, CurrencyTypeCrypto, CurrencyTypeGold:
		return true
	}
	return false
}

var currencyCodeRe = regexp.MustCompile(`^[A-Z0-9_-]{3,10}$`)

// NormalizeCurrencyCode upper-cases a currency code. Surrounding whitespace is
// kept so that ValidCurrencyCode rejects it.
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(code)
}

// ValidCurrencyCode reports whether code, once normalized, is 3-10 characters
// of A-Z, 0-9, '_' or '-'.
func ValidCurrencyCode(code string) bool {
	return currencyCodeRe.MatchString(NormalizeCurrencyCode(code))
}

// Wallet is the balance of one user in one currency. At most one wallet exists
// per (UserID, CurrencyCode) and Balance is never negative.
type Wallet struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	CurrencyType CurrencyType    `json:"currency_type"`
	CurrencyCode string          `json:"currency_code"`
	Balance      decimal.Decimal `json:"balance"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewWallet builds a wallet ready to be inserted with the given opening balance.
func NewWallet(userID uuid.UUID, currencyType CurrencyType, code string, balance decimal.Decimal) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:           uuid.New(),
		UserID:       userID,
		CurrencyType: currencyType,
		CurrencyCode: NormalizeCurrencyCode(code),
		Balance:      balance,
		Version:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DefaultWallet is one entry of the zero-balance set provisioned for new users.
type DefaultWallet struct {
	CurrencyType CurrencyType
	CurrencyCode string
}

// DefaultWallets is the built-in provisioning set across all currency types.
var DefaultWallets = []DefaultWallet{
	{CurrencyTypeFiat, "USD"},
	{CurrencyTypeFiat, "EUR"},
	{CurrencyTypeFiat, "IRR"},
	{CurrencyTypeCrypto, "BTC"},
	{CurrencyTypeCrypto, "ETH"},
	{CurrencyTypeCrypto, "USDT"},
	{CurrencyTypeGold, "XAU"},
	{CurrencyTypeGold, "GOLD18K"},
}
