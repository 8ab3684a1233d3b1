package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCurrencyType_IsValid(t *testing.T) {
	tests := []struct {
		name string
		ct   CurrencyType
		want bool
	}{
		{"fiat", CurrencyTypeFiat, true},
		{"crypto", CurrencyTypeCrypto, true},
		{"gold", CurrencyTypeGold, true},
		{"empty", "", false},
		{"upper", "FIAT", false},
		{"stock", "stock", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ct.IsValid())
		})
	}
}

func TestValidCurrencyCode(t *testing.T) {
	valid := []string{"USD", "usd", "btc", "GOLD18K", "USDT-TRC20", "XAU_G"}
	for _, code := range valid {
		assert.True(t, ValidCurrencyCode(code), "expected valid: %q", code)
	}

	invalid := []string{"", "US", "TOOLONGCODE1", "US D", "US$", "ریال", " usd ", "usd\n", "\tBTC"}
	for _, code := range invalid {
		assert.False(t, ValidCurrencyCode(code), "expected invalid: %q", code)
	}
}

func TestNormalizeCurrencyCode(t *testing.T) {
	assert.Equal(t, "USDT", NormalizeCurrencyCode("usdt"))
	assert.Equal(t, " USDT", NormalizeCurrencyCode(" usdt"))
}

func TestValidIdempotencyKey(t *testing.T) {
	assert.True(t, ValidIdempotencyKey("a"))
	assert.True(t, ValidIdempotencyKey("req_2024-01-01_ABC"))
	assert.False(t, ValidIdempotencyKey(""))
	assert.False(t, ValidIdempotencyKey("has space"))
	assert.False(t, ValidIdempotencyKey("dot.not.allowed"))

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'k'
	}
	assert.False(t, ValidIdempotencyKey(string(long)))
	assert.True(t, ValidIdempotencyKey(string(long[:100])))
}

func TestDirectionAndReason_IsValid(t *testing.T) {
	assert.True(t, DirectionCredit.IsValid())
	assert.True(t, DirectionDebit.IsValid())
	assert.False(t, Direction("refund").IsValid())

	for _, r := range []Reason{ReasonDeposit, ReasonWithdrawal, ReasonTransfer, ReasonAdjustment} {
		assert.True(t, r.IsValid())
	}
	assert.False(t, Reason("gift").IsValid())
}

func TestDirection_Sign(t *testing.T) {
	assert.Equal(t, 1, DirectionCredit.Sign())
	assert.Equal(t, -1, DirectionDebit.Sign())
}

func TestTransaction_SignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("30")

	credit := &Transaction{Direction: DirectionCredit, Amount: amount}
	debit := &Transaction{Direction: DirectionDebit, Amount: amount}

	assert.True(t, credit.SignedAmount().Equal(amount))
	assert.True(t, debit.SignedAmount().Equal(amount.Neg()))
}

func TestNewWallet(t *testing.T) {
	userID := uuid.New()
	w := NewWallet(userID, CurrencyTypeCrypto, "btc", decimal.Zero)

	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.Equal(t, userID, w.UserID)
	assert.Equal(t, "BTC", w.CurrencyCode)
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, int64(0), w.Version)
	assert.False(t, w.CreatedAt.IsZero())
}

func TestBuildIdempotencyKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:ORDER-001", BuildIdempotencyKey(id, "ORDER-001"))
}

func TestDefaultWallets_CoverAllTypes(t *testing.T) {
	seen := map[CurrencyType]bool{}
	codes := map[string]bool{}
	for _, dw := range DefaultWallets {
		assert.True(t, dw.CurrencyType.IsValid())
		assert.True(t, ValidCurrencyCode(dw.CurrencyCode), dw.CurrencyCode)
		assert.False(t, codes[dw.CurrencyCode], "duplicate code %s", dw.CurrencyCode)
		codes[dw.CurrencyCode] = true
		seen[dw.CurrencyType] = true
	}
	assert.Len(t, seen, 3)
}

func TestActor_CanView(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	user := Actor{ID: self, Role: RoleUser}
	admin := Actor{ID: uuid.New(), Role: RoleAdmin}

	assert.True(t, user.CanView(self))
	assert.False(t, user.CanView(other))
	assert.False(t, user.IsAdmin())
	assert.True(t, admin.CanView(other))
	assert.True(t, admin.IsAdmin())
}

func TestNewAuditLog(t *testing.T) {
	admin := &Actor{ID: uuid.New(), Role: RoleAdmin}

	entry := NewAuditLog(admin, AuditActionAdjustBalance, "transaction", "tx-1")
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, admin.ID, *entry.ActorID)
	assert.Equal(t, "tx-1", entry.ResourceID)
	assert.False(t, entry.CreatedAt.IsZero())

	anon := NewAuditLog(nil, AuditActionProvisionWallets, "wallet", "")
	assert.Nil(t, anon.ActorID)
}
