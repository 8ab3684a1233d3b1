package handler

import (
	"strconv"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler serves the read-only wallet and history endpoints.
type WalletHandler struct {
	querySvc ports.WalletQueryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(querySvc ports.WalletQueryService) *WalletHandler {
	return &WalletHandler{querySvc: querySvc}
}

// MyWallets handles GET /api/v1/wallets/me.
func (h *WalletHandler) MyWallets(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	h.listWallets(c, actor.ID)
}

// MyTransactions handles GET /api/v1/transactions/me.
func (h *WalletHandler) MyTransactions(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	h.listTransactions(c, actor.ID)
}

// UserWallets handles GET /api/v1/users/:userId/wallets.
// Access is enforced by RequireSelfOrAdmin.
func (h *WalletHandler) UserWallets(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.Error(c, apperror.Validation("userId must be a UUID"))
		return
	}
	h.listWallets(c, userID)
}

// UserTransactions handles GET /api/v1/users/:userId/transactions.
func (h *WalletHandler) UserTransactions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.Error(c, apperror.Validation("userId must be a UUID"))
		return
	}
	h.listTransactions(c, userID)
}

func (h *WalletHandler) listWallets(c *gin.Context, userID uuid.UUID) {
	wallets, err := h.querySvc.ListUserWallets(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"items": dto.NewWalletResponses(wallets)})
}

func (h *WalletHandler) listTransactions(c *gin.Context, userID uuid.UUID) {
	page, pageSize := pageParams(c)
	params := ports.TransactionListParams{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
	}
	if code := c.Query("currency"); code != "" {
		params.CurrencyCode = &code
	}
	if d := c.Query("direction"); d != "" {
		dir := domain.Direction(d)
		params.Direction = &dir
	}

	txns, total, err := h.querySvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.NewTransactionResponses(txns), total, page, pageSize)
}

// pageParams reads page and page_size, falling back to defaults on bad input.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(service.DefaultPageSize)))
	return service.NormalizePage(page, pageSize)
}
