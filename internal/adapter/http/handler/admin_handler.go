package handler

import (
	"strings"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves the administrative ledger endpoints.
type AdminHandler struct {
	ledgerSvc       ports.LedgerService
	provisioningSvc ports.ProvisioningService
	querySvc        ports.WalletQueryService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledgerSvc ports.LedgerService, provisioningSvc ports.ProvisioningService, querySvc ports.WalletQueryService) *AdminHandler {
	return &AdminHandler{
		ledgerSvc:       ledgerSvc,
		provisioningSvc: provisioningSvc,
		querySvc:        querySvc,
	}
}

// Adjust handles POST /api/v1/admin/wallets/adjust.
func (h *AdminHandler) Adjust(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	// Body field wins over the header.
	if req.IdempotencyKey == nil {
		if key := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey)); key != "" {
			req.IdempotencyKey = &key
		}
	}
	if req.RequestID == nil || *req.RequestID == "" {
		rid := response.RequestID(c)
		req.RequestID = &rid
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.Validation("user_id must be a UUID"))
		return
	}

	actorID := actor.ID
	tx, err := h.ledgerSvc.Adjust(c.Request.Context(), ports.AdjustRequest{
		UserID:         userID,
		CurrencyType:   domain.CurrencyType(req.CurrencyType),
		CurrencyCode:   req.CurrencyCode,
		Direction:      domain.Direction(req.Direction),
		Amount:         req.Amount,
		Reason:         domain.Reason(req.Reason),
		RequestID:      req.RequestID,
		IdempotencyKey: req.IdempotencyKey,
		ActorID:        &actorID,
		Metadata:       req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, tx.ID.String())
	response.Created(c, dto.NewTransactionResponse(tx))
}

// ProvisionWallets handles POST /api/v1/admin/users/:userId/wallets/provision.
func (h *AdminHandler) ProvisionWallets(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.Error(c, apperror.Validation("userId must be a UUID"))
		return
	}

	wallets, err := h.provisioningSvc.ProvisionDefaults(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"items": dto.NewWalletResponses(wallets)})
}

// ListWallets handles GET /api/v1/admin/wallets.
func (h *AdminHandler) ListWallets(c *gin.Context) {
	page, pageSize := pageParams(c)
	params := ports.WalletListParams{
		Page:     page,
		PageSize: pageSize,
	}
	if ct := c.Query("currency_type"); ct != "" {
		currencyType := domain.CurrencyType(ct)
		params.CurrencyType = &currencyType
	}

	wallets, total, err := h.querySvc.ListAllWallets(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.NewWalletResponses(wallets), total, page, pageSize)
}
