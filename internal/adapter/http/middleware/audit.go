package middleware

import (
	"encoding/json"
	"net/http"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuditLog records successful administrative writes after the handler ran.
// Handlers may set CtxResourceID to name the affected record.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var actor *domain.Actor
		if a, ok := ActorFrom(c); ok {
			actor = &a
		}

		resourceID := c.GetString(CtxResourceID)
		if resourceID == "" {
			resourceID = c.Param("userId")
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(response.CtxRequestID),
		})

		entry := domain.NewAuditLog(actor, action, resourceType, resourceID)
		entry.IPAddress = c.ClientIP()
		entry.Details = string(details)
		auditSvc.Log(c.Request.Context(), entry)
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/admin/wallets/adjust" && method == http.MethodPost:
		return domain.AuditActionAdjustBalance, "transaction"
	case route == "/api/v1/admin/users/:userId/wallets/provision" && method == http.MethodPost:
		return domain.AuditActionProvisionWallets, "wallet"
	}
	return "", ""
}
