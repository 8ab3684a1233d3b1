package handler

import (
	"time"

	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc        ports.LedgerService
	ProvisioningSvc  ports.ProvisioningService
	QuerySvc         ports.WalletQueryService
	TokenSvc         ports.TokenService
	RateLimitStore   ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	AuditSvc         ports.AuditService // nil = audit logging disabled
	Logger           zerolog.Logger
	AdjustRateLimit  int64         // overrides the admin_adjust rule when > 0
	AdjustRateWindow time.Duration // overrides the admin_adjust window when > 0
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Deep health check of storage and Redis
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	adjustRule := rules["admin_adjust"]
	if deps.AdjustRateLimit > 0 {
		adjustRule.Limit = deps.AdjustRateLimit
	}
	if deps.AdjustRateWindow > 0 {
		adjustRule.Window = deps.AdjustRateWindow
	}
	rules["admin_adjust"] = adjustRule

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	v1 := r.Group("/api/v1", jwtAuth)

	// --- Self-service reads ---
	walletHandler := NewWalletHandler(deps.QuerySvc)
	v1.GET("/wallets/me", rl("wallets_read"), walletHandler.MyWallets)
	v1.GET("/transactions/me", rl("wallets_read"), walletHandler.MyTransactions)

	users := v1.Group("/users/:userId", middleware.RequireSelfOrAdmin("userId"))
	{
		users.GET("/wallets", rl("wallets_read"), walletHandler.UserWallets)
		users.GET("/transactions", rl("wallets_read"), walletHandler.UserTransactions)
	}

	// --- Administration ---
	adminHandler := NewAdminHandler(deps.LedgerSvc, deps.ProvisioningSvc, deps.QuerySvc)
	admin := v1.Group("/admin", middleware.RequireAdmin())
	if deps.AuditSvc != nil {
		admin.Use(middleware.AuditLog(deps.AuditSvc))
	}
	{
		admin.GET("/wallets", rl("admin_read"), adminHandler.ListWallets)
		admin.POST("/wallets/adjust", rl("admin_adjust"), adminHandler.Adjust)
		admin.POST("/users/:userId/wallets/provision", rl("admin_provision"), adminHandler.ProvisionWallets)
	}

	return r
}
