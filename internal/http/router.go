// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency-key validation, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - One shared middleware stack for all three service binaries
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/mkurosawa/go-deposit-backend/internal/client"
	"github.com/mkurosawa/go-deposit-backend/internal/config"
	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/http/handlers"
	"github.com/mkurosawa/go-deposit-backend/internal/http/middleware"
	"github.com/mkurosawa/go-deposit-backend/internal/repo"
	"github.com/mkurosawa/go-deposit-backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// accountRepoShim adapts the repository free functions to the
// services.AccountRepo interface expected by the AccountService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type accountRepoShim struct{}

// CreateAccount proxies repo.CreateAccount.
func (accountRepoShim) CreateAccount(ctx context.Context, db *gorm.DB, owner string) (*domain.Account, error) {
	return repo.CreateAccount(ctx, db, owner)
}

// GetAccount proxies repo.GetAccount.
func (accountRepoShim) GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	return repo.GetAccount(ctx, db, id)
}

// GetLedgerEntry proxies repo.GetLedgerEntry (idempotent replay support).
func (accountRepoShim) GetLedgerEntry(ctx context.Context, db *gorm.DB, accountID, key string) (*domain.LedgerEntry, error) {
	return repo.GetLedgerEntry(ctx, db, accountID, key)
}

// ApplyLedgerOp proxies repo.ApplyLedgerOp.
func (accountRepoShim) ApplyLedgerOp(ctx context.Context, db *gorm.DB, acc *domain.Account, op domain.LedgerOp, amount, newBalance decimal.Decimal, key string) (*domain.LedgerEntry, error) {
	return repo.ApplyLedgerOp(ctx, db, acc, op, amount, newBalance, key)
}

// depositRepoShim adapts the repository free functions to the
// services.DepositRepo interface expected by the DepositService.
type depositRepoShim struct{}

// CreateDeposit proxies repo.CreateDeposit.
func (depositRepoShim) CreateDeposit(ctx context.Context, db *gorm.DB, td *domain.TimeDeposit) error {
	return repo.CreateDeposit(ctx, db, td)
}

// GetDeposit proxies repo.GetDeposit.
func (depositRepoShim) GetDeposit(ctx context.Context, db *gorm.DB, id string) (*domain.TimeDeposit, error) {
	return repo.GetDeposit(ctx, db, id)
}

// SaveDeposit proxies repo.SaveDeposit.
func (depositRepoShim) SaveDeposit(ctx context.Context, db *gorm.DB, td *domain.TimeDeposit) error {
	return repo.SaveDeposit(ctx, db, td)
}

// registerCommon attaches the middleware stack, fallbacks, and the /metrics
// endpoint shared by all service binaries.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter, response compression
//  6. Metrics
//  7. Bearer passthrough (stash caller token for downstream calls)
//  8. Idempotency-Key validation (shape only; dedup lives in the ledger)
//  9. Rate limiter (per client IP)
//  10. CORS and Security headers
func registerCommon(r *gin.Engine, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (Authorization and
	// Idempotency-Key are masked by default)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// Compress responses when the client accepts it. /metrics is excluded
	// since promhttp negotiates its own encoding.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Caller bearer token, forwarded verbatim on downstream calls
	r.Use(middleware.BearerPassthrough())

	// 8) Idempotency-Key shape validation
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		MaxLen: cfg.IdempotencyMaxLen,
	}))

	// 9) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})
}

// RegisterSavingsRoutes attaches middleware and the savings-account endpoints
// to the given Gin engine: account creation, balance reads, and idempotent
// deposit/withdraw mutations.
func RegisterSavingsRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	registerCommon(r, cfg)

	// Liveness/health with store counters
	r.GET("/health", func(c *gin.Context) {
		stats, err := repo.GetSavingsStats(c.Request.Context(), db)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"accounts": stats.Accounts,
			"entries":  stats.LedgerEntries,
		})
	})

	// Dependency injection: service ← repo/db
	accSvc := services.NewAccountService(db, accountRepoShim{})
	h := handlers.NewAccountHandlers(accSvc)

	r.POST("/accounts", h.CreateAccount)
	r.GET("/accounts/:id", h.GetAccount)
	r.POST("/accounts/:id/deposit", h.Deposit)
	r.POST("/accounts/:id/withdraw", h.Withdraw)
}

// RegisterDepositRoutes attaches middleware and the time-deposit endpoints:
// aggregate create/read/close plus the funds-transfer orchestrator. The
// savings service is reached over HTTP through the ledger client.
func RegisterDepositRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	registerCommon(r, cfg)

	// Liveness/health with store counters
	r.GET("/health", func(c *gin.Context) {
		stats, err := repo.GetDepositStats(c.Request.Context(), db)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"open":    stats.Open,
			"closing": stats.Closing,
			"closed":  stats.Closed,
		})
	})

	// Dependency injection: services ← repo/db, ledger ← savings client
	hc := &http.Client{Timeout: cfg.Downstream.ClientTimeout}
	ledger := client.NewSavings(cfg.Downstream.SavingsBaseURL, hc)
	depSvc := services.NewDepositService(db, depositRepoShim{})
	xferSvc := services.NewTransferService(ledger, depSvc)

	dh := handlers.NewDepositHandlers(depSvc, xferSvc, ledger)
	th := handlers.NewTransferHandlers(xferSvc)

	r.POST("/deposits", dh.CreateDeposit)
	r.GET("/deposits/:id", dh.GetDeposit)
	r.POST("/deposits/:id/close", dh.CloseDeposit)
	r.POST("/transfers", th.Transfer)
}

// RegisterMashupRoutes attaches middleware and the BFF endpoints. The mashup
// holds no database of its own: every route composes or proxies the two
// downstream services, propagating the caller's bearer token and
// Idempotency-Key.
func RegisterMashupRoutes(r *gin.Engine, cfg config.Config) {
	registerCommon(r, cfg)

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: downstream clients share one HTTP client
	hc := &http.Client{Timeout: cfg.Downstream.ClientTimeout}
	savings := client.NewSavings(cfg.Downstream.SavingsBaseURL, hc)
	deposits := client.NewTimeDeposit(cfg.Downstream.TimeDepositBaseURL, hc)
	h := handlers.NewMashupHandlers(savings, deposits)

	api := groupWithPrefix(r, "/api/v1")
	{
		api.GET("/summary", h.Summary)
		api.POST("/deposits", h.ProxyCreateDeposit)
		api.POST("/deposits/:id/close", h.ProxyCloseDeposit)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
