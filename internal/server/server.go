package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/affiliate"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/auth"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/balance"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/config"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/entitlement"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/intent"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/notification"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/payment"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/renewal"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/user"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	http   *http.Server
}

func New(
	db *sqlx.DB,
	cfg *config.Config,
	notifier *notification.Service,
	processor *payment.Processor,
	scheduler *renewal.Scheduler,
) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RequestLoggingMiddleware())

	RegisterValidations()

	userHandler := user.NewHandler(db, cfg.JWTSecret)
	balanceHandler := balance.NewHandler(db)
	intentHandler := intent.NewHandler(db)
	entitlementHandler := entitlement.NewHandler(db)
	affiliateHandler := affiliate.NewHandler(db)
	notificationHandler := notification.NewHandler(notifier)
	webhookHandler := payment.NewHandler(processor)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	// Gateway callbacks are unauthenticated but rate limited; the processor
	// re-fetches every payment, so a forged body cannot move money.
	webhookLimiter := NewRateLimiter(10, 20, 10*time.Minute)
	router.POST("/webhooks/payment", webhookLimiter.Middleware(), webhookHandler.Webhook)

	router.GET("/catalog", intentHandler.ListCatalog)
	router.GET("/profiles/:profileID/featured", entitlementHandler.IsFeatured)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/balance", balanceHandler.GetBalance)
		protected.GET("/balance/ledger", balanceHandler.ListLedger)

		protected.POST("/purchases", intentHandler.Create)
		protected.GET("/purchases", intentHandler.List)
		protected.GET("/purchases/:intentID", intentHandler.Get)

		protected.GET("/entitlements", entitlementHandler.ListMy)
		protected.POST("/entitlements/:entitlementID/cancel", entitlementHandler.Cancel)
		protected.POST("/entitlements/:entitlementID/auto-renew", entitlementHandler.SetAutoRenew)

		protected.GET("/affiliate/summary", affiliateHandler.GetSummary)
		protected.GET("/affiliate/commissions", affiliateHandler.ListCommissions)

		protected.GET("/notifications", notificationHandler.ListMy)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.GET("/entitlements/expiring", entitlementHandler.ListExpiring)
		admin.GET("/balances/:userID/reconcile", balanceHandler.Reconcile)
		admin.POST("/sweep", func(c *gin.Context) {
			go scheduler.Sweep(context.Background(), time.Now())
			c.JSON(http.StatusAccepted, gin.H{"status": "sweep triggered"})
		})
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
