package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/config"
	"github.com/payda-app/payda/internal/http/api/handlers"
	"github.com/payda-app/payda/internal/idempotency"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/payda-app/payda/internal/logging"
	"github.com/payda-app/payda/internal/metrics"
	"github.com/payda-app/payda/internal/models"
	"github.com/payda-app/payda/internal/security"
	"github.com/payda-app/payda/internal/settings"
	"gorm.io/gorm"
)

// Deps carries everything the router needs.
type Deps struct {
	DB          *gorm.DB
	Engine      *ledger.Engine
	JWT         config.JWTConfig
	Metrics     *metrics.Collector
	Idempotency idempotency.Store
}

// NewRouter builds the HTTP engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", deps.Metrics.Handler())
	}
	RegisterRoutes(r, deps)
	return r
}

// RegisterRoutes registers public and authenticated API routes.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil || deps.Engine == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	v0 := r.Group("/v0")
	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	v0.POST("/auth/login", authHandler.Login)

	authed := v0.Group("")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))
	if deps.Idempotency != nil {
		authed.Use(idempotency.Middleware(deps.Idempotency, idempotencyTTL, idempotencyScope))
	}
	admin := authed.Group("")
	admin.Use(adminOnlyMiddleware())

	walletHandler := handlers.NewWalletHandler(deps.Engine)
	authed.GET("/me", walletHandler.Me)
	authed.GET("/wallet/flows", walletHandler.Flows)
	authed.POST("/wallet/transfer", walletHandler.Transfer)
	admin.POST("/wallet/topup", walletHandler.TopUp)
	admin.GET("/users", walletHandler.Users)

	donationHandler := handlers.NewDonationHandler(deps.Engine)
	authed.POST("/donate", donationHandler.Donate)
	authed.GET("/donations", donationHandler.List)
	authed.POST("/needs/:id/donate", donationHandler.DonateToNeed)

	couponHandler := handlers.NewCouponHandler(deps.Engine)
	authed.GET("/coupons", couponHandler.List)
	authed.GET("/coupons/eligibility/:user_id", couponHandler.Eligibility)
	authed.POST("/coupons/redeem", couponHandler.Redeem)
	authed.POST("/merchant/backflow", couponHandler.Backflow)
	admin.POST("/coupons/assign", couponHandler.Assign)
	admin.POST("/coupon-types/:id/issue", couponHandler.Issue)

	poolHandler := handlers.NewPoolHandler(deps.Engine)
	authed.GET("/pools", poolHandler.List)
	admin.POST("/coupon-types", poolHandler.CreateCouponType)
	admin.POST("/merchants", poolHandler.CreateMerchant)

	merchantHandler := handlers.NewMerchantHandler(deps.Engine)
	authed.GET("/merchants/:id/earnings", merchantHandler.Earnings)
	admin.POST("/merchants/:id/daily-limit", merchantHandler.DailyLimit)

	needHandler := handlers.NewNeedHandler(deps.Engine)
	authed.GET("/needs", needHandler.List)
	authed.POST("/needs", needHandler.Create)
	authed.POST("/needs/:id/cancel", needHandler.Cancel)

	ruleHandler := handlers.NewRuleHandler(deps.Engine)
	authed.POST("/auto-donations", ruleHandler.Create)
	admin.POST("/auto-donations/run", ruleHandler.Run)
	admin.GET("/auto-donations/runs/latest", ruleHandler.LatestRun)
	admin.PATCH("/auto-donations/:id", ruleHandler.SetActive)

	settingsHandler := handlers.NewSettingsHandler(deps.DB)
	admin.GET("/settings", settingsHandler.List)
	admin.GET("/settings/:key", settingsHandler.Get)
	admin.PUT("/settings/:key", settingsHandler.Put)
}

func idempotencyTTL() time.Duration {
	return time.Duration(settings.IntValue(settings.IdempotencyTTLSecondsKey, settings.DefaultIdempotencyTTLSeconds)) * time.Second
}

// idempotencyScope keeps each caller's keys apart.
func idempotencyScope(c *gin.Context) string {
	return "user:" + strconv.FormatUint(c.GetUint64(handlers.ContextUserID), 10)
}

// userAuthMiddleware validates bearer JWTs and loads the caller into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(handlers.ContextUserID, user.ID)
		c.Set(handlers.ContextRole, user.Role)
		c.Next()
	}
}

// adminOnlyMiddleware rejects callers without the admin role.
func adminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(handlers.ContextRole)
		if r, ok := role.(models.Role); !ok || !r.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
