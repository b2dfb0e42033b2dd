package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anipets12/abgwilson-sub001/config"
	"github.com/anipets12/abgwilson-sub001/internal/api/handler"
	"github.com/anipets12/abgwilson-sub001/internal/api/middleware"
	"github.com/anipets12/abgwilson-sub001/pkg/jwt"
	"github.com/anipets12/abgwilson-sub001/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(1 << 20))

	rateLimit := middleware.RateLimit(rdb, cfg.Auth.RateLimitRequests, cfg.Auth.RateLimitWindow)
	idempotency := middleware.Idempotency(rdb, cfg.Auth.IdempotencyKeyTTL)

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", rateLimit, h.Auth.Register)
			auth.POST("/login", rateLimit, h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 推广模块
			affiliates := authorized.Group("/affiliates")
			{
				affiliates.POST("/generate-code", rateLimit, h.Affiliate.GenerateCode)
				affiliates.GET("/status", h.Affiliate.GetStatus)
				affiliates.POST("/register-referral", idempotency, h.Affiliate.RegisterReferral)
				affiliates.GET("/history", h.Affiliate.GetHistory)
				affiliates.POST("/request-payment", rateLimit, idempotency, h.Affiliate.RequestPayment)
			}

			// 管理模块
			admin := authorized.Group("/admin")
			admin.Use(middleware.RoleAuth("admin"))
			{
				admin.POST("/referrals/:id/convert", h.Admin.ConvertReferral)
				admin.PUT("/payments/:id", h.Admin.ResolvePayment)
				admin.GET("/affiliates/:id/export", h.Admin.ExportAffiliateHistory)
			}
		}
	}

	return r
}
