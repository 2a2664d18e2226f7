package router

import (
	"github.com/blues/sps/internal/config"
	"github.com/blues/sps/internal/gateway"
	"github.com/blues/sps/internal/handler"
	"github.com/blues/sps/internal/logic"
	"github.com/blues/sps/internal/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, gw gateway.Gateway, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "sponsorship-settlement-service",
		})
	})

	paymentLogic := logic.NewPaymentLogic(db, gw, cfg.Settlement.FeeRateBps)
	participationLogic := logic.NewParticipationLogic(db)
	settlementLogic := logic.NewSettlementLogic(db)
	batchLogic := logic.NewBatchLogic(participationLogic, settlementLogic, cfg.Task.WorkerPoolSize)
	revenueLogic := logic.NewRevenueLogic(db)

	paymentHandler := handler.NewPaymentHandler(paymentLogic)
	participationHandler := handler.NewParticipationHandler(participationLogic)
	settlementHandler := handler.NewSettlementHandler(settlementLogic, batchLogic)
	revenueHandler := handler.NewRevenueHandler(revenueLogic)

	// API版本组，全部接口要求认证
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequireAuth(cfg.Auth.JWTSecret))
	{
		// 支付相关路由
		payments := v1.Group("/payments")
		{
			payments.POST("/prepare",
				middleware.RequireRole(middleware.RoleSponsorOperator, middleware.RoleAdmin),
				paymentHandler.PreparePayment)
			payments.POST("/confirm",
				middleware.RequireRole(middleware.RoleSponsorOperator, middleware.RoleAdmin),
				paymentHandler.ConfirmPayment)
			payments.GET("/:order_ref", paymentHandler.GetPayment)
		}

		// 结算相关路由
		settlements := v1.Group("/settlements")
		{
			settlements.GET("", settlementHandler.ListSettlements)
			settlements.GET("/:id", settlementHandler.GetSettlement)
			// 管理员操作在触达数据前完成角色校验
			settlements.PUT("/:id/status",
				middleware.RequireRole(middleware.RoleAdmin),
				settlementHandler.SetSettlementStatus)
			settlements.POST("/run-batch",
				middleware.RequireRole(middleware.RoleAdmin),
				settlementHandler.RunSettlementBatch)
		}

		// 工作记录相关路由
		participations := v1.Group("/participations")
		{
			participations.POST("",
				middleware.RequireRole(middleware.RoleAdmin),
				participationHandler.CreateParticipationRecord)
			participations.GET("/eligible",
				middleware.RequireRole(middleware.RoleAdmin),
				participationHandler.GetEligibleWork)
		}

		// 收入流水相关路由
		revenue := v1.Group("/revenue")
		revenue.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			revenue.GET("/stats", revenueHandler.GetRevenueStats)
			revenue.GET("/entries", revenueHandler.ListRevenueByReference)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
