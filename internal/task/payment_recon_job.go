package task

import (
	"context"
	"time"

	"github.com/blues/sps/internal/config"
	"github.com/blues/sps/internal/gateway"
	"github.com/blues/sps/internal/logger"
	"github.com/blues/sps/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// PaymentReconJob 支付对账任务。处理确认过程被中断后滞留在
// pending 的支付：向网关查询最终状态并落地，每笔至多推进一次。
type PaymentReconJob struct {
	paymentLogic *logic.PaymentLogic
	config       *config.Config
}

// NewPaymentReconJob 创建支付对账任务
func NewPaymentReconJob(db *gorm.DB, gw gateway.Gateway, cfg *config.Config) *PaymentReconJob {
	return &PaymentReconJob{
		paymentLogic: logic.NewPaymentLogic(db, gw, cfg.Settlement.FeeRateBps),
		config:       cfg,
	}
}

// GetName 获取任务名称
func (j *PaymentReconJob) GetName() string {
	return "payment_reconciliation"
}

// GetSchedule 获取调度配置
func (j *PaymentReconJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.ReconInterval) * time.Second)
}

// Execute 执行任务
func (j *PaymentReconJob) Execute() {
	logger.Info("Starting payment reconciliation task")

	staleAfter := time.Duration(j.config.Task.StaleAfterSeconds) * time.Second
	payments, err := j.paymentLogic.FindStalePending(staleAfter)
	if err != nil {
		logger.Error("Failed to fetch stale pending payments: %v", err)
		return
	}

	if len(payments) == 0 {
		logger.Debug("No stale pending payments found")
		return
	}

	resolvedCount := 0
	for i := range payments {
		payment := &payments[i]

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(j.config.Gateway.TimeoutSeconds)*time.Second)
		err := j.paymentLogic.ResolveStale(ctx, payment)
		cancel()

		if err != nil {
			logger.Warn("Failed to reconcile payment %s: %v", payment.OrderRef, err)
			continue
		}
		resolvedCount++
	}

	logger.Info("Payment reconciliation task completed. Processed %d payments, resolved %d",
		len(payments), resolvedCount)
}
