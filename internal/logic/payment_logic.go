package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blues/sps/internal/gateway"
	"github.com/blues/sps/internal/logger"
	"github.com/blues/sps/internal/model"
	"gorm.io/gorm"
)

// maxReconAttempts 对账任务放弃前的最大查询次数
const maxReconAttempts = 5

// PaymentLogic 赞助支付业务逻辑
type PaymentLogic struct {
	db         *gorm.DB
	gw         gateway.Gateway
	feeRateBps int64
}

// NewPaymentLogic 创建赞助支付业务逻辑
func NewPaymentLogic(db *gorm.DB, gw gateway.Gateway, feeRateBps int) *PaymentLogic {
	return &PaymentLogic{
		db:         db,
		gw:         gw,
		feeRateBps: int64(feeRateBps),
	}
}

// PrepareInput 创建支付的入参
type PrepareInput struct {
	OrderRef   string
	CampaignId int64
	PayerId    int64
	Amount     int64
	Method     string
}

// Prepare 创建待确认支付。同一订单号重复调用返回已有记录，不产生重复支付。
func (p *PaymentLogic) Prepare(input PrepareInput) (*model.PaymentModel, error) {
	if err := p.validatePrepare(input); err != nil {
		return nil, err
	}

	// 幂等：订单号已存在则直接返回
	var existing model.PaymentModel
	err := p.db.Where("order_ref = ?", input.OrderRef).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	}

	// 检查活动是否存在
	var campaign model.CampaignModel
	if err := p.db.First(&campaign, input.CampaignId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 活动不存在", ErrNotFound)
		}
		return nil, fmt.Errorf("查询活动失败: %w", err)
	}

	payment := &model.PaymentModel{
		OrderRef:   input.OrderRef,
		CampaignId: input.CampaignId,
		PayerId:    input.PayerId,
		Amount:     input.Amount,
		Method:     input.Method,
		Status:     string(model.PaymentStatusPending),
	}

	if err := p.db.Create(payment).Error; err != nil {
		// 并发创建撞上唯一索引时回读已有记录，保持幂等语义
		var raced model.PaymentModel
		if err2 := p.db.Where("order_ref = ?", input.OrderRef).First(&raced).Error; err2 == nil {
			return &raced, nil
		}
		return nil, fmt.Errorf("创建支付记录失败: %w", err)
	}

	return payment, nil
}

// Confirm 确认支付。网关金额与创建时声明的金额不一致时直接判定支付失败，
// 绝不接受事后变更的扣款金额。
func (p *PaymentLogic) Confirm(ctx context.Context, orderRef string, gatewayAmount int64, gatewayReference string) (*model.PaymentModel, error) {
	var payment model.PaymentModel
	if err := p.db.Where("order_ref = ?", orderRef).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 订单号不存在", ErrNotFound)
		}
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	}

	if payment.Status != string(model.PaymentStatusPending) {
		return nil, fmt.Errorf("%w: 支付已处于终态 %s", ErrConflict, payment.Status)
	}

	if gatewayAmount != payment.Amount {
		// 金额被篡改，该支付直接作废并留痕
		logger.Error("Amount mismatch on payment %s: declared=%d, gateway=%d",
			payment.OrderRef, payment.Amount, gatewayAmount)
		if err := p.failPayment(&payment, fmt.Sprintf("金额不一致: 声明=%d 网关=%d", payment.Amount, gatewayAmount)); err != nil {
			return nil, err
		}
		return &payment, ErrAmountMismatch
	}

	result, err := p.gw.Confirm(ctx, payment.OrderRef, payment.Amount)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			// 网关不可达时保持pending，交给对账任务处理
			logger.Warn("Gateway unreachable for payment %s, left pending for reconciliation: %v",
				payment.OrderRef, err)
			p.bumpAttemptCount(&payment)
			return nil, fmt.Errorf("支付网关调用失败: %w", err)
		}
		return nil, fmt.Errorf("支付网关调用失败: %w", err)
	}

	if !result.Approved {
		logger.Warn("Gateway declined payment %s: %s", payment.OrderRef, result.Reason)
		if err := p.failPayment(&payment, result.Reason); err != nil {
			return nil, err
		}
		return &payment, fmt.Errorf("%w: %s", ErrGatewayDeclined, result.Reason)
	}

	reference := result.Reference
	if reference == "" {
		reference = gatewayReference
	}

	if err := p.completePayment(&payment, reference); err != nil {
		return nil, err
	}

	return &payment, nil
}

// completePayment 在一个事务内落地确认结果：
// 支付置为completed、活动标记为已到账、写入平台手续费流水。
func (p *PaymentLogic) completePayment(payment *model.PaymentModel, reference string) error {
	now := time.Now()
	fee := payment.Amount * p.feeRateBps / 10000 // 整数万分比，向下取整

	return p.db.Transaction(func(tx *gorm.DB) error {
		// 只有pending才能被确认，单写者胜出
		res := tx.Model(&model.PaymentModel{}).
			Where("id = ? AND status = ?", payment.Id, string(model.PaymentStatusPending)).
			Updates(map[string]interface{}{
				"status":            string(model.PaymentStatusCompleted),
				"gateway_reference": reference,
				"approved_at":       &now,
			})
		if res.Error != nil {
			return fmt.Errorf("更新支付状态失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: 支付已被其他请求确认", ErrConflict)
		}

		if err := tx.Model(&model.CampaignModel{}).
			Where("id = ? AND status = ?", payment.CampaignId, string(model.CampaignStatusDraft)).
			Update("status", string(model.CampaignStatusFunded)).Error; err != nil {
			return fmt.Errorf("更新活动状态失败: %w", err)
		}

		if _, err := RecordRevenueTx(tx, model.RevenueTypePlatformFee, fee,
			payment.Id, model.RevenueReferencePayment,
			fmt.Sprintf("订单 %s 的平台手续费", payment.OrderRef)); err != nil {
			return err
		}

		payment.Status = string(model.PaymentStatusCompleted)
		payment.GatewayReference = reference
		payment.ApprovedAt = &now
		return nil
	})
}

// failPayment 将支付置为失败终态，不写任何收入流水
func (p *PaymentLogic) failPayment(payment *model.PaymentModel, reason string) error {
	now := time.Now()
	res := p.db.Model(&model.PaymentModel{}).
		Where("id = ? AND status = ?", payment.Id, string(model.PaymentStatusPending)).
		Updates(map[string]interface{}{
			"status":      string(model.PaymentStatusFailed),
			"failed_at":   &now,
			"fail_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("更新支付状态失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: 支付已被其他请求处理", ErrConflict)
	}

	payment.Status = string(model.PaymentStatusFailed)
	payment.FailedAt = &now
	payment.FailReason = reason
	return nil
}

// bumpAttemptCount 记录一次失败的网关调用
func (p *PaymentLogic) bumpAttemptCount(payment *model.PaymentModel) {
	if err := p.db.Model(&model.PaymentModel{}).
		Where("id = ?", payment.Id).
		Update("attempt_count", gorm.Expr("attempt_count + 1")).Error; err != nil {
		logger.Error("Failed to bump attempt count for payment %s: %v", payment.OrderRef, err)
	}
}

// FindStalePending 查找滞留超过阈值的pending支付，供对账任务使用
func (p *PaymentLogic) FindStalePending(staleAfter time.Duration) ([]model.PaymentModel, error) {
	cutoff := time.Now().Add(-staleAfter)

	var payments []model.PaymentModel
	if err := p.db.Where("status = ? AND created_at < ?", string(model.PaymentStatusPending), cutoff).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("查询滞留支付失败: %w", err)
	}
	return payments, nil
}

// ResolveStale 对账单笔滞留支付：向网关查询最终状态并落地，
// 每次调用至多推进一次状态。
func (p *PaymentLogic) ResolveStale(ctx context.Context, payment *model.PaymentModel) error {
	result, err := p.gw.Query(ctx, payment.OrderRef)
	if err != nil {
		p.bumpAttemptCount(payment)
		if payment.AttemptCount+1 >= maxReconAttempts {
			logger.Error("Giving up on payment %s after %d reconciliation attempts",
				payment.OrderRef, payment.AttemptCount+1)
			return p.failPayment(payment, "对账超过最大重试次数")
		}
		return fmt.Errorf("网关查询失败: %w", err)
	}

	switch result.Status {
	case gateway.QueryStatusApproved:
		if result.Amount != payment.Amount {
			logger.Error("Amount mismatch on reconciled payment %s: declared=%d, gateway=%d",
				payment.OrderRef, payment.Amount, result.Amount)
			return p.failPayment(payment, fmt.Sprintf("对账金额不一致: 声明=%d 网关=%d", payment.Amount, result.Amount))
		}
		return p.completePayment(payment, result.Reference)
	case gateway.QueryStatusDeclined:
		return p.failPayment(payment, "网关侧订单已拒绝")
	default:
		// 网关侧也查不到结果，等待下一轮
		p.bumpAttemptCount(payment)
		if payment.AttemptCount+1 >= maxReconAttempts {
			return p.failPayment(payment, "对账超过最大重试次数")
		}
		return nil
	}
}

// GetPaymentByOrderRef 按订单号查询支付
func (p *PaymentLogic) GetPaymentByOrderRef(orderRef string) (*model.PaymentModel, error) {
	var payment model.PaymentModel
	if err := p.db.Where("order_ref = ?", orderRef).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 订单号不存在", ErrNotFound)
		}
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	}
	return &payment, nil
}

// validatePrepare 校验创建支付入参
func (p *PaymentLogic) validatePrepare(input PrepareInput) error {
	if input.OrderRef == "" {
		return fmt.Errorf("%w: 订单号不能为空", ErrValidation)
	}
	if input.CampaignId == 0 {
		return fmt.Errorf("%w: 活动ID不能为空", ErrValidation)
	}
	if input.PayerId == 0 {
		return fmt.Errorf("%w: 付款方ID不能为空", ErrValidation)
	}
	if input.Amount <= 0 {
		return fmt.Errorf("%w: 支付金额必须大于0", ErrInvalidAmount)
	}
	if input.Method == "" {
		return fmt.Errorf("%w: 支付方式不能为空", ErrValidation)
	}
	return nil
}
