package handler

import (
	"time"

	"github.com/blues/sps/internal/model"
)

// 支付相关请求/响应模型

// PreparePaymentRequest 创建支付请求
type PreparePaymentRequest struct {
	OrderRef   string `json:"orderRef" binding:"required"`
	CampaignId int64  `json:"campaignId" binding:"required"`
	PayerId    int64  `json:"payerId" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
	Method     string `json:"method" binding:"required"`
}

// ConfirmPaymentRequest 确认支付请求
type ConfirmPaymentRequest struct {
	OrderRef         string `json:"orderRef" binding:"required"`
	GatewayAmount    int64  `json:"gatewayAmount" binding:"required"`
	GatewayReference string `json:"gatewayReference"`
}

// PaymentResponse 支付响应模型
type PaymentResponse struct {
	ID               int64      `json:"id"`
	OrderRef         string     `json:"orderRef"`
	CampaignId       int64      `json:"campaignId"`
	PayerId          int64      `json:"payerId"`
	Amount           int64      `json:"amount"`
	Method           string     `json:"method"`
	Status           string     `json:"status"`
	GatewayReference string     `json:"gatewayReference"`
	ApprovedAt       *time.Time `json:"approvedAt"`
	FailedAt         *time.Time `json:"failedAt"`
	FailReason       string     `json:"failReason"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// 工作记录相关请求/响应模型

// CreateParticipationRequest 登记工作记录请求
type CreateParticipationRequest struct {
	CampaignId    int64 `json:"campaignId" binding:"required"`
	CreatorId     int64 `json:"creatorId" binding:"required"`
	PayableAmount int64 `json:"payableAmount" binding:"required"`
}

// ParticipationRecordResponse 工作记录响应模型
type ParticipationRecordResponse struct {
	ID               int64      `json:"id"`
	CampaignId       int64      `json:"campaignId"`
	CreatorId        int64      `json:"creatorId"`
	PayableAmount    int64      `json:"payableAmount"`
	CompletedAt      *time.Time `json:"completedAt"`
	SettlementItemId *int64     `json:"settlementItemId"`
}

// 结算相关请求/响应模型

// SetSettlementStatusRequest 结算状态变更请求
type SetSettlementStatusRequest struct {
	Status            string `json:"status" binding:"required"`
	AdminNote         string `json:"adminNote"`
	TransferConfirmed bool   `json:"transferConfirmed"`
}

// SettlementResponse 结算批次响应模型
type SettlementResponse struct {
	ID          int64      `json:"id"`
	CreatorId   int64      `json:"creatorId"`
	Status      string     `json:"status"`
	TotalAmount int64      `json:"totalAmount"`
	CompletedAt *time.Time `json:"completedAt"`
	AdminNotes  string     `json:"adminNotes"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SettlementItemResponse 结算明细响应模型
type SettlementItemResponse struct {
	ID                    int64  `json:"id"`
	SettlementId          int64  `json:"settlementId"`
	ParticipationRecordId int64  `json:"participationRecordId"`
	Amount                int64  `json:"amount"`
	CampaignTitle         string `json:"campaignTitle"`
}

// GetSettlementResponse 结算批次详情响应
type GetSettlementResponse struct {
	Settlement SettlementResponse       `json:"settlement"`
	Items      []SettlementItemResponse `json:"items"`
}

// ListSettlementsResponse 结算批次列表响应
type ListSettlementsResponse struct {
	Settlements []SettlementResponse `json:"settlements"`
	Pagination  Pagination           `json:"pagination"`
}

// 转换函数

// ToPaymentResponse 将支付数据库模型转换为响应模型
func ToPaymentResponse(payment *model.PaymentModel) PaymentResponse {
	return PaymentResponse{
		ID:               payment.Id,
		OrderRef:         payment.OrderRef,
		CampaignId:       payment.CampaignId,
		PayerId:          payment.PayerId,
		Amount:           payment.Amount,
		Method:           payment.Method,
		Status:           payment.Status,
		GatewayReference: payment.GatewayReference,
		ApprovedAt:       payment.ApprovedAt,
		FailedAt:         payment.FailedAt,
		FailReason:       payment.FailReason,
		CreatedAt:        payment.CreatedAt,
	}
}

// ToParticipationRecordResponse 将工作记录数据库模型转换为响应模型
func ToParticipationRecordResponse(record *model.ParticipationRecordModel) ParticipationRecordResponse {
	return ParticipationRecordResponse{
		ID:               record.Id,
		CampaignId:       record.CampaignId,
		CreatorId:        record.CreatorId,
		PayableAmount:    record.PayableAmount,
		CompletedAt:      record.CompletedAt,
		SettlementItemId: record.SettlementItemId,
	}
}

// ToParticipationRecordResponseList 将工作记录模型列表转换为响应模型列表
func ToParticipationRecordResponseList(records []model.ParticipationRecordModel) []ParticipationRecordResponse {
	result := make([]ParticipationRecordResponse, len(records))
	for i, record := range records {
		result[i] = ToParticipationRecordResponse(&record)
	}
	return result
}

// ToSettlementResponse 将结算批次数据库模型转换为响应模型
func ToSettlementResponse(settlement *model.SettlementModel) SettlementResponse {
	return SettlementResponse{
		ID:          settlement.Id,
		CreatorId:   settlement.CreatorId,
		Status:      settlement.Status,
		TotalAmount: settlement.TotalAmount,
		CompletedAt: settlement.CompletedAt,
		AdminNotes:  settlement.AdminNotes,
		CreatedAt:   settlement.CreatedAt,
		UpdatedAt:   settlement.UpdatedAt,
	}
}

// ToSettlementResponseList 将结算批次模型列表转换为响应模型列表
func ToSettlementResponseList(settlements []model.SettlementModel) []SettlementResponse {
	result := make([]SettlementResponse, len(settlements))
	for i, settlement := range settlements {
		result[i] = ToSettlementResponse(&settlement)
	}
	return result
}

// ToSettlementItemResponseList 将结算明细模型列表转换为响应模型列表
func ToSettlementItemResponseList(items []model.SettlementItemModel) []SettlementItemResponse {
	result := make([]SettlementItemResponse, len(items))
	for i, item := range items {
		result[i] = SettlementItemResponse{
			ID:                    item.Id,
			SettlementId:          item.SettlementId,
			ParticipationRecordId: item.ParticipationRecordId,
			Amount:                item.Amount,
			CampaignTitle:         item.CampaignTitle,
		}
	}
	return result
}
