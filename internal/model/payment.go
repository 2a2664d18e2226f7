package model

import (
	"time"
)

// PaymentModel 赞助支付记录
type PaymentModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderRef   string `json:"order_ref" gorm:"uniqueIndex;not null"` // 调用方提供的全局唯一订单号
	CampaignId int64  `json:"campaign_id" gorm:"not null"`
	PayerId    int64  `json:"payer_id" gorm:"not null"`
	Amount     int64  `json:"amount" gorm:"not null"` // 最小货币单位，创建后不可变更
	Method     string `json:"method" gorm:"not null"`

	Status           string     `json:"status" gorm:"default:'pending';index"` // pending, completed, failed
	GatewayReference string     `json:"gateway_reference"`                     // 确认成功后由网关返回
	ApprovedAt       *time.Time `json:"approved_at"`
	FailedAt         *time.Time `json:"failed_at"`
	FailReason       string     `json:"fail_reason" gorm:"type:text"`
	AttemptCount     int        `json:"attempt_count" gorm:"default:0"` // 对账任务重试次数
}

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // 待确认
	PaymentStatusCompleted PaymentStatus = "completed" // 已完成
	PaymentStatusFailed    PaymentStatus = "failed"    // 失败
)

// TableName 自定义表名
func (PaymentModel) TableName() string {
	return "payment"
}
